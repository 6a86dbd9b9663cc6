package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// Block types understood by the renderer.
const (
	BlockHeading = "heading"
	BlockText    = "text"
	BlockImage   = "image"
	BlockButton  = "button"
	BlockDivider = "divider"
	BlockSpacer  = "spacer"
	BlockHTML    = "html"
	BlockColumns = "columns"
)

type EmailTemplate struct {
	ID          int64    `json:"id"`
	CompanyID   int64    `json:"companyId"`
	Name        string   `json:"name"`
	Subject     string   `json:"subject"`
	PreviewText string   `json:"previewText"`
	Blocks      Blocks   `json:"blocks"`
	Settings    Settings `json:"settings"`
	Active      bool     `json:"active"`
	CreatedAt   int64    `json:"createdAt"`
	UpdatedAt   int64    `json:"updatedAt"`
}

type Blocks []Block

// Block is one visual unit of a template document. For columns blocks, each
// entry of Columns is a column whose own Columns hold that column's blocks.
type Block struct {
	ID      string       `json:"id"`
	Type    string       `json:"type"`
	Order   int          `json:"order"`
	Content BlockContent `json:"content"`
	Styles  BlockStyles  `json:"styles"`
	Columns []Block      `json:"columns,omitempty"`

	extra map[string]json.RawMessage
}

type BlockContent struct {
	Text       string `json:"text,omitempty"`
	HTML       string `json:"html,omitempty"`
	Src        string `json:"src,omitempty"`
	Alt        string `json:"alt,omitempty"`
	Href       string `json:"href,omitempty"`
	ButtonText string `json:"buttonText,omitempty"`
	Target     string `json:"target,omitempty"`

	extra map[string]json.RawMessage
}

type BlockStyles struct {
	Color           string   `json:"color,omitempty"`
	BackgroundColor string   `json:"backgroundColor,omitempty"`
	FontSize        string   `json:"fontSize,omitempty"`
	FontWeight      string   `json:"fontWeight,omitempty"`
	FontFamily      string   `json:"fontFamily,omitempty"`
	TextAlign       string   `json:"textAlign,omitempty"`
	Padding         *Spacing `json:"padding,omitempty"`
	Margin          *Spacing `json:"margin,omitempty"`
	BorderRadius    string   `json:"borderRadius,omitempty"`
	Border          string   `json:"border,omitempty"`
	Width           string   `json:"width,omitempty"`
	Height          string   `json:"height,omitempty"`
	LineHeight      string   `json:"lineHeight,omitempty"`

	extra map[string]json.RawMessage
}

// Spacing is a CSS box in pixels. Nil sides are absent in the document.
type Spacing struct {
	Top    *float64 `json:"top,omitempty"`
	Right  *float64 `json:"right,omitempty"`
	Bottom *float64 `json:"bottom,omitempty"`
	Left   *float64 `json:"left,omitempty"`
}

type Settings struct {
	BackgroundColor string  `json:"backgroundColor"`
	FontFamily      string  `json:"fontFamily"`
	ContainerWidth  int     `json:"containerWidth"`
	Padding         Spacing `json:"padding"`
	TextColor       string  `json:"textColor,omitempty"`
	LinkColor       string  `json:"linkColor,omitempty"`
	ButtonColor     string  `json:"buttonColor,omitempty"`
	ButtonTextColor string  `json:"buttonTextColor,omitempty"`
}

// DefaultSettings mirrors what the editor creates for a new template.
func DefaultSettings() Settings {
	twenty := 20.0
	return Settings{
		BackgroundColor: "#f4f4f4",
		FontFamily:      "Arial, sans-serif",
		ContainerWidth:  600,
		Padding:         Spacing{Top: &twenty, Right: &twenty, Bottom: &twenty, Left: &twenty},
	}
}

// WithDefaults fills unset fields from DefaultSettings.
func (s Settings) WithDefaults() Settings {
	d := DefaultSettings()
	if s.BackgroundColor == "" {
		s.BackgroundColor = d.BackgroundColor
	}
	if s.FontFamily == "" {
		s.FontFamily = d.FontFamily
	}
	if s.ContainerWidth <= 0 {
		s.ContainerWidth = d.ContainerWidth
	}
	if s.Padding.Top == nil && s.Padding.Right == nil && s.Padding.Bottom == nil && s.Padding.Left == nil {
		s.Padding = d.Padding
	}
	return s
}

type blockAlias Block

func (b *Block) UnmarshalJSON(data []byte) error {
	var a blockAlias
	extra, err := unmarshalWithExtra(data, &a, "id", "type", "order", "content", "styles", "columns")
	if err != nil {
		return err
	}
	*b = Block(a)
	b.extra = extra
	return nil
}

func (b Block) MarshalJSON() ([]byte, error) {
	return marshalWithExtra(blockAlias(b), b.extra)
}

type contentAlias BlockContent

func (c *BlockContent) UnmarshalJSON(data []byte) error {
	var a contentAlias
	extra, err := unmarshalWithExtra(data, &a, "text", "html", "src", "alt", "href", "buttonText", "target")
	if err != nil {
		return err
	}
	*c = BlockContent(a)
	c.extra = extra
	return nil
}

func (c BlockContent) MarshalJSON() ([]byte, error) {
	return marshalWithExtra(contentAlias(c), c.extra)
}

type stylesAlias BlockStyles

func (s *BlockStyles) UnmarshalJSON(data []byte) error {
	var a stylesAlias
	extra, err := unmarshalWithExtra(data, &a,
		"color", "backgroundColor", "fontSize", "fontWeight", "fontFamily", "textAlign",
		"padding", "margin", "borderRadius", "border", "width", "height", "lineHeight")
	if err != nil {
		return err
	}
	*s = BlockStyles(a)
	s.extra = extra
	return nil
}

func (s BlockStyles) MarshalJSON() ([]byte, error) {
	return marshalWithExtra(stylesAlias(s), s.extra)
}

// unmarshalWithExtra decodes data into v and returns the keys v does not know.
func unmarshalWithExtra(data []byte, v interface{}, known ...string) (map[string]json.RawMessage, error) {
	if err := json.Unmarshal(data, v); err != nil {
		return nil, err
	}

	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	for _, k := range known {
		delete(all, k)
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all, nil
}

func marshalWithExtra(v interface{}, extra map[string]json.RawMessage) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil || len(extra) == 0 {
		return data, err
	}

	var merged map[string]json.RawMessage
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, err
	}
	for k, raw := range extra {
		if _, ok := merged[k]; !ok {
			merged[k] = raw
		}
	}
	return json.Marshal(merged)
}

// Value implements the driver.Valuer interface for Blocks
func (b Blocks) Value() (driver.Value, error) {
	if b == nil {
		return "[]", nil
	}
	data, err := json.Marshal([]Block(b))
	return string(data), err
}

// Scan implements the sql.Scanner interface for Blocks
func (b *Blocks) Scan(value interface{}) error {
	data, err := scanBytes(value)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		*b = nil
		return nil
	}
	return json.Unmarshal(data, (*[]Block)(b))
}

// Value implements the driver.Valuer interface for Settings
func (s Settings) Value() (driver.Value, error) {
	data, err := json.Marshal(s)
	return string(data), err
}

// Scan implements the sql.Scanner interface for Settings
func (s *Settings) Scan(value interface{}) error {
	data, err := scanBytes(value)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		*s = Settings{}
		return nil
	}
	return json.Unmarshal(data, s)
}

// sqlite hands TEXT columns back as string or []byte depending on the column
// declaration; postgres json columns come back as []byte.
func scanBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, errors.New("type assertion to []byte failed")
	}
}
