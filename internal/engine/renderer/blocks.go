package renderer

import (
	"fmt"
	"html"
	"sort"
	"strconv"
	"strings"

	"payhook/internal/platform/models"
)

// Columns nested deeper than this are dropped.
const maxColumnDepth = 8

// node is one compiled block. Every kind writes complete table rows.
type node interface {
	render(b *strings.Builder)
}

// Heading text and button labels are editor markup and go out as authored.
type headingNode struct {
	text   string
	styles models.BlockStyles
}

type textNode struct {
	html   string
	text   string
	styles models.BlockStyles
}

type imageNode struct {
	src    string
	alt    string
	styles models.BlockStyles
}

type buttonNode struct {
	label  string
	href   string
	target string
	styles models.BlockStyles
}

type dividerNode struct {
	styles models.BlockStyles
}

type spacerNode struct {
	height string
}

type htmlNode struct {
	html string
}

// columnsNode owns one list of child nodes per column.
type columnsNode struct {
	columns [][]node
}

// sortedBlocks orders blocks by Order without disturbing ties.
func sortedBlocks(blocks []models.Block) []models.Block {
	out := make([]models.Block, len(blocks))
	copy(out, blocks)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

func compileAll(blocks []models.Block, depth int) []node {
	var nodes []node
	for _, block := range sortedBlocks(blocks) {
		if n := compile(block, depth); n != nil {
			nodes = append(nodes, n)
		}
	}
	return nodes
}

// compile turns a stored block into its node. Unknown types, and images
// without a source, compile to nil and render nothing.
func compile(block models.Block, depth int) node {
	c, s := block.Content, block.Styles

	switch block.Type {
	case models.BlockHeading:
		return &headingNode{text: c.Text, styles: s}
	case models.BlockText:
		return &textNode{html: c.HTML, text: c.Text, styles: s}
	case models.BlockImage:
		if c.Src == "" {
			return nil
		}
		return &imageNode{src: c.Src, alt: c.Alt, styles: s}
	case models.BlockButton:
		return &buttonNode{label: c.ButtonText, href: c.Href, target: c.Target, styles: s}
	case models.BlockDivider:
		return &dividerNode{styles: s}
	case models.BlockSpacer:
		return &spacerNode{height: s.Height}
	case models.BlockHTML:
		return &htmlNode{html: c.HTML}
	case models.BlockColumns:
		if len(block.Columns) == 0 || depth >= maxColumnDepth {
			return nil
		}
		cols := make([][]node, len(block.Columns))
		for i, column := range block.Columns {
			cols[i] = compileAll(column.Columns, depth+1)
		}
		return &columnsNode{columns: cols}
	default:
		return nil
	}
}

func (n *headingNode) render(b *strings.Builder) {
	s := n.styles
	fmt.Fprintf(b, `
<tr>
  <td style="padding: %s; margin: %s;">
    <h2 style="margin: 0; font-size: %s; color: %s; text-align: %s; font-weight: %s; font-family: inherit; line-height: 1.4;">%s</h2>
  </td>
</tr>`,
		paddingStyle(s.Padding), marginStyle(s.Margin),
		or(s.FontSize, "24px"), or(s.Color, "#333333"), or(s.TextAlign, "left"), or(s.FontWeight, "bold"),
		n.text)
}

func (n *textNode) render(b *strings.Builder) {
	s := n.styles
	body := n.html
	if body == "" {
		body = html.EscapeString(n.text)
	}
	fmt.Fprintf(b, `
<tr>
  <td style="padding: %s; margin: %s;">
    <div style="font-size: %s; color: %s; text-align: %s; line-height: %s; font-family: inherit;">%s</div>
  </td>
</tr>`,
		paddingStyle(s.Padding), marginStyle(s.Margin),
		or(s.FontSize, "16px"), or(s.Color, "#555555"), or(s.TextAlign, "left"), or(s.LineHeight, "1.6"),
		body)
}

func (n *imageNode) render(b *strings.Builder) {
	s := n.styles
	fmt.Fprintf(b, `
<tr>
  <td align="%s" style="padding: %s;">
    <img src="%s" alt="%s" width="%s" height="%s" style="display: block; border: 0; max-width: 100%%; border-radius: %s;" />
  </td>
</tr>`,
		or(s.TextAlign, "center"), paddingStyle(s.Padding),
		html.EscapeString(n.src), html.EscapeString(n.alt), or(s.Width, "100%"), or(s.Height, "auto"),
		or(s.BorderRadius, "0"))
}

func (n *buttonNode) render(b *strings.Builder) {
	s := n.styles
	bg := or(s.BackgroundColor, "#007bff")
	radius := or(s.BorderRadius, "4px")

	padding := "12px 24px 12px 24px"
	if s.Padding != nil {
		padding = boxStyle(s.Padding)
	}

	fmt.Fprintf(b, `
<tr>
  <td align="%s" style="padding: %s;">
    <table border="0" cellspacing="0" cellpadding="0">
      <tr>
        <td align="center" style="border-radius: %s;" bgcolor="%s">
          <a href="%s" target="%s" style="display: inline-block; padding: %s; font-family: inherit; font-size: %s; color: %s; text-decoration: none; border-radius: %s; background-color: %s;">%s</a>
        </td>
      </tr>
    </table>
  </td>
</tr>`,
		or(s.TextAlign, "center"), marginStyle(s.Margin),
		radius, bg,
		html.EscapeString(or(n.href, "#")), html.EscapeString(or(n.target, "_blank")),
		padding, or(s.FontSize, "16px"), or(s.Color, "#ffffff"), radius, bg,
		or(n.label, "Clique aqui"))
}

func (n *dividerNode) render(b *strings.Builder) {
	s := n.styles
	margin := s.Margin
	if margin == nil {
		twenty := 20.0
		margin = &models.Spacing{Top: &twenty, Bottom: &twenty}
	}
	fmt.Fprintf(b, `
<tr>
  <td style="padding: %s;">
    <table border="0" cellpadding="0" cellspacing="0" width="100%%">
      <tr>
        <td style="border-top: %s solid %s;"></td>
      </tr>
    </table>
  </td>
</tr>`,
		boxStyle(margin), or(s.Height, "1px"), or(s.Color, "#dddddd"))
}

func (n *spacerNode) render(b *strings.Builder) {
	h := or(n.height, "20px")
	fmt.Fprintf(b, `
<tr>
  <td style="height: %s; line-height: %s; font-size: 0;">&nbsp;</td>
</tr>`, h, h)
}

func (n *htmlNode) render(b *strings.Builder) {
	fmt.Fprintf(b, `
<tr>
  <td>
    %s
  </td>
</tr>`, n.html)
}

func (n *columnsNode) render(b *strings.Builder) {
	width := 100 / len(n.columns)

	b.WriteString(`
<tr><td><table border="0" cellpadding="0" cellspacing="0" width="100%"><tr>`)
	for _, column := range n.columns {
		fmt.Fprintf(b, `<td width="%d%%" valign="top"><table border="0" cellpadding="0" cellspacing="0" width="100%%">`, width)
		for _, child := range column {
			child.render(b)
		}
		b.WriteString(`</table></td>`)
	}
	b.WriteString(`</tr></table></td></tr>`)
}

func or(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func paddingStyle(p *models.Spacing) string {
	if p == nil {
		return "10px"
	}
	return boxStyle(p)
}

func marginStyle(m *models.Spacing) string {
	if m == nil {
		return "0"
	}
	return boxStyle(m)
}

// boxStyle renders a spacing box as "Tpx Rpx Bpx Lpx"; absent sides are 0.
func boxStyle(s *models.Spacing) string {
	return px(s.Top) + " " + px(s.Right) + " " + px(s.Bottom) + " " + px(s.Left)
}

func px(v *float64) string {
	if v == nil {
		return "0px"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64) + "px"
}
