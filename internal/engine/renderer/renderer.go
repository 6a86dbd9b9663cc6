// Package renderer turns stored block documents into email-client-safe HTML.
package renderer

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"payhook/internal/platform/models"

	"github.com/rs/zerolog/log"
)

var ErrRender = errors.New("failed to render template")

type Renderer struct {
	clock    func() time.Time
	location *time.Location
}

type Option func(*Renderer)

// WithClock pins the time used for the date, time, year and greeting variables.
func WithClock(clock func() time.Time) Option {
	return func(r *Renderer) { r.clock = clock }
}

func WithLocation(loc *time.Location) Option {
	return func(r *Renderer) {
		if loc != nil {
			r.location = loc
		}
	}
}

func New(opts ...Option) *Renderer {
	r := &Renderer{clock: time.Now, location: time.UTC}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// LoadLocation resolves a configured timezone name, falling back to UTC.
func LoadLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Warn().Err(err).Str("timezone", name).Msg("unknown timezone, using UTC")
		return time.UTC
	}
	return loc
}

// Render composes the template's blocks into a full HTML document and
// substitutes vars. Output is byte-identical for identical inputs and clock.
// A panic while rendering malformed data is returned as ErrRender.
func (r *Renderer) Render(tpl *models.EmailTemplate, vars map[string]string) (out string, err error) {
	defer func() {
		if p := recover(); p != nil {
			out, err = "", fmt.Errorf("%w: %v", ErrRender, p)
		}
	}()

	if tpl == nil {
		return "", fmt.Errorf("%w: nil template", ErrRender)
	}

	var b strings.Builder
	writeShellStart(&b, tpl.Settings.WithDefaults())
	for _, n := range compileAll(tpl.Blocks, 0) {
		n.render(&b)
	}
	b.WriteString(shellEnd)

	return Substitute(b.String(), r.Variables(vars)), nil
}

// Subject substitutes vars into a subject line without HTML escaping.
func (r *Renderer) Subject(subject string, vars map[string]string) string {
	return SubstituteText(subject, r.Variables(vars))
}

// Variables merges the system variables under vars. Caller values win.
func (r *Renderer) Variables(vars map[string]string) map[string]string {
	merged := SystemVariables(r.clock().In(r.location))
	for k, v := range vars {
		merged[k] = v
	}
	return merged
}

// SystemVariables are date (dd/mm/yyyy), time (HH:MM:SS), year and a
// Portuguese greeting for the hour of now.
func SystemVariables(now time.Time) map[string]string {
	return map[string]string{
		"date":     now.Format("02/01/2006"),
		"time":     now.Format("15:04:05"),
		"year":     now.Format("2006"),
		"greeting": Greeting(now.Hour()),
	}
}

func Greeting(hour int) string {
	switch {
	case hour >= 6 && hour < 12:
		return "Bom dia"
	case hour >= 12 && hour < 18:
		return "Boa tarde"
	default:
		return "Boa noite"
	}
}

// PreviewVariables fill every canonical variable with a realistic sample.
var PreviewVariables = map[string]string{
	"customer_name":      "João Silva",
	"customer_email":     "joao.silva@example.com",
	"customer_phone":     "11999999999",
	"customer_cpf":       "123.456.789-00",
	"customer_document":  "123.456.789-00",
	"product_name":       "Produto Exemplo",
	"product_id":         "PROD123",
	"transaction_id":     "TRX987654321",
	"transaction_amount": "197,00",
	"transaction_status": "approved",
	"transaction_date":   "01/01/2025 10:00:00",
	"payment_method":     "credit_card",
	"event_type":         "order_approved",
	"webhook_platform":   "kiwify",
	"webhook_event_type": "order_approved",
	"webhook_link_name":  "Vendas Kiwify",
	"company_name":       "Nossa Empresa",
}

// Preview renders tpl with sample data; overrides replace individual samples.
func (r *Renderer) Preview(tpl *models.EmailTemplate, overrides map[string]string) (string, string, error) {
	vars := make(map[string]string, len(PreviewVariables)+len(overrides))
	for k, v := range PreviewVariables {
		vars[k] = v
	}
	for k, v := range overrides {
		vars[k] = v
	}

	html, err := r.Render(tpl, vars)
	if err != nil {
		return "", "", err
	}
	return html, r.Subject(tpl.Subject, vars), nil
}
