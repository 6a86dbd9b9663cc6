package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	apiContext "payhook/internal/api/context"
	"payhook/internal/pkg/errors"
	"payhook/internal/platform/models"

	"github.com/rs/zerolog/log"
)

type TemplateFinder interface {
	Find(ctx context.Context, id, companyID int64) (*models.EmailTemplate, error)
}

type Previewer interface {
	Preview(tpl *models.EmailTemplate, overrides map[string]string) (string, string, error)
}

type TemplateHandler struct {
	templates TemplateFinder
	renderer  Previewer
}

func NewTemplateHandler(templates TemplateFinder, renderer Previewer) *TemplateHandler {
	return &TemplateHandler{templates: templates, renderer: renderer}
}

// Preview renders a stored template with sample data. An optional JSON body
// {"variables": {...}} overrides individual sample values.
func (h *TemplateHandler) Preview(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(apiContext.ParamsFrom(r.Context()).ByName("id"), 10, 64)
	if err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid template id", nil)
		return
	}
	companyID, err := strconv.ParseInt(r.URL.Query().Get("company_id"), 10, 64)
	if err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "company_id is required", nil)
		return
	}

	var req struct {
		Variables map[string]string `json:"variables"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	tpl, err := h.templates.Find(r.Context(), id, companyID)
	if err != nil {
		log.Error().Err(err).Int64("template_id", id).Msg("failed to load template")
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to load template", nil)
		return
	}
	if tpl == nil {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Template not found", nil)
		return
	}

	html, subject, err := h.renderer.Preview(tpl, req.Variables)
	if err != nil {
		log.Warn().Err(err).Int64("template_id", id).Msg("template preview failed")
		errors.WriteError(w, http.StatusUnprocessableEntity, errors.ErrCodeUnprocessable, "Template could not be rendered", nil)
		return
	}

	errors.WriteJSON(w, http.StatusOK, map[string]string{
		"subject": subject,
		"html":    html,
	})
}
