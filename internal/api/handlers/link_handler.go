package handlers

import (
	stderrors "errors"
	"net/http"
	"strconv"

	apiContext "payhook/internal/api/context"
	"payhook/internal/engine/links"
	"payhook/internal/pkg/errors"

	"github.com/rs/zerolog/log"
)

type LinkHandler struct {
	links LinkLookup
}

func NewLinkHandler(links LinkLookup) *LinkHandler {
	return &LinkHandler{links: links}
}

// GetQRCode serves the link's webhook URL as a PNG. ?size= sets the edge in pixels.
func (h *LinkHandler) GetQRCode(w http.ResponseWriter, r *http.Request) {
	hash := apiContext.ParamsFrom(r.Context()).ByName("hash")

	size := 0
	if raw := r.URL.Query().Get("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "size must be a number", nil)
			return
		}
		size = n
	}

	link, err := h.links.FindByHash(r.Context(), hash)
	if err != nil {
		log.Error().Err(err).Str("hash", hash).Msg("failed to load webhook link")
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to load webhook link", nil)
		return
	}
	if link == nil {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Webhook link not found", nil)
		return
	}

	png, err := links.QRCode(link, size)
	if err != nil {
		if stderrors.Is(err, links.ErrInvalidQRSize) {
			errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, err.Error(), nil)
			return
		}
		log.Error().Err(err).Str("hash", hash).Msg("failed to encode QR code")
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to generate QR code", nil)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}
