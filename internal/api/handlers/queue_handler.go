package handlers

import (
	"context"
	"net/http"

	"payhook/internal/pkg/errors"
	"payhook/internal/platform/models"

	"github.com/rs/zerolog/log"
)

type QueueStatsReader interface {
	Stats(ctx context.Context) (models.QueueStats, error)
}

type QueueHandler struct {
	queue QueueStatsReader
}

func NewQueueHandler(queue QueueStatsReader) *QueueHandler {
	return &QueueHandler{queue: queue}
}

func (h *QueueHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.queue.Stats(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to read queue stats")
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to read queue stats", nil)
		return
	}
	errors.WriteJSON(w, http.StatusOK, stats)
}
