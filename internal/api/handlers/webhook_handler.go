package handlers

import (
	"context"
	stderrors "errors"
	"io"
	"net/http"

	apiContext "payhook/internal/api/context"
	"payhook/internal/api/middleware"
	"payhook/internal/engine/dispatch"
	"payhook/internal/pkg/errors"
	"payhook/internal/platform/models"

	"github.com/rs/zerolog/log"
)

type Dispatcher interface {
	Dispatch(ctx context.Context, req dispatch.Request) *dispatch.Outcome
	Reject(ctx context.Context, req dispatch.Request, reason dispatch.Rejection) *dispatch.Outcome
}

// LinkLookup finds a link by hash whether or not it is active.
type LinkLookup interface {
	FindByHash(ctx context.Context, hash string) (*models.WebhookLink, error)
}

// Limiter throttles deliveries per client.
type Limiter interface {
	AllowRequest(r *http.Request) bool
}

type WebhookOptions struct {
	MaxBodyBytes int64
	// Limiter is optional; nil accepts every delivery.
	Limiter Limiter
	Proxies *middleware.TrustedProxies
}

type WebhookHandler struct {
	dispatcher   Dispatcher
	links        LinkLookup
	limiter      Limiter
	proxies      *middleware.TrustedProxies
	maxBodyBytes int64
}

func NewWebhookHandler(dispatcher Dispatcher, links LinkLookup, opts WebhookOptions) *WebhookHandler {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}
	return &WebhookHandler{
		dispatcher:   dispatcher,
		links:        links,
		limiter:      opts.Limiter,
		proxies:      opts.Proxies,
		maxBodyBytes: opts.MaxBodyBytes,
	}
}

// Receive accepts a platform notification on any method. The body is passed
// through untouched; whatever it holds, the dispatcher decides the outcome.
// Throttled, oversized and unreadable deliveries are refused but still go
// through the dispatcher so each one leaves a log entry.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	req := dispatch.Request{
		Hash:      apiContext.ParamsFrom(r.Context()).ByName("hash"),
		Method:    r.Method,
		IPAddress: h.proxies.ClientIP(r),
		UserAgent: r.UserAgent(),
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		reason := dispatch.UnreadableBody
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			reason = dispatch.PayloadTooLarge
		} else {
			log.Warn().Err(err).Str("hash", req.Hash).Msg("failed to read webhook body")
		}
		h.write(w, h.dispatcher.Reject(r.Context(), req, reason))
		return
	}
	req.Body = body

	if h.limiter != nil && !h.limiter.AllowRequest(r) {
		w.Header().Set("Retry-After", "60")
		h.write(w, h.dispatcher.Reject(r.Context(), req, dispatch.RateLimited))
		return
	}

	h.write(w, h.dispatcher.Dispatch(r.Context(), req))
}

func (h *WebhookHandler) write(w http.ResponseWriter, out *dispatch.Outcome) {
	errors.WriteJSON(w, out.Status, out.Body)
}

type webhookSummary struct {
	Name         string `json:"name"`
	Platform     string `json:"platform"`
	Active       bool   `json:"active"`
	ActionType   string `json:"actionType"`
	Target       string `json:"target,omitempty"`
	TargetActive bool   `json:"targetActive"`
}

// Test reports how a hash is configured without dispatching anything.
func (h *WebhookHandler) Test(w http.ResponseWriter, r *http.Request) {
	hash := apiContext.ParamsFrom(r.Context()).ByName("hash")

	link, err := h.links.FindByHash(r.Context(), hash)
	if err != nil {
		log.Error().Err(err).Str("hash", hash).Msg("failed to load webhook link")
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Erro ao consultar webhook", nil)
		return
	}
	if link == nil {
		errors.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "Webhook not found"})
		return
	}

	summary := webhookSummary{
		Name:       link.Name,
		Platform:   link.Platform,
		Active:     link.Active,
		ActionType: link.ActionType,
	}
	if link.Target != nil {
		summary.Target = link.Target.Name
		summary.TargetActive = link.Target.Active
	}

	errors.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Webhook endpoint is working",
		"webhook": summary,
	})
}
