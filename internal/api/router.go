package api

import (
	"context"
	"net/http"

	apiContext "payhook/internal/api/context"
	"payhook/internal/api/handlers"
	"payhook/internal/api/middleware"
	"payhook/internal/pkg/errors"

	"github.com/julienschmidt/httprouter"
)

type Dependencies struct {
	WebhookHandler  *handlers.WebhookHandler
	LinkHandler     *handlers.LinkHandler
	TemplateHandler *handlers.TemplateHandler
	QueueHandler    *handlers.QueueHandler
	HealthHandler   *handlers.HealthHandler
	RateLimiter     *middleware.RateLimiter
}

// receiverMethods covers every standard method a body can arrive with. The
// method is recorded, never validated.
var receiverMethods = []string{
	http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
	http.MethodPatch, http.MethodDelete, http.MethodOptions,
}

func NewRouter(deps *Dependencies) http.Handler {
	router := httprouter.New()
	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Route not found", nil)
	})

	// Public webhook receiver. It throttles on its own so refusals are logged.
	receive := wrap(deps.WebhookHandler.Receive)
	for _, method := range receiverMethods {
		router.Handle(method, "/webhook/payment/:hash", receive)
	}
	router.GET("/webhook/payment/:hash/test",
		chain(deps.WebhookHandler.Test, deps.RateLimiter.Handle))

	router.GET("/health", wrap(deps.HealthHandler.Check))

	// Operator endpoints
	router.GET("/api/v1/queue/stats", wrap(deps.QueueHandler.Stats))
	router.POST("/api/v1/email-templates/:id/preview", wrap(deps.TemplateHandler.Preview))
	router.GET("/api/v1/webhook-links/:hash/qr", wrap(deps.LinkHandler.GetQRCode))

	return middleware.Logging(router)
}

// Helper function to chain middlewares
func chain(handler http.HandlerFunc, middlewares ...func(http.HandlerFunc) http.HandlerFunc) httprouter.Handle {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return wrap(handler)
}

// Convert http.HandlerFunc to httprouter.Handle
func wrap(handler http.HandlerFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		ctx := context.WithValue(r.Context(), apiContext.Params, ps)
		handler(w, r.WithContext(ctx))
	}
}
