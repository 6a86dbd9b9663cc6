// Package dispatch turns one inbound payment webhook into exactly one of four
// outcomes (processed, not found, target inactive, processing error) and
// records exactly one dispatch log entry for it. Deliveries the transport
// refuses before processing (throttled, oversized, unreadable) are recorded
// here too.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"payhook/internal/engine/extractor"
	"payhook/internal/engine/flows"
	"payhook/internal/engine/scheduler"
	apierrors "payhook/internal/pkg/errors"
	"payhook/internal/platform/models"

	"github.com/rs/zerolog/log"
)

var (
	ErrNotFound        = errors.New("webhook link not found")
	ErrTargetInactive  = errors.New("link target inactive")
	ErrRateLimited     = errors.New("rate limit exceeded")
	ErrPayloadTooLarge = errors.New("payload too large")
	ErrUnreadableBody  = errors.New("request body could not be read")
)

// Rejection is why the transport refused a delivery without processing it.
type Rejection int

const (
	RateLimited Rejection = iota
	PayloadTooLarge
	UnreadableBody
)

const unknownPlatform = "unknown"

type LinkFinder interface {
	FindActiveByHash(ctx context.Context, hash string) (*models.WebhookLink, error)
}

type CounterStore interface {
	IncrementCounters(ctx context.Context, id int64, success bool, at time.Time) error
}

type TemplateFinder interface {
	FindActive(ctx context.Context, id, companyID int64) (*models.EmailTemplate, error)
}

type FlowFinder interface {
	FindActive(ctx context.Context, id, companyID int64) (*models.Flow, error)
}

type FlowTrigger interface {
	Trigger(ctx context.Context, flow *models.Flow, vars map[string]string) (*flows.Execution, error)
}

type Renderer interface {
	Render(tpl *models.EmailTemplate, vars map[string]string) (string, error)
	Subject(subject string, vars map[string]string) string
}

type EmailScheduler interface {
	Schedule(ctx context.Context, job *models.EmailJob, settings models.EmailSettings) (*scheduler.Result, error)
}

type LogStore interface {
	Append(ctx context.Context, entry *models.DispatchLogEntry) error
}

// Deps are the collaborators a Dispatcher needs. All are required.
type Deps struct {
	Links     LinkFinder
	Counters  CounterStore
	Templates TemplateFinder
	Flows     FlowFinder
	Trigger   FlowTrigger
	Renderer  Renderer
	Scheduler EmailScheduler
	Logs      LogStore
}

type Options struct {
	CompanyName string
	// Sender fills in a link's email settings when it has none.
	Sender models.EmailSettings
}

type Request struct {
	Hash      string
	Body      []byte
	Method    string
	IPAddress string
	UserAgent string
}

// Outcome is what the transport writes back: a status and a JSON body. Err
// is the cause of a non-200 outcome and is never sent to the caller.
type Outcome struct {
	Status int
	Body   interface{}
	Err    error
}

type SuccessBody struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

type EmailResult struct {
	EmailScheduled bool      `json:"emailScheduled"`
	ScheduledFor   time.Time `json:"scheduledFor"`
	RecipientEmail string    `json:"recipientEmail"`
	Subject        string    `json:"subject"`
	JobID          string    `json:"jobId"`
}

type FlowResult struct {
	FlowTriggered   bool   `json:"flowTriggered"`
	EventType       string `json:"eventType"`
	FlowExecutionID string `json:"flowExecutionId"`
	TicketID        string `json:"ticketId"`
}

type Dispatcher struct {
	deps  Deps
	opts  Options
	clock func() time.Time
}

func New(deps Deps, opts Options) *Dispatcher {
	return &Dispatcher{deps: deps, opts: opts, clock: time.Now}
}

// result is the decided outcome before it is recorded.
type result struct {
	status        int
	eventType     string
	flowTriggered bool
	errorMessage  string
	err           error
	body          interface{}
}

// Dispatch never returns an error: every failure becomes a 404, 422 or 500
// outcome. Internal detail goes to the log entry and zerolog only.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (out *Outcome) {
	start := d.clock()
	var link *models.WebhookLink

	defer func() {
		if p := recover(); p != nil {
			log.Error().Interface("panic", p).Str("hash", req.Hash).Msg("webhook dispatch panicked")
			res := processingError(fmt.Errorf("panic: %v", p))
			out = d.record(ctx, req, link, res, start)
		}
	}()

	link, err := d.deps.Links.FindActiveByHash(ctx, req.Hash)
	if err != nil {
		return d.record(ctx, req, nil, processingError(fmt.Errorf("link lookup: %w", err)), start)
	}
	if link == nil {
		return d.record(ctx, req, nil, notFound(req.Hash), start)
	}

	var res *result
	if link.ActionType == models.ActionEmail {
		res = d.emailPath(ctx, req, link)
	} else {
		res = d.flowPath(ctx, req, link)
	}
	return d.record(ctx, req, link, res, start)
}

// Reject records a delivery refused before processing. The link, when the
// hash names an active one, is attributed and counted as a failed request.
func (d *Dispatcher) Reject(ctx context.Context, req Request, reason Rejection) *Outcome {
	start := d.clock()

	link, err := d.deps.Links.FindActiveByHash(ctx, req.Hash)
	if err != nil {
		log.Warn().Err(err).Str("hash", req.Hash).Msg("link lookup failed for rejected webhook")
		link = nil
	}
	return d.record(ctx, req, link, rejected(reason), start)
}

func (d *Dispatcher) emailPath(ctx context.Context, req Request, link *models.WebhookLink) *result {
	if link.EmailTemplateID == nil {
		return targetInactive(link.ActionType)
	}
	tpl, err := d.deps.Templates.FindActive(ctx, *link.EmailTemplateID, link.CompanyID)
	if err != nil {
		return processingError(fmt.Errorf("template lookup: %w", err))
	}
	if tpl == nil {
		return targetInactive(link.ActionType)
	}

	vars, event := extractor.Extract(link.Platform, req.Body)
	recipient, err := extractor.RequireEmail(vars)
	if err != nil {
		return processingError(err)
	}

	vars = d.enrich(vars, link, event)

	html, err := d.deps.Renderer.Render(tpl, vars)
	if err != nil {
		return processingError(err)
	}
	subject := d.deps.Renderer.Subject(tpl.Subject, vars)

	job := &models.EmailJob{
		CompanyID:     link.CompanyID,
		WebhookLinkID: link.ID,
		TemplateID:    tpl.ID,
		To:            recipient,
		RecipientName: vars[extractor.FieldCustomerName],
		Subject:       subject,
		HTML:          html,
		Variables:     vars,
		Metadata: models.JobMetadata{
			Platform:    link.Platform,
			EventType:   event,
			IPAddress:   req.IPAddress,
			UserAgent:   req.UserAgent,
			ProcessedAt: d.clock().Unix(),
		},
	}

	scheduled, err := d.deps.Scheduler.Schedule(ctx, job, d.emailSettings(link))
	if err != nil {
		return processingError(err)
	}

	return success(event, false, EmailResult{
		EmailScheduled: true,
		ScheduledFor:   scheduled.ScheduledFor,
		RecipientEmail: recipient,
		Subject:        subject,
		JobID:          scheduled.JobID,
	})
}

func (d *Dispatcher) flowPath(ctx context.Context, req Request, link *models.WebhookLink) *result {
	if link.FlowID == nil {
		return targetInactive(link.ActionType)
	}
	flow, err := d.deps.Flows.FindActive(ctx, *link.FlowID, link.CompanyID)
	if err != nil {
		return processingError(fmt.Errorf("flow lookup: %w", err))
	}
	if flow == nil {
		return targetInactive(link.ActionType)
	}

	vars, event := extractor.Extract(link.Platform, req.Body)

	exec, err := d.deps.Trigger.Trigger(ctx, flow, vars)
	if err != nil {
		return processingError(err)
	}

	return success(event, true, FlowResult{
		FlowTriggered:   true,
		EventType:       event,
		FlowExecutionID: exec.FlowExecutionID,
		TicketID:        exec.TicketID,
	})
}

// enrich adds the link context variables templates can reference.
func (d *Dispatcher) enrich(vars extractor.Variables, link *models.WebhookLink, event string) extractor.Variables {
	out := vars.Clone()
	out["webhook_platform"] = link.Platform
	out["webhook_event_type"] = event
	out["webhook_link_name"] = link.Name
	out["company_name"] = d.opts.CompanyName
	return out
}

func (d *Dispatcher) emailSettings(link *models.WebhookLink) models.EmailSettings {
	if link.EmailSettings == nil {
		return d.opts.Sender
	}
	s := *link.EmailSettings
	if s.FromEmail == "" {
		s.FromEmail = d.opts.Sender.FromEmail
	}
	if s.FromName == "" {
		s.FromName = d.opts.Sender.FromName
	}
	if s.ReplyTo == "" {
		s.ReplyTo = s.FromEmail
	}
	return s
}

// record writes the counters and the single log entry for res. Failures here
// are logged and never change the outcome.
func (d *Dispatcher) record(ctx context.Context, req Request, link *models.WebhookLink, res *result, start time.Time) *Outcome {
	now := d.clock()

	entry := &models.DispatchLogEntry{
		Platform:      unknownPlatform,
		EventType:     res.eventType,
		RawPayload:    rawPayload(req.Body),
		FlowTriggered: res.flowTriggered,
		HTTPStatus:    res.status,
		ErrorMessage:  res.errorMessage,
		IPAddress:     req.IPAddress,
		UserAgent:     req.UserAgent,
	}

	if link != nil {
		entry.WebhookLinkID = &link.ID
		entry.CompanyID = &link.CompanyID
		entry.Platform = link.Platform

		success := res.status == http.StatusOK
		if err := d.deps.Counters.IncrementCounters(ctx, link.ID, success, now); err != nil {
			log.Error().Err(err).Int64("link_id", link.ID).Msg("failed to update webhook counters")
		}
	}

	entry.ResponseTimeMs = d.clock().Sub(start).Milliseconds()
	if err := d.deps.Logs.Append(ctx, entry); err != nil {
		log.Error().Err(err).Str("hash", req.Hash).Msg("failed to write dispatch log")
	}

	ev := log.Info()
	if res.status >= http.StatusInternalServerError {
		ev = log.Error().Str("error", res.errorMessage)
	} else if res.status != http.StatusOK {
		ev = log.Warn()
	}
	ev.Str("hash", req.Hash).
		Str("method", req.Method).
		Str("platform", entry.Platform).
		Str("event_type", res.eventType).
		Int("status", res.status).
		Int64("response_time_ms", entry.ResponseTimeMs).
		Msg("webhook dispatched")

	return &Outcome{Status: res.status, Body: res.body, Err: res.err}
}

// rawPayload keeps JSON bodies as they are and stores anything else as a
// JSON string so the log column always holds valid JSON.
func rawPayload(body []byte) json.RawMessage {
	if len(body) == 0 {
		return nil
	}
	if json.Valid(body) {
		return json.RawMessage(body)
	}
	quoted, _ := json.Marshal(string(body))
	return quoted
}

func success(event string, flowTriggered bool, data interface{}) *result {
	return &result{
		status:        http.StatusOK,
		eventType:     event,
		flowTriggered: flowTriggered,
		body: SuccessBody{
			Success: true,
			Message: "Webhook processed successfully",
			Data:    data,
		},
	}
}

func notFound(hash string) *result {
	return &result{
		status:       http.StatusNotFound,
		eventType:    models.EventWebhookNotFound,
		errorMessage: fmt.Sprintf("Webhook link não encontrado: %s", hash),
		err:          ErrNotFound,
		body: apierrors.ErrorResponse{
			Error:   "Webhook not found",
			Message: "O webhook solicitado não foi encontrado ou está inativo",
		},
	}
}

func targetInactive(actionType string) *result {
	if actionType == models.ActionEmail {
		return &result{
			status:       http.StatusUnprocessableEntity,
			eventType:    models.EventEmailTemplateInactive,
			errorMessage: "Template de email associado está inativo ou não configurado",
			err:          ErrTargetInactive,
			body: apierrors.ErrorResponse{
				Error:   "Email template inactive",
				Message: "O template de email associado a este webhook está inativo ou não configurado",
			},
		}
	}
	return &result{
		status:       http.StatusUnprocessableEntity,
		eventType:    models.EventFlowInactive,
		errorMessage: "Flow associado está inativo",
		err:          ErrTargetInactive,
		body: apierrors.ErrorResponse{
			Error:   "Flow inactive",
			Message: "O flow associado a este webhook está inativo",
		},
	}
}

func processingError(err error) *result {
	return &result{
		status:       http.StatusInternalServerError,
		eventType:    models.EventProcessingError,
		errorMessage: err.Error(),
		err:          err,
		body: apierrors.ErrorResponse{
			Error:   "Internal server error",
			Message: "Erro ao processar webhook",
		},
	}
}

func rejected(reason Rejection) *result {
	switch reason {
	case PayloadTooLarge:
		return &result{
			status:       http.StatusRequestEntityTooLarge,
			eventType:    models.EventPayloadTooLarge,
			errorMessage: "Payload excede o tamanho máximo permitido",
			err:          ErrPayloadTooLarge,
			body: apierrors.ErrorResponse{
				Error:   "Payload too large",
				Message: "O corpo da requisição excede o tamanho máximo permitido",
			},
		}
	case UnreadableBody:
		return &result{
			status:       http.StatusBadRequest,
			eventType:    models.EventInvalidBody,
			errorMessage: "Corpo da requisição ilegível",
			err:          ErrUnreadableBody,
			body: apierrors.ErrorResponse{
				Error:   "Invalid request body",
				Message: "Não foi possível ler o corpo da requisição",
			},
		}
	}
	return &result{
		status:       http.StatusTooManyRequests,
		eventType:    models.EventRateLimited,
		errorMessage: "Limite de requisições excedido",
		err:          ErrRateLimited,
		body: apierrors.ErrorResponse{
			Error:   "Too many requests",
			Message: "Limite de requisições excedido, tente novamente mais tarde",
		},
	}
}
