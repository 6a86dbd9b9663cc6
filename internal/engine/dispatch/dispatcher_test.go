package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"payhook/internal/engine/extractor"
	"payhook/internal/engine/flows"
	"payhook/internal/engine/renderer"
	"payhook/internal/engine/scheduler"
	apierrors "payhook/internal/pkg/errors"
	"payhook/internal/platform/models"
)

const testHash = "aabbccddeeff00112233445566778899aabbccdd"

type fakeLinks struct {
	link *models.WebhookLink
	err  error
}

func (f *fakeLinks) FindActiveByHash(ctx context.Context, hash string) (*models.WebhookLink, error) {
	if f.err != nil || f.link == nil || f.link.WebhookHash != hash {
		return nil, f.err
	}
	return f.link, nil
}

type counterCall struct {
	id      int64
	success bool
}

type fakeCounters struct {
	mu    sync.Mutex
	calls []counterCall
}

func (f *fakeCounters) IncrementCounters(ctx context.Context, id int64, success bool, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, counterCall{id, success})
	return nil
}

type fakeTemplates struct{ tpl *models.EmailTemplate }

func (f *fakeTemplates) FindActive(ctx context.Context, id, companyID int64) (*models.EmailTemplate, error) {
	if f.tpl == nil || f.tpl.ID != id || f.tpl.CompanyID != companyID || !f.tpl.Active {
		return nil, nil
	}
	return f.tpl, nil
}

type fakeFlows struct{ flow *models.Flow }

func (f *fakeFlows) FindActive(ctx context.Context, id, companyID int64) (*models.Flow, error) {
	if f.flow == nil || f.flow.ID != id || f.flow.CompanyID != companyID || !f.flow.Active {
		return nil, nil
	}
	return f.flow, nil
}

type fakeTrigger struct {
	vars map[string]string
	err  error
}

func (f *fakeTrigger) Trigger(ctx context.Context, flow *models.Flow, vars map[string]string) (*flows.Execution, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.vars = vars
	return &flows.Execution{FlowExecutionID: "exec-1", TicketID: "tk-1"}, nil
}

type fakeScheduler struct {
	job      *models.EmailJob
	settings models.EmailSettings
	err      error
}

func (f *fakeScheduler) Schedule(ctx context.Context, job *models.EmailJob, settings models.EmailSettings) (*scheduler.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.job, f.settings = job, settings
	return &scheduler.Result{JobID: "job-1", ScheduledFor: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}, nil
}

type fakeLogs struct {
	entries []*models.DispatchLogEntry
}

func (f *fakeLogs) Append(ctx context.Context, entry *models.DispatchLogEntry) error {
	f.entries = append(f.entries, entry)
	return nil
}

type panicRenderer struct{}

func (panicRenderer) Render(tpl *models.EmailTemplate, vars map[string]string) (string, error) {
	panic("bad block")
}

func (panicRenderer) Subject(subject string, vars map[string]string) string { return subject }

type fixture struct {
	links     *fakeLinks
	counters  *fakeCounters
	templates *fakeTemplates
	flows     *fakeFlows
	trigger   *fakeTrigger
	scheduler *fakeScheduler
	logs      *fakeLogs
	deps      Deps
}

func int64Ptr(v int64) *int64 { return &v }

func newFixture(link *models.WebhookLink) *fixture {
	f := &fixture{
		links:     &fakeLinks{link: link},
		counters:  &fakeCounters{},
		templates: &fakeTemplates{},
		flows:     &fakeFlows{},
		trigger:   &fakeTrigger{},
		scheduler: &fakeScheduler{},
		logs:      &fakeLogs{},
	}
	f.deps = Deps{
		Links:     f.links,
		Counters:  f.counters,
		Templates: f.templates,
		Flows:     f.flows,
		Trigger:   f.trigger,
		Renderer:  renderer.New(),
		Scheduler: f.scheduler,
		Logs:      f.logs,
	}
	return f
}

func (f *fixture) dispatcher() *Dispatcher {
	return New(f.deps, Options{
		CompanyName: "Loja Exemplo",
		Sender:      models.EmailSettings{DelayType: models.DelayImmediate, FromName: "Sistema", FromEmail: "noreply@example.com", ReplyTo: "noreply@example.com"},
	})
}

func emailLink() *models.WebhookLink {
	return &models.WebhookLink{
		ID: 10, CompanyID: 1, Name: "Vendas Kiwify", Platform: models.PlatformKiwify,
		ActionType: models.ActionEmail, EmailTemplateID: int64Ptr(5),
		EmailSettings: &models.EmailSettings{SendDelay: 2, DelayType: models.DelayHours, FromEmail: "loja@example.com"},
		WebhookHash:   testHash, Active: true,
	}
}

func flowLink() *models.WebhookLink {
	return &models.WebhookLink{
		ID: 11, CompanyID: 1, Name: "Vendas Hotmart", Platform: models.PlatformHotmart,
		ActionType: models.ActionFlow, FlowID: int64Ptr(7), WebhookHash: testHash, Active: true,
	}
}

const kiwifyPayload = `{"order_id":"o1","webhook_event_type":"order_approved","Customer":{"full_name":"Ana","email":"ana@example.com"},"Product":{"product_name":"Curso"}}`

func request(body string) Request {
	return Request{Hash: testHash, Body: []byte(body), Method: http.MethodPost, IPAddress: "10.0.0.1", UserAgent: "kiwify-hook"}
}

func (f *fixture) onlyEntry(t *testing.T) *models.DispatchLogEntry {
	t.Helper()
	if len(f.logs.entries) != 1 {
		t.Fatalf("Expected exactly one log entry, got %d", len(f.logs.entries))
	}
	return f.logs.entries[0]
}

func TestDispatch_NotFound(t *testing.T) {
	f := newFixture(nil)

	out := f.dispatcher().Dispatch(context.Background(), request(`{}`))

	if out.Status != http.StatusNotFound || !errors.Is(out.Err, ErrNotFound) {
		t.Fatalf("status = %d err = %v", out.Status, out.Err)
	}
	body := out.Body.(apierrors.ErrorResponse)
	if body.Error != "Webhook not found" {
		t.Errorf("Unexpected body: %+v", body)
	}

	entry := f.onlyEntry(t)
	if entry.EventType != models.EventWebhookNotFound || entry.HTTPStatus != 404 || entry.FlowTriggered {
		t.Errorf("Unexpected log entry: %+v", entry)
	}
	if entry.WebhookLinkID != nil || entry.Platform != "unknown" {
		t.Errorf("Not-found entry should carry no link: %+v", entry)
	}
	if len(f.counters.calls) != 0 {
		t.Error("Counters must not change for unknown hashes")
	}
}

func TestDispatch_TargetInactive(t *testing.T) {
	tests := []struct {
		name      string
		link      *models.WebhookLink
		setup     func(f *fixture)
		wantEvent string
		wantError string
	}{
		{
			name:      "email template inactive",
			link:      emailLink(),
			setup:     func(f *fixture) { f.templates.tpl = &models.EmailTemplate{ID: 5, CompanyID: 1, Active: false} },
			wantEvent: models.EventEmailTemplateInactive,
			wantError: "Email template inactive",
		},
		{
			name:      "email template owned by another company",
			link:      emailLink(),
			setup:     func(f *fixture) { f.templates.tpl = &models.EmailTemplate{ID: 5, CompanyID: 2, Active: true} },
			wantEvent: models.EventEmailTemplateInactive,
			wantError: "Email template inactive",
		},
		{
			name:      "flow inactive",
			link:      flowLink(),
			setup:     func(f *fixture) { f.flows.flow = &models.Flow{ID: 7, CompanyID: 1, Active: false} },
			wantEvent: models.EventFlowInactive,
			wantError: "Flow inactive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(tt.link)
			tt.setup(f)

			out := f.dispatcher().Dispatch(context.Background(), request(kiwifyPayload))

			if out.Status != http.StatusUnprocessableEntity || !errors.Is(out.Err, ErrTargetInactive) {
				t.Fatalf("status = %d err = %v", out.Status, out.Err)
			}
			if body := out.Body.(apierrors.ErrorResponse); body.Error != tt.wantError {
				t.Errorf("error = %q, want %q", body.Error, tt.wantError)
			}

			entry := f.onlyEntry(t)
			if entry.EventType != tt.wantEvent || entry.HTTPStatus != 422 {
				t.Errorf("Unexpected log entry: %+v", entry)
			}
			if len(f.counters.calls) != 1 || f.counters.calls[0].success {
				t.Errorf("Expected one failed counter update, got %+v", f.counters.calls)
			}
		})
	}
}

func TestDispatch_ProcessingErrors(t *testing.T) {
	activeTemplate := &models.EmailTemplate{ID: 5, CompanyID: 1, Active: true, Subject: "Olá"}

	tests := []struct {
		name    string
		link    *models.WebhookLink
		body    string
		setup   func(f *fixture)
		wantErr error
	}{
		{
			name:    "no recipient",
			link:    emailLink(),
			body:    `{"Customer":{"full_name":"Ana"}}`,
			setup:   func(f *fixture) { f.templates.tpl = activeTemplate },
			wantErr: extractor.ErrNoRecipient,
		},
		{
			name: "enqueue failure",
			link: emailLink(),
			body: kiwifyPayload,
			setup: func(f *fixture) {
				f.templates.tpl = activeTemplate
				f.scheduler.err = scheduler.ErrEnqueue
			},
			wantErr: scheduler.ErrEnqueue,
		},
		{
			name: "renderer panic",
			link: emailLink(),
			body: kiwifyPayload,
			setup: func(f *fixture) {
				f.templates.tpl = activeTemplate
				f.deps.Renderer = panicRenderer{}
			},
		},
		{
			name: "flow trigger failure",
			link: flowLink(),
			body: kiwifyPayload,
			setup: func(f *fixture) {
				f.flows.flow = &models.Flow{ID: 7, CompanyID: 1, Active: true}
				f.trigger.err = errors.New("flow engine down")
			},
		},
		{
			name:  "link lookup failure",
			link:  emailLink(),
			body:  kiwifyPayload,
			setup: func(f *fixture) { f.links.err = errors.New("database is locked") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(tt.link)
			tt.setup(f)

			out := f.dispatcher().Dispatch(context.Background(), request(tt.body))

			if out.Status != http.StatusInternalServerError {
				t.Fatalf("status = %d, want 500", out.Status)
			}
			if tt.wantErr != nil && !errors.Is(out.Err, tt.wantErr) {
				t.Errorf("err = %v, want %v", out.Err, tt.wantErr)
			}

			body := out.Body.(apierrors.ErrorResponse)
			if body.Error != "Internal server error" || body.Message != "Erro ao processar webhook" {
				t.Errorf("500 body must stay generic: %+v", body)
			}

			entry := f.onlyEntry(t)
			if entry.EventType != models.EventProcessingError || entry.HTTPStatus != 500 || entry.ErrorMessage == "" {
				t.Errorf("Unexpected log entry: %+v", entry)
			}
			for _, c := range f.counters.calls {
				if c.success {
					t.Error("Processing errors must not count as successful")
				}
			}
		})
	}
}

func TestDispatch_EmailSuccess(t *testing.T) {
	f := newFixture(emailLink())
	f.templates.tpl = &models.EmailTemplate{
		ID: 5, CompanyID: 1, Active: true,
		Subject: "Obrigado, {{customer_name}}",
		Blocks:  models.Blocks{{ID: "1", Type: models.BlockText, Content: models.BlockContent{Text: "{{product_name}} - {{company_name}}"}}},
	}

	out := f.dispatcher().Dispatch(context.Background(), request(kiwifyPayload))

	if out.Status != http.StatusOK {
		t.Fatalf("status = %d, err = %v", out.Status, out.Err)
	}
	data := out.Body.(SuccessBody).Data.(EmailResult)
	if !data.EmailScheduled || data.RecipientEmail != "ana@example.com" || data.Subject != "Obrigado, Ana" || data.JobID != "job-1" {
		t.Errorf("Unexpected result: %+v", data)
	}

	job := f.scheduler.job
	if job.To != "ana@example.com" || job.WebhookLinkID != 10 || job.TemplateID != 5 {
		t.Errorf("Unexpected job: %+v", job)
	}
	if job.Variables["webhook_link_name"] != "Vendas Kiwify" || job.Variables["company_name"] != "Loja Exemplo" {
		t.Errorf("Variables not enriched: %v", job.Variables)
	}
	if job.Metadata.IPAddress != "10.0.0.1" || job.Metadata.EventType != "order_approved" {
		t.Errorf("Unexpected metadata: %+v", job.Metadata)
	}
	if f.scheduler.settings.ReplyTo != "loja@example.com" || f.scheduler.settings.FromName != "Sistema" {
		t.Errorf("Sender defaults not applied: %+v", f.scheduler.settings)
	}

	entry := f.onlyEntry(t)
	if entry.EventType != "order_approved" || entry.HTTPStatus != 200 || entry.FlowTriggered {
		t.Errorf("Unexpected log entry: %+v", entry)
	}
	if len(f.counters.calls) != 1 || !f.counters.calls[0].success {
		t.Errorf("Expected one successful counter update, got %+v", f.counters.calls)
	}
}

func TestDispatch_FlowSuccess(t *testing.T) {
	f := newFixture(flowLink())
	f.flows.flow = &models.Flow{ID: 7, CompanyID: 1, Active: true}

	payload := `{"event":"PURCHASE_APPROVED","data":{"buyer":{"name":"João","email":"joao@example.com"}}}`
	out := f.dispatcher().Dispatch(context.Background(), request(payload))

	if out.Status != http.StatusOK {
		t.Fatalf("status = %d, err = %v", out.Status, out.Err)
	}
	data := out.Body.(SuccessBody).Data.(FlowResult)
	if !data.FlowTriggered || data.EventType != "order_approved" || data.FlowExecutionID != "exec-1" || data.TicketID != "tk-1" {
		t.Errorf("Unexpected result: %+v", data)
	}
	if f.trigger.vars["customer_name"] != "João" {
		t.Errorf("Trigger vars = %v", f.trigger.vars)
	}

	entry := f.onlyEntry(t)
	if !entry.FlowTriggered || entry.EventType != "order_approved" || *entry.WebhookLinkID != 11 {
		t.Errorf("Unexpected log entry: %+v", entry)
	}
}

func TestDispatch_NonJSONBody(t *testing.T) {
	f := newFixture(flowLink())
	f.flows.flow = &models.Flow{ID: 7, CompanyID: 1, Active: true}

	out := f.dispatcher().Dispatch(context.Background(), request("a=1&b=2"))

	if out.Status != http.StatusOK {
		t.Fatalf("status = %d, err = %v", out.Status, out.Err)
	}
	entry := f.onlyEntry(t)
	var stored string
	if err := json.Unmarshal(entry.RawPayload, &stored); err != nil || stored != "a=1&b=2" {
		t.Errorf("Expected body stored as a JSON string, got %s", entry.RawPayload)
	}
	if entry.EventType != extractor.EventUnknown {
		t.Errorf("event = %q, want unknown", entry.EventType)
	}
}

func TestDispatch_ResponseTime(t *testing.T) {
	f := newFixture(nil)
	d := f.dispatcher()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	calls := 0
	d.clock = func() time.Time {
		calls++
		return base.Add(time.Duration(calls-1) * 40 * time.Millisecond)
	}

	d.Dispatch(context.Background(), request(`{}`))

	if got := f.onlyEntry(t).ResponseTimeMs; got <= 0 {
		t.Errorf("responseTimeMs = %d, want > 0", got)
	}
}

func TestReject(t *testing.T) {
	tests := []struct {
		name       string
		link       *models.WebhookLink
		reason     Rejection
		wantStatus int
		wantEvent  string
		wantErr    error
		wantCount  bool
	}{
		{"throttled known link", flowLink(), RateLimited, http.StatusTooManyRequests, models.EventRateLimited, ErrRateLimited, true},
		{"throttled unknown hash", nil, RateLimited, http.StatusTooManyRequests, models.EventRateLimited, ErrRateLimited, false},
		{"oversized", emailLink(), PayloadTooLarge, http.StatusRequestEntityTooLarge, models.EventPayloadTooLarge, ErrPayloadTooLarge, true},
		{"unreadable", nil, UnreadableBody, http.StatusBadRequest, models.EventInvalidBody, ErrUnreadableBody, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(tt.link)

			out := f.dispatcher().Reject(context.Background(), request(kiwifyPayload), tt.reason)

			if out.Status != tt.wantStatus || !errors.Is(out.Err, tt.wantErr) {
				t.Fatalf("status = %d err = %v", out.Status, out.Err)
			}
			entry := f.onlyEntry(t)
			if entry.EventType != tt.wantEvent || entry.HTTPStatus != tt.wantStatus {
				t.Errorf("Unexpected entry: %+v", entry)
			}
			if f.trigger.vars != nil || f.scheduler.job != nil {
				t.Error("Rejected deliveries must not reach a target")
			}
			if tt.wantCount {
				if len(f.counters.calls) != 1 || f.counters.calls[0].success {
					t.Errorf("Expected one failed counter update, got %+v", f.counters.calls)
				}
				if entry.WebhookLinkID == nil || *entry.WebhookLinkID != tt.link.ID {
					t.Error("Expected the entry to be attributed to the link")
				}
			} else if len(f.counters.calls) != 0 || entry.Platform != "unknown" {
				t.Errorf("Unexpected attribution: counters %+v, platform %q", f.counters.calls, entry.Platform)
			}
		})
	}
}
