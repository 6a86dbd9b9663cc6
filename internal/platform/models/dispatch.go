package models

import "encoding/json"

// Event types recorded for non-success outcomes.
const (
	EventWebhookNotFound       = "webhook_not_found"
	EventEmailTemplateInactive = "email_template_inactive"
	EventFlowInactive          = "flow_inactive"
	EventProcessingError       = "processing_error"
	EventRateLimited           = "rate_limited"
	EventPayloadTooLarge       = "payload_too_large"
	EventInvalidBody           = "invalid_body"
)

// DispatchLogEntry is the immutable audit record of one inbound webhook attempt.
type DispatchLogEntry struct {
	ID             string          `json:"id"`
	WebhookLinkID  *int64          `json:"webhookLinkId,omitempty"`
	CompanyID      *int64          `json:"companyId,omitempty"`
	Platform       string          `json:"platform"`
	EventType      string          `json:"eventType"`
	RawPayload     json.RawMessage `json:"rawPayload"`
	FlowTriggered  bool            `json:"flowTriggered"`
	HTTPStatus     int             `json:"httpStatus"`
	ResponseTimeMs int64           `json:"responseTimeMs"`
	ErrorMessage   string          `json:"errorMessage,omitempty"`
	IPAddress      string          `json:"ipAddress"`
	UserAgent      string          `json:"userAgent"`
	CreatedAt      int64           `json:"createdAt"`
}

// Email job states, named after the queue's reporting buckets.
const (
	JobWaiting   = "waiting"
	JobActive    = "active"
	JobCompleted = "completed"
	JobFailed    = "failed"
)

type EmailJob struct {
	ID            string            `json:"id"`
	CompanyID     int64             `json:"companyId"`
	WebhookLinkID int64             `json:"webhookLinkId"`
	TemplateID    int64             `json:"templateId"`
	To            string            `json:"to"`
	RecipientName string            `json:"recipientName"`
	From          string            `json:"from"`
	FromName      string            `json:"fromName"`
	ReplyTo       string            `json:"replyTo"`
	Subject       string            `json:"subject"`
	HTML          string            `json:"html"`
	Variables     map[string]string `json:"variables"`
	Metadata      JobMetadata       `json:"metadata"`
	Status        string            `json:"status"`
	RunAt         int64             `json:"runAt"`
	Attempts      int               `json:"attempts"`
	LastError     string            `json:"lastError,omitempty"`
	CreatedAt     int64             `json:"createdAt"`
	UpdatedAt     int64             `json:"updatedAt"`
}

type JobMetadata struct {
	Platform    string `json:"platform"`
	EventType   string `json:"eventType"`
	IPAddress   string `json:"ipAddress"`
	UserAgent   string `json:"userAgent"`
	ProcessedAt int64  `json:"processedAt"`
}

type QueueStats struct {
	Waiting   int64 `json:"waiting"`
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}

// DispatchSummary aggregates one link's dispatch log over a window.
type DispatchSummary struct {
	Total             int64   `json:"total"`
	Succeeded         int64   `json:"succeeded"`
	TargetInactive    int64   `json:"targetInactive"`
	ProcessingErrors  int64   `json:"processingErrors"`
	UniqueIPs         int64   `json:"uniqueIps"`
	AvgResponseTimeMs float64 `json:"avgResponseTimeMs"`
	TopEventType      string  `json:"topEventType"`
}
