package models

import (
	"database/sql/driver"
	"encoding/json"
)

// Known payment platforms. Anything else is handled as PlatformGeneric.
const (
	PlatformKiwify     = "kiwify"
	PlatformHotmart    = "hotmart"
	PlatformBraip      = "braip"
	PlatformMonetizze  = "monetizze"
	PlatformCacto      = "cacto"
	PlatformPerfectPay = "perfectpay"
	PlatformEduzz      = "eduzz"
	PlatformGeneric    = "generic"
)

var Platforms = []string{
	PlatformKiwify, PlatformHotmart, PlatformBraip, PlatformMonetizze,
	PlatformCacto, PlatformPerfectPay, PlatformEduzz, PlatformGeneric,
}

const (
	ActionFlow  = "flow"
	ActionEmail = "email"
)

const (
	DelayImmediate = "immediate"
	DelaySeconds   = "seconds"
	DelayMinutes   = "minutes"
	DelayHours     = "hours"
	DelayDays      = "days"
)

type WebhookLink struct {
	ID                 int64          `json:"id"`
	CompanyID          int64          `json:"companyId"`
	Name               string         `json:"name"`
	Description        string         `json:"description,omitempty"`
	Platform           string         `json:"platform"`
	ActionType         string         `json:"actionType"`
	FlowID             *int64         `json:"flowId,omitempty"`
	EmailTemplateID    *int64         `json:"emailTemplateId,omitempty"`
	EmailSettings      *EmailSettings `json:"emailSettings,omitempty"`
	WebhookHash        string         `json:"webhookHash"`
	WebhookURL         string         `json:"webhookUrl"`
	Active             bool           `json:"active"`
	TotalRequests      int64          `json:"totalRequests"`
	SuccessfulRequests int64          `json:"successfulRequests"`
	LastRequestAt      *int64         `json:"lastRequestAt,omitempty"`
	CreatedAt          int64          `json:"createdAt"`
	UpdatedAt          int64          `json:"updatedAt"`

	// Target is filled on lookup from the linked flow or email template.
	Target *LinkTarget `json:"target,omitempty"`
}

// LinkTarget is the denormalized view of whatever the link's action points at.
type LinkTarget struct {
	Kind   string `json:"kind"`
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

type EmailSettings struct {
	SendDelay int    `json:"sendDelay"`
	DelayType string `json:"delayType"`
	FromName  string `json:"fromName"`
	FromEmail string `json:"fromEmail"`
	ReplyTo   string `json:"replyTo"`
}

// Value implements the driver.Valuer interface for EmailSettings
func (s EmailSettings) Value() (driver.Value, error) {
	data, err := json.Marshal(s)
	return string(data), err
}

// Scan implements the sql.Scanner interface for EmailSettings
func (s *EmailSettings) Scan(value interface{}) error {
	data, err := scanBytes(value)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, s)
}

// Flow is the read-only view of a flow owned by the external flow engine.
type Flow struct {
	ID        int64  `json:"id"`
	CompanyID int64  `json:"companyId"`
	Name      string `json:"name"`
	Active    bool   `json:"active"`
}
