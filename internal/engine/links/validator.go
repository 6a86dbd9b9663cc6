package links

import (
	"fmt"
	"strings"

	"payhook/internal/pkg/validator"
	"payhook/internal/platform/models"
)

// ValidationError reports a misconfigured link at creation time.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func ValidateLink(link *models.WebhookLink) error {
	name := strings.TrimSpace(link.Name)
	if name == "" {
		return invalid("name", "is required")
	}
	if len(name) > 255 {
		return invalid("name", "must be at most 255 characters")
	}
	if link.CompanyID <= 0 {
		return invalid("companyId", "is required")
	}

	if !isKnownPlatform(link.Platform) {
		return invalid("platform", "unknown platform %q", link.Platform)
	}

	switch link.ActionType {
	case models.ActionFlow:
		if link.FlowID == nil {
			return invalid("flowId", "is required for flow links")
		}
	case models.ActionEmail:
		if link.EmailTemplateID == nil {
			return invalid("emailTemplateId", "is required for email links")
		}
		if link.EmailSettings != nil {
			if err := ValidateEmailSettings(link.EmailSettings); err != nil {
				return err
			}
		}
	default:
		return invalid("actionType", "must be 'flow' or 'email'")
	}

	return nil
}

func ValidateEmailSettings(s *models.EmailSettings) error {
	if s.SendDelay < 0 {
		return invalid("emailSettings.sendDelay", "must not be negative")
	}

	switch s.DelayType {
	case models.DelayImmediate, models.DelaySeconds, models.DelayMinutes, models.DelayHours, models.DelayDays:
	default:
		return invalid("emailSettings.delayType", "unknown delay type %q", s.DelayType)
	}

	if s.FromEmail != "" {
		if err := validator.ValidateRecipient(s.FromEmail); err != nil {
			return invalid("emailSettings.fromEmail", "%v", err)
		}
	}
	if s.ReplyTo != "" {
		if err := validator.ValidateRecipient(s.ReplyTo); err != nil {
			return invalid("emailSettings.replyTo", "%v", err)
		}
	}
	return nil
}

func isKnownPlatform(p string) bool {
	for _, known := range models.Platforms {
		if p == known {
			return true
		}
	}
	return false
}
