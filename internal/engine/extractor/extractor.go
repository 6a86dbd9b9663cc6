// Package extractor maps raw payment-platform webhook payloads onto the
// canonical variable set used by templates and flows.
package extractor

import (
	"errors"
	"strings"

	"payhook/internal/pkg/validator"

	"github.com/tidwall/gjson"
)

const (
	FieldCustomerName      = "customer_name"
	FieldCustomerEmail     = "customer_email"
	FieldCustomerPhone     = "customer_phone"
	FieldCustomerDocument  = "customer_document"
	FieldProductName       = "product_name"
	FieldProductID         = "product_id"
	FieldTransactionID     = "transaction_id"
	FieldTransactionAmount = "transaction_amount"
	FieldTransactionStatus = "transaction_status"
	FieldTransactionDate   = "transaction_date"
	FieldPaymentMethod     = "payment_method"
	FieldEventType         = "event_type"
)

// Fields lists every canonical field. Extract always sets all of them.
var Fields = []string{
	FieldCustomerName, FieldCustomerEmail, FieldCustomerPhone, FieldCustomerDocument,
	FieldProductName, FieldProductID, FieldTransactionID, FieldTransactionAmount,
	FieldTransactionStatus, FieldTransactionDate, FieldPaymentMethod, FieldEventType,
}

// EventUnknown is returned when the payload carries no event or status at all.
const EventUnknown = "unknown"

var ErrNoRecipient = errors.New("no usable email address")

type Variables map[string]string

func newVariables() Variables {
	vars := make(Variables, len(Fields))
	for _, f := range Fields {
		vars[f] = ""
	}
	return vars
}

// Clone returns a copy that can be enriched without touching v.
func (v Variables) Clone() Variables {
	out := make(Variables, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// Extract never fails: unknown platforms use the generic heuristics, payloads
// that are not JSON objects extract as empty, and unresolved fields are "".
// The returned event type is normalized, or EventUnknown when absent.
func Extract(platform string, payload []byte) (Variables, string) {
	root := gjson.Parse("{}")
	if gjson.ValidBytes(payload) {
		if parsed := gjson.ParseBytes(payload); parsed.IsObject() {
			root = parsed
		}
	}

	v := variantFor(platform)
	vars := v.extract(root)

	vars[FieldCustomerEmail] = strings.ToLower(strings.TrimSpace(vars[FieldCustomerEmail]))
	vars[FieldCustomerPhone] = NormalizePhone(vars[FieldCustomerPhone])

	raw := v.rawEvent(root)
	if raw == "" {
		return vars, EventUnknown
	}
	event := NormalizeEvent(raw, v.aliases)
	vars[FieldEventType] = event
	return vars, event
}

// RequireEmail returns the recipient address or ErrNoRecipient.
func RequireEmail(vars Variables) (string, error) {
	email := vars[FieldCustomerEmail]
	if err := validator.ValidateRecipient(email); err != nil {
		return "", ErrNoRecipient
	}
	return email, nil
}
