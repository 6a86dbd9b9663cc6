package extractor

import "strings"

// Canonical event types.
const (
	EventOrderApproved        = "order_approved"
	EventOrderRefused         = "order_refused"
	EventOrderRefunded        = "order_refunded"
	EventOrderChargeback      = "order_chargeback"
	EventOrderPending         = "order_pending"
	EventOrderCanceled        = "order_canceled"
	EventBilletPrinted        = "billet_printed"
	EventPixGenerated         = "pix_generated"
	EventCartAbandoned        = "cart_abandoned"
	EventSubscriptionCanceled = "subscription_canceled"
	EventSubscriptionRenewed  = "subscription_renewed"
	EventSubscriptionLate     = "subscription_late"
)

// commonAliases apply to every platform after its own table.
var commonAliases = map[string]string{
	"approved":              EventOrderApproved,
	"paid":                  EventOrderApproved,
	"complete":              EventOrderApproved,
	"completed":             EventOrderApproved,
	"aprovado":              EventOrderApproved,
	"aprovada":              EventOrderApproved,
	"pago":                  EventOrderApproved,
	"paga":                  EventOrderApproved,
	"refused":               EventOrderRefused,
	"rejected":              EventOrderRefused,
	"recusado":              EventOrderRefused,
	"refunded":              EventOrderRefunded,
	"reembolsado":           EventOrderRefunded,
	"estornado":             EventOrderRefunded,
	"chargeback":            EventOrderChargeback,
	"chargedback":           EventOrderChargeback,
	"charged_back":          EventOrderChargeback,
	"pending":               EventOrderPending,
	"waiting_payment":       EventOrderPending,
	"pendente":              EventOrderPending,
	"canceled":              EventOrderCanceled,
	"cancelled":             EventOrderCanceled,
	"cancelado":             EventOrderCanceled,
	"expired":               EventOrderCanceled,
	"billet_printed":        EventBilletPrinted,
	"boleto_gerado":         EventBilletPrinted,
	"pix_generated":         EventPixGenerated,
	"pix_gerado":            EventPixGenerated,
	"cart_abandoned":        EventCartAbandoned,
	"abandoned_cart":        EventCartAbandoned,
	"subscription_canceled": EventSubscriptionCanceled,
	"subscription_renewed":  EventSubscriptionRenewed,
	"subscription_late":     EventSubscriptionLate,
}

// NormalizeEvent maps a raw platform status onto the canonical vocabulary.
// Values no table knows pass through lower-cased.
func NormalizeEvent(raw string, aliases map[string]string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" {
		return EventUnknown
	}
	if event, ok := aliases[key]; ok {
		return event
	}
	if event, ok := commonAliases[key]; ok {
		return event
	}
	return key
}
