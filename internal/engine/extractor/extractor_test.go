package extractor

import (
	"errors"
	"testing"

	"payhook/internal/platform/models"
)

func TestExtract_EmptyPayload(t *testing.T) {
	platforms := append([]string{}, models.Platforms...)
	platforms = append(platforms, "somethingelse", "")

	for _, p := range platforms {
		for _, payload := range []string{`{}`, ``, `not json`, `[1,2,3]`, `null`} {
			vars, event := Extract(p, []byte(payload))

			if len(vars) != len(Fields) {
				t.Errorf("%s/%q: expected %d fields, got %d", p, payload, len(Fields), len(vars))
			}
			for _, f := range Fields {
				v, ok := vars[f]
				if !ok {
					t.Errorf("%s/%q: field %s missing", p, payload, f)
				}
				if v != "" {
					t.Errorf("%s/%q: field %s = %q, want empty", p, payload, f, v)
				}
			}
			if event != EventUnknown {
				t.Errorf("%s/%q: event = %q, want %q", p, payload, event, EventUnknown)
			}
		}
	}
}

func TestExtract_Kiwify(t *testing.T) {
	payload := `{
		"order_id": "ord_123",
		"order_status": "paid",
		"webhook_event_type": "order_approved",
		"payment_method": "credit_card",
		"approved_date": "2024-05-01 10:00",
		"Product": {"product_id": "p1", "product_name": "Curso Go"},
		"Customer": {"full_name": "Maria Souza", "email": "  Maria@Example.COM ", "mobile": "+55 11 99999-8888", "CPF": "12345678900"},
		"Commissions": {"charge_amount": 19700}
	}`

	vars, event := Extract(models.PlatformKiwify, []byte(payload))

	want := map[string]string{
		FieldCustomerName:      "Maria Souza",
		FieldCustomerEmail:     "maria@example.com",
		FieldCustomerPhone:     "5511999998888",
		FieldCustomerDocument:  "12345678900",
		FieldProductName:       "Curso Go",
		FieldProductID:         "p1",
		FieldTransactionID:     "ord_123",
		FieldTransactionAmount: "197,00",
		FieldTransactionStatus: "paid",
		FieldTransactionDate:   "2024-05-01 10:00",
		FieldPaymentMethod:     "credit_card",
		FieldEventType:         EventOrderApproved,
	}
	for k, v := range want {
		if vars[k] != v {
			t.Errorf("%s = %q, want %q", k, vars[k], v)
		}
	}
	if event != EventOrderApproved {
		t.Errorf("event = %q, want order_approved", event)
	}
}

func TestExtract_Hotmart(t *testing.T) {
	payload := `{
		"event": "PURCHASE_REFUNDED",
		"data": {
			"buyer": {"name": "João", "email": "joao@example.com", "checkout_phone": "4799998888"},
			"product": {"id": 42, "name": "Ebook"},
			"purchase": {"transaction": "HP123", "status": "REFUNDED", "price": {"value": 97.5}, "payment": {"type": "PIX"}}
		}
	}`

	vars, event := Extract(models.PlatformHotmart, []byte(payload))

	if event != EventOrderRefunded {
		t.Errorf("event = %q, want order_refunded", event)
	}
	if vars[FieldProductID] != "42" {
		t.Errorf("product_id = %q, want 42", vars[FieldProductID])
	}
	if vars[FieldTransactionAmount] != "97,50" {
		t.Errorf("amount = %q, want 97,50", vars[FieldTransactionAmount])
	}
	if vars[FieldCustomerPhone] != "554799998888" {
		t.Errorf("phone = %q, want 554799998888", vars[FieldCustomerPhone])
	}
	if vars[FieldPaymentMethod] != "PIX" {
		t.Errorf("payment_method = %q", vars[FieldPaymentMethod])
	}
}

func TestExtract_Monetizze(t *testing.T) {
	payload := `{
		"venda": {"codigo": "9001", "status": "Finalizada", "valor": "1.197,00", "formaPagamento": "Boleto"},
		"comprador": {"nome": "Ana", "email": "ana@example.com", "telefone": "(21) 98888-7777"},
		"produto": {"codigo": "77", "nome": "Mentoria"}
	}`

	vars, event := Extract(models.PlatformMonetizze, []byte(payload))

	if event != EventOrderApproved {
		t.Errorf("event = %q, want order_approved", event)
	}
	if vars[FieldTransactionAmount] != "1197,00" {
		t.Errorf("amount = %q, want 1197,00", vars[FieldTransactionAmount])
	}
	if vars[FieldCustomerPhone] != "5521988887777" {
		t.Errorf("phone = %q", vars[FieldCustomerPhone])
	}
}

func TestExtract_PerfectPayPhone(t *testing.T) {
	payload := `{"code": "PPA1", "sale_status_enum": 2, "sale_amount": 49.9,
		"customer": {"full_name": "Rui", "email": "rui@example.com", "phone_area_code": "31", "phone_number": "988887777"}}`

	vars, event := Extract(models.PlatformPerfectPay, []byte(payload))

	if event != EventOrderApproved {
		t.Errorf("event = %q, want order_approved", event)
	}
	if vars[FieldCustomerPhone] != "553188887777" {
		t.Errorf("phone = %q, want 553188887777", vars[FieldCustomerPhone])
	}
	if vars[FieldTransactionAmount] != "49,90" {
		t.Errorf("amount = %q", vars[FieldTransactionAmount])
	}
}

func TestExtract_EduzzCents(t *testing.T) {
	payload := `{"trans_cod": 555, "trans_status": 3, "trans_value": 4990, "cus_name": "Bia", "cus_email": "bia@example.com"}`

	vars, event := Extract(models.PlatformEduzz, []byte(payload))

	if event != EventOrderApproved {
		t.Errorf("event = %q, want order_approved", event)
	}
	if vars[FieldTransactionAmount] != "49,90" {
		t.Errorf("amount = %q, want 49,90", vars[FieldTransactionAmount])
	}
	if vars[FieldTransactionID] != "555" {
		t.Errorf("transaction_id = %q", vars[FieldTransactionID])
	}
}

func TestExtract_GenericHeuristics(t *testing.T) {
	payload := `{
		"type": "Payment.Succeeded",
		"payload": {
			"order": {"order_id": "A-1", "amount": "R$ 59,90"},
			"contact": {"full_name": "Caio", "email": "CAIO@example.com", "celular": "11 98765-4321"}
		}
	}`

	vars, event := Extract("unlisted-platform", []byte(payload))

	if event != "payment.succeeded" {
		t.Errorf("event = %q, want lower-cased passthrough", event)
	}
	if vars[FieldCustomerName] != "Caio" {
		t.Errorf("customer_name = %q", vars[FieldCustomerName])
	}
	if vars[FieldCustomerEmail] != "caio@example.com" {
		t.Errorf("customer_email = %q", vars[FieldCustomerEmail])
	}
	if vars[FieldTransactionID] != "A-1" {
		t.Errorf("transaction_id = %q", vars[FieldTransactionID])
	}
	if vars[FieldCustomerPhone] != "5511987654321" {
		t.Errorf("customer_phone = %q", vars[FieldCustomerPhone])
	}
}

func TestNormalizeEvent(t *testing.T) {
	tests := []struct {
		raw     string
		aliases map[string]string
		want    string
	}{
		{"", nil, EventUnknown},
		{"  ", nil, EventUnknown},
		{"APPROVED", nil, EventOrderApproved},
		{"Pagamento Aprovado", variants[models.PlatformBraip].aliases, EventOrderApproved},
		{"PURCHASE_CHARGEBACK", variants[models.PlatformHotmart].aliases, EventOrderChargeback},
		{"billet_created", variants[models.PlatformKiwify].aliases, EventBilletPrinted},
		{"7", variants[models.PlatformEduzz].aliases, EventOrderRefunded},
		{"Some_New_Event", nil, "some_new_event"},
	}

	for _, tt := range tests {
		if got := NormalizeEvent(tt.raw, tt.aliases); got != tt.want {
			t.Errorf("NormalizeEvent(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"12345", "12345"},
		{"11999999999", "5511999999999"},
		{"1199999999", "5511999999999"},
		{"551199999999", "5511999999999"},
		{"5511999999999", "5511999999999"},
		{"+55 (27) 99999-9999", "5527999999999"},
		{"1133334444", "5511933334444"},
		{"31999998888", "553199998888"},
		{"3199998888", "553199998888"},
		{"31899998888", "5531899998888"},
		{"0599998888", "550599998888"},
		{"113333444", "113333444"},
		{"119999999999", "55119999999999"},
	}

	for _, tt := range tests {
		if got := NormalizePhone(tt.in); got != tt.want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"197.00", "197,00", true},
		{"197,00", "197,00", true},
		{"R$ 1.197,50", "1197,50", true},
		{"1,197.50", "1197,50", true},
		{"abc", "", false},
	}

	for _, tt := range tests {
		v, ok := parseAmount(tt.in)
		if ok != tt.ok {
			t.Errorf("parseAmount(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			continue
		}
		if ok && FormatAmount(v) != tt.want {
			t.Errorf("parseAmount(%q) = %s, want %s", tt.in, FormatAmount(v), tt.want)
		}
	}
}

func TestRequireEmail(t *testing.T) {
	tests := []struct {
		email   string
		wantErr bool
	}{
		{"ana@example.com", false},
		{"", true},
		{"not-an-email", true},
		{"a@b", true},
	}

	for _, tt := range tests {
		vars := newVariables()
		vars[FieldCustomerEmail] = tt.email
		got, err := RequireEmail(vars)
		if tt.wantErr {
			if !errors.Is(err, ErrNoRecipient) {
				t.Errorf("RequireEmail(%q) err = %v, want ErrNoRecipient", tt.email, err)
			}
			continue
		}
		if err != nil || got != tt.email {
			t.Errorf("RequireEmail(%q) = %q, %v", tt.email, got, err)
		}
	}
}
