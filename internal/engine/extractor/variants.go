package extractor

import (
	"strings"

	"payhook/internal/platform/models"

	"github.com/tidwall/gjson"
)

// candidates is an ordered list of gjson paths tried for one field, followed
// by keys searched at any depth. The first non-empty scalar wins.
type candidates struct {
	paths []string
	deep  []string
}

func paths(p ...string) candidates { return candidates{paths: p} }

type amountPath struct {
	path  string
	cents bool
}

// variant describes one platform's payload shape.
type variant struct {
	fields  map[string]candidates
	amounts []amountPath
	events  candidates
	aliases map[string]string

	// fixup runs after path resolution for shapes paths cannot express.
	fixup func(root gjson.Result, vars Variables)
}

func (v *variant) extract(root gjson.Result) Variables {
	vars := newVariables()
	for field, c := range v.fields {
		vars[field] = resolve(root, c)
	}
	vars[FieldTransactionAmount] = v.amount(root)
	if v.fixup != nil {
		v.fixup(root, vars)
	}
	return vars
}

func (v *variant) rawEvent(root gjson.Result) string {
	return resolve(root, v.events)
}

func (v *variant) amount(root gjson.Result) string {
	for _, a := range v.amounts {
		if s, ok := amountAt(root.Get(a.path), a.cents); ok {
			return s
		}
	}
	return ""
}

func variantFor(platform string) *variant {
	if v, ok := variants[strings.ToLower(strings.TrimSpace(platform))]; ok {
		return v
	}
	return variants[models.PlatformGeneric]
}

var variants = map[string]*variant{
	models.PlatformKiwify: {
		fields: map[string]candidates{
			FieldCustomerName:      paths("Customer.full_name", "Customer.first_name", "customer.full_name"),
			FieldCustomerEmail:     paths("Customer.email", "customer.email"),
			FieldCustomerPhone:     paths("Customer.mobile", "Customer.phone", "customer.mobile"),
			FieldCustomerDocument:  paths("Customer.CPF", "Customer.cnpj", "customer.cpf"),
			FieldProductName:       paths("Product.product_name", "product.name"),
			FieldProductID:         paths("Product.product_id", "product.id"),
			FieldTransactionID:     paths("order_id", "order_ref"),
			FieldTransactionStatus: paths("order_status"),
			FieldTransactionDate:   paths("approved_date", "created_at"),
			FieldPaymentMethod:     paths("payment_method"),
		},
		amounts: []amountPath{
			{path: "Commissions.charge_amount", cents: true},
			{path: "Commissions.product_base_price", cents: true},
		},
		events: paths("webhook_event_type", "order_status"),
		aliases: map[string]string{
			"order_rejected": "order_refused",
			"chargeback":     "order_chargeback",
			"billet_created": "billet_printed",
			"pix_created":    "pix_generated",
			"abandoned_cart": "cart_abandoned",
		},
	},

	models.PlatformHotmart: {
		fields: map[string]candidates{
			FieldCustomerName:      paths("data.buyer.name", "buyer.name"),
			FieldCustomerEmail:     paths("data.buyer.email", "buyer.email"),
			FieldCustomerPhone:     paths("data.buyer.checkout_phone", "data.buyer.phone", "buyer.checkout_phone"),
			FieldCustomerDocument:  paths("data.buyer.document", "buyer.document"),
			FieldProductName:       paths("data.product.name", "product.name"),
			FieldProductID:         paths("data.product.id", "product.id"),
			FieldTransactionID:     paths("data.purchase.transaction", "purchase.transaction"),
			FieldTransactionStatus: paths("data.purchase.status", "purchase.status"),
			FieldTransactionDate:   paths("data.purchase.approved_date", "data.purchase.order_date"),
			FieldPaymentMethod:     paths("data.purchase.payment.type", "purchase.payment.type"),
		},
		amounts: []amountPath{
			{path: "data.purchase.price.value"},
			{path: "data.purchase.full_price.value"},
			{path: "purchase.price.value"},
		},
		events: paths("event", "data.purchase.status"),
		aliases: map[string]string{
			"purchase_approved":             "order_approved",
			"purchase_complete":             "order_approved",
			"purchase_canceled":             "order_canceled",
			"purchase_refunded":             "order_refunded",
			"purchase_chargeback":           "order_chargeback",
			"purchase_protest":              "order_refunded",
			"purchase_billet_printed":       "billet_printed",
			"purchase_expired":              "order_canceled",
			"purchase_delayed":              "order_pending",
			"purchase_out_of_shopping_cart": "cart_abandoned",
			"subscription_cancellation":     "subscription_canceled",
			"switch_plan":                   "subscription_renewed",
		},
	},

	models.PlatformBraip: {
		fields: map[string]candidates{
			FieldCustomerName:      paths("client_name"),
			FieldCustomerEmail:     paths("client_email"),
			FieldCustomerPhone:     paths("client_cel", "client_phone"),
			FieldCustomerDocument:  paths("client_documment", "client_document"),
			FieldProductName:       paths("product_name", "plan_name"),
			FieldProductID:         paths("product_key", "plan_key"),
			FieldTransactionID:     paths("trans_key"),
			FieldTransactionStatus: paths("trans_status"),
			FieldTransactionDate:   paths("trans_createdate", "trans_updatedate"),
			FieldPaymentMethod:     paths("trans_payment"),
		},
		amounts: []amountPath{{path: "trans_value"}, {path: "trans_total_value"}},
		events:  paths("trans_status", "type"),
		aliases: map[string]string{
			"pagamento aprovado":   "order_approved",
			"aguardando pagamento": "order_pending",
			"pagamento atrasado":   "subscription_late",
			"estorno pendente":     "order_refunded",
			"chargeback":           "order_chargeback",
			"em análise":           "order_pending",
			"processando":          "order_pending",
			"parcialmente pago":    "order_pending",
			"cancelada":            "order_canceled",
			"devolvida":            "order_refunded",
			"boleto impresso":      "billet_printed",
			"abandono de checkout": "cart_abandoned",
			"assinatura cancelada": "subscription_canceled",
			"assinatura renovada":  "subscription_renewed",
			"pagamento recusado":   "order_refused",
			"recusada":             "order_refused",
			"aguardando aprovação": "order_pending",
			"venda realizada":      "order_approved",
			"pagamento confirmado": "order_approved",
			"pix gerado":           "pix_generated",
			"cancelado":            "order_canceled",
			"assinatura em atraso": "subscription_late",
		},
	},

	models.PlatformMonetizze: {
		fields: map[string]candidates{
			FieldCustomerName:      paths("comprador.nome"),
			FieldCustomerEmail:     paths("comprador.email"),
			FieldCustomerPhone:     paths("comprador.telefone", "comprador.celular"),
			FieldCustomerDocument:  paths("comprador.cnpj_cpf", "comprador.cpf"),
			FieldProductName:       paths("produto.nome"),
			FieldProductID:         paths("produto.codigo"),
			FieldTransactionID:     paths("venda.codigo"),
			FieldTransactionStatus: paths("venda.status"),
			FieldTransactionDate:   paths("venda.dataFinalizada", "venda.dataInicio"),
			FieldPaymentMethod:     paths("venda.formaPagamento", "venda.meioPagamento"),
		},
		amounts: []amountPath{{path: "venda.valor"}, {path: "venda.valorRecebido"}},
		events:  paths("venda.status", "tipoPostback.descricao"),
		aliases: map[string]string{
			"finalizada":           "order_approved",
			"completa":             "order_approved",
			"aguardando pagamento": "order_pending",
			"cancelada":            "order_canceled",
			"devolvida":            "order_refunded",
			"bloqueada":            "order_refused",
			"abandono de checkout": "cart_abandoned",
		},
	},

	models.PlatformCacto: {
		fields: map[string]candidates{
			FieldCustomerName:      paths("customer.name", "data.customer.name", "buyer.name"),
			FieldCustomerEmail:     paths("customer.email", "data.customer.email", "buyer.email"),
			FieldCustomerPhone:     paths("customer.phone", "data.customer.phone", "customer.mobile"),
			FieldCustomerDocument:  paths("customer.document", "customer.cpf", "data.customer.document"),
			FieldProductName:       paths("product.name", "data.product.name"),
			FieldProductID:         paths("product.id", "data.product.id"),
			FieldTransactionID:     paths("transaction.id", "data.transaction.id", "order.id"),
			FieldTransactionStatus: paths("transaction.status", "data.transaction.status", "status"),
			FieldTransactionDate:   paths("transaction.created_at", "data.transaction.created_at", "created_at"),
			FieldPaymentMethod:     paths("transaction.payment_method", "data.transaction.payment_method"),
		},
		amounts: []amountPath{{path: "transaction.amount"}, {path: "data.transaction.amount"}, {path: "amount"}},
		events:  paths("event", "event_type", "transaction.status", "status"),
	},

	models.PlatformPerfectPay: {
		fields: map[string]candidates{
			FieldCustomerName:      paths("customer.full_name", "customer.name"),
			FieldCustomerEmail:     paths("customer.email"),
			FieldCustomerDocument:  paths("customer.identification_number"),
			FieldProductName:       paths("product.name", "plan.name"),
			FieldProductID:         paths("product.code", "plan.code"),
			FieldTransactionID:     paths("code"),
			FieldTransactionStatus: paths("sale_status_detail", "sale_status_enum_key"),
			FieldTransactionDate:   paths("date_approved", "date_created"),
			FieldPaymentMethod:     paths("payment_type_enum_key", "payment_type_enum"),
		},
		amounts: []amountPath{{path: "sale_amount"}},
		events:  paths("sale_status_enum", "sale_status_detail"),
		aliases: map[string]string{
			"1":  "order_pending",
			"2":  "order_approved",
			"3":  "order_pending",
			"4":  "order_pending",
			"5":  "order_refused",
			"6":  "order_canceled",
			"7":  "order_refunded",
			"8":  "order_approved",
			"9":  "order_chargeback",
			"10": "order_approved",
			"13": "order_canceled",
		},
		fixup: func(root gjson.Result, vars Variables) {
			area := scalar(root.Get("customer.phone_area_code"))
			number := scalar(root.Get("customer.phone_number"))
			if number != "" {
				vars[FieldCustomerPhone] = area + number
			}
		},
	},

	models.PlatformEduzz: {
		fields: map[string]candidates{
			FieldCustomerName:      paths("cus_name", "customer.name"),
			FieldCustomerEmail:     paths("cus_email", "customer.email"),
			FieldCustomerPhone:     paths("cus_cel", "cus_tel", "customer.cellphone"),
			FieldCustomerDocument:  paths("cus_taxnumber", "customer.document"),
			FieldProductName:       paths("product_name", "content_title"),
			FieldProductID:         paths("product_cod", "content_id"),
			FieldTransactionID:     paths("trans_cod", "invoice_id"),
			FieldTransactionStatus: paths("trans_status"),
			FieldTransactionDate:   paths("trans_paiddate", "trans_createdate"),
			FieldPaymentMethod:     paths("trans_paymentmethod"),
		},
		amounts: []amountPath{{path: "trans_value", cents: true}, {path: "trans_paid", cents: true}},
		events:  paths("event_name", "trans_status"),
		aliases: map[string]string{
			"1":                    "order_pending",
			"3":                    "order_approved",
			"4":                    "order_canceled",
			"6":                    "order_pending",
			"7":                    "order_refunded",
			"10":                   "order_canceled",
			"11":                   "cart_abandoned",
			"15":                   "order_pending",
			"invoice_paid":         "order_approved",
			"invoice_canceled":     "order_canceled",
			"invoice_refunded":     "order_refunded",
			"invoice_opened":       "order_pending",
			"invoice_expired":      "order_canceled",
			"contract_canceled":    "subscription_canceled",
			"contract_late":        "subscription_late",
			"contract_renewed":     "subscription_renewed",
			"cart_abandonment":     "cart_abandoned",

			"invoice_waiting_refund": "order_pending",
		},
	},

	models.PlatformGeneric: {
		fields: map[string]candidates{
			FieldCustomerName: {
				paths: []string{"customer.name", "customer.full_name", "buyer.name", "client.name", "comprador.nome", "cliente.nome", "data.customer.name", "data.buyer.name", "name"},
				deep:  []string{"customer_name", "buyer_name", "client_name", "full_name", "nome_cliente"},
			},
			FieldCustomerEmail: {
				paths: []string{"customer.email", "buyer.email", "client.email", "comprador.email", "cliente.email", "data.customer.email", "data.buyer.email"},
				deep:  []string{"customer_email", "buyer_email", "client_email", "email"},
			},
			FieldCustomerPhone: {
				paths: []string{"customer.phone", "customer.mobile", "buyer.phone", "client.phone", "comprador.telefone", "cliente.telefone"},
				deep:  []string{"customer_phone", "phone", "telefone", "mobile", "cellphone", "celular", "whatsapp", "phone_number"},
			},
			FieldCustomerDocument: {
				paths: []string{"customer.document", "customer.cpf", "buyer.document", "comprador.cpf"},
				deep:  []string{"customer_document", "document", "cpf", "cnpj_cpf", "cpf_cnpj", "taxnumber"},
			},
			FieldProductName: {
				paths: []string{"product.name", "produto.nome", "data.product.name"},
				deep:  []string{"product_name", "produto_nome", "offer_name"},
			},
			FieldProductID: {
				paths: []string{"product.id", "produto.codigo", "data.product.id"},
				deep:  []string{"product_id", "produto_id", "product_code"},
			},
			FieldTransactionID: {
				paths: []string{"transaction.id", "order.id", "data.transaction.id", "data.purchase.transaction"},
				deep:  []string{"transaction_id", "order_id", "sale_id", "transaction"},
			},
			FieldTransactionStatus: {
				paths: []string{"transaction.status", "order.status", "data.status"},
				deep:  []string{"transaction_status", "order_status", "payment_status", "status"},
			},
			FieldTransactionDate: {
				deep: []string{"transaction_date", "approved_date", "created_at", "order_date", "date"},
			},
			FieldPaymentMethod: {
				paths: []string{"transaction.payment_method", "payment.method", "payment.type"},
				deep:  []string{"payment_method", "payment_type", "forma_pagamento", "metodo_pagamento"},
			},
		},
		amounts: []amountPath{
			{path: "transaction.amount"}, {path: "order.total"}, {path: "data.purchase.price.value"},
			{path: "transaction_amount"}, {path: "amount"}, {path: "total"}, {path: "value"}, {path: "price"}, {path: "valor"},
		},
		events: candidates{
			paths: []string{"event", "event_type", "webhook_event_type", "type"},
			deep:  []string{"event", "event_type", "status"},
		},
	},
}
