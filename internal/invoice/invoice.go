package invoice

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-lavado/internal/pricing"
)

// Payment methods accepted on an invoice.
const (
	PaymentTransfer = "TR"
	PaymentCash     = "EF"
	PaymentDebit    = "TD"
	PaymentCredit   = "TC"
)

// ErrNotFound is returned for unknown invoice numbers.
var ErrNotFound = errors.New("invoice not found")

// PaymentMethods lists the accepted payment methods in report order.
func PaymentMethods() []string {
	return []string{PaymentTransfer, PaymentDebit, PaymentCredit, PaymentCash}
}

// Line is one service billed on an invoice.
type Line struct {
	ServiceID      int64           `json:"id_servicio"`
	Description    string          `json:"descripcion"`
	UnitPrice      decimal.Decimal `json:"valor"`
	Quantity       decimal.Decimal `json:"cantidad"`
	VariablePriced bool            `json:"precio_variable"`
}

// Invoice is a finalized sale.
type Invoice struct {
	Number          int64           `json:"numero_factura"`
	IssuedAt        time.Time       `json:"fecha"`
	Plate           string          `json:"placa"`
	Category        string          `json:"categoria"`
	Group           int             `json:"grupo"`
	CustomerID      string          `json:"id_cliente"`
	PaymentMethod   string          `json:"medio_pago"`
	TaxRate         decimal.Decimal `json:"iva"`
	TaxAmount       decimal.Decimal `json:"vlr_iva"`
	Gross           decimal.Decimal `json:"bruto"`
	DiscountPercent decimal.Decimal `json:"descuento"`
	DiscountAmount  decimal.Decimal `json:"vlr_descuento"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	Total           decimal.Decimal `json:"total"`
	Lines           []Line          `json:"servicios"`
}

// Totals returns the derived amounts stored on the invoice.
func (i Invoice) Totals() pricing.Totals {
	return pricing.Totals{
		Gross:          i.Gross,
		DiscountAmount: i.DiscountAmount,
		Subtotal:       i.Subtotal,
		TaxAmount:      i.TaxAmount,
		Total:          i.Total,
	}
}

func (i *Invoice) setTotals(t pricing.Totals) {
	i.Gross = t.Gross
	i.DiscountAmount = t.DiscountAmount
	i.Subtotal = t.Subtotal
	i.TaxAmount = t.TaxAmount
	i.Total = t.Total
}

// Filter narrows invoice listings. Zero fields match everything.
type Filter struct {
	From          *time.Time
	To            *time.Time
	CustomerID    string
	PaymentMethod string
	Plate         string
}
