package pricing

import "github.com/shopspring/decimal"

// LineItem is one selected service on an invoice draft.
type LineItem struct {
	ServiceID      int64           `json:"id_servicio"`
	Description    string          `json:"descripcion"`
	UnitPrice      decimal.Decimal `json:"valor"`
	Quantity       decimal.Decimal `json:"cantidad"`
	VariablePriced bool            `json:"precio_variable,omitempty"`
}

// LineTotal is the plain product of unit price and quantity.
func (l LineItem) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(l.Quantity)
}

// TaxConfig is the merchant tax setup read from settings.
type TaxConfig struct {
	Enabled   bool            `json:"iva"`
	Rate      decimal.Decimal `json:"valor_iva"`
	Inclusive bool            `json:"iva_incluido"`
}

// Totals holds the derived amounts of an invoice.
type Totals struct {
	Gross          decimal.Decimal `json:"bruto"`
	DiscountAmount decimal.Decimal `json:"vlr_descuento"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	TaxAmount      decimal.Decimal `json:"vlr_iva"`
	Total          decimal.Decimal `json:"total"`
}

// Equal reports whether both totals carry the same amounts.
func (t Totals) Equal(o Totals) bool {
	return t.Gross.Equal(o.Gross) &&
		t.DiscountAmount.Equal(o.DiscountAmount) &&
		t.Subtotal.Equal(o.Subtotal) &&
		t.TaxAmount.Equal(o.TaxAmount) &&
		t.Total.Equal(o.Total)
}

// Compute derives the invoice totals from the lines, the discount percent and
// the tax configuration. Inputs are not clamped: the caller keeps the discount
// within [0, 100] and prices non-negative.
func Compute(lines []LineItem, discountPercent decimal.Decimal, tax TaxConfig) Totals {
	gross := decimal.Zero
	for _, line := range lines {
		gross = gross.Add(line.LineTotal())
	}
	discount := Round(Percent(gross, discountPercent))
	net := gross.Sub(discount)

	out := Totals{Gross: gross, DiscountAmount: discount}
	switch {
	case !tax.Enabled:
		out.Subtotal = net
		out.TaxAmount = decimal.Zero
	case tax.Inclusive:
		rate := tax.Rate.Div(hundred)
		out.Subtotal = Round(net.Div(decimal.NewFromInt(1).Add(rate)))
		out.TaxAmount = Round(net.Sub(out.Subtotal))
	default:
		rate := tax.Rate.Div(hundred)
		out.Subtotal = net
		out.TaxAmount = Round(net.Mul(rate))
	}
	out.Total = out.Subtotal.Add(out.TaxAmount)
	return out
}
