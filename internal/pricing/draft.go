package pricing

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// AdditionalServiceMinID is the first id of the additional service range.
	AdditionalServiceMinID int64 = 5000
	// CustomServiceID identifies the free-form, variable priced service line.
	CustomServiceID int64 = 9999
)

var (
	// ErrLineNotFound is returned when a mutation targets a missing line.
	ErrLineNotFound = errors.New("pricing: line not found")
	// ErrFixedQuantity is returned when editing the quantity of a fixed-price line.
	ErrFixedQuantity = errors.New("pricing: quantity is fixed for this service")
)

// IsGeneralService reports whether id belongs to the general service range.
func IsGeneralService(id int64) bool {
	return id < AdditionalServiceMinID
}

// Draft is the mutable set of lines and discount behind an invoice being
// edited. Mutations never recompute; callers run Totals afterwards.
type Draft struct {
	Lines           []LineItem      `json:"servicios"`
	DiscountPercent decimal.Decimal `json:"descuento"`
}

// Totals recomputes the derived amounts of the draft.
func (d *Draft) Totals(tax TaxConfig) Totals {
	return Compute(d.Lines, d.DiscountPercent, tax)
}

// Upsert inserts the line or replaces the line with the same service id in
// place. Fixed-price lines are stored with quantity 1 and variable-priced
// lines without a positive quantity start at 1.
func (d *Draft) Upsert(line LineItem) {
	line = prepare(line)
	if i := d.index(line.ServiceID); i >= 0 {
		d.Lines[i] = line
		return
	}
	d.Lines = append(d.Lines, line)
}

// SelectGeneral makes line the single general service of the draft, placing
// it first and dropping any previously selected general service.
func (d *Draft) SelectGeneral(line LineItem) {
	line = prepare(line)
	kept := make([]LineItem, 0, len(d.Lines)+1)
	kept = append(kept, line)
	for _, existing := range d.Lines {
		if IsGeneralService(existing.ServiceID) || existing.ServiceID == line.ServiceID {
			continue
		}
		kept = append(kept, existing)
	}
	d.Lines = kept
}

// Toggle adds the line when absent and removes it when present. It reports
// whether the line is selected afterwards.
func (d *Draft) Toggle(line LineItem) bool {
	if d.index(line.ServiceID) >= 0 {
		d.Remove(line.ServiceID)
		return false
	}
	d.Lines = append(d.Lines, prepare(line))
	return true
}

// AddCustom sets the free-form service line, replacing a previous one.
func (d *Draft) AddCustom(description string, unitPrice decimal.Decimal) {
	d.Upsert(LineItem{
		ServiceID:      CustomServiceID,
		Description:    strings.TrimSpace(description),
		UnitPrice:      unitPrice,
		Quantity:       decimal.NewFromInt(1),
		VariablePriced: true,
	})
}

// Remove drops the line for serviceID. It reports whether a line was removed.
func (d *Draft) Remove(serviceID int64) bool {
	i := d.index(serviceID)
	if i < 0 {
		return false
	}
	d.Lines = append(d.Lines[:i:i], d.Lines[i+1:]...)
	return true
}

// SetQuantity normalises raw and stores it on a variable-priced line.
func (d *Draft) SetQuantity(serviceID int64, raw string) (decimal.Decimal, error) {
	i := d.index(serviceID)
	if i < 0 {
		return decimal.Zero, ErrLineNotFound
	}
	if !d.Lines[i].VariablePriced {
		return d.Lines[i].Quantity, ErrFixedQuantity
	}
	qty := NormalizeQuantity(raw)
	d.Lines[i].Quantity = qty
	return qty, nil
}

// SetDiscount stores the discount percent as given.
func (d *Draft) SetDiscount(percent decimal.Decimal) {
	d.DiscountPercent = percent
}

// Reset empties the draft.
func (d *Draft) Reset() {
	d.Lines = nil
	d.DiscountPercent = decimal.Zero
}

// Clone returns a deep copy of the draft.
func (d Draft) Clone() Draft {
	out := Draft{DiscountPercent: d.DiscountPercent}
	if d.Lines != nil {
		out.Lines = append([]LineItem(nil), d.Lines...)
	}
	return out
}

func (d *Draft) index(serviceID int64) int {
	for i, line := range d.Lines {
		if line.ServiceID == serviceID {
			return i
		}
	}
	return -1
}

func prepare(line LineItem) LineItem {
	if !line.VariablePriced || !line.Quantity.IsPositive() {
		line.Quantity = decimal.NewFromInt(1)
	}
	return line
}
