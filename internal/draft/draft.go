package draft

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-lavado/internal/pricing"
	"github.com/noah-isme/backend-lavado/internal/promotion"
)

var (
	// ErrNotFound is returned for unknown or expired drafts.
	ErrNotFound = errors.New("draft not found")
	// ErrEmpty is returned when finalizing a draft without lines.
	ErrEmpty = errors.New("draft has no services")
	// ErrPaymentMethodMissing is returned when finalizing before choosing how to pay.
	ErrPaymentMethodMissing = errors.New("draft has no payment method")
	// ErrFinalized is returned for a draft that already produced an invoice
	// but could not be removed.
	ErrFinalized = errors.New("draft already finalized")
)

// Session is an invoice being edited for one resolved vehicle. Lines,
// discount and totals are always written together.
type Session struct {
	ID            uuid.UUID `json:"id"`
	Plate         string    `json:"placa"`
	Category      string    `json:"categoria"`
	Group         int       `json:"grupo"`
	CustomerID    string    `json:"id_cliente"`
	PaymentMethod string    `json:"medio_pago,omitempty"`

	pricing.Draft
	// SuggestedPromotion is the lowest active promotion when the draft started.
	SuggestedPromotion *int64              `json:"promocion_sugerida,omitempty"`
	Promotion          promotion.Selection `json:"promocion"`

	Tax    pricing.TaxConfig `json:"impuesto"`
	Totals pricing.Totals    `json:"totales"`

	// Invoice is set once the draft was finalized but not yet removed.
	Invoice *int64 `json:"numero_factura,omitempty"`

	StartedAt time.Time `json:"creado"`
	UpdatedAt time.Time `json:"actualizado"`
}

func (s *Session) open() error {
	if s.Invoice != nil {
		return fmt.Errorf("%w as invoice %d", ErrFinalized, *s.Invoice)
	}
	return nil
}

func (s *Session) recompute() {
	s.Totals = s.Draft.Totals(s.Tax)
}

// selectPromotion toggles p and derives the discount from the selection.
func (s *Session) selectPromotion(p promotion.Promotion) {
	s.Promotion = s.Promotion.Toggle(p)
	s.SuggestedPromotion = nil
	s.SetDiscount(s.Promotion.DiscountPercent())
}

func (s *Session) clearPromotion() {
	s.Promotion = promotion.None()
	s.SuggestedPromotion = nil
	s.SetDiscount(decimal.Zero)
}
