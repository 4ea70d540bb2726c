package draft

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/backend-lavado/internal/catalog"
	"github.com/noah-isme/backend-lavado/internal/common"
	"github.com/noah-isme/backend-lavado/internal/invoice"
	"github.com/noah-isme/backend-lavado/internal/obs"
	"github.com/noah-isme/backend-lavado/internal/pricing"
	"github.com/noah-isme/backend-lavado/internal/promotion"
	"github.com/noah-isme/backend-lavado/internal/vehicle"
)

// Recompute triggers reported to metrics.
const (
	TriggerStart      = "start"
	TriggerGeneral    = "general"
	TriggerAdditional = "additional"
	TriggerCustom     = "custom"
	TriggerRemove     = "remove"
	TriggerQuantity   = "quantity"
	TriggerPromotion  = "promotion"
	TriggerPayment    = "payment"
)

// Vehicles resolves the vehicle a draft is opened for.
type Vehicles interface {
	Resolve(ctx context.Context, plate string) (vehicle.Vehicle, error)
}

// TaxSource supplies the merchant tax configuration.
type TaxSource interface {
	TaxConfig(ctx context.Context) (pricing.TaxConfig, error)
}

// Promotions looks up promotions for discount selection.
type Promotions interface {
	Suggest(ctx context.Context) (promotion.Promotion, bool, error)
	GetActive(ctx context.Context, id int64) (promotion.Promotion, error)
}

// Catalog turns catalog services into draft lines.
type Catalog interface {
	LineFor(ctx context.Context, kind catalog.Kind, id int64, category string, group int) (pricing.LineItem, error)
}

// Invoices persists finalized drafts.
type Invoices interface {
	Create(ctx context.Context, in invoice.Input) (invoice.Invoice, error)
}

// Locker serialises mutations of one draft.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// CustomInput is the free-form service line.
type CustomInput struct {
	Description string          `json:"descripcion" validate:"required,min=3,max=100"`
	UnitPrice   decimal.Decimal `json:"valor"`
}

// Service runs the draft lifecycle: every mutation loads the session under a
// lock, applies one change, recomputes the totals once and saves.
type Service struct {
	Store      Store
	Locker     Locker
	LockTTL    time.Duration
	Vehicles   Vehicles
	Tax        TaxSource
	Promotions Promotions
	Catalog    Catalog
	Invoices   Invoices
	Now        func() time.Time
	Logger     *zerolog.Logger
}

// Start opens a draft for the vehicle with plate. The lowest active promotion
// becomes the initial discount without being selected.
func (s *Service) Start(ctx context.Context, plate string) (Session, error) {
	v, err := s.Vehicles.Resolve(ctx, plate)
	if err != nil {
		return Session{}, err
	}
	var tax pricing.TaxConfig
	if s.Tax != nil {
		if tax, err = s.Tax.TaxConfig(ctx); err != nil {
			return Session{}, fmt.Errorf("load tax config: %w", err)
		}
	}
	now := s.now()
	sess := Session{
		ID:         uuid.New(),
		Plate:      v.Plate,
		Category:   v.Category,
		Group:      v.Group,
		CustomerID: v.CustomerDocument,
		Promotion:  promotion.None(),
		Tax:        tax,
		StartedAt:  now,
		UpdatedAt:  now,
	}
	if s.Promotions != nil {
		p, ok, err := s.Promotions.Suggest(ctx)
		if err != nil {
			return Session{}, fmt.Errorf("suggest promotion: %w", err)
		}
		if ok {
			id := p.ID
			sess.SuggestedPromotion = &id
			sess.SetDiscount(p.Percent)
		}
	}
	sess.recompute()
	if err := s.Store.Save(ctx, sess); err != nil {
		return Session{}, err
	}
	obs.DraftRecomputed(TriggerStart)
	return sess, nil
}

// Get returns the current state of a draft.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Session, error) {
	return s.Store.Load(ctx, id)
}

// SelectGeneral makes the general service the single general line.
func (s *Service) SelectGeneral(ctx context.Context, id uuid.UUID, serviceID int64) (Session, error) {
	return s.mutate(ctx, id, TriggerGeneral, func(ctx context.Context, sess *Session) error {
		line, err := s.Catalog.LineFor(ctx, catalog.KindGeneral, serviceID, sess.Category, sess.Group)
		if err != nil {
			return err
		}
		sess.SelectGeneral(line)
		return nil
	})
}

// ToggleAdditional adds the additional service or removes it when present.
func (s *Service) ToggleAdditional(ctx context.Context, id uuid.UUID, serviceID int64) (Session, error) {
	return s.mutate(ctx, id, TriggerAdditional, func(ctx context.Context, sess *Session) error {
		if sess.Remove(serviceID) {
			return nil
		}
		line, err := s.Catalog.LineFor(ctx, catalog.KindAdditional, serviceID, sess.Category, sess.Group)
		if err != nil {
			return err
		}
		sess.Upsert(line)
		return nil
	})
}

// AddCustom sets the free-form line of the draft.
func (s *Service) AddCustom(ctx context.Context, id uuid.UUID, in CustomInput) (Session, error) {
	in.Description = strings.TrimSpace(in.Description)
	if err := common.ValidateStruct(in); err != nil {
		return Session{}, err
	}
	if !in.UnitPrice.IsPositive() {
		return Session{}, common.Unprocessable("validation failed", map[string]string{"valor": "gt=0"})
	}
	return s.mutate(ctx, id, TriggerCustom, func(_ context.Context, sess *Session) error {
		sess.AddCustom(common.Capitalize(in.Description), in.UnitPrice)
		return nil
	})
}

// RemoveLine drops the line for serviceID.
func (s *Service) RemoveLine(ctx context.Context, id uuid.UUID, serviceID int64) (Session, error) {
	return s.mutate(ctx, id, TriggerRemove, func(_ context.Context, sess *Session) error {
		if !sess.Remove(serviceID) {
			return pricing.ErrLineNotFound
		}
		return nil
	})
}

// SetQuantity stores the normalised quantity of a variable-priced line.
func (s *Service) SetQuantity(ctx context.Context, id uuid.UUID, serviceID int64, raw string) (Session, error) {
	return s.mutate(ctx, id, TriggerQuantity, func(_ context.Context, sess *Session) error {
		_, err := sess.SetQuantity(serviceID, raw)
		return err
	})
}

// SelectPromotion toggles the active promotion as the draft discount.
func (s *Service) SelectPromotion(ctx context.Context, id uuid.UUID, promotionID int64) (Session, error) {
	return s.mutate(ctx, id, TriggerPromotion, func(ctx context.Context, sess *Session) error {
		p, err := s.Promotions.GetActive(ctx, promotionID)
		if err != nil {
			return err
		}
		sess.selectPromotion(p)
		return nil
	})
}

// ClearPromotion removes any promotion and zeroes the discount.
func (s *Service) ClearPromotion(ctx context.Context, id uuid.UUID) (Session, error) {
	return s.mutate(ctx, id, TriggerPromotion, func(_ context.Context, sess *Session) error {
		sess.clearPromotion()
		return nil
	})
}

// SetPaymentMethod records how the customer pays.
func (s *Service) SetPaymentMethod(ctx context.Context, id uuid.UUID, method string) (Session, error) {
	method = common.Upper(method)
	if !validPaymentMethod(method) {
		return Session{}, common.Unprocessable("validation failed", map[string]string{"medio_pago": "oneof=TR EF TD TC"})
	}
	return s.mutate(ctx, id, TriggerPayment, func(_ context.Context, sess *Session) error {
		sess.PaymentMethod = method
		return nil
	})
}

// Finalize turns the draft into an invoice and discards it.
func (s *Service) Finalize(ctx context.Context, id uuid.UUID) (out invoice.Invoice, err error) {
	ctx, span := obs.StartSpan(ctx, "draft.finalize", attribute.String("lavado.draft.id", id.String()))
	defer func() { obs.EndSpan(span, err) }()

	err = s.Locker.WithLock(ctx, id.String(), s.LockTTL, func(ctx context.Context) error {
		sess, err := s.Store.Load(ctx, id)
		if err != nil {
			return err
		}
		if err := sess.open(); err != nil {
			return err
		}
		in, err := invoiceInput(sess)
		if err != nil {
			return err
		}
		created, err := s.Invoices.Create(ctx, in)
		if err != nil {
			return err
		}
		out = created
		delErr := s.Store.Delete(ctx, id)
		if delErr == nil {
			return nil
		}
		// the draft must not produce a second invoice when finalize is retried
		sess.Invoice = &created.Number
		if err := s.Store.Save(ctx, sess); err != nil {
			return fmt.Errorf("invoice %d created but draft %s is still open: %w", created.Number, id, errors.Join(delErr, err))
		}
		if s.Logger != nil {
			s.Logger.Warn().Err(delErr).Str("draft", id.String()).Int64("invoice", created.Number).Msg("finalized draft kept as closed")
		}
		return nil
	})
	return out, err
}

// Discard drops the draft without saving anything.
func (s *Service) Discard(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Store.Load(ctx, id); err != nil {
		return err
	}
	return s.Store.Delete(ctx, id)
}

func (s *Service) mutate(ctx context.Context, id uuid.UUID, trigger string, fn func(context.Context, *Session) error) (Session, error) {
	var out Session
	err := s.Locker.WithLock(ctx, id.String(), s.LockTTL, func(ctx context.Context) error {
		sess, err := s.Store.Load(ctx, id)
		if err != nil {
			return err
		}
		if err := sess.open(); err != nil {
			return err
		}
		if err := fn(ctx, &sess); err != nil {
			return err
		}
		sess.recompute()
		sess.UpdatedAt = s.now()
		if err := s.Store.Save(ctx, sess); err != nil {
			return err
		}
		out = sess
		return nil
	})
	if err != nil {
		return Session{}, err
	}
	obs.DraftRecomputed(trigger)
	return out, nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func invoiceInput(sess Session) (invoice.Input, error) {
	if len(sess.Lines) == 0 {
		return invoice.Input{}, ErrEmpty
	}
	if sess.PaymentMethod == "" {
		return invoice.Input{}, ErrPaymentMethodMissing
	}
	details := map[string]string{}
	lines := make([]invoice.LineInput, 0, len(sess.Lines))
	for i, l := range sess.Lines {
		if !l.Quantity.IsPositive() {
			details[fmt.Sprintf("servicios[%d].cantidad", i)] = "gt=0"
		}
		variable := l.VariablePriced
		lines = append(lines, invoice.LineInput{
			ServiceID:      l.ServiceID,
			Description:    l.Description,
			UnitPrice:      l.UnitPrice,
			Quantity:       l.Quantity,
			VariablePriced: &variable,
		})
	}
	if len(details) > 0 {
		return invoice.Input{}, common.Unprocessable("validation failed", details)
	}
	return invoice.Input{
		Plate:           sess.Plate,
		Category:        sess.Category,
		Group:           sess.Group,
		CustomerID:      sess.CustomerID,
		PaymentMethod:   sess.PaymentMethod,
		DiscountPercent: sess.DiscountPercent,
		Lines:           lines,
		Gross:           decimal.NewNullDecimal(sess.Totals.Gross),
		DiscountAmount:  decimal.NewNullDecimal(sess.Totals.DiscountAmount),
		Subtotal:        decimal.NewNullDecimal(sess.Totals.Subtotal),
		TaxAmount:       decimal.NewNullDecimal(sess.Totals.TaxAmount),
		Total:           decimal.NewNullDecimal(sess.Totals.Total),
	}, nil
}

func validPaymentMethod(method string) bool {
	for _, m := range invoice.PaymentMethods() {
		if m == method {
			return true
		}
	}
	return false
}

