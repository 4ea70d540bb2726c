package invoice

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/backend-lavado/internal/common"
	"github.com/noah-isme/backend-lavado/internal/events"
	"github.com/noah-isme/backend-lavado/internal/obs"
	"github.com/noah-isme/backend-lavado/internal/pricing"
)

// Store persists invoices and their lines.
type Store interface {
	ListInvoices(ctx context.Context, f Filter, limit, offset int) ([]Invoice, int, error)
	GetInvoice(ctx context.Context, number int64) (Invoice, error)
	// CreateInvoice assigns the next number, never below startNumber.
	CreateInvoice(ctx context.Context, inv Invoice, startNumber int64) (Invoice, error)
	ReplaceInvoice(ctx context.Context, inv Invoice) (Invoice, error)
	DeleteInvoice(ctx context.Context, number int64) error
}

// TaxSource supplies the current merchant tax configuration.
type TaxSource interface {
	TaxConfig(ctx context.Context) (pricing.TaxConfig, error)
}

// Publisher emits domain events.
type Publisher interface {
	Emit(ctx context.Context, topic string, aggregateID string, payload any) (events.Event, error)
}

// LineInput is one submitted service line.
type LineInput struct {
	ServiceID      int64           `json:"id_servicio" validate:"gt=0"`
	Description    string          `json:"descripcion" validate:"required,max=120"`
	UnitPrice      decimal.Decimal `json:"valor"`
	Quantity       decimal.Decimal `json:"cantidad"`
	VariablePriced *bool           `json:"precio_variable"`
}

// Input is the submitted invoice. Totals sent by the client are compared
// against the server computation and otherwise ignored.
type Input struct {
	Date            *time.Time          `json:"fecha"`
	Plate           string              `json:"placa" validate:"required,min=5,max=10"`
	Category        string              `json:"categoria" validate:"required,max=30"`
	Group           int                 `json:"grupo" validate:"gte=0"`
	CustomerID      string              `json:"id_cliente" validate:"required,max=15"`
	PaymentMethod   string              `json:"medio_pago" validate:"required,oneof=TR EF TD TC"`
	DiscountPercent decimal.Decimal     `json:"descuento"`
	Lines           []LineInput         `json:"servicios" validate:"required,min=1,dive"`
	TaxRate         decimal.NullDecimal `json:"iva"`
	TaxAmount       decimal.NullDecimal `json:"vlr_iva"`
	Gross           decimal.NullDecimal `json:"bruto"`
	DiscountAmount  decimal.NullDecimal `json:"vlr_descuento"`
	Subtotal        decimal.NullDecimal `json:"subtotal"`
	Total           decimal.NullDecimal `json:"total"`
}

// Service validates, prices and stores invoices.
type Service struct {
	Store       Store
	Tax         TaxSource
	Events      Publisher
	StartNumber int64
	Location    *time.Location
	Now         func() time.Time
	Logger      *zerolog.Logger
}

var errNotConfigured = errors.New("invoice service not configured")

// List returns a page of invoices and the total match count. A page with no
// size returns every match.
func (s *Service) List(ctx context.Context, f Filter, page common.Page) ([]Invoice, int, error) {
	if s == nil || s.Store == nil {
		return nil, 0, errNotConfigured
	}
	f.PaymentMethod = common.Upper(f.PaymentMethod)
	f.Plate = common.Upper(f.Plate)
	f.CustomerID = strings.TrimSpace(f.CustomerID)
	if page.Size <= 0 {
		return s.Store.ListInvoices(ctx, f, 0, 0)
	}
	return s.Store.ListInvoices(ctx, f, page.Size, page.Offset())
}

// Get returns one invoice.
func (s *Service) Get(ctx context.Context, number int64) (Invoice, error) {
	if s == nil || s.Store == nil {
		return Invoice{}, errNotConfigured
	}
	return s.Store.GetInvoice(ctx, number)
}

// Create prices in and stores it under the next invoice number.
func (s *Service) Create(ctx context.Context, in Input) (_ Invoice, err error) {
	if s == nil || s.Store == nil {
		return Invoice{}, errNotConfigured
	}
	ctx, span := obs.StartSpan(ctx, "invoice.create")
	defer func() { obs.EndSpan(span, err) }()

	inv, err := s.build(ctx, in)
	if err != nil {
		return Invoice{}, err
	}
	start := s.StartNumber
	if start <= 0 {
		start = 1
	}
	created, err := s.Store.CreateInvoice(ctx, inv, start)
	if err != nil {
		return Invoice{}, err
	}
	span.SetAttributes(attribute.Int64("lavado.invoice.number", created.Number))
	obs.InvoiceCreated(created.PaymentMethod)
	s.emit(ctx, events.TopicInvoiceCreated, created)
	return created, nil
}

// Update replaces the header and lines of an existing invoice and prices it
// again with the current tax configuration.
func (s *Service) Update(ctx context.Context, number int64, in Input) (Invoice, error) {
	if s == nil || s.Store == nil {
		return Invoice{}, errNotConfigured
	}
	current, err := s.Store.GetInvoice(ctx, number)
	if err != nil {
		return Invoice{}, err
	}
	inv, err := s.build(ctx, in)
	if err != nil {
		return Invoice{}, err
	}
	inv.Number = number
	if in.Date == nil {
		inv.IssuedAt = current.IssuedAt
	}
	updated, err := s.Store.ReplaceInvoice(ctx, inv)
	if err != nil {
		return Invoice{}, err
	}
	s.emit(ctx, events.TopicInvoiceUpdated, updated)
	return updated, nil
}

// Delete removes an invoice.
func (s *Service) Delete(ctx context.Context, number int64) error {
	if s == nil || s.Store == nil {
		return errNotConfigured
	}
	current, err := s.Store.GetInvoice(ctx, number)
	if err != nil {
		return err
	}
	if err := s.Store.DeleteInvoice(ctx, number); err != nil {
		return err
	}
	s.emit(ctx, events.TopicInvoiceDeleted, current)
	return nil
}

func (s *Service) build(ctx context.Context, in Input) (Invoice, error) {
	in = normalize(in)
	if err := common.ValidateStruct(in); err != nil {
		return Invoice{}, err
	}
	details := map[string]string{}
	if in.DiscountPercent.IsNegative() || in.DiscountPercent.GreaterThan(decimal.NewFromInt(100)) {
		details["descuento"] = "between=0,100"
	}
	lines := make([]Line, 0, len(in.Lines))
	items := make([]pricing.LineItem, 0, len(in.Lines))
	for i, l := range in.Lines {
		prefix := "servicios[" + strconv.Itoa(i) + "]."
		if !l.UnitPrice.IsPositive() {
			details[prefix+"valor"] = "gt=0"
		}
		qty := pricing.RoundTo(l.Quantity, 2)
		if !qty.IsPositive() {
			details[prefix+"cantidad"] = "gt=0"
		}
		line := Line{
			ServiceID:      l.ServiceID,
			Description:    l.Description,
			UnitPrice:      l.UnitPrice,
			Quantity:       qty,
			VariablePriced: l.VariablePriced != nil && *l.VariablePriced,
		}
		lines = append(lines, line)
		items = append(items, line.item())
	}
	if len(details) > 0 {
		return Invoice{}, common.Unprocessable("validation failed", details)
	}

	var tax pricing.TaxConfig
	if s.Tax != nil {
		cfg, err := s.Tax.TaxConfig(ctx)
		if err != nil {
			return Invoice{}, fmt.Errorf("load tax config: %w", err)
		}
		tax = cfg
	}
	totals := pricing.Compute(items, in.DiscountPercent, tax)
	if !totals.Total.IsPositive() {
		return Invoice{}, common.Unprocessable("validation failed", map[string]string{"total": "gt=0"})
	}
	if mismatch := clientMismatch(in, totals); mismatch != "" {
		obs.InvoiceTotalsMismatch()
		if s.Logger != nil {
			s.Logger.Warn().
				Str("plate", in.Plate).
				Str("field", mismatch).
				Str("server_total", totals.Total.String()).
				Msg("client totals overridden")
		}
	}

	inv := Invoice{
		IssuedAt:        s.now(),
		Plate:           in.Plate,
		Category:        in.Category,
		Group:           in.Group,
		CustomerID:      in.CustomerID,
		PaymentMethod:   in.PaymentMethod,
		TaxRate:         tax.Rate,
		DiscountPercent: in.DiscountPercent,
		Lines:           lines,
	}
	if in.Date != nil && !in.Date.IsZero() {
		inv.IssuedAt = s.inLocation(*in.Date)
	}
	inv.setTotals(totals)
	return inv, nil
}

func (s *Service) emit(ctx context.Context, topic string, inv Invoice) {
	if s.Events == nil {
		return
	}
	payload := events.InvoiceChanged{
		Number:        inv.Number,
		IssuedAt:      inv.IssuedAt,
		PaymentMethod: inv.PaymentMethod,
		Total:         inv.Total,
	}
	if _, err := s.Events.Emit(ctx, topic, strconv.FormatInt(inv.Number, 10), payload); err != nil && s.Logger != nil {
		s.Logger.Error().Err(err).Str("topic", topic).Int64("invoice", inv.Number).Msg("emit invoice event")
	}
}

func (s *Service) now() time.Time {
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	return s.inLocation(now)
}

func (s *Service) inLocation(t time.Time) time.Time {
	if s.Location != nil {
		return t.In(s.Location)
	}
	return t
}

func (l Line) item() pricing.LineItem {
	return pricing.LineItem{
		ServiceID:      l.ServiceID,
		Description:    l.Description,
		UnitPrice:      l.UnitPrice,
		Quantity:       l.Quantity,
		VariablePriced: l.VariablePriced,
	}
}

func normalize(in Input) Input {
	in.Plate = common.Upper(in.Plate)
	in.Category = common.Capitalize(in.Category)
	in.CustomerID = strings.TrimSpace(in.CustomerID)
	in.PaymentMethod = common.Upper(in.PaymentMethod)
	lines := make([]LineInput, len(in.Lines))
	for i, l := range in.Lines {
		l.Description = strings.TrimSpace(l.Description)
		lines[i] = l
	}
	in.Lines = lines
	return in
}

// clientMismatch names the first submitted total that differs from the server
// computation, or returns "".
func clientMismatch(in Input, t pricing.Totals) string {
	checks := []struct {
		name   string
		client decimal.NullDecimal
		server decimal.Decimal
	}{
		{"bruto", in.Gross, t.Gross},
		{"vlr_descuento", in.DiscountAmount, t.DiscountAmount},
		{"subtotal", in.Subtotal, t.Subtotal},
		{"vlr_iva", in.TaxAmount, t.TaxAmount},
		{"total", in.Total, t.Total},
	}
	for _, c := range checks {
		if c.client.Valid && !c.client.Decimal.Equal(c.server) {
			return c.name
		}
	}
	return ""
}
