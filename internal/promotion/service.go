package promotion

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-lavado/internal/common"
)

// Store captures the persistence required by the promotion service.
type Store interface {
	ListPromotions(ctx context.Context) ([]Promotion, error)
	GetPromotion(ctx context.Context, id int64) (Promotion, error)
	InsertPromotion(ctx context.Context, p Promotion) (Promotion, error)
	UpdatePromotion(ctx context.Context, p Promotion) (Promotion, error)
	DeletePromotion(ctx context.Context, id int64) error
}

// Input is the writable shape of a promotion.
type Input struct {
	Description string          `json:"descripcion" validate:"required,min=3,max=50"`
	StartDate   *common.Date    `json:"fecha_inicio"`
	EndDate     *common.Date    `json:"fecha_fin"`
	Percent     decimal.Decimal `json:"porcentaje"`
	Enabled     *bool           `json:"estado" validate:"required"`
}

// Service manages promotions and evaluates which are active.
type Service struct {
	Store    Store
	Now      func() time.Time
	Location *time.Location
}

var errNotConfigured = errors.New("promotion service not configured")

// List returns all promotions.
func (s *Service) List(ctx context.Context) ([]Promotion, error) {
	if s == nil || s.Store == nil {
		return nil, errNotConfigured
	}
	return s.Store.ListPromotions(ctx)
}

// Active returns the promotions active now, lowest percent first.
func (s *Service) Active(ctx context.Context) ([]Promotion, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return ActiveSorted(all, s.now()), nil
}

// Suggest returns the lowest active promotion.
func (s *Service) Suggest(ctx context.Context) (Promotion, bool, error) {
	all, err := s.List(ctx)
	if err != nil {
		return Promotion{}, false, err
	}
	p, ok := Suggest(all, s.now())
	return p, ok, nil
}

// Get returns a promotion by id.
func (s *Service) Get(ctx context.Context, id int64) (Promotion, error) {
	if s == nil || s.Store == nil {
		return Promotion{}, errNotConfigured
	}
	return s.Store.GetPromotion(ctx, id)
}

// GetActive returns the promotion when it is active now.
func (s *Service) GetActive(ctx context.Context, id int64) (Promotion, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return Promotion{}, err
	}
	if !p.IsActive(s.now()) {
		return Promotion{}, ErrPromotionInactive
	}
	return p, nil
}

// Create validates and stores a new promotion.
func (s *Service) Create(ctx context.Context, in Input) (Promotion, error) {
	if s == nil || s.Store == nil {
		return Promotion{}, errNotConfigured
	}
	p, err := fromInput(in)
	if err != nil {
		return Promotion{}, err
	}
	return s.Store.InsertPromotion(ctx, p)
}

// Update validates and overwrites the promotion with id.
func (s *Service) Update(ctx context.Context, id int64, in Input) (Promotion, error) {
	if s == nil || s.Store == nil {
		return Promotion{}, errNotConfigured
	}
	p, err := fromInput(in)
	if err != nil {
		return Promotion{}, err
	}
	p.ID = id
	return s.Store.UpdatePromotion(ctx, p)
}

// Delete removes the promotion with id.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if s == nil || s.Store == nil {
		return errNotConfigured
	}
	return s.Store.DeletePromotion(ctx, id)
}

func (s *Service) now() time.Time {
	now := time.Now()
	if s != nil && s.Now != nil {
		now = s.Now()
	}
	if s != nil && s.Location != nil {
		now = now.In(s.Location)
	}
	return now
}

func fromInput(in Input) (Promotion, error) {
	in.Description = strings.TrimSpace(in.Description)
	if err := common.ValidateStruct(in); err != nil {
		return Promotion{}, err
	}
	details := map[string]string{}
	if in.Percent.IsNegative() || in.Percent.GreaterThan(decimal.NewFromInt(100)) {
		details["porcentaje"] = "between=0,100"
	}
	start, end := nonZero(in.StartDate), nonZero(in.EndDate)
	if start != nil && end != nil && end.Before(*start) {
		details["fecha_fin"] = "gtefield=fecha_inicio"
	}
	if len(details) > 0 {
		return Promotion{}, common.Unprocessable("validation failed", details)
	}
	return Promotion{
		Description: common.Capitalize(in.Description),
		StartDate:   start,
		EndDate:     end,
		Percent:     in.Percent,
		Enabled:     *in.Enabled,
	}, nil
}

func nonZero(d *common.Date) *common.Date {
	if d == nil || d.IsZero() {
		return nil
	}
	out := *d
	return &out
}
