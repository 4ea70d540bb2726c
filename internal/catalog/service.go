package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-lavado/internal/cache"
	"github.com/noah-isme/backend-lavado/internal/common"
	"github.com/noah-isme/backend-lavado/internal/pricing"
	"github.com/noah-isme/backend-lavado/internal/vehicle"
)

// Service orchestrates catalog storage, validation and list caching.
type Service struct {
	store  Store
	cache  *cache.JSON
	logger *zerolog.Logger
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Store  Store
	Cache  *cache.JSON
	Logger *zerolog.Logger
}

// NewService constructs a catalog service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("catalog store is required")
	}
	return &Service{store: cfg.Store, cache: cfg.Cache, logger: cfg.Logger}, nil
}

// GeneralInput is the writable shape of a general service.
type GeneralInput struct {
	Name   string          `json:"nombre" validate:"required,min=3,max=100"`
	Prices []CategoryPrice `json:"valores" validate:"required,min=1"`
}

// AdditionalInput is the writable shape of an additional service.
type AdditionalInput struct {
	Name           string          `json:"nombre" validate:"required,min=3,max=100"`
	Categories     []string        `json:"categorias"`
	VariablePriced bool            `json:"precio_variable"`
	Unit           *string         `json:"variable" validate:"omitnil,oneof=m2 lt kg und"`
	BasePrice      decimal.Decimal `json:"precio_base"`
}

// ListGeneral returns general services, only those priced for category when given.
func (s *Service) ListGeneral(ctx context.Context, category string) ([]GeneralService, error) {
	rows, err := cache.Remember(ctx, s.cache, s.cache.Key(KindGeneral), s.store.ListGeneral, s.warnCache)
	if err != nil {
		return nil, err
	}
	if category == "" {
		return rows, nil
	}
	out := make([]GeneralService, 0, len(rows))
	for _, svc := range rows {
		if svc.coversCategory(category) {
			out = append(out, svc)
		}
	}
	return out, nil
}

// ListAdditional returns additional services, only those offered for category when given.
func (s *Service) ListAdditional(ctx context.Context, category string) ([]AdditionalService, error) {
	rows, err := cache.Remember(ctx, s.cache, s.cache.Key(KindAdditional), s.store.ListAdditional, s.warnCache)
	if err != nil {
		return nil, err
	}
	if category == "" {
		return rows, nil
	}
	out := make([]AdditionalService, 0, len(rows))
	for _, svc := range rows {
		if svc.Offers(category) {
			out = append(out, svc)
		}
	}
	return out, nil
}

// GetGeneral loads one general service.
func (s *Service) GetGeneral(ctx context.Context, id int64) (GeneralService, error) {
	return s.store.GetGeneral(ctx, id)
}

// GetAdditional loads one additional service.
func (s *Service) GetAdditional(ctx context.Context, id int64) (AdditionalService, error) {
	return s.store.GetAdditional(ctx, id)
}

// CreateGeneral validates and stores a general service.
func (s *Service) CreateGeneral(ctx context.Context, in GeneralInput) (GeneralService, error) {
	svc, err := generalFromInput(in)
	if err != nil {
		return GeneralService{}, err
	}
	out, err := s.store.InsertGeneral(ctx, svc)
	if err != nil {
		return GeneralService{}, err
	}
	s.invalidate(ctx, KindGeneral)
	return out, nil
}

// UpdateGeneral replaces general service id.
func (s *Service) UpdateGeneral(ctx context.Context, id int64, in GeneralInput) (GeneralService, error) {
	svc, err := generalFromInput(in)
	if err != nil {
		return GeneralService{}, err
	}
	svc.ID = id
	out, err := s.store.UpdateGeneral(ctx, svc)
	if err != nil {
		return GeneralService{}, err
	}
	s.invalidate(ctx, KindGeneral)
	return out, nil
}

// CreateAdditional validates and stores an additional service.
func (s *Service) CreateAdditional(ctx context.Context, in AdditionalInput) (AdditionalService, error) {
	svc, err := additionalFromInput(in)
	if err != nil {
		return AdditionalService{}, err
	}
	out, err := s.store.InsertAdditional(ctx, svc)
	if err != nil {
		return AdditionalService{}, err
	}
	s.invalidate(ctx, KindAdditional)
	return out, nil
}

// UpdateAdditional replaces additional service id.
func (s *Service) UpdateAdditional(ctx context.Context, id int64, in AdditionalInput) (AdditionalService, error) {
	svc, err := additionalFromInput(in)
	if err != nil {
		return AdditionalService{}, err
	}
	svc.ID = id
	out, err := s.store.UpdateAdditional(ctx, svc)
	if err != nil {
		return AdditionalService{}, err
	}
	s.invalidate(ctx, KindAdditional)
	return out, nil
}

// Delete removes service id of kind.
func (s *Service) Delete(ctx context.Context, kind Kind, id int64) error {
	var err error
	switch kind {
	case KindGeneral:
		err = s.store.DeleteGeneral(ctx, id)
	case KindAdditional:
		err = s.store.DeleteAdditional(ctx, id)
	default:
		return ErrUnknownKind
	}
	if err != nil {
		return err
	}
	s.invalidate(ctx, kind)
	return nil
}

// LineFor resolves service id of kind into a draft line for a vehicle of
// category and group. Description and price are copied at call time.
func (s *Service) LineFor(ctx context.Context, kind Kind, id int64, category string, group int) (pricing.LineItem, error) {
	switch kind {
	case KindGeneral:
		svc, err := s.store.GetGeneral(ctx, id)
		if err != nil {
			return pricing.LineItem{}, err
		}
		return svc.Line(category, group)
	case KindAdditional:
		svc, err := s.store.GetAdditional(ctx, id)
		if err != nil {
			return pricing.LineItem{}, err
		}
		return svc.Line(category)
	}
	return pricing.LineItem{}, ErrUnknownKind
}

func (s *Service) warnCache(err error) {
	if s.logger != nil {
		s.logger.Warn().Err(err).Msg("catalog cache")
	}
}

func (s *Service) invalidate(ctx context.Context, kind Kind) {
	key := s.cache.Key(kind)
	if err := s.cache.Delete(ctx, key); err != nil && s.logger != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("catalog cache invalidation failed")
	}
}

func generalFromInput(in GeneralInput) (GeneralService, error) {
	if err := common.ValidateStruct(in); err != nil {
		return GeneralService{}, err
	}
	details := map[string]string{}
	prices := make([]CategoryPrice, 0, len(in.Prices))
	seen := map[string]bool{}
	for _, cp := range in.Prices {
		category, ok := vehicle.NormalizeCategory(cp.Category)
		if !ok {
			details["valores.categoria"] = "oneof=" + strings.Join(vehicle.Categories(), " ")
			continue
		}
		if seen[category] {
			details["valores.categoria"] = "unique"
			continue
		}
		seen[category] = true
		if len(cp.Groups) == 0 {
			details["valores.grupos"] = "min=1"
		}
		for _, g := range cp.Groups {
			if g.Group <= 0 {
				details["valores.grupos.id"] = "gt=0"
			}
			if g.Price.IsNegative() {
				details["valores.grupos.precio"] = "gte=0"
			}
		}
		prices = append(prices, CategoryPrice{Category: category, Groups: cp.Groups})
	}
	if len(details) > 0 {
		return GeneralService{}, common.Unprocessable("validation failed", details)
	}
	return GeneralService{Name: common.Capitalize(in.Name), Kind: KindGeneral, Prices: prices}, nil
}

func additionalFromInput(in AdditionalInput) (AdditionalService, error) {
	if in.Unit != nil && *in.Unit == "" {
		in.Unit = nil
	}
	if err := common.ValidateStruct(in); err != nil {
		return AdditionalService{}, err
	}
	details := map[string]string{}
	categories := make([]string, 0, len(in.Categories))
	for _, raw := range in.Categories {
		category, ok := vehicle.NormalizeCategory(raw)
		if !ok {
			details["categorias"] = "oneof=" + strings.Join(vehicle.Categories(), " ")
			continue
		}
		categories = append(categories, category)
	}
	if in.BasePrice.IsNegative() {
		details["precio_base"] = "gte=0"
	}
	if len(details) > 0 {
		return AdditionalService{}, common.Unprocessable("validation failed", details)
	}
	unit := in.Unit
	if !in.VariablePriced {
		unit = nil
	}
	return AdditionalService{
		Name:           common.Capitalize(in.Name),
		Kind:           KindAdditional,
		Categories:     categories,
		VariablePriced: in.VariablePriced,
		Unit:           unit,
		BasePrice:      in.BasePrice,
	}, nil
}
