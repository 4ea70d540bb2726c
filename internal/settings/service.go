package settings

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-lavado/internal/cache"
	"github.com/noah-isme/backend-lavado/internal/common"
	"github.com/noah-isme/backend-lavado/internal/pricing"
)

// ErrNotFound is returned by stores when no settings were saved yet.
var ErrNotFound = errors.New("settings not found")

// Store persists the settings document.
type Store interface {
	LoadSettings(ctx context.Context) (Settings, error)
	SaveSettings(ctx context.Context, s Settings) error
}

// Service reads and updates merchant settings through a read-through cache.
type Service struct {
	Store  Store
	Cache  *cache.JSON
	Logger *zerolog.Logger
}

func (s *Service) cacheKey() string {
	return s.Cache.Key("current")
}

// Get returns the current settings, saving the defaults on first use.
func (s *Service) Get(ctx context.Context) (Settings, error) {
	if s == nil || s.Store == nil {
		return Settings{}, errors.New("settings service not configured")
	}
	var cached Settings
	if ok, err := s.Cache.Get(ctx, s.cacheKey(), &cached); err == nil && ok {
		return cached, nil
	}
	current, err := s.Store.LoadSettings(ctx)
	if errors.Is(err, ErrNotFound) {
		current = Defaults()
		if err := s.Store.SaveSettings(ctx, current); err != nil {
			return Settings{}, err
		}
	} else if err != nil {
		return Settings{}, err
	}
	s.store(ctx, current)
	return current, nil
}

// TaxConfig returns the tax configuration of the current settings.
func (s *Service) TaxConfig(ctx context.Context) (pricing.TaxConfig, error) {
	current, err := s.Get(ctx)
	if err != nil {
		return pricing.TaxConfig{}, err
	}
	return current.TaxConfig(), nil
}

// Update merges patch into the current settings.
func (s *Service) Update(ctx context.Context, patch Patch) (Settings, error) {
	if patch.Empty() {
		return Settings{}, common.BadRequest("no fields to update")
	}
	if patch.Company != nil {
		if err := common.ValidateStruct(patch.Company); err != nil {
			return Settings{}, err
		}
		if r := patch.Company.TaxRate; r != nil && (r.IsNegative() || r.GreaterThan(decimal.NewFromInt(100))) {
			return Settings{}, common.Unprocessable("validation failed", map[string]string{"valor_iva": "between=0,100"})
		}
	}
	current, err := s.Get(ctx)
	if err != nil {
		return Settings{}, err
	}
	next := patch.Apply(current)
	if err := s.Store.SaveSettings(ctx, next); err != nil {
		return Settings{}, err
	}
	s.store(ctx, next)
	return next, nil
}

// Reset restores and saves the defaults.
func (s *Service) Reset(ctx context.Context) (Settings, error) {
	if s == nil || s.Store == nil {
		return Settings{}, errors.New("settings service not configured")
	}
	defaults := Defaults()
	if err := s.Store.SaveSettings(ctx, defaults); err != nil {
		return Settings{}, err
	}
	s.store(ctx, defaults)
	return defaults, nil
}

func (s *Service) store(ctx context.Context, v Settings) {
	if err := s.Cache.Set(ctx, s.cacheKey(), v); err != nil && s.Logger != nil {
		s.Logger.Error().Err(err).Msg("cache settings")
	}
}
