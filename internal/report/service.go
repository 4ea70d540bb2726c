package report

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-lavado/internal/cache"
	"github.com/noah-isme/backend-lavado/internal/common"
	"github.com/noah-isme/backend-lavado/internal/invoice"
	"github.com/noah-isme/backend-lavado/internal/obs"
)

// CachePrefix namespaces report cache keys; the worker purges it when
// invoices change.
const CachePrefix = "report"

// Invoices lists stored invoices.
type Invoices interface {
	List(ctx context.Context, f invoice.Filter, page common.Page) ([]invoice.Invoice, int, error)
}

// Service answers sales reports through a read-through cache.
type Service struct {
	Invoices Invoices
	Cache    *cache.JSON
	Location *time.Location
	Logger   *zerolog.Logger
}

// Sales returns every invoice matching f.
func (s *Service) Sales(ctx context.Context, f invoice.Filter) ([]invoice.Invoice, error) {
	if s == nil || s.Invoices == nil {
		return nil, errors.New("report service not configured")
	}
	key := s.Cache.Key("sales", stamp(f.From), stamp(f.To), f.CustomerID, f.PaymentMethod, f.Plate)
	var cached []invoice.Invoice
	if s.lookup(ctx, key, &cached) {
		return cached, nil
	}
	rows, _, err := s.Invoices.List(ctx, f, common.AllRows)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []invoice.Invoice{}
	}
	s.fill(ctx, key, rows)
	return rows, nil
}

// Summary aggregates the invoices issued between from and to, both
// inclusive calendar days. Nil bounds are open.
func (s *Service) Summary(ctx context.Context, from, to *common.Date) (Summary, error) {
	if s == nil || s.Invoices == nil {
		return Summary{}, errors.New("report service not configured")
	}
	loc := s.location()
	var f invoice.Filter
	if from != nil {
		t := from.StartIn(loc)
		f.From = &t
	}
	if to != nil {
		t := to.EndIn(loc)
		f.To = &t
	}
	key := s.Cache.Key("summary", dateKey(from), dateKey(to))
	var cached Summary
	if s.lookup(ctx, key, &cached) {
		return cached, nil
	}
	rows, _, err := s.Invoices.List(ctx, f, common.AllRows)
	if err != nil {
		return Summary{}, err
	}
	out := Summarize(rows, from, to, loc)
	s.fill(ctx, key, out)
	return out, nil
}

func (s *Service) lookup(ctx context.Context, key string, dst any) bool {
	ok, err := s.Cache.Get(ctx, key, dst)
	switch {
	case err != nil:
		obs.ReportCacheLookup("error")
		if s.Logger != nil {
			s.Logger.Warn().Err(err).Str("key", key).Msg("report cache read failed")
		}
		return false
	case ok:
		obs.ReportCacheLookup("hit")
		return true
	default:
		obs.ReportCacheLookup("miss")
		return false
	}
}

func (s *Service) fill(ctx context.Context, key string, v any) {
	if err := s.Cache.Set(ctx, key, v); err != nil && s.Logger != nil {
		s.Logger.Error().Err(err).Str("key", key).Msg("report cache write failed")
	}
}

func (s *Service) location() *time.Location {
	if s.Location != nil {
		return s.Location
	}
	return time.UTC
}

func stamp(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func dateKey(d *common.Date) string {
	if d == nil {
		return "-"
	}
	return d.String()
}
