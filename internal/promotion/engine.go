package promotion

import (
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-lavado/internal/common"
)

var (
	// ErrPromotionInactive is returned when selecting a promotion that is not active now.
	ErrPromotionInactive = errors.New("promotion not active")
	// ErrPromotionNotFound is returned for unknown promotion ids.
	ErrPromotionNotFound = errors.New("promotion not found")
)

// Promotion is a percent discount with an enabled flag and an optional
// validity window expressed in calendar days.
type Promotion struct {
	ID          int64           `json:"id_promocion"`
	Description string          `json:"descripcion"`
	StartDate   *common.Date    `json:"fecha_inicio"`
	EndDate     *common.Date    `json:"fecha_fin"`
	Percent     decimal.Decimal `json:"porcentaje"`
	Enabled     bool            `json:"estado"`
}

// IsActive reports whether the promotion applies at now. Day boundaries are
// taken in now's location: the start date counts from its first instant and
// the end date until its last one.
func (p Promotion) IsActive(now time.Time) bool {
	if !p.Enabled {
		return false
	}
	loc := now.Location()
	if p.StartDate != nil && !p.StartDate.IsZero() && now.Before(p.StartDate.StartIn(loc)) {
		return false
	}
	if p.EndDate != nil && !p.EndDate.IsZero() && now.After(p.EndDate.EndIn(loc)) {
		return false
	}
	return true
}

// ActiveSorted returns the promotions active at now ordered by ascending
// percent. Equal percents keep id order.
func ActiveSorted(list []Promotion, now time.Time) []Promotion {
	active := make([]Promotion, 0, len(list))
	for _, p := range list {
		if p.IsActive(now) {
			active = append(active, p)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		if c := active[i].Percent.Cmp(active[j].Percent); c != 0 {
			return c < 0
		}
		return active[i].ID < active[j].ID
	})
	return active
}

// Suggest returns the lowest active promotion, used as the initial discount
// of a new draft. ok is false when nothing is active.
func Suggest(list []Promotion, now time.Time) (Promotion, bool) {
	active := ActiveSorted(list, now)
	if len(active) == 0 {
		return Promotion{}, false
	}
	return active[0], true
}

// SuggestedPercent is the discount percent a new draft starts with.
func SuggestedPercent(list []Promotion, now time.Time) decimal.Decimal {
	if p, ok := Suggest(list, now); ok {
		return p.Percent
	}
	return decimal.Zero
}

// Selection is the single, mutually exclusive promotion chosen on a draft.
// The zero value selects nothing.
type Selection struct {
	promotion *Promotion
}

// None returns an empty selection.
func None() Selection { return Selection{} }

// Select returns a selection holding p.
func Select(p Promotion) Selection {
	return Selection{promotion: &p}
}

// Toggle selects p, or clears the selection when p is already selected.
func (s Selection) Toggle(p Promotion) Selection {
	if s.promotion != nil && s.promotion.ID == p.ID {
		return None()
	}
	return Select(p)
}

// Selected returns the chosen promotion.
func (s Selection) Selected() (Promotion, bool) {
	if s.promotion == nil {
		return Promotion{}, false
	}
	return *s.promotion, true
}

// DiscountPercent is the percent the selection contributes, zero when empty.
func (s Selection) DiscountPercent() decimal.Decimal {
	if s.promotion == nil {
		return decimal.Zero
	}
	return s.promotion.Percent
}

// ID returns the selected promotion id or nil.
func (s Selection) ID() *int64 {
	if s.promotion == nil {
		return nil
	}
	id := s.promotion.ID
	return &id
}

// MarshalJSON encodes the selected promotion, or null.
func (s Selection) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.promotion)
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Selection) UnmarshalJSON(data []byte) error {
	var p *Promotion
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	s.promotion = p
	return nil
}
