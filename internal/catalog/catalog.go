package catalog

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-lavado/internal/pricing"
)

// Kind separates the two service families of the catalog.
type Kind string

const (
	KindGeneral    Kind = "General"
	KindAdditional Kind = "Adicional"
)

var (
	ErrNotFound         = errors.New("service not found")
	ErrNameTaken        = errors.New("service name already registered")
	ErrUnknownKind      = errors.New("unknown service kind")
	ErrPriceUnavailable = errors.New("service has no price for the vehicle category and group")
	ErrNotOffered       = errors.New("service is not offered for the vehicle category")
	ErrIDsExhausted     = errors.New("service id range exhausted")
)

// Units accepted for variable priced additional services.
var Units = []string{"m2", "lt", "kg", "und"}

// ParseKind maps any casing of a kind name to its Kind.
func ParseKind(raw string) (Kind, error) {
	switch {
	case strings.EqualFold(raw, string(KindGeneral)):
		return KindGeneral, nil
	case strings.EqualFold(raw, string(KindAdditional)):
		return KindAdditional, nil
	}
	return "", ErrUnknownKind
}

// GroupPrice is the price of a general service for one price group.
type GroupPrice struct {
	Group int             `json:"id"`
	Price decimal.Decimal `json:"precio"`
}

// CategoryPrice holds the group prices of one vehicle category.
type CategoryPrice struct {
	Category string       `json:"categoria"`
	Groups   []GroupPrice `json:"grupos"`
}

// GeneralService is a main wash service priced per category and group.
type GeneralService struct {
	ID     int64           `json:"id_servicio"`
	Name   string          `json:"nombre"`
	Kind   Kind            `json:"tipo_servicio"`
	Prices []CategoryPrice `json:"valores"`
}

// PriceFor returns the price for category and group.
func (s GeneralService) PriceFor(category string, group int) (decimal.Decimal, bool) {
	for _, cp := range s.Prices {
		if !strings.EqualFold(cp.Category, category) {
			continue
		}
		for _, g := range cp.Groups {
			if g.Group == group {
				return g.Price, true
			}
		}
	}
	return decimal.Zero, false
}

func (s GeneralService) coversCategory(category string) bool {
	for _, cp := range s.Prices {
		if strings.EqualFold(cp.Category, category) && len(cp.Groups) > 0 {
			return true
		}
	}
	return false
}

// Line builds the draft line for a vehicle of category and group.
func (s GeneralService) Line(category string, group int) (pricing.LineItem, error) {
	price, ok := s.PriceFor(category, group)
	if !ok {
		return pricing.LineItem{}, ErrPriceUnavailable
	}
	return pricing.LineItem{
		ServiceID:   s.ID,
		Description: s.Name,
		UnitPrice:   price,
		Quantity:    decimal.NewFromInt(1),
	}, nil
}

// AdditionalService is an add-on with a single base price.
type AdditionalService struct {
	ID             int64           `json:"id_servicio"`
	Name           string          `json:"nombre"`
	Kind           Kind            `json:"tipo_servicio"`
	Categories     []string        `json:"categorias"`
	VariablePriced bool            `json:"precio_variable"`
	Unit           *string         `json:"variable"`
	BasePrice      decimal.Decimal `json:"precio_base"`
}

// Offers reports whether the service applies to category. An empty category
// list offers the service everywhere.
func (s AdditionalService) Offers(category string) bool {
	if len(s.Categories) == 0 {
		return true
	}
	for _, c := range s.Categories {
		if strings.EqualFold(c, category) {
			return true
		}
	}
	return false
}

// Line builds the draft line for a vehicle of category.
func (s AdditionalService) Line(category string) (pricing.LineItem, error) {
	if !s.Offers(category) {
		return pricing.LineItem{}, ErrNotOffered
	}
	return pricing.LineItem{
		ServiceID:      s.ID,
		Description:    s.Name,
		UnitPrice:      s.BasePrice,
		Quantity:       decimal.NewFromInt(1),
		VariablePriced: s.VariablePriced,
	}, nil
}
