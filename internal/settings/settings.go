package settings

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-lavado/internal/pricing"
)

// Company describes the merchant and its tax setup.
type Company struct {
	Name         string          `json:"nombre"`
	TaxID        string          `json:"nit"`
	Phone        string          `json:"telefono"`
	Address      string          `json:"direccion"`
	TaxEnabled   bool            `json:"iva"`
	TaxRate      decimal.Decimal `json:"valor_iva"`
	TaxInclusive bool            `json:"iva_incluido"`
	Logo         string          `json:"logo"`
}

// Theme holds the frontend colour tokens.
type Theme struct {
	Primary           string `json:"primario"`
	PrimaryForeground string `json:"foregroundPrimario"`
}

// Settings is the merchant configuration document.
type Settings struct {
	Company Company `json:"empresa"`
	Theme   Theme   `json:"tema"`
}

// Defaults returns the configuration used until the merchant saves one.
func Defaults() Settings {
	return Settings{
		Company: Company{
			Name:         "LavApp",
			TaxID:        "1234567890",
			Phone:        "6042223243",
			Address:      "Cl 30 # 34-45",
			TaxEnabled:   true,
			TaxRate:      decimal.NewFromInt(19),
			TaxInclusive: true,
		},
		Theme: Theme{
			Primary:           "100 80% 30%",
			PrimaryForeground: "0 0% 100%",
		},
	}
}

// TaxConfig projects the tax fields consumed by the pricing engine.
func (s Settings) TaxConfig() pricing.TaxConfig {
	return pricing.TaxConfig{
		Enabled:   s.Company.TaxEnabled,
		Rate:      s.Company.TaxRate,
		Inclusive: s.Company.TaxInclusive,
	}
}

// CompanyPatch carries optional company updates.
type CompanyPatch struct {
	Name         *string          `json:"nombre" validate:"omitnil,min=1,max=100"`
	TaxID        *string          `json:"nit" validate:"omitnil,max=30"`
	Phone        *string          `json:"telefono" validate:"omitnil,max=30"`
	Address      *string          `json:"direccion" validate:"omitnil,max=200"`
	TaxEnabled   *bool            `json:"iva"`
	TaxRate      *decimal.Decimal `json:"valor_iva"`
	TaxInclusive *bool            `json:"iva_incluido"`
	Logo         *string          `json:"logo"`
}

// ThemePatch carries optional theme updates.
type ThemePatch struct {
	Primary           *string `json:"primario"`
	PrimaryForeground *string `json:"foregroundPrimario"`
}

// Patch is a partial update of the settings document.
type Patch struct {
	Company *CompanyPatch `json:"empresa"`
	Theme   *ThemePatch   `json:"tema"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Company == nil && p.Theme == nil
}

// Apply returns s with the patch merged in.
func (p Patch) Apply(s Settings) Settings {
	if c := p.Company; c != nil {
		setString(&s.Company.Name, c.Name)
		setString(&s.Company.TaxID, c.TaxID)
		setString(&s.Company.Phone, c.Phone)
		setString(&s.Company.Address, c.Address)
		setString(&s.Company.Logo, c.Logo)
		if c.TaxEnabled != nil {
			s.Company.TaxEnabled = *c.TaxEnabled
		}
		if c.TaxRate != nil {
			s.Company.TaxRate = *c.TaxRate
		}
		if c.TaxInclusive != nil {
			s.Company.TaxInclusive = *c.TaxInclusive
		}
	}
	if t := p.Theme; t != nil {
		setString(&s.Theme.Primary, t.Primary)
		setString(&s.Theme.PrimaryForeground, t.PrimaryForeground)
	}
	return s
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
