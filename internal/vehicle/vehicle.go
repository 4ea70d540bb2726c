package vehicle

import (
	"errors"
	"strings"
)

// Vehicle categories. Prices and reports are broken down by category.
const (
	CategoryMoto       = "Moto"
	CategoryAuto       = "Auto"
	CategoryCuatrimoto = "Cuatrimoto"
)

var (
	// ErrNotFound is returned for unknown plates.
	ErrNotFound = errors.New("vehicle not found")
	// ErrPlateTaken is returned when registering an existing plate.
	ErrPlateTaken = errors.New("plate already registered")
	// ErrUnknownCustomer is returned when the owner document is not registered.
	ErrUnknownCustomer = errors.New("customer not registered")
)

// Categories lists the supported categories in report order.
func Categories() []string {
	return []string{CategoryMoto, CategoryAuto, CategoryCuatrimoto}
}

// NormalizeCategory maps any casing of a known category to its canonical
// name. ok is false for unknown categories.
func NormalizeCategory(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	for _, c := range Categories() {
		if strings.EqualFold(c, trimmed) {
			return c, true
		}
	}
	return trimmed, false
}

// NormalizePlate trims and upper-cases a plate.
func NormalizePlate(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// Vehicle is a registered vehicle with its price group.
type Vehicle struct {
	Plate            string `json:"placa"`
	CustomerDocument string `json:"documento_cliente"`
	Category         string `json:"categoria"`
	Segment          string `json:"segmento"`
	Brand            string `json:"marca"`
	Line             string `json:"linea"`
	Model            int    `json:"modelo"`
	Displacement     int    `json:"cilindrada"`
	Group            int    `json:"grupo"`
}

// ComputeGroup derives the price group from category, engine displacement
// and body segment. Zero means no group applies.
func ComputeGroup(category string, displacement int, segment string) int {
	switch category {
	case CategoryMoto:
		switch {
		case displacement <= 0:
			return 0
		case displacement <= 250:
			return 101
		case displacement < 500:
			return 102
		default:
			return 103
		}
	case CategoryAuto:
		switch strings.ToLower(strings.TrimSpace(segment)) {
		case "sedan", "coupe":
			return 201
		case "suv", "deportivo":
			return 202
		case "van", "pickup":
			return 203
		}
		return 0
	case CategoryCuatrimoto:
		return 301
	}
	return 0
}
