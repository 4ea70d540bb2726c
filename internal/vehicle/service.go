package vehicle

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/noah-isme/backend-lavado/internal/common"
)

// Store captures vehicle persistence.
type Store interface {
	ListVehicles(ctx context.Context, customerDocument string) ([]Vehicle, error)
	GetVehicle(ctx context.Context, plate string) (Vehicle, error)
	InsertVehicle(ctx context.Context, v Vehicle) (Vehicle, error)
	UpdateVehicle(ctx context.Context, v Vehicle) (Vehicle, error)
	DeleteVehicle(ctx context.Context, plate string) error
}

// Input is the writable shape of a vehicle.
type Input struct {
	Plate            string `json:"placa" validate:"required,min=3,max=10"`
	CustomerDocument string `json:"documento_cliente" validate:"required,min=3,max=15"`
	Category         string `json:"categoria" validate:"required"`
	Segment          string `json:"segmento" validate:"max=30"`
	Brand            string `json:"marca" validate:"required,min=2,max=50"`
	Line             string `json:"linea" validate:"max=50"`
	Model            int    `json:"modelo" validate:"required,gte=1900"`
	Displacement     int    `json:"cilindrada" validate:"required,gt=0"`
}

// Service manages vehicles.
type Service struct {
	Store Store
	Now   func() time.Time
}

var errNotConfigured = errors.New("vehicle service not configured")

// List returns vehicles, optionally only those of one customer.
func (s *Service) List(ctx context.Context, customerDocument string) ([]Vehicle, error) {
	if s == nil || s.Store == nil {
		return nil, errNotConfigured
	}
	return s.Store.ListVehicles(ctx, strings.TrimSpace(customerDocument))
}

// Resolve looks a vehicle up by plate.
func (s *Service) Resolve(ctx context.Context, plate string) (Vehicle, error) {
	if s == nil || s.Store == nil {
		return Vehicle{}, errNotConfigured
	}
	return s.Store.GetVehicle(ctx, NormalizePlate(plate))
}

// Create validates and registers a vehicle.
func (s *Service) Create(ctx context.Context, in Input) (Vehicle, error) {
	if s == nil || s.Store == nil {
		return Vehicle{}, errNotConfigured
	}
	v, err := s.fromInput(in)
	if err != nil {
		return Vehicle{}, err
	}
	return s.Store.InsertVehicle(ctx, v)
}

// Update replaces the vehicle registered under plate.
func (s *Service) Update(ctx context.Context, plate string, in Input) (Vehicle, error) {
	if s == nil || s.Store == nil {
		return Vehicle{}, errNotConfigured
	}
	in.Plate = plate
	v, err := s.fromInput(in)
	if err != nil {
		return Vehicle{}, err
	}
	return s.Store.UpdateVehicle(ctx, v)
}

// Delete removes a vehicle.
func (s *Service) Delete(ctx context.Context, plate string) error {
	if s == nil || s.Store == nil {
		return errNotConfigured
	}
	return s.Store.DeleteVehicle(ctx, NormalizePlate(plate))
}

func (s *Service) fromInput(in Input) (Vehicle, error) {
	in.Plate = NormalizePlate(in.Plate)
	in.CustomerDocument = strings.TrimSpace(in.CustomerDocument)
	if err := common.ValidateStruct(in); err != nil {
		return Vehicle{}, err
	}
	details := map[string]string{}
	category, ok := NormalizeCategory(in.Category)
	if !ok {
		details["categoria"] = "oneof=Moto Auto Cuatrimoto"
	}
	if in.Model > s.now().Year()+1 {
		details["modelo"] = "lte=next year"
	}
	group := ComputeGroup(category, in.Displacement, in.Segment)
	if ok && group == 0 {
		details["segmento"] = "no price group for segment"
	}
	if len(details) > 0 {
		return Vehicle{}, common.Unprocessable("validation failed", details)
	}
	return Vehicle{
		Plate:            in.Plate,
		CustomerDocument: in.CustomerDocument,
		Category:         category,
		Segment:          strings.TrimSpace(in.Segment),
		Brand:            strings.TrimSpace(in.Brand),
		Line:             strings.TrimSpace(in.Line),
		Model:            in.Model,
		Displacement:     in.Displacement,
		Group:            group,
	}, nil
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
