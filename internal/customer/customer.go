package customer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/backend-lavado/internal/common"
)

var (
	ErrNotFound      = errors.New("customer not found")
	ErrDocumentTaken = errors.New("document already registered")
	ErrHasVehicles   = errors.New("customer still owns vehicles")
)

// Customer is a registered client of the wash.
type Customer struct {
	DocType   string       `json:"tipo_doc"`
	Document  string       `json:"documento"`
	FirstName string       `json:"nombre"`
	LastName  string       `json:"apellido"`
	BirthDate *common.Date `json:"fec_nacimiento"`
	Phone     string       `json:"telefono"`
	Email     string       `json:"email"`
}

// FullName joins first and last name.
func (c Customer) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Input is the writable shape of a customer.
type Input struct {
	DocType   string       `json:"tipo_doc" validate:"required,oneof=CC NIT CE PP TI"`
	Document  string       `json:"documento" validate:"required,min=3,max=15"`
	FirstName string       `json:"nombre" validate:"required,min=1,max=50"`
	LastName  string       `json:"apellido" validate:"required,min=1,max=50"`
	BirthDate *common.Date `json:"fec_nacimiento"`
	Phone     string       `json:"telefono" validate:"required,min=7,max=15,numeric"`
	Email     string       `json:"email" validate:"omitempty,email"`
}

// Store captures customer persistence.
type Store interface {
	ListCustomers(ctx context.Context, search string, limit, offset int) ([]Customer, int, error)
	GetCustomer(ctx context.Context, document string) (Customer, error)
	InsertCustomer(ctx context.Context, c Customer) (Customer, error)
	UpdateCustomer(ctx context.Context, c Customer) (Customer, error)
	DeleteCustomer(ctx context.Context, document string) error
}

// Service manages customers.
type Service struct {
	Store Store
	Now   func() time.Time
}

// List pages through customers whose name or document contains search.
func (s *Service) List(ctx context.Context, search string, page common.Page) ([]Customer, int, error) {
	if s == nil || s.Store == nil {
		return nil, 0, fmt.Errorf("customer service not configured")
	}
	return s.Store.ListCustomers(ctx, strings.TrimSpace(search), page.Size, page.Offset())
}

// Get loads one customer.
func (s *Service) Get(ctx context.Context, document string) (Customer, error) {
	return s.Store.GetCustomer(ctx, strings.TrimSpace(document))
}

// Create registers a customer.
func (s *Service) Create(ctx context.Context, in Input) (Customer, error) {
	c, err := s.fromInput(in)
	if err != nil {
		return Customer{}, err
	}
	return s.Store.InsertCustomer(ctx, c)
}

// Update overwrites the customer registered under document.
func (s *Service) Update(ctx context.Context, document string, in Input) (Customer, error) {
	in.Document = document
	c, err := s.fromInput(in)
	if err != nil {
		return Customer{}, err
	}
	return s.Store.UpdateCustomer(ctx, c)
}

// Delete removes a customer without vehicles.
func (s *Service) Delete(ctx context.Context, document string) error {
	return s.Store.DeleteCustomer(ctx, strings.TrimSpace(document))
}

func (s *Service) fromInput(in Input) (Customer, error) {
	in.DocType = strings.ToUpper(strings.TrimSpace(in.DocType))
	in.Document = strings.TrimSpace(in.Document)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = strings.TrimSpace(in.Phone)
	if err := common.ValidateStruct(in); err != nil {
		return Customer{}, err
	}
	if in.BirthDate != nil && !in.BirthDate.IsZero() && common.DateOf(s.now()).Before(*in.BirthDate) {
		return Customer{}, common.Unprocessable("validation failed", map[string]string{"fec_nacimiento": "not in the future"})
	}
	if in.BirthDate != nil && in.BirthDate.IsZero() {
		in.BirthDate = nil
	}
	return Customer{
		DocType:   in.DocType,
		Document:  in.Document,
		FirstName: common.Capitalize(in.FirstName),
		LastName:  common.Capitalize(in.LastName),
		BirthDate: in.BirthDate,
		Phone:     in.Phone,
		Email:     in.Email,
	}, nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
