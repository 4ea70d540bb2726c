package customer_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-lavado/internal/customer"
)

type memoryStore struct {
	rows   map[string]customer.Customer
	owners map[string]bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{rows: map[string]customer.Customer{}, owners: map[string]bool{}}
}

func (m *memoryStore) ListCustomers(_ context.Context, search string, limit, offset int) ([]customer.Customer, int, error) {
	var all []customer.Customer
	for _, c := range m.rows {
		if search == "" || strings.Contains(c.Document, search) || strings.Contains(strings.ToLower(c.FullName()), strings.ToLower(search)) {
			all = append(all, c)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Document < all[j].Document })
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (m *memoryStore) GetCustomer(_ context.Context, document string) (customer.Customer, error) {
	c, ok := m.rows[document]
	if !ok {
		return customer.Customer{}, customer.ErrNotFound
	}
	return c, nil
}

func (m *memoryStore) InsertCustomer(_ context.Context, c customer.Customer) (customer.Customer, error) {
	if _, ok := m.rows[c.Document]; ok {
		return customer.Customer{}, customer.ErrDocumentTaken
	}
	m.rows[c.Document] = c
	return c, nil
}

func (m *memoryStore) UpdateCustomer(_ context.Context, c customer.Customer) (customer.Customer, error) {
	if _, ok := m.rows[c.Document]; !ok {
		return customer.Customer{}, customer.ErrNotFound
	}
	m.rows[c.Document] = c
	return c, nil
}

func (m *memoryStore) DeleteCustomer(_ context.Context, document string) error {
	if _, ok := m.rows[document]; !ok {
		return customer.ErrNotFound
	}
	if m.owners[document] {
		return customer.ErrHasVehicles
	}
	delete(m.rows, document)
	return nil
}

func newRouter(store *memoryStore) http.Handler {
	svc := &customer.Service{
		Store: store,
		Now:   func() time.Time { return time.Date(2026, 6, 15, 10, 0, 0, 0, time.UTC) },
	}
	h := &customer.Handler{Svc: svc, DefaultPerPage: 2, MaxPerPage: 10}
	r := chi.NewRouter()
	r.Get("/customers", h.List)
	r.Post("/customers", h.Create)
	r.Get("/customers/{document}", h.Get)
	r.Put("/customers/{document}", h.Update)
	r.Delete("/customers/{document}", h.Delete)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestCreateCustomerNormalizes(t *testing.T) {
	router := newRouter(newMemoryStore())

	rr := do(t, router, http.MethodPost, "/customers", `{"tipo_doc":"cc","documento":"1020304050","nombre":"ana","apellido":"GÓMEZ","fec_nacimiento":"1990-04-02","telefono":"3001234567","email":"Ana@Example.com"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var resp struct {
		Data customer.Customer `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, "CC", resp.Data.DocType)
	require.Equal(t, "Ana", resp.Data.FirstName)
	require.Equal(t, "Gómez", resp.Data.LastName)
	require.Equal(t, "ana@example.com", resp.Data.Email)
	require.Equal(t, "1990-04-02", resp.Data.BirthDate.String())

	rr = do(t, router, http.MethodPost, "/customers", `{"tipo_doc":"CC","documento":"1020304050","nombre":"Ana","apellido":"Gomez","telefono":"3001234567"}`)
	require.Equal(t, http.StatusConflict, rr.Code)
}

func TestCreateCustomerValidation(t *testing.T) {
	router := newRouter(newMemoryStore())
	cases := map[string]string{
		"doc type":     `{"tipo_doc":"XX","documento":"1020304050","nombre":"Ana","apellido":"Gomez","telefono":"3001234567"}`,
		"short phone":  `{"tipo_doc":"CC","documento":"1020304050","nombre":"Ana","apellido":"Gomez","telefono":"123"}`,
		"bad email":    `{"tipo_doc":"CC","documento":"1020304050","nombre":"Ana","apellido":"Gomez","telefono":"3001234567","email":"nope"}`,
		"future birth": `{"tipo_doc":"CC","documento":"1020304050","nombre":"Ana","apellido":"Gomez","telefono":"3001234567","fec_nacimiento":"2030-01-01"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rr := do(t, router, http.MethodPost, "/customers", body)
			require.Equal(t, http.StatusUnprocessableEntity, rr.Code, rr.Body.String())
		})
	}
}

func TestListCustomersPaginates(t *testing.T) {
	store := newMemoryStore()
	router := newRouter(store)
	for _, doc := range []string{"1001", "1002", "1003"} {
		rr := do(t, router, http.MethodPost, "/customers", `{"tipo_doc":"CC","documento":"`+doc+`","nombre":"Ana","apellido":"Gomez","telefono":"3001234567"}`)
		require.Equal(t, http.StatusCreated, rr.Code)
	}

	rr := do(t, router, http.MethodGet, "/customers?page=2", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		Data       []customer.Customer `json:"data"`
		Pagination struct {
			Page       int `json:"page"`
			TotalItems int `json:"total_items"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	require.Equal(t, "1003", resp.Data[0].Document)
	require.Equal(t, 3, resp.Pagination.TotalItems)
}

func TestDeleteCustomerWithVehicles(t *testing.T) {
	store := newMemoryStore()
	router := newRouter(store)
	rr := do(t, router, http.MethodPost, "/customers", `{"tipo_doc":"NIT","documento":"900123","nombre":"Lavados","apellido":"SAS","telefono":"6042223243"}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	store.owners["900123"] = true
	require.Equal(t, http.StatusConflict, do(t, router, http.MethodDelete, "/customers/900123", "").Code)

	store.owners["900123"] = false
	require.Equal(t, http.StatusNoContent, do(t, router, http.MethodDelete, "/customers/900123", "").Code)
	require.Equal(t, http.StatusNotFound, do(t, router, http.MethodGet, "/customers/900123", "").Code)
}
