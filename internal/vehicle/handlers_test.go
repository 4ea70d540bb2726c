package vehicle_test

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

	"github.com/noah-isme/backend-lavado/internal/vehicle"
)

type memoryStore struct {
	rows      map[string]vehicle.Vehicle
	customers map[string]bool
}

func newMemoryStore(customers ...string) *memoryStore {
	m := &memoryStore{rows: map[string]vehicle.Vehicle{}, customers: map[string]bool{}}
	for _, c := range customers {
		m.customers[c] = true
	}
	return m
}

func (m *memoryStore) ListVehicles(_ context.Context, customerDocument string) ([]vehicle.Vehicle, error) {
	var out []vehicle.Vehicle
	for _, v := range m.rows {
		if customerDocument == "" || v.CustomerDocument == customerDocument {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Plate < out[j].Plate })
	return out, nil
}

func (m *memoryStore) GetVehicle(_ context.Context, plate string) (vehicle.Vehicle, error) {
	v, ok := m.rows[plate]
	if !ok {
		return vehicle.Vehicle{}, vehicle.ErrNotFound
	}
	return v, nil
}

func (m *memoryStore) InsertVehicle(_ context.Context, v vehicle.Vehicle) (vehicle.Vehicle, error) {
	if _, ok := m.rows[v.Plate]; ok {
		return vehicle.Vehicle{}, vehicle.ErrPlateTaken
	}
	if !m.customers[v.CustomerDocument] {
		return vehicle.Vehicle{}, vehicle.ErrUnknownCustomer
	}
	m.rows[v.Plate] = v
	return v, nil
}

func (m *memoryStore) UpdateVehicle(_ context.Context, v vehicle.Vehicle) (vehicle.Vehicle, error) {
	if _, ok := m.rows[v.Plate]; !ok {
		return vehicle.Vehicle{}, vehicle.ErrNotFound
	}
	m.rows[v.Plate] = v
	return v, nil
}

func (m *memoryStore) DeleteVehicle(_ context.Context, plate string) error {
	if _, ok := m.rows[plate]; !ok {
		return vehicle.ErrNotFound
	}
	delete(m.rows, plate)
	return nil
}

func newRouter(store *memoryStore) http.Handler {
	svc := &vehicle.Service{
		Store: store,
		Now:   func() time.Time { return time.Date(2026, 6, 15, 10, 0, 0, 0, time.UTC) },
	}
	h := &vehicle.Handler{Svc: svc}
	r := chi.NewRouter()
	r.Get("/vehicles", h.List)
	r.Post("/vehicles", h.Create)
	r.Get("/vehicles/{plate}", h.Get)
	r.Put("/vehicles/{plate}", h.Update)
	r.Delete("/vehicles/{plate}", h.Delete)
	r.Get("/customers/{document}/vehicles", h.ByCustomer)
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

func TestCreateVehicleComputesGroup(t *testing.T) {
	router := newRouter(newMemoryStore("1020304050"))

	rr := do(t, router, http.MethodPost, "/vehicles", `{"placa":" abc12d ","documento_cliente":"1020304050","categoria":"moto","marca":"Yamaha","modelo":2022,"cilindrada":150}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var resp struct {
		Data vehicle.Vehicle `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, "ABC12D", resp.Data.Plate)
	require.Equal(t, vehicle.CategoryMoto, resp.Data.Category)
	require.Equal(t, 101, resp.Data.Group)

	rr = do(t, router, http.MethodGet, "/vehicles/abc12d", "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, router, http.MethodGet, "/customers/1020304050/vehicles", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "ABC12D")
}

func TestCreateVehicleValidation(t *testing.T) {
	router := newRouter(newMemoryStore("1020304050"))

	cases := map[string]string{
		"unknown category": `{"placa":"XYZ123","documento_cliente":"1020304050","categoria":"Bus","marca":"Volvo","modelo":2020,"cilindrada":9000}`,
		"future model":     `{"placa":"XYZ123","documento_cliente":"1020304050","categoria":"Auto","segmento":"Sedan","marca":"Mazda","modelo":2030,"cilindrada":2000}`,
		"no group":         `{"placa":"XYZ123","documento_cliente":"1020304050","categoria":"Auto","segmento":"Hatchback","marca":"Mazda","modelo":2020,"cilindrada":2000}`,
		"missing brand":    `{"placa":"XYZ123","documento_cliente":"1020304050","categoria":"Auto","segmento":"Sedan","modelo":2020,"cilindrada":2000}`,
		"unknown customer": `{"placa":"XYZ123","documento_cliente":"999","categoria":"Auto","segmento":"Sedan","marca":"Mazda","modelo":2020,"cilindrada":2000}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rr := do(t, router, http.MethodPost, "/vehicles", body)
			require.Equal(t, http.StatusUnprocessableEntity, rr.Code, rr.Body.String())
		})
	}
}

func TestVehicleConflictAndDelete(t *testing.T) {
	router := newRouter(newMemoryStore("1020304050"))
	body := `{"placa":"CAR001","documento_cliente":"1020304050","categoria":"Auto","segmento":"SUV","marca":"Kia","modelo":2021,"cilindrada":2000}`

	require.Equal(t, http.StatusCreated, do(t, router, http.MethodPost, "/vehicles", body).Code)
	require.Equal(t, http.StatusConflict, do(t, router, http.MethodPost, "/vehicles", body).Code)

	rr := do(t, router, http.MethodPut, "/vehicles/car001", `{"documento_cliente":"1020304050","categoria":"Auto","segmento":"Van","marca":"Kia","modelo":2021,"cilindrada":2000}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Contains(t, rr.Body.String(), `"grupo":203`)

	require.Equal(t, http.StatusNoContent, do(t, router, http.MethodDelete, "/vehicles/CAR001", "").Code)
	require.Equal(t, http.StatusNotFound, do(t, router, http.MethodGet, "/vehicles/CAR001", "").Code)
}
