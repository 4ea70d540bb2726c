package catalog_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-lavado/internal/cache"
	"github.com/noah-isme/backend-lavado/internal/catalog"
)

type fakeStore struct {
	general       map[int64]catalog.GeneralService
	additional    map[int64]catalog.AdditionalService
	listCalls     int
	nextGeneral   int64
	nextAdditional int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		general:       map[int64]catalog.GeneralService{},
		additional:    map[int64]catalog.AdditionalService{},
		nextGeneral:   1000,
		nextAdditional: 5000,
	}
}

func (f *fakeStore) ListGeneral(context.Context) ([]catalog.GeneralService, error) {
	f.listCalls++
	var out []catalog.GeneralService
	for id := int64(1000); id < f.nextGeneral; id++ {
		if svc, ok := f.general[id]; ok {
			out = append(out, svc)
		}
	}
	return out, nil
}

func (f *fakeStore) GetGeneral(_ context.Context, id int64) (catalog.GeneralService, error) {
	svc, ok := f.general[id]
	if !ok {
		return catalog.GeneralService{}, catalog.ErrNotFound
	}
	return svc, nil
}

func (f *fakeStore) InsertGeneral(_ context.Context, svc catalog.GeneralService) (catalog.GeneralService, error) {
	for _, existing := range f.general {
		if existing.Name == svc.Name {
			return catalog.GeneralService{}, catalog.ErrNameTaken
		}
	}
	svc.ID = f.nextGeneral
	f.nextGeneral++
	f.general[svc.ID] = svc
	return svc, nil
}

func (f *fakeStore) UpdateGeneral(_ context.Context, svc catalog.GeneralService) (catalog.GeneralService, error) {
	if _, ok := f.general[svc.ID]; !ok {
		return catalog.GeneralService{}, catalog.ErrNotFound
	}
	f.general[svc.ID] = svc
	return svc, nil
}

func (f *fakeStore) DeleteGeneral(_ context.Context, id int64) error {
	if _, ok := f.general[id]; !ok {
		return catalog.ErrNotFound
	}
	delete(f.general, id)
	return nil
}

func (f *fakeStore) ListAdditional(context.Context) ([]catalog.AdditionalService, error) {
	f.listCalls++
	var out []catalog.AdditionalService
	for id := int64(5000); id < f.nextAdditional; id++ {
		if svc, ok := f.additional[id]; ok {
			out = append(out, svc)
		}
	}
	return out, nil
}

func (f *fakeStore) GetAdditional(_ context.Context, id int64) (catalog.AdditionalService, error) {
	svc, ok := f.additional[id]
	if !ok {
		return catalog.AdditionalService{}, catalog.ErrNotFound
	}
	return svc, nil
}

func (f *fakeStore) InsertAdditional(_ context.Context, svc catalog.AdditionalService) (catalog.AdditionalService, error) {
	svc.ID = f.nextAdditional
	f.nextAdditional++
	f.additional[svc.ID] = svc
	return svc, nil
}

func (f *fakeStore) UpdateAdditional(_ context.Context, svc catalog.AdditionalService) (catalog.AdditionalService, error) {
	if _, ok := f.additional[svc.ID]; !ok {
		return catalog.AdditionalService{}, catalog.ErrNotFound
	}
	f.additional[svc.ID] = svc
	return svc, nil
}

func (f *fakeStore) DeleteAdditional(_ context.Context, id int64) error {
	if _, ok := f.additional[id]; !ok {
		return catalog.ErrNotFound
	}
	delete(f.additional, id)
	return nil
}

func newTestRouter(t *testing.T, store *fakeStore) http.Handler {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	svc, err := catalog.NewService(catalog.ServiceConfig{
		Store: store,
		Cache: cache.NewJSON(client, "catalog", time.Minute),
	})
	require.NoError(t, err)
	h := catalog.NewHandler(catalog.HandlerConfig{Service: svc})

	r := chi.NewRouter()
	r.Get("/services", h.List)
	r.Post("/services", h.Create)
	r.Get("/services/{kind}/{id}", h.Get)
	r.Put("/services/{kind}/{id}", h.Update)
	r.Delete("/services/{kind}/{id}", h.Delete)
	r.Get("/services/{kind}/{id}/line", h.Line)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

const generalBody = `{"nombre":"lavado sencillo","tipo_servicio":"General","valores":[
	{"categoria":"moto","grupos":[{"id":101,"precio":12000},{"id":102,"precio":15000}]},
	{"categoria":"Auto","grupos":[{"id":201,"precio":"20000"}]}]}`

func TestCreateAndListGeneralServices(t *testing.T) {
	store := newFakeStore()
	router := newTestRouter(t, store)

	rec := do(t, router, http.MethodPost, "/services", generalBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		Data catalog.GeneralService `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Equal(t, int64(1000), created.Data.ID)
	require.Equal(t, "Lavado sencillo", created.Data.Name)
	require.Equal(t, "Moto", created.Data.Prices[0].Category)

	rec = do(t, router, http.MethodPost, "/services", generalBody)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, router, http.MethodGet, "/services?kind=general&category=Auto", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Data []catalog.GeneralService `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Data, 1)

	rec = do(t, router, http.MethodGet, "/services?kind=General&category=Cuatrimoto", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"data":[]}`, rec.Body.String())
}

func TestListIsCachedUntilWrite(t *testing.T) {
	store := newFakeStore()
	router := newTestRouter(t, store)
	require.Equal(t, http.StatusCreated, do(t, router, http.MethodPost, "/services", generalBody).Code)

	do(t, router, http.MethodGet, "/services?kind=General", "")
	do(t, router, http.MethodGet, "/services?kind=General", "")
	require.Equal(t, 1, store.listCalls)

	rec := do(t, router, http.MethodPut, "/services/General/1000", `{"nombre":"Lavado full","valores":[{"categoria":"Auto","grupos":[{"id":201,"precio":25000}]}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, router, http.MethodGet, "/services?kind=General", "")
	require.Equal(t, 2, store.listCalls)
	require.Contains(t, rec.Body.String(), "Lavado full")
}

func TestAdditionalServiceLifecycle(t *testing.T) {
	store := newFakeStore()
	router := newTestRouter(t, store)

	rec := do(t, router, http.MethodPost, "/services", `{"nombre":"tapiceria","tipo_servicio":"Adicional","categorias":["auto"],"precio_variable":true,"variable":"m2","precio_base":8000}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Contains(t, rec.Body.String(), `"id_servicio":5000`)

	rec = do(t, router, http.MethodGet, "/services/Adicional/5000/line?category=Auto&group=201", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Contains(t, rec.Body.String(), `"precio_variable":true`)

	rec = do(t, router, http.MethodGet, "/services/Adicional/5000/line?category=Moto&group=101", "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	require.Equal(t, http.StatusNoContent, do(t, router, http.MethodDelete, "/services/Adicional/5000", "").Code)
	require.Equal(t, http.StatusNotFound, do(t, router, http.MethodGet, "/services/Adicional/5000", "").Code)
}

func TestCatalogValidation(t *testing.T) {
	router := newTestRouter(t, newFakeStore())
	cases := map[string]struct {
		body string
		want int
	}{
		"unknown kind":     {`{"nombre":"Lavado","tipo_servicio":"Otro"}`, http.StatusBadRequest},
		"short name":       {`{"nombre":"La","tipo_servicio":"General","valores":[{"categoria":"Auto","grupos":[{"id":201,"precio":1}]}]}`, http.StatusUnprocessableEntity},
		"no prices":        {`{"nombre":"Lavado","tipo_servicio":"General","valores":[]}`, http.StatusUnprocessableEntity},
		"unknown category": {`{"nombre":"Lavado","tipo_servicio":"General","valores":[{"categoria":"Bus","grupos":[{"id":1,"precio":1}]}]}`, http.StatusUnprocessableEntity},
		"bad unit":         {`{"nombre":"Cera","tipo_servicio":"Adicional","precio_variable":true,"variable":"gal","precio_base":100}`, http.StatusUnprocessableEntity},
		"negative price":   {`{"nombre":"Cera","tipo_servicio":"Adicional","precio_base":-1}`, http.StatusUnprocessableEntity},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rec := do(t, router, http.MethodPost, "/services", tc.body)
			require.Equal(t, tc.want, rec.Code, rec.Body.String())
		})
	}
	require.Equal(t, http.StatusBadRequest, do(t, router, http.MethodGet, "/services/General/abc", "").Code)
}
