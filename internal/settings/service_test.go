package settings_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-lavado/internal/cache"
	"github.com/noah-isme/backend-lavado/internal/settings"
)

type memoryStore struct {
	saved *settings.Settings
	loads int
	saves int
}

func (m *memoryStore) LoadSettings(context.Context) (settings.Settings, error) {
	m.loads++
	if m.saved == nil {
		return settings.Settings{}, settings.ErrNotFound
	}
	return *m.saved, nil
}

func (m *memoryStore) SaveSettings(_ context.Context, s settings.Settings) error {
	m.saves++
	m.saved = &s
	return nil
}

func newService(t *testing.T) (*settings.Service, *memoryStore) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := &memoryStore{}
	return &settings.Service{Store: store, Cache: cache.NewJSON(client, "cfg", time.Minute)}, store
}

func TestGetCreatesDefaultsAndCaches(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	first, err := svc.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, "LavApp", first.Company.Name)
	require.Equal(t, 1, store.saves)

	tax := first.TaxConfig()
	require.True(t, tax.Enabled)
	require.True(t, tax.Inclusive)
	require.True(t, decimal.NewFromInt(19).Equal(tax.Rate))

	_, err = svc.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, store.loads)
}

func TestUpdateMergesPartialPatch(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	disabled := false
	name := "Lavadero Central"
	next, err := svc.Update(ctx, settings.Patch{Company: &settings.CompanyPatch{Name: &name, TaxEnabled: &disabled}})
	require.NoError(t, err)
	require.Equal(t, "Lavadero Central", next.Company.Name)
	require.False(t, next.Company.TaxEnabled)
	require.True(t, next.Company.TaxInclusive)
	require.Equal(t, "100 80% 30%", next.Theme.Primary)
	require.Equal(t, "Lavadero Central", store.saved.Company.Name)

	cfg, err := svc.TaxConfig(ctx)
	require.NoError(t, err)
	require.False(t, cfg.Enabled)

	reset, err := svc.Reset(ctx)
	require.NoError(t, err)
	require.Equal(t, "LavApp", reset.Company.Name)
	cfg, err = svc.TaxConfig(ctx)
	require.NoError(t, err)
	require.True(t, cfg.Enabled)
}

func TestUpdateRejectsBadInput(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.Update(context.Background(), settings.Patch{})
	require.Error(t, err)

	rate := decimal.NewFromInt(150)
	_, err = svc.Update(context.Background(), settings.Patch{Company: &settings.CompanyPatch{TaxRate: &rate}})
	require.Error(t, err)
}

func TestHandlers(t *testing.T) {
	svc, _ := newService(t)
	h := &settings.Handler{Svc: svc}

	rec := httptest.NewRecorder()
	h.Update(rec, httptest.NewRequest(http.MethodPatch, "/api/v1/settings", strings.NewReader(`{"tema":{"primario":"0 0% 0%"},"empresa":{"valor_iva":"8"}}`)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	h.Get(rec, httptest.NewRequest(http.MethodGet, "/api/v1/settings", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data settings.Settings `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "0 0% 0%", body.Data.Theme.Primary)
	require.True(t, decimal.NewFromInt(8).Equal(body.Data.Company.TaxRate))

	rec = httptest.NewRecorder()
	h.Update(rec, httptest.NewRequest(http.MethodPatch, "/api/v1/settings", strings.NewReader(`{}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
