package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shestoi/stocksync/internal/feed"
	lockmemory "github.com/shestoi/stocksync/internal/lock/memory"
	"github.com/shestoi/stocksync/internal/repository"
	"github.com/shestoi/stocksync/internal/repository/memory"
	"github.com/shestoi/stocksync/internal/service"
	"github.com/shestoi/stocksync/internal/service/mocks"
	"github.com/shestoi/stocksync/internal/stock"
)

type apiFixture struct {
	feed   *mocks.FeedClient
	store  *memory.MemoryRepository
	router http.Handler
}

func newAPIFixture(t *testing.T, endpoint, token string, readyErr error) *apiFixture {
	logger := zap.NewNop()
	store := memory.NewMemoryRepository(
		repository.Product{ID: "p-a", SKU: "A", ManageStock: true, LocalStock: 7, StockStatus: stock.StatusInStock},
		repository.Product{ID: "p-b", SKU: "B/1", ManageStock: true, LocalStock: 2, ExternalStock: 5, StockStatus: stock.StatusInStock},
	)
	feedClient := mocks.NewFeedClient(t)

	syncService := service.NewSyncService(
		logger,
		service.NewStaticSettings(service.Settings{Endpoint: endpoint}),
		feedClient,
		service.NewApplier(logger, store),
		lockmemory.New(),
		time.Minute,
		nil,
		nil,
	)
	inventory := service.NewInventoryService(logger, store, service.NewRebalancer(logger, store))

	next := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	handler := NewHandler(logger, syncService, inventory, func() (time.Time, bool) { return next, true })

	return &apiFixture{
		feed:   feedClient,
		store:  store,
		router: NewRouter(handler, func(context.Context) error { return readyErr }, token, logger),
	}
}

func (f *apiFixture) do(t *testing.T, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func qty(v int64) *int64 { return &v }

func TestPostSync(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		f := newAPIFixture(t, "https://feed.example", "", nil)
		f.feed.On("Fetch", mock.Anything, "https://feed.example", "").
			Return([]feed.Record{{SKU: "A", StockQuantity: qty(3)}, {SKU: "NOPE"}}, nil).Once()

		rec := f.do(t, http.MethodPost, "/sync", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		result := decode[service.Result](t, rec)
		require.Equal(t, 1, result.Updated)
		require.Equal(t, 1, result.Skipped)
		require.Len(t, result.Errors, 1)
	})

	t.Run("empty errors list is an array", func(t *testing.T) {
		f := newAPIFixture(t, "https://feed.example", "", nil)
		f.feed.On("Fetch", mock.Anything, mock.Anything, mock.Anything).Return([]feed.Record{}, nil).Once()

		rec := f.do(t, http.MethodPost, "/sync", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.JSONEq(t, `{"updated":0,"skipped":0,"errors":[]}`, rec.Body.String())
	})

	t.Run("missing endpoint", func(t *testing.T) {
		f := newAPIFixture(t, "", "", nil)

		rec := f.do(t, http.MethodPost, "/sync", "", nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		resp := decode[ErrorResponse](t, rec)
		require.Equal(t, "missing_endpoint", resp.Error)
		require.NotEmpty(t, resp.Message)
	})

	t.Run("bad response from feed", func(t *testing.T) {
		f := newAPIFixture(t, "https://feed.example", "", nil)
		f.feed.On("Fetch", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, &feed.BadResponseError{StatusCode: 500}).Once()

		rec := f.do(t, http.MethodPost, "/sync", "", nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, "bad_response", decode[ErrorResponse](t, rec).Error)
	})

	t.Run("token required", func(t *testing.T) {
		f := newAPIFixture(t, "https://feed.example", "s3cret", nil)

		rec := f.do(t, http.MethodPost, "/sync", "", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)

		f.feed.On("Fetch", mock.Anything, mock.Anything, mock.Anything).Return([]feed.Record{}, nil).Once()
		rec = f.do(t, http.MethodPost, "/sync", "", map[string]string{"Authorization": "Bearer s3cret"})
		require.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestGetSyncStatus(t *testing.T) {
	f := newAPIFixture(t, "https://feed.example", "", nil)

	rec := f.do(t, http.MethodGet, "/sync/status", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[SyncStatusResponse](t, rec)
	require.Nil(t, resp.LastRun)
	require.NotNil(t, resp.NextRun)

	f.feed.On("Fetch", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.Join(feed.ErrTransport, errors.New("dial"))).Once()
	f.do(t, http.MethodPost, "/sync", "", nil)

	rec = f.do(t, http.MethodGet, "/sync/status", "", nil)
	resp = decode[SyncStatusResponse](t, rec)
	require.NotNil(t, resp.LastRun)
	require.Equal(t, service.StateFailed, resp.LastRun.State)
	require.Equal(t, service.TriggerHTTP, resp.LastRun.Trigger)
	require.Equal(t, "transport_error", resp.LastRun.ErrorCode)
}

func TestStockEndpoints(t *testing.T) {
	t.Run("get stock", func(t *testing.T) {
		f := newAPIFixture(t, "", "", nil)

		rec := f.do(t, http.MethodGet, "/products/B%2F1/stock", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		view := decode[service.StockView](t, rec)
		require.Equal(t, "B/1", view.SKU)
		require.Equal(t, int64(7), view.CombinedStock)
	})

	t.Run("percent in sku is decoded once", func(t *testing.T) {
		f := newAPIFixture(t, "", "", nil)
		f.store.Upsert(repository.Product{ID: "p-pct", SKU: "A%41", ManageStock: true, LocalStock: 1, StockStatus: stock.StatusInStock})
		f.store.Upsert(repository.Product{ID: "p-aa", SKU: "AA", ManageStock: true, LocalStock: 99, StockStatus: stock.StatusInStock})

		rec := f.do(t, http.MethodGet, "/products/A%2541/stock", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		view := decode[service.StockView](t, rec)
		require.Equal(t, "A%41", view.SKU)
		require.Equal(t, int64(1), view.LocalStock)

		rec = f.do(t, http.MethodPut, "/products/A%2541/external-stock", `{"external_stock":4}`, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, int64(5), decode[service.StockView](t, rec).CombinedStock)

		untouched, err := f.store.Load(context.Background(), "p-aa")
		require.NoError(t, err)
		require.Equal(t, int64(0), untouched.ExternalStock)
	})

	t.Run("unknown sku", func(t *testing.T) {
		f := newAPIFixture(t, "", "", nil)

		rec := f.do(t, http.MethodGet, "/products/NOPE/stock", "", nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
		require.Equal(t, "not_found", decode[ErrorResponse](t, rec).Error)
	})

	t.Run("set external stock round trip", func(t *testing.T) {
		f := newAPIFixture(t, "", "", nil)

		rec := f.do(t, http.MethodPut, "/products/A/external-stock", `{"external_stock":3}`, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, int64(10), decode[service.StockView](t, rec).CombinedStock)

		rec = f.do(t, http.MethodPut, "/products/A/external-stock", `{"external_stock":-4}`, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		view := decode[service.StockView](t, rec)
		require.Equal(t, int64(0), view.ExternalStock)
		require.Equal(t, int64(7), view.CombinedStock)
	})

	t.Run("set external stock validation", func(t *testing.T) {
		f := newAPIFixture(t, "", "", nil)

		rec := f.do(t, http.MethodPut, "/products/A/external-stock", `{}`, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		rec = f.do(t, http.MethodPut, "/products/A/external-stock", `{"external_stock":"x"}`, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("reduce stock rebalances", func(t *testing.T) {
		f := newAPIFixture(t, "", "", nil)

		rec := f.do(t, http.MethodPost, "/stock/reduce", `{"order_id":"o-1","sku":"B/1","quantity":4}`, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		view := decode[service.StockView](t, rec)
		require.Equal(t, int64(0), view.LocalStock)
		require.Equal(t, int64(3), view.ExternalStock)
		require.Equal(t, int64(3), view.CombinedStock)
	})

	t.Run("reduce stock validation", func(t *testing.T) {
		f := newAPIFixture(t, "", "", nil)

		rec := f.do(t, http.MethodPost, "/stock/reduce", `{"sku":"A"}`, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		rec = f.do(t, http.MethodPost, "/stock/reduce", `{"sku":"A","quantity":-1}`, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, "invalid_argument", decode[ErrorResponse](t, rec).Error)
	})
}

func TestHealth(t *testing.T) {
	f := newAPIFixture(t, "", "", nil)
	rec := f.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	f = newAPIFixture(t, "", "", errors.New("mongo down"))
	rec = f.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
