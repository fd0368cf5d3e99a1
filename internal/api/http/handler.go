package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	platformobservability "github.com/shestoi/stocksync/platform/observability"

	"github.com/shestoi/stocksync/internal/repository"
	"github.com/shestoi/stocksync/internal/service"
)

// SyncRunner то, что HTTP слою нужно от оркестратора синхронизации
type SyncRunner interface {
	Sync(ctx context.Context, trigger service.Trigger) (service.Result, error)
	LastRun() (service.RunReport, bool)
}

// StockService путь чтения и изменения остатков
type StockService interface {
	GetStock(ctx context.Context, sku string) (service.StockView, error)
	SetExternalStock(ctx context.Context, sku string, value int64) (service.StockView, error)
	ReduceStockBySKU(ctx context.Context, orderID, sku string, qty int64) (service.StockView, error)
}

// NextRunFunc возвращает время следующего запуска по таймеру; false, если автосинхронизация выключена
type NextRunFunc func() (time.Time, bool)

// Handler содержит HTTP-обработчики stocksync
type Handler struct {
	logger  *zap.Logger
	sync    SyncRunner
	stock   StockService
	nextRun NextRunFunc
}

// NewHandler создаёт новый HTTP handler; nextRun может быть nil
func NewHandler(logger *zap.Logger, syncRunner SyncRunner, stockService StockService, nextRun NextRunFunc) *Handler {
	if nextRun == nil {
		nextRun = func() (time.Time, bool) { return time.Time{}, false }
	}
	return &Handler{
		logger:  logger,
		sync:    syncRunner,
		stock:   stockService,
		nextRun: nextRun,
	}
}

// ErrorResponse тело ответа с ошибкой
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// SyncStatusResponse ответ GET /sync/status
type SyncStatusResponse struct {
	LastRun *service.RunReport `json:"last_run"`
	NextRun *time.Time         `json:"next_run"`
}

// ExternalStockRequest тело PUT /products/{sku}/external-stock
type ExternalStockRequest struct {
	ExternalStock *int64 `json:"external_stock"`
}

// ReduceStockRequest тело POST /stock/reduce
type ReduceStockRequest struct {
	OrderID  string `json:"order_id"`
	SKU      string `json:"sku"`
	Quantity *int64 `json:"quantity"`
}

// PostSync обрабатывает POST /sync - синхронный прогон синхронизации
func (h *Handler) PostSync(w http.ResponseWriter, r *http.Request) {
	log := platformobservability.LoggerFromContext(r.Context(), h.logger)

	result, err := h.sync.Sync(r.Context(), service.TriggerHTTP)
	if err != nil {
		log.Warn("http-triggered sync failed", zap.Error(err))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: service.ErrorCode(err), Message: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// GetSyncStatus обрабатывает GET /sync/status
func (h *Handler) GetSyncStatus(w http.ResponseWriter, r *http.Request) {
	var resp SyncStatusResponse
	if report, ok := h.sync.LastRun(); ok {
		resp.LastRun = &report
	}
	if next, ok := h.nextRun(); ok {
		resp.NextRun = &next
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetStock обрабатывает GET /products/{sku}/stock
func (h *Handler) GetStock(w http.ResponseWriter, r *http.Request, sku string) {
	view, err := h.stock.GetStock(r.Context(), sku)
	if err != nil {
		h.writeStockError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// PutExternalStock обрабатывает PUT /products/{sku}/external-stock
func (h *Handler) PutExternalStock(w http.ResponseWriter, r *http.Request, sku string) {
	var req ExternalStockRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: service.CodeInvalidArgument, Message: "invalid JSON: " + err.Error()})
		return
	}
	if req.ExternalStock == nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: service.CodeInvalidArgument, Message: "external_stock is required"})
		return
	}

	view, err := h.stock.SetExternalStock(r.Context(), sku, *req.ExternalStock)
	if err != nil {
		h.writeStockError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// PostReduceStock обрабатывает POST /stock/reduce - списание с перебалансировкой
func (h *Handler) PostReduceStock(w http.ResponseWriter, r *http.Request) {
	var req ReduceStockRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: service.CodeInvalidArgument, Message: "invalid JSON: " + err.Error()})
		return
	}
	if req.SKU == "" || req.Quantity == nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: service.CodeInvalidArgument, Message: "sku and quantity are required"})
		return
	}

	view, err := h.stock.ReduceStockBySKU(r.Context(), req.OrderID, req.SKU, *req.Quantity)
	if err != nil {
		h.writeStockError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) writeStockError(w http.ResponseWriter, r *http.Request, err error) {
	code := service.ErrorCode(err)
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, repository.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrInvalidQuantity):
		status = http.StatusBadRequest
	default:
		platformobservability.LoggerFromContext(r.Context(), h.logger).Error("stock request failed", zap.Error(err))
	}
	writeJSON(w, status, ErrorResponse{Error: code, Message: err.Error()})
}

func decodeJSON(body io.Reader, v any) error {
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
