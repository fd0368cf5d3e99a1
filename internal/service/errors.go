package service

import (
	"errors"

	"github.com/shestoi/stocksync/internal/feed"
	"github.com/shestoi/stocksync/internal/repository"
)

var (
	// ErrMissingBackingStore — хранилище товаров не подключено или не отвечает
	ErrMissingBackingStore = errors.New("product store is not available")
	// ErrSyncInProgress — прогон уже выполняется в другом процессе
	ErrSyncInProgress = errors.New("sync already in progress")
	// ErrSyncStopped — сервис останавливается, новые прогоны не запускаются
	ErrSyncStopped = errors.New("sync service is shutting down")
	// ErrInvalidQuantity — количество для списания должно быть положительным
	ErrInvalidQuantity = errors.New("quantity must be positive")
)

// Коды ошибок для внешних ответов
const (
	CodeMissingEndpoint     = "missing_endpoint"
	CodeTransportError      = "transport_error"
	CodeBadResponse         = "bad_response"
	CodeBadPayload          = "bad_payload"
	CodeMissingBackingStore = "missing_backing_store"
	CodeSyncInProgress      = "sync_in_progress"
	CodeShuttingDown        = "shutting_down"
	CodeNotFound            = "not_found"
	CodeInvalidArgument     = "invalid_argument"
	CodeInternal            = "internal_error"
)

// ErrorCode возвращает машинный код ошибки прогона или операции с остатком
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, feed.ErrMissingEndpoint):
		return CodeMissingEndpoint
	case errors.Is(err, feed.ErrTransport):
		return CodeTransportError
	case errors.Is(err, feed.ErrBadResponse):
		return CodeBadResponse
	case errors.Is(err, feed.ErrBadPayload):
		return CodeBadPayload
	case errors.Is(err, ErrMissingBackingStore):
		return CodeMissingBackingStore
	case errors.Is(err, ErrSyncInProgress):
		return CodeSyncInProgress
	case errors.Is(err, ErrSyncStopped):
		return CodeShuttingDown
	case errors.Is(err, repository.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrInvalidQuantity):
		return CodeInvalidArgument
	default:
		return CodeInternal
	}
}
