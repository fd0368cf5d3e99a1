package httpapi

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	platformhealth "github.com/shestoi/stocksync/platform/health/http"
	platformobservability "github.com/shestoi/stocksync/platform/observability"

	"github.com/shestoi/stocksync/internal/api/http/middleware"
)

// NewRouter создаёт и настраивает HTTP роутер stocksync.
// readiness проверяет хранилище; если она возвращает ошибку, /health отвечает 503.
// syncToken защищает POST /sync, пустой токен отключает проверку.
func NewRouter(handler *Handler, readiness platformhealth.ReadinessFunc, syncToken string, logger *zap.Logger) chi.Router {
	router := chi.NewRouter()

	// Observability: trace context + span на каждый запрос, logger с trace_id в контексте
	if logger != nil {
		router.Use(platformobservability.HTTPMiddleware("stocksync", logger))
	}

	router.Route("/sync", func(r chi.Router) {
		r.With(middleware.RequireBearerToken(syncToken)).Post("/", handler.PostSync)
		r.Get("/status", handler.GetSyncStatus)
	})

	router.Route("/products/{sku}", func(r chi.Router) {
		r.Get("/stock", func(w http.ResponseWriter, r *http.Request) {
			handler.GetStock(w, r, skuParam(r))
		})
		r.Put("/external-stock", func(w http.ResponseWriter, r *http.Request) {
			handler.PutExternalStock(w, r, skuParam(r))
		})
	})

	router.Post("/stock/reduce", handler.PostReduceStock)

	router.Get("/health", platformhealth.Handler(readiness))

	return router
}

// skuParam возвращает SKU из пути.
// chi маршрутизирует по RawPath, если он задан (например, в пути есть %2F), и тогда
// параметр приходит экранированным; иначе значение уже декодировано.
func skuParam(r *http.Request) string {
	raw := chi.URLParam(r, "sku")
	if r.URL.RawPath == "" {
		return raw
	}
	if sku, err := url.PathUnescape(raw); err == nil {
		return sku
	}
	return raw
}
