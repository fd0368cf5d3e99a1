package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// ReadinessFunc проверяет зависимости сервиса (хранилище, брокер и т.д.)
type ReadinessFunc func(ctx context.Context) error

type response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Handler возвращает handler для health endpoint.
// 200 {"status":"ok"}, если readiness не задана или вернула nil,
// иначе 503 {"status":"not ready","error":"..."}.
func Handler(readiness ReadinessFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if readiness != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()

			if err := readiness(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(w).Encode(response{Status: "not ready", Error: err.Error()})
				return
			}
		}

		_ = json.NewEncoder(w).Encode(response{Status: "ok"})
	}
}
