package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequireBearerToken(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	tests := []struct {
		name       string
		token      string
		header     string
		expectCode int
	}{
		{name: "disabled", token: "", header: "", expectCode: http.StatusNoContent},
		{name: "valid", token: "s3cret", header: "Bearer s3cret", expectCode: http.StatusNoContent},
		{name: "missing", token: "s3cret", header: "", expectCode: http.StatusUnauthorized},
		{name: "wrong", token: "s3cret", header: "Bearer nope", expectCode: http.StatusUnauthorized},
		{name: "wrong scheme", token: "s3cret", header: "Basic s3cret", expectCode: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/sync", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			RequireBearerToken(tt.token)(ok).ServeHTTP(rec, req)
			require.Equal(t, tt.expectCode, rec.Code)
		})
	}
}
