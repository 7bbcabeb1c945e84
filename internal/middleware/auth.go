package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// APIKeyHeader is the header clients put the management key in
const APIKeyHeader = "X-API-Key"

// APIKey guards management endpoints with the configured shared key. The key
// is read from X-API-Key, a bearer token, or the api_key query parameter.
// With no key configured every request is let through.
func (m *Middleware) APIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		expected := m.cfg.Security.APIKey
		if expected == "" {
			m.openAccessWarning.Do(func() {
				m.log.Warn().Msg("security.api_key is not set; management endpoints are unprotected")
			})
			next.ServeHTTP(w, r)
			return
		}

		presented := presentedKey(r)
		if presented == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(expected)) != 1 {
			m.log.Debug().Str("path", r.URL.Path).Msg("rejected request with invalid API key")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":{"code":"unauthorized","message":"Unauthorized: invalid API key"}}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func presentedKey(r *http.Request) string {
	if key := r.Header.Get(APIKeyHeader); key != "" {
		return key
	}
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	return r.URL.Query().Get("api_key")
}
