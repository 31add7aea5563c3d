package auth

import (
	"encoding/json"
	"net/http"

	"github.com/ziadkadry99/ai-runner/internal/apperr"
)

// Middleware rejects requests without a valid bearer token. A nil Verifier
// disables authentication and lets every request through.
func Middleware(v *Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if v == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := v.Verify(BearerToken(r.Header.Get("Authorization")))
			if err != nil {
				logRejection(r.URL.Path, err)
				status := apperr.Status(err)
				if status == http.StatusUnauthorized {
					w.Header().Set("WWW-Authenticate", `Bearer realm="airunner"`)
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(status)
				json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}
