package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/JonMunkholm/catalogconsole/internal/config"
	"github.com/JonMunkholm/catalogconsole/internal/logging"
)

var authRejected = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "api_auth_rejected_total",
	Help: "API requests rejected for a missing or unknown key",
}, []string{"reason"})

// APIKeyAuth guards the /api routes. The key is read from X-API-Key or from
// an "Authorization: Bearer" header.
//
// With RequireAPIKey off every request passes. With it on, a missing key is
// 401 and an unknown key is 403; an empty key list rejects everything.
func APIKeyAuth(cfg *config.SecurityConfig) func(http.Handler) http.Handler {
	digests := make([][sha256.Size]byte, 0, len(cfg.APIKeys))
	for _, k := range cfg.APIKeys {
		if k = strings.TrimSpace(k); k != "" {
			digests = append(digests, sha256.Sum256([]byte(k)))
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.RequireAPIKey {
				next.ServeHTTP(w, r)
				return
			}

			key := requestAPIKey(r)
			switch {
			case key == "":
				reject(w, r, http.StatusUnauthorized, "missing", "AUTH001", "An API key is required")
			case !matchesAny(key, digests):
				reject(w, r, http.StatusForbidden, "invalid", "AUTH002", "The API key is not valid")
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func requestAPIKey(r *http.Request) string {
	if k := strings.TrimSpace(r.Header.Get("X-API-Key")); k != "" {
		return k
	}
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// matchesAny compares digests so every check takes the same time whichever
// key matches.
func matchesAny(key string, digests [][sha256.Size]byte) bool {
	sum := sha256.Sum256([]byte(key))
	found := 0
	for i := range digests {
		found |= subtle.ConstantTimeCompare(sum[:], digests[i][:])
	}
	return found == 1
}

func reject(w http.ResponseWriter, r *http.Request, status int, reason, code, message string) {
	authRejected.WithLabelValues(reason).Inc()
	logging.FromContext(r.Context()).Warn("api key rejected",
		"reason", reason,
		"method", r.Method,
		"path", r.URL.Path,
		"ip", clientIP(r.RemoteAddr),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   http.StatusText(status),
		"message": message,
		"code":    code,
	})
}
