package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	"github.com/trashmob-eco/trashmob/internal/auth"
)

const (
	// DeletionRequestsPerWindow bounds deletion calls per caller.
	DeletionRequestsPerWindow = 10
	DeletionWindow            = 15 * time.Minute
)

// DeletionRateLimit limits how often one caller may hit the delete
// endpoints. Callers are keyed by authenticated user id, falling back to the
// client IP, so it must run after auth.RequireAuth to key by user.
func DeletionRateLimit() func(http.Handler) http.Handler {
	return RateLimit(DeletionRequestsPerWindow, DeletionWindow)
}

// RateLimit allows limit requests per window per caller and answers 429
// with a JSON body beyond that.
func RateLimit(limit int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(
		limit,
		window,
		httprate.WithKeyFuncs(keyByUserOrIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error":       "rate_limited",
				"message":     "Too many requests. Please try again later.",
				"retry_after": int(window.Seconds()),
			})
		}),
	)
}

func keyByUserOrIP(r *http.Request) (string, error) {
	if id, ok := auth.UserIDFromContext(r.Context()); ok {
		return "user:" + id.String(), nil
	}
	ip, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + ip, nil
}
