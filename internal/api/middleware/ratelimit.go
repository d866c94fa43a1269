// SPDX-License-Identifier: MIT

package middleware

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"github.com/ManuGH/dart/internal/log"
)

// RateLimitConfig holds configuration for rate limiting middleware.
type RateLimitConfig struct {
	// RequestLimit is the number of requests a key may make per window
	RequestLimit int
	// WindowSize defaults to one minute
	WindowSize time.Duration
	// KeyFunc defaults to the client IP
	KeyFunc func(r *http.Request) (string, error)
}

type limitBody struct {
	Error     string `json:"error"`
	Detail    string `json:"detail"`
	RequestID string `json:"request_id,omitempty"`
}

// RateLimit limits requests per key with httprate's sliding window counter.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	window := cfg.WindowSize
	if window <= 0 {
		window = time.Minute
	}
	keyFunc := cfg.KeyFunc
	if keyFunc == nil {
		keyFunc = httprate.KeyByIP
	}
	retryAfter := strconv.Itoa(int(math.Ceil(window.Seconds())))

	return httprate.Limit(
		cfg.RequestLimit,
		window,
		httprate.WithKeyFuncs(keyFunc),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			reqID := log.RequestIDFromContext(r.Context())
			log.FromContext(r.Context()).Debug().
				Str(log.FieldEvent, "api.rate_limited").
				Str(log.FieldRemote, r.RemoteAddr).
				Str(log.FieldPath, r.URL.Path).
				Msg("request rejected by rate limit")

			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", retryAfter)
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(limitBody{
				Error:     "rate_limit_exceeded",
				Detail:    "too many requests, retry after " + retryAfter + "s",
				RequestID: reqID,
			})
		}),
	)
}

// APIRateLimit limits each client IP to perMinute requests per minute.
func APIRateLimit(perMinute int) func(http.Handler) http.Handler {
	return RateLimit(RateLimitConfig{RequestLimit: perMinute})
}
