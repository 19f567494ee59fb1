package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-redis/redis/v8"
	"github.com/mediaforge/vod-service/internal/ratelimit"
	"github.com/mediaforge/vod-service/internal/utils/response"
)

type RateLimitConfig struct {
	redisClient *redis.Client
	limiters    map[string]*ratelimit.TokenBucket
}

func NewRateLimitConfig(redisClient *redis.Client) *RateLimitConfig {
	config := &RateLimitConfig{
		redisClient: redisClient,
		limiters:    make(map[string]*ratelimit.TokenBucket),
	}

	// POST /media: 10 upload sessions per minute per user. Each session is
	// an outbound call to the encoder, so the budget protects the upstream
	// quota as much as this service.
	config.limiters["uploads"] = ratelimit.NewTokenBucket(redisClient, 10, 10)

	return config
}

func (rlc *RateLimitConfig) RateLimitMiddleware(action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Rate limits are per user; auth middleware must run first
			userID, ok := GetUserIDFromContext(r.Context())
			if !ok {
				response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(
					errors.New("user not authenticated")))
				return
			}

			limiter, exists := rlc.limiters[action]
			if !exists {
				next.ServeHTTP(w, r)
				return
			}

			allowed, err := limiter.Allow(r.Context(), userID, action)
			if err != nil {
				response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(
					fmt.Errorf("rate limit check failed: %w", err)))
				return
			}

			remaining, _ := limiter.GetRemaining(r.Context(), userID, action)
			w.Header().Set("X-RateLimit-Limit", getLimitForAction(action))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
			w.Header().Set("X-RateLimit-Reset", "60")

			if !allowed {
				response.WriteJSON(w, http.StatusTooManyRequests, response.GeneralError(
					errors.New("rate limit exceeded")))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Helper function to get the limit for display in headers
func getLimitForAction(action string) string {
	switch action {
	case "uploads":
		return "10"
	default:
		return "100"
	}
}
