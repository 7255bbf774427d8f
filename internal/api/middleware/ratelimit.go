package middleware

import (
	"net/http"

	"riskengine/pkg/ratelimit"
)

// RateLimit ограничивает частоту запросов через Token Bucket
//
// Вешается на горячие endpoints (приём ценовых тиков): всплеск
// сверх burst получает 429 вместо деградации всего сервера.
func RateLimit(limiter *ratelimit.RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				w.Header().Set("Retry-After", "1")
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
