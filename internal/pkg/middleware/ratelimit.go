package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"siam/internal/pkg/cache"
	"siam/internal/pkg/logger"
)

const rateLimitKeyPrefix = "siam:rate-limit:"

// RateLimiter limita requisições por IP numa janela fixa, com o contador no Redis.
// Se o Redis falhar a requisição segue; o inventário não fica indisponível por causa do limitador.
func RateLimiter(client cache.Client, limit int, window time.Duration, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}
			key := rateLimitKeyPrefix + ip
			ctx := r.Context()

			count, err := client.Incr(ctx, key)
			if err != nil {
				log.Warn("Rate limiter indisponível; requisição liberada.", map[string]interface{}{"error": err.Error()})
				next.ServeHTTP(w, r)
				return
			}
			if count == 1 {
				// Primeiro hit da janela: define a expiração.
				if err := client.Expire(ctx, key, window); err != nil {
					log.Warn("Falha ao definir janela do rate limiter.", map[string]interface{}{"error": err.Error()})
				}
			}

			remaining := int64(limit) - count
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

			if count > int64(limit) {
				retryAfter := window
				// Um Expire perdido deixaria o contador sem TTL e o IP bloqueado para sempre.
				ttl, err := client.TTL(ctx, key)
				switch {
				case err != nil:
					log.Warn("Falha ao consultar janela do rate limiter.", map[string]interface{}{"error": err.Error()})
				case ttl < 0:
					log.Warn("Contador do rate limiter sem expiração; reaplicando janela.", map[string]interface{}{"key": key})
					if err := client.Expire(ctx, key, window); err != nil {
						log.Warn("Falha ao definir janela do rate limiter.", map[string]interface{}{"error": err.Error()})
					}
				default:
					retryAfter = ttl
				}
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
				http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
