package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

var tokenBucketScript = redis.NewScript(`
	local key = KEYS[1]
	local capacity = tonumber(ARGV[1])
	local rate = tonumber(ARGV[2])
	local now = tonumber(ARGV[3])
	local requested = tonumber(ARGV[4])

	local info = redis.call("HMGET", key, "tokens", "last_refill")
	local tokens = tonumber(info[1])
	local last_refill = tonumber(info[2])

	if tokens == nil then
		tokens = capacity
		last_refill = now
	end

	local delta = math.max(0, now - last_refill)
	local filled_tokens = math.min(capacity, tokens + (delta / 1000 * rate))

	local allowed = 0
	if filled_tokens >= requested then
		filled_tokens = filled_tokens - requested
		allowed = 1
	end
	redis.call("HMSET", key, "tokens", filled_tokens, "last_refill", now)
	redis.call("EXPIRE", key, math.ceil(capacity / rate) * 2)

	return allowed
`)

// Limiter is a per-client token bucket kept in Redis. A nil *Limiter
// lets every request through.
type Limiter struct {
	rdb   *redis.Client
	rate  float64
	burst int
	log   *logrus.Logger
}

// NewLimiter returns nil, which disables limiting, unless rate and burst
// are both positive.
func NewLimiter(rdb *redis.Client, rate float64, burst int, log *logrus.Logger) *Limiter {
	if rdb == nil || rate <= 0 || burst <= 0 {
		log.WithFields(logrus.Fields{
			"rate":  rate,
			"burst": burst,
		}).Warn("rate limiting disabled")
		return nil
	}
	return &Limiter{rdb: rdb, rate: rate, burst: burst, log: log}
}

// Allow takes one token from the bucket named key.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	keys := []string{"rate_limit:" + key}
	args := []interface{}{l.burst, l.rate, time.Now().UnixMilli(), 1}
	n, err := tokenBucketScript.Run(ctx, l.rdb, keys, args...).Int64()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Limit throttles requests per client IP within scope. Redis errors are
// logged and the request is let through.
func (l *Limiter) Limit(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), 200*time.Millisecond)
			defer cancel()

			key := fmt.Sprintf("%s:%s", scope, clientIP(r))
			ok, err := l.Allow(ctx, key)
			if err != nil {
				l.log.WithError(err).WithField("key", key).Warn("rate limiter unavailable")
			} else if !ok {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"detail":"Too many requests"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP relies on chi's RealIP having already rewritten RemoteAddr.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
