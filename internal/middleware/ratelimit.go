package middleware

import (
    "fmt"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/kateri/camp-registration/internal/config"
)

// NewTokenBucket builds a distributed token-bucket rate limiter backed by
// Redis.  It is applied to the hold and confirm endpoints, where a
// parent hammering retry during signup night would otherwise contend on
// the session row lock for everyone.  When Redis is unavailable the
// limiter fails open so registration keeps working.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return func(c echo.Context) error { return next(c) } }
    }

    limiterScript := redis.NewScript(`
        local key = KEYS[1]
        local now_ms = tonumber(ARGV[1])
        local capacity = tonumber(ARGV[2])
        local refill_tokens = tonumber(ARGV[3])
        local interval_ms = tonumber(ARGV[4])
        local ttl_seconds = tonumber(ARGV[5])

        local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
        local tokens = tonumber(state[1])
        local last_refill = tonumber(state[2])

        if tokens == nil or last_refill == nil then
            tokens = capacity
            last_refill = now_ms
        end

        if interval_ms > 0 and refill_tokens > 0 then
            local elapsed = math.max(0, now_ms - last_refill)
            local intervals = math.floor(elapsed / interval_ms)
            if intervals > 0 then
                tokens = math.min(capacity, tokens + (intervals * refill_tokens))
                last_refill = last_refill + (intervals * interval_ms)
            end
        end

        local allowed = 0
        local retry_after_ms = 0
        if tokens > 0 then
            allowed = 1
            tokens = tokens - 1
        else
            local until_next = interval_ms - (now_ms - last_refill)
            if until_next < 0 then until_next = 0 end
            retry_after_ms = until_next
        end

        redis.call('HMSET', key, 'tokens', tokens, 'last_refill_ms', last_refill, 'capacity', capacity)
        redis.call('EXPIRE', key, ttl_seconds)

        return { allowed, tokens, retry_after_ms }
    `)

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := buildRateKey(cfg, c)
            now := time.Now()

            args := []interface{}{
                now.UnixMilli(),
                cfg.Capacity,
                cfg.RefillTokens,
                cfg.RefillInterval.Milliseconds(),
                int64(cfg.TTL / time.Second),
            }

            ctx := c.Request().Context()
            vals, err := limiterScript.Run(ctx, rdb, []string{key}, args...).Result()
            if err != nil {
                if cfg.Debug {
                    c.Logger().Warnf("[ratelimit] redis error for key=%s: %v", key, err)
                }
                return next(c)
            }

            allowed := false
            remaining := int64(0)
            retryMs := int64(0)
            if arr, ok := vals.([]interface{}); ok && len(arr) == 3 {
                if a, ok := arr[0].(int64); ok {
                    allowed = a == 1
                }
                if r, ok := arr[1].(int64); ok {
                    remaining = r
                }
                if w, ok := arr[2].(int64); ok {
                    retryMs = w
                }
            }

            c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
            c.Response().Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
            if !allowed {
                retryAfter := (retryMs + 999) / 1000
                if retryAfter < 1 {
                    retryAfter = 1
                }
                c.Response().Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
                return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "RATE_LIMITED"})
            }
            return next(c)
        }
    }
}

// buildRateKey scopes buckets per user and route so one parent cannot
// exhaust another's budget; unauthenticated callers fall back to the
// client IP.
func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
    who := userID(c)
    if who == "guest" {
        who = "ip:" + c.RealIP()
    }
    return fmt.Sprintf("%s:%s:%s", cfg.Prefix, who, c.Path())
}
