package middleware

import (
	"fmt"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"
)

// RateLimit limits requests per client IP to perMinute. Counters live in Redis
// when a client is given so that every replica shares them. X-Forwarded-For and
// X-Real-IP are only read when trustProxy is set.
func RateLimit(perMinute int64, client *redis.Client, trustProxy bool) (echo.MiddlewareFunc, error) {
	rate := limiter.Rate{Period: time.Minute, Limit: perMinute}

	var (
		store limiter.Store
		err   error
	)
	if client != nil {
		store, err = redisstore.NewStoreWithOptions(client, limiter.StoreOptions{
			Prefix:   "booking_rate",
			MaxRetry: limiter.DefaultMaxRetry,
		})
		if err != nil {
			return nil, fmt.Errorf("rate limit store: %w", err)
		}
	} else {
		store = memory.NewStore()
	}

	instance := limiter.New(store, rate, limiter.WithTrustForwardHeader(trustProxy))
	return echo.WrapMiddleware(stdlib.NewMiddleware(instance).Handler), nil
}
