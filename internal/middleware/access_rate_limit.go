package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// AccessRateLimit limits wallet-access attempts per wallet id or IP using
// Redis when available. Password guessing is the concern here, so the
// counter is keyed by whichever identity the request presents.
func AccessRateLimit(cache *redis.Client, maxPerMin int) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 5
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next() // no-op without Redis
		}

		var req struct {
			WalletID string `json:"wallet_id"`
		}
		_ = c.BodyParser(&req)
		subject := strings.TrimSpace(req.WalletID)
		if subject == "" {
			subject = c.IP()
		}

		key := "rl:access:" + subject
		cnt, err := cache.Incr(c.UserContext(), key).Result()
		if err != nil {
			return c.Next() // fail-open on cache errors
		}
		if cnt == 1 {
			cache.Expire(c.UserContext(), key, time.Minute)
		}
		if cnt > int64(maxPerMin) {
			return fiber.NewError(http.StatusTooManyRequests, "too many access attempts, try again later")
		}
		return c.Next()
	}
}
