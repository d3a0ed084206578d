package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ledgerpay/ledgerpay/internal/auth"
)

// WalletIDKey is the locals key under which WalletAuth stores the wallet id
// the presented token grants access to.
const WalletIDKey = "wallet_id"

// WalletAuth validates the bearer token and records the wallet id it is
// bound to. Handlers compare it against the wallet id in the path.
func WalletAuth(tokens *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		token := strings.TrimSpace(authz[len("Bearer "):])

		walletID, err := tokens.VerifyToken(token)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}

		c.Locals(WalletIDKey, walletID.String())
		return c.Next()
	}
}
