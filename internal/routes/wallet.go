package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/ledgerpay/ledgerpay/internal/auth"
	"github.com/ledgerpay/ledgerpay/internal/middleware"
	"github.com/ledgerpay/ledgerpay/internal/registry"
)

// RegisterWalletRoutes wires the public wallet lifecycle endpoints and the
// token-protected per-wallet operations.
func RegisterWalletRoutes(r fiber.Router, h *registry.Handler, tokens *auth.Service, cache *redis.Client) {
	r.Post("/wallets", h.Create)
	r.Post("/wallets/access", middleware.AccessRateLimit(cache, 5), h.Access)

	protected := r.Group("/wallets/:walletID", middleware.WalletAuth(tokens))
	protected.Get("/balance", h.Balance)
	protected.Get("/ledger", h.Ledger)
	protected.Post("/transfers", h.Transfer)
	protected.Post("/deposits", h.Deposit)
}
