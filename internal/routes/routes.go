package routes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/ledgerpay/ledgerpay/internal/auth"
	"github.com/ledgerpay/ledgerpay/internal/config"
	"github.com/ledgerpay/ledgerpay/internal/middleware"
	"github.com/ledgerpay/ledgerpay/internal/notification"
	"github.com/ledgerpay/ledgerpay/internal/registry"
	"github.com/ledgerpay/ledgerpay/internal/store"
	"github.com/ledgerpay/ledgerpay/internal/transfer"
	"github.com/ledgerpay/ledgerpay/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes. It returns the
// registry so main can persist wallets on shutdown.
func Setup(app *fiber.App, d Deps) (*registry.Registry, error) {
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	RegisterHealthRoutes(app, d)

	var walletStore store.Store
	if d.DB != nil {
		walletStore = store.NewPostgresStore(d.DB)
	} else {
		fileStore, err := store.NewFileStore(d.Cfg.DataDir)
		if err != nil {
			return nil, err
		}
		walletStore = fileStore
	}

	factory := transfer.NewFactory(d.Logger)
	notifier := notification.NewLoggerNotifier(d.Logger)
	reg := registry.New(walletStore, factory, notifier, d.Logger, registry.Config{
		BankWalletID:       d.Cfg.BankWalletID,
		BankInitialDeposit: d.Cfg.BankInitialDeposit,
		Wallet: wallet.Options{
			RetryDeadline: d.Cfg.RetryDeadline,
			RetrySleep:    d.Cfg.RetrySleep,
		},
	})

	tokens := auth.NewService(d.Cfg.JWTSecret, d.Cfg.TokenTTL)
	handler := registry.NewHandler(reg, tokens)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	RegisterWalletRoutes(api, handler, tokens, d.Cache)

	return reg, nil
}
