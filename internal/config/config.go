package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	defaultAppName            = "LedgerPay"
	defaultAppEnv             = "development"
	defaultPort               = "8080"
	defaultLogLevel           = "info"
	defaultDataDir            = "./wallet-data"
	defaultBankWalletID       = "00000000-0000-0000-0000-000000000001"
	defaultBankInitialDeposit = "1000000000"
	defaultTokenTTL           = 24 * time.Hour
	defaultRetryDeadline      = 10 * time.Second
	defaultRetrySleep         = 100 * time.Millisecond
	defaultShutdownDelay      = 10 * time.Second
	defaultIdempotencyTTL     = 24 * time.Hour
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName  string
	AppEnv   string
	Port     string
	LogLevel string

	JWTSecret string
	TokenTTL  time.Duration

	// RetryDeadline and RetrySleep bound the wallet core's spin-with-sleep
	// loops for reservation and consistent reads.
	RetryDeadline time.Duration
	RetrySleep    time.Duration

	DataDir            string
	DatabaseURL        string
	RedisURL           string
	BankWalletID       uuid.UUID
	BankInitialDeposit decimal.Decimal

	ShutdownPeriod time.Duration
	IdempotencyTTL time.Duration
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:        getEnv("APP_NAME", defaultAppName),
		AppEnv:         getEnv("APP_ENV", defaultAppEnv),
		Port:           getEnv("PORT", defaultPort),
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		DataDir:        getEnv("DATA_DIR", defaultDataDir),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		TokenTTL:       defaultTokenTTL,
		RetryDeadline:  defaultRetryDeadline,
		RetrySleep:     defaultRetrySleep,
		ShutdownPeriod: defaultShutdownDelay,
		IdempotencyTTL: defaultIdempotencyTTL,
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET must be set")
	}
	if len(cfg.JWTSecret) < 32 {
		return Config{}, fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}

	var err error
	if cfg.TokenTTL, err = durationEnv("TOKEN_TTL", cfg.TokenTTL); err != nil {
		return Config{}, err
	}
	if cfg.RetryDeadline, err = durationEnv("RETRY_DEADLINE", cfg.RetryDeadline); err != nil {
		return Config{}, err
	}
	if cfg.RetrySleep, err = durationEnv("RETRY_SLEEP", cfg.RetrySleep); err != nil {
		return Config{}, err
	}
	if cfg.ShutdownPeriod, err = durationEnv("SHUTDOWN_TIMEOUT", cfg.ShutdownPeriod); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationEnv("IDEMPOTENCY_TTL", cfg.IdempotencyTTL); err != nil {
		return Config{}, err
	}

	bankID := getEnv("BANK_WALLET_ID", defaultBankWalletID)
	if cfg.BankWalletID, err = uuid.Parse(bankID); err != nil {
		return Config{}, fmt.Errorf("invalid BANK_WALLET_ID: %w", err)
	}
	if cfg.BankWalletID == uuid.Nil {
		return Config{}, fmt.Errorf("BANK_WALLET_ID must not be the zero uuid")
	}

	deposit := getEnv("BANK_INITIAL_DEPOSIT", defaultBankInitialDeposit)
	if cfg.BankInitialDeposit, err = decimal.NewFromString(deposit); err != nil {
		return Config{}, fmt.Errorf("invalid BANK_INITIAL_DEPOSIT: %w", err)
	}
	if cfg.BankInitialDeposit.Sign() <= 0 {
		return Config{}, fmt.Errorf("BANK_INITIAL_DEPOSIT must be positive")
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
