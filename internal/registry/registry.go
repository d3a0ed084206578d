package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"golang.org/x/crypto/bcrypt"

	"github.com/ledgerpay/ledgerpay/internal/notification"
	"github.com/ledgerpay/ledgerpay/internal/store"
	"github.com/ledgerpay/ledgerpay/internal/transfer"
	"github.com/ledgerpay/ledgerpay/internal/wallet"
)

var (
	// ErrNotFound occurs when an id does not resolve to a wallet. Credential
	// mismatches report the same error so callers cannot probe for ids.
	ErrNotFound = errors.New("wallet not found")

	// ErrInvalidArgument occurs on missing identifiers or non-positive amounts.
	ErrInvalidArgument = errors.New("invalid argument")
)

const saveTimeout = 5 * time.Second

// Config carries the registry's tunables.
type Config struct {
	BankWalletID       uuid.UUID
	BankInitialDeposit decimal.Decimal
	Wallet             wallet.Options
}

// Registry owns the id-to-wallet map, bootstraps the designated bank wallet
// and forwards by-id requests to wallet operations. It is an explicit
// dependency handed to request handlers, never ambient global state.
type Registry struct {
	mu      sync.RWMutex
	wallets map[uuid.UUID]*wallet.Wallet

	store    store.Store
	factory  *transfer.Factory
	notifier notification.Notifier
	logger   *slog.Logger
	cfg      Config

	// saves guards the best-effort persistence path; a tripped breaker only
	// suppresses save attempts, the in-memory operation already succeeded.
	saves *gobreaker.CircuitBreaker
}

// New constructs a registry over the given store.
func New(st store.Store, factory *transfer.Factory, notifier notification.Notifier, logger *slog.Logger, cfg Config) *Registry {
	return &Registry{
		wallets:  make(map[uuid.UUID]*wallet.Wallet),
		store:    st,
		factory:  factory,
		notifier: notifier,
		logger:   logger,
		cfg:      cfg,
		saves: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "wallet-store",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
	}
}

// CreateWallet provisions an empty wallet guarded by the given password.
func (r *Registry) CreateWallet(ctx context.Context, password string) (*wallet.Wallet, error) {
	if password == "" {
		return nil, fmt.Errorf("password is required to create a wallet: %w", ErrInvalidArgument)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash wallet password: %w", err)
	}

	w := wallet.New(string(hash), r.factory, r.logger, r.cfg.Wallet)
	r.mu.Lock()
	r.wallets[w.ID()] = w
	r.mu.Unlock()

	r.saveAsync(w)
	return w, nil
}

// AccessWallet resolves a wallet and verifies its password. A wrong password
// returns the same ErrNotFound a missing wallet does.
func (r *Registry) AccessWallet(ctx context.Context, id uuid.UUID, password string) (*wallet.Wallet, error) {
	w, err := r.Lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(w.PasswordHash()), []byte(password)); err != nil {
		r.logger.Warn("password mismatch for wallet", slog.String("wallet_id", id.String()))
		return nil, fmt.Errorf("wallet %s: %w", id, ErrNotFound)
	}
	return w, nil
}

// Lookup resolves a wallet by id without credential checks, loading it from
// the store on first access.
func (r *Registry) Lookup(ctx context.Context, id uuid.UUID) (*wallet.Wallet, error) {
	r.mu.RLock()
	w, ok := r.wallets[id]
	r.mu.RUnlock()
	if ok {
		return w, nil
	}

	rec, err := r.store.Load(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("wallet %s: %w", id, ErrNotFound)
		}
		r.logger.Warn("failed to load wallet record", slog.String("wallet_id", id.String()), slog.Any("error", err))
		return nil, fmt.Errorf("wallet %s: %w", id, ErrNotFound)
	}
	loaded, err := wallet.FromRecord(rec, r.factory, r.logger, r.cfg.Wallet)
	if err != nil {
		r.logger.Warn("failed to rebuild wallet from record", slog.String("wallet_id", id.String()), slog.Any("error", err))
		return nil, fmt.Errorf("wallet %s: %w", id, ErrNotFound)
	}
	if loaded.ID() != id {
		r.logger.Warn("wallet record id does not match requested id",
			slog.String("requested", id.String()), slog.String("loaded", loaded.ID().String()))
		return nil, fmt.Errorf("wallet %s: %w", id, ErrNotFound)
	}

	return r.cache(loaded), nil
}

// cache stores the wallet unless a concurrent load won the race, in which
// case the already-cached instance is the authoritative one.
func (r *Registry) cache(w *wallet.Wallet) *wallet.Wallet {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.wallets[w.ID()]; ok {
		return existing
	}
	r.wallets[w.ID()] = w
	return w
}

// SendMoney validates the request, resolves both wallets and delegates to
// the source wallet's reserve-then-settle protocol. Both wallets are saved
// asynchronously afterwards.
func (r *Registry) SendMoney(ctx context.Context, sourceID, destinationID uuid.UUID, amount decimal.Decimal) (wallet.TransferReceipt, error) {
	if sourceID == uuid.Nil || destinationID == uuid.Nil {
		return wallet.TransferReceipt{}, fmt.Errorf("source and destination wallet ids are required: %w", ErrInvalidArgument)
	}
	if sourceID == destinationID {
		return wallet.TransferReceipt{}, fmt.Errorf("source and destination wallets must differ: %w", ErrInvalidArgument)
	}
	if amount.Sign() <= 0 {
		return wallet.TransferReceipt{}, fmt.Errorf("amount %s must be greater than zero: %w", amount, ErrInvalidArgument)
	}

	source, err := r.Lookup(ctx, sourceID)
	if err != nil {
		return wallet.TransferReceipt{}, err
	}
	destination, err := r.Lookup(ctx, destinationID)
	if err != nil {
		return wallet.TransferReceipt{}, err
	}

	receipt, err := source.SendMoney(destination, amount)
	if err != nil {
		return wallet.TransferReceipt{}, err
	}

	r.saveAsync(source)
	r.saveAsync(destination)

	if r.notifier != nil {
		_ = r.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindTransferReceived,
			Destination: destinationID.String(),
			Body:        fmt.Sprintf("You received %s from wallet %s", amount, sourceID),
		})
	}
	return receipt, nil
}

// DepositMoney funds a wallet through an internal transfer from the bank
// wallet, creating the bank wallet on first use.
func (r *Registry) DepositMoney(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal) (wallet.BalanceSnapshot, error) {
	if walletID == uuid.Nil {
		return wallet.BalanceSnapshot{}, fmt.Errorf("wallet id is required: %w", ErrInvalidArgument)
	}
	if walletID == r.cfg.BankWalletID {
		return wallet.BalanceSnapshot{}, fmt.Errorf("wallet %s is the deposit source and cannot be deposited into: %w", walletID, ErrInvalidArgument)
	}
	if amount.Sign() <= 0 {
		return wallet.BalanceSnapshot{}, fmt.Errorf("amount %s must be greater than zero: %w", amount, ErrInvalidArgument)
	}

	if _, err := r.bankWallet(ctx); err != nil {
		return wallet.BalanceSnapshot{}, err
	}
	if _, err := r.SendMoney(ctx, r.cfg.BankWalletID, walletID, amount); err != nil {
		return wallet.BalanceSnapshot{}, err
	}

	target, err := r.Lookup(ctx, walletID)
	if err != nil {
		return wallet.BalanceSnapshot{}, err
	}
	return target.BalanceSnapshot()
}

// bankWallet resolves the designated bank wallet, bootstrapping it with its
// configured wealth if it does not exist yet. The bootstrap ledger holds a
// single validated deposit so replay yields the initial balance.
func (r *Registry) bankWallet(ctx context.Context) (*wallet.Wallet, error) {
	w, err := r.Lookup(ctx, r.cfg.BankWalletID)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	r.logger.Info("bank wallet not found, bootstrapping",
		slog.String("wallet_id", r.cfg.BankWalletID.String()),
		slog.String("initial_deposit", r.cfg.BankInitialDeposit.String()))

	seed := []transfer.Record{{
		ID:        uuid.NewString(),
		Recipient: r.cfg.BankWalletID.String(),
		Amount:    r.cfg.BankInitialDeposit,
		Timestamp: time.Now().UnixMilli(),
	}}
	raw, err := json.Marshal(seed)
	if err != nil {
		return nil, fmt.Errorf("encode bank bootstrap ledger: %w", err)
	}

	bank, err := wallet.FromRecord(wallet.Record{
		ID:           r.cfg.BankWalletID.String(),
		PasswordHash: "this-will-never-match-anything",
		Ledger:       raw,
	}, r.factory, r.logger, r.cfg.Wallet)
	if err != nil {
		return nil, fmt.Errorf("bootstrap bank wallet: %w", err)
	}

	bank = r.cache(bank)
	r.saveAsync(bank)
	return bank, nil
}

// SaveAll synchronously persists every cached wallet. Used on shutdown;
// individual failures are logged and do not stop the sweep.
func (r *Registry) SaveAll(ctx context.Context) {
	r.mu.RLock()
	wallets := make([]*wallet.Wallet, 0, len(r.wallets))
	for _, w := range r.wallets {
		wallets = append(wallets, w)
	}
	r.mu.RUnlock()

	for _, w := range wallets {
		rec, err := w.Record()
		if err != nil {
			r.logger.Error("failed to snapshot wallet for save", slog.String("wallet_id", w.ID().String()), slog.Any("error", err))
			continue
		}
		if err := r.store.Save(ctx, rec); err != nil {
			r.logger.Error("failed to save wallet", slog.String("wallet_id", w.ID().String()), slog.Any("error", err))
		}
	}
}

// saveAsync persists the wallet in the background. Persistence is outside
// the consistency boundary of a transfer, so failures are logged and the
// breaker backs off a misbehaving store without affecting callers.
func (r *Registry) saveAsync(w *wallet.Wallet) {
	rec, err := w.Record()
	if err != nil {
		r.logger.Error("failed to snapshot wallet for save", slog.String("wallet_id", w.ID().String()), slog.Any("error", err))
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		_, err := r.saves.Execute(func() (any, error) {
			return nil, r.store.Save(ctx, rec)
		})
		if err != nil {
			r.logger.Warn("async wallet save failed", slog.String("wallet_id", w.ID().String()), slog.Any("error", err))
		}
	}()
}
