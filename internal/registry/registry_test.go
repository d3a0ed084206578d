package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerpay/ledgerpay/internal/logging"
	"github.com/ledgerpay/ledgerpay/internal/store"
	"github.com/ledgerpay/ledgerpay/internal/transfer"
	"github.com/ledgerpay/ledgerpay/internal/wallet"
)

func newTestRegistry(t *testing.T) (*Registry, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	factory := transfer.NewFactory(logging.Discard())
	cfg := Config{
		BankWalletID:       uuid.MustParse("00000000-0000-0000-0000-000000000001"),
		BankInitialDeposit: decimal.NewFromInt(1_000_000),
		Wallet: wallet.Options{
			RetryDeadline: 2 * time.Second,
			RetrySleep:    time.Millisecond,
		},
	}
	return New(st, factory, nil, logging.Discard(), cfg), st
}

func TestCreateWalletRequiresPassword(t *testing.T) {
	r, _ := newTestRegistry(t)
	if _, err := r.CreateWallet(context.Background(), ""); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestAccessWalletVerifiesPassword(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	created, err := r.CreateWallet(ctx, "s3cret")
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}

	w, err := r.AccessWallet(ctx, created.ID(), "s3cret")
	if err != nil {
		t.Fatalf("access with correct password: %v", err)
	}
	if w.ID() != created.ID() {
		t.Fatalf("accessed a different wallet")
	}

	// A wrong password must be indistinguishable from a missing wallet.
	if _, err := r.AccessWallet(ctx, created.ID(), "wrong"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("wrong password: expected ErrNotFound, got %v", err)
	}
	if _, err := r.AccessWallet(ctx, uuid.New(), "s3cret"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown wallet: expected ErrNotFound, got %v", err)
	}
}

func TestLookupLoadsFromStore(t *testing.T) {
	r, st := newTestRegistry(t)
	ctx := context.Background()

	created, err := r.CreateWallet(ctx, "pw")
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	if _, err := r.DepositMoney(ctx, created.ID(), decimal.NewFromInt(250)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	r.SaveAll(ctx)

	// A fresh registry over the same store must rebuild the wallet.
	factory := transfer.NewFactory(logging.Discard())
	fresh := New(st, factory, nil, logging.Discard(), r.cfg)

	loaded, err := fresh.Lookup(ctx, created.ID())
	if err != nil {
		t.Fatalf("lookup from store: %v", err)
	}
	if !loaded.Balance().Equal(decimal.NewFromInt(250)) {
		t.Fatalf("reloaded balance %s, want 250", loaded.Balance())
	}
}

func TestSendMoneyValidation(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	if _, err := r.SendMoney(ctx, uuid.Nil, uuid.New(), decimal.NewFromInt(1)); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("nil source: expected ErrInvalidArgument, got %v", err)
	}
	if _, err := r.SendMoney(ctx, uuid.New(), uuid.Nil, decimal.NewFromInt(1)); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("nil destination: expected ErrInvalidArgument, got %v", err)
	}
	if _, err := r.SendMoney(ctx, uuid.New(), uuid.New(), decimal.Zero); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("zero amount: expected ErrInvalidArgument, got %v", err)
	}
	if _, err := r.SendMoney(ctx, uuid.New(), uuid.New(), decimal.NewFromInt(1)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown wallets: expected ErrNotFound, got %v", err)
	}
}

func TestSendMoneyMovesFundsBetweenWallets(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	source, err := r.CreateWallet(ctx, "pw-a")
	if err != nil {
		t.Fatalf("create source: %v", err)
	}
	destination, err := r.CreateWallet(ctx, "pw-b")
	if err != nil {
		t.Fatalf("create destination: %v", err)
	}
	if _, err := r.DepositMoney(ctx, source.ID(), decimal.NewFromInt(100)); err != nil {
		t.Fatalf("fund source: %v", err)
	}

	receipt, err := r.SendMoney(ctx, source.ID(), destination.ID(), decimal.NewFromInt(40))
	if err != nil {
		t.Fatalf("send money: %v", err)
	}
	if !receipt.RemainingBalance.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("remaining balance %s, want 60", receipt.RemainingBalance)
	}
	if !destination.Balance().Equal(decimal.NewFromInt(40)) {
		t.Fatalf("destination balance %s, want 40", destination.Balance())
	}

	if _, err := r.SendMoney(ctx, source.ID(), destination.ID(), decimal.NewFromInt(1000)); !errors.Is(err, wallet.ErrInsufficientFunds) {
		t.Fatalf("overdraft: expected ErrInsufficientFunds, got %v", err)
	}
}

func TestSendMoneyRejectsSameWallet(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	w, err := r.CreateWallet(ctx, "pw")
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	if _, err := r.DepositMoney(ctx, w.ID(), decimal.NewFromInt(100)); err != nil {
		t.Fatalf("fund wallet: %v", err)
	}

	if _, err := r.SendMoney(ctx, w.ID(), w.ID(), decimal.NewFromInt(30)); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("self-send: expected ErrInvalidArgument, got %v", err)
	}

	if !w.Balance().Equal(decimal.NewFromInt(100)) {
		t.Fatalf("self-send must not move funds, balance %s, want 100", w.Balance())
	}
	if got := len(w.Ledger()); got != 1 {
		t.Fatalf("self-send must not grow the ledger, got %d entries", got)
	}
}

func TestDepositToBankWalletRejected(t *testing.T) {
	r, _ := newTestRegistry(t)

	_, err := r.DepositMoney(context.Background(), r.cfg.BankWalletID, decimal.NewFromInt(10))
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("bank wallet deposit: expected ErrInvalidArgument, got %v", err)
	}
}

func TestDepositBootstrapsBankWallet(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	w, err := r.CreateWallet(ctx, "pw")
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}

	snapshot, err := r.DepositMoney(ctx, w.ID(), decimal.NewFromInt(300))
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if !snapshot.Balance.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("deposited balance %s, want 300", snapshot.Balance)
	}

	bank, err := r.Lookup(ctx, r.cfg.BankWalletID)
	if err != nil {
		t.Fatalf("bank wallet should exist after first deposit: %v", err)
	}
	want := r.cfg.BankInitialDeposit.Sub(decimal.NewFromInt(300))
	if !bank.Balance().Equal(want) {
		t.Fatalf("bank balance %s, want %s", bank.Balance(), want)
	}

	// The bank wallet must not be accessible with any password.
	if _, err := r.AccessWallet(ctx, r.cfg.BankWalletID, "this-will-never-match-anything"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("bank wallet access: expected ErrNotFound, got %v", err)
	}
}

func TestDepositValidation(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	if _, err := r.DepositMoney(ctx, uuid.Nil, decimal.NewFromInt(1)); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("nil wallet id: expected ErrInvalidArgument, got %v", err)
	}
	if _, err := r.DepositMoney(ctx, uuid.New(), decimal.NewFromInt(-5)); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("negative amount: expected ErrInvalidArgument, got %v", err)
	}
}

func TestSaveAllPersistsEveryCachedWallet(t *testing.T) {
	r, st := newTestRegistry(t)
	ctx := context.Background()

	first, err := r.CreateWallet(ctx, "pw-1")
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	if _, err := r.CreateWallet(ctx, "pw-2"); err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	if _, err := r.DepositMoney(ctx, first.ID(), decimal.NewFromInt(10)); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	r.SaveAll(ctx)

	// Two user wallets plus the bootstrapped bank wallet.
	if st.Len() != 3 {
		t.Fatalf("expected 3 persisted records, got %d", st.Len())
	}
	rec, err := st.Load(ctx, first.ID())
	if err != nil {
		t.Fatalf("load persisted record: %v", err)
	}
	if rec.ID != first.ID().String() {
		t.Fatalf("persisted record id %s, want %s", rec.ID, first.ID())
	}
}
