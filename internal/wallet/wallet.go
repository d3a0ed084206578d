package wallet

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerpay/ledgerpay/internal/ledger"
	"github.com/ledgerpay/ledgerpay/internal/transfer"
)

var (
	// ErrInsufficientFunds occurs when the requested amount exceeds the balance
	// at the atomic check. It is a business rejection and is never retried.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrConflict occurs when a bounded retry loop exhausts its deadline under
	// concurrent modification, or when a cross-wallet handoff had to be rolled
	// back.
	ErrConflict = errors.New("conflicting concurrent modification")

	// ErrInvalidArgument occurs on malformed input such as a non-positive
	// amount or a missing destination.
	ErrInvalidArgument = errors.New("invalid argument")
)

// Options bound the spin-with-sleep retry loops used for balance
// stabilization, ledger snapshots and reservation. The defaults favor
// simplicity over throughput and assume low per-wallet contention.
type Options struct {
	RetryDeadline time.Duration
	RetrySleep    time.Duration
}

const (
	defaultRetryDeadline = 10 * time.Second
	defaultRetrySleep    = 100 * time.Millisecond
)

func (o Options) withDefaults() Options {
	if o.RetryDeadline <= 0 {
		o.RetryDeadline = defaultRetryDeadline
	}
	if o.RetrySleep <= 0 {
		o.RetrySleep = defaultRetrySleep
	}
	return o
}

// Wallet owns one account's balance cell and ledger.
//
// The balance is the authoritative spendable amount and the single point of
// double-spend prevention: debits reserve funds with a compare-and-swap
// before any ledger mutation, credits add unconditionally since they cannot
// drive the balance negative. In the absence of in-flight operations the
// balance equals the signed sum of the ledger from this wallet's viewpoint.
type Wallet struct {
	id           uuid.UUID
	passwordHash string

	balance atomic.Pointer[decimal.Decimal]
	ledger  *ledger.Ledger

	factory *transfer.Factory
	logger  *slog.Logger
	opts    Options
}

// New creates an empty wallet with a fresh id, zero balance and an empty
// ledger. The password hash is opaque credential material carried through
// persistence; the wallet itself never inspects it.
func New(passwordHash string, factory *transfer.Factory, logger *slog.Logger, opts Options) *Wallet {
	w := &Wallet{
		id:           uuid.New(),
		passwordHash: passwordHash,
		ledger:       ledger.New(),
		factory:      factory,
		logger:       logger,
		opts:         opts.withDefaults(),
	}
	zero := decimal.Zero
	w.balance.Store(&zero)
	return w
}

// BalanceSnapshot is a balance reading together with the instant it was
// observed consistent.
type BalanceSnapshot struct {
	WalletID  uuid.UUID
	Balance   decimal.Decimal
	Timestamp time.Time
}

// LedgerSnapshot is a consistent copy of the ledger together with the
// instant it was taken.
type LedgerSnapshot struct {
	Entries   []*transfer.Transfer
	Timestamp time.Time
}

// TransferReceipt is the outcome of a completed send: the settled transfer
// and the sender balance remaining at the moment the funds were reserved.
type TransferReceipt struct {
	Transfer         *transfer.Transfer
	RemainingBalance decimal.Decimal
}

// ID returns the wallet identifier.
func (w *Wallet) ID() uuid.UUID {
	return w.id
}

// PasswordHash returns the wallet's opaque credential material.
func (w *Wallet) PasswordHash() string {
	return w.passwordHash
}

// Balance is a non-blocking snapshot read of the balance cell.
func (w *Wallet) Balance() decimal.Decimal {
	return *w.balance.Load()
}

// BalanceSnapshot reads the balance twice around a timestamp and returns the
// pair once both reads agree. Instead of locking out writers it retries with
// a short sleep until the configured deadline, then fails with ErrConflict.
func (w *Wallet) BalanceSnapshot() (BalanceSnapshot, error) {
	deadline := time.Now().Add(w.opts.RetryDeadline)
	for {
		balance := w.Balance()
		now := time.Now()
		if balance.Equal(w.Balance()) {
			return BalanceSnapshot{WalletID: w.id, Balance: balance, Timestamp: now}, nil
		}
		if now.After(deadline) {
			return BalanceSnapshot{}, fmt.Errorf("balance of wallet %s never stabilized: %w", w.id, ErrConflict)
		}
		time.Sleep(w.opts.RetrySleep)
	}
}

// LedgerSnapshot copies the ledger and requires the copy's length to match
// the length recorded just before. The length check is sufficient because the
// ledger is append-only in the steady state; removal only happens as
// immediate compensation of an entry nobody else has observed. Retries until
// the deadline, then fails with ErrConflict.
func (w *Wallet) LedgerSnapshot() (LedgerSnapshot, error) {
	deadline := time.Now().Add(w.opts.RetryDeadline)
	for {
		length := w.ledger.Len()
		now := time.Now()
		entries := w.ledger.Snapshot()
		if len(entries) == length {
			return LedgerSnapshot{Entries: entries, Timestamp: now}, nil
		}
		if now.After(deadline) {
			return LedgerSnapshot{}, fmt.Errorf("ledger of wallet %s kept changing: %w", w.id, ErrConflict)
		}
		time.Sleep(w.opts.RetrySleep)
	}
}

// Ledger returns a plain copy of the ledger with no consistency guarantee.
func (w *Wallet) Ledger() []*transfer.Transfer {
	return w.ledger.Snapshot()
}

// Phases of one in-flight SendMoney call. The call ends in exactly one of
// sendSettled or sendRolledBack; the transition guard keeps compensation
// from ever running twice.
const (
	sendReserved int32 = iota
	sendLedgered
	sendSettled
	sendRolledBack
)

type sendState struct {
	state atomic.Int32
}

func (s *sendState) transition(from, to int32) bool {
	return s.state.CompareAndSwap(from, to)
}

// Receiver is the destination side of a transfer handoff.
type Receiver interface {
	ID() uuid.UUID
	ReceiveMoney(t *transfer.Transfer) error
}

// SendMoney moves amount from this wallet to the destination using the
// reserve-then-settle protocol:
//
//  1. Reserve the funds with a CAS on the balance cell. A balance below the
//     amount fails immediately with ErrInsufficientFunds; CAS contention is
//     retried until the deadline, then fails with ErrConflict.
//  2. Append a pending transfer to this wallet's ledger.
//  3. Hand the transfer to the destination, which settles it.
//
// Once reserved, no concurrent call can spend the same funds, so steps 2-3
// need not be atomic with the reservation; only the failure path compensates,
// restoring the balance and removing the ledger entry.
func (w *Wallet) SendMoney(destination Receiver, amount decimal.Decimal) (TransferReceipt, error) {
	if destination == nil {
		return TransferReceipt{}, fmt.Errorf("destination wallet is required: %w", ErrInvalidArgument)
	}
	// A self-send would put the same transfer in this ledger twice, once per
	// role, and can never move funds anywhere.
	if destination.ID() == w.id {
		return TransferReceipt{}, fmt.Errorf("wallet %s cannot send money to itself: %w", w.id, ErrInvalidArgument)
	}
	if amount.Sign() <= 0 {
		return TransferReceipt{}, fmt.Errorf("amount %s must be positive: %w", amount, ErrInvalidArgument)
	}

	deadline := time.Now().Add(w.opts.RetryDeadline)
	var remaining decimal.Decimal
	for {
		if time.Now().After(deadline) {
			return TransferReceipt{}, fmt.Errorf("could not reserve %s on wallet %s before deadline: %w",
				amount, w.id, ErrConflict)
		}
		observed := w.balance.Load()
		if observed.Cmp(amount) < 0 {
			return TransferReceipt{}, fmt.Errorf("cannot send %s from wallet %s holding %s: %w",
				amount, w.id, observed, ErrInsufficientFunds)
		}
		next := observed.Sub(amount)
		if w.balance.CompareAndSwap(observed, &next) {
			remaining = next
			break
		}
		time.Sleep(w.opts.RetrySleep)
	}

	t := w.factory.FromSendRequest(w.id, destination.ID(), amount)

	var send sendState
	send.transition(sendReserved, sendLedgered)
	w.ledger.Append(t)

	if err := destination.ReceiveMoney(t); err != nil {
		if send.transition(sendLedgered, sendRolledBack) {
			// The cause stays in the log; the caller-visible contract is just
			// that the transfer could not complete. Restoring the balance can
			// only move it up, so the unconditional add is safe.
			w.logger.Error("handoff to destination failed, compensating sender",
				slog.String("wallet_id", w.id.String()),
				slog.String("destination_id", destination.ID().String()),
				slog.String("transfer_id", t.ID().String()),
				slog.Any("error", err))
			w.credit(amount)
			w.ledger.Remove(t)
		}
		return TransferReceipt{}, fmt.Errorf("failed to send %s to wallet %s: %w",
			amount, destination.ID(), ErrConflict)
	}
	send.transition(sendLedgered, sendSettled)

	return TransferReceipt{Transfer: t, RemainingBalance: remaining}, nil
}

// ReceiveMoney appends the transfer to this wallet's ledger, validates it,
// then credits the balance. A validation conflict here indicates a
// double-settlement bug upstream; the entry is taken back out so the ledger
// never carries an uncredited transfer.
func (w *Wallet) ReceiveMoney(t *transfer.Transfer) error {
	if t == nil {
		return fmt.Errorf("transfer is required: %w", ErrInvalidArgument)
	}

	w.ledger.Append(t)

	if err := t.Validate(); err != nil {
		w.ledger.Remove(t)
		return fmt.Errorf("settle transfer into wallet %s: %w", w.id, err)
	}
	amount, err := t.AmountFor(w.id)
	if err != nil {
		w.ledger.Remove(t)
		return fmt.Errorf("settle transfer into wallet %s: %w", w.id, err)
	}

	w.credit(amount)
	return nil
}

// Deposit credits the wallet with value originating outside the peer
// network, such as the bank wallet funding a user.
func (w *Wallet) Deposit(amount decimal.Decimal) (BalanceSnapshot, error) {
	if amount.Sign() <= 0 {
		return BalanceSnapshot{}, fmt.Errorf("amount %s must be positive: %w", amount, ErrInvalidArgument)
	}
	t := w.factory.FromDepositRequest(w.id, amount)
	if err := w.ReceiveMoney(t); err != nil {
		return BalanceSnapshot{}, err
	}
	return w.BalanceSnapshot()
}

// credit adds amount to the balance unconditionally. Credits cannot violate
// the non-negative invariant, so the loop only guards against concurrent
// pointer swaps.
func (w *Wallet) credit(amount decimal.Decimal) {
	for {
		observed := w.balance.Load()
		next := observed.Add(amount)
		if w.balance.CompareAndSwap(observed, &next) {
			return
		}
	}
}
