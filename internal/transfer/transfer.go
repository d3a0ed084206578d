package transfer

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrAlreadyValidated occurs when Validate is called on a transfer that
	// already carries a settlement timestamp.
	ErrAlreadyValidated = errors.New("transfer already validated")

	// ErrNotParty occurs when a signed amount is requested for a wallet that is
	// neither the sender nor the recipient of the transfer.
	ErrNotParty = errors.New("wallet is not a party to this transfer")
)

// Kind distinguishes peer-to-peer transfers from external deposits.
type Kind string

const (
	// KindPeer is a movement between two wallets.
	KindPeer Kind = "peer"
	// KindDeposit is value entering the ledger universe from outside; it has
	// no sender wallet.
	KindDeposit Kind = "deposit"
)

// Transfer is a single funds movement. A transfer starts pending and becomes
// validated exactly once, when the receiving wallet settles it. The magnitude
// is always positive; sign is derived per viewpoint via AmountFor.
type Transfer struct {
	id        uuid.UUID
	kind      Kind
	sender    uuid.UUID
	recipient uuid.UUID
	amount    decimal.Decimal

	// validatedAt holds the settlement time in unix milliseconds, zero while
	// the transfer is pending. The zero-to-set transition happens at most once.
	validatedAt atomic.Int64
}

// ID returns the transfer identifier.
func (t *Transfer) ID() uuid.UUID {
	return t.id
}

// Kind reports whether this is a peer transfer or a deposit.
func (t *Transfer) Kind() Kind {
	return t.kind
}

// Sender returns the sending wallet id. The second return is false for
// deposits, which have no sender.
func (t *Transfer) Sender() (uuid.UUID, bool) {
	if t.kind == KindDeposit {
		return uuid.UUID{}, false
	}
	return t.sender, true
}

// Recipient returns the receiving wallet id.
func (t *Transfer) Recipient() uuid.UUID {
	return t.recipient
}

// Amount returns the unsigned magnitude of the transfer.
func (t *Transfer) Amount() decimal.Decimal {
	return t.amount
}

// AmountFor returns the amount signed from the viewpoint of asWho: negative
// for the sender, positive for the recipient.
func (t *Transfer) AmountFor(asWho uuid.UUID) (decimal.Decimal, error) {
	if sender, ok := t.Sender(); ok && sender == asWho {
		return t.amount.Neg(), nil
	}
	if t.recipient == asWho {
		return t.amount, nil
	}
	return decimal.Decimal{}, fmt.Errorf("wallet %s on transfer %s: %w", asWho, t.id, ErrNotParty)
}

// ValidatedAt returns the settlement time. The second return is false while
// the transfer is still pending.
func (t *Transfer) ValidatedAt() (time.Time, bool) {
	ms := t.validatedAt.Load()
	if ms == 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

// Pending reports whether the transfer has not been validated yet.
func (t *Transfer) Pending() bool {
	return t.validatedAt.Load() == 0
}

// Validate stamps the transfer as settled. It must be called after the
// transfer exists in both ledgers and succeeds at most once; a second call
// returns ErrAlreadyValidated.
func (t *Transfer) Validate() error {
	if !t.validatedAt.CompareAndSwap(0, time.Now().UnixMilli()) {
		return fmt.Errorf("transfer %s: %w", t.id, ErrAlreadyValidated)
	}
	return nil
}

// Record converts the transfer to its persisted representation.
func (t *Transfer) Record() Record {
	rec := Record{
		ID:        t.id.String(),
		Recipient: t.recipient.String(),
		Amount:    t.amount,
		Timestamp: t.validatedAt.Load(),
	}
	if sender, ok := t.Sender(); ok {
		s := sender.String()
		rec.Sender = &s
	}
	return rec
}
