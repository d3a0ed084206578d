package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/ledgerpay/ledgerpay/internal/wallet"
)

// ErrNotFound occurs when no record exists for the requested wallet id.
var ErrNotFound = errors.New("wallet record not found")

// Store persists wallet records out-of-band. Saves are best effort: a failed
// save is logged by the caller and never affects the outcome of the
// in-memory operation that triggered it.
type Store interface {
	Load(ctx context.Context, id uuid.UUID) (wallet.Record, error)
	Save(ctx context.Context, rec wallet.Record) error
}
