package wallet

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerpay/ledgerpay/internal/ledger"
	"github.com/ledgerpay/ledgerpay/internal/transfer"
)

// Record is the persisted representation of a wallet. Ledger is kept as raw
// JSON so reconstruction can stream it entry by entry. Balance is written
// for the benefit of humans reading the stored file; it is never trusted on
// load.
type Record struct {
	ID           string          `json:"id"`
	PasswordHash string          `json:"password_hash"`
	Balance      decimal.Decimal `json:"balance"`
	Ledger       json.RawMessage `json:"ledger"`
}

// FromRecord rebuilds a wallet from a persisted record by replaying every
// ledger entry. The balance is always recomputed as the signed sum of the
// replayed ledger; whatever balance the record carries is ignored. Entries
// that fail to reconstruct, or that do not involve this wallet, are logged
// and skipped.
func FromRecord(rec Record, factory *transfer.Factory, logger *slog.Logger, opts Options) (*Wallet, error) {
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid wallet id %q: %w", rec.ID, ErrInvalidArgument)
	}

	w := &Wallet{
		id:           id,
		passwordHash: rec.PasswordHash,
		ledger:       ledger.New(),
		factory:      factory,
		logger:       logger,
		opts:         opts.withDefaults(),
	}

	sum := decimal.Zero
	it, err := factory.Records(rec.Ledger)
	if err != nil {
		return nil, fmt.Errorf("wallet %s: %w", id, err)
	}
	if it != nil {
		for t, ok := it.Next(); ok; t, ok = it.Next() {
			signed, err := t.AmountFor(id)
			if err != nil {
				logger.Warn("skipping ledger entry not involving this wallet",
					slog.String("wallet_id", id.String()),
					slog.String("transfer_id", t.ID().String()))
				continue
			}
			w.ledger.Append(t)
			sum = sum.Add(signed)
		}
	}
	w.balance.Store(&sum)
	return w, nil
}

// Record captures the wallet's current id, credential and ledger snapshot
// for persistence.
func (w *Wallet) Record() (Record, error) {
	entries := w.ledger.Snapshot()
	records := make([]transfer.Record, 0, len(entries))
	for _, t := range entries {
		records = append(records, t.Record())
	}
	raw, err := json.Marshal(records)
	if err != nil {
		return Record{}, fmt.Errorf("marshal ledger of wallet %s: %w", w.id, err)
	}
	return Record{
		ID:           w.id.String(),
		PasswordHash: w.passwordHash,
		Balance:      w.Balance(),
		Ledger:       raw,
	}, nil
}
