package transfer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrBadRecord occurs when a persisted transfer record cannot be
// reconstructed into a validated transfer.
var ErrBadRecord = errors.New("bad transfer record")

// Record is the persisted field set of a transfer. Sender is nil for
// deposits. Timestamp is the settlement time in unix milliseconds; a record
// without one was never validated and is rejected on load.
type Record struct {
	ID        string          `json:"id"`
	Sender    *string         `json:"sender"`
	Recipient string          `json:"recipient"`
	Amount    decimal.Decimal `json:"amount"`
	Timestamp int64           `json:"timestamp"`
}

// Factory builds transfers from send requests, deposit requests and
// persisted records.
type Factory struct {
	logger *slog.Logger
}

// NewFactory constructs a transfer factory.
func NewFactory(logger *slog.Logger) *Factory {
	return &Factory{logger: logger}
}

// FromSendRequest creates a fresh pending peer transfer.
func (f *Factory) FromSendRequest(sender, recipient uuid.UUID, amount decimal.Decimal) *Transfer {
	return &Transfer{
		id:        uuid.New(),
		kind:      KindPeer,
		sender:    sender,
		recipient: recipient,
		amount:    amount,
	}
}

// FromDepositRequest creates a fresh pending deposit, which has no sender.
func (f *Factory) FromDepositRequest(recipient uuid.UUID, amount decimal.Decimal) *Transfer {
	return &Transfer{
		id:        uuid.New(),
		kind:      KindDeposit,
		recipient: recipient,
		amount:    amount,
	}
}

// FromRecord reconstructs a validated transfer from its persisted record.
// A record without a timestamp was never validated and cannot be brought
// back as pending, so it is rejected.
func (f *Factory) FromRecord(rec Record) (*Transfer, error) {
	if rec.Timestamp <= 0 {
		return nil, fmt.Errorf("%w: missing timestamp, transfer was never validated", ErrBadRecord)
	}
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid id %q: %v", ErrBadRecord, rec.ID, err)
	}
	recipient, err := uuid.Parse(rec.Recipient)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid recipient %q: %v", ErrBadRecord, rec.Recipient, err)
	}
	if rec.Amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: amount %s is not positive", ErrBadRecord, rec.Amount)
	}

	t := &Transfer{
		id:        id,
		kind:      KindDeposit,
		recipient: recipient,
		amount:    rec.Amount,
	}
	if rec.Sender != nil {
		sender, err := uuid.Parse(*rec.Sender)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid sender %q: %v", ErrBadRecord, *rec.Sender, err)
		}
		t.kind = KindPeer
		t.sender = sender
	}
	t.validatedAt.Store(rec.Timestamp)
	return t, nil
}

// RecordIterator yields transfers from raw ledger data one element at a
// time. It is finite and cannot be restarted.
type RecordIterator struct {
	factory *Factory
	dec     *json.Decoder
	index   int
}

// Records returns a lazy iterator over raw JSON ledger data. It returns nil
// for null or empty input and ErrBadRecord if the input is not an array at
// all. Malformed elements are logged and skipped during iteration, never
// surfaced as errors.
func (f *Factory) Records(raw json.RawMessage) (*RecordIterator, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: ledger data is not a JSON array", ErrBadRecord)
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRecord, err)
	}
	if !dec.More() {
		return nil, nil
	}
	return &RecordIterator{factory: f, dec: dec}, nil
}

// Next returns the next reconstructable transfer. It reports false once the
// input is exhausted or the underlying data is unreadable.
func (it *RecordIterator) Next() (*Transfer, bool) {
	for it.dec.More() {
		i := it.index
		it.index++

		var raw json.RawMessage
		if err := it.dec.Decode(&raw); err != nil {
			// Broken stream, nothing more to read.
			it.factory.logger.Warn("ledger data unreadable, stopping iteration",
				slog.Int("index", i), slog.Any("error", err))
			return nil, false
		}

		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			it.factory.logger.Warn("skipping undecodable ledger entry",
				slog.Int("index", i), slog.Any("error", err))
			continue
		}
		t, err := it.factory.FromRecord(rec)
		if err != nil {
			it.factory.logger.Warn("skipping invalid ledger entry",
				slog.Int("index", i), slog.Any("error", err))
			continue
		}
		return t, true
	}
	return nil, false
}
