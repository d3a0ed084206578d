package transfer

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerpay/ledgerpay/internal/logging"
)

func validRecord() Record {
	sender := uuid.NewString()
	return Record{
		ID:        uuid.NewString(),
		Sender:    &sender,
		Recipient: uuid.NewString(),
		Amount:    decimal.NewFromFloat(42.42),
		Timestamp: time.Now().UnixMilli(),
	}
}

func TestFromRecord(t *testing.T) {
	factory := NewFactory(logging.Discard())

	tr, err := factory.FromRecord(validRecord())
	if err != nil {
		t.Fatalf("valid record: %v", err)
	}
	if tr.Pending() {
		t.Fatalf("reconstructed transfer must already be validated")
	}
	if err := tr.Validate(); !errors.Is(err, ErrAlreadyValidated) {
		t.Fatalf("reconstructed transfer must reject a second validation, got %v", err)
	}

	cases := []struct {
		name   string
		mutate func(r *Record)
	}{
		{"missing timestamp", func(r *Record) { r.Timestamp = 0 }},
		{"missing id", func(r *Record) { r.ID = "" }},
		{"garbage id", func(r *Record) { r.ID = "not-a-uuid" }},
		{"missing recipient", func(r *Record) { r.Recipient = "" }},
		{"zero amount", func(r *Record) { r.Amount = decimal.Zero }},
		{"negative amount", func(r *Record) { r.Amount = decimal.NewFromInt(-5) }},
		{"garbage sender", func(r *Record) { s := "nope"; r.Sender = &s }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := validRecord()
			tc.mutate(&rec)
			if _, err := factory.FromRecord(rec); !errors.Is(err, ErrBadRecord) {
				t.Fatalf("expected ErrBadRecord, got %v", err)
			}
		})
	}
}

func TestFromRecordNilSenderIsDeposit(t *testing.T) {
	factory := NewFactory(logging.Discard())
	rec := validRecord()
	rec.Sender = nil

	tr, err := factory.FromRecord(rec)
	if err != nil {
		t.Fatalf("record without sender: %v", err)
	}
	if tr.Kind() != KindDeposit {
		t.Fatalf("expected deposit, got %s", tr.Kind())
	}
}

func TestRecordsNullAndEmptyInput(t *testing.T) {
	factory := NewFactory(logging.Discard())

	for _, raw := range []json.RawMessage{nil, []byte("null"), []byte("[]"), []byte("  [ ] ")} {
		it, err := factory.Records(raw)
		if err != nil {
			t.Fatalf("input %q: %v", raw, err)
		}
		if it != nil {
			t.Fatalf("input %q: expected nil iterator", raw)
		}
	}
}

func TestRecordsRejectsNonArray(t *testing.T) {
	factory := NewFactory(logging.Discard())

	if _, err := factory.Records(json.RawMessage(`{"id":"x"}`)); !errors.Is(err, ErrBadRecord) {
		t.Fatalf("expected ErrBadRecord for object input, got %v", err)
	}
}

func TestRecordsSkipsMalformedElements(t *testing.T) {
	factory := NewFactory(logging.Discard())

	good1 := validRecord()
	good2 := validRecord()
	bad := validRecord()
	bad.Timestamp = 0

	raw, err := json.Marshal([]any{good1, bad, "not even an object", good2})
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}

	it, err := factory.Records(raw)
	if err != nil {
		t.Fatalf("records: %v", err)
	}

	var ids []string
	for tr, ok := it.Next(); ok; tr, ok = it.Next() {
		ids = append(ids, tr.ID().String())
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 valid transfers, got %d", len(ids))
	}
	if ids[0] != good1.ID || ids[1] != good2.ID {
		t.Fatalf("unexpected transfer ids %v", ids)
	}

	// The iterator is finite and does not restart.
	if _, ok := it.Next(); ok {
		t.Fatalf("exhausted iterator should keep reporting false")
	}
}
