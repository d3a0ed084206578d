package transfer

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerpay/ledgerpay/internal/logging"
)

func TestTransferLifecycle(t *testing.T) {
	factory := NewFactory(logging.Discard())
	sender := uuid.New()
	recipient := uuid.New()

	tr := factory.FromSendRequest(sender, recipient, decimal.NewFromFloat(25.50))

	if !tr.Pending() {
		t.Fatalf("new transfer should be pending")
	}
	if _, ok := tr.ValidatedAt(); ok {
		t.Fatalf("pending transfer should have no timestamp")
	}

	if err := tr.Validate(); err != nil {
		t.Fatalf("first validate: %v", err)
	}
	if tr.Pending() {
		t.Fatalf("validated transfer should not be pending")
	}
	if _, ok := tr.ValidatedAt(); !ok {
		t.Fatalf("validated transfer should have a timestamp")
	}

	if err := tr.Validate(); !errors.Is(err, ErrAlreadyValidated) {
		t.Fatalf("second validate: expected ErrAlreadyValidated, got %v", err)
	}
}

func TestAmountForViewpoints(t *testing.T) {
	factory := NewFactory(logging.Discard())
	sender := uuid.New()
	recipient := uuid.New()
	amount := decimal.NewFromFloat(10.01)

	tr := factory.FromSendRequest(sender, recipient, amount)

	got, err := tr.AmountFor(sender)
	if err != nil {
		t.Fatalf("amount for sender: %v", err)
	}
	if !got.Equal(amount.Neg()) {
		t.Fatalf("sender view should be %s, got %s", amount.Neg(), got)
	}

	got, err = tr.AmountFor(recipient)
	if err != nil {
		t.Fatalf("amount for recipient: %v", err)
	}
	if !got.Equal(amount) {
		t.Fatalf("recipient view should be %s, got %s", amount, got)
	}

	if _, err := tr.AmountFor(uuid.New()); !errors.Is(err, ErrNotParty) {
		t.Fatalf("stranger view: expected ErrNotParty, got %v", err)
	}
}

func TestDepositHasNoSender(t *testing.T) {
	factory := NewFactory(logging.Discard())
	recipient := uuid.New()

	tr := factory.FromDepositRequest(recipient, decimal.NewFromInt(100))

	if tr.Kind() != KindDeposit {
		t.Fatalf("expected deposit kind, got %s", tr.Kind())
	}
	if _, ok := tr.Sender(); ok {
		t.Fatalf("deposit should have no sender")
	}
	if tr.Recipient() != recipient {
		t.Fatalf("expected recipient %s, got %s", recipient, tr.Recipient())
	}

	got, err := tr.AmountFor(recipient)
	if err != nil {
		t.Fatalf("amount for recipient: %v", err)
	}
	if !got.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("recipient view should be positive 100, got %s", got)
	}

	rec := tr.Record()
	if rec.Sender != nil {
		t.Fatalf("deposit record should have nil sender, got %v", *rec.Sender)
	}
}
