package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestIssueAndVerifyToken(t *testing.T) {
	svc := NewService(testSecret, time.Hour)
	walletID := uuid.New()

	token, expiresIn, err := svc.IssueToken(walletID)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if expiresIn != 3600 {
		t.Fatalf("expected 3600s lifetime, got %d", expiresIn)
	}

	got, err := svc.VerifyToken(token)
	if err != nil {
		t.Fatalf("verify token: %v", err)
	}
	if got != walletID {
		t.Fatalf("token resolved to wallet %s, want %s", got, walletID)
	}
}

func TestVerifyTokenRejectsWrongSecret(t *testing.T) {
	svc := NewService(testSecret, time.Hour)
	token, _, err := svc.IssueToken(uuid.New())
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	other := NewService("another-secret-that-is-long-enough", time.Hour)
	if _, err := other.VerifyToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyTokenRejectsExpired(t *testing.T) {
	svc := NewService(testSecret, -time.Minute)
	token, _, err := svc.IssueToken(uuid.New())
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	if _, err := svc.VerifyToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestVerifyTokenRejectsGarbage(t *testing.T) {
	svc := NewService(testSecret, time.Hour)
	for _, token := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := svc.VerifyToken(token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("token %q: expected ErrInvalidToken, got %v", token, err)
		}
	}
}
