package auth

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidToken occurs when a token fails verification or is expired.
var ErrInvalidToken = errors.New("invalid token")

// Service issues and verifies wallet-access tokens. A token carries a single
// "id" claim binding it to exactly one wallet.
type Service struct {
	secret []byte
	ttl    time.Duration
}

// NewService constructs a token service.
func NewService(secret string, ttl time.Duration) *Service {
	return &Service{secret: []byte(secret), ttl: ttl}
}

// IssueToken signs a token granting access to the given wallet. It returns
// the compact token and its lifetime in seconds.
func (s *Service) IssueToken(walletID uuid.UUID) (string, int64, error) {
	now := time.Now()
	claims := map[string]any{
		"id":  walletID.String(),
		"iat": now.Unix(),
		"exp": now.Add(s.ttl).Unix(),
	}
	token, err := SignHS256(claims, s.secret)
	if err != nil {
		return "", 0, err
	}
	return token, int64(s.ttl.Seconds()), nil
}

// VerifyToken checks the signature and expiry and returns the wallet id the
// token grants access to.
func (s *Service) VerifyToken(token string) (uuid.UUID, error) {
	claims, err := ParseAndVerifyHS256(token, s.secret)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}

	exp, ok := claims["exp"].(float64)
	if !ok || time.Now().Unix() >= int64(exp) {
		return uuid.Nil, ErrInvalidToken
	}

	idStr, _ := claims["id"].(string)
	id, err := uuid.Parse(idStr)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, ErrInvalidToken
	}
	return id, nil
}
