package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ledgerpay/ledgerpay/internal/wallet"
)

// PostgresStore persists wallet records in PostgreSQL, keeping the ledger as
// a JSONB document per wallet.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore builds a store backed by PostgreSQL.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Load fetches the wallet record by id.
func (s *PostgresStore) Load(ctx context.Context, id uuid.UUID) (wallet.Record, error) {
	row := s.db.QueryRow(ctx, `SELECT id, password_hash, balance, ledger
        FROM wallets WHERE id = $1`, id)

	var (
		walletID     uuid.UUID
		passwordHash string
		balance      decimal.Decimal
		ledgerDoc    []byte
	)
	if err := row.Scan(&walletID, &passwordHash, &balance, &ledgerDoc); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return wallet.Record{}, fmt.Errorf("wallet %s: %w", id, ErrNotFound)
		}
		return wallet.Record{}, fmt.Errorf("load wallet %s: %w", id, err)
	}

	return wallet.Record{
		ID:           walletID.String(),
		PasswordHash: passwordHash,
		Balance:      balance,
		Ledger:       json.RawMessage(ledgerDoc),
	}, nil
}

// Save upserts the wallet record.
func (s *PostgresStore) Save(ctx context.Context, rec wallet.Record) error {
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return fmt.Errorf("invalid wallet id %q: %w", rec.ID, err)
	}
	_, err = s.db.Exec(ctx, `INSERT INTO wallets (id, password_hash, balance, ledger, updated_at)
        VALUES ($1, $2, $3, $4, now())
        ON CONFLICT (id) DO UPDATE
        SET password_hash = EXCLUDED.password_hash,
            balance = EXCLUDED.balance,
            ledger = EXCLUDED.ledger,
            updated_at = now()`,
		id, rec.PasswordHash, rec.Balance, []byte(rec.Ledger))
	if err != nil {
		return fmt.Errorf("save wallet %s: %w", rec.ID, err)
	}
	return nil
}
