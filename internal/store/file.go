package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/ledgerpay/ledgerpay/internal/wallet"
)

// FileStore keeps one JSON file per wallet in a data directory.
type FileStore struct {
	dir string
}

// NewFileStore creates the data directory if needed and returns a store over it.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("data directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Load reads and decodes the record file for the given wallet id.
func (s *FileStore) Load(_ context.Context, id uuid.UUID) (wallet.Record, error) {
	data, err := os.ReadFile(s.path(id.String()))
	if err != nil {
		if os.IsNotExist(err) {
			return wallet.Record{}, fmt.Errorf("wallet %s: %w", id, ErrNotFound)
		}
		return wallet.Record{}, fmt.Errorf("read wallet file for %s: %w", id, err)
	}
	var rec wallet.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return wallet.Record{}, fmt.Errorf("decode wallet file for %s: %w", id, err)
	}
	return rec, nil
}

// Save writes the record to a temp file and renames it into place so a crash
// mid-write never leaves a truncated wallet file behind.
func (s *FileStore) Save(_ context.Context, rec wallet.Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode wallet %s: %w", rec.ID, err)
	}

	tmp, err := os.CreateTemp(s.dir, rec.ID+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file for wallet %s: %w", rec.ID, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write wallet %s: %w", rec.ID, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close wallet file for %s: %w", rec.ID, err)
	}
	if err := os.Rename(tmp.Name(), s.path(rec.ID)); err != nil {
		return fmt.Errorf("replace wallet file for %s: %w", rec.ID, err)
	}
	return nil
}
