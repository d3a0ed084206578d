package ledger

import (
	"sync"

	"github.com/ledgerpay/ledgerpay/internal/transfer"
)

// Ledger is a concurrency-safe, append-only sequence of transfers. Insertion
// order is settlement order for the owning wallet. Remove exists solely for
// same-call-stack compensation of an entry that no other operation has
// observed yet.
type Ledger struct {
	mu      sync.RWMutex
	entries []*transfer.Transfer
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{}
}

// Append adds a transfer to the end of the ledger.
func (l *Ledger) Append(t *transfer.Transfer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, t)
}

// Remove deletes the given transfer from the ledger, matching by identity.
// It reports whether the entry was present.
func (l *Ledger) Remove(t *transfer.Transfer) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, entry := range l.entries {
		if entry == t {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the current number of entries.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Snapshot returns a copy of the entries in insertion order.
func (l *Ledger) Snapshot() []*transfer.Transfer {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*transfer.Transfer, len(l.entries))
	copy(out, l.entries)
	return out
}
