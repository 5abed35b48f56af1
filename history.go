package hanagate

import (
	"encoding/json"
	"sync"

	"github.com/p2pquery/hanagate/internal/storage"
)

// historyKey is the storage key holding the full history list.
const historyKey = "hanagate:history"

// HistoryStore is an append-only, size-bounded log of past executions,
// kept newest-first. Persistence is best-effort: a storage failure is
// reported as a false return, never an error, so history can never
// block query execution.
type HistoryStore struct {
	mu      sync.RWMutex
	store   storage.Store
	max     int
	entries []HistoryEntry // newest first
}

// NewHistoryStore creates a history store bounded at max entries
// (DefaultHistoryMax when max is 0), loading any persisted entries.
func NewHistoryStore(store storage.Store, max int) (*HistoryStore, error) {
	if store == nil {
		panic("hanagate: history store must not be nil")
	}
	if max < 0 {
		panic("hanagate: history max must be >= 0")
	}
	if max == 0 {
		max = DefaultHistoryMax
	}

	h := &HistoryStore{store: store, max: max}
	data, ok, err := store.Load(historyKey)
	if err != nil {
		return nil, &StorageError{Op: "load", Err: err}
	}
	if ok {
		if err := json.Unmarshal(data, &h.entries); err != nil {
			return nil, &StorageError{Op: "load", Err: err}
		}
		if len(h.entries) > h.max {
			h.entries = h.entries[:h.max]
		}
	}
	return h, nil
}

// Append inserts the entry at the head, evicting the oldest (tail)
// entries when the store exceeds its maximum. Returns false when the
// persistence write failed; the in-memory log is updated regardless.
func (h *HistoryStore) Append(entry HistoryEntry) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append([]HistoryEntry{entry}, h.entries...)
	if len(h.entries) > h.max {
		h.entries = h.entries[:h.max]
	}
	return h.persist()
}

// List returns entries matching the filter, newest first. Filters
// compose with AND semantics; an absent filter returns up to the
// configured maximum.
func (h *HistoryStore) List(filter HistoryFilter) []HistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	limit := filter.Limit
	if limit <= 0 || limit > h.max {
		limit = h.max
	}

	out := make([]HistoryEntry, 0)
	for _, e := range h.entries {
		if filter.ConnectionID != "" && e.ConnectionID != filter.ConnectionID {
			continue
		}
		if filter.SuccessOnly && !e.Success {
			continue
		}
		out = append(out, e)
		if len(out) >= limit {
			break
		}
	}
	return out
}

// Size returns the current number of stored entries.
func (h *HistoryStore) Size() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

// Clear removes entries for the given connection id, or every entry
// when the id is empty. Returns false when the persistence write
// failed.
func (h *HistoryStore) Clear(connectionID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if connectionID == "" {
		h.entries = nil
	} else {
		kept := h.entries[:0:0]
		for _, e := range h.entries {
			if e.ConnectionID != connectionID {
				kept = append(kept, e)
			}
		}
		h.entries = kept
	}
	return h.persist()
}

// persist writes the full entry list in one Save. Failures are
// swallowed into the boolean return. Callers hold the write lock.
func (h *HistoryStore) persist() bool {
	data, err := json.Marshal(h.entries)
	if err != nil {
		return false
	}
	return h.store.Save(historyKey, data) == nil
}
