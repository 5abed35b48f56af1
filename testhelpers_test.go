package hanagate_test

import (
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	hanagate "github.com/p2pquery/hanagate"
	"github.com/p2pquery/hanagate/internal/backend"
	"github.com/p2pquery/hanagate/internal/storage"
)

func testLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).Level(zerolog.Disabled)
}

// failingStore is a storage.Store whose writes can be scripted to fail.
// Loads always succeed with no data.
type failingStore struct {
	mu       sync.Mutex
	failSave bool
	saves    int
}

var errStoreDown = errors.New("store down")

func (s *failingStore) Save(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if s.failSave {
		return errStoreDown
	}
	return nil
}

func (s *failingStore) Load(key string) ([]byte, bool, error) { return nil, false, nil }
func (s *failingStore) Remove(key string) error               { return nil }
func (s *failingStore) Clear() error                          { return nil }

func (s *failingStore) setFailSave(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failSave = fail
}

func newTestRegistry(t *testing.T) *hanagate.ConnectionRegistry {
	t.Helper()
	reg, err := hanagate.NewConnectionRegistry(storage.NewMemoryStore())
	if err != nil {
		t.Fatalf("Failed to create registry: %v", err)
	}
	return reg
}

func newTestHistory(t *testing.T, max int) *hanagate.HistoryStore {
	t.Helper()
	h, err := hanagate.NewHistoryStore(storage.NewMemoryStore(), max)
	if err != nil {
		t.Fatalf("Failed to create history store: %v", err)
	}
	return h
}

func testProfile(id string) hanagate.ConnectionProfile {
	return hanagate.ConnectionProfile{
		ID:     id,
		Name:   "Test " + id,
		Driver: "hdb",
		Host:   id + ".example.com",
		Port:   30015,
		User:   "SYSTEM",
		Schema: "P2P",
	}
}

// newTestGateway builds a gateway backed by a simulator, with the
// given profiles registered in order (the first one becomes the
// default).
func newTestGateway(t *testing.T, config hanagate.Config, sim *backend.Simulator, ids ...string) *hanagate.Gateway {
	t.Helper()
	reg := newTestRegistry(t)
	for _, id := range ids {
		if _, err := reg.Register(testProfile(id)); err != nil {
			t.Fatalf("Failed to register profile %q: %v", id, err)
		}
	}
	gw, err := hanagate.New(reg, newTestHistory(t, 0), sim, config, testLogger())
	if err != nil {
		t.Fatalf("Failed to create gateway: %v", err)
	}
	return gw
}
