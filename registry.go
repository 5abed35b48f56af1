package hanagate

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/p2pquery/hanagate/internal/storage"
)

// connectionsKey is the storage key holding the full profile set.
const connectionsKey = "hanagate:connections"

// ConnectionRegistry stores and retrieves named connection profiles and
// designates exactly one as default. Mutating operations persist the
// full profile set atomically (copy-then-replace): the in-memory state
// only advances after the storage write confirms.
type ConnectionRegistry struct {
	mu       sync.RWMutex
	store    storage.Store
	profiles []ConnectionProfile // insertion order
}

// NewConnectionRegistry creates a registry backed by store, loading any
// previously persisted profile set.
func NewConnectionRegistry(store storage.Store) (*ConnectionRegistry, error) {
	if store == nil {
		panic("hanagate: registry store must not be nil")
	}
	r := &ConnectionRegistry{store: store}

	data, ok, err := store.Load(connectionsKey)
	if err != nil {
		return nil, &StorageError{Op: "load", Err: err}
	}
	if ok {
		if err := json.Unmarshal(data, &r.profiles); err != nil {
			return nil, &StorageError{Op: "load", Err: err}
		}
	}
	return r, nil
}

// Register validates and stores a new profile. The first registered
// profile becomes the default automatically.
func (r *ConnectionRegistry) Register(profile ConnectionProfile) (ConnectionProfile, error) {
	profile.ID = strings.TrimSpace(profile.ID)
	profile.Host = strings.TrimSpace(profile.Host)
	profile.User = strings.TrimSpace(profile.User)

	if profile.ID == "" {
		return ConnectionProfile{}, &ValidationError{Message: "connection id is required"}
	}
	if profile.Host == "" {
		return ConnectionProfile{}, &ValidationError{Message: "connection host is required"}
	}
	if profile.User == "" {
		return ConnectionProfile{}, &ValidationError{Message: "connection user is required"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.profiles {
		if p.ID == profile.ID {
			return ConnectionProfile{}, &ValidationError{Message: "connection id already registered: " + profile.ID}
		}
	}

	profile.IsDefault = len(r.profiles) == 0

	next := append(append([]ConnectionProfile(nil), r.profiles...), profile)
	if err := r.persist(next); err != nil {
		return ConnectionProfile{}, err
	}
	r.profiles = next
	return profile, nil
}

// Get returns the profile with the given id.
func (r *ConnectionRegistry) Get(id string) (ConnectionProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.profiles {
		if p.ID == id {
			return p, nil
		}
	}
	return ConnectionProfile{}, &NotFoundError{Kind: "connection", ID: id}
}

// GetAll returns all profiles in insertion order.
func (r *ConnectionRegistry) GetAll() []ConnectionProfile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]ConnectionProfile(nil), r.profiles...)
}

// GetDefault returns the current default profile.
func (r *ConnectionRegistry) GetDefault() (ConnectionProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.profiles {
		if p.IsDefault {
			return p, nil
		}
	}
	return ConnectionProfile{}, &NotFoundError{Kind: "connection", ID: "(default)"}
}

// SetDefault makes the profile with the given id the single default,
// clearing the previous one.
func (r *ConnectionRegistry) SetDefault(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	found := false
	next := make([]ConnectionProfile, len(r.profiles))
	for i, p := range r.profiles {
		p.IsDefault = p.ID == id
		if p.IsDefault {
			found = true
		}
		next[i] = p
	}
	if !found {
		return &NotFoundError{Kind: "connection", ID: id}
	}

	if err := r.persist(next); err != nil {
		return err
	}
	r.profiles = next
	return nil
}

// Remove deletes the profile with the given id and reports whether a
// profile was removed. If the removed profile was the default and other
// profiles remain, the first remaining profile by insertion order is
// promoted.
func (r *ConnectionRegistry) Remove(id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := -1
	for i, p := range r.profiles {
		if p.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false, nil
	}

	wasDefault := r.profiles[idx].IsDefault
	next := make([]ConnectionProfile, 0, len(r.profiles)-1)
	next = append(next, r.profiles[:idx]...)
	next = append(next, r.profiles[idx+1:]...)
	if wasDefault && len(next) > 0 {
		next[0].IsDefault = true
	}

	if err := r.persist(next); err != nil {
		return false, err
	}
	r.profiles = next
	return true, nil
}

// persist writes the full profile set in one atomic Save. Callers hold
// the write lock.
func (r *ConnectionRegistry) persist(profiles []ConnectionProfile) error {
	data, err := json.Marshal(profiles)
	if err != nil {
		return &StorageError{Op: "encode", Err: err}
	}
	if err := r.store.Save(connectionsKey, data); err != nil {
		return &StorageError{Op: "save", Err: err}
	}
	return nil
}
