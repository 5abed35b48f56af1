// Package storage provides the key-value persistence layer backing the
// connection registry and the query history store. Values are opaque
// byte slices; callers serialize whole collections and write them back
// in one call, so a single Save replaces the previous state atomically.
package storage

// Store is the persistence interface. Implementations must be safe for
// concurrent use.
type Store interface {
	// Save writes value under key, replacing any previous value.
	Save(key string, value []byte) error
	// Load returns the value under key. The second return is false when
	// the key is absent.
	Load(key string) ([]byte, bool, error)
	// Remove deletes the value under key. Removing an absent key is not
	// an error.
	Remove(key string) error
	// Clear deletes every key.
	Clear() error
}
