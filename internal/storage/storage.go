// Package storage provides the persistent key-value collaborator that the
// domain stores mirror themselves into. Values are opaque JSON blobs; each
// store owns one key and rewrites it in full on every mutation.
package storage

import (
	"encoding/json"
	"fmt"
)

// KV is the persistence contract. Implementations must make Set atomic at
// the level of a single key (full-value replace).
type KV interface {
	// Get returns the stored value for key. ok is false when the key has
	// never been written.
	Get(key string) (value []byte, ok bool, err error)

	// Set replaces the value for key.
	Set(key string, value []byte) error

	Close() error
}

// LoadJSON reads key from kv and unmarshals it into v.
//
// A missing key leaves v untouched so callers can pre-populate typed
// defaults. An unreadable value returns a non-nil error but still leaves v
// at its default — corrupt state must never halt startup, only lose the
// affected collection.
func LoadJSON(kv KV, key string, v any) error {
	data, ok, err := kv.Get(key)
	if err != nil {
		return fmt.Errorf("load %q: %w", key, err)
	}
	if !ok {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("load %q: corrupt value: %w", key, err)
	}
	return nil
}

// SaveJSON marshals v and writes it under key.
func SaveJSON(kv KV, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("save %q: %w", key, err)
	}
	if err := kv.Set(key, data); err != nil {
		return fmt.Errorf("save %q: %w", key, err)
	}
	return nil
}
