// Package store persists settings and book records as a flat set of
// top-level JSON values.
//
// Writes are shallow merges: every key in an update replaces the stored
// value for that key wholesale, and keys absent from the update are left
// untouched. Nested objects are never merged.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store: closed")

// Store is a key/value document store with shallow-merge writes.
// Implementations are safe for concurrent use.
type Store interface {
	// Get returns the value stored under key and whether it exists.
	Get(ctx context.Context, key string) (json.RawMessage, bool, error)

	// Merge stores every entry of updates, replacing existing values.
	// The merge is atomic: either all keys are written or none.
	Merge(ctx context.Context, updates map[string]json.RawMessage) error

	// All returns a snapshot of every stored key.
	All(ctx context.Context) (map[string]json.RawMessage, error)

	// Close releases the store.
	Close() error
}

// GetJSON decodes the value under key into v. It reports false when the
// key does not exist.
func GetJSON(ctx context.Context, s Store, key string, v any) (bool, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return ok, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, fmt.Errorf("store: decode %s: %w", key, err)
	}
	return true, nil
}

// SetJSON encodes v and merges it under key.
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", key, err)
	}
	return s.Merge(ctx, map[string]json.RawMessage{key: raw})
}

// mergeInto applies updates to doc with shallow top-level overwrite.
func mergeInto(doc, updates map[string]json.RawMessage) {
	for k, v := range updates {
		doc[k] = append(json.RawMessage(nil), v...)
	}
}

// validate rejects values that are not well-formed JSON.
func validate(updates map[string]json.RawMessage) error {
	for k, v := range updates {
		if !json.Valid(v) {
			return fmt.Errorf("store: value for %q is not valid JSON", k)
		}
	}
	return nil
}

// Open opens a store by driver name: "json" for a File, "sqlite" for a
// SQLite database.
func Open(driver, path string) (Store, error) {
	var (
		s   Store
		err error
	)
	switch driver {
	case "json":
		s, err = OpenFile(path)
	case "sqlite":
		s, err = OpenSQLite(path)
	default:
		return nil, fmt.Errorf("store: unknown driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}
