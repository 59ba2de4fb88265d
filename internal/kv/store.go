// Package kv is the shared key-value store behind practice settings,
// the counselor directory and intake packages. Every write publishes a
// Change so open views can refresh.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by Get when the key is absent.
	ErrNotFound = errors.New("kv: key not found")
	// ErrConflict is returned by Update when concurrent writers kept
	// invalidating the read.
	ErrConflict = errors.New("kv: too many concurrent updates")
)

// UpdateFunc maps the current value of a key to its next value. current is
// nil and found is false when the key is absent. An error aborts the update
// and is returned from Update unchanged. It may run more than once and must
// not call back into the store.
type UpdateFunc func(current []byte, found bool) ([]byte, error)

// Change operations.
const (
	OpSet    = "set"
	OpDelete = "delete"
)

// Change describes one write.
type Change struct {
	Key string `json:"key"`
	Op  string `json:"op"`
}

// Store reads and writes raw JSON values.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// Update applies fn as an atomic read-modify-write of key.
	Update(ctx context.Context, key string, fn UpdateFunc) error
	// Subscribe streams changes until ctx is cancelled. The channel is
	// closed when the subscription ends.
	Subscribe(ctx context.Context) (<-chan Change, error)
}

// GetJSON decodes the value at key into dst. It reports found=false, with no
// error, when the key is absent.
func GetJSON(ctx context.Context, s Store, key string, dst any) (bool, error) {
	data, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("kv: decode %s: %w", key, err)
	}
	return true, nil
}

// SetJSON encodes value and stores it at key.
func SetJSON(ctx context.Context, s Store, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("kv: encode %s: %w", key, err)
	}
	return s.Set(ctx, key, data)
}

// UpdateJSON decodes the value at key into a T, lets fn modify it and
// stores the result atomically. v is the zero T when the key is absent.
func UpdateJSON[T any](ctx context.Context, s Store, key string, fn func(v *T, found bool) error) error {
	return s.Update(ctx, key, func(current []byte, found bool) ([]byte, error) {
		var v T
		if found {
			if err := json.Unmarshal(current, &v); err != nil {
				return nil, fmt.Errorf("kv: decode %s: %w", key, err)
			}
		}
		if err := fn(&v, found); err != nil {
			return nil, err
		}
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("kv: encode %s: %w", key, err)
		}
		return data, nil
	})
}
