// Package kv provides key-value storage backends for the inventory snapshot.
package kv

import (
	"context"
	"errors"
)

var ErrKeyNotFound = errors.New("key not found")

// Storage is a key-value backend holding whole values per key.
// Implementations must make Set atomic per key: a concurrent Get observes either the old or the new value.
type Storage interface {
	// Get returns the value stored under key.
	// Returns ErrKeyNotFound if nothing was stored under key.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set replaces the value stored under key.
	Set(ctx context.Context, key string, value []byte) error
}
