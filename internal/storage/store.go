package storage

import (
	"context"
	"errors"
)

var (
	// ErrStorageUnavailable reports that the persistent store could not be read or written.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrMalformedState reports persisted data that could not be fully decoded.
	ErrMalformedState = errors.New("malformed persisted state")
)

//go:generate mockgen -source=store.go -destination=store_mock.go -package=storage

// KeyValueStore is the persistent store the ledger is saved into.
type KeyValueStore interface {
	// Get returns the value stored under key and whether it exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	Close() error
}
