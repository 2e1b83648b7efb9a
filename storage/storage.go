// Package storage provides the durable key-value storage behind the dataset
// cache, with a byte quota that mirrors browser-style storage limits.
package storage

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Get for a missing key.
	ErrNotFound = errors.New("key not found")
	// ErrQuotaExceeded is returned by Set when the write would exceed the quota.
	ErrQuotaExceeded = errors.New("storage quota exceeded")
)

// Storage is a synchronous byte-valued key-value store.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
	Close() error
}
