package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/giygas/drugregistry/logging"
	"github.com/giygas/drugregistry/metrics"
	"github.com/giygas/drugregistry/storage"
)

// FreshnessTTL is how long a durable snapshot is considered fresh.
const FreshnessTTL = 24 * time.Hour

// keyPrefix namespaces every key the store writes.
const keyPrefix = "cache:"

// PayloadKey is the storage key holding a dataset's serialized payload.
func PayloadKey(dataset string) string {
	return keyPrefix + dataset + ":payload"
}

// TimestampKey is the storage key holding the epoch-millisecond write time.
func TimestampKey(dataset string) string {
	return keyPrefix + dataset + ":writtenAt"
}

// IsFreshAt reports whether a snapshot written at writtenAt is still fresh at
// now. The boundary itself is stale.
func IsFreshAt(now, writtenAt time.Time) bool {
	if writtenAt.IsZero() {
		return false
	}
	return now.Sub(writtenAt) < FreshnessTTL
}

// PersistResult describes how a persist attempt ended.
type PersistResult struct {
	Durable bool
	Retried bool
	Err     error
}

// Store manages the durable snapshots of the known datasets.
type Store struct {
	storage  storage.Storage
	now      func() time.Time
	datasets []string
}

// NewStore creates a store over s. datasets lists every key the store may
// clear when storage runs out of quota.
func NewStore(s storage.Storage, now func() time.Time, datasets ...string) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{storage: s, now: now, datasets: datasets}
}

// Now returns the store's clock reading.
func (s *Store) Now() time.Time {
	return s.now()
}

// guard runs a storage call, turning panics into errors.
func guard(fn func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("storage panicked: %v", rec)
		}
	}()
	return fn()
}

// WrittenAt reads the durable write timestamp of dataset.
func (s *Store) WrittenAt(ctx context.Context, dataset string) (time.Time, bool) {
	var raw []byte
	err := guard(func() error {
		var err error
		raw, err = s.storage.Get(ctx, TimestampKey(dataset))
		return err
	})
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			logging.Warn("Failed to read cache timestamp", "dataset", dataset, "error", err)
		}
		return time.Time{}, false
	}

	ms, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		logging.Warn("Invalid cache timestamp", "dataset", dataset, "value", string(raw))
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

// IsFresh reports whether a durable snapshot of dataset exists and is younger
// than FreshnessTTL.
func (s *Store) IsFresh(ctx context.Context, dataset string) bool {
	writtenAt, ok := s.WrittenAt(ctx, dataset)
	if !ok {
		return false
	}
	return IsFreshAt(s.now(), writtenAt)
}

// Hydrate restores ds from its durable snapshot when that snapshot is fresh.
// It never runs the parser. A corrupt snapshot is invalidated.
func Hydrate[T any](ctx context.Context, s *Store, ds *Dataset[T]) bool {
	dataset := ds.Key()
	writtenAt, ok := s.WrittenAt(ctx, dataset)
	if !ok || !IsFreshAt(s.now(), writtenAt) {
		return false
	}

	var raw []byte
	err := guard(func() error {
		var err error
		raw, err = s.storage.Get(ctx, PayloadKey(dataset))
		return err
	})
	if err != nil {
		logging.Warn("Failed to read cache payload", "dataset", dataset, "error", err)
		return false
	}

	var payload []T
	if err := json.Unmarshal(raw, &payload); err != nil {
		logging.Warn("Discarding corrupt cache snapshot", "dataset", dataset, "error", err)
		s.removeKeys(ctx, dataset)
		return false
	}

	if !ds.Restore(payload, writtenAt) {
		logging.Info("Skipping cache restore, load in flight", "dataset", dataset)
		return false
	}
	metrics.CacheHydrations.WithLabelValues(dataset).Inc()
	logging.Info("Dataset restored from cache", "dataset", dataset, "count", len(payload),
		"written_at", writtenAt.Format(time.RFC3339))
	return true
}

// Persist writes payload as the durable snapshot of dataset. When storage is
// out of quota every known cache key is cleared and the write retried once.
// Any remaining failure leaves the dataset memory-only; it is never fatal.
func (s *Store) Persist(ctx context.Context, dataset string, payload any, writtenAt time.Time) PersistResult {
	data, err := json.Marshal(payload)
	if err != nil {
		logging.Warn("Failed to serialize dataset, keeping it in memory only", "dataset", dataset, "error", err)
		metrics.CachePersistFailures.WithLabelValues(dataset, "serialize").Inc()
		return PersistResult{Err: err}
	}

	err = s.write(ctx, dataset, data, writtenAt)
	if err == nil {
		return PersistResult{Durable: true}
	}

	result := PersistResult{}
	if errors.Is(err, storage.ErrQuotaExceeded) {
		logging.Warn("Storage quota exceeded, clearing cache and retrying", "dataset", dataset, "bytes", len(data))
		s.ClearAll(ctx)
		result.Retried = true
		if err = s.write(ctx, dataset, data, writtenAt); err == nil {
			result.Durable = true
			return result
		}
	}

	s.removeKeys(ctx, dataset)
	reason := "storage"
	if errors.Is(err, storage.ErrQuotaExceeded) {
		reason = "quota"
	}
	metrics.CachePersistFailures.WithLabelValues(dataset, reason).Inc()
	logging.Warn("Dataset kept in memory only", "dataset", dataset, "error", err)

	result.Err = err
	return result
}

// write stores the payload before the timestamp, so a torn write never looks
// fresh.
func (s *Store) write(ctx context.Context, dataset string, data []byte, writtenAt time.Time) error {
	return guard(func() error {
		if err := s.storage.Set(ctx, PayloadKey(dataset), data); err != nil {
			return err
		}
		stamp := strconv.FormatInt(writtenAt.UnixMilli(), 10)
		return s.storage.Set(ctx, TimestampKey(dataset), []byte(stamp))
	})
}

// Invalidate removes the durable snapshot of dataset.
func (s *Store) Invalidate(ctx context.Context, dataset string) {
	s.removeKeys(ctx, dataset)
}

// ClearAll removes every cache key in storage, fresh or not, including keys
// left by datasets this store no longer knows. When storage cannot list its
// keys it falls back to the known datasets.
func (s *Store) ClearAll(ctx context.Context) {
	var keys []string
	err := guard(func() error {
		var err error
		keys, err = s.storage.Keys(ctx)
		return err
	})
	if err != nil {
		logging.Warn("Failed to list cache keys, clearing known datasets", "error", err)
		for _, dataset := range s.datasets {
			s.removeKeys(ctx, dataset)
		}
		return
	}

	for _, key := range keys {
		if !strings.HasPrefix(key, keyPrefix) {
			continue
		}
		s.deleteKey(ctx, key)
	}
}

func (s *Store) removeKeys(ctx context.Context, dataset string) {
	s.deleteKey(ctx, TimestampKey(dataset))
	s.deleteKey(ctx, PayloadKey(dataset))
}

func (s *Store) deleteKey(ctx context.Context, key string) {
	if err := guard(func() error { return s.storage.Delete(ctx, key) }); err != nil {
		logging.Warn("Failed to remove cache key", "key", key, "error", err)
	}
}
