package cache

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"testing"
	"time"

	"github.com/giygas/drugregistry/metrics"
	"github.com/giygas/drugregistry/storage"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// faultyStorage fails the next setFailures writes with setErr.
type faultyStorage struct {
	*storage.MemoryStore
	setFailures int
	setErr      error
	panicOnSet  bool
	sets        int
	keysErr     error
}

func newFaultyStorage() *faultyStorage {
	return &faultyStorage{MemoryStore: storage.NewMemoryStore(0)}
}

func (f *faultyStorage) Set(ctx context.Context, key string, value []byte) error {
	f.sets++
	if f.panicOnSet {
		panic("disk on fire")
	}
	if f.setFailures > 0 {
		f.setFailures--
		return f.setErr
	}
	return f.MemoryStore.Set(ctx, key, value)
}

func (f *faultyStorage) Keys(ctx context.Context) ([]string, error) {
	if f.keysErr != nil {
		return nil, f.keysErr
	}
	return f.MemoryStore.Keys(ctx)
}

var testNow = time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)

func TestIsFreshAt(t *testing.T) {
	writtenAt := testNow

	tests := []struct {
		name     string
		now      time.Time
		expected bool
	}{
		{"just written", writtenAt, true},
		{"one millisecond before expiry", writtenAt.Add(FreshnessTTL - time.Millisecond), true},
		{"exactly at expiry", writtenAt.Add(FreshnessTTL), false},
		{"one millisecond after expiry", writtenAt.Add(FreshnessTTL + time.Millisecond), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsFreshAt(tt.now, writtenAt); got != tt.expected {
				t.Errorf("IsFreshAt() = %v, want %v", got, tt.expected)
			}
		})
	}

	if IsFreshAt(testNow, time.Time{}) {
		t.Error("Expected a missing write time to be stale")
	}
}

func TestPersistWritesPayloadAndTimestamp(t *testing.T) {
	ctx := context.Background()
	backing := storage.NewMemoryStore(0)
	store := NewStore(backing, func() time.Time { return testNow }, "drugs")

	result := store.Persist(ctx, "drugs", []string{"a", "b"}, testNow)
	if !result.Durable || result.Retried || result.Err != nil {
		t.Fatalf("Unexpected result %+v", result)
	}

	payload, err := backing.Get(ctx, PayloadKey("drugs"))
	if err != nil || string(payload) != `["a","b"]` {
		t.Errorf("Unexpected payload %q, %v", payload, err)
	}
	stamp, err := backing.Get(ctx, TimestampKey("drugs"))
	if err != nil || string(stamp) != strconv.FormatInt(testNow.UnixMilli(), 10) {
		t.Errorf("Expected epoch milliseconds, got %q, %v", stamp, err)
	}

	if !store.IsFresh(ctx, "drugs") {
		t.Error("Expected a just-written snapshot to be fresh")
	}
}

func TestPersistClearsAllKeysAndRetriesOnQuota(t *testing.T) {
	ctx := context.Background()
	backing := newFaultyStorage()
	store := NewStore(backing, func() time.Time { return testNow }, "drugs", "classifications")

	if result := store.Persist(ctx, "classifications", []string{"fresh"}, testNow); !result.Durable {
		t.Fatalf("Failed to seed classifications: %+v", result)
	}

	backing.setFailures = 1
	backing.setErr = storage.ErrQuotaExceeded

	result := store.Persist(ctx, "drugs", []string{"a"}, testNow)
	if !result.Durable || !result.Retried || result.Err != nil {
		t.Fatalf("Expected durable write after retry, got %+v", result)
	}

	if store.IsFresh(ctx, "classifications") {
		t.Error("Expected every known snapshot to be cleared, fresh or not")
	}
	if !store.IsFresh(ctx, "drugs") {
		t.Error("Expected retried snapshot to be fresh")
	}
}

func TestClearAllRemovesEveryCacheKey(t *testing.T) {
	ctx := context.Background()
	backing := newFaultyStorage()
	store := NewStore(backing, func() time.Time { return testNow }, "drugs")

	store.Persist(ctx, "drugs", []string{"a"}, testNow)
	_ = backing.MemoryStore.Set(ctx, PayloadKey("vaccines"), []byte("[]"))
	_ = backing.MemoryStore.Set(ctx, "settings", []byte("keep"))

	store.ClearAll(ctx)

	keys, _ := backing.Keys(ctx)
	if !slices.Equal(keys, []string{"settings"}) {
		t.Errorf("Expected only the non-cache key to remain, got %v", keys)
	}
}

func TestClearAllFallsBackToKnownDatasets(t *testing.T) {
	ctx := context.Background()
	backing := newFaultyStorage()
	store := NewStore(backing, func() time.Time { return testNow }, "drugs")

	store.Persist(ctx, "drugs", []string{"a"}, testNow)
	backing.keysErr = errors.New("listing unavailable")

	store.ClearAll(ctx)

	if _, err := backing.Get(ctx, PayloadKey("drugs")); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected known dataset cleared, got %v", err)
	}
}

func TestPersistFallsBackToMemoryOnly(t *testing.T) {
	ctx := context.Background()
	backing := newFaultyStorage()
	store := NewStore(backing, func() time.Time { return testNow }, "drugs")

	// A previous snapshot that the failed retry must not leave behind.
	store.Persist(ctx, "drugs", []string{"old"}, testNow.Add(-time.Hour))

	before := testutil.ToFloat64(metrics.CachePersistFailures.WithLabelValues("drugs", "quota"))
	backing.setFailures = 2
	backing.setErr = storage.ErrQuotaExceeded

	result := store.Persist(ctx, "drugs", []string{"new"}, testNow)
	if result.Durable || !result.Retried || !errors.Is(result.Err, storage.ErrQuotaExceeded) {
		t.Fatalf("Expected memory-only result after failed retry, got %+v", result)
	}

	keys, _ := backing.Keys(ctx)
	if len(keys) != 0 {
		t.Errorf("Expected partial keys to be removed, got %v", keys)
	}

	after := testutil.ToFloat64(metrics.CachePersistFailures.WithLabelValues("drugs", "quota"))
	if after-before != 1 {
		t.Errorf("Expected one quota failure recorded, got %v", after-before)
	}
}

func TestPersistDoesNotRetryOtherErrors(t *testing.T) {
	ctx := context.Background()
	backing := newFaultyStorage()
	backing.setFailures = 1
	backing.setErr = errors.New("disk I/O error")
	store := NewStore(backing, func() time.Time { return testNow }, "drugs")

	result := store.Persist(ctx, "drugs", []string{"a"}, testNow)
	if result.Durable || result.Retried || result.Err == nil {
		t.Errorf("Expected a single failed attempt, got %+v", result)
	}
	if backing.sets != 1 {
		t.Errorf("Expected one write attempt, got %d", backing.sets)
	}
}

func TestPersistRecoversFromPanickingStorage(t *testing.T) {
	backing := newFaultyStorage()
	backing.panicOnSet = true
	store := NewStore(backing, func() time.Time { return testNow }, "drugs")

	result := store.Persist(context.Background(), "drugs", []string{"a"}, testNow)
	if result.Durable || result.Err == nil {
		t.Errorf("Expected panic to degrade to memory-only, got %+v", result)
	}
}

func TestPersistUnserializablePayload(t *testing.T) {
	store := NewStore(storage.NewMemoryStore(0), nil, "drugs")

	result := store.Persist(context.Background(), "drugs", []any{func() {}}, testNow)
	if result.Durable || result.Err == nil {
		t.Errorf("Expected serialization failure, got %+v", result)
	}
}

func TestPersistWithRealQuota(t *testing.T) {
	ctx := context.Background()
	backing := storage.NewMemoryStore(45)
	store := NewStore(backing, func() time.Time { return testNow }, "drugs", "classifications")

	// 17 payload bytes plus a 13-byte timestamp.
	if result := store.Persist(ctx, "classifications", []string{"a", "b", "c", "d"}, testNow); !result.Durable {
		t.Fatalf("Failed to seed classifications: %+v", result)
	}

	result := store.Persist(ctx, "drugs", []string{"xxxxxxxxxxxxxxxx"}, testNow)
	if !result.Durable || !result.Retried {
		t.Errorf("Expected durable write after clearing, got %+v", result)
	}
}

func TestHydrate(t *testing.T) {
	ctx := context.Background()
	backing := storage.NewMemoryStore(0)
	writtenAt := testNow.Add(-23 * time.Hour)
	writer := NewStore(backing, func() time.Time { return writtenAt }, "drugs")
	writer.Persist(ctx, "drugs", []string{"a", "b"}, writtenAt)

	reader := NewStore(backing, func() time.Time { return testNow }, "drugs")
	ds := NewDataset[string]("drugs")

	if !Hydrate(ctx, reader, ds) {
		t.Fatal("Expected fresh snapshot to hydrate")
	}

	snap := ds.Snapshot()
	if !snap.IsLoaded || snap.IsLoading {
		t.Errorf("Expected loaded without loading, got %+v", snap)
	}
	if !slices.Equal(snap.Payload, []string{"a", "b"}) {
		t.Errorf("Unexpected payload %v", snap.Payload)
	}
	if !snap.WrittenAt.Equal(writtenAt) {
		t.Errorf("Expected write time %s, got %s", writtenAt, snap.WrittenAt)
	}
}

func TestHydrateSkipsStaleSnapshot(t *testing.T) {
	ctx := context.Background()
	backing := storage.NewMemoryStore(0)
	writer := NewStore(backing, nil, "drugs")
	writer.Persist(ctx, "drugs", []string{"a"}, testNow.Add(-FreshnessTTL))

	ds := NewDataset[string]("drugs")
	if Hydrate(ctx, NewStore(backing, func() time.Time { return testNow }, "drugs"), ds) {
		t.Error("Expected a 24h-old snapshot not to hydrate")
	}
	if ds.Snapshot().IsLoaded {
		t.Error("Expected dataset to stay unloaded")
	}
}

func TestHydrateSkipsDatasetWithLoadInFlight(t *testing.T) {
	ctx := context.Background()
	backing := storage.NewMemoryStore(0)
	store := NewStore(backing, func() time.Time { return testNow }, "drugs")
	store.Persist(ctx, "drugs", []string{"a"}, testNow)

	ds := NewDataset[string]("drugs")
	ds.BeginReload()

	if Hydrate(ctx, store, ds) {
		t.Error("Expected hydrate to yield to the in-flight load")
	}
	if snap := ds.Snapshot(); snap.IsLoaded || len(snap.Payload) != 0 {
		t.Errorf("Expected dataset untouched, got %+v", snap)
	}
}

func TestHydrateDiscardsCorruptSnapshot(t *testing.T) {
	ctx := context.Background()
	backing := storage.NewMemoryStore(0)
	_ = backing.Set(ctx, PayloadKey("drugs"), []byte("{not json"))
	_ = backing.Set(ctx, TimestampKey("drugs"), []byte(strconv.FormatInt(testNow.UnixMilli(), 10)))

	store := NewStore(backing, func() time.Time { return testNow }, "drugs")
	if Hydrate(ctx, store, NewDataset[string]("drugs")) {
		t.Error("Expected corrupt snapshot not to hydrate")
	}

	keys, _ := backing.Keys(ctx)
	if len(keys) != 0 {
		t.Errorf("Expected corrupt snapshot to be removed, got %v", keys)
	}
}

func TestIsFreshWithInvalidTimestamp(t *testing.T) {
	ctx := context.Background()
	backing := storage.NewMemoryStore(0)
	_ = backing.Set(ctx, TimestampKey("drugs"), []byte("yesterday"))

	store := NewStore(backing, func() time.Time { return testNow }, "drugs")
	if store.IsFresh(ctx, "drugs") {
		t.Error("Expected an unparseable timestamp to be stale")
	}
	if store.IsFresh(ctx, "classifications") {
		t.Error("Expected a missing snapshot to be stale")
	}
}

func TestInvalidate(t *testing.T) {
	ctx := context.Background()
	backing := storage.NewMemoryStore(0)
	store := NewStore(backing, func() time.Time { return testNow }, "drugs", "classifications")
	store.Persist(ctx, "drugs", []string{"a"}, testNow)
	store.Persist(ctx, "classifications", []string{"b"}, testNow)

	store.Invalidate(ctx, "drugs")

	if store.IsFresh(ctx, "drugs") {
		t.Error("Expected drugs snapshot to be removed")
	}
	if !store.IsFresh(ctx, "classifications") {
		t.Error("Expected classifications snapshot to be kept")
	}
}
