package loader

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/giygas/drugregistry/cache"
	"github.com/giygas/drugregistry/logging"
	"github.com/giygas/drugregistry/metrics"
	"github.com/giygas/drugregistry/registryparser"
)

// Pipeline fetches a dataset's raw blob and parses it into entities.
type Pipeline[T any] interface {
	Fetch(ctx context.Context) ([]byte, error)
	Parse(blob []byte) ([]T, registryparser.ParseStats, error)
}

// Notifier is told about every dataset state transition.
type Notifier interface {
	Notify() error
}

// Runner is the type-erased view of a Job used by the Orchestrator.
type Runner interface {
	Key() string
	// Ensure hydrates or loads the dataset the first time it is called and
	// does nothing afterwards.
	Ensure(ctx context.Context) error
	// Load runs one fetch+parse+store cycle. started is false when a load was
	// already in flight.
	Load(ctx context.Context) (started bool, err error)
	// BeginRefresh marks the dataset loading while keeping the loaded payload
	// and durable snapshot. It returns a function running the cycle, or nil
	// when a load is already in flight.
	BeginRefresh(ctx context.Context) func() error
	// BeginReload clears the loaded state and durable snapshot and marks the
	// dataset loading. It returns a function running the cycle, or nil when a
	// load is already in flight.
	BeginReload(ctx context.Context) func() error
	// Stale reports whether the in-memory data is older than the freshness TTL.
	Stale(now time.Time) bool
}

// Job drives the idle → loading → loaded/error state machine of one dataset.
type Job[T any] struct {
	dataset      *cache.Dataset[T]
	pipeline     Pipeline[T]
	store        *cache.Store
	notifier     Notifier
	fetchTimeout time.Duration
	onData       func(payload []T)
	triggered    atomic.Bool
}

// Compile-time check to ensure Job implements Runner
var _ Runner = (*Job[struct{}])(nil)

// JobOption configures a Job.
type JobOption[T any] func(*Job[T])

// WithFetchTimeout bounds the fetch step. Zero means no timeout.
func WithFetchTimeout[T any](d time.Duration) JobOption[T] {
	return func(j *Job[T]) {
		j.fetchTimeout = d
	}
}

// WithOnData registers a hook run with every new payload, after the dataset
// is updated and before subscribers are notified.
func WithOnData[T any](fn func(payload []T)) JobOption[T] {
	return func(j *Job[T]) {
		j.onData = fn
	}
}

// NewJob wires a dataset to its pipeline and durable store.
func NewJob[T any](dataset *cache.Dataset[T], pipeline Pipeline[T], store *cache.Store, notifier Notifier, opts ...JobOption[T]) *Job[T] {
	j := &Job[T]{
		dataset:  dataset,
		pipeline: pipeline,
		store:    store,
		notifier: notifier,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

func (j *Job[T]) Key() string {
	return j.dataset.Key()
}

func (j *Job[T]) Ensure(ctx context.Context) error {
	if !j.triggered.CompareAndSwap(false, true) {
		return nil
	}

	if cache.Hydrate(ctx, j.store, j.dataset) {
		j.publish(j.dataset.Snapshot().Payload)
		return nil
	}

	_, err := j.Load(ctx)
	return err
}

func (j *Job[T]) Load(ctx context.Context) (bool, error) {
	run := j.BeginRefresh(ctx)
	if run == nil {
		return false, nil
	}
	return true, run()
}

func (j *Job[T]) BeginRefresh(ctx context.Context) func() error {
	if !j.dataset.BeginLoad() {
		logging.Info("Load already in progress, skipping...", "dataset", j.Key())
		return nil
	}
	j.triggered.Store(true)
	j.notify()

	return func() error {
		return j.run(ctx)
	}
}

func (j *Job[T]) BeginReload(ctx context.Context) func() error {
	if !j.dataset.BeginReload() {
		logging.Info("Reload ignored, load already in progress", "dataset", j.Key())
		return nil
	}
	j.triggered.Store(true)
	j.store.Invalidate(ctx, j.Key())
	j.notify()

	return func() error {
		return j.run(ctx)
	}
}

func (j *Job[T]) Stale(now time.Time) bool {
	snap := j.dataset.Snapshot()
	return !cache.IsFreshAt(now, snap.WrittenAt)
}

// run performs fetch → parse → store for a dataset already marked loading.
func (j *Job[T]) run(ctx context.Context) error {
	key := j.Key()
	logging.Info("Starting dataset load", "dataset", key, "at", j.store.Now().Format(time.RFC3339))
	start := time.Now()

	payload, stats, err := j.fetchAndParse(ctx)
	metrics.DatasetLoadDuration.WithLabelValues(key).Observe(time.Since(start).Seconds())
	if err != nil {
		j.dataset.FailLoad(err)
		metrics.DatasetLoads.WithLabelValues(key, "error").Inc()
		logging.Error("Dataset load failed", "dataset", key, "error", err)
		j.notify()
		return fmt.Errorf("load %s: %w", key, err)
	}

	writtenAt := j.store.Now()
	result := j.store.Persist(ctx, key, payload, writtenAt)
	j.dataset.CompleteLoad(payload, writtenAt, !result.Durable)

	metrics.DatasetLoads.WithLabelValues(key, "success").Inc()
	metrics.DatasetRowsDropped.WithLabelValues(key).Add(float64(stats.DroppedRows))
	logging.Info("Dataset load completed",
		"dataset", key,
		"duration", time.Since(start).String(),
		"input_rows", stats.InputRows,
		"count", stats.OutputRows,
		"durable", result.Durable)

	j.publish(payload)
	return nil
}

func (j *Job[T]) fetchAndParse(ctx context.Context) (payload []T, stats registryparser.ParseStats, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("pipeline panicked: %v", rec)
		}
	}()

	fetchCtx := ctx
	if j.fetchTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, j.fetchTimeout)
		defer cancel()
	}

	blob, err := j.pipeline.Fetch(fetchCtx)
	if err != nil {
		return nil, stats, err
	}

	return j.pipeline.Parse(blob)
}

// publish runs the data hook and notifies subscribers.
func (j *Job[T]) publish(payload []T) {
	metrics.DatasetEntities.WithLabelValues(j.Key()).Set(float64(len(payload)))
	if j.onData != nil {
		j.onData(payload)
	}
	j.notify()
}

func (j *Job[T]) notify() {
	if j.notifier == nil {
		return
	}
	if err := j.notifier.Notify(); err != nil {
		logging.Warn("Subscriber failed", "dataset", j.Key(), "error", err)
	}
}
