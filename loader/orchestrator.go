// Package loader orchestrates the background fetch+parse+store cycle of every
// dataset: a duplicate-trigger guard per dataset, independent concurrent
// start, forced reloads and scheduled freshness refreshes.
package loader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/giygas/drugregistry/logging"
	"golang.org/x/sync/errgroup"
)

// ErrUnknownDataset is returned for a dataset key no job was registered for.
var ErrUnknownDataset = errors.New("unknown dataset")

// Orchestrator owns the dataset jobs. Loads it starts in the background run
// on its base context and are never cancelled once started.
type Orchestrator struct {
	ctx   context.Context
	jobs  []Runner
	index map[string]Runner
	wg    sync.WaitGroup
}

// NewOrchestrator creates an orchestrator for the given jobs.
func NewOrchestrator(jobs ...Runner) *Orchestrator {
	o := &Orchestrator{
		ctx:   context.Background(),
		jobs:  jobs,
		index: make(map[string]Runner, len(jobs)),
	}
	for _, j := range jobs {
		o.index[j.Key()] = j
	}
	return o
}

// Datasets lists the registered dataset keys in registration order.
func (o *Orchestrator) Datasets() []string {
	keys := make([]string, 0, len(o.jobs))
	for _, j := range o.jobs {
		keys = append(keys, j.Key())
	}
	return keys
}

// Start hydrates or loads every dataset in the background and returns
// immediately.
func (o *Orchestrator) Start() {
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		if err := o.LoadAll(o.ctx); err != nil {
			logging.Error("Initial dataset load failed", "error", err)
		}
	}()
}

// LoadAll ensures every dataset concurrently and waits for them. A failing
// dataset never stops the others; the first error is returned.
func (o *Orchestrator) LoadAll(ctx context.Context) error {
	var g errgroup.Group
	for _, j := range o.jobs {
		g.Go(func() error {
			return j.Ensure(ctx)
		})
	}
	return g.Wait()
}

// Load runs a synchronous load of one dataset.
func (o *Orchestrator) Load(ctx context.Context, key string) (bool, error) {
	j, ok := o.index[key]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownDataset, key)
	}
	return j.Load(ctx)
}

// Refresh reloads the dataset in the background while it keeps serving the
// loaded payload. The durable snapshot is only replaced by a successful load,
// so a failed refresh leaves both in place. It is a no-op while a load is in
// flight and reports whether a refresh was started.
func (o *Orchestrator) Refresh(key string) (bool, error) {
	j, ok := o.index[key]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownDataset, key)
	}
	return o.background(key, "Scheduled refresh failed", j.BeginRefresh(o.ctx)), nil
}

// ForceReload discards the dataset's loaded state and durable snapshot and
// reloads it in the background. It is a no-op while a load is in flight and
// reports whether a reload was started.
func (o *Orchestrator) ForceReload(key string) (bool, error) {
	j, ok := o.index[key]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownDataset, key)
	}

	return o.background(key, "Forced reload failed", j.BeginReload(o.ctx)), nil
}

// background runs a started load cycle on its own goroutine. It reports
// false when run is nil, i.e. nothing was started.
func (o *Orchestrator) background(key, failure string, run func() error) bool {
	if run == nil {
		return false
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		if err := run(); err != nil {
			logging.Warn(failure, "dataset", key, "error", err)
		}
	}()
	return true
}

// Wait blocks until every background load has finished.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// StaleDatasets lists, in registration order, the datasets whose in-memory
// data is older than the freshness TTL at now. A dataset that never loaded
// counts as stale.
func (o *Orchestrator) StaleDatasets(now time.Time) []string {
	var stale []string
	for _, j := range o.jobs {
		if j.Stale(now) {
			stale = append(stale, j.Key())
		}
	}
	return stale
}
