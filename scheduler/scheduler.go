// Package scheduler runs the periodic jobs of the service: reloading stale
// datasets on a cron schedule and warning when data stops being refreshed.
package scheduler

import (
	"fmt"
	"time"

	"github.com/giygas/drugregistry/interfaces"
	"github.com/giygas/drugregistry/logging"
	"github.com/go-co-op/gocron"
)

// Compile-time check to ensure Scheduler implements Scheduler interface
var _ interfaces.Scheduler = (*Scheduler)(nil)

// staleWarningAge is the data age past which the monitor logs a warning.
const staleWarningAge = 25 * time.Hour

// Reloader is the part of the loader orchestrator the scheduler drives.
type Reloader interface {
	StaleDatasets(now time.Time) []string
	Refresh(key string) (bool, error)
}

// Scheduler handles dataset refreshes and staleness monitoring
type Scheduler struct {
	reloader  Reloader
	cache     interfaces.CacheService
	scheduler *gocron.Scheduler
	cron      string
	now       func() time.Time
}

// NewScheduler creates a scheduler running refreshes on the cron expression.
func NewScheduler(reloader Reloader, cache interfaces.CacheService, cron string, now func() time.Time) *Scheduler {
	if now == nil {
		now = time.Now
	}
	return &Scheduler{
		reloader:  reloader,
		cache:     cache,
		scheduler: gocron.NewScheduler(time.Local),
		cron:      cron,
		now:       now,
	}
}

// Start schedules the refresh and monitoring jobs.
func (s *Scheduler) Start() error {
	_, err := s.scheduler.Cron(s.cron).SingletonMode().Do(func() {
		s.RefreshStale()
	})
	if err != nil {
		logging.Error("Failed to schedule refresh", "cron", s.cron, "error", err)
		return fmt.Errorf("failed to schedule refresh: %w", err)
	}

	_, err = s.scheduler.Every(1).Hour().WaitForSchedule().Do(func() {
		s.CheckFreshness()
	})
	if err != nil {
		return fmt.Errorf("failed to schedule freshness monitor: %w", err)
	}

	s.scheduler.StartAsync()
	logging.Info("Dataset refresh scheduled", "cron", s.cron)
	return nil
}

// Stop stops the scheduler. Loads already started keep running.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// RefreshStale reloads every stale dataset in the background and returns the
// keys it started. Loaded data keeps being served while a refresh runs.
func (s *Scheduler) RefreshStale() []string {
	var started []string

	for _, key := range s.reloader.StaleDatasets(s.now()) {
		ok, err := s.reloader.Refresh(key)
		if err != nil {
			logging.Warn("Scheduled refresh failed", "dataset", key, "error", err)
			continue
		}
		if ok {
			started = append(started, key)
		}
	}

	if len(started) > 0 {
		logging.Info("Scheduled refresh started", "datasets", started)
	}
	return started
}

// CheckFreshness logs a warning for every dataset not refreshed within
// staleWarningAge and returns their keys.
func (s *Scheduler) CheckFreshness() []string {
	now := s.now()
	var late []string

	for key, st := range s.cache.GetCacheStatus() {
		switch {
		case st.WrittenAt.IsZero():
			if !st.Loading {
				logging.Warn("Dataset has never been loaded", "dataset", key, "error", st.Error)
				late = append(late, key)
			}
		case now.Sub(st.WrittenAt) > staleWarningAge:
			logging.Warn("Dataset hasn't been updated in over 25 hours",
				"dataset", key,
				"written_at", st.WrittenAt.Format(time.RFC3339))
			late = append(late, key)
		}
	}

	return late
}
