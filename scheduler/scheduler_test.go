package scheduler

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/giygas/drugregistry/interfaces"
	"github.com/giygas/drugregistry/logging"
)

func init() {
	logging.InitLogger("")
}

var testNow = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

type mockReloader struct {
	stale    []string
	busy     map[string]bool
	failing  map[string]bool
	reloaded []string
}

func (m *mockReloader) StaleDatasets(time.Time) []string { return m.stale }

func (m *mockReloader) Refresh(key string) (bool, error) {
	if m.failing[key] {
		return false, errors.New("unknown dataset")
	}
	if m.busy[key] {
		return false, nil
	}
	m.reloaded = append(m.reloaded, key)
	return true, nil
}

type mockCache struct {
	statuses map[string]interfaces.DatasetStatus
}

func (m *mockCache) GetDrugsData() interfaces.DrugsData { return interfaces.DrugsData{} }
func (m *mockCache) GetClassificationData() interfaces.ClassificationData {
	return interfaces.ClassificationData{}
}
func (m *mockCache) ForceReload(string) (bool, error) { return false, nil }
func (m *mockCache) Subscribe(func()) interfaces.Unsubscriber { return nil }
func (m *mockCache) GetCacheStatus() map[string]interfaces.DatasetStatus { return m.statuses }
func (m *mockCache) GetLastReport() *interfaces.DataQualityReport { return nil }

func TestRefreshStale(t *testing.T) {
	reloader := &mockReloader{
		stale:   []string{"drugs", "classifications", "broken"},
		busy:    map[string]bool{"classifications": true},
		failing: map[string]bool{"broken": true},
	}
	s := NewScheduler(reloader, &mockCache{}, "0 * * * *", func() time.Time { return testNow })

	started := s.RefreshStale()

	if !slices.Equal(started, []string{"drugs"}) {
		t.Errorf("started = %v, want [drugs]", started)
	}
	if !slices.Equal(reloader.reloaded, []string{"drugs"}) {
		t.Errorf("reloaded = %v, want [drugs]", reloader.reloaded)
	}
}

func TestRefreshStaleNothingToDo(t *testing.T) {
	reloader := &mockReloader{}
	s := NewScheduler(reloader, &mockCache{}, "0 * * * *", nil)

	if started := s.RefreshStale(); len(started) != 0 {
		t.Errorf("expected no reloads, got %v", started)
	}
}

func TestCheckFreshness(t *testing.T) {
	cache := &mockCache{statuses: map[string]interfaces.DatasetStatus{
		"fresh":   {Loaded: true, WrittenAt: testNow.Add(-time.Hour)},
		"old":     {Loaded: true, WrittenAt: testNow.Add(-26 * time.Hour)},
		"never":   {Error: "fetch failed"},
		"loading": {Loading: true},
	}}
	s := NewScheduler(&mockReloader{}, cache, "0 * * * *", func() time.Time { return testNow })

	late := s.CheckFreshness()
	slices.Sort(late)

	if !slices.Equal(late, []string{"never", "old"}) {
		t.Errorf("late = %v, want [never old]", late)
	}
}

func TestStartRejectsInvalidCron(t *testing.T) {
	s := NewScheduler(&mockReloader{}, &mockCache{}, "not a cron", nil)

	if err := s.Start(); err == nil {
		s.Stop()
		t.Fatal("expected an error for an invalid cron expression")
	}
}

func TestStartAndStop(t *testing.T) {
	s := NewScheduler(&mockReloader{}, &mockCache{}, "0 * * * *", nil)

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	s.Stop()
}
