package logging

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func openTestFile(t *testing.T, maxSize int64, now time.Time) *RotatingFile {
	t.Helper()
	dir := t.TempDir()
	rf, err := OpenRotatingFile(dir, 1, maxSize)
	if err != nil {
		t.Fatalf("OpenRotatingFile: %v", err)
	}
	rf.now = func() time.Time { return now }
	t.Cleanup(func() { _ = rf.Close() })
	return rf
}

func TestWeekKey(t *testing.T) {
	tests := []struct {
		date time.Time
		want string
	}{
		{time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), "2026-W01"},
		{time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC), "2026-W42"},
		{time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), "2026-W53"},
	}
	for _, tt := range tests {
		if got := weekKey(tt.date); got != tt.want {
			t.Errorf("weekKey(%s) = %s, want %s", tt.date.Format(time.DateOnly), got, tt.want)
		}
	}
}

func TestRotatingFileRotatesOnWeekChange(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	rf := openTestFile(t, 0, now)

	if _, err := rf.Write([]byte("first week\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	rf.now = func() time.Time { return now.Add(7 * 24 * time.Hour) }
	if _, err := rf.Write([]byte("second week\n")); err != nil {
		t.Fatalf("write: %v", err)
	}

	files := rf.Files()
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %v", files)
	}
	if !strings.Contains(files[0], "W42") || !strings.Contains(files[1], "W43") {
		t.Errorf("unexpected file names: %v", files)
	}
}

func TestRotatingFileRotatesOnSize(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	rf := openTestFile(t, 32, now)

	line := []byte(strings.Repeat("x", 20) + "\n")
	for range 3 {
		if _, err := rf.Write(line); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	want := []string{"drugregistry-2026-W42.log", "drugregistry-2026-W42_01.log", "drugregistry-2026-W42_02.log"}
	got := rf.Files()
	if len(got) != len(want) {
		t.Fatalf("files = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("files[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestRotatingFileResumesLatestSegment(t *testing.T) {
	dir := t.TempDir()
	full := filepath.Join(dir, "drugregistry-2026-W42.log")
	if err := os.WriteFile(full, []byte(strings.Repeat("x", 64)), 0o644); err != nil {
		t.Fatal(err)
	}
	partial := filepath.Join(dir, "drugregistry-2026-W42_01.log")
	if err := os.WriteFile(partial, []byte("abc"), 0o644); err != nil {
		t.Fatal(err)
	}

	rf := &RotatingFile{dir: dir, maxSize: 64, now: func() time.Time {
		return time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	}}
	t.Cleanup(func() { _ = rf.Close() })

	if _, err := rf.Write([]byte("def")); err != nil {
		t.Fatalf("write: %v", err)
	}

	content, err := os.ReadFile(partial)
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "abcdef" {
		t.Errorf("expected write appended to latest segment, got %q", content)
	}
}

func TestRotatingFilePrune(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	rf := openTestFile(t, 0, now)
	if _, err := rf.Write([]byte("current\n")); err != nil {
		t.Fatal(err)
	}

	old := filepath.Join(rf.dir, "drugregistry-2026-W30.log")
	if err := os.WriteFile(old, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	stale := now.Add(-30 * 24 * time.Hour)
	if err := os.Chtimes(old, stale, stale); err != nil {
		t.Fatal(err)
	}
	unrelated := filepath.Join(rf.dir, "notes.txt")
	if err := os.WriteFile(unrelated, []byte("keep"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(unrelated, stale, stale); err != nil {
		t.Fatal(err)
	}

	removed, err := rf.Prune()
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 file removed, got %d", removed)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Error("expected old log to be removed")
	}
	if _, err := os.Stat(unrelated); err != nil {
		t.Error("expected unrelated file to be kept")
	}
}

func TestRotatingFileConcurrentWrites(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	rf := openTestFile(t, 4096, now)

	var wg sync.WaitGroup
	for range 8 {
		wg.Go(func() {
			for range 50 {
				if _, err := rf.Write([]byte("concurrent line\n")); err != nil {
					t.Errorf("write: %v", err)
					return
				}
			}
		})
	}
	wg.Wait()

	var total int64
	for _, name := range rf.Files() {
		info, err := os.Stat(filepath.Join(rf.dir, name))
		if err != nil {
			t.Fatal(err)
		}
		if info.Size() > 4096 {
			t.Errorf("%s exceeds size limit: %d", name, info.Size())
		}
		total += info.Size()
	}
	if want := int64(8 * 50 * len("concurrent line\n")); total != want {
		t.Errorf("total bytes = %d, want %d", total, want)
	}
}

func TestRotatingFileStartPruningStopsOnClose(t *testing.T) {
	rf, err := OpenRotatingFile(t.TempDir(), 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	rf.StartPruning()
	rf.StartPruning()

	done := make(chan struct{})
	go func() {
		_ = rf.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close did not stop the pruning goroutine")
	}
}
