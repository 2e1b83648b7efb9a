package logging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

const filePrefix = "drugregistry-"

var segmentPattern = regexp.MustCompile(`^drugregistry-(\d{4}-W\d{2})(?:_(\d{2}))?\.log$`)

// RotatingFile is an io.Writer that starts a new file every ISO week and
// whenever the current file would grow past maxSize. Files older than the
// retention window are pruned by Prune.
type RotatingFile struct {
	dir       string
	retention time.Duration
	maxSize   int64
	now       func() time.Time

	mu      sync.Mutex
	file    *os.File
	week    string
	segment int
	size    int64

	stop chan struct{}
	done chan struct{}
}

// OpenRotatingFile creates dir when needed and opens the segment for the current week.
func OpenRotatingFile(dir string, retentionWeeks int, maxSize int64) (*RotatingFile, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
	}

	rf := &RotatingFile{
		dir:       dir,
		retention: time.Duration(retentionWeeks) * 7 * 24 * time.Hour,
		maxSize:   maxSize,
		now:       time.Now,
	}

	rf.mu.Lock()
	defer rf.mu.Unlock()
	if err := rf.open(weekKey(rf.now()), false); err != nil {
		return nil, err
	}
	return rf, nil
}

// weekKey returns the ISO week as YYYY-Www.
func weekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

func segmentName(week string, segment int) string {
	if segment == 0 {
		return filePrefix + week + ".log"
	}
	return fmt.Sprintf("%s%s_%02d.log", filePrefix, week, segment)
}

// open switches to the latest segment of week, or to a fresh one when full
// is set or the latest segment has no room left. Caller holds mu.
func (rf *RotatingFile) open(week string, full bool) error {
	if rf.file != nil {
		if err := rf.file.Close(); err != nil {
			slog.Warn("Failed to close log file during rotation", "error", err)
		}
		rf.file = nil
	}

	segment, size := rf.latestSegment(week)
	if full || (rf.maxSize > 0 && size >= rf.maxSize) {
		segment++
		size = 0
	}

	path := filepath.Join(rf.dir, segmentName(week, segment))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	rf.file = f
	rf.week = week
	rf.segment = segment
	rf.size = size
	return nil
}

// latestSegment finds the highest segment on disk for week and its size.
// A week with no file yet reports segment 0 with size 0.
func (rf *RotatingFile) latestSegment(week string) (int, int64) {
	entries, err := os.ReadDir(rf.dir)
	if err != nil {
		return 0, 0
	}

	segment, size := -1, int64(0)
	for _, e := range entries {
		m := segmentPattern.FindStringSubmatch(e.Name())
		if m == nil || m[1] != week {
			continue
		}
		n := 0
		if m[2] != "" {
			n, _ = strconv.Atoi(m[2])
		}
		if n <= segment {
			continue
		}
		segment = n
		if info, err := e.Info(); err == nil {
			size = info.Size()
		}
	}
	if segment < 0 {
		return 0, 0
	}
	return segment, size
}

// Write appends p to the current segment, rotating first when the week
// changed or the write would exceed the size limit.
func (rf *RotatingFile) Write(p []byte) (int, error) {
	rf.mu.Lock()
	defer rf.mu.Unlock()

	week := weekKey(rf.now())
	switch {
	case week != rf.week || rf.file == nil:
		if err := rf.open(week, false); err != nil {
			return 0, err
		}
	case rf.maxSize > 0 && rf.size > 0 && rf.size+int64(len(p)) > rf.maxSize:
		if err := rf.open(week, true); err != nil {
			return 0, err
		}
	}

	n, err := rf.file.Write(p)
	rf.size += int64(n)
	return n, err
}

// Prune removes log files whose modification time is past the retention window.
func (rf *RotatingFile) Prune() (int, error) {
	entries, err := os.ReadDir(rf.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read log directory: %w", err)
	}

	rf.mu.Lock()
	current := ""
	if rf.file != nil {
		current = filepath.Base(rf.file.Name())
	}
	rf.mu.Unlock()

	cutoff := rf.now().Add(-rf.retention)
	removed := 0
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == current || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, ".log") {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(rf.dir, name)); err == nil {
			removed++
		}
	}
	return removed, nil
}

// StartPruning runs Prune once a day until Close.
func (rf *RotatingFile) StartPruning() {
	rf.mu.Lock()
	if rf.stop != nil {
		rf.mu.Unlock()
		return
	}
	rf.stop = make(chan struct{})
	rf.done = make(chan struct{})
	stop, done := rf.stop, rf.done
	rf.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				// Stderr only: logging through slog here would write back into rf.
				if n, err := rf.Prune(); err != nil {
					fmt.Fprintf(os.Stderr, "log pruning failed: %v\n", err)
				} else if n > 0 {
					fmt.Fprintf(os.Stderr, "pruned %d old log files\n", n)
				}
			}
		}
	}()
}

// Files lists the log segments currently on disk, oldest first.
func (rf *RotatingFile) Files() []string {
	entries, err := os.ReadDir(rf.dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if segmentPattern.MatchString(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}

// Close stops pruning and closes the current segment.
func (rf *RotatingFile) Close() error {
	rf.mu.Lock()
	stop, done := rf.stop, rf.done
	rf.stop = nil
	rf.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}

	rf.mu.Lock()
	defer rf.mu.Unlock()
	if rf.file == nil {
		return nil
	}
	err := rf.file.Close()
	rf.file = nil
	return err
}
