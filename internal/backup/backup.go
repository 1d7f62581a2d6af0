// Package backup writes dated export files of the campaign document, either
// on demand or on a cron schedule.
package backup

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/MJE43/dnd-master-desktop/internal/metrics"
)

const (
	filePrefix = "dnd-master-backup-"
	fileSuffix = ".json"
)

// Filename returns the export file name for the UTC date of t.
func Filename(t time.Time) string {
	return filePrefix + t.UTC().Format("2006-01-02") + fileSuffix
}

// Exporter writes the whole document. *appstore.Store implements it. Ready
// returns non-nil while the document in memory does not reflect what is saved;
// no backup is written or pruned then.
type Exporter interface {
	Export(w io.Writer) error
	Ready() error
}

// Scheduler writes backups into one directory and keeps the newest few.
type Scheduler struct {
	src      Exporter
	dir      string
	keep     int
	schedule string
	now      func() time.Time
	log      logrus.FieldLogger

	mu   sync.Mutex // serializes runs
	cron *cron.Cron
}

// NewScheduler validates schedule (standard 5-field cron or a descriptor such
// as "@daily") and returns a scheduler writing into dir. keep <= 0 disables
// pruning.
func NewScheduler(src Exporter, dir, schedule string, keep int, log logrus.FieldLogger) (*Scheduler, error) {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("backup: schedule %q: %w", schedule, err)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Scheduler{
		src:      src,
		dir:      dir,
		keep:     keep,
		schedule: schedule,
		now:      time.Now,
		log:      log.WithField("component", "backup"),
	}, nil
}

// Dir returns the directory backups are written to.
func (s *Scheduler) Dir() string { return s.dir }

// RunOnce writes one backup and prunes old ones. It returns the written path.
// A second run on the same day overwrites that day's file.
func (s *Scheduler) RunOnce(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.write(ctx)
	metrics.RecordBackup(err)
	if err != nil {
		return "", err
	}
	if err := s.prune(); err != nil {
		s.log.WithError(err).Warn("prune old backups")
	}
	return path, nil
}

func (s *Scheduler) write(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := s.src.Ready(); err != nil {
		return "", fmt.Errorf("backup: skipped: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("backup: create dir: %w", err)
	}
	var buf bytes.Buffer
	if err := s.src.Export(&buf); err != nil {
		return "", fmt.Errorf("backup: export: %w", err)
	}

	path := filepath.Join(s.dir, Filename(s.now()))
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o600); err != nil {
		return "", fmt.Errorf("backup: write: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("backup: rename: %w", err)
	}
	return path, nil
}

// prune removes all but the newest keep backup files. Names sort by date.
func (s *Scheduler) prune() error {
	if s.keep <= 0 {
		return nil
	}
	files, err := List(s.dir)
	if err != nil {
		return err
	}
	if len(files) <= s.keep {
		return nil
	}
	for _, name := range files[:len(files)-s.keep] {
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("backup: remove %s: %w", name, err)
		}
	}
	return nil
}

// List returns backup file names in dir, oldest first. A missing dir is empty.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("backup: list: %w", err)
	}
	var names []string
	for _, e := range entries {
		n := e.Name()
		if e.Type().IsRegular() && strings.HasPrefix(n, filePrefix) && strings.HasSuffix(n, fileSuffix) {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Start runs RunOnce on the schedule until Stop.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return
	}
	c := cron.New()
	// Schedule was validated in NewScheduler.
	_, _ = c.AddFunc(s.schedule, func() {
		path, err := s.RunOnce(context.Background())
		if err != nil {
			s.log.WithError(err).Error("scheduled backup")
			return
		}
		s.log.WithField("path", path).Info("backup written")
	})
	c.Start()
	s.cron = c
	s.log.WithFields(logrus.Fields{"schedule": s.schedule, "dir": s.Dir()}).Info("backup scheduler started")
}

// Stop halts the schedule and waits for a running backup or ctx, whichever
// comes first.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c == nil {
		return nil
	}
	select {
	case <-c.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
