// Package janitor periodically removes old uploads. It is off unless a
// schedule is configured.
package janitor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"detection-stream/logger"

	"github.com/robfig/cron/v3"
)

type Janitor struct {
	sync.Mutex
	dir    string
	maxAge time.Duration
	logger logger.Logger
	Cron   *cron.Cron
	now    func() time.Time
}

func New(dir string, maxAge time.Duration, log logger.Logger) *Janitor {
	if log == nil {
		log = logger.Default
	}
	return &Janitor{
		dir:    dir,
		maxAge: maxAge,
		logger: log,
		now:    time.Now,
	}
}

// Start schedules Sweep on a standard five field cron spec (or a descriptor
// such as "@hourly").
func (j *Janitor) Start(schedule string) error {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		if _, err := j.Sweep(j.now()); err != nil {
			j.logger.Errorf("Janitor: sweep failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule %q: %w", schedule, err)
	}
	c.Start()
	j.Cron = c

	j.logger.Logf("Janitor: removing uploads older than %s on schedule %q", j.maxAge, schedule)
	return nil
}

// Stop waits for a running sweep to finish.
func (j *Janitor) Stop() {
	if j.Cron == nil {
		return
	}
	<-j.Cron.Stop().Done()
}

// Sweep removes regular files in the upload directory whose modification time
// is older than maxAge relative to now. It returns how many were removed.
func (j *Janitor) Sweep(now time.Time) (int, error) {
	// Ensure only one sweep runs at a time
	j.Lock()
	defer j.Unlock()

	entries, err := os.ReadDir(j.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("read upload dir: %w", err)
	}

	cutoff := now.Add(-j.maxAge)
	removed := 0
	var errs []error
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		p := filepath.Join(j.dir, e.Name())
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed++
		j.logger.Debugf("Janitor: removed %s", p)
	}

	if removed > 0 {
		j.logger.Logf("Janitor: removed %d expired upload(s)", removed)
	}
	return removed, errors.Join(errs...)
}
