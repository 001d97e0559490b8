/*
scheduler.go - Upload directory cleanup scheduler

PURPOSE:
  Periodically deletes uploaded inputs and generated workbooks older than the
  retention window. Jobs expire from the job store on the same window, so a
  file is never removed while its job can still be downloaded.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Runs once immediately on start
  - Only regular files directly in Dir are considered
  - Files that cannot be removed are logged and retried on the next pass

CONFIGURATION:
  - CheckInterval: How often to check (default: 10 minutes)
  - MaxAge:        Minimum age before a file is deleted (default: 1 hour)
  - Enabled:       Whether scheduler is active (default: true)

USAGE:
  scheduler := NewCleanupScheduler(dir, time.Hour, log)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: Cleanup endpoint (manual pass)
  - jobs/store.go: job retention
*/
package api

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// CleanupScheduler removes old files from the upload directory.
type CleanupScheduler struct {
	Dir           string
	MaxAge        time.Duration
	CheckInterval time.Duration
	Enabled       bool

	log zerolog.Logger
	now func() time.Time

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
	pass   sync.Mutex
}

// NewCleanupScheduler creates a new scheduler.
func NewCleanupScheduler(dir string, maxAge time.Duration, log zerolog.Logger) *CleanupScheduler {
	return &CleanupScheduler{
		Dir:           dir,
		MaxAge:        maxAge,
		CheckInterval: 10 * time.Minute,
		Enabled:       true,
		log:           log.With().Str("component", "cleanup").Logger(),
		now:           time.Now,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (cs *CleanupScheduler) Start() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if !cs.Enabled {
		cs.log.Info().Msg("disabled, not starting")
		return
	}
	if cs.ticker != nil {
		return
	}

	cs.ticker = time.NewTicker(cs.CheckInterval)
	cs.wg.Add(1)

	go cs.run()

	cs.log.Info().Dur("interval", cs.CheckInterval).Dur("max_age", cs.MaxAge).Msg("started")
}

// Stop stops the scheduler.
func (cs *CleanupScheduler) Stop() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.ticker != nil {
		cs.ticker.Stop()
		close(cs.stop)
		cs.wg.Wait()
		cs.ticker = nil
		cs.log.Info().Msg("stopped")
	}
}

func (cs *CleanupScheduler) run() {
	defer cs.wg.Done()

	// Run immediately on start
	if _, err := cs.RunNow(); err != nil {
		cs.log.Error().Err(err).Msg("cleanup failed")
	}

	for {
		select {
		case <-cs.ticker.C:
			if _, err := cs.RunNow(); err != nil {
				cs.log.Error().Err(err).Msg("cleanup failed")
			}
		case <-cs.stop:
			return
		}
	}
}

// RunNow performs one cleanup pass and returns the number of files removed.
func (cs *CleanupScheduler) RunNow() (int, error) {
	cs.pass.Lock()
	defer cs.pass.Unlock()

	entries, err := os.ReadDir(cs.Dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("read upload dir: %w", err)
	}

	cutoff := cs.now().Add(-cs.MaxAge)
	removed := 0
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(cs.Dir, e.Name())
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			cs.log.Warn().Err(err).Str("file", e.Name()).Msg("could not delete file")
			continue
		}
		removed++
	}

	if removed > 0 {
		cs.log.Info().Int("removed", removed).Msg("old files removed")
	}
	return removed, nil
}

// RemoveJobFiles deletes a job's input and output files. It is the job
// store's eviction hook.
func RemoveJobFiles(log zerolog.Logger, inputPath, outputPath string) {
	for _, p := range []string{inputPath, outputPath} {
		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn().Err(err).Str("file", filepath.Base(p)).Msg("could not delete job file")
		}
	}
}
