package core

// scheduler.go keeps the suppression list in step with the file the data
// center maintains.
//
// The reloader checks the file's modification time every Interval and
// swaps in a freshly parsed list when it changed. A list that fails to
// parse is logged and the previous one stays active, so a half-saved
// spreadsheet never clears the suppressions of running checks.

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// DefaultReloadInterval is how often the suppression file is polled.
const DefaultReloadInterval = time.Minute

// ReloadConfig configures the suppression reloader.
type ReloadConfig struct {
	Path     string        // suppression list file
	Interval time.Duration // poll interval (default: DefaultReloadInterval)
}

// SetSuppressions replaces the active suppression list. Checks already
// running keep the list they started with.
func (s *Service) SetSuppressions(l *SuppressionList) {
	s.suppress.Store(l)
}

// Suppressions returns the active suppression list, or nil.
func (s *Service) Suppressions() *SuppressionList {
	return s.suppress.Load()
}

// StartSuppressionReloader polls cfg.Path and reloads the suppression list
// when the file changes. It loads the file immediately, then every
// Interval, and returns when ctx is cancelled.
func (s *Service) StartSuppressionReloader(ctx context.Context, cfg ReloadConfig) {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultReloadInterval
	}

	slog.Info("suppression reloader started",
		"path", cfg.Path,
		"interval", cfg.Interval.String(),
	)

	var lastMod time.Time
	lastMod = s.reloadSuppressions(cfg.Path, lastMod)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("suppression reloader stopped")
			return
		case <-ticker.C:
			lastMod = s.reloadSuppressions(cfg.Path, lastMod)
		}
	}
}

// reloadSuppressions loads path when it was modified after lastMod and
// returns the modification time of the list now in use.
func (s *Service) reloadSuppressions(path string, lastMod time.Time) time.Time {
	info, err := os.Stat(path)
	if err != nil {
		slog.Error("suppression list unavailable", "path", path, "error", err)
		return lastMod
	}
	if !info.ModTime().After(lastMod) {
		return lastMod
	}

	start := time.Now()
	list, err := LoadSuppressionFile(path)
	if err != nil {
		slog.Error("suppression reload failed", "path", path, "error", err)
		return lastMod
	}

	s.SetSuppressions(list)
	slog.Info("suppression list loaded",
		"path", path,
		"entries", list.Len(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return info.ModTime()
}
