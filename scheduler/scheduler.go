// Package scheduler keeps the query cache warm. It re-reads the drug and
// manufacturer collections on a fixed interval, drops unused cache entries
// and warns when refreshes stop succeeding.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/giygas/drugdb/interfaces"
	"github.com/giygas/drugdb/logging"
	"github.com/go-co-op/gocron"
)

// Compile-time check to ensure Scheduler implements Scheduler interface
var _ interfaces.Scheduler = (*Scheduler)(nil)

const (
	defaultRefreshTimeout = 2 * time.Minute
	monitorInterval       = time.Hour
)

// Scheduler runs cache refresh and cleanup jobs using dependency injection
type Scheduler struct {
	refreshStore    interfaces.RefreshStore
	warmer          interfaces.CacheWarmer
	scheduler       *gocron.Scheduler
	refreshInterval time.Duration
	gcInterval      time.Duration
	refreshTimeout  time.Duration

	stopOnce sync.Once
	stop     chan struct{}
}

// NewScheduler creates a new scheduler instance with injected dependencies
func NewScheduler(refreshStore interfaces.RefreshStore, warmer interfaces.CacheWarmer, refreshInterval, gcInterval time.Duration) *Scheduler {
	if gcInterval <= 0 {
		gcInterval = refreshInterval
	}
	return &Scheduler{
		refreshStore:    refreshStore,
		warmer:          warmer,
		scheduler:       gocron.NewScheduler(time.Local),
		refreshInterval: refreshInterval,
		gcInterval:      gcInterval,
		refreshTimeout:  defaultRefreshTimeout,
		stop:            make(chan struct{}),
	}
}

// Start warms the cache once, then schedules refresh and cleanup.
// A failed initial refresh is logged only: reads still serve fallback data.
func (s *Scheduler) Start() error {
	if err := s.refresh(); err != nil {
		logging.Error("Failed to perform initial cache refresh", "error", err)
	}

	_, err := s.scheduler.Every(s.refreshInterval).WaitForSchedule().SingletonMode().Do(func() {
		if err := s.refresh(); err != nil {
			logging.Error("Failed to refresh cache", "error", err)
		}
	})
	if err != nil {
		logging.Error("Failed to schedule refresh", "error", err)
		return fmt.Errorf("failed to schedule refresh: %w", err)
	}

	_, err = s.scheduler.Every(s.gcInterval).WaitForSchedule().Do(s.prune)
	if err != nil {
		logging.Error("Failed to schedule cache cleanup", "error", err)
		return fmt.Errorf("failed to schedule cache cleanup: %w", err)
	}

	s.scheduler.StartAsync()

	s.startHealthMonitoring()

	return nil
}

// Stop stops the scheduled jobs and the health monitor
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
		s.scheduler.Stop()
	})
}

// refresh re-reads the cached collections and records what it saw
func (s *Scheduler) refresh() error {
	// Prevent concurrent refreshes
	if !s.refreshStore.BeginRefresh() {
		logging.Info("Refresh already in progress, skipping...")
		return nil
	}
	defer s.refreshStore.EndRefresh()

	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), s.refreshTimeout)
	defer cancel()

	stats, err := s.warmer.Warm(ctx)
	if err != nil {
		return fmt.Errorf("cache refresh failed: %w", err)
	}

	s.refreshStore.RecordRefresh(stats)

	if stats.Degraded {
		logging.Warn("Cache refreshed with fallback data",
			"duration", time.Since(start).String(),
			"drug_count", stats.DrugCount,
			"cause", stats.Cause,
		)
		return nil
	}

	logging.Info("Cache refresh completed",
		"duration", time.Since(start).String(),
		"drug_count", stats.DrugCount,
		"manufacturer_count", stats.ManufacturerCount,
	)
	return nil
}

func (s *Scheduler) prune() {
	if removed := s.warmer.Prune(); removed > 0 {
		logging.Debug("Pruned unused cache entries", "count", removed)
	}
}

// startHealthMonitoring warns when the last successful refresh is too old
func (s *Scheduler) startHealthMonitoring() {
	go func() {
		ticker := time.NewTicker(monitorInterval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				s.checkStaleness()
			}
		}
	}()
}

func (s *Scheduler) checkStaleness() bool {
	lastRefresh, _ := s.refreshStore.LastRefresh()
	if lastRefresh.IsZero() || time.Since(lastRefresh) > 3*s.refreshInterval {
		logging.Warn("Cache hasn't been refreshed recently",
			"last_refresh", lastRefresh,
			"refresh_interval", s.refreshInterval.String(),
		)
		return true
	}
	return false
}
