package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/giygas/drugdb/interfaces"
)

// mockRefreshStore for testing scheduler
type mockRefreshStore struct {
	mu          sync.Mutex
	lastRefresh time.Time
	stats       interfaces.RefreshStats
	refreshing  bool
	recordCount int
}

func (m *mockRefreshStore) BeginRefresh() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.refreshing {
		return false
	}
	m.refreshing = true
	return true
}

func (m *mockRefreshStore) EndRefresh() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshing = false
}

func (m *mockRefreshStore) IsRefreshing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshing
}

func (m *mockRefreshStore) RecordRefresh(stats interfaces.RefreshStats) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastRefresh = time.Now()
	m.stats = stats
	m.recordCount++
}

func (m *mockRefreshStore) LastRefresh() (time.Time, interfaces.RefreshStats) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastRefresh, m.stats
}

func (m *mockRefreshStore) GetServerStartTime() time.Time {
	return time.Time{}
}

func (m *mockRefreshStore) records() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recordCount
}

// mockWarmer for testing scheduler
type mockWarmer struct {
	warmCount  atomic.Int32
	pruneCount atomic.Int32
	stats      interfaces.RefreshStats
	shouldFail bool
}

func (m *mockWarmer) Warm(ctx context.Context) (interfaces.RefreshStats, error) {
	m.warmCount.Add(1)
	if m.shouldFail {
		return interfaces.RefreshStats{}, errors.New("upstream returned 500")
	}
	return m.stats, nil
}

func (m *mockWarmer) Prune() int {
	m.pruneCount.Add(1)
	return 2
}

func TestScheduler_SuccessfulRefresh(t *testing.T) {
	store := &mockRefreshStore{}
	warmer := &mockWarmer{stats: interfaces.RefreshStats{DrugCount: 12, ManufacturerCount: 3}}
	s := NewScheduler(store, warmer, time.Hour, time.Hour)

	if err := s.refresh(); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	if store.records() != 1 {
		t.Errorf("Expected 1 recorded refresh, got %d", store.records())
	}
	_, stats := store.LastRefresh()
	if stats.DrugCount != 12 || stats.ManufacturerCount != 3 {
		t.Errorf("Unexpected recorded stats %+v", stats)
	}
	if store.IsRefreshing() {
		t.Error("Refresh flag must be released")
	}
}

func TestScheduler_DegradedRefreshIsRecorded(t *testing.T) {
	store := &mockRefreshStore{}
	cause := errors.New("connection refused")
	warmer := &mockWarmer{stats: interfaces.RefreshStats{DrugCount: 3, Degraded: true, Cause: cause}}
	s := NewScheduler(store, warmer, time.Hour, time.Hour)

	if err := s.refresh(); err != nil {
		t.Fatalf("Degraded refresh must not fail: %v", err)
	}
	if _, stats := store.LastRefresh(); !stats.Degraded || !errors.Is(stats.Cause, cause) {
		t.Errorf("Expected degraded stats to be recorded, got %+v", stats)
	}
}

func TestScheduler_RefreshFailure(t *testing.T) {
	store := &mockRefreshStore{}
	warmer := &mockWarmer{shouldFail: true}
	s := NewScheduler(store, warmer, time.Hour, time.Hour)

	if err := s.refresh(); err == nil {
		t.Error("Expected refresh error")
	}
	if store.records() != 0 {
		t.Error("Failed refresh must not be recorded")
	}
	if store.IsRefreshing() {
		t.Error("Refresh flag must be released after failure")
	}
}

func TestScheduler_ConcurrentRefreshPrevention(t *testing.T) {
	store := &mockRefreshStore{refreshing: true}
	warmer := &mockWarmer{}
	s := NewScheduler(store, warmer, time.Hour, time.Hour)

	if err := s.refresh(); err != nil {
		t.Errorf("Skipped refresh must not fail: %v", err)
	}
	if warmer.warmCount.Load() != 0 {
		t.Error("Warm must not run while another refresh is in progress")
	}
}

func TestScheduler_StartAndStop(t *testing.T) {
	store := &mockRefreshStore{}
	warmer := &mockWarmer{shouldFail: true}
	s := NewScheduler(store, warmer, time.Hour, 0)

	if err := s.Start(); err != nil {
		t.Fatalf("Start must survive a failed initial refresh: %v", err)
	}
	if warmer.warmCount.Load() != 1 {
		t.Errorf("Expected initial refresh, got %d", warmer.warmCount.Load())
	}
	if s.gcInterval != time.Hour {
		t.Errorf("Expected gc interval to default to the refresh interval, got %v", s.gcInterval)
	}

	s.Stop()
	s.Stop()
}

func TestScheduler_Prune(t *testing.T) {
	warmer := &mockWarmer{}
	s := NewScheduler(&mockRefreshStore{}, warmer, time.Hour, time.Minute)

	s.prune()

	if warmer.pruneCount.Load() != 1 {
		t.Errorf("Expected 1 prune, got %d", warmer.pruneCount.Load())
	}
}

func TestScheduler_CheckStaleness(t *testing.T) {
	store := &mockRefreshStore{}
	s := NewScheduler(store, &mockWarmer{}, 10*time.Minute, time.Minute)

	if !s.checkStaleness() {
		t.Error("Never refreshed cache must be reported stale")
	}

	store.RecordRefresh(interfaces.RefreshStats{})
	if s.checkStaleness() {
		t.Error("Fresh cache must not be reported stale")
	}

	store.mu.Lock()
	store.lastRefresh = time.Now().Add(-31 * time.Minute)
	store.mu.Unlock()
	if !s.checkStaleness() {
		t.Error("Old refresh must be reported stale")
	}
}
