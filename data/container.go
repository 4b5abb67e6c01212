// Package data keeps track of background cache refreshes. The state is held
// in atomic values so health checks read it without locking while the
// scheduler records a new refresh.
package data

import (
	"sync/atomic"
	"time"

	"github.com/giygas/drugdb/interfaces"
	"github.com/giygas/drugdb/logging"
)

// Compile-time check to ensure RefreshState implements RefreshStore
var _ interfaces.RefreshStore = (*RefreshState)(nil)

type refreshRecord struct {
	at    time.Time
	stats interfaces.RefreshStats
}

// RefreshState holds the outcome of the last background refresh
type RefreshState struct {
	last            atomic.Value // refreshRecord
	refreshing      atomic.Bool
	serverStartTime atomic.Value // time.Time
}

// NewRefreshState creates a state with no refresh recorded
func NewRefreshState() *RefreshState {
	rs := &RefreshState{}
	rs.last.Store(refreshRecord{})
	rs.serverStartTime.Store(time.Time{})
	return rs
}

// RecordRefresh stores the outcome of a completed refresh
func (rs *RefreshState) RecordRefresh(stats interfaces.RefreshStats) {
	rs.last.Store(refreshRecord{at: time.Now(), stats: stats})
}

// LastRefresh returns when the last refresh completed and what it saw.
// The time is zero when none completed yet.
func (rs *RefreshState) LastRefresh() (time.Time, interfaces.RefreshStats) {
	if v := rs.last.Load(); v != nil {
		if rec, ok := v.(refreshRecord); ok {
			return rec.at, rec.stats
		}
	}

	logging.Warn("Could not get the last refresh value")
	return time.Time{}, interfaces.RefreshStats{}
}

// BeginRefresh marks the start of a refresh.
// Returns true if the refresh can proceed, false if another one is running.
func (rs *RefreshState) BeginRefresh() bool {
	return rs.refreshing.CompareAndSwap(false, true)
}

// EndRefresh marks the end of a refresh
func (rs *RefreshState) EndRefresh() {
	rs.refreshing.Store(false)
}

// IsRefreshing returns true while a refresh is in progress
func (rs *RefreshState) IsRefreshing() bool {
	return rs.refreshing.Load()
}

// SetServerStartTime sets the server start time
func (rs *RefreshState) SetServerStartTime(startTime time.Time) {
	rs.serverStartTime.Store(startTime)
}

// GetServerStartTime returns the server start time
func (rs *RefreshState) GetServerStartTime() time.Time {
	if v := rs.serverStartTime.Load(); v != nil {
		if startTime, ok := v.(time.Time); ok {
			return startTime
		}
	}

	logging.Warn("Could not get the server start time value")
	return time.Time{}
}
