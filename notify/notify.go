// Package notify delivers user-facing success and failure messages
package notify

import (
	"sync"
	"time"

	"github.com/giygas/drugdb/interfaces"
	"github.com/giygas/drugdb/logging"
)

var (
	_ interfaces.Notifier = (*LogNotifier)(nil)
	_ interfaces.Notifier = (*Feed)(nil)
	_ interfaces.Notifier = Multi(nil)
)

type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Notification is one message shown to the user
type Notification struct {
	Kind    Kind      `json:"kind"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// LogNotifier writes notifications to the application log
type LogNotifier struct{}

func (LogNotifier) Success(message string) {
	logging.Info(message)
}

func (LogNotifier) Failure(message string, err error) {
	logging.Warn(message, "error", err)
}

// Feed keeps the most recent notifications in a ring buffer
type Feed struct {
	mu    sync.RWMutex
	items []Notification
	next  int
	full  bool
	now   func() time.Time
}

// NewFeed creates a feed holding at most size notifications
func NewFeed(size int) *Feed {
	if size <= 0 {
		size = 50
	}
	return &Feed{items: make([]Notification, size), now: time.Now}
}

func (f *Feed) Success(message string) {
	f.push(KindSuccess, message)
}

func (f *Feed) Failure(message string, _ error) {
	f.push(KindError, message)
}

func (f *Feed) push(kind Kind, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.items[f.next] = Notification{Kind: kind, Message: message, Time: f.now()}
	f.next = (f.next + 1) % len(f.items)
	if f.next == 0 {
		f.full = true
	}
}

// Recent returns up to limit notifications, newest first. A limit <= 0
// returns everything held.
func (f *Feed) Recent(limit int) []Notification {
	f.mu.RLock()
	defer f.mu.RUnlock()

	count := f.next
	if f.full {
		count = len(f.items)
	}
	if limit > 0 && limit < count {
		count = limit
	}

	out := make([]Notification, 0, count)
	idx := f.next
	for range count {
		idx = (idx - 1 + len(f.items)) % len(f.items)
		out = append(out, f.items[idx])
	}
	return out
}

// Multi fans notifications out to several notifiers
type Multi []interfaces.Notifier

func (m Multi) Success(message string) {
	for _, n := range m {
		n.Success(message)
	}
}

func (m Multi) Failure(message string, err error) {
	for _, n := range m {
		n.Failure(message, err)
	}
}
