// Package notify delivers user-facing notifications raised by the
// coordinators: a blocking "in progress" notice that must be closed, then
// a success or error result.
package notify

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

type Kind string

const (
	KindProgress Kind = "progress"
	KindSuccess  Kind = "success"
	KindError    Kind = "error"
)

type Notification struct {
	Kind    Kind      `json:"kind"`
	Title   string    `json:"title"`
	Message string    `json:"message,omitempty"`
	At      time.Time `json:"at"`
}

// Notifier shows notifications to the user. The func returned by Progress
// closes the blocking notice and is safe to call more than once.
type Notifier interface {
	Progress(title string) (done func())
	Success(title, message string)
	Error(title, message string)
}

type logNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier reports notifications as log lines
func NewLogNotifier(logger *zap.Logger) Notifier {
	return &logNotifier{logger: logger.Named("notify")}
}

func (n *logNotifier) Progress(title string) func() {
	start := time.Now()
	n.logger.Info("In progress", zap.String("title", title))
	var once sync.Once
	return func() {
		once.Do(func() {
			n.logger.Debug("Progress closed", zap.String("title", title), zap.Duration("elapsed", time.Since(start)))
		})
	}
}

func (n *logNotifier) Success(title, message string) {
	n.logger.Info(title, zap.String("kind", string(KindSuccess)), zap.String("message", message))
}

func (n *logNotifier) Error(title, message string) {
	n.logger.Warn(title, zap.String("kind", string(KindError)), zap.String("message", message))
}

// Feed keeps the most recent notifications so a view can poll them, and
// tracks whether a blocking notice is open.
type Feed struct {
	mu    sync.Mutex
	limit int
	items []Notification
	open  int
	now   func() time.Time
}

// NewFeed keeps at most limit notifications
func NewFeed(limit int) *Feed {
	if limit <= 0 {
		limit = 50
	}
	return &Feed{limit: limit, now: time.Now}
}

func (f *Feed) Progress(title string) func() {
	f.mu.Lock()
	f.open++
	f.push(Notification{Kind: KindProgress, Title: title})
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			f.open--
			f.mu.Unlock()
		})
	}
}

func (f *Feed) Success(title, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.push(Notification{Kind: KindSuccess, Title: title, Message: message})
}

func (f *Feed) Error(title, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.push(Notification{Kind: KindError, Title: title, Message: message})
}

// Recent returns the stored notifications, oldest first
func (f *Feed) Recent() []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Notification, len(f.items))
	copy(out, f.items)
	return out
}

// Blocking reports whether any progress notice is still open
func (f *Feed) Blocking() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open > 0
}

func (f *Feed) push(n Notification) {
	n.At = f.now()
	f.items = append(f.items, n)
	if over := len(f.items) - f.limit; over > 0 {
		f.items = append([]Notification(nil), f.items[over:]...)
	}
}

type multi []Notifier

// Multi fans notifications out to every notifier
func Multi(notifiers ...Notifier) Notifier {
	return multi(notifiers)
}

func (m multi) Progress(title string) func() {
	closers := make([]func(), len(m))
	for i, n := range m {
		closers[i] = n.Progress(title)
	}
	return func() {
		for _, c := range closers {
			c()
		}
	}
}

func (m multi) Success(title, message string) {
	for _, n := range m {
		n.Success(title, message)
	}
}

func (m multi) Error(title, message string) {
	for _, n := range m {
		n.Error(title, message)
	}
}
