// Package status carries snapshots and events from a control loop to any
// number of observers without ever blocking the loop.
package status

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	customlog "github.com/steer-rc/controller/pkg/log"
)

// Board holds the latest published snapshot. Publish swaps in a new value;
// readers always see a complete snapshot.
type Board[T any] struct {
	v atomic.Pointer[T]
}

// NewBoard returns a board holding initial.
func NewBoard[T any](initial T) *Board[T] {
	b := &Board[T]{}
	b.Publish(initial)
	return b
}

// Publish stores a copy of snap.
func (b *Board[T]) Publish(snap T) {
	b.v.Store(&snap)
}

// Load returns the latest snapshot.
func (b *Board[T]) Load() T {
	if p := b.v.Load(); p != nil {
		return *p
	}
	var zero T
	return zero
}

// Level classifies an event.
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Event is one human-readable line on the event stream.
type Event struct {
	Time    time.Time `json:"time"`
	Level   Level     `json:"level"`
	Message string    `json:"message"`
}

// Feed is a bounded fan-out of events. Emit never blocks: a subscriber
// that falls behind loses its oldest events.
type Feed struct {
	logger customlog.Logger
	size   int

	mu   sync.Mutex
	subs map[chan Event]struct{}
}

// NewFeed returns a feed whose subscribers buffer up to size events.
func NewFeed(logger customlog.Logger, size int) *Feed {
	if size <= 0 {
		size = 64
	}
	return &Feed{
		logger: logger,
		size:   size,
		subs:   make(map[chan Event]struct{}),
	}
}

// Subscribe returns a channel of events and a function that ends the
// subscription and closes the channel.
func (f *Feed) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, f.size)

	f.mu.Lock()
	f.subs[ch] = struct{}{}
	f.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, ch)
			f.mu.Unlock()
			close(ch)
		})
	}
}

func (f *Feed) Infof(format string, args ...interface{}) {
	f.logger.Infof(format, args...)
	f.emit(LevelInfo, format, args...)
}

func (f *Feed) Warnf(format string, args ...interface{}) {
	f.logger.Warnf(format, args...)
	f.emit(LevelWarn, format, args...)
}

func (f *Feed) Errorf(format string, args ...interface{}) {
	f.logger.Errorf(format, args...)
	f.emit(LevelError, format, args...)
}

func (f *Feed) emit(level Level, format string, args ...interface{}) {
	ev := Event{Time: time.Now(), Level: level, Message: fmt.Sprintf(format, args...)}

	f.mu.Lock()
	defer f.mu.Unlock()

	for ch := range f.subs {
		select {
		case ch <- ev:
			continue
		default:
		}
		// Full: drop the oldest and retry once.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- ev:
		default:
		}
	}
}
