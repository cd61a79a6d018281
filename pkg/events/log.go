// Package events provides the append-only notification log the engine publishes to.
package events

import (
	"log/slog"
	"sync"

	"github.com/liqingnz/btc-timelock-contracts/internal/logging"
	"github.com/liqingnz/btc-timelock-contracts/pkg/domain"
)

// Log is an append-only, in-memory sequence of ledger events with fan-out to subscribers.
// Safe for concurrent use.
type Log struct {
	mu     sync.RWMutex
	events []domain.Event
	subs   map[chan domain.Event]struct{}

	buffer int
	logger *slog.Logger
}

// Option configures the Log.
type Option func(*Log)

// WithBuffer sets the channel capacity handed to each subscriber.
func WithBuffer(n int) Option {
	return func(l *Log) {
		l.buffer = n
	}
}

// WithLogger configures a logger for dropped deliveries.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Log) {
		l.logger = logger
	}
}

// NewLog creates an empty log.
func NewLog(opts ...Option) *Log {
	l := &Log{
		subs:   make(map[chan domain.Event]struct{}),
		buffer: 16,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append assigns the next sequence number (starting at 1), stores the event
// and delivers it to subscribers. Slow subscribers miss the delivery but can
// replay it with Since.
func (l *Log) Append(e domain.Event) domain.Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	e.Seq = uint64(len(l.events)) + 1
	l.events = append(l.events, e)

	for ch := range l.subs {
		select {
		case ch <- e:
		default:
			l.logger.Warn("Event subscriber buffer full, dropping delivery", "seq", e.Seq, "type", e.Type)
		}
	}
	return e
}

// Since returns the events with a sequence number greater than seq, oldest first.
func (l *Log) Since(seq uint64) []domain.Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if seq >= uint64(len(l.events)) {
		return []domain.Event{}
	}
	return append([]domain.Event{}, l.events[seq:]...)
}

// Len returns the number of events appended so far.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}

// Subscribe registers a new subscriber. The returned cancel function closes
// the channel and must be called once the subscriber is done.
func (l *Log) Subscribe() (<-chan domain.Event, func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ch := make(chan domain.Event, l.buffer)
	l.subs[ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			delete(l.subs, ch)
			close(ch)
		})
	}
}
