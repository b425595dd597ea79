package events

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultBufferSize is the queue length used when NewBus gets zero.
const DefaultBufferSize = 256

// Sink receives events from the Bus.
type Sink interface {
	Name() string
	Send(ctx context.Context, e Event) error
}

// Bus queues events and delivers them to its sinks.
type Bus struct {
	sinks  []Sink
	logger *slog.Logger
	queue  chan Event
	now    func() time.Time

	mu        sync.RWMutex // guards closed against concurrent sends
	closed    bool
	closeOnce sync.Once
	done      chan struct{}
}

// NewBus creates a Bus and starts its delivery goroutine.
// Call Close to flush the queue and stop it.
func NewBus(logger *slog.Logger, bufferSize int, sinks ...Sink) *Bus {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	b := &Bus{
		sinks:  sinks,
		logger: logger,
		queue:  make(chan Event, bufferSize),
		now:    time.Now,
		done:   make(chan struct{}),
	}
	go b.run()
	return b
}

// Publish enqueues e. It never blocks; when the queue is full the event is dropped.
// A zero Timestamp is set to the current time.
func (b *Bus) Publish(e Event) {
	if b == nil {
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = b.now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		b.logger.Warn("event bus closed, dropping event", "type", e.Type, "entity_id", e.EntityID)
		return
	}

	select {
	case b.queue <- e:
	default:
		b.logger.Warn("event queue full, dropping event", "type", e.Type, "entity_id", e.EntityID)
	}
}

// Close stops accepting events, delivers what is queued and waits.
// Events published after Close are dropped.
func (b *Bus) Close() {
	if b == nil {
		return
	}
	b.closeOnce.Do(func() {
		b.mu.Lock()
		b.closed = true
		close(b.queue)
		b.mu.Unlock()
		<-b.done
	})
}

func (b *Bus) run() {
	defer close(b.done)
	for e := range b.queue {
		b.deliver(e)
	}
}

func (b *Bus) deliver(e Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, sink := range b.sinks {
		if err := sink.Send(ctx, e); err != nil {
			b.logger.Warn("event sink failed",
				"sink", sink.Name(),
				"type", e.Type,
				"error", err,
			)
		}
	}
}
