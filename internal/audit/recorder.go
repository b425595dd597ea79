package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Recorder writes entries asynchronously through a Repository.
//
// Record never blocks: entries beyond the buffer are dropped with a warning.
// A single goroutine drains the buffer so writes stay serial.
type Recorder struct {
	repo   Repository
	logger *slog.Logger
	ch     chan *Entry
	source string

	mu        sync.RWMutex // guards closed against concurrent sends
	closed    bool
	closeOnce sync.Once
	done      chan struct{}
}

// NewRecorder starts a Recorder tagging entries with source (e.g. "api").
func NewRecorder(repo Repository, logger *slog.Logger, bufferSize int, source string) *Recorder {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	r := &Recorder{
		repo:   repo,
		logger: logger,
		ch:     make(chan *Entry, bufferSize),
		source: source,
		done:   make(chan struct{}),
	}
	go r.drain()
	return r
}

// Record enqueues an entry. Safe on a nil Recorder (auditing disabled).
func (r *Recorder) Record(action, entityType, entityID, userID string, details map[string]any) {
	if r == nil {
		return
	}

	entry := &Entry{
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		UserID:     userID,
		Source:     r.source,
		Details:    details,
		CreatedAt:  time.Now().UTC(),
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.logger.Warn("audit recorder closed, dropping entry",
			"action", action,
			"entity_type", entityType,
		)
		return
	}

	select {
	case r.ch <- entry:
	default:
		r.logger.Warn("audit log channel full, dropping entry",
			"action", action,
			"entity_type", entityType,
		)
	}
}

// Close flushes queued entries and stops the drain goroutine.
// Entries recorded after Close are dropped.
func (r *Recorder) Close() {
	if r == nil {
		return
	}
	r.closeOnce.Do(func() {
		r.mu.Lock()
		r.closed = true
		close(r.ch)
		r.mu.Unlock()
		<-r.done
	})
}

func (r *Recorder) drain() {
	defer close(r.done)
	for entry := range r.ch {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := r.repo.Create(ctx, entry); err != nil {
			r.logger.Error("audit log write failed",
				"action", entry.Action,
				"entity_type", entry.EntityType,
				"error", err,
			)
		}
		cancel()
	}
}
