// Package audit persists postback attempts off the request path.
package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"surveypulse/internal/model"
	"surveypulse/internal/observability"
)

const (
	batchSize     = 50
	flushInterval = time.Second
	writeTimeout  = 5 * time.Second
)

// Store persists audit entries.
type Store interface {
	InsertMany(ctx context.Context, entries []model.AuditLogEntry) error
}

// StatsRecorder updates rolling delivery counters.
type StatsRecorder interface {
	Record(ctx context.Context, entry model.AuditLogEntry) error
}

// Publisher pushes entries to live subscribers.
type Publisher interface {
	Publish(entry model.AuditLogEntry)
}

// AsyncSink buffers entries and writes them in batches from one goroutine.
// Append never blocks: when the buffer is full the entry is dropped.
type AsyncSink struct {
	entries   chan model.AuditLogEntry
	store     Store
	stats     StatsRecorder
	publisher Publisher
	logger    *slog.Logger

	wg        sync.WaitGroup
	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// NewAsyncSink creates a sink with the given buffer size. stats and
// publisher may be nil.
func NewAsyncSink(store Store, stats StatsRecorder, publisher Publisher, buffer int, logger *slog.Logger) *AsyncSink {
	if logger == nil {
		logger = slog.Default()
	}
	if buffer < 1 {
		buffer = 1
	}
	return &AsyncSink{
		entries:   make(chan model.AuditLogEntry, buffer),
		store:     store,
		stats:     stats,
		publisher: publisher,
		logger:    logger,
	}
}

// Start launches the writer goroutine.
func (s *AsyncSink) Start() {
	s.wg.Add(1)
	go s.run()
}

// Append queues an entry.
func (s *AsyncSink) Append(entry model.AuditLogEntry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		observability.AuditDropped.Inc()
		return
	}

	select {
	case s.entries <- entry:
	default:
		observability.AuditDropped.Inc()
		s.logger.Warn("audit buffer full, dropping entry",
			"type", entry.Type,
			"recipient", entry.RecipientName,
			"status", entry.Status,
		)
	}
}

// Close stops accepting entries, flushes what is buffered and waits for
// the writer, or until ctx is done.
func (s *AsyncSink) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.entries)
		s.mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *AsyncSink) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	batch := make([]model.AuditLogEntry, 0, batchSize)
	for {
		select {
		case entry, ok := <-s.entries:
			if !ok {
				s.flush(batch)
				return
			}
			s.fanOut(entry)
			batch = append(batch, entry)
			if len(batch) >= batchSize {
				s.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				s.flush(batch)
				batch = batch[:0]
			}
		}
	}
}

func (s *AsyncSink) fanOut(entry model.AuditLogEntry) {
	if s.publisher != nil {
		s.publisher.Publish(entry)
	}
	if s.stats != nil {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		if err := s.stats.Record(ctx, entry); err != nil {
			s.logger.Warn("failed to record delivery stats", "error", err)
		}
	}
}

func (s *AsyncSink) flush(batch []model.AuditLogEntry) {
	if len(batch) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := s.store.InsertMany(ctx, batch); err != nil {
		s.logger.Error("failed to persist audit entries", "count", len(batch), "error", err)
		return
	}
	s.logger.Debug("audit entries persisted", "count", len(batch))
}
