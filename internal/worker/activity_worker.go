// Package worker consumes queued activity entries and writes them to the
// remote activity log.
package worker

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"seguimiento/internal/activity"
	"seguimiento/internal/amqp"
	"seguimiento/internal/cache"
	"seguimiento/internal/log"
)

const (
	// seenTTL bounds how long a message ID is remembered for deduplication.
	seenTTL  = 30 * time.Minute
	seenSize = 10000
)

// ActivityWorker writes each consumed message once. Redelivered messages
// whose ID was already written are acknowledged without a second write.
type ActivityWorker struct {
	writer  activity.Writer
	timeout time.Duration
	logger  *log.Logger
	seen    *cache.LRUCache[time.Time]

	written    atomic.Int64
	duplicates atomic.Int64
	failed     atomic.Int64
}

// Stats counts messages handled since startup.
type Stats struct {
	Written    int64
	Duplicates int64
	Failed     int64
}

func NewActivityWorker(w activity.Writer, timeout time.Duration, logger *log.Logger) *ActivityWorker {
	if timeout <= 0 {
		timeout = activity.DefaultWriteTimeout
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &ActivityWorker{
		writer:  w,
		timeout: timeout,
		logger:  logger.WithComponent(log.ComponentWorker),
		seen:    cache.NewLRUCache[time.Time](seenSize, seenTTL),
	}
}

// Seen exposes the deduplication cache so a cache.Manager can sweep it.
func (w *ActivityWorker) Seen() *cache.LRUCache[time.Time] { return w.seen }

// HandleActivityMessage writes msg to the remote log.
func (w *ActivityWorker) HandleActivityMessage(ctx context.Context, msg *amqp.ActivityMessage) error {
	if _, dup := w.seen.Get(msg.ID); dup {
		w.duplicates.Add(1)
		w.logger.DebugContext(ctx, "Skipping duplicate activity message", "id", msg.ID)
		return nil
	}

	wctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()
	start := time.Now()
	if err := w.writer.RecordActivity(wctx, msg.Email, msg.Action, msg.Description); err != nil {
		w.failed.Add(1)
		return fmt.Errorf("record activity %s: %w", msg.ID, err)
	}
	w.seen.Set(msg.ID, msg.Timestamp)
	w.written.Add(1)

	w.logger.InfoContext(ctx, "Activity written",
		"id", msg.ID,
		log.FieldEmail, msg.Email,
		"action", msg.Action,
		"queued_for_ms", time.Since(msg.Timestamp).Milliseconds(),
		log.FieldDuration, time.Since(start).Milliseconds())
	return nil
}

func (w *ActivityWorker) Stats() Stats {
	return Stats{
		Written:    w.written.Load(),
		Duplicates: w.duplicates.Load(),
		Failed:     w.failed.Load(),
	}
}
