// Package logfeed keeps a periodically refreshed copy of the remote activity
// log for the logs view.
package logfeed

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"seguimiento/internal/core"
	"seguimiento/internal/log"
)

const (
	DefaultInterval = 30 * time.Second
	DefaultLimit    = 100
	pollTimeout     = 20 * time.Second
)

// Source is the remote activity log.
type Source interface {
	RecentActivity(ctx context.Context, limit int) ([]core.LogEntry, error)
}

// Snapshot is the result of the latest poll.
type Snapshot struct {
	Entries   []core.LogEntry `json:"logs"`
	Emails    []string        `json:"correos"`
	FetchedAt time.Time       `json:"actualizado"`
	// Error is the last poll failure; Entries then still hold the previous
	// successful poll.
	Error string `json:"error,omitempty"`
}

// Filter keeps the entries whose email equals email exactly. An empty email
// keeps everything.
func (s Snapshot) Filter(email string) Snapshot {
	if email == "" {
		return s
	}
	out := s
	out.Entries = make([]core.LogEntry, 0, len(s.Entries))
	for _, e := range s.Entries {
		if e.Email == email {
			out.Entries = append(out.Entries, e)
		}
	}
	return out
}

type Feed struct {
	source   Source
	limit    int
	interval time.Duration
	logger   *log.Logger

	mu   sync.RWMutex
	snap Snapshot
	cron *cron.Cron
}

func New(source Source, interval time.Duration, limit int, logger *log.Logger) *Feed {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Feed{
		source:   source,
		limit:    limit,
		interval: interval,
		logger:   logger.WithComponent(log.ComponentLogFeed),
	}
}

// Poll fetches the latest entries once and stores them.
func (f *Feed) Poll(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pollTimeout)
	defer cancel()

	entries, err := f.source.RecentActivity(ctx, f.limit)
	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.snap.Error = err.Error()
		f.logger.WarnContext(ctx, "Activity log poll failed",
			log.FieldOperation, log.OpPoll,
			log.FieldError, err.Error())
		return err
	}
	f.snap = NewSnapshot(entries, time.Now())
	f.logger.DebugContext(ctx, "Activity log refreshed", log.FieldRows, len(entries))
	return nil
}

// Snapshot returns the latest poll result.
func (f *Feed) Snapshot() Snapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.snap
}

// Start polls immediately and then on every interval until Stop.
func (f *Feed) Start(ctx context.Context) error {
	c := cron.New()
	spec := fmt.Sprintf("@every %s", f.interval)
	if _, err := c.AddFunc(spec, func() { _ = f.Poll(ctx) }); err != nil {
		return fmt.Errorf("schedule activity log poll: %w", err)
	}
	f.mu.Lock()
	f.cron = c
	f.mu.Unlock()

	go func() { _ = f.Poll(ctx) }()
	c.Start()
	f.logger.InfoContext(ctx, "Activity log poller started", "interval", f.interval.String(), "limit", f.limit)
	return nil
}

// Stop halts polling and waits for a running poll to finish.
func (f *Feed) Stop() {
	f.mu.Lock()
	c := f.cron
	f.cron = nil
	f.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}

// NewSnapshot builds a snapshot of entries fetched at t.
func NewSnapshot(entries []core.LogEntry, t time.Time) Snapshot {
	return Snapshot{Entries: entries, Emails: uniqueEmails(entries), FetchedAt: t}
}

func uniqueEmails(entries []core.LogEntry) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0)
	for _, e := range entries {
		if e.Email == "" {
			continue
		}
		if _, ok := seen[e.Email]; ok {
			continue
		}
		seen[e.Email] = struct{}{}
		out = append(out, e.Email)
	}
	sort.Strings(out)
	return out
}
