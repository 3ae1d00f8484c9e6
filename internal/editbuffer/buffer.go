// Package editbuffer holds values a user has typed in the progress editor but
// not yet saved. Buffers are per session and expire with it.
package editbuffer

import (
	"strings"
	"sync"
	"time"

	"seguimiento/internal/cache"
	"seguimiento/internal/core"
)

type Field string

const (
	FieldMonthly     Field = "avance"
	FieldOverall     Field = "avanceGeneral"
	FieldObservation Field = "observacion"
)

// Entry is one pending edit.
type Entry struct {
	Field    Field  `json:"campo"`
	Project  string `json:"proyecto"`
	Activity string `json:"actividad"`
	Month    string `json:"mes,omitempty"`
	Value    string `json:"valor"`
}

// Key identifies an entry: project_activity_month for monthly values,
// project_activity for overall progress and project_activity_obs for
// observations.
func (e Entry) Key() string {
	base := e.Project + "_" + e.Activity
	switch e.Field {
	case FieldMonthly:
		return base + "_" + strings.ToLower(e.Month)
	case FieldObservation:
		return base + "_obs"
	default:
		return base
	}
}

// Validate checks the entry names a project, an activity and, for monthly
// values, a real month.
func (e Entry) Validate() error {
	if strings.TrimSpace(e.Project) == "" {
		return core.ErrEmptyProject
	}
	if strings.TrimSpace(e.Activity) == "" {
		return core.ErrEmptyActivity
	}
	switch e.Field {
	case FieldMonthly:
		if _, err := core.ParseMonth(e.Month); err != nil {
			return err
		}
	case FieldOverall, FieldObservation:
	default:
		return ErrUnknownField
	}
	return nil
}

type entries map[string]Entry

// Buffer maps session tokens to their pending entries.
type Buffer struct {
	mu       sync.Mutex
	sessions *cache.LRUCache[entries]
}

const maxSessions = 10000

func New(ttl time.Duration) *Buffer {
	return &Buffer{sessions: cache.NewLRUCache[entries](maxSessions, ttl)}
}

// Cache exposes the backing cache so a cache.Manager can sweep it.
func (b *Buffer) Cache() *cache.LRUCache[entries] { return b.sessions }

// Stage records e for session, replacing any pending value under the same key.
func (b *Buffer) Stage(session string, e Entry) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	if e.Field == FieldMonthly {
		e.Month = strings.ToLower(strings.TrimSpace(e.Month))
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	next := b.copyOf(session)
	key := e.Key()
	next[key] = e
	b.sessions.Set(session, next)
	return key, nil
}

// Get returns the pending entry stored under key.
func (b *Buffer) Get(session, key string) (Entry, bool) {
	cur, ok := b.sessions.Get(session)
	if !ok {
		return Entry{}, false
	}
	e, ok := cur[key]
	return e, ok
}

// Clear drops one entry, typically after it was saved.
func (b *Buffer) Clear(session, key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	next := b.copyOf(session)
	if _, ok := next[key]; !ok {
		return
	}
	delete(next, key)
	if len(next) == 0 {
		b.sessions.Delete(session)
		return
	}
	b.sessions.Set(session, next)
}

// Discard drops every pending entry of session and returns how many there were.
func (b *Buffer) Discard(session string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	cur, ok := b.sessions.Get(session)
	if !ok {
		return 0
	}
	b.sessions.Delete(session)
	return len(cur)
}

// Pending lists the entries of session keyed by entry key.
func (b *Buffer) Pending(session string) map[string]Entry {
	cur, _ := b.sessions.Get(session)
	out := make(map[string]Entry, len(cur))
	for k, v := range cur {
		out[k] = v
	}
	return out
}

// copyOf returns a private copy of the session's entries; stored maps are
// never mutated in place. Caller holds b.mu.
func (b *Buffer) copyOf(session string) entries {
	cur, _ := b.sessions.Get(session)
	next := make(entries, len(cur)+1)
	for k, v := range cur {
		next[k] = v
	}
	return next
}
