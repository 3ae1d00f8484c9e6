package activity

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"seguimiento/internal/log"
)

type entry struct{ email, action, description string }

type fakeSink struct {
	mu      sync.Mutex
	entries []entry
	err     error
	block   chan struct{}
}

func (f *fakeSink) add(ctx context.Context, email, action, description string) error {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry{email, action, description})
	return f.err
}

func (f *fakeSink) RecordActivity(ctx context.Context, email, action, description string) error {
	return f.add(ctx, email, action, description)
}

func (f *fakeSink) PublishActivity(ctx context.Context, email, action, description string) error {
	return f.add(ctx, email, action, description)
}

func (f *fakeSink) all() []entry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]entry(nil), f.entries...)
}

func quiet() *log.Logger {
	return log.New(log.Config{Handler: slog.NewTextHandler(io.Discard, nil)})
}

func TestRecordWritesDirectly(t *testing.T) {
	w := &fakeSink{}
	r := NewRecorder(w, WithLogger(quiet()))
	r.Record(context.Background(), " a@b.co ", ActionLogin, "Inicio de sesión")
	r.Wait()
	got := w.all()
	if len(got) != 1 || got[0].email != "a@b.co" || got[0].action != ActionLogin {
		t.Fatalf("entries = %+v", got)
	}
}

func TestRecordPrefersPublisher(t *testing.T) {
	w, p := &fakeSink{}, &fakeSink{}
	r := NewRecorder(w, WithPublisher(p), WithLogger(quiet()))
	r.Record(context.Background(), "a@b.co", ActionLogout, "")
	r.Wait()
	if len(w.all()) != 0 || len(p.all()) != 1 {
		t.Fatalf("writer=%v publisher=%v", w.all(), p.all())
	}
}

func TestRecordSkipsAnonymous(t *testing.T) {
	w := &fakeSink{}
	r := NewRecorder(w, WithLogger(quiet()))
	r.Record(context.Background(), "  ", ActionDashboardAccess, "")
	r.Wait()
	if len(w.all()) != 0 {
		t.Fatalf("anonymous entry recorded")
	}
	var nilRecorder *Recorder
	nilRecorder.Record(context.Background(), "a@b.co", ActionLogin, "")
}

func TestRecordSurvivesCancelledRequest(t *testing.T) {
	w := &fakeSink{}
	r := NewRecorder(w, WithLogger(quiet()))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r.Record(ctx, "a@b.co", ActionLogin, "")
	r.Wait()
	if len(w.all()) != 1 {
		t.Fatalf("write should not inherit request cancellation")
	}
}

func TestRecordFailureIsSwallowed(t *testing.T) {
	w := &fakeSink{err: errors.New("remote down")}
	r := NewRecorder(w, WithLogger(quiet()))
	r.Record(context.Background(), "a@b.co", ActionLogin, "")
	r.Wait()
}

func TestRecordTimeout(t *testing.T) {
	w := &fakeSink{block: make(chan struct{})}
	r := NewRecorder(w, WithTimeout(10*time.Millisecond), WithLogger(quiet()))
	r.Record(context.Background(), "a@b.co", ActionLogin, "")
	r.Wait()
	if len(w.all()) != 0 {
		t.Fatalf("timed out write should not be stored")
	}
}
