package log

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMiddlewareChainEnrichesLogger(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Output: &buf})

	var got *Logger
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
		got.InfoContext(r.Context(), "handled")
	})
	h := Middleware(base, ComponentHTTP, func(*http.Request) []any {
		return []any{FieldRequestID, "req_42"}
	})(final)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/proyectos", nil))

	if got == nil || got.Component() != ComponentHTTP {
		t.Fatalf("logger in context = %+v", got)
	}
	out := buf.String()
	if !strings.Contains(out, "component=http") || !strings.Contains(out, "request_id=req_42") {
		t.Fatalf("record = %q", out)
	}
}

func TestFromContextFallsBack(t *testing.T) {
	if l := FromContext(context.Background()); l == nil || l.Component() != "unknown" {
		t.Fatalf("fallback logger = %+v", l)
	}
}

func TestWithAttrs(t *testing.T) {
	var buf bytes.Buffer
	ctx := NewContext(context.Background(), New(Config{Output: &buf, Component: ComponentSession}))
	ctx = WithAttrs(ctx, FieldEmail, "ana@ungrd.gov.co")

	FromContext(ctx).InfoContext(ctx, "resolved")
	if out := buf.String(); !strings.Contains(out, "email=ana@ungrd.gov.co") || !strings.Contains(out, "component=session") {
		t.Fatalf("record = %q", out)
	}
}

func TestLogGatewayCallLevels(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Output: &buf}))

	sl.LogGatewayCall(context.Background(), "getDatos", 12, nil)
	if buf.Len() != 0 {
		t.Fatalf("successful call logged at info: %q", buf.String())
	}
	sl.LogGatewayCall(context.Background(), "getDatos", 12, context.DeadlineExceeded)
	if !strings.Contains(buf.String(), "level=WARN") || !strings.Contains(buf.String(), "getDatos") {
		t.Fatalf("failed call record = %q", buf.String())
	}
}
