package amqp

import (
	"context"
	"errors"
	"testing"

	"github.com/rabbitmq/amqp091-go"
)

type fakeAck struct {
	acked, nacked, requeued bool
}

func (f *fakeAck) Ack(bool) error { f.acked = true; return nil }
func (f *fakeAck) Nack(_ bool, requeue bool) error {
	f.nacked = true
	f.requeued = requeue
	return nil
}

func TestActivityMessageRoundTrip(t *testing.T) {
	msg := NewActivityMessage(" a@b.co ", "login", "Inicio de sesión")
	if msg.ID == "" || msg.Email != "a@b.co" || msg.Timestamp.IsZero() {
		t.Fatalf("message = %+v", msg)
	}
	body, err := msg.ToJSON()
	if err != nil {
		t.Fatal(err)
	}
	got, err := ActivityMessageFromJSON(body)
	if err != nil || got.ID != msg.ID || got.Action != "login" {
		t.Fatalf("decoded = %+v, %v", got, err)
	}
}

func TestActivityMessageFromJSONRejects(t *testing.T) {
	for _, body := range []string{`{`, `{"id":"x","accion":"login"}`} {
		if _, err := ActivityMessageFromJSON([]byte(body)); err == nil {
			t.Fatalf("expected error for %s", body)
		}
	}
}

func TestHandleDelivery(t *testing.T) {
	ok := func(context.Context, *ActivityMessage) error { return nil }
	fail := func(context.Context, *ActivityMessage) error { return errors.New("remote down") }
	valid, _ := NewActivityMessage("a@b.co", "logout", "").ToJSON()

	tests := []struct {
		name    string
		body    []byte
		handler func(context.Context, *ActivityMessage) error
		acked   bool
	}{
		{"success acks", valid, ok, true},
		{"handler failure drops", valid, fail, false},
		{"malformed drops", []byte("nope"), ok, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &fakeAck{}
			handleDelivery(context.Background(), tt.body, a, tt.handler)
			if a.acked != tt.acked || a.nacked == tt.acked {
				t.Fatalf("ack state = %+v", a)
			}
			if a.requeued {
				t.Fatalf("failed messages must not be requeued")
			}
		})
	}
}

func TestConsumeStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	msgs := make(chan amqp091.Delivery)
	if err := consume(ctx, msgs, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	closed := make(chan amqp091.Delivery)
	close(closed)
	if err := consume(context.Background(), closed, nil); err == nil {
		t.Fatalf("expected error on closed channel")
	}
}
