package events

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) Emit(_ context.Context, event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *recordingSink) snapshot() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

func TestDispatcherDeliversAndDrains(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 16}, sink)

	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), Event{EventType: "SESSION_CREATED"})
	}
	d.Close()

	if got := len(sink.snapshot()); got != 10 {
		t.Fatalf("expected 10 delivered events, got %d", got)
	}
	if d.Dropped() != 0 {
		t.Fatalf("expected no drops, got %d", d.Dropped())
	}
}

func TestDispatcherDisabledReturnsNil(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, &recordingSink{})
	if d != nil {
		t.Fatal("expected nil dispatcher when disabled")
	}

	// Nil receivers must be safe.
	d.Emit(context.Background(), Event{})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("expected zero drops on nil dispatcher")
	}
}

type blockingSink struct {
	release chan struct{}
}

func (s *blockingSink) Emit(context.Context, Event) {
	<-s.release
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	// First event occupies the worker, second fills the buffer, the
	// rest must be dropped.
	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), Event{EventType: "LOGIN_FAILURE"})
	}

	deadline := time.After(2 * time.Second)
	for d.Dropped() == 0 {
		select {
		case <-deadline:
			t.Fatal("expected dropped events")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	close(sink.release)
	d.Close()
}

func TestJSONWriterSinkWritesLines(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	sink.Emit(context.Background(), Event{EventID: "e1", EventType: "SESSION_REVOKED", UserID: "user-1"})
	sink.Emit(context.Background(), Event{EventID: "e2", EventType: "SESSION_CREATED", UserID: "user-1"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}

	var event Event
	if err := json.Unmarshal([]byte(lines[0]), &event); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if event.EventType != "SESSION_REVOKED" || event.UserID != "user-1" {
		t.Fatalf("unexpected event: %+v", event)
	}
}

func TestChannelSinkDelivers(t *testing.T) {
	sink := NewChannelSink(4)
	sink.Emit(context.Background(), Event{EventType: "DEVICE_CHANGE"})

	select {
	case event := <-sink.Events():
		if event.EventType != "DEVICE_CHANGE" {
			t.Fatalf("unexpected event type %q", event.EventType)
		}
	case <-time.After(time.Second):
		t.Fatal("expected event on channel")
	}
}

func TestMultiSinkFansOut(t *testing.T) {
	a := &recordingSink{}
	b := &recordingSink{}
	multi := NewMultiSink(a, nil, b)

	multi.Emit(context.Background(), Event{EventType: "SESSION_EXPIRED"})

	if len(a.snapshot()) != 1 || len(b.snapshot()) != 1 {
		t.Fatal("expected both sinks to receive the event")
	}
}
