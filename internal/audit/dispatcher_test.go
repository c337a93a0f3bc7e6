package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/MrEthical07/pmsGuard/internal/ids"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestDispatcherDeliversAndStampsEvents(t *testing.T) {
	sink := NewChannelSink(4)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 4}, sink)
	defer d.Close()

	d.Emit(context.Background(), Event{EventType: "gate_internal", Success: false, Reason: "forbidden"})

	select {
	case ev := <-sink.Events():
		if ev.ID == "" || len(ev.ID) != 26 {
			t.Fatalf("expected ULID id, got %q", ev.ID)
		}
		if ev.Timestamp.IsZero() {
			t.Fatal("expected timestamp to be stamped")
		}
		if ev.EventType != "gate_internal" || ev.Reason != "forbidden" {
			t.Fatalf("unexpected event %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestDispatcherStampsWithConfiguredClock(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sink := NewChannelSink(1)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, Now: func() time.Time { return at }}, sink)

	meta := map[string]string{"request_id": "req-1"}
	d.Emit(context.Background(), Event{EventType: "login_success", Success: true, Metadata: meta})
	meta["request_id"] = "changed"
	d.Close()

	ev := <-sink.Events()
	if !ev.Timestamp.Equal(at) {
		t.Fatalf("timestamp %v, want %v", ev.Timestamp, at)
	}
	if ev.ID[:10] != ids.At(at)[:10] {
		t.Fatalf("id %q does not carry the event time", ev.ID)
	}
	if ev.Metadata["request_id"] != "req-1" {
		t.Fatalf("metadata shared with caller: %v", ev.Metadata)
	}
	if d.Delivered() != 1 {
		t.Fatalf("delivered %d, want 1", d.Delivered())
	}
}

func TestDispatcherKeepsCallerStamp(t *testing.T) {
	sink := NewChannelSink(1)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1}, sink)
	at := time.Unix(1_700_000_000, 0).UTC()
	d.Emit(context.Background(), Event{ID: "fixed", Timestamp: at, EventType: "x"})
	d.Close()

	ev := <-sink.Events()
	if ev.ID != "fixed" || !ev.Timestamp.Equal(at) {
		t.Fatalf("caller stamp overwritten: %+v", ev)
	}
}

func TestDispatcherBlockingEmitGivesUpWithContext(t *testing.T) {
	sink := blockingSink{release: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1}, sink)

	// one event held by the sink, one filling the buffer
	d.Emit(context.Background(), Event{EventType: "x"})
	d.Emit(context.Background(), Event{EventType: "x"})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	d.Emit(ctx, Event{EventType: "x"})
	if d.Dropped() != 1 {
		t.Fatalf("dropped %d, want 1", d.Dropped())
	}
	close(sink.release)
	d.Close()
}

type blockingSink struct {
	release chan struct{}
}

func (s blockingSink) Emit(context.Context, Event) { <-s.release }

func TestDispatcherDropsWhenFull(t *testing.T) {
	sink := blockingSink{release: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), Event{EventType: "x"})
	}
	if d.Dropped() == 0 {
		t.Fatal("expected dropped events with a blocked sink")
	}
	close(sink.release)
	d.Close()
}

func TestDisabledDispatcherIsNil(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, NoOpSink{})
	if d != nil {
		t.Fatal("expected nil dispatcher when disabled")
	}
	d.Emit(context.Background(), Event{})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher must report zero drops")
	}
}

func TestJSONWriterSinkWritesLines(t *testing.T) {
	var buf bytes.Buffer
	NewJSONWriterSink(&buf).Emit(context.Background(), Event{ID: "01", EventType: "login_success", Success: true})

	var decoded Event
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &decoded); err != nil {
		t.Fatalf("invalid json line: %v", err)
	}
	if decoded.EventType != "login_success" || !decoded.Success {
		t.Fatalf("unexpected decoded event %+v", decoded)
	}
}

func TestZapSinkLogsRejectionsAtWarn(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	sink := NewZapSink(zap.New(core))

	sink.Emit(context.Background(), Event{EventType: "gate_external", Boundary: "external", Reason: "unauthorized"})
	sink.Emit(context.Background(), Event{EventType: "login_success", Success: true, PrincipalID: "u1"})

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Level != zapcore.WarnLevel || entries[1].Level != zapcore.InfoLevel {
		t.Fatalf("unexpected levels %v / %v", entries[0].Level, entries[1].Level)
	}
}
