package log

import (
	"bytes"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestEventRoundtrip(t *testing.T) {
	event := NewFrameEvent("conn-1", DirectionIn, "msoupdate", `{"op":"replace","path":"/volume","value":-10}`)
	event.Host = "htp1.local"

	data, err := EncodeEvent(event)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}

	decoded, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}

	if decoded.ConnectionID != "conn-1" {
		t.Errorf("ConnectionID = %q, want conn-1", decoded.ConnectionID)
	}
	if decoded.Host != "htp1.local" {
		t.Errorf("Host = %q, want htp1.local", decoded.Host)
	}
	if decoded.Frame == nil || decoded.Frame.Command != "msoupdate" {
		t.Fatalf("Frame = %+v, want msoupdate", decoded.Frame)
	}
	if decoded.Frame.Truncated {
		t.Error("small payload should not be truncated")
	}
	if !strings.Contains(string(decoded.Frame.Payload), "/volume") {
		t.Errorf("payload lost: %q", decoded.Frame.Payload)
	}
}

func TestFramePayloadTruncation(t *testing.T) {
	big := strings.Repeat("x", MaxCapturedPayload+100)
	event := NewFrameEvent("conn-1", DirectionIn, "mso", big)

	if !event.Frame.Truncated {
		t.Error("oversized payload should be truncated")
	}
	if len(event.Frame.Payload) != MaxCapturedPayload {
		t.Errorf("captured payload length = %d, want %d", len(event.Frame.Payload), MaxCapturedPayload)
	}
	if event.Frame.Size != len(big) {
		t.Errorf("Size = %d, want %d (original size)", event.Frame.Size, len(big))
	}
}

func TestFileLoggerAndReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.hlog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}

	logger.Log(NewFrameEvent("conn-1", DirectionOut, "getmso", ""))
	logger.Log(NewFrameEvent("conn-1", DirectionIn, "mso", "{}"))
	logger.Log(NewStateChangeEvent("conn-1", "connecting", "ready", ""))
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// Closed logger drops events silently.
	logger.Log(NewFrameEvent("conn-1", DirectionIn, "msoupdate", "[]"))

	reader, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer reader.Close()

	var events []Event
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		events = append(events, event)
	}

	if len(events) != 3 {
		t.Fatalf("read %d events, want 3", len(events))
	}
	if events[0].Frame == nil || events[0].Frame.Command != "getmso" {
		t.Errorf("event 0 = %+v, want getmso frame", events[0])
	}
	if events[2].StateChange == nil || events[2].StateChange.NewState != "ready" {
		t.Errorf("event 2 = %+v, want state change to ready", events[2])
	}
}

func TestFilteredReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.hlog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	logger.Log(NewFrameEvent("conn-1", DirectionOut, "getmso", ""))
	logger.Log(NewFrameEvent("conn-1", DirectionIn, "mso", "{}"))
	logger.Log(NewFrameEvent("conn-1", DirectionIn, "msoupdate", "[]"))
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	dir := DirectionIn
	reader, err := NewFilteredReader(path, Filter{Direction: &dir, Command: "msoupdate"})
	if err != nil {
		t.Fatalf("NewFilteredReader failed: %v", err)
	}
	defer reader.Close()

	event, err := reader.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if event.Frame == nil || event.Frame.Command != "msoupdate" {
		t.Errorf("event = %+v, want msoupdate", event)
	}

	if _, err := reader.Next(); err != io.EOF {
		t.Errorf("expected EOF, got %v", err)
	}
}

func TestMultiLogger(t *testing.T) {
	var a, b countingLogger
	multi := NewMultiLogger(&a, &b)

	multi.Log(NewStateChangeEvent("conn-1", "", "connecting", ""))
	multi.Log(NewStateChangeEvent("conn-1", "connecting", "ready", ""))

	if a.count != 2 || b.count != 2 {
		t.Errorf("counts = %d/%d, want 2/2", a.count, b.count)
	}
}

type countingLogger struct {
	count int
}

func (l *countingLogger) Log(Event) { l.count++ }

func TestSlogAdapter(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	adapter := NewSlogAdapter(logger)
	adapter.Log(NewFrameEvent("conn-1", DirectionIn, "mso", "{}"))

	out := buf.String()
	for _, want := range []string{"protocol", "conn-1", "mso", "IN"} {
		if !strings.Contains(out, want) {
			t.Errorf("slog output missing %q: %s", want, out)
		}
	}
}

func TestEventTimestamps(t *testing.T) {
	before := time.Now().Add(-time.Second)
	event := NewFrameEvent("conn-1", DirectionIn, "mso", "{}")
	if event.Timestamp.Before(before) {
		t.Error("timestamp not set")
	}
}
