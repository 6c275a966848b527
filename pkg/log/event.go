package log

import (
	"time"
)

// MaxCapturedPayload bounds how much of a frame payload is stored per
// event. Full mso snapshots run to hundreds of kilobytes; the capture
// keeps the head and marks the event truncated.
const MaxCapturedPayload = 4096

// Event represents a protocol log event.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID uniquely identifies one websocket session (UUID).
	ConnectionID string `cbor:"2,keyasint"`

	// Direction indicates message flow.
	Direction Direction `cbor:"3,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"4,keyasint"`

	// Host is the device host the session talks to.
	Host string `cbor:"5,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Frame       *FrameEvent       `cbor:"6,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"7,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"8,keyasint,omitempty"`
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	// DirectionIn indicates an incoming message.
	DirectionIn Direction = 0
	// DirectionOut indicates an outgoing message.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryFrame indicates a protocol text frame.
	CategoryFrame Category = 0
	// CategoryState indicates a connection state change.
	CategoryState Category = 1
	// CategoryError indicates an error event.
	CategoryError Category = 2
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryFrame:
		return "FRAME"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent captures one text frame on the control websocket.
type FrameEvent struct {
	// Command is the frame's command verb (mso, msoupdate, ...).
	Command string `cbor:"1,keyasint"`

	// Size is the full payload size in bytes.
	Size int `cbor:"2,keyasint"`

	// Payload is the frame payload (may be truncated for large frames).
	Payload []byte `cbor:"3,keyasint,omitempty"`

	// Truncated indicates if Payload was truncated.
	Truncated bool `cbor:"4,keyasint,omitempty"`
}

// StateChangeEvent captures connection lifecycle transitions.
type StateChangeEvent struct {
	// OldState is the previous state (may be empty).
	OldState string `cbor:"1,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"2,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"3,keyasint,omitempty"`
}

// ErrorEventData captures an error at any layer.
type ErrorEventData struct {
	// Message is the error text.
	Message string `cbor:"1,keyasint"`

	// Context describes what was being done.
	Context string `cbor:"2,keyasint,omitempty"`
}

// NewFrameEvent builds a frame event, truncating oversized payloads.
func NewFrameEvent(connID string, dir Direction, command, payload string) Event {
	frame := &FrameEvent{
		Command: command,
		Size:    len(payload),
	}
	if len(payload) > MaxCapturedPayload {
		frame.Payload = []byte(payload[:MaxCapturedPayload])
		frame.Truncated = true
	} else if payload != "" {
		frame.Payload = []byte(payload)
	}

	return Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Direction:    dir,
		Category:     CategoryFrame,
		Frame:        frame,
	}
}

// NewStateChangeEvent builds a connection state change event.
func NewStateChangeEvent(connID, oldState, newState, reason string) Event {
	return Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Category:     CategoryState,
		StateChange: &StateChangeEvent{
			OldState: oldState,
			NewState: newState,
			Reason:   reason,
		},
	}
}

// NewErrorEvent builds an error event.
func NewErrorEvent(connID string, err error, context string) Event {
	return Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Category:     CategoryError,
		Error: &ErrorEventData{
			Message: err.Error(),
			Context: context,
		},
	}
}
