package events

import (
	"errors"
	"fmt"
	"time"

	"github.com/agentwire/go-sdk/pkg/core"
)

// EventType represents the type of an AgentWire event.
type EventType string

// Event type constants for every wire event the protocol defines.
const (
	EventTypeTextMessageStart           EventType = "TEXT_MESSAGE_START"
	EventTypeTextMessageContent         EventType = "TEXT_MESSAGE_CONTENT"
	EventTypeTextMessageEnd             EventType = "TEXT_MESSAGE_END"
	EventTypeTextMessageChunk           EventType = "TEXT_MESSAGE_CHUNK"
	EventTypeToolCallStart              EventType = "TOOL_CALL_START"
	EventTypeToolCallArgs               EventType = "TOOL_CALL_ARGS"
	EventTypeToolCallEnd                EventType = "TOOL_CALL_END"
	EventTypeToolCallChunk              EventType = "TOOL_CALL_CHUNK"
	EventTypeToolCallResult             EventType = "TOOL_CALL_RESULT"
	EventTypeStateSnapshot              EventType = "STATE_SNAPSHOT"
	EventTypeStateDelta                 EventType = "STATE_DELTA"
	EventTypeMessagesSnapshot           EventType = "MESSAGES_SNAPSHOT"
	EventTypeActivitySnapshot           EventType = "ACTIVITY_SNAPSHOT"
	EventTypeActivityDelta              EventType = "ACTIVITY_DELTA"
	EventTypeThinkingStart              EventType = "THINKING_START"
	EventTypeThinkingEnd                EventType = "THINKING_END"
	EventTypeThinkingTextMessageStart   EventType = "THINKING_TEXT_MESSAGE_START"
	EventTypeThinkingTextMessageContent EventType = "THINKING_TEXT_MESSAGE_CONTENT"
	EventTypeThinkingTextMessageEnd     EventType = "THINKING_TEXT_MESSAGE_END"
	EventTypeRaw                        EventType = "RAW"
	EventTypeCustom                     EventType = "CUSTOM"
	EventTypeRunStarted                 EventType = "RUN_STARTED"
	EventTypeRunFinished                EventType = "RUN_FINISHED"
	EventTypeRunError                   EventType = "RUN_ERROR"
	EventTypeStepStarted                EventType = "STEP_STARTED"
	EventTypeStepFinished               EventType = "STEP_FINISHED"

	// EventTypeUnknown represents an unrecognized event type
	EventTypeUnknown EventType = "UNKNOWN"
)

// validEventTypes is a map for O(1) lookup of valid event types
var validEventTypes = map[EventType]bool{
	EventTypeTextMessageStart:           true,
	EventTypeTextMessageContent:         true,
	EventTypeTextMessageEnd:             true,
	EventTypeTextMessageChunk:           true,
	EventTypeToolCallStart:              true,
	EventTypeToolCallArgs:               true,
	EventTypeToolCallEnd:                true,
	EventTypeToolCallChunk:              true,
	EventTypeToolCallResult:             true,
	EventTypeStateSnapshot:              true,
	EventTypeStateDelta:                 true,
	EventTypeMessagesSnapshot:           true,
	EventTypeActivitySnapshot:           true,
	EventTypeActivityDelta:              true,
	EventTypeThinkingStart:              true,
	EventTypeThinkingEnd:                true,
	EventTypeThinkingTextMessageStart:   true,
	EventTypeThinkingTextMessageContent: true,
	EventTypeThinkingTextMessageEnd:     true,
	EventTypeRaw:                        true,
	EventTypeCustom:                     true,
	EventTypeRunStarted:                 true,
	EventTypeRunFinished:                true,
	EventTypeRunError:                   true,
	EventTypeStepStarted:                true,
	EventTypeStepFinished:               true,
}

// AllEventTypes returns every valid event type. The slice is freshly
// allocated on each call.
func AllEventTypes() []EventType {
	out := make([]EventType, 0, len(validEventTypes))
	for t := range validEventTypes {
		out = append(out, t)
	}
	return out
}

// Event defines the common interface for all AgentWire events
type Event interface {
	// Type returns the event type
	Type() EventType

	// Timestamp returns the event timestamp (Unix milliseconds)
	Timestamp() *int64

	// SetTimestamp sets the event timestamp
	SetTimestamp(timestamp int64)

	// Validate validates the event structure and content
	Validate() error

	// ToJSON serializes the event to JSON for cross-SDK compatibility
	ToJSON() ([]byte, error)

	// GetBaseEvent returns the underlying base event
	GetBaseEvent() *BaseEvent
}

// BaseEvent provides common fields and functionality for all events
type BaseEvent struct {
	EventType   EventType `json:"type"`
	TimestampMs *int64    `json:"timestamp,omitempty"`
	RawEvent    any       `json:"rawEvent,omitempty"`
}

// Type returns the event type
func (b *BaseEvent) Type() EventType {
	return b.EventType
}

// Timestamp returns the event timestamp
func (b *BaseEvent) Timestamp() *int64 {
	return b.TimestampMs
}

// SetTimestamp sets the event timestamp
func (b *BaseEvent) SetTimestamp(timestamp int64) {
	b.TimestampMs = &timestamp
}

// GetBaseEvent returns the base event
func (b *BaseEvent) GetBaseEvent() *BaseEvent {
	return b
}

// NewBaseEvent creates a new base event with the given type and current timestamp
func NewBaseEvent(eventType EventType) *BaseEvent {
	now := time.Now().UnixMilli()
	return &BaseEvent{
		EventType:   eventType,
		TimestampMs: &now,
	}
}

// Validate validates the base event structure
func (b *BaseEvent) Validate() error {
	if b.EventType == "" {
		return core.NewValidationError("BaseEvent", "type", errors.New("field is required"))
	}

	if !isValidEventType(b.EventType) {
		return core.NewValidationError("BaseEvent", "type", fmt.Errorf("invalid event type '%s'", b.EventType))
	}

	return nil
}

// isValidEventType checks if the given event type is valid
func isValidEventType(eventType EventType) bool {
	return validEventTypes[eventType]
}
