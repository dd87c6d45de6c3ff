package events

import (
	"encoding/json"
	"errors"

	"github.com/agentwire/go-sdk/pkg/core"
)

// TextMessageStartEvent indicates the start of a streaming text message
type TextMessageStartEvent struct {
	*BaseEvent
	MessageID string  `json:"messageId"`
	Role      *string `json:"role,omitempty"`
}

// NewTextMessageStartEvent creates a new text message start event
func NewTextMessageStartEvent(messageID string, options ...TextMessageStartOption) *TextMessageStartEvent {
	event := &TextMessageStartEvent{
		BaseEvent: NewBaseEvent(EventTypeTextMessageStart),
		MessageID: messageID,
	}

	for _, opt := range options {
		opt(event)
	}

	return event
}

// TextMessageStartOption defines options for creating text message start events
type TextMessageStartOption func(*TextMessageStartEvent)

// WithRole sets the role for the message
func WithRole(role string) TextMessageStartOption {
	return func(e *TextMessageStartEvent) {
		e.Role = &role
	}
}

// WithAutoMessageID automatically generates a unique message ID if the provided messageID is empty
func WithAutoMessageID() TextMessageStartOption {
	return func(e *TextMessageStartEvent) {
		if e.MessageID == "" {
			e.MessageID = core.GenerateMessageID()
		}
	}
}

// Validate validates the text message start event
func (e *TextMessageStartEvent) Validate() error {
	if err := e.BaseEvent.Validate(); err != nil {
		return err
	}

	if e.MessageID == "" {
		return core.NewValidationError("TextMessageStartEvent", "messageId", errors.New("field is required"))
	}

	return nil
}

// ToJSON serializes the event to JSON
func (e *TextMessageStartEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TextMessageContentEvent contains a piece of streaming text message content
type TextMessageContentEvent struct {
	*BaseEvent
	MessageID string `json:"messageId"`
	Delta     string `json:"delta"`
}

// NewTextMessageContentEvent creates a new text message content event
func NewTextMessageContentEvent(messageID, delta string) *TextMessageContentEvent {
	return &TextMessageContentEvent{
		BaseEvent: NewBaseEvent(EventTypeTextMessageContent),
		MessageID: messageID,
		Delta:     delta,
	}
}

// Validate validates the text message content event
func (e *TextMessageContentEvent) Validate() error {
	if err := e.BaseEvent.Validate(); err != nil {
		return err
	}

	if e.MessageID == "" {
		return core.NewValidationError("TextMessageContentEvent", "messageId", errors.New("field is required"))
	}

	if e.Delta == "" {
		return core.NewValidationError("TextMessageContentEvent", "delta", errors.New("field must not be empty"))
	}

	return nil
}

// ToJSON serializes the event to JSON
func (e *TextMessageContentEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TextMessageEndEvent indicates the end of a streaming text message
type TextMessageEndEvent struct {
	*BaseEvent
	MessageID string `json:"messageId"`
}

// NewTextMessageEndEvent creates a new text message end event
func NewTextMessageEndEvent(messageID string) *TextMessageEndEvent {
	return &TextMessageEndEvent{
		BaseEvent: NewBaseEvent(EventTypeTextMessageEnd),
		MessageID: messageID,
	}
}

// Validate validates the text message end event
func (e *TextMessageEndEvent) Validate() error {
	if err := e.BaseEvent.Validate(); err != nil {
		return err
	}

	if e.MessageID == "" {
		return core.NewValidationError("TextMessageEndEvent", "messageId", errors.New("field is required"))
	}

	return nil
}

// ToJSON serializes the event to JSON
func (e *TextMessageEndEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TextMessageChunkEvent is a self-contained piece of text message content.
// Producers that cannot bracket their output with explicit start/end events
// emit chunks instead; the chunk transform expands them into the canonical
// TEXT_MESSAGE_START / TEXT_MESSAGE_CONTENT sequence.
type TextMessageChunkEvent struct {
	*BaseEvent
	MessageID *string `json:"messageId,omitempty"`
	Role      *string `json:"role,omitempty"`
	Delta     *string `json:"delta,omitempty"`
}

// NewTextMessageChunkEvent creates a new text message chunk event
func NewTextMessageChunkEvent(options ...TextMessageChunkOption) *TextMessageChunkEvent {
	event := &TextMessageChunkEvent{
		BaseEvent: NewBaseEvent(EventTypeTextMessageChunk),
	}

	for _, opt := range options {
		opt(event)
	}

	return event
}

// TextMessageChunkOption defines options for creating text message chunk events
type TextMessageChunkOption func(*TextMessageChunkEvent)

// WithChunkMessageID sets the message ID for the chunk
func WithChunkMessageID(messageID string) TextMessageChunkOption {
	return func(e *TextMessageChunkEvent) {
		e.MessageID = &messageID
	}
}

// WithChunkRole sets the role for the chunk
func WithChunkRole(role string) TextMessageChunkOption {
	return func(e *TextMessageChunkEvent) {
		e.Role = &role
	}
}

// WithChunkDelta sets the content delta for the chunk
func WithChunkDelta(delta string) TextMessageChunkOption {
	return func(e *TextMessageChunkEvent) {
		e.Delta = &delta
	}
}

// Validate validates the text message chunk event. All fields are optional;
// only the base event is checked.
func (e *TextMessageChunkEvent) Validate() error {
	return e.BaseEvent.Validate()
}

// ToJSON serializes the event to JSON
func (e *TextMessageChunkEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}
