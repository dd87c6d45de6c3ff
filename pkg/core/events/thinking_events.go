package events

import (
	"encoding/json"
	"errors"

	"github.com/agentwire/go-sdk/pkg/core"
)

// ThinkingStartEvent indicates the start of a thinking step.
type ThinkingStartEvent struct {
	*BaseEvent
	Title *string `json:"title,omitempty"`
}

// NewThinkingStartEvent creates a new thinking start event
func NewThinkingStartEvent(options ...ThinkingStartOption) *ThinkingStartEvent {
	event := &ThinkingStartEvent{
		BaseEvent: NewBaseEvent(EventTypeThinkingStart),
	}

	for _, opt := range options {
		opt(event)
	}

	return event
}

// ThinkingStartOption defines options for creating thinking start events
type ThinkingStartOption func(*ThinkingStartEvent)

// WithTitle sets the display title of the thinking step
func WithTitle(title string) ThinkingStartOption {
	return func(e *ThinkingStartEvent) {
		e.Title = &title
	}
}

// Validate validates the thinking start event
func (e *ThinkingStartEvent) Validate() error {
	return e.BaseEvent.Validate()
}

// ToJSON serializes the event to JSON
func (e *ThinkingStartEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ThinkingEndEvent indicates the end of a thinking step.
type ThinkingEndEvent struct {
	*BaseEvent
}

// NewThinkingEndEvent creates a new thinking end event
func NewThinkingEndEvent() *ThinkingEndEvent {
	return &ThinkingEndEvent{
		BaseEvent: NewBaseEvent(EventTypeThinkingEnd),
	}
}

// Validate validates the thinking end event
func (e *ThinkingEndEvent) Validate() error {
	return e.BaseEvent.Validate()
}

// ToJSON serializes the event to JSON
func (e *ThinkingEndEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ThinkingTextMessageStartEvent indicates the start of a streaming thinking
// text message. Only legal while a thinking step is active.
type ThinkingTextMessageStartEvent struct {
	*BaseEvent
}

// NewThinkingTextMessageStartEvent creates a new thinking text message start event
func NewThinkingTextMessageStartEvent() *ThinkingTextMessageStartEvent {
	return &ThinkingTextMessageStartEvent{
		BaseEvent: NewBaseEvent(EventTypeThinkingTextMessageStart),
	}
}

// Validate validates the thinking text message start event
func (e *ThinkingTextMessageStartEvent) Validate() error {
	return e.BaseEvent.Validate()
}

// ToJSON serializes the event to JSON
func (e *ThinkingTextMessageStartEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ThinkingTextMessageContentEvent contains a piece of streaming thinking text.
type ThinkingTextMessageContentEvent struct {
	*BaseEvent
	Delta string `json:"delta"`
}

// NewThinkingTextMessageContentEvent creates a new thinking text message content event
func NewThinkingTextMessageContentEvent(delta string) *ThinkingTextMessageContentEvent {
	return &ThinkingTextMessageContentEvent{
		BaseEvent: NewBaseEvent(EventTypeThinkingTextMessageContent),
		Delta:     delta,
	}
}

// Validate validates the thinking text message content event
func (e *ThinkingTextMessageContentEvent) Validate() error {
	if err := e.BaseEvent.Validate(); err != nil {
		return err
	}

	if e.Delta == "" {
		return core.NewValidationError("ThinkingTextMessageContentEvent", "delta", errors.New("field must not be empty"))
	}

	return nil
}

// ToJSON serializes the event to JSON
func (e *ThinkingTextMessageContentEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ThinkingTextMessageEndEvent indicates the end of a streaming thinking text
// message.
type ThinkingTextMessageEndEvent struct {
	*BaseEvent
}

// NewThinkingTextMessageEndEvent creates a new thinking text message end event
func NewThinkingTextMessageEndEvent() *ThinkingTextMessageEndEvent {
	return &ThinkingTextMessageEndEvent{
		BaseEvent: NewBaseEvent(EventTypeThinkingTextMessageEnd),
	}
}

// Validate validates the thinking text message end event
func (e *ThinkingTextMessageEndEvent) Validate() error {
	return e.BaseEvent.Validate()
}

// ToJSON serializes the event to JSON
func (e *ThinkingTextMessageEndEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}
