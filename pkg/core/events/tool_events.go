package events

import (
	"encoding/json"
	"errors"

	"github.com/agentwire/go-sdk/pkg/core"
)

// ToolCallStartEvent indicates the start of a streaming tool call
type ToolCallStartEvent struct {
	*BaseEvent
	ToolCallID      string  `json:"toolCallId"`
	ToolCallName    string  `json:"toolCallName"`
	ParentMessageID *string `json:"parentMessageId,omitempty"`
}

// NewToolCallStartEvent creates a new tool call start event
func NewToolCallStartEvent(toolCallID, toolCallName string, options ...ToolCallStartOption) *ToolCallStartEvent {
	event := &ToolCallStartEvent{
		BaseEvent:    NewBaseEvent(EventTypeToolCallStart),
		ToolCallID:   toolCallID,
		ToolCallName: toolCallName,
	}

	for _, opt := range options {
		opt(event)
	}

	return event
}

// ToolCallStartOption defines options for creating tool call start events
type ToolCallStartOption func(*ToolCallStartEvent)

// WithParentMessageID sets the parent message ID for the tool call
func WithParentMessageID(parentMessageID string) ToolCallStartOption {
	return func(e *ToolCallStartEvent) {
		e.ParentMessageID = &parentMessageID
	}
}

// Validate validates the tool call start event
func (e *ToolCallStartEvent) Validate() error {
	if err := e.BaseEvent.Validate(); err != nil {
		return err
	}

	if e.ToolCallID == "" {
		return core.NewValidationError("ToolCallStartEvent", "toolCallId", errors.New("field is required"))
	}

	if e.ToolCallName == "" {
		return core.NewValidationError("ToolCallStartEvent", "toolCallName", errors.New("field is required"))
	}

	return nil
}

// ToJSON serializes the event to JSON
func (e *ToolCallStartEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ToolCallArgsEvent contains a piece of streaming tool call arguments.
// Delta is a fragment of JSON text; it is accumulated verbatim and must not
// be parsed until the tool call ends.
type ToolCallArgsEvent struct {
	*BaseEvent
	ToolCallID string `json:"toolCallId"`
	Delta      string `json:"delta"`
}

// NewToolCallArgsEvent creates a new tool call args event
func NewToolCallArgsEvent(toolCallID, delta string) *ToolCallArgsEvent {
	return &ToolCallArgsEvent{
		BaseEvent:  NewBaseEvent(EventTypeToolCallArgs),
		ToolCallID: toolCallID,
		Delta:      delta,
	}
}

// Validate validates the tool call args event
func (e *ToolCallArgsEvent) Validate() error {
	if err := e.BaseEvent.Validate(); err != nil {
		return err
	}

	if e.ToolCallID == "" {
		return core.NewValidationError("ToolCallArgsEvent", "toolCallId", errors.New("field is required"))
	}

	if e.Delta == "" {
		return core.NewValidationError("ToolCallArgsEvent", "delta", errors.New("field must not be empty"))
	}

	return nil
}

// ToJSON serializes the event to JSON
func (e *ToolCallArgsEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ToolCallEndEvent indicates the end of a streaming tool call
type ToolCallEndEvent struct {
	*BaseEvent
	ToolCallID string `json:"toolCallId"`
}

// NewToolCallEndEvent creates a new tool call end event
func NewToolCallEndEvent(toolCallID string) *ToolCallEndEvent {
	return &ToolCallEndEvent{
		BaseEvent:  NewBaseEvent(EventTypeToolCallEnd),
		ToolCallID: toolCallID,
	}
}

// Validate validates the tool call end event
func (e *ToolCallEndEvent) Validate() error {
	if err := e.BaseEvent.Validate(); err != nil {
		return err
	}

	if e.ToolCallID == "" {
		return core.NewValidationError("ToolCallEndEvent", "toolCallId", errors.New("field is required"))
	}

	return nil
}

// ToJSON serializes the event to JSON
func (e *ToolCallEndEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ToolCallChunkEvent is a self-contained piece of tool call content; the
// chunk transform expands chunks into the canonical TOOL_CALL_START /
// TOOL_CALL_ARGS sequence.
type ToolCallChunkEvent struct {
	*BaseEvent
	ToolCallID      *string `json:"toolCallId,omitempty"`
	ToolCallName    *string `json:"toolCallName,omitempty"`
	ParentMessageID *string `json:"parentMessageId,omitempty"`
	Delta           *string `json:"delta,omitempty"`
}

// NewToolCallChunkEvent creates a new tool call chunk event
func NewToolCallChunkEvent(options ...ToolCallChunkOption) *ToolCallChunkEvent {
	event := &ToolCallChunkEvent{
		BaseEvent: NewBaseEvent(EventTypeToolCallChunk),
	}

	for _, opt := range options {
		opt(event)
	}

	return event
}

// ToolCallChunkOption defines options for creating tool call chunk events
type ToolCallChunkOption func(*ToolCallChunkEvent)

// WithChunkToolCallID sets the tool call ID for the chunk
func WithChunkToolCallID(toolCallID string) ToolCallChunkOption {
	return func(e *ToolCallChunkEvent) {
		e.ToolCallID = &toolCallID
	}
}

// WithChunkToolCallName sets the tool call name for the chunk
func WithChunkToolCallName(toolCallName string) ToolCallChunkOption {
	return func(e *ToolCallChunkEvent) {
		e.ToolCallName = &toolCallName
	}
}

// WithChunkParentMessageID sets the parent message ID for the chunk
func WithChunkParentMessageID(parentMessageID string) ToolCallChunkOption {
	return func(e *ToolCallChunkEvent) {
		e.ParentMessageID = &parentMessageID
	}
}

// WithChunkArgsDelta sets the argument delta for the chunk
func WithChunkArgsDelta(delta string) ToolCallChunkOption {
	return func(e *ToolCallChunkEvent) {
		e.Delta = &delta
	}
}

// Validate validates the tool call chunk event. All fields are optional;
// only the base event is checked.
func (e *ToolCallChunkEvent) Validate() error {
	return e.BaseEvent.Validate()
}

// ToJSON serializes the event to JSON
func (e *ToolCallChunkEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ToolCallResultEvent carries the result produced by executing a tool call.
type ToolCallResultEvent struct {
	*BaseEvent
	MessageID  string  `json:"messageId"`
	ToolCallID string  `json:"toolCallId"`
	Content    string  `json:"content"`
	Role       *string `json:"role,omitempty"`
}

// NewToolCallResultEvent creates a new tool call result event
func NewToolCallResultEvent(messageID, toolCallID, content string) *ToolCallResultEvent {
	return &ToolCallResultEvent{
		BaseEvent:  NewBaseEvent(EventTypeToolCallResult),
		MessageID:  messageID,
		ToolCallID: toolCallID,
		Content:    content,
	}
}

// Validate validates the tool call result event
func (e *ToolCallResultEvent) Validate() error {
	if err := e.BaseEvent.Validate(); err != nil {
		return err
	}

	if e.MessageID == "" {
		return core.NewValidationError("ToolCallResultEvent", "messageId", errors.New("field is required"))
	}

	if e.ToolCallID == "" {
		return core.NewValidationError("ToolCallResultEvent", "toolCallId", errors.New("field is required"))
	}

	if e.Content == "" {
		return core.NewValidationError("ToolCallResultEvent", "content", errors.New("field is required"))
	}

	return nil
}

// ToJSON serializes the event to JSON
func (e *ToolCallResultEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}
