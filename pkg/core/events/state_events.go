package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/agentwire/go-sdk/pkg/core"
)

// validJSONPatchOps contains the valid JSON Patch operations for efficient lookup
var validJSONPatchOps = map[string]bool{
	"add":     true,
	"remove":  true,
	"replace": true,
	"move":    true,
	"copy":    true,
	"test":    true,
}

// StateSnapshotEvent contains a complete snapshot of the state
type StateSnapshotEvent struct {
	*BaseEvent
	Snapshot any `json:"snapshot"`
}

// NewStateSnapshotEvent creates a new state snapshot event
func NewStateSnapshotEvent(snapshot any) *StateSnapshotEvent {
	return &StateSnapshotEvent{
		BaseEvent: NewBaseEvent(EventTypeStateSnapshot),
		Snapshot:  snapshot,
	}
}

// Validate validates the state snapshot event
func (e *StateSnapshotEvent) Validate() error {
	if err := e.BaseEvent.Validate(); err != nil {
		return err
	}

	if e.Snapshot == nil {
		return core.NewValidationError("StateSnapshotEvent", "snapshot", errors.New("field is required"))
	}

	return nil
}

// ToJSON serializes the event to JSON
func (e *StateSnapshotEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// JSONPatchOperation represents a JSON Patch operation (RFC 6902)
type JSONPatchOperation struct {
	Op    string `json:"op"`              // "add", "remove", "replace", "move", "copy", "test"
	Path  string `json:"path"`            // JSON Pointer path
	Value any    `json:"value,omitempty"` // Value for add, replace, test operations
	From  string `json:"from,omitempty"`  // Source path for move, copy operations
}

// validateJSONPatchOperation validates a single JSON patch operation
func validateJSONPatchOperation(op JSONPatchOperation) error {
	if !validJSONPatchOps[op.Op] {
		return fmt.Errorf("op field must be one of: add, remove, replace, move, copy, test, got: %s", op.Op)
	}

	// An empty path is a valid JSON Pointer referring to the whole document.
	if op.Path != "" && !strings.HasPrefix(op.Path, "/") {
		return fmt.Errorf("path field must be a valid JSON Pointer, got: %s", op.Path)
	}

	if (op.Op == "move" || op.Op == "copy") && op.From == "" {
		return fmt.Errorf("from field is required for %s operations", op.Op)
	}

	return nil
}

// StateDeltaEvent contains incremental state changes using JSON Patch
type StateDeltaEvent struct {
	*BaseEvent
	Delta []JSONPatchOperation `json:"delta"`
}

// NewStateDeltaEvent creates a new state delta event
func NewStateDeltaEvent(delta []JSONPatchOperation) *StateDeltaEvent {
	return &StateDeltaEvent{
		BaseEvent: NewBaseEvent(EventTypeStateDelta),
		Delta:     delta,
	}
}

// Validate validates the state delta event
func (e *StateDeltaEvent) Validate() error {
	if err := e.BaseEvent.Validate(); err != nil {
		return err
	}

	if len(e.Delta) == 0 {
		return core.NewValidationError("StateDeltaEvent", "delta", errors.New("field must contain at least one operation"))
	}

	for i, op := range e.Delta {
		if err := validateJSONPatchOperation(op); err != nil {
			return core.NewValidationError("StateDeltaEvent", "delta", fmt.Errorf("invalid operation at index %d: %w", i, err))
		}
	}

	return nil
}

// ToJSON serializes the event to JSON
func (e *StateDeltaEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// MessagesSnapshotEvent contains a complete snapshot of the conversation
// history, replacing the receiver's message list wholesale.
type MessagesSnapshotEvent struct {
	*BaseEvent
	Messages []core.Message `json:"messages"`
}

// NewMessagesSnapshotEvent creates a new messages snapshot event
func NewMessagesSnapshotEvent(messages []core.Message) *MessagesSnapshotEvent {
	return &MessagesSnapshotEvent{
		BaseEvent: NewBaseEvent(EventTypeMessagesSnapshot),
		Messages:  messages,
	}
}

// Validate validates the messages snapshot event
func (e *MessagesSnapshotEvent) Validate() error {
	if err := e.BaseEvent.Validate(); err != nil {
		return err
	}

	for i := range e.Messages {
		if err := e.Messages[i].Validate(); err != nil {
			return core.NewValidationError("MessagesSnapshotEvent", "messages", fmt.Errorf("invalid message at index %d: %w", i, err))
		}
	}

	return nil
}

// ToJSON serializes the event to JSON
func (e *MessagesSnapshotEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ActivitySnapshotEvent replaces the payload of the activity message
// identified by MessageID, creating it if absent.
type ActivitySnapshotEvent struct {
	*BaseEvent
	MessageID    string `json:"messageId"`
	ActivityType string `json:"activityType"`
	Content      any    `json:"content"`
}

// NewActivitySnapshotEvent creates a new activity snapshot event
func NewActivitySnapshotEvent(messageID, activityType string, content any) *ActivitySnapshotEvent {
	return &ActivitySnapshotEvent{
		BaseEvent:    NewBaseEvent(EventTypeActivitySnapshot),
		MessageID:    messageID,
		ActivityType: activityType,
		Content:      content,
	}
}

// Validate validates the activity snapshot event
func (e *ActivitySnapshotEvent) Validate() error {
	if err := e.BaseEvent.Validate(); err != nil {
		return err
	}

	if e.MessageID == "" {
		return core.NewValidationError("ActivitySnapshotEvent", "messageId", errors.New("field is required"))
	}

	if e.ActivityType == "" {
		return core.NewValidationError("ActivitySnapshotEvent", "activityType", errors.New("field is required"))
	}

	return nil
}

// ToJSON serializes the event to JSON
func (e *ActivitySnapshotEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ActivityDeltaEvent patches the payload of the activity message identified
// by MessageID with a JSON Patch operation list.
type ActivityDeltaEvent struct {
	*BaseEvent
	MessageID    string               `json:"messageId"`
	ActivityType string               `json:"activityType"`
	Delta        []JSONPatchOperation `json:"delta"`
}

// NewActivityDeltaEvent creates a new activity delta event
func NewActivityDeltaEvent(messageID, activityType string, delta []JSONPatchOperation) *ActivityDeltaEvent {
	return &ActivityDeltaEvent{
		BaseEvent:    NewBaseEvent(EventTypeActivityDelta),
		MessageID:    messageID,
		ActivityType: activityType,
		Delta:        delta,
	}
}

// Validate validates the activity delta event
func (e *ActivityDeltaEvent) Validate() error {
	if err := e.BaseEvent.Validate(); err != nil {
		return err
	}

	if e.MessageID == "" {
		return core.NewValidationError("ActivityDeltaEvent", "messageId", errors.New("field is required"))
	}

	if e.ActivityType == "" {
		return core.NewValidationError("ActivityDeltaEvent", "activityType", errors.New("field is required"))
	}

	if len(e.Delta) == 0 {
		return core.NewValidationError("ActivityDeltaEvent", "delta", errors.New("field must contain at least one operation"))
	}

	for i, op := range e.Delta {
		if err := validateJSONPatchOperation(op); err != nil {
			return core.NewValidationError("ActivityDeltaEvent", "delta", fmt.Errorf("invalid operation at index %d: %w", i, err))
		}
	}

	return nil
}

// ToJSON serializes the event to JSON
func (e *ActivityDeltaEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}
