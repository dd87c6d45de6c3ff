package events

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// snakeEventKeys maps snake_case field names some producers emit to the
// camelCase names the protocol uses on the wire. Only known top-level event
// fields are translated so opaque payloads pass through untouched.
var snakeEventKeys = map[string]string{
	"thread_id":         "threadId",
	"run_id":            "runId",
	"parent_run_id":     "parentRunId",
	"step_name":         "stepName",
	"message_id":        "messageId",
	"tool_call_id":      "toolCallId",
	"tool_call_name":    "toolCallName",
	"parent_message_id": "parentMessageId",
	"activity_type":     "activityType",
	"raw_event":         "rawEvent",
}

// snakeMessageKeys translates snake_case field names inside message objects
// carried by a messages snapshot.
var snakeMessageKeys = map[string]string{
	"tool_calls":    "toolCalls",
	"tool_call_id":  "toolCallId",
	"activity_type": "activityType",
}

// EventFromJSON parses an event from JSON data
func EventFromJSON(data []byte) (Event, error) {
	data = normalizeEventJSON(data)

	// First, parse the base event to determine the type
	var base struct {
		Type EventType `json:"type"`
	}

	if err := json.Unmarshal(data, &base); err != nil {
		return nil, fmt.Errorf("failed to parse event type: %w", err)
	}

	// Create the appropriate event type based on the type field
	var event Event
	switch base.Type {
	case EventTypeRunStarted:
		event = &RunStartedEvent{}
	case EventTypeRunFinished:
		event = &RunFinishedEvent{}
	case EventTypeRunError:
		event = &RunErrorEvent{}
	case EventTypeStepStarted:
		event = &StepStartedEvent{}
	case EventTypeStepFinished:
		event = &StepFinishedEvent{}
	case EventTypeTextMessageStart:
		event = &TextMessageStartEvent{}
	case EventTypeTextMessageContent:
		event = &TextMessageContentEvent{}
	case EventTypeTextMessageEnd:
		event = &TextMessageEndEvent{}
	case EventTypeTextMessageChunk:
		event = &TextMessageChunkEvent{}
	case EventTypeToolCallStart:
		event = &ToolCallStartEvent{}
	case EventTypeToolCallArgs:
		event = &ToolCallArgsEvent{}
	case EventTypeToolCallEnd:
		event = &ToolCallEndEvent{}
	case EventTypeToolCallChunk:
		event = &ToolCallChunkEvent{}
	case EventTypeToolCallResult:
		event = &ToolCallResultEvent{}
	case EventTypeThinkingStart:
		event = &ThinkingStartEvent{}
	case EventTypeThinkingEnd:
		event = &ThinkingEndEvent{}
	case EventTypeThinkingTextMessageStart:
		event = &ThinkingTextMessageStartEvent{}
	case EventTypeThinkingTextMessageContent:
		event = &ThinkingTextMessageContentEvent{}
	case EventTypeThinkingTextMessageEnd:
		event = &ThinkingTextMessageEndEvent{}
	case EventTypeStateSnapshot:
		event = &StateSnapshotEvent{}
	case EventTypeStateDelta:
		event = &StateDeltaEvent{}
	case EventTypeMessagesSnapshot:
		event = &MessagesSnapshotEvent{}
	case EventTypeActivitySnapshot:
		event = &ActivitySnapshotEvent{}
	case EventTypeActivityDelta:
		event = &ActivityDeltaEvent{}
	case EventTypeRaw:
		event = &RawEvent{}
	case EventTypeCustom:
		event = &CustomEvent{}
	default:
		return nil, fmt.Errorf("unknown event type: %s", base.Type)
	}

	// Unmarshal into the specific event type
	if err := json.Unmarshal(data, event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}

	// Structurally invalid frames are rejected here, before they can reach
	// the verifier or the reducer.
	if err := event.Validate(); err != nil {
		return nil, err
	}

	return event, nil
}

// normalizeEventJSON rewrites snake_case field names to the canonical
// camelCase form. Payload values are kept as raw bytes so nested data such as
// state snapshots or raw event bodies is never rewritten.
func normalizeEventJSON(data []byte) []byte {
	if !bytes.ContainsRune(data, '_') {
		return data
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return data
	}

	changed := false
	for snake, camel := range snakeEventKeys {
		raw, ok := fields[snake]
		if !ok {
			continue
		}
		if _, exists := fields[camel]; !exists {
			fields[camel] = raw
		}
		delete(fields, snake)
		changed = true
	}

	if raw, ok := fields["messages"]; ok {
		if normalized, ok := normalizeMessagesJSON(raw); ok {
			fields["messages"] = normalized
			changed = true
		}
	}

	if !changed {
		return data
	}

	normalized, err := json.Marshal(fields)
	if err != nil {
		return data
	}

	return normalized
}

func normalizeMessagesJSON(data []byte) (json.RawMessage, bool) {
	var messages []map[string]json.RawMessage
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, false
	}

	changed := false
	for _, msg := range messages {
		for snake, camel := range snakeMessageKeys {
			raw, ok := msg[snake]
			if !ok {
				continue
			}
			if _, exists := msg[camel]; !exists {
				msg[camel] = raw
			}
			delete(msg, snake)
			changed = true
		}
	}

	if !changed {
		return nil, false
	}

	normalized, err := json.Marshal(messages)
	if err != nil {
		return nil, false
	}

	return normalized, true
}
