package events

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/agentwire/go-sdk/pkg/core"
)

func TestEventValidation(t *testing.T) {
	tests := []struct {
		name      string
		event     Event
		wantError bool
		errorMsg  string
	}{
		// Run events
		{
			name:      "RunStartedEvent valid",
			event:     NewRunStartedEvent("thread-1", "run-1"),
			wantError: false,
		},
		{
			name:      "RunStartedEvent with empty threadId",
			event:     NewRunStartedEvent("", "run-1"),
			wantError: true,
			errorMsg:  "threadId: field is required",
		},
		{
			name:      "RunStartedEvent with empty runId",
			event:     NewRunStartedEvent("thread-1", ""),
			wantError: true,
			errorMsg:  "runId: field is required",
		},
		{
			name:      "RunFinishedEvent valid with result",
			event:     NewRunFinishedEvent("thread-1", "run-1", WithResult(map[string]any{"answer": 42})),
			wantError: false,
		},
		{
			name:      "RunErrorEvent valid",
			event:     NewRunErrorEvent("something broke", WithErrorCode("E_AGENT")),
			wantError: false,
		},
		{
			name:      "RunErrorEvent with empty message",
			event:     NewRunErrorEvent(""),
			wantError: true,
			errorMsg:  "message: field is required",
		},
		// Step events
		{
			name:      "StepStartedEvent with empty stepName",
			event:     NewStepStartedEvent(""),
			wantError: true,
			errorMsg:  "stepName: field is required",
		},
		{
			name:      "StepFinishedEvent valid",
			event:     NewStepFinishedEvent("plan"),
			wantError: false,
		},
		// Text message events
		{
			name:      "TextMessageStartEvent valid with role",
			event:     NewTextMessageStartEvent("msg-1", WithRole("assistant")),
			wantError: false,
		},
		{
			name:      "TextMessageStartEvent with empty messageId",
			event:     NewTextMessageStartEvent(""),
			wantError: true,
			errorMsg:  "messageId: field is required",
		},
		{
			name:      "TextMessageContentEvent with empty delta",
			event:     NewTextMessageContentEvent("msg-1", ""),
			wantError: true,
			errorMsg:  "delta: field must not be empty",
		},
		{
			name:      "TextMessageEndEvent with empty messageId",
			event:     NewTextMessageEndEvent(""),
			wantError: true,
			errorMsg:  "messageId: field is required",
		},
		{
			name:      "TextMessageChunkEvent with no fields",
			event:     NewTextMessageChunkEvent(),
			wantError: false,
		},
		// Tool call events
		{
			name:      "ToolCallStartEvent valid",
			event:     NewToolCallStartEvent("call-1", "search", WithParentMessageID("msg-1")),
			wantError: false,
		},
		{
			name:      "ToolCallStartEvent with empty toolCallName",
			event:     NewToolCallStartEvent("call-1", ""),
			wantError: true,
			errorMsg:  "toolCallName: field is required",
		},
		{
			name:      "ToolCallArgsEvent with empty toolCallId",
			event:     NewToolCallArgsEvent("", `{"q":`),
			wantError: true,
			errorMsg:  "toolCallId: field is required",
		},
		{
			name:      "ToolCallEndEvent valid",
			event:     NewToolCallEndEvent("call-1"),
			wantError: false,
		},
		{
			name:      "ToolCallResultEvent with empty content",
			event:     NewToolCallResultEvent("msg-2", "call-1", ""),
			wantError: true,
			errorMsg:  "content: field is required",
		},
		// Thinking events
		{
			name:      "ThinkingStartEvent valid with title",
			event:     NewThinkingStartEvent(WithTitle("Planning")),
			wantError: false,
		},
		{
			name:      "ThinkingTextMessageContentEvent with empty delta",
			event:     NewThinkingTextMessageContentEvent(""),
			wantError: true,
			errorMsg:  "delta: field must not be empty",
		},
		// State events
		{
			name:      "StateSnapshotEvent with nil snapshot",
			event:     NewStateSnapshotEvent(nil),
			wantError: true,
			errorMsg:  "snapshot: field is required",
		},
		{
			name:      "StateDeltaEvent with empty delta",
			event:     NewStateDeltaEvent([]JSONPatchOperation{}),
			wantError: true,
			errorMsg:  "delta: field must contain at least one operation",
		},
		{
			name: "StateDeltaEvent with invalid op",
			event: NewStateDeltaEvent([]JSONPatchOperation{
				{Op: "merge", Path: "/a"},
			}),
			wantError: true,
			errorMsg:  "op field must be one of",
		},
		{
			name: "StateDeltaEvent move without from",
			event: NewStateDeltaEvent([]JSONPatchOperation{
				{Op: "move", Path: "/a"},
			}),
			wantError: true,
			errorMsg:  "from field is required",
		},
		{
			name: "StateDeltaEvent valid",
			event: NewStateDeltaEvent([]JSONPatchOperation{
				{Op: "replace", Path: "/counter", Value: 2},
			}),
			wantError: false,
		},
		// Passthrough events
		{
			name:      "RawEvent with nil payload",
			event:     NewRawEvent(nil),
			wantError: true,
			errorMsg:  "event: field is required",
		},
		{
			name:      "RawEvent valid",
			event:     NewRawEvent(map[string]any{"vendor": "x"}, WithSource("upstream")),
			wantError: false,
		},
		{
			name:      "CustomEvent with empty name",
			event:     NewCustomEvent(""),
			wantError: true,
			errorMsg:  "name: field is required",
		},
		{
			name:      "CustomEvent valid",
			event:     NewCustomEvent("progress", WithValue(0.5)),
			wantError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.Validate()
			if tt.wantError {
				if err == nil {
					t.Fatalf("expected validation error, got nil")
				}
				if tt.errorMsg != "" && !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("expected error containing %q, got %q", tt.errorMsg, err.Error())
				}
			} else if err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestBaseEventTimestamp(t *testing.T) {
	event := NewRunStartedEvent("thread-1", "run-1")
	if event.Timestamp() == nil {
		t.Fatal("expected constructor to set a timestamp")
	}

	event.SetTimestamp(1234)
	if got := *event.Timestamp(); got != 1234 {
		t.Errorf("expected timestamp 1234, got %d", got)
	}
}

func TestAllEventTypesClosed(t *testing.T) {
	types := AllEventTypes()
	if len(types) != 26 {
		t.Fatalf("expected 26 event types, got %d", len(types))
	}
	for _, eventType := range types {
		if !isValidEventType(eventType) {
			t.Errorf("event type %s not recognized as valid", eventType)
		}
	}
	if isValidEventType(EventTypeUnknown) {
		t.Error("UNKNOWN must not be a valid wire type")
	}
}

func TestEventJSONRoundTrip(t *testing.T) {
	parentRun := "run-0"
	events := []Event{
		NewRunStartedEvent("thread-1", "run-1", WithParentRunID(parentRun)),
		NewRunFinishedEvent("thread-1", "run-1", WithResult("ok")),
		NewRunErrorEvent("boom", WithErrorCode("E_FAIL")),
		NewStepStartedEvent("plan"),
		NewStepFinishedEvent("plan"),
		NewTextMessageStartEvent("msg-1", WithRole("assistant")),
		NewTextMessageContentEvent("msg-1", "hello"),
		NewTextMessageEndEvent("msg-1"),
		NewTextMessageChunkEvent(WithChunkMessageID("msg-2"), WithChunkDelta("hi")),
		NewToolCallStartEvent("call-1", "search", WithParentMessageID("msg-1")),
		NewToolCallArgsEvent("call-1", `{"q":"x"}`),
		NewToolCallEndEvent("call-1"),
		NewToolCallChunkEvent(WithChunkToolCallID("call-2"), WithChunkArgsDelta("{")),
		NewToolCallResultEvent("msg-3", "call-1", `{"hits":3}`),
		NewThinkingStartEvent(WithTitle("Planning")),
		NewThinkingEndEvent(),
		NewThinkingTextMessageStartEvent(),
		NewThinkingTextMessageContentEvent("considering"),
		NewThinkingTextMessageEndEvent(),
		NewStateSnapshotEvent(map[string]any{"counter": 1}),
		NewStateDeltaEvent([]JSONPatchOperation{{Op: "replace", Path: "/counter", Value: 2}}),
		NewMessagesSnapshotEvent(nil),
		NewActivitySnapshotEvent("msg-4", "browsing", map[string]any{"url": "https://example.com"}),
		NewActivityDeltaEvent("msg-4", "browsing", []JSONPatchOperation{{Op: "add", Path: "/done", Value: true}}),
		NewRawEvent(map[string]any{"vendor": true}),
		NewCustomEvent("progress", WithValue(0.5)),
	}

	for _, original := range events {
		t.Run(string(original.Type()), func(t *testing.T) {
			data, err := original.ToJSON()
			if err != nil {
				t.Fatalf("ToJSON failed: %v", err)
			}

			decoded, err := EventFromJSON(data)
			if err != nil {
				t.Fatalf("EventFromJSON failed: %v", err)
			}

			if decoded.Type() != original.Type() {
				t.Errorf("type changed: got %s, want %s", decoded.Type(), original.Type())
			}
		})
	}
}

func TestEventFromJSONUnknownType(t *testing.T) {
	_, err := EventFromJSON([]byte(`{"type":"NOT_A_TYPE"}`))
	if err == nil {
		t.Fatal("expected error for unknown event type")
	}
	if !strings.Contains(err.Error(), "unknown event type") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestEventFromJSONRejectsInvalidEvents(t *testing.T) {
	tests := []struct {
		name  string
		data  string
		field string
	}{
		{
			name:  "text message start without messageId",
			data:  `{"type":"TEXT_MESSAGE_START"}`,
			field: "messageId",
		},
		{
			name:  "text message start with empty messageId",
			data:  `{"type":"TEXT_MESSAGE_START","messageId":""}`,
			field: "messageId",
		},
		{
			name:  "run started without runId",
			data:  `{"type":"RUN_STARTED","threadId":"thread-1"}`,
			field: "runId",
		},
		{
			name:  "tool call start without toolCallName",
			data:  `{"type":"TOOL_CALL_START","toolCallId":"call-1"}`,
			field: "toolCallName",
		},
		{
			name:  "state delta without operations",
			data:  `{"type":"STATE_DELTA","delta":[]}`,
			field: "delta",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EventFromJSON([]byte(tt.data))
			if err == nil {
				t.Fatal("expected a validation error")
			}
			var validationErr *core.ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("expected *core.ValidationError, got %T: %v", err, err)
			}
			if validationErr.Field != tt.field {
				t.Errorf("expected field %q, got %q", tt.field, validationErr.Field)
			}
		})
	}
}

func TestEventFromJSONSnakeCase(t *testing.T) {
	data := []byte(`{"type":"TOOL_CALL_START","tool_call_id":"call-1","tool_call_name":"search","parent_message_id":"msg-1"}`)

	decoded, err := EventFromJSON(data)
	if err != nil {
		t.Fatalf("EventFromJSON failed: %v", err)
	}

	toolEvent, ok := decoded.(*ToolCallStartEvent)
	if !ok {
		t.Fatalf("expected *ToolCallStartEvent, got %T", decoded)
	}
	if toolEvent.ToolCallID != "call-1" {
		t.Errorf("toolCallId not decoded from snake_case, got %q", toolEvent.ToolCallID)
	}
	if toolEvent.ToolCallName != "search" {
		t.Errorf("toolCallName not decoded from snake_case, got %q", toolEvent.ToolCallName)
	}
	if toolEvent.ParentMessageID == nil || *toolEvent.ParentMessageID != "msg-1" {
		t.Errorf("parentMessageId not decoded from snake_case, got %v", toolEvent.ParentMessageID)
	}
}

func TestEventFromJSONSnakeCaseLeavesPayloadsAlone(t *testing.T) {
	data := []byte(`{"type":"STATE_SNAPSHOT","snapshot":{"user_name":"ada","nested":{"run_id":"not-an-event-field"}}}`)

	decoded, err := EventFromJSON(data)
	if err != nil {
		t.Fatalf("EventFromJSON failed: %v", err)
	}

	snapshot := decoded.(*StateSnapshotEvent).Snapshot.(map[string]any)
	if _, ok := snapshot["user_name"]; !ok {
		t.Error("payload key user_name was rewritten")
	}
	nested := snapshot["nested"].(map[string]any)
	if _, ok := nested["run_id"]; !ok {
		t.Error("nested payload key run_id was rewritten")
	}
}

func TestEventJSONEmitsCamelCase(t *testing.T) {
	event := NewToolCallStartEvent("call-1", "search", WithParentMessageID("msg-1"))
	data, err := event.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON failed: %v", err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	for _, key := range []string{"type", "toolCallId", "toolCallName", "parentMessageId"} {
		if _, ok := fields[key]; !ok {
			t.Errorf("expected key %q in encoded event, got keys %v", key, fields)
		}
	}
}
