package encoding

import (
	"errors"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/agentwire/go-sdk/pkg/core"
	"github.com/agentwire/go-sdk/pkg/core/events"
)

func TestBinaryRoundTripAllVariants(t *testing.T) {
	for _, original := range allEventSamples() {
		t.Run(string(original.Type()), func(t *testing.T) {
			packed, err := EncodeBinary(original)
			if err != nil {
				t.Fatalf("encode failed: %v", err)
			}

			decoded, err := DecodeBinary(packed)
			if err != nil {
				t.Fatalf("decode failed: %v", err)
			}

			wantJSON, _ := original.ToJSON()
			gotJSON, _ := decoded.ToJSON()
			if string(wantJSON) != string(gotJSON) {
				t.Errorf("round trip changed the event:\n got %s\nwant %s", gotJSON, wantJSON)
			}
		})
	}
}

func TestBinaryEnvelopeShape(t *testing.T) {
	event := events.NewTextMessageContentEvent("m1", "hi")
	packed, err := EncodeBinary(event)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	var envelope map[string]any
	if err := msgpack.Unmarshal(packed, &envelope); err != nil {
		t.Fatalf("unpack failed: %v", err)
	}

	payload, ok := envelope["textMessageContent"].(map[string]any)
	if !ok {
		t.Fatalf("expected textMessageContent key, got %v", envelope)
	}

	base, ok := payload["baseEvent"].(map[string]any)
	if !ok {
		t.Fatalf("expected baseEvent group, got %v", payload)
	}
	if base["type"] != "TEXT_MESSAGE_CONTENT" {
		t.Errorf("expected base type TEXT_MESSAGE_CONTENT, got %v", base["type"])
	}
	if _, ok := base["timestamp"]; !ok {
		t.Error("expected timestamp inside baseEvent")
	}
	if payload["messageId"] != "m1" || payload["delta"] != "hi" {
		t.Errorf("unexpected payload fields: %v", payload)
	}
}

func TestBinaryPatchOpsPackedAsIntegers(t *testing.T) {
	event := events.NewStateDeltaEvent([]events.JSONPatchOperation{
		{Op: "add", Path: "/a", Value: 1.0},
		{Op: "test", Path: "/a", Value: 1.0},
	})
	packed, err := EncodeBinary(event)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	var envelope map[string]any
	if err := msgpack.Unmarshal(packed, &envelope); err != nil {
		t.Fatalf("unpack failed: %v", err)
	}
	delta := envelope["stateDelta"].(map[string]any)["delta"].([]any)

	firstOp := delta[0].(map[string]any)["op"]
	if code, ok := toInt(firstOp); !ok || code != 0 {
		t.Errorf("expected add packed as 0, got %v", firstOp)
	}
	lastOp := delta[1].(map[string]any)["op"]
	if code, ok := toInt(lastOp); !ok || code != 5 {
		t.Errorf("expected test packed as 5, got %v", lastOp)
	}
}

func TestBinaryLegacyBinaryPartUpgrade(t *testing.T) {
	mime := "application/octet-stream"
	original := events.NewMessagesSnapshotEvent([]core.Message{
		{
			ID:   "m1",
			Role: core.RoleUser,
			Content: core.PartsContent(core.ContentPart{
				Type:   core.PartTypeBinary,
				Source: &core.PartSource{Data: "aGk=", MimeType: &mime},
			}),
		},
	})

	packed, err := EncodeBinary(original)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	// On the wire the part travels as a marked document part.
	var envelope map[string]any
	if err := msgpack.Unmarshal(packed, &envelope); err != nil {
		t.Fatalf("unpack failed: %v", err)
	}
	messages := envelope["messagesSnapshot"].(map[string]any)["messages"].([]any)
	part := messages[0].(map[string]any)["content"].([]any)[0].(map[string]any)
	if part["type"] != "document" {
		t.Errorf("expected wire type document, got %v", part["type"])
	}
	if part[compatMarkerKey] != "binary" {
		t.Errorf("expected compatibility marker, got %v", part)
	}

	// Decode restores the legacy form, so the event round-trips.
	decoded, err := DecodeBinary(packed)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	wantJSON, _ := original.ToJSON()
	gotJSON, _ := decoded.ToJSON()
	if string(wantJSON) != string(gotJSON) {
		t.Errorf("round trip changed the event:\n got %s\nwant %s", gotJSON, wantJSON)
	}
}

func TestBinaryEmptyArraysDecodeToAbsent(t *testing.T) {
	// Build an envelope whose message carries the empty arrays the binary
	// schema requires to be present.
	envelope := map[string]any{
		"messagesSnapshot": map[string]any{
			"baseEvent": map[string]any{"type": "MESSAGES_SNAPSHOT"},
			"messages": []any{
				map[string]any{
					"id":        "m1",
					"role":      "assistant",
					"content":   []any{},
					"toolCalls": []any{},
				},
			},
		},
	}
	packed, err := msgpack.Marshal(envelope)
	if err != nil {
		t.Fatalf("pack failed: %v", err)
	}

	decoded, err := DecodeBinary(packed)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	snapshot := decoded.(*events.MessagesSnapshotEvent)
	if len(snapshot.Messages) != 1 {
		t.Fatalf("expected one message, got %d", len(snapshot.Messages))
	}
	msg := snapshot.Messages[0]
	if msg.ToolCalls != nil {
		t.Errorf("empty toolCalls should decode to absent, got %v", msg.ToolCalls)
	}
	if msg.Content != nil {
		t.Errorf("empty content parts should decode to absent, got %v", msg.Content)
	}
}

func TestBinaryRejectsUnknownEnvelopeKey(t *testing.T) {
	packed, _ := msgpack.Marshal(map[string]any{
		"somethingNew": map[string]any{"baseEvent": map[string]any{"type": "SOMETHING_NEW"}},
	})

	_, err := DecodeBinary(packed)
	var decodingErr *core.DecodingError
	if !errors.As(err, &decodingErr) {
		t.Fatalf("expected *core.DecodingError, got %v", err)
	}
	if decodingErr.Format != "binary" {
		t.Errorf("expected format binary, got %q", decodingErr.Format)
	}
}

func TestBinaryRejectsGarbage(t *testing.T) {
	_, err := DecodeBinary([]byte{0xc1, 0x00, 0xff})
	if err == nil {
		t.Fatal("expected error for malformed payload")
	}
}
