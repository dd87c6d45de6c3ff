package encoding

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/agentwire/go-sdk/pkg/core"
	"github.com/agentwire/go-sdk/pkg/core/events"
)

// JSON Patch operation names packed as integers in the binary envelope.
var patchOpToCode = map[string]int{
	"add":     0,
	"remove":  1,
	"replace": 2,
	"move":    3,
	"copy":    4,
	"test":    5,
}

var patchCodeToOp = map[int]string{
	0: "add",
	1: "remove",
	2: "replace",
	3: "move",
	4: "copy",
	5: "test",
}

// compatMarkerKey tags a content part that was upgraded from the legacy
// single-field binary form on encode.
const compatMarkerKey = "compat"

// EncodeBinary packs an event into the MessagePack envelope: a single-key map
// from the event's lower-camel type name to its payload, with the shared
// base fields grouped under "baseEvent".
func EncodeBinary(event events.Event) ([]byte, error) {
	data, err := event.ToJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to encode event: %w", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("failed to build envelope: %w", err)
	}

	baseEvent := map[string]any{"type": string(event.Type())}
	delete(fields, "type")
	if ts, ok := fields["timestamp"]; ok {
		baseEvent["timestamp"] = ts
		delete(fields, "timestamp")
	}
	if raw, ok := fields["rawEvent"]; ok {
		baseEvent["rawEvent"] = raw
		delete(fields, "rawEvent")
	}
	fields["baseEvent"] = baseEvent

	switch event.Type() {
	case events.EventTypeStateDelta, events.EventTypeActivityDelta:
		if err := packPatchOps(fields); err != nil {
			return nil, err
		}
	case events.EventTypeMessagesSnapshot:
		packMessageParts(fields)
	}

	envelope := map[string]any{
		envelopeKey(event.Type()): fields,
	}
	packed, err := msgpack.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("failed to pack envelope: %w", err)
	}
	return packed, nil
}

// DecodeBinary unpacks a MessagePack envelope back into an event.
func DecodeBinary(data []byte) (events.Event, error) {
	var envelope map[string]any
	if err := msgpack.Unmarshal(data, &envelope); err != nil {
		return nil, &core.DecodingError{Format: "binary", Frame: data, Err: err}
	}
	if len(envelope) != 1 {
		return nil, &core.DecodingError{
			Format: "binary",
			Frame:  data,
			Err:    fmt.Errorf("envelope must have exactly one type key, got %d", len(envelope)),
		}
	}

	var key string
	var payload map[string]any
	for k, v := range envelope {
		key = k
		typed, ok := v.(map[string]any)
		if !ok {
			return nil, &core.DecodingError{
				Format: "binary",
				Frame:  data,
				Err:    fmt.Errorf("payload for %q is not a map", k),
			}
		}
		payload = typed
	}

	eventType, ok := envelopeTypes()[key]
	if !ok {
		return nil, &core.DecodingError{
			Format: "binary",
			Frame:  data,
			Err:    fmt.Errorf("unknown envelope key %q", key),
		}
	}

	fields := make(map[string]any, len(payload)+2)
	for k, v := range payload {
		fields[k] = v
	}
	if base, ok := fields["baseEvent"].(map[string]any); ok {
		if ts, ok := base["timestamp"]; ok {
			fields["timestamp"] = ts
		}
		if raw, ok := base["rawEvent"]; ok {
			fields["rawEvent"] = raw
		}
	}
	delete(fields, "baseEvent")
	fields["type"] = string(eventType)

	switch eventType {
	case events.EventTypeStateDelta, events.EventTypeActivityDelta:
		if err := unpackPatchOps(fields); err != nil {
			return nil, &core.DecodingError{Format: "binary", Frame: data, Err: err}
		}
	case events.EventTypeMessagesSnapshot:
		unpackMessageParts(fields)
	}

	jsonData, err := json.Marshal(fields)
	if err != nil {
		return nil, &core.DecodingError{Format: "binary", Frame: data, Err: err}
	}
	event, err := events.EventFromJSON(jsonData)
	if err != nil {
		return nil, &core.DecodingError{Format: "binary", Frame: data, Err: err}
	}
	return event, nil
}

// envelopeKey derives the lower-camel envelope key from the wire type name,
// e.g. TEXT_MESSAGE_CONTENT becomes textMessageContent.
func envelopeKey(eventType events.EventType) string {
	words := strings.Split(string(eventType), "_")
	var b strings.Builder
	for i, word := range words {
		word = strings.ToLower(word)
		if i > 0 && word != "" {
			word = strings.ToUpper(word[:1]) + word[1:]
		}
		b.WriteString(word)
	}
	return b.String()
}

var envelopeTypeIndex map[string]events.EventType

func envelopeTypes() map[string]events.EventType {
	if envelopeTypeIndex == nil {
		index := make(map[string]events.EventType)
		for _, eventType := range events.AllEventTypes() {
			index[envelopeKey(eventType)] = eventType
		}
		envelopeTypeIndex = index
	}
	return envelopeTypeIndex
}

func packPatchOps(fields map[string]any) error {
	ops, ok := fields["delta"].([]any)
	if !ok {
		return nil
	}
	for _, element := range ops {
		op, ok := element.(map[string]any)
		if !ok {
			continue
		}
		name, _ := op["op"].(string)
		code, known := patchOpToCode[name]
		if !known {
			return fmt.Errorf("cannot pack unknown patch operation %q", name)
		}
		op["op"] = code
	}
	return nil
}

func unpackPatchOps(fields map[string]any) error {
	ops, ok := fields["delta"].([]any)
	if !ok {
		return nil
	}
	for _, element := range ops {
		op, ok := element.(map[string]any)
		if !ok {
			continue
		}
		code, ok := toInt(op["op"])
		if !ok {
			return fmt.Errorf("patch operation code is not an integer: %v", op["op"])
		}
		name, known := patchCodeToOp[code]
		if !known {
			return fmt.Errorf("unknown patch operation code %d", code)
		}
		op["op"] = name
	}
	return nil
}

// packMessageParts rewrites message content for the binary schema: legacy
// binary parts become document parts carrying a compatibility marker.
func packMessageParts(fields map[string]any) {
	messages, ok := fields["messages"].([]any)
	if !ok {
		return
	}
	for _, element := range messages {
		message, ok := element.(map[string]any)
		if !ok {
			continue
		}
		parts, ok := message["content"].([]any)
		if !ok {
			continue
		}
		for _, partElement := range parts {
			part, ok := partElement.(map[string]any)
			if !ok {
				continue
			}
			if partType, _ := part["type"].(string); partType == string(core.PartTypeBinary) {
				part["type"] = string(core.PartTypeDocument)
				part[compatMarkerKey] = string(core.PartTypeBinary)
			}
		}
	}
}

// unpackMessageParts restores marked document parts to the legacy binary
// form and drops optional arrays the binary schema forced to be present.
func unpackMessageParts(fields map[string]any) {
	messages, ok := fields["messages"].([]any)
	if !ok {
		return
	}
	for _, element := range messages {
		message, ok := element.(map[string]any)
		if !ok {
			continue
		}

		// toolCalls: [] round-trips to "field omitted".
		if calls, ok := message["toolCalls"].([]any); ok && len(calls) == 0 {
			delete(message, "toolCalls")
		}

		parts, ok := message["content"].([]any)
		if !ok {
			continue
		}
		if len(parts) == 0 {
			delete(message, "content")
			continue
		}
		for _, partElement := range parts {
			part, ok := partElement.(map[string]any)
			if !ok {
				continue
			}
			if marker, _ := part[compatMarkerKey].(string); marker == string(core.PartTypeBinary) {
				part["type"] = string(core.PartTypeBinary)
				delete(part, compatMarkerKey)
			}
		}
	}
}

func toInt(value any) (int, bool) {
	switch typed := value.(type) {
	case int:
		return typed, true
	case int8:
		return int(typed), true
	case int16:
		return int(typed), true
	case int32:
		return int(typed), true
	case int64:
		return int(typed), true
	case uint8:
		return int(typed), true
	case uint16:
		return int(typed), true
	case uint32:
		return int(typed), true
	case uint64:
		return int(typed), true
	case float64:
		return int(typed), true
	default:
		return 0, false
	}
}
