package client

import (
	"github.com/agentwire/go-sdk/pkg/core"
	"github.com/agentwire/go-sdk/pkg/core/events"
)

// Transform rewrites one incoming event into zero or more outgoing events.
// Transforms run in the run's pipeline between decoding and verification, in
// the order they were configured. A transform may carry per-run state;
// Flush is called once when the stream ends so open constructs can be
// closed.
type Transform interface {
	Transform(event events.Event) []events.Event
	Flush() []events.Event
}

// TransformFactory builds a fresh Transform for each run. Runs never share
// transform state.
type TransformFactory func() Transform

// chunkTransform expands TEXT_MESSAGE_CHUNK and TOOL_CALL_CHUNK events into
// the equivalent start/content sequences, so downstream consumers only ever
// see the fully bracketed forms.
type chunkTransform struct {
	activeMessageID  string
	activeToolCallID string
}

// NewChunkTransform creates a chunk-expanding transform. A chunk opens a new
// message or tool call when its id differs from the currently open one; any
// non-chunk event closes whatever a chunk opened.
func NewChunkTransform() Transform {
	return &chunkTransform{}
}

func (t *chunkTransform) Transform(event events.Event) []events.Event {
	switch typed := event.(type) {
	case *events.TextMessageChunkEvent:
		return t.textChunk(typed)
	case *events.ToolCallChunkEvent:
		return t.toolChunk(typed)
	default:
		out := t.closeOpen()
		return append(out, event)
	}
}

func (t *chunkTransform) Flush() []events.Event {
	return t.closeOpen()
}

func (t *chunkTransform) textChunk(chunk *events.TextMessageChunkEvent) []events.Event {
	var out []events.Event

	messageID := t.activeMessageID
	if chunk.MessageID != nil {
		messageID = *chunk.MessageID
	}
	if messageID == "" {
		messageID = core.GenerateMessageID()
	}

	if messageID != t.activeMessageID {
		out = t.closeOpen()
		role := "assistant"
		if chunk.Role != nil {
			role = *chunk.Role
		}
		start := events.NewTextMessageStartEvent(messageID, events.WithRole(role))
		copyTimestamp(chunk, start)
		out = append(out, start)
		t.activeMessageID = messageID
	}

	if chunk.Delta != nil && *chunk.Delta != "" {
		content := events.NewTextMessageContentEvent(messageID, *chunk.Delta)
		copyTimestamp(chunk, content)
		out = append(out, content)
	}
	return out
}

func (t *chunkTransform) toolChunk(chunk *events.ToolCallChunkEvent) []events.Event {
	var out []events.Event

	toolCallID := t.activeToolCallID
	if chunk.ToolCallID != nil {
		toolCallID = *chunk.ToolCallID
	}
	if toolCallID == "" {
		toolCallID = core.GenerateToolCallID()
	}

	if toolCallID != t.activeToolCallID {
		out = t.closeOpen()
		name := ""
		if chunk.ToolCallName != nil {
			name = *chunk.ToolCallName
		}
		var opts []events.ToolCallStartOption
		if chunk.ParentMessageID != nil {
			opts = append(opts, events.WithParentMessageID(*chunk.ParentMessageID))
		}
		start := events.NewToolCallStartEvent(toolCallID, name, opts...)
		copyTimestamp(chunk, start)
		out = append(out, start)
		t.activeToolCallID = toolCallID
	}

	if chunk.Delta != nil && *chunk.Delta != "" {
		args := events.NewToolCallArgsEvent(toolCallID, *chunk.Delta)
		copyTimestamp(chunk, args)
		out = append(out, args)
	}
	return out
}

// closeOpen emits terminators for whatever the chunk stream left open.
func (t *chunkTransform) closeOpen() []events.Event {
	var out []events.Event
	if t.activeMessageID != "" {
		out = append(out, events.NewTextMessageEndEvent(t.activeMessageID))
		t.activeMessageID = ""
	}
	if t.activeToolCallID != "" {
		out = append(out, events.NewToolCallEndEvent(t.activeToolCallID))
		t.activeToolCallID = ""
	}
	return out
}

func copyTimestamp(from, to events.Event) {
	if ts := from.Timestamp(); ts != nil {
		to.SetTimestamp(*ts)
	}
}

// pipeline is the per-run instantiation of the configured transforms.
type pipeline struct {
	transforms []Transform
}

func newPipeline(factories []TransformFactory) *pipeline {
	transforms := make([]Transform, len(factories))
	for i, factory := range factories {
		transforms[i] = factory()
	}
	return &pipeline{transforms: transforms}
}

func (p *pipeline) process(event events.Event) []events.Event {
	batch := []events.Event{event}
	for _, transform := range p.transforms {
		var next []events.Event
		for _, e := range batch {
			next = append(next, transform.Transform(e)...)
		}
		batch = next
	}
	return batch
}

func (p *pipeline) flush() []events.Event {
	var batch []events.Event
	for i, transform := range p.transforms {
		flushed := transform.Flush()
		// Flushed events still pass through the transforms downstream of
		// the one that produced them.
		for _, e := range flushed {
			out := []events.Event{e}
			for _, later := range p.transforms[i+1:] {
				var next []events.Event
				for _, ee := range out {
					next = append(next, later.Transform(ee)...)
				}
				out = next
			}
			batch = append(batch, out...)
		}
	}
	return batch
}
