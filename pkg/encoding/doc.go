// Package encoding implements the two wire representations of the event
// stream.
//
// The text format is SSE compatible: one JSON event per frame, each frame one
// or more "data:" lines terminated by a blank line. The binary format is a
// compact MessagePack envelope keyed by the event's type, with JSON Patch
// operation names packed as integers and multimodal content parts in an
// explicit two-variant source form.
//
// Both formats round-trip every event variant: decoding an encoded event
// yields an equal event.
package encoding
