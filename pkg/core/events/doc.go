// Package events implements the AgentWire protocol event model and the
// per-run sequencing rules.
//
// The protocol defines a closed set of 26 event types grouped into run
// lifecycle, text message streaming, tool call streaming, state
// synchronization, thinking, activity and passthrough events. Every event
// embeds a BaseEvent carrying the type discriminator, an optional Unix
// millisecond timestamp and an opaque rawEvent passthrough payload.
//
// Events are constructed through NewXxxEvent constructors that accept
// functional options, and validate their required fields via Validate.
// RAW and CUSTOM events carry arbitrary payloads and are the intentional
// extension point; they are exempt from structural validation.
//
//	run := events.NewRunStartedEvent("thread-1", "run-1")
//	start := events.NewTextMessageStartEvent("msg-1")
//	content := events.NewTextMessageContentEvent("msg-1", "Hello")
//	end := events.NewTextMessageEndEvent("msg-1")
//
// The SequenceVerifier enforces which event may legally follow which within
// one run. One verifier instance is owned by exactly one run:
//
//	v := events.NewSequenceVerifier()
//	for _, ev := range sequence {
//		if err := v.Verify(ev); err != nil {
//			// *ProtocolViolation: fatal, abort the run
//		}
//	}
package events
