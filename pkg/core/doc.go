// Package core provides the foundational types for the AgentWire protocol.
//
// This package defines the data model shared by every other package in the
// SDK: messages and their typed content parts, tool calls, the RunAgentInput
// request that opens a run, and the error taxonomy surfaced by the codec,
// the transport client and the state reducer.
//
// The AgentWire protocol is a lightweight, event-based system that
// standardizes how AI agent backends connect to user-facing front ends,
// enabling:
//   - Real-time streaming communication
//   - Bidirectional state synchronization
//   - Human-in-the-loop collaboration
//   - Tool-based interactions
//
// Event types and the run sequencing rules live in the core/events
// subpackage.
package core
