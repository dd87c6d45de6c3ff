// Package state folds ordered event streams into agent state.
//
// The Reducer applies one event at a time to an AgentState and returns the
// next state, so a caller can keep every intermediate snapshot or only the
// latest one. STATE_DELTA events are applied with the package's own RFC 6902
// JSON Patch implementation; a patch that fails to apply leaves the state
// untouched and is reported through a side channel so the run continues.
//
// A ThreadStore persists the messages and state of a thread across runs. The
// in-memory implementation is suitable for tests and single-process use.
package state
