package state

import (
	"context"
	"sync"

	"github.com/agentwire/go-sdk/pkg/core"
)

// ThreadSnapshot is the persisted portion of a thread: its conversation and
// shared state.
type ThreadSnapshot struct {
	Messages []core.Message `json:"messages"`
	State    core.State     `json:"state"`
}

// ThreadStore persists thread snapshots across runs. Implementations choose
// their own consistency guarantees; concurrent runs writing the same thread
// are last-write-wins unless the caller serializes them.
type ThreadStore interface {
	// Get returns the snapshot for a thread. The second return value is
	// false when the thread has never been stored.
	Get(ctx context.Context, threadID string) (ThreadSnapshot, bool, error)

	// Set stores the snapshot for a thread, replacing any previous one.
	Set(ctx context.Context, threadID string, snapshot ThreadSnapshot) error
}

// MemoryStore is an in-memory ThreadStore. It is safe for concurrent use and
// keeps everything for the lifetime of the process.
type MemoryStore struct {
	mu      sync.RWMutex
	threads map[string]ThreadSnapshot
}

var _ ThreadStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		threads: make(map[string]ThreadSnapshot),
	}
}

// Get implements ThreadStore.
func (s *MemoryStore) Get(_ context.Context, threadID string) (ThreadSnapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot, ok := s.threads[threadID]
	if !ok {
		return ThreadSnapshot{}, false, nil
	}

	// Copy the messages so callers cannot mutate stored data.
	copied := ThreadSnapshot{State: snapshot.State}
	if snapshot.Messages != nil {
		copied.Messages = make([]core.Message, len(snapshot.Messages))
		copy(copied.Messages, snapshot.Messages)
	}
	return copied, true, nil
}

// Set implements ThreadStore.
func (s *MemoryStore) Set(_ context.Context, threadID string, snapshot ThreadSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := ThreadSnapshot{State: snapshot.State}
	if snapshot.Messages != nil {
		stored.Messages = make([]core.Message, len(snapshot.Messages))
		copy(stored.Messages, snapshot.Messages)
	}
	s.threads[threadID] = stored
	return nil
}
