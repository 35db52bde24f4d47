package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"buildsmith/internal/build"
)

// MemStore is an in-process Store for tests and single-process serving.
type MemStore struct {
	mu    sync.Mutex
	tasks map[string]*envelope
}

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{tasks: make(map[string]*envelope)}
}

// Get returns a deep copy of the stored state and its revision.
func (m *MemStore) Get(taskID string) (*build.State, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	env, ok := m.tasks[taskID]
	if !ok {
		return nil, 0, fmt.Errorf("task %s: %w", taskID, ErrNotFound)
	}
	return env.State.Clone(), env.Revision, nil
}

// Put writes state unconditionally.
func (m *MemStore) Put(st *build.State) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rev := int64(1)
	if env, ok := m.tasks[st.TaskID]; ok {
		rev = env.Revision + 1
	}
	m.store(st, rev)
	return rev, nil
}

// CompareAndSwap writes state only if the stored revision still equals rev.
func (m *MemStore) CompareAndSwap(st *build.State, rev int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current := int64(0)
	if env, ok := m.tasks[st.TaskID]; ok {
		current = env.Revision
	}
	if current != rev {
		return 0, fmt.Errorf("task %s: %w: have %d, want %d", st.TaskID, ErrRevisionConflict, current, rev)
	}
	m.store(st, rev+1)
	return rev + 1, nil
}

func (m *MemStore) store(st *build.State, rev int64) {
	now := time.Now().UTC().Format(time.RFC3339)
	if st.CreatedAt == "" {
		st.CreatedAt = now
	}
	st.UpdatedAt = now
	m.tasks[st.TaskID] = &envelope{Revision: rev, State: st.Clone()}
}

// List returns copies of all stored states sorted by task ID.
func (m *MemStore) List() ([]*build.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	states := make([]*build.State, 0, len(m.tasks))
	for _, env := range m.tasks {
		states = append(states, env.State.Clone())
	}
	sort.Slice(states, func(i, j int) bool { return states[i].TaskID < states[j].TaskID })
	return states, nil
}
