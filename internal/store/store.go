// Package store persists build state between pipeline runs. The orchestrator
// never assumes a particular persistence mechanism; anything implementing
// Store can hold tasks across checkpoint suspensions.
package store

import (
	"errors"
	"fmt"

	"buildsmith/internal/build"
)

var (
	// ErrNotFound indicates the task has never been stored.
	ErrNotFound = errors.New("task not found")
	// ErrRevisionConflict indicates a compare-and-swap lost a race.
	ErrRevisionConflict = errors.New("task revision conflict")
)

// Store is the persistence contract for build state. Revisions start at 1
// and increase by one per successful write.
type Store interface {
	// Get returns the stored state and its current revision.
	Get(taskID string) (*build.State, int64, error)
	// Put writes state unconditionally, creating the task if needed.
	Put(st *build.State) (int64, error)
	// CompareAndSwap writes state only if the stored revision still equals rev.
	CompareAndSwap(st *build.State, rev int64) (int64, error)
	// List returns all stored states.
	List() ([]*build.State, error)
}

// Update performs a read-modify-write with a bounded CAS retry. fn runs on a
// fresh copy each attempt, so it must be safe to re-apply.
func Update(s Store, taskID string, fn func(*build.State)) (*build.State, error) {
	const maxAttempts = 5
	for attempt := 0; attempt < maxAttempts; attempt++ {
		st, rev, err := s.Get(taskID)
		if err != nil {
			return nil, err
		}
		fn(st)
		if _, err := s.CompareAndSwap(st, rev); err != nil {
			if errors.Is(err, ErrRevisionConflict) {
				continue
			}
			return nil, err
		}
		return st, nil
	}
	return nil, fmt.Errorf("update task %s: %w after %d attempts", taskID, ErrRevisionConflict, 5)
}
