package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"buildsmith/internal/build"
)

// FileStore keeps one JSON file per task under a base directory. Writes are
// atomic (temp file + rename) so a crash mid-write never leaves a torn state
// file behind.
type FileStore struct {
	baseDir string

	// Serialises read-modify-write sequences within this process. Revisions
	// still guard against a second process writing the same directory.
	mu sync.Mutex
}

// envelope wraps the persisted state with its revision counter.
type envelope struct {
	Revision int64        `json:"revision"`
	State    *build.State `json:"state"`
}

// NewFileStore creates a FileStore rooted at baseDir, creating it if needed.
func NewFileStore(baseDir string) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", baseDir, err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

// DefaultFileStore returns a FileStore at ~/.buildsmith/tasks.
func DefaultFileStore() (*FileStore, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("get home dir: %w", err)
	}
	return NewFileStore(filepath.Join(home, ".buildsmith", "tasks"))
}

// BaseDir returns the store's root directory.
func (f *FileStore) BaseDir() string {
	return f.baseDir
}

func (f *FileStore) taskPath(taskID string) string {
	return filepath.Join(f.baseDir, taskID+".json")
}

// Get reads the stored state and revision for a task.
func (f *FileStore) Get(taskID string) (*build.State, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.read(taskID)
}

func (f *FileStore) read(taskID string) (*build.State, int64, error) {
	data, err := os.ReadFile(f.taskPath(taskID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, fmt.Errorf("task %s: %w", taskID, ErrNotFound)
		}
		return nil, 0, err
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, 0, fmt.Errorf("unmarshal task %s: %w", taskID, err)
	}
	return env.State, env.Revision, nil
}

// Put writes state unconditionally, creating the task if needed.
func (f *FileStore) Put(st *build.State) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, rev, err := f.read(st.TaskID)
	if err != nil && !isNotFound(err) {
		return 0, err
	}
	return f.write(st, rev+1)
}

// CompareAndSwap writes state only if the stored revision still equals rev.
// A rev of 0 asserts the task does not exist yet.
func (f *FileStore) CompareAndSwap(st *build.State, rev int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, current, err := f.read(st.TaskID)
	if err != nil && !isNotFound(err) {
		return 0, err
	}
	if current != rev {
		return 0, fmt.Errorf("task %s: %w: have %d, want %d", st.TaskID, ErrRevisionConflict, current, rev)
	}
	return f.write(st, rev+1)
}

func (f *FileStore) write(st *build.State, rev int64) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	if st.CreatedAt == "" {
		st.CreatedAt = now
	}
	st.UpdatedAt = now

	data, err := json.MarshalIndent(envelope{Revision: rev, State: st}, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("marshal task %s: %w", st.TaskID, err)
	}
	data = append(data, '\n')
	if err := writeAtomic(f.taskPath(st.TaskID), data); err != nil {
		return 0, err
	}
	return rev, nil
}

// List returns all stored states sorted by task ID.
func (f *FileStore) List() ([]*build.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := os.ReadDir(f.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read dir %s: %w", f.baseDir, err)
	}

	var states []*build.State
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		taskID := entry.Name()[:len(entry.Name())-len(".json")]
		st, _, err := f.read(taskID)
		if err != nil {
			continue // skip broken entries
		}
		states = append(states, st)
	}

	sort.Slice(states, func(i, j int) bool { return states[i].TaskID < states[j].TaskID })
	return states, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// writeAtomic writes data to path via a temp file in the same directory,
// then renames it into place.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if tmpName != "" {
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename %s -> %s: %w", tmpName, path, err)
	}
	tmpName = ""
	return nil
}
