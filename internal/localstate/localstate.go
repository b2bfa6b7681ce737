// Package localstate persists the handful of device-local values that belong
// to this installation rather than to a user's data — currently just the id
// of the last active canvas. Kept out of the canvas repository on purpose:
// wiping the database must not forget which canvas the user had open, and
// vice versa.
package localstate

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// state is the on-disk layout: a tiny JSON object so future slots can be
// added without a format change.
type state struct {
	LastCanvasID string `json:"lastCanvasId"`
}

// Store reads and writes the local state file. Reads come from memory after
// the initial load; every Set rewrites the file.
type Store struct {
	mu     sync.Mutex
	path   string
	st     state
	logger *slog.Logger
}

// New opens (or lazily creates) the state file at path. A missing or
// unreadable file is treated as empty state — local state is a convenience,
// never a reason to fail startup.
func New(path string, logger *slog.Logger) *Store {
	s := &Store{path: path, logger: logger}

	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("local state unreadable, starting empty", slog.String("error", err.Error()))
		}
		return s
	}
	if err := json.Unmarshal(raw, &s.st); err != nil {
		logger.Warn("local state corrupt, starting empty", slog.String("error", err.Error()))
		s.st = state{}
	}
	return s
}

// Load returns the remembered last-active canvas id ("" if none).
func (s *Store) Load() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.LastCanvasID
}

// Store remembers the active canvas id and flushes it to disk. Write
// failures are logged and otherwise ignored — worst case the next launch
// starts on a fresh canvas.
func (s *Store) Store(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.st.LastCanvasID = id
	s.flushLocked()
}

func (s *Store) flushLocked() {
	raw, err := json.MarshalIndent(&s.st, "", "  ")
	if err != nil {
		s.logger.Warn("encoding local state failed", slog.String("error", err.Error()))
		return
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		s.logger.Warn("creating local state dir failed", slog.String("error", err.Error()))
		return
	}
	if err := os.WriteFile(s.path, raw, 0644); err != nil {
		s.logger.Warn("writing local state failed", slog.String("error", err.Error()))
	}
}
