// Package prefs persists a user's liked and disliked titles as JSON.
package prefs

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// DefaultPath matches the data directory layout of the chat app
const DefaultPath = "data/user_prefs.json"

// Set is the persisted preference document. A title is never in both lists.
type Set struct {
	Liked    []string `json:"liked"`
	Disliked []string `json:"disliked"`
}

// Has reports which side, if any, holds title (compared after trimming)
func (s Set) Has(title string) (liked, disliked bool) {
	t := strings.TrimSpace(title)
	return contains(s.Liked, t), contains(s.Disliked, t)
}

// Store reads and writes a preference file. Writes from one process are
// serialized; each save replaces the file atomically.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore binds a store to path; the file is created on first access
func NewStore(path string) *Store {
	if path == "" {
		path = DefaultPath
	}
	return &Store{path: path}
}

// Path returns the preference file path
func (s *Store) Path() string {
	return s.path
}

// Load returns the current preferences, creating an empty file when none
// exists. An unreadable or malformed file yields empty preferences.
func (s *Store) Load() (Set, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.loadUnsafe()
}

func (s *Store) loadUnsafe() (Set, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		empty := Set{Liked: []string{}, Disliked: []string{}}
		if err := s.saveUnsafe(empty); err != nil {
			return empty, err
		}
		return empty, nil
	}
	if err != nil {
		return Set{Liked: []string{}, Disliked: []string{}}, nil
	}

	var set Set
	if err := json.Unmarshal(data, &set); err != nil {
		return Set{Liked: []string{}, Disliked: []string{}}, nil
	}
	if set.Liked == nil {
		set.Liked = []string{}
	}
	if set.Disliked == nil {
		set.Disliked = []string{}
	}
	return set, nil
}

// RecordFeedback adds title to the liked or disliked list and removes it
// from the other. Blank titles are ignored.
func (s *Store) RecordFeedback(title string, liked bool) (Set, error) {
	t := strings.TrimSpace(title)

	s.mu.Lock()
	defer s.mu.Unlock()

	set, err := s.loadUnsafe()
	if err != nil {
		return set, err
	}
	if t == "" {
		return set, nil
	}

	if liked {
		set.Liked = appendUnique(set.Liked, t)
		set.Disliked = remove(set.Disliked, t)
	} else {
		set.Disliked = appendUnique(set.Disliked, t)
		set.Liked = remove(set.Liked, t)
	}

	if err := s.saveUnsafe(set); err != nil {
		return set, err
	}
	return set, nil
}

func (s *Store) saveUnsafe(set Set) error {
	data, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}
	return writeFileAtomic(s.path, append(data, '\n'))
}

// writeFileAtomic writes to a sibling temp file and renames it over path
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create preferences directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".prefs-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write preferences: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close preferences: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace preferences: %w", err)
	}
	return nil
}

func contains(list []string, t string) bool {
	for _, v := range list {
		if v == t {
			return true
		}
	}
	return false
}

func appendUnique(list []string, t string) []string {
	if contains(list, t) {
		return list
	}
	return append(list, t)
}

func remove(list []string, t string) []string {
	out := list[:0]
	for _, v := range list {
		if v != t {
			out = append(out, v)
		}
	}
	return out
}
