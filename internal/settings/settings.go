// Package settings persists the feature flags and the last-imported column
// layout in one small JSON document. The file is loaded lazily and rewritten
// wholesale on every change; all access goes through one mutex so concurrent
// requests never interleave a read-modify-write.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// document is the on-disk shape of the settings file.
type document struct {
	UserEditingEnabled   bool     `json:"user_editing_enabled"`
	DirectoryViewEnabled bool     `json:"directory_view_enabled"`
	HeaderOrder          []string `json:"header_order,omitempty"`
}

func defaults() document {
	return document{
		UserEditingEnabled:   true,
		DirectoryViewEnabled: false,
	}
}

// Store reads and writes the settings document.
type Store struct {
	path string

	mu     sync.Mutex
	loaded bool
	doc    document
}

// NewStore creates a settings store backed by the file at path. The file is
// created with defaults on the first write if it does not exist.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// load populates s.doc from disk once. A missing file yields defaults.
// Callers must hold s.mu.
func (s *Store) load() error {
	if s.loaded {
		return nil
	}
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.doc = defaults()
			s.loaded = true
			return nil
		}
		return fmt.Errorf("read settings: %w", err)
	}
	doc := defaults()
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse settings: %w", err)
	}
	s.doc = doc
	s.loaded = true
	return nil
}

// save writes the whole document back to disk via a temp file and rename so a
// crash mid-write never leaves a truncated settings file.
// Callers must hold s.mu.
func (s *Store) save() error {
	raw, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".settings-*")
	if err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write settings: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

// Flags is the feature-flag view of the settings document.
type Flags struct {
	UserEditingEnabled   bool `json:"user_editing_enabled"`
	DirectoryViewEnabled bool `json:"directory_view_enabled"`
}

// Flags returns the current feature flags.
func (s *Store) Flags() (Flags, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return Flags{}, err
	}
	return Flags{
		UserEditingEnabled:   s.doc.UserEditingEnabled,
		DirectoryViewEnabled: s.doc.DirectoryViewEnabled,
	}, nil
}

// SetFlags replaces both feature flags and persists the document.
func (s *Store) SetFlags(f Flags) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return err
	}
	s.doc.UserEditingEnabled = f.UserEditingEnabled
	s.doc.DirectoryViewEnabled = f.DirectoryViewEnabled
	return s.save()
}

// UserEditingEnabled reports whether alumni may edit their own records.
func (s *Store) UserEditingEnabled() (bool, error) {
	f, err := s.Flags()
	return f.UserEditingEnabled, err
}

// DirectoryViewEnabled reports whether the free-text directory is browsable.
func (s *Store) DirectoryViewEnabled() (bool, error) {
	f, err := s.Flags()
	return f.DirectoryViewEnabled, err
}

// HeaderOrder returns the literal header order of the most recent successful
// import, or nil if no import has recorded one.
func (s *Store) HeaderOrder() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return nil, err
	}
	if len(s.doc.HeaderOrder) == 0 {
		return nil, nil
	}
	out := make([]string, len(s.doc.HeaderOrder))
	copy(out, s.doc.HeaderOrder)
	return out, nil
}

// SetHeaderOrder records the header order seen by the import pipeline so a
// later export can reproduce the original column layout.
func (s *Store) SetHeaderOrder(order []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return err
	}
	s.doc.HeaderOrder = make([]string, len(order))
	copy(s.doc.HeaderOrder, order)
	return s.save()
}
