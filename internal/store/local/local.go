// Package local persists the game snapshot and settings on the device.
package local

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/zappabad/stockbroker/internal/store"
)

const (
	gameStateFile = "gamestate.json"
	settingsFile  = "settings.json"
)

// Repository loads and saves device-local state.
type Repository interface {
	// Load returns the saved snapshot; ok is false when none exists.
	Load() (state store.GameState, ok bool, err error)
	Save(state store.GameState) error
	Clear() error

	LoadSettings() (store.Settings, error)
	SaveSettings(s store.Settings) error
}

// FileStore keeps each document as a JSON file in one directory.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

var _ Repository = (*FileStore)(nil)

// NewFileStore creates dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the data directory.
func (f *FileStore) Dir() string {
	return f.dir
}

// Load reads the game snapshot.
func (f *FileStore) Load() (store.GameState, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var state store.GameState
	ok, err := readJSON(filepath.Join(f.dir, gameStateFile), &state)
	if err != nil || !ok {
		return store.GameState{}, false, err
	}
	return state, true, nil
}

// Save writes the game snapshot atomically.
func (f *FileStore) Save(state store.GameState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return writeJSON(filepath.Join(f.dir, gameStateFile), state)
}

// Clear removes the game snapshot. Settings are kept.
func (f *FileStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	err := os.Remove(filepath.Join(f.dir, gameStateFile))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clear game state: %w", err)
	}
	return nil
}

// LoadSettings reads settings, falling back to defaults.
func (f *FileStore) LoadSettings() (store.Settings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s := store.Settings{Theme: store.DefaultTheme}
	if _, err := readJSON(filepath.Join(f.dir, settingsFile), &s); err != nil {
		return store.Settings{Theme: store.DefaultTheme}, err
	}
	if s.Theme == "" {
		s.Theme = store.DefaultTheme
	}
	return s, nil
}

// SaveSettings writes settings atomically.
func (f *FileStore) SaveSettings(s store.Settings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return writeJSON(filepath.Join(f.dir, settingsFile), s)
}

func readJSON(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return true, nil
}

// writeJSON replaces path via a temp file so a crash never leaves a torn document.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}
