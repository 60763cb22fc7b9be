package local

import (
	"maps"
	"sync"

	"github.com/zappabad/stockbroker/internal/store"
)

// MemoryStore is a Repository held in memory.
type MemoryStore struct {
	mu       sync.Mutex
	state    *store.GameState
	settings store.Settings
	saves    int
}

var _ Repository = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{settings: store.Settings{Theme: store.DefaultTheme}}
}

func cloneState(s store.GameState) store.GameState {
	s.Portfolio = maps.Clone(s.Portfolio)
	s.CompanyPrices = maps.Clone(s.CompanyPrices)
	return s
}

func (m *MemoryStore) Load() (store.GameState, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		return store.GameState{}, false, nil
	}
	return cloneState(*m.state), true, nil
}

func (m *MemoryStore) Save(state store.GameState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := cloneState(state)
	m.state = &s
	m.saves++
	return nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = nil
	return nil
}

func (m *MemoryStore) LoadSettings() (store.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings, nil
}

func (m *MemoryStore) SaveSettings(s store.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = s
	return nil
}

// Saves returns how many times Save was called.
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
