// internal/session/store.go
package session

import (
	"errors"
	"sort"
	"sync"

	"github.com/Gyanano/RSerialDebugAssistant/internal/model"
)

// ErrNotFound is returned when loading a session name that was never saved
var ErrNotFound = errors.New("session not found")

// Store keeps named serial configurations in memory so a frequently used
// line setup can be recalled by name. It is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]model.SerialConfig
}

// NewStore creates an empty session store
func NewStore() *Store {
	return &Store{sessions: make(map[string]model.SerialConfig)}
}

// Save stores a configuration under the given name, replacing any previous
// configuration with that name.
func (s *Store) Save(name string, cfg model.SerialConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[name] = cfg
}

// Load returns the configuration saved under name
func (s *Store) Load(name string) (model.SerialConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.sessions[name]
	if !ok {
		return model.SerialConfig{}, ErrNotFound
	}
	return cfg, nil
}

// Delete removes the session with the given name
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[name]; !ok {
		return ErrNotFound
	}
	delete(s.sessions, name)
	return nil
}

// List returns all saved session names, sorted
func (s *Store) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.sessions))
	for name := range s.sessions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
