package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

const stateFileName = "state.json"

// State is everything the client keeps between runs.
type State struct {
	Token    string `json:"token,omitempty"`
	Exchange string `json:"exchange,omitempty"`
	DeviceID string `json:"device_id,omitempty"`
}

// Store persists State as a JSON file readable only by the user.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore returns a store rooted at dir. The directory is created on first save.
func NewStore(dir string) *Store {
	return &Store{path: filepath.Join(dir, stateFileName)}
}

// Path returns the state file location.
func (s *Store) Path() string {
	return s.path
}

// Load returns the saved state. A missing file yields an empty state.
func (s *Store) Load() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() (State, error) {
	var st State

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return st, nil
	}
	if err != nil {
		return st, fmt.Errorf("failed to read state file: %w", err)
	}

	if err := json.Unmarshal(data, &st); err != nil {
		return st, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return st, nil
}

func (s *Store) save(st State) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	return nil
}

// update applies fn to the saved state and writes it back.
func (s *Store) update(fn func(*State)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		return err
	}
	fn(&st)
	return s.save(st)
}

func (s *Store) SaveToken(token string) error {
	return s.update(func(st *State) { st.Token = token })
}

func (s *Store) SaveExchange(code string) error {
	return s.update(func(st *State) { st.Exchange = code })
}

// Clear forgets the session token and exchange preference. The device id is kept
// so guest sessions from this machine stay correlated.
func (s *Store) Clear() error {
	return s.update(func(st *State) {
		st.Token = ""
		st.Exchange = ""
	})
}

// DeviceID returns the persisted device id, generating one on first use.
func (s *Store) DeviceID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		return "", err
	}
	if st.DeviceID != "" {
		return st.DeviceID, nil
	}

	st.DeviceID = uuid.NewString()
	if err := s.save(st); err != nil {
		return "", err
	}
	return st.DeviceID, nil
}
