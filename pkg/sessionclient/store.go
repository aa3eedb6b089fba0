package sessionclient

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store persists the client's credentials between runs: the bearer token from
// a completed social login and the locally generated guest ID.
type Store interface {
	Token() (string, error)
	SetToken(token string) error
	ClearToken() error
	GuestID() (string, error)
	SetGuestID(guestID string) error
}

// MemoryStore keeps credentials in process memory. Suitable for tests and
// short-lived tools.
type MemoryStore struct {
	mu      sync.RWMutex
	token   string
	guestID string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Token() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, nil
}

func (s *MemoryStore) SetToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

func (s *MemoryStore) ClearToken() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	return nil
}

func (s *MemoryStore) GuestID() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.guestID, nil
}

func (s *MemoryStore) SetGuestID(guestID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.guestID = guestID
	return nil
}

// FileStore persists credentials as a JSON file, mirroring how a browser
// client would use local storage.
type FileStore struct {
	mu   sync.Mutex
	path string
}

type fileState struct {
	Token   string `json:"token,omitempty"`
	GuestID string `json:"guest_id,omitempty"`
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, err := s.load()
	if err != nil {
		return "", err
	}
	return state.Token, nil
}

func (s *FileStore) SetToken(token string) error {
	return s.update(func(state *fileState) { state.Token = token })
}

func (s *FileStore) ClearToken() error {
	return s.update(func(state *fileState) { state.Token = "" })
}

func (s *FileStore) GuestID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, err := s.load()
	if err != nil {
		return "", err
	}
	return state.GuestID, nil
}

func (s *FileStore) SetGuestID(guestID string) error {
	return s.update(func(state *fileState) { state.GuestID = guestID })
}

func (s *FileStore) update(mutate func(*fileState)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.load()
	if err != nil {
		return err
	}
	mutate(state)

	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal session state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session state dir: %w", err)
	}
	if err := os.WriteFile(s.path, payload, 0o600); err != nil {
		return fmt.Errorf("write session state: %w", err)
	}
	return nil
}

func (s *FileStore) load() (*fileState, error) {
	payload, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return &fileState{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session state: %w", err)
	}
	var state fileState
	if err := json.Unmarshal(payload, &state); err != nil {
		// A corrupt state file degrades to a fresh anonymous session rather
		// than wedging the client.
		return &fileState{}, nil
	}
	return &state, nil
}
