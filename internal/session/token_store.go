package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/healthmate/companion/internal/security"
)

// TokenStore persists the session token across process restarts
type TokenStore interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// FileTokenStore keeps the token in a single file, sealed when a sealer is configured
type FileTokenStore struct {
	path   string
	sealer *security.TokenSealer
}

// NewFileTokenStore creates a store at path. sealer may be nil.
func NewFileTokenStore(path string, sealer *security.TokenSealer) *FileTokenStore {
	return &FileTokenStore{path: path, sealer: sealer}
}

// Load returns the persisted token, or "" when none is stored
func (f *FileTokenStore) Load() (string, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read token file: %w", err)
	}

	stored := strings.TrimSpace(string(data))
	if f.sealer == nil {
		return stored, nil
	}
	return f.sealer.Open(stored)
}

// Save writes the token with owner-only permissions
func (f *FileTokenStore) Save(token string) error {
	stored := token
	if f.sealer != nil {
		sealed, err := f.sealer.Seal(token)
		if err != nil {
			return fmt.Errorf("failed to seal token: %w", err)
		}
		stored = sealed
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	if err := os.WriteFile(f.path, []byte(stored), 0o600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

// Clear removes the token file
func (f *FileTokenStore) Clear() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove token file: %w", err)
	}
	return nil
}

// MemoryTokenStore is a TokenStore that lives only as long as the process
type MemoryTokenStore struct {
	mu    sync.Mutex
	token string
}

func (m *MemoryTokenStore) Load() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *MemoryTokenStore) Save(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *MemoryTokenStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}
