package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"minimarket/internal/domain"

	"gopkg.in/yaml.v3"
)

type fileStore struct {
	mu   sync.Mutex
	path string
}

// NewFile returns a store backed by a small YAML document at path
func NewFile(path string) Store {
	return &fileStore{path: path}
}

func (f *fileStore) Load(ctx context.Context) (domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	raw, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.Session{}, nil
		}
		return domain.Session{}, fmt.Errorf("failed to read session file: %w", err)
	}

	var session domain.Session
	if err := yaml.Unmarshal(raw, &session); err != nil {
		return domain.Session{}, fmt.Errorf("failed to parse session file: %w", err)
	}
	return session, nil
}

func (f *fileStore) Save(ctx context.Context, session domain.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	raw, err := yaml.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	// write-then-rename keeps token and timestamp consistent on crash
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := os.Rename(tmp, filepath.Clean(f.path)); err != nil {
		return fmt.Errorf("failed to replace session file: %w", err)
	}
	return nil
}

func (f *fileStore) Clear(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}
