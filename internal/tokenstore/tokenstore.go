// Package tokenstore persists the admin session token together with the
// moment it was issued. Both values are always written and cleared together.
package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"minimarket/internal/config"
	"minimarket/internal/domain"

	"github.com/redis/go-redis/v9"
)

var ErrUnknownDriver = errors.New("unknown token store driver")

// Store is durable storage for the session credential. Load returns an
// empty session, not an error, when nothing is stored.
type Store interface {
	Load(ctx context.Context) (domain.Session, error)
	Save(ctx context.Context, session domain.Session) error
	Clear(ctx context.Context) error
}

// New builds the store selected by cfg.Driver. The redis driver needs client.
func New(cfg config.TokenStoreConfig, client *redis.Client) (Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemory(), nil
	case "file":
		return NewFile(cfg.Path), nil
	case "redis":
		if client == nil {
			return nil, fmt.Errorf("redis token store requires REDIS_HOST")
		}
		return NewRedis(client, cfg.Prefix), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, cfg.Driver)
	}
}

type memoryStore struct {
	mu      sync.RWMutex
	session domain.Session
}

// NewMemory returns a process-local store
func NewMemory() Store {
	return &memoryStore{}
}

func (m *memoryStore) Load(ctx context.Context) (domain.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session, nil
}

func (m *memoryStore) Save(ctx context.Context, session domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = session
	return nil
}

func (m *memoryStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = domain.Session{}
	return nil
}
