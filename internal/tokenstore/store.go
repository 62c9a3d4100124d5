// Package tokenstore persists the single bearer token shutter authenticates
// with. Nothing here talks to the photo service or validates the token.
package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Key is the fixed identifier the token is stored under.
const Key = "shutter.bearer_token"

// ErrNoToken is returned by Get when no token has been stored.
var ErrNoToken = errors.New("no token stored")

// Store reads and writes the bearer token. Set with an empty token clears it.
type Store interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, token string) error
}

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Options select and configure a backend.
type Options struct {
	Backend  string
	Dir      string
	RedisURL string
}

// Open builds the backend named in opts. An empty backend means file.
func Open(opts Options) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case "", BackendFile:
		return NewFileStore(opts.Dir)
	case BackendRedis:
		return NewRedisStore(opts.RedisURL)
	case BackendMemory:
		return &MemoryStore{}, nil
	default:
		return nil, fmt.Errorf("unknown token store backend %q", opts.Backend)
	}
}

// Has reports whether s currently holds a token.
func Has(ctx context.Context, s Store) (bool, error) {
	_, err := s.Get(ctx)
	if errors.Is(err, ErrNoToken) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// MemoryStore keeps the token in process memory. The zero value is ready.
type MemoryStore struct {
	mu    sync.RWMutex
	token string
}

func (m *MemoryStore) Get(context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.token == "" {
		return "", ErrNoToken
	}
	return m.token, nil
}

func (m *MemoryStore) Set(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}
