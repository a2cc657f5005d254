// Package draft persists in-progress form state per browser client.
//
// A Backend holds raw blobs keyed by client and draft name; Scope binds one
// client and name into a Store, so every page works against its own
// instance and never shares a key with another page.
package draft

import (
	"context"
	"errors"
	"regexp"
	"sync"
)

var (
	ErrNotFound   = errors.New("draft: not found")
	ErrMalformed  = errors.New("draft: malformed")
	ErrInvalidKey = errors.New("draft: invalid client or name")
)

// Store reads and writes one named draft.
type Store interface {
	Get(ctx context.Context) ([]byte, error)
	Set(ctx context.Context, data []byte) error
	Clear(ctx context.Context) error
}

// Backend is the shared storage behind every scoped Store.
type Backend interface {
	Load(ctx context.Context, clientID, name string) ([]byte, error)
	Save(ctx context.Context, clientID, name string, data []byte) error
	Delete(ctx context.Context, clientID, name string) error
}

var keyRe = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidKey reports whether s is usable as a client id or draft name.
func ValidKey(s string) bool {
	return keyRe.MatchString(s)
}

type scoped struct {
	backend  Backend
	clientID string
	name     string
}

// Scope returns the Store for one client's draft called name.
func Scope(backend Backend, clientID, name string) (Store, error) {
	if !ValidKey(clientID) || !ValidKey(name) {
		return nil, ErrInvalidKey
	}
	return &scoped{backend: backend, clientID: clientID, name: name}, nil
}

func (s *scoped) Get(ctx context.Context) ([]byte, error) {
	return s.backend.Load(ctx, s.clientID, s.name)
}

func (s *scoped) Set(ctx context.Context, data []byte) error {
	return s.backend.Save(ctx, s.clientID, s.name, data)
}

func (s *scoped) Clear(ctx context.Context) error {
	return s.backend.Delete(ctx, s.clientID, s.name)
}

// MemoryBackend keeps drafts for the life of the process.
type MemoryBackend struct {
	mu     sync.RWMutex
	drafts map[string][]byte
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{drafts: make(map[string][]byte)}
}

func memKey(clientID, name string) string {
	return clientID + "/" + name
}

func (m *MemoryBackend) Load(ctx context.Context, clientID, name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.drafts[memKey(clientID, name)]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (m *MemoryBackend) Save(ctx context.Context, clientID, name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drafts[memKey(clientID, name)] = append([]byte(nil), data...)
	return nil
}

func (m *MemoryBackend) Delete(ctx context.Context, clientID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drafts, memKey(clientID, name))
	return nil
}
