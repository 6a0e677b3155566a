// Package artifact persists rendered export artifacts and issues download
// references for them. Two implementations exist: an in-memory store serving
// HMAC-signed local URLs, and a MinIO-backed store issuing presigned URLs.
package artifact

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bookbloom/bookbloom/internal/signing"
)

// ErrNotFound is returned when an artifact key is unknown or already evicted.
var ErrNotFound = errors.New("artifact not found")

// Store is the pluggable artifact storage collaborator of the export
// service. Put returns the downloadReference recorded on the completed job.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string, expiresAt time.Time) (string, error)
	// RemoveExpired deletes artifacts whose lifetime has passed and reports
	// how many were removed. Callers drive the schedule.
	RemoveExpired(ctx context.Context) (int, error)
}

// Object is a stored artifact payload.
type Object struct {
	Data        []byte
	ContentType string
	ExpiresAt   time.Time
}

// MemoryStore keeps artifacts in process memory, matching the ephemeral
// job registry: both vanish together on restart. Download references are
// local paths guarded by an HMAC expiry signature.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]Object
	signer  *signing.Signer

	now func() time.Time
}

// NewMemoryStore constructs a MemoryStore signing URLs with signer.
func NewMemoryStore(signer *signing.Signer) *MemoryStore {
	return &MemoryStore{
		objects: make(map[string]Object),
		signer:  signer,
		now:     time.Now,
	}
}

// Put stores the artifact and returns its signed download path,
// "/exports/{key}?expires=...&signature=...".
func (m *MemoryStore) Put(_ context.Context, key string, data []byte, contentType string, expiresAt time.Time) (string, error) {
	m.mu.Lock()
	m.objects[key] = Object{Data: data, ContentType: contentType, ExpiresAt: expiresAt.UTC()}
	m.mu.Unlock()
	return SignedPath(m.signer, key, expiresAt), nil
}

// Get returns the stored artifact for key.
func (m *MemoryStore) Get(key string) (Object, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	if !ok {
		return Object{}, ErrNotFound
	}
	return obj, nil
}

// RemoveExpired drops artifacts whose expiry has passed.
func (m *MemoryStore) RemoveExpired(_ context.Context) (int, error) {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for key, obj := range m.objects {
		if obj.ExpiresAt.Before(now) {
			delete(m.objects, key)
			removed++
		}
	}
	return removed, nil
}
