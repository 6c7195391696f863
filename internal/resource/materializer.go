package resource

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/mmcdole/estate/internal/domain"
)

const handlePrefix = "blob:"

type blobStore interface {
	GetBlob(key string) (domain.Payload, bool)
	SaveBlob(key string, p domain.Payload) error
	DeleteBlob(key string)
}

// Materializer turns fetched binary payloads into revocable handles.
// It owns every handle it issues; a handle that is never released stays
// registered (and its bytes stored) until ReleaseAll.
type Materializer struct {
	store  blobStore
	logger *slog.Logger

	mu   sync.Mutex
	live map[domain.Handle]struct{}
}

// NewMaterializer creates a Materializer backed by store
func NewMaterializer(store blobStore, logger *slog.Logger) *Materializer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Materializer{
		store:  store,
		logger: logger,
		live:   make(map[domain.Handle]struct{}),
	}
}

// Materialize stores a fully fetched payload and returns its handle
func (m *Materializer) Materialize(ctx context.Context, p domain.Payload) (domain.Handle, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	h := domain.Handle(handlePrefix + uuid.NewString())
	if err := m.store.SaveBlob(string(h), p); err != nil {
		return "", fmt.Errorf("failed to store blob: %w", err)
	}

	m.mu.Lock()
	m.live[h] = struct{}{}
	m.mu.Unlock()

	m.logger.Debug("materialized resource", "handle", h, "bytes", len(p.Data), "contentType", p.ContentType)
	return h, nil
}

// Release revokes h. Releasing an unknown or already released handle is a no-op.
func (m *Materializer) Release(h domain.Handle) {
	m.mu.Lock()
	_, ok := m.live[h]
	delete(m.live, h)
	m.mu.Unlock()

	if !ok {
		return
	}
	m.store.DeleteBlob(string(h))
	m.logger.Debug("released resource", "handle", h)
}

// ReleaseEntries releases both handles of every entry
func (m *Materializer) ReleaseEntries(entries []domain.GalleryEntry) {
	for _, e := range entries {
		m.Release(e.Source)
		m.Release(e.Thumbnail)
	}
}

// Open returns the content behind h
func (m *Materializer) Open(h domain.Handle) (domain.Payload, error) {
	m.mu.Lock()
	_, ok := m.live[h]
	m.mu.Unlock()
	if !ok {
		return domain.Payload{}, domain.ErrHandleReleased
	}

	p, ok := m.store.GetBlob(string(h))
	if !ok {
		return domain.Payload{}, domain.ErrHandleReleased
	}
	return p, nil
}

// Live returns the number of unreleased handles
func (m *Materializer) Live() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.live)
}

// ReleaseAll revokes every outstanding handle
func (m *Materializer) ReleaseAll() {
	m.mu.Lock()
	handles := make([]domain.Handle, 0, len(m.live))
	for h := range m.live {
		handles = append(handles, h)
	}
	m.mu.Unlock()

	for _, h := range handles {
		m.Release(h)
	}
	if len(handles) > 0 {
		m.logger.Info("released outstanding resources", "count", len(handles))
	}
}
