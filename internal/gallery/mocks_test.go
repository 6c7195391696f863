package gallery

import (
	"context"
	"sync"
	"testing"

	"github.com/mmcdole/estate/internal/domain"
	"github.com/mmcdole/estate/internal/log"
	"github.com/mmcdole/estate/internal/resource"
	"github.com/mmcdole/estate/internal/store"
	"github.com/stretchr/testify/require"
)

// imageRepoMock implements domain.ImageRepository
type imageRepoMock struct {
	GetImageMetadataFunc func(ctx context.Context, listingID string) ([]domain.ImageRef, error)
	GetImageBinaryFunc   func(ctx context.Context, imageID string) (domain.Payload, error)

	mu          sync.Mutex
	binaryCalls []string
}

func (m *imageRepoMock) GetImageMetadata(ctx context.Context, listingID string) ([]domain.ImageRef, error) {
	return m.GetImageMetadataFunc(ctx, listingID)
}

func (m *imageRepoMock) GetImageBinary(ctx context.Context, imageID string) (domain.Payload, error) {
	m.mu.Lock()
	m.binaryCalls = append(m.binaryCalls, imageID)
	m.mu.Unlock()
	return m.GetImageBinaryFunc(ctx, imageID)
}

func (m *imageRepoMock) BinaryCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.binaryCalls...)
}

func refsFor(listingID string, ids ...string) []domain.ImageRef {
	refs := make([]domain.ImageRef, len(ids))
	for i, id := range ids {
		refs[i] = domain.ImageRef{ID: id, ListingID: listingID, Order: i, ContentType: "image/jpeg"}
	}
	return refs
}

// payloadFor encodes the image id as content so tests can tell photos apart
func payloadFor(imageID string) domain.Payload {
	return domain.Payload{ContentType: "image/jpeg", Data: []byte(imageID)}
}

func newTestMaterializer(t *testing.T) *resource.Materializer {
	t.Helper()
	s, err := store.NewSessionStore("")
	require.NoError(t, err)
	return resource.NewMaterializer(s, log.NullLogger())
}

// contents resolves every entry back to the image id it was built from
func contents(t *testing.T, m *resource.Materializer, entries []domain.GalleryEntry) []string {
	t.Helper()
	out := make([]string, len(entries))
	for i, e := range entries {
		p, err := m.Open(e.Source)
		require.NoError(t, err)
		out[i] = string(p.Data)
	}
	return out
}
