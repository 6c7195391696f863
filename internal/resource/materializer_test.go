package resource

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mmcdole/estate/internal/domain"
	"github.com/mmcdole/estate/internal/log"
	"github.com/mmcdole/estate/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMaterializer(t *testing.T) *Materializer {
	t.Helper()
	s, err := store.NewSessionStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return NewMaterializer(s, log.NullLogger())
}

func TestMaterializer_MaterializeAndOpen(t *testing.T) {
	t.Parallel()

	m := newTestMaterializer(t)
	p := domain.Payload{ContentType: "image/png", Data: []byte("png-bytes")}

	h, err := m.Materialize(context.Background(), p)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(h), "blob:"))
	assert.Equal(t, 1, m.Live())

	got, err := m.Open(h)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestMaterializer_DistinctHandles(t *testing.T) {
	t.Parallel()

	m := newTestMaterializer(t)
	p := domain.Payload{Data: []byte("same")}

	h1, err := m.Materialize(context.Background(), p)
	require.NoError(t, err)
	h2, err := m.Materialize(context.Background(), p)
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
	assert.Equal(t, 2, m.Live())
}

func TestMaterializer_ReleaseTwiceIsNoOp(t *testing.T) {
	t.Parallel()

	m := newTestMaterializer(t)
	h, err := m.Materialize(context.Background(), domain.Payload{Data: []byte("x")})
	require.NoError(t, err)

	m.Release(h)
	m.Release(h)
	m.Release("blob:unknown")

	assert.Zero(t, m.Live())
	_, err = m.Open(h)
	assert.ErrorIs(t, err, domain.ErrHandleReleased)
}

func TestMaterializer_CancelledContext(t *testing.T) {
	t.Parallel()

	m := newTestMaterializer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Materialize(ctx, domain.Payload{Data: []byte("x")})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, m.Live())
}

func TestMaterializer_StoreFailure(t *testing.T) {
	t.Parallel()

	m := NewMaterializer(&failingStore{}, log.NullLogger())
	_, err := m.Materialize(context.Background(), domain.Payload{Data: []byte("x")})

	require.Error(t, err)
	assert.Zero(t, m.Live())
}

func TestMaterializer_ReleaseAll(t *testing.T) {
	t.Parallel()

	m := newTestMaterializer(t)
	for i := 0; i < 3; i++ {
		_, err := m.Materialize(context.Background(), domain.Payload{Data: []byte{byte(i)}})
		require.NoError(t, err)
	}

	m.ReleaseAll()
	assert.Zero(t, m.Live())
}

type failingStore struct{}

func (failingStore) GetBlob(string) (domain.Payload, bool) { return domain.Payload{}, false }
func (failingStore) SaveBlob(string, domain.Payload) error { return errors.New("disk full") }
func (failingStore) DeleteBlob(string)                     {}
