package editor

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/mmcdole/estate/internal/domain"
	"github.com/mmcdole/estate/internal/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// commitRecorder records every partial update sent to the server
type commitRecorder struct {
	mu    sync.Mutex
	calls []map[string]any
	err   error
}

func (r *commitRecorder) commit(ctx context.Context, fields map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, fields)
	return r.err
}

func (r *commitRecorder) Calls() []map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]map[string]any(nil), r.calls...)
}

func testFields() []Field {
	return []Field{
		{Key: "title", Label: "Title", Type: Text, Value: "Loft"},
		{Key: "price", Label: "Price", Type: Number, Value: 250000.0},
	}
}

func newTestEditor(commit CommitFunc) *Editor {
	return New(testFields(), commit, log.NullLogger())
}

func TestEditor_UnchangedValueSendsNothing(t *testing.T) {
	t.Parallel()

	rec := &commitRecorder{}
	e := newTestEditor(rec.commit)

	var changes []domain.Change
	e.SubscribeChanges(func(c domain.Change) { changes = append(changes, c) })

	require.NoError(t, e.Begin("title"))
	require.NoError(t, e.SetBuffer("Loft"))
	sent, err := e.Commit(context.Background())

	require.NoError(t, err)
	assert.False(t, sent)
	assert.Empty(t, rec.Calls())
	assert.Empty(t, changes)
	f, _ := e.Field("title")
	assert.Equal(t, Viewing, f.State)
	_, active := e.Active()
	assert.False(t, active)
}

func TestEditor_SuccessEmitsSingleChange(t *testing.T) {
	t.Parallel()

	rec := &commitRecorder{}
	e := newTestEditor(rec.commit)

	var changes []domain.Change
	e.SubscribeChanges(func(c domain.Change) { changes = append(changes, c) })

	require.NoError(t, e.Begin("title"))
	require.NoError(t, e.SetBuffer("Sunny Loft"))
	sent, err := e.Commit(context.Background())

	require.NoError(t, err)
	assert.True(t, sent)
	assert.Equal(t, []map[string]any{{"title": "Sunny Loft"}}, rec.Calls())
	assert.Equal(t, []domain.Change{{Key: "title", Value: "Sunny Loft"}}, changes)

	f, _ := e.Field("title")
	assert.Equal(t, Viewing, f.State)
	assert.Equal(t, "Sunny Loft", f.Value)
}

func TestEditor_FailureRollsBack(t *testing.T) {
	t.Parallel()

	rec := &commitRecorder{err: domain.ErrServerOffline}
	e := newTestEditor(rec.commit)

	var states []State
	e.SubscribeState(func(f FieldState) { states = append(states, f.State) })
	changed := false
	e.SubscribeChanges(func(domain.Change) { changed = true })

	require.NoError(t, e.Begin("price"))
	require.NoError(t, e.SetBuffer(300000))
	sent, err := e.Commit(context.Background())

	require.ErrorIs(t, err, domain.ErrServerOffline)
	assert.False(t, sent)
	assert.False(t, changed)
	assert.Len(t, rec.Calls(), 1)

	f, _ := e.Field("price")
	assert.Equal(t, Viewing, f.State)
	assert.Equal(t, 250000.0, f.Value)
	assert.Nil(t, f.Pending)
	assert.Equal(t, []State{Editing, Editing, Committing, RolledBack, Viewing}, states)
}

func TestEditor_ShowsPendingValueWhileCommitting(t *testing.T) {
	t.Parallel()

	inFlight := make(chan struct{})
	release := make(chan struct{})
	e := newTestEditor(func(ctx context.Context, fields map[string]any) error {
		close(inFlight)
		<-release
		return nil
	})

	require.NoError(t, e.Begin("title"))
	require.NoError(t, e.SetBuffer("New"))

	done := make(chan error, 1)
	go func() {
		_, err := e.Commit(context.Background())
		done <- err
	}()
	<-inFlight

	f, _ := e.Field("title")
	assert.Equal(t, Committing, f.State)
	assert.Equal(t, "New", f.Display())
	assert.Equal(t, "Loft", f.Value)

	// the committing field still blocks other edits
	assert.ErrorIs(t, e.Begin("price"), domain.ErrEditInProgress)
	e.Cancel()

	close(release)
	require.NoError(t, <-done)
	f, _ = e.Field("title")
	assert.Equal(t, "New", f.Display())
}

func TestEditor_SecondBeginIsRejected(t *testing.T) {
	t.Parallel()

	e := newTestEditor((&commitRecorder{}).commit)

	require.NoError(t, e.Begin("title"))
	require.NoError(t, e.SetBuffer("draft"))

	err := e.Begin("price")

	require.ErrorIs(t, err, domain.ErrEditInProgress)
	title, _ := e.Field("title")
	assert.Equal(t, Editing, title.State)
	assert.Equal(t, "draft", title.Buffer)
	price, _ := e.Field("price")
	assert.Equal(t, Viewing, price.State)
	key, ok := e.Active()
	assert.True(t, ok)
	assert.Equal(t, "title", key)
}

func TestEditor_CancelDiscardsBuffer(t *testing.T) {
	t.Parallel()

	rec := &commitRecorder{}
	e := newTestEditor(rec.commit)

	require.NoError(t, e.Begin("title"))
	require.NoError(t, e.SetBuffer("draft"))
	e.Cancel()

	f, _ := e.Field("title")
	assert.Equal(t, Viewing, f.State)
	assert.Equal(t, "Loft", f.Display())
	assert.Nil(t, f.Buffer)
	assert.Empty(t, rec.Calls())

	require.NoError(t, e.Begin("price"))
}

func TestEditor_NotEditing(t *testing.T) {
	t.Parallel()

	e := newTestEditor((&commitRecorder{}).commit)

	assert.ErrorIs(t, e.SetBuffer("x"), domain.ErrNotEditing)
	_, err := e.Commit(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotEditing)
	assert.NotPanics(t, e.Cancel)
}

func TestEditor_UnknownField(t *testing.T) {
	t.Parallel()

	e := newTestEditor((&commitRecorder{}).commit)

	assert.ErrorIs(t, e.Begin("nope"), domain.ErrUnknownField)
	_, ok := e.Field("nope")
	assert.False(t, ok)
}

func TestEditor_NumberInput(t *testing.T) {
	t.Parallel()

	rec := &commitRecorder{}
	e := newTestEditor(rec.commit)

	require.NoError(t, e.Begin("price"))
	require.ErrorIs(t, e.SetBuffer("cheap"), domain.ErrInvalidValue)

	// same number typed as text is not a change
	require.NoError(t, e.SetBuffer(" 250000 "))
	sent, err := e.Commit(context.Background())
	require.NoError(t, err)
	assert.False(t, sent)

	require.NoError(t, e.Begin("price"))
	require.NoError(t, e.SetBuffer("199000.5"))
	sent, err = e.Commit(context.Background())
	require.NoError(t, err)
	assert.True(t, sent)
	assert.Equal(t, []map[string]any{{"price": 199000.5}}, rec.Calls())
}

func TestEditor_ErrorsAreWrapped(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	e := newTestEditor(func(ctx context.Context, fields map[string]any) error { return boom })

	require.NoError(t, e.Begin("title"))
	require.NoError(t, e.SetBuffer("x"))
	_, err := e.Commit(context.Background())

	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "title")
}

func TestListingFields(t *testing.T) {
	t.Parallel()

	l := domain.Listing{
		Title:        "Loft",
		Price:        100000,
		Area:         50,
		PropertyType: domain.PropertyApartment,
		BuildYear:    "1999",
	}

	fields := ListingFields(l)

	byKey := make(map[string]Field, len(fields))
	for _, f := range fields {
		byKey[f.Key] = f
	}
	assert.Equal(t, "Loft", byKey[domain.FieldTitle].Value)
	assert.Equal(t, 100000.0, byKey[domain.FieldPrice].Value)
	assert.Equal(t, Number, byKey[domain.FieldArea].Type)
	assert.Equal(t, "Apartment", byKey[domain.FieldPropertyType].Value)
	assert.Equal(t, "1999", byKey[domain.FieldBuildYear].Value)

	// every editable field can be applied back to a listing
	for _, f := range fields {
		assert.NoError(t, l.Apply(domain.Change{Key: f.Key, Value: f.Value}), f.Key)
	}
}
