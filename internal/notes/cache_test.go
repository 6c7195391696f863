package notes

import (
	"fmt"
	"testing"

	"github.com/mmcdole/estate/internal/domain"
	"github.com/mmcdole/estate/internal/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func note(id, text string) domain.Note {
	return domain.Note{ID: id, ListingID: "l1", UserID: 7, Text: text}
}

func ids(notes []domain.Note) []string {
	out := make([]string, len(notes))
	for i, n := range notes {
		out[i] = n.ID
	}
	return out
}

func ptr[T any](v T) *T { return &v }

func TestCache_ReplaceAllKeepsServerOrder(t *testing.T) {
	t.Parallel()

	c := NewCache(log.NullLogger())
	a, b := note("a", "first"), note("b", "second")

	require.NoError(t, c.ReplaceAll([]domain.Note{b, a}))

	assert.Equal(t, []string{"b", "a"}, ids(c.All()))
	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, a, got)
}

func TestCache_ReplaceAllRejectsDuplicates(t *testing.T) {
	t.Parallel()

	c := NewCache(log.NullLogger())
	require.NoError(t, c.ReplaceAll([]domain.Note{note("x", "")}))

	err := c.ReplaceAll([]domain.Note{note("a", ""), note("a", "")})

	require.ErrorIs(t, err, domain.ErrDuplicateNote)
	assert.Equal(t, []string{"x"}, ids(c.All()))
}

func TestCache_AppendThenRemoveRestoresState(t *testing.T) {
	t.Parallel()

	c := NewCache(log.NullLogger())
	require.NoError(t, c.ReplaceAll([]domain.Note{note("a", "1"), note("b", "2")}))
	before := c.All()

	require.NoError(t, c.Append(note("c", "3")))
	assert.Equal(t, []string{"a", "b", "c"}, ids(c.All()))

	c.Remove("c")
	assert.Equal(t, before, c.All())
	_, ok := c.Get("c")
	assert.False(t, ok)
}

func TestCache_AppendDuplicateIsFlagged(t *testing.T) {
	t.Parallel()

	c := NewCache(log.NullLogger())
	require.NoError(t, c.Append(note("a", "1")))

	err := c.Append(note("a", "other"))

	require.ErrorIs(t, err, domain.ErrDuplicateNote)
	assert.Equal(t, 1, c.Len())
	got, _ := c.Get("a")
	assert.Equal(t, "1", got.Text)
}

func TestCache_UpdateInPlace(t *testing.T) {
	t.Parallel()

	c := NewCache(log.NullLogger())
	require.NoError(t, c.ReplaceAll([]domain.Note{note("a", "1"), note("b", "2"), note("c", "3")}))

	c.Update("b", domain.NotePatch{Text: ptr("edited")})

	all := c.All()
	assert.Equal(t, []string{"a", "b", "c"}, ids(all))
	assert.Equal(t, "edited", all[1].Text)
	assert.Equal(t, 7, all[1].UserID)
}

func TestCache_UpdateAbsentIsNoOp(t *testing.T) {
	t.Parallel()

	c := NewCache(log.NullLogger())
	require.NoError(t, c.ReplaceAll([]domain.Note{note("a", "1")}))
	before := c.All()

	published := 0
	c.Subscribe(func([]domain.Note) { published++ })

	assert.NotPanics(t, func() { c.Update("missing", domain.NotePatch{Text: ptr("x")}) })
	assert.NotPanics(t, func() { c.Remove("missing") })

	assert.Equal(t, before, c.All())
	assert.Zero(t, published)
}

func TestCache_RemoveKeepsIndexConsistent(t *testing.T) {
	t.Parallel()

	c := NewCache(log.NullLogger())
	var notes []domain.Note
	for i := 0; i < 50; i++ {
		notes = append(notes, note(fmt.Sprintf("n%02d", i), fmt.Sprint(i)))
	}
	require.NoError(t, c.ReplaceAll(notes))

	c.Remove("n00")
	c.Remove("n25")
	c.Remove("n49")

	assert.Equal(t, 47, c.Len())
	for _, n := range c.All() {
		got, ok := c.Get(n.ID)
		require.True(t, ok)
		assert.Equal(t, n, got)
	}
	c.Update("n26", domain.NotePatch{Text: ptr("moved")})
	got, _ := c.Get("n26")
	assert.Equal(t, "moved", got.Text)
}

func TestCache_AllReturnsCopy(t *testing.T) {
	t.Parallel()

	c := NewCache(log.NullLogger())
	require.NoError(t, c.Append(note("a", "1")))

	all := c.All()
	all[0].Text = "mutated"

	got, _ := c.Get("a")
	assert.Equal(t, "1", got.Text)
}

func TestCache_ByListingAndClear(t *testing.T) {
	t.Parallel()

	c := NewCache(log.NullLogger())
	other := domain.Note{ID: "z", ListingID: "l2"}
	require.NoError(t, c.ReplaceAll([]domain.Note{note("a", "1"), other}))

	assert.Equal(t, []string{"a"}, ids(c.ByListing("l1")))

	var last []domain.Note
	c.Subscribe(func(n []domain.Note) { last = n })
	c.Clear()

	assert.Zero(t, c.Len())
	assert.Empty(t, last)
}
