package notes

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/mmcdole/estate/internal/domain"
	"github.com/mmcdole/estate/internal/observe"
)

// Cache is the ordered, identity-indexed mirror of one listing's notes.
// It is only mutated with data the server has already confirmed.
type Cache struct {
	logger *slog.Logger

	mu        sync.Mutex
	notes     []domain.Note
	index     map[string]int // note id -> position in notes
	listingID string         // listing of the last service load, "" when unknown
	loadGen   uint64         // newest service load or reset applied
	rev       uint64         // version of the last published snapshot

	value *observe.Value[[]domain.Note]
}

// NewCache creates an empty cache
func NewCache(logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		logger: logger,
		index:  make(map[string]int),
		value:  observe.NewValue[[]domain.Note](nil),
	}
}

// ReplaceAll swaps in a fresh server listing, keeping its order.
// Duplicate ids in notes leave the cache unchanged.
func (c *Cache) ReplaceAll(notes []domain.Note) error {
	_, err := c.replace(0, "", notes)
	return err
}

// replace is ReplaceAll for a service load of generation gen. It reports
// false, leaving the cache untouched, when a newer load or reset already
// reached the cache. Generation 0 always applies and keeps the listing id.
func (c *Cache) replace(gen uint64, listingID string, notes []domain.Note) (bool, error) {
	index := make(map[string]int, len(notes))
	for i, n := range notes {
		if _, dup := index[n.ID]; dup {
			c.logger.Error("duplicate note id in server response", "noteID", n.ID)
			return false, fmt.Errorf("replace notes: %w: %s", domain.ErrDuplicateNote, n.ID)
		}
		index[n.ID] = i
	}

	c.mu.Lock()
	if gen != 0 {
		if gen < c.loadGen {
			c.mu.Unlock()
			return false, nil
		}
		c.loadGen = gen
		c.listingID = listingID
	}
	c.notes = append([]domain.Note(nil), notes...)
	c.index = index
	rev, snapshot := c.snapshotLocked()
	c.mu.Unlock()

	c.value.Publish(rev, snapshot)
	return true, nil
}

// Append adds a note as the new tail
func (c *Cache) Append(n domain.Note) error {
	c.mu.Lock()
	if _, dup := c.index[n.ID]; dup {
		c.mu.Unlock()
		c.logger.Error("refusing to append duplicate note", "noteID", n.ID)
		return fmt.Errorf("append note: %w: %s", domain.ErrDuplicateNote, n.ID)
	}
	c.index[n.ID] = len(c.notes)
	c.notes = append(c.notes, n)
	rev, snapshot := c.snapshotLocked()
	c.mu.Unlock()

	c.value.Publish(rev, snapshot)
	return nil
}

// Update merges patch into the note with the given id, keeping its position.
// An absent id is a no-op: a confirmed delete may have won the race.
func (c *Cache) Update(id string, patch domain.NotePatch) {
	c.mu.Lock()
	i, ok := c.index[id]
	if !ok {
		c.mu.Unlock()
		c.logger.Debug("update for uncached note ignored", "noteID", id)
		return
	}
	c.notes[i] = patch.Apply(c.notes[i])
	rev, snapshot := c.snapshotLocked()
	c.mu.Unlock()

	c.value.Publish(rev, snapshot)
}

// Remove deletes the note with the given id; absent ids are a no-op
func (c *Cache) Remove(id string) {
	c.mu.Lock()
	i, ok := c.index[id]
	if !ok {
		c.mu.Unlock()
		c.logger.Debug("remove for uncached note ignored", "noteID", id)
		return
	}
	c.notes = append(c.notes[:i:i], c.notes[i+1:]...)
	delete(c.index, id)
	for j := i; j < len(c.notes); j++ {
		c.index[c.notes[j].ID] = j
	}
	rev, snapshot := c.snapshotLocked()
	c.mu.Unlock()

	c.value.Publish(rev, snapshot)
}

// Get looks a note up by id
func (c *Cache) Get(id string) (domain.Note, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i, ok := c.index[id]
	if !ok {
		return domain.Note{}, false
	}
	return c.notes[i], true
}

// All returns a copy of the notes in order
func (c *Cache) All() []domain.Note {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.Note(nil), c.notes...)
}

// ByListing returns the cached notes that belong to listingID
func (c *Cache) ByListing(listingID string) []domain.Note {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []domain.Note
	for _, n := range c.notes {
		if n.ListingID == listingID {
			out = append(out, n)
		}
	}
	return out
}

// Len returns the number of cached notes
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.notes)
}

// Clear empties the cache
func (c *Cache) Clear() {
	c.clear(0)
}

// clear is Clear for a service reset of generation gen; loads older than
// gen no longer apply afterwards
func (c *Cache) clear(gen uint64) {
	c.mu.Lock()
	if gen != 0 {
		if gen < c.loadGen {
			c.mu.Unlock()
			return
		}
		c.loadGen = gen
	}
	c.notes = nil
	c.index = make(map[string]int)
	c.listingID = ""
	rev, snapshot := c.snapshotLocked()
	c.mu.Unlock()

	c.value.Publish(rev, snapshot)
}

// ListingID returns the listing the cached notes were loaded for
func (c *Cache) ListingID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listingID
}

// Subscribe registers fn for every change of the collection
func (c *Cache) Subscribe(fn func([]domain.Note)) (cancel func()) {
	return c.value.Subscribe(fn)
}

// snapshotLocked numbers and copies the current notes for publishing
func (c *Cache) snapshotLocked() (uint64, []domain.Note) {
	c.rev++
	return c.rev, append([]domain.Note(nil), c.notes...)
}
