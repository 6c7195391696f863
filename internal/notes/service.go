package notes

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/mmcdole/estate/internal/domain"
)

// Service runs note mutations against the server and applies each one to
// the cache only after the server confirms it. Failures leave the cache as
// it was.
type Service struct {
	repo   domain.NoteRepository
	cache  *Cache
	logger *slog.Logger

	mu      sync.Mutex
	loadGen uint64
}

// NewService creates a Service writing into cache
func NewService(repo domain.NoteRepository, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, logger: logger}
}

// Cache returns the cache this service writes to
func (s *Service) Cache() *Cache {
	return s.cache
}

// Load replaces the cache with the notes of listingID.
// Only the latest Load applies; an earlier one finishing later returns
// domain.ErrSuperseded.
func (s *Service) Load(ctx context.Context, listingID string) error {
	return s.Start(ctx, listingID)()
}

// Start claims the next load generation now and returns the function that
// runs the load. Loads are ordered by their Start calls, not by when they
// finish. The returned function must be called exactly once.
func (s *Service) Start(ctx context.Context, listingID string) (run func() error) {
	s.mu.Lock()
	s.loadGen++
	gen := s.loadGen
	s.mu.Unlock()

	return func() error {
		return s.run(ctx, gen, listingID)
	}
}

func (s *Service) run(ctx context.Context, gen uint64, listingID string) error {
	notes, err := s.repo.GetNotes(ctx, listingID)

	s.mu.Lock()
	current := gen == s.loadGen
	s.mu.Unlock()

	if !current {
		s.logger.Debug("discarded stale notes", "listingID", listingID)
		return domain.ErrSuperseded
	}
	if err != nil {
		s.logger.Error("failed to fetch notes", "error", err, "listingID", listingID)
		return fmt.Errorf("load notes: %w", err)
	}
	applied, err := s.cache.replace(gen, listingID, notes)
	if err != nil {
		return err
	}
	if !applied {
		s.logger.Debug("discarded stale notes", "listingID", listingID)
		return domain.ErrSuperseded
	}
	s.logger.Debug("loaded notes", "count", len(notes), "listingID", listingID)
	return nil
}

// Reset empties the cache and discards every Load still in flight
func (s *Service) Reset() {
	s.mu.Lock()
	s.loadGen++
	gen := s.loadGen
	s.mu.Unlock()

	s.cache.clear(gen)
}

// ListingID returns the listing whose notes are cached
func (s *Service) ListingID() string {
	return s.cache.ListingID()
}

// Add creates a note and appends the server's copy.
// A note confirmed after the cache moved to another listing is not cached.
func (s *Service) Add(ctx context.Context, listingID string, userID int, text string) (*domain.Note, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.ErrEmptyNote
	}

	note, err := s.repo.AddNote(ctx, listingID, userID, text)
	if err != nil {
		s.logger.Error("failed to add note", "error", err, "listingID", listingID)
		return nil, fmt.Errorf("add note: %w", err)
	}
	if current := s.ListingID(); current != "" && current != note.ListingID {
		s.logger.Debug("note confirmed for another listing, not cached", "noteID", note.ID, "listingID", note.ListingID)
		return note, nil
	}
	if err := s.cache.Append(*note); err != nil {
		return nil, err
	}
	s.logger.Info("added note", "noteID", note.ID, "listingID", listingID)
	return note, nil
}

// Edit replaces a note's text. The note must be cached: the server needs
// its listing and author.
func (s *Service) Edit(ctx context.Context, id, text string) (*domain.Note, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.ErrEmptyNote
	}

	current, ok := s.cache.Get(id)
	if !ok {
		return nil, fmt.Errorf("edit note %s: %w", id, domain.ErrNotFound)
	}

	updated, err := s.repo.UpdateNote(ctx, current, text)
	if err != nil {
		s.logger.Error("failed to update note", "error", err, "noteID", id)
		return nil, fmt.Errorf("edit note: %w", err)
	}
	s.cache.Update(updated.ID, domain.NotePatch{Text: &updated.Text})
	s.logger.Info("updated note", "noteID", id)
	return updated, nil
}

// Delete removes a note on the server, then from the cache
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.DeleteNote(ctx, id); err != nil {
		s.logger.Error("failed to delete note", "error", err, "noteID", id)
		return fmt.Errorf("delete note: %w", err)
	}
	s.cache.Remove(id)
	s.logger.Info("deleted note", "noteID", id)
	return nil
}
