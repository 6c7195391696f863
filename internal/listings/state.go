package listings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mmcdole/estate/internal/domain"
	"github.com/mmcdole/estate/internal/observe"
)

// State is the session's listings collection. Every change is written
// through to the session store and published to subscribers.
type State struct {
	repo   domain.ListingRepository
	store  domain.Store
	logger *slog.Logger

	mu       sync.Mutex
	listings []domain.Listing
	rev      uint64 // version of the last published snapshot

	value *observe.Value[[]domain.Listing]
}

// NewState creates an empty State
func NewState(repo domain.ListingRepository, store domain.Store, logger *slog.Logger) *State {
	if logger == nil {
		logger = slog.Default()
	}
	return &State{
		repo:   repo,
		store:  store,
		logger: logger,
		value:  observe.NewValue[[]domain.Listing](nil),
	}
}

// Load fetches every listing from the server and replaces the collection
func (s *State) Load(ctx context.Context) error {
	listings, err := s.repo.GetListings(ctx)
	if err != nil {
		s.logger.Error("failed to fetch listings", "error", err)
		if errors.Is(err, domain.ErrAuthFailed) {
			// Listings cached under a rejected token are no longer served
			s.store.InvalidateListings()
		}
		return fmt.Errorf("load listings: %w", err)
	}
	s.logger.Debug("fetched listings", "count", len(listings))
	s.Set(listings)
	return nil
}

// Cached restores the collection from the session store.
// It reports false when nothing was stored this session.
func (s *State) Cached() ([]domain.Listing, bool) {
	listings, ok := s.store.GetListings()
	if !ok {
		return nil, false
	}
	s.mu.Lock()
	s.listings = listings
	s.rev++
	rev := s.rev
	s.mu.Unlock()
	s.value.Publish(rev, cloneListings(listings))
	return cloneListings(listings), true
}

// Set replaces the collection
func (s *State) Set(listings []domain.Listing) {
	s.mu.Lock()
	s.listings = cloneListings(listings)
	rev, snapshot := s.commitLocked()
	s.mu.Unlock()

	s.value.Publish(rev, snapshot)
}

// All returns a copy of the collection
func (s *State) All() []domain.Listing {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneListings(s.listings)
}

// Get returns the listing with the given id
func (s *State) Get(id string) (domain.Listing, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.listings {
		if l.ID == id {
			return l, true
		}
	}
	return domain.Listing{}, false
}

// Add appends a listing
func (s *State) Add(l domain.Listing) {
	s.mu.Lock()
	s.listings = append(s.listings, l)
	rev, snapshot := s.commitLocked()
	s.mu.Unlock()

	s.value.Publish(rev, snapshot)
}

// Apply patches one field of a listing the server already updated
func (s *State) Apply(listingID string, c domain.Change) error {
	s.mu.Lock()
	i := s.indexLocked(listingID)
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("apply %s to listing %s: %w", c.Key, listingID, domain.ErrNotFound)
	}
	updated := s.listings[i]
	if err := updated.Apply(c); err != nil {
		s.mu.Unlock()
		s.logger.Error("failed to apply listing change", "error", err, "listingID", listingID, "field", c.Key)
		return err
	}
	s.listings[i] = updated
	rev, snapshot := s.commitLocked()
	s.mu.Unlock()

	s.logger.Debug("applied listing change", "listingID", listingID, "field", c.Key)
	s.value.Publish(rev, snapshot)
	return nil
}

// Subscribe registers fn for every change of the collection
func (s *State) Subscribe(fn func([]domain.Listing)) (cancel func()) {
	return s.value.Subscribe(fn)
}

func (s *State) indexLocked(id string) int {
	for i, l := range s.listings {
		if l.ID == id {
			return i
		}
	}
	return -1
}

// commitLocked saves the collection to the store and numbers a snapshot of
// it for publishing. A store failure only costs the session cache.
func (s *State) commitLocked() (uint64, []domain.Listing) {
	snapshot := cloneListings(s.listings)
	if err := s.store.SaveListings(snapshot); err != nil {
		s.logger.Warn("failed to cache listings", "error", err)
	}
	s.rev++
	return s.rev, snapshot
}

func cloneListings(listings []domain.Listing) []domain.Listing {
	if listings == nil {
		return nil
	}
	out := make([]domain.Listing, len(listings))
	copy(out, listings)
	return out
}
