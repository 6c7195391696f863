// Package detail composes the listing-detail view: the listing's editable
// fields, its photo gallery, its notes and its owner.
package detail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mmcdole/estate/internal/domain"
	"github.com/mmcdole/estate/internal/editor"
	"github.com/mmcdole/estate/internal/gallery"
	"github.com/mmcdole/estate/internal/listings"
	"github.com/mmcdole/estate/internal/notes"
	"github.com/mmcdole/estate/internal/observe"
	"github.com/mmcdole/estate/internal/resource"
)

// Options tunes a View
type Options struct {
	UserID             int // Author of new notes
	GalleryConcurrency int // Parallel photo downloads (0 = unbounded)
}

// View owns everything shown for one listing at a time. Navigating to
// another listing replaces its contents; Close releases them.
type View struct {
	gw     domain.Gateway
	state  *listings.State // optional session collection kept in sync with edits
	userID int
	logger *slog.Logger

	gallery *gallery.Gallery
	notes   *notes.Service

	mu           sync.Mutex
	gen          uint64
	rev          uint64 // version of the last published listing snapshot
	listing      *domain.Listing
	owner        *domain.User
	editor       *editor.Editor
	cancelEditor func()
	closed       bool

	value *observe.Value[*domain.Listing]
}

// NewView creates an empty view. state may be nil.
func NewView(gw domain.Gateway, res *resource.Materializer, state *listings.State, opts Options, logger *slog.Logger) *View {
	if logger == nil {
		logger = slog.Default()
	}
	agg := gallery.NewAggregator(gw, res, opts.GalleryConcurrency, logger)
	return &View{
		gw:      gw,
		state:   state,
		userID:  opts.UserID,
		logger:  logger,
		gallery: gallery.New(agg, res, logger),
		notes:   notes.NewService(gw, notes.NewCache(logger), logger),
		value:   observe.NewValue[*domain.Listing](nil),
	}
}

// Open shows listingID: it fetches the listing, builds its editable fields,
// then loads the gallery, the notes and the owner concurrently.
// If another Open starts before this one finishes, this one returns
// domain.ErrSuperseded and the newer listing's contents stay shown.
func (v *View) Open(ctx context.Context, listingID string) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return domain.ErrClosed
	}
	v.gen++
	gen := v.gen
	v.mu.Unlock()

	listing, err := v.gw.GetListing(ctx, listingID)
	if err != nil {
		v.logger.Error("failed to fetch listing", "error", err, "listingID", listingID)
		return fmt.Errorf("open listing %s: %w", listingID, err)
	}

	ed := editor.New(editor.ListingFields(*listing), v.commitFunc(listingID), v.logger)
	cancelChanges := ed.SubscribeChanges(func(c domain.Change) { v.applyChange(listingID, c) })

	v.mu.Lock()
	if v.closed || gen != v.gen {
		closed := v.closed
		v.mu.Unlock()
		cancelChanges()
		ed.Close()
		if closed {
			return domain.ErrClosed
		}
		return domain.ErrSuperseded
	}
	if v.cancelEditor != nil {
		v.cancelEditor()
	}
	v.listing = listing
	v.owner = nil
	v.editor = ed
	v.cancelEditor = func() {
		cancelChanges()
		ed.Close()
	}
	// Claim the gallery and notes generations before any other Open can,
	// so a newer Open always supersedes these loads.
	loadGallery := v.gallery.Start(ctx, listingID)
	loadNotes := v.notes.Start(ctx, listingID)
	rev, snapshot := v.snapshotLocked()
	v.mu.Unlock()

	v.value.Publish(rev, snapshot)
	v.logger.Debug("opened listing", "listingID", listingID)

	var g errgroup.Group
	g.Go(func() error {
		err := loadGallery()
		if errors.Is(err, domain.ErrSuperseded) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		err := loadNotes()
		if errors.Is(err, domain.ErrSuperseded) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		v.loadOwner(ctx, gen, listing.UserID)
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return domain.ErrClosed
	}
	if gen != v.gen {
		return domain.ErrSuperseded
	}
	return nil
}

// Navigate switches the view to another listing
func (v *View) Navigate(ctx context.Context, listingID string) error {
	return v.Open(ctx, listingID)
}

// loadOwner resolves the agent responsible for the listing.
// A missing owner leaves the view without one.
func (v *View) loadOwner(ctx context.Context, gen uint64, userID int) {
	if userID == 0 {
		return
	}
	user, err := v.gw.GetUser(ctx, userID)
	if err != nil {
		v.logger.Warn("failed to fetch listing owner", "error", err, "userID", userID)
		return
	}
	v.mu.Lock()
	if gen == v.gen && !v.closed {
		v.owner = user
	}
	v.mu.Unlock()
}

func (v *View) commitFunc(listingID string) editor.CommitFunc {
	return func(ctx context.Context, fields map[string]any) error {
		return v.gw.UpdateListing(ctx, listingID, fields)
	}
}

// applyChange patches the shown listing and the session collection with a
// field the server accepted
func (v *View) applyChange(listingID string, c domain.Change) {
	v.mu.Lock()
	var (
		rev      uint64
		snapshot *domain.Listing
	)
	if v.listing != nil && v.listing.ID == listingID {
		if err := v.listing.Apply(c); err != nil {
			v.logger.Error("failed to apply field to listing", "error", err, "field", c.Key)
		}
		rev, snapshot = v.snapshotLocked()
	}
	v.mu.Unlock()

	if snapshot != nil {
		v.value.Publish(rev, snapshot)
	}
	if v.state == nil {
		return
	}
	if err := v.state.Apply(listingID, c); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			v.logger.Debug("listing not in session collection", "listingID", listingID)
			return
		}
		v.logger.Warn("failed to update session collection", "error", err, "listingID", listingID)
	}
}

// EditField sets key to value through the optimistic editor.
// It reports whether the server accepted a changed value.
func (v *View) EditField(ctx context.Context, key string, value any) (bool, error) {
	ed := v.Editor()
	if ed == nil {
		return false, domain.ErrClosed
	}
	if err := ed.Begin(key); err != nil {
		return false, err
	}
	if err := ed.SetBuffer(value); err != nil {
		ed.Cancel()
		return false, err
	}
	return ed.Commit(ctx)
}

// AddNote adds a note to the shown listing as the current agent
func (v *View) AddNote(ctx context.Context, text string) (*domain.Note, error) {
	id, ok := v.ListingID()
	if !ok {
		return nil, domain.ErrClosed
	}
	if v.userID == 0 {
		return nil, fmt.Errorf("add note: %w", domain.ErrUnknownUser)
	}
	return v.notes.Add(ctx, id, v.userID, text)
}

// EditNote replaces the text of a cached note
func (v *View) EditNote(ctx context.Context, noteID, text string) (*domain.Note, error) {
	return v.notes.Edit(ctx, noteID, text)
}

// DeleteNote removes a cached note
func (v *View) DeleteNote(ctx context.Context, noteID string) error {
	return v.notes.Delete(ctx, noteID)
}

// Export emails the shown listing to address
func (v *View) Export(ctx context.Context, address string) error {
	id, ok := v.ListingID()
	if !ok {
		return domain.ErrClosed
	}
	parsed, err := mail.ParseAddress(address)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidValue, err)
	}
	if err := v.gw.SendListingEmail(ctx, id, parsed.Address); err != nil {
		v.logger.Error("failed to export listing", "error", err, "listingID", id)
		return fmt.Errorf("export listing: %w", err)
	}
	v.logger.Info("exported listing", "listingID", id)
	return nil
}

// Listing returns the shown listing
func (v *View) Listing() (domain.Listing, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.listing == nil {
		return domain.Listing{}, false
	}
	return *v.listing, true
}

// ListingID returns the id of the shown listing
func (v *View) ListingID() (string, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.listing == nil {
		return "", false
	}
	return v.listing.ID, true
}

// Owner returns the agent responsible for the shown listing, if known
func (v *View) Owner() (domain.User, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.owner == nil {
		return domain.User{}, false
	}
	return *v.owner, true
}

// Editor returns the field editor of the shown listing
func (v *View) Editor() *editor.Editor {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.editor
}

// Gallery returns the photo gallery
func (v *View) Gallery() *gallery.Gallery {
	return v.gallery
}

// Notes returns the notes cache
func (v *View) Notes() *notes.Cache {
	return v.notes.Cache()
}

// SubscribeListing registers fn for every change of the shown listing
func (v *View) SubscribeListing(fn func(*domain.Listing)) (cancel func()) {
	return v.value.Subscribe(fn)
}

// snapshotLocked numbers and copies the shown listing for publishing
func (v *View) snapshotLocked() (uint64, *domain.Listing) {
	v.rev++
	if v.listing == nil {
		return v.rev, nil
	}
	l := *v.listing
	return v.rev, &l
}

// Close releases every photo handle, clears the notes and drops all
// subscriptions. Loads still in flight are discarded when they finish.
func (v *View) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	cancelEditor := v.cancelEditor
	v.cancelEditor = nil
	v.editor = nil
	v.listing = nil
	v.owner = nil
	rev, _ := v.snapshotLocked()
	v.mu.Unlock()

	if cancelEditor != nil {
		cancelEditor()
	}
	v.gallery.Close()
	v.notes.Reset()
	v.value.Publish(rev, nil)
	v.value.Reset()
	v.logger.Debug("closed listing view")
}
