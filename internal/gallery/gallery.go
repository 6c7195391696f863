package gallery

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mmcdole/estate/internal/domain"
	"github.com/mmcdole/estate/internal/observe"
)

type builder interface {
	Build(ctx context.Context, listingID string) ([]domain.GalleryEntry, error)
}

type releaser interface {
	ReleaseEntries(entries []domain.GalleryEntry)
}

// Gallery is the displayed photo set of one listing-detail view.
//
// Loads follow last-request-wins: starting a load cancels interest in the
// previous one, whose result is discarded and whose handles are released
// when it eventually finishes. Published entries are released when they
// are replaced or when the gallery is closed.
type Gallery struct {
	builder builder
	res     releaser
	logger  *slog.Logger

	mu        sync.Mutex
	gen       uint64
	cancel    context.CancelFunc
	listingID string
	entries   []domain.GalleryEntry
	rev       uint64 // version of the last published snapshot
	closed    bool

	value *observe.Value[[]domain.GalleryEntry]
}

// New creates an empty gallery
func New(builder builder, res releaser, logger *slog.Logger) *Gallery {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gallery{
		builder: builder,
		res:     res,
		logger:  logger,
		value:   observe.NewValue[[]domain.GalleryEntry](nil),
	}
}

// Load builds the gallery of listingID and publishes it.
// It returns domain.ErrSuperseded if a newer Load started before this one
// finished, and domain.ErrClosed if the gallery was closed meanwhile.
// On a build error the gallery is cleared, so photos of a previous listing
// never remain on screen.
func (g *Gallery) Load(ctx context.Context, listingID string) error {
	return g.Start(ctx, listingID)()
}

// Start claims the next load generation now and returns the function that
// runs the load. Loads are ordered by their Start calls: a later Start
// supersedes an earlier one even if the earlier run finishes last.
// The returned function must be called exactly once.
func (g *Gallery) Start(ctx context.Context, listingID string) (run func() error) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return func() error { return domain.ErrClosed }
	}
	if g.cancel != nil {
		g.cancel()
	}
	g.gen++
	gen := g.gen
	ctx, cancel := context.WithCancel(ctx)
	g.cancel = cancel
	g.mu.Unlock()

	return func() error {
		defer cancel()
		return g.run(ctx, gen, listingID)
	}
}

func (g *Gallery) run(ctx context.Context, gen uint64, listingID string) error {
	entries, err := g.builder.Build(ctx, listingID)

	g.mu.Lock()
	if g.closed || gen != g.gen {
		closed := g.closed
		g.mu.Unlock()
		g.res.ReleaseEntries(entries)
		g.logger.Debug("discarded stale gallery", "listingID", listingID, "photos", len(entries))
		if closed {
			return domain.ErrClosed
		}
		return domain.ErrSuperseded
	}
	g.cancel = nil
	if err != nil {
		entries = nil
	}
	old := g.entries
	g.entries = entries
	g.listingID = listingID
	g.rev++
	rev, snapshot := g.rev, clone(entries)
	g.mu.Unlock()

	g.value.Publish(rev, snapshot)
	g.res.ReleaseEntries(old)

	if err != nil {
		g.logger.Error("failed to load gallery", "error", err, "listingID", listingID)
		return err
	}
	return nil
}

// Entries returns the published photos
func (g *Gallery) Entries() []domain.GalleryEntry {
	g.mu.Lock()
	defer g.mu.Unlock()
	return clone(g.entries)
}

// ListingID returns the listing whose photos are published
func (g *Gallery) ListingID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.listingID
}

// Subscribe registers fn for every published gallery
func (g *Gallery) Subscribe(fn func([]domain.GalleryEntry)) (cancel func()) {
	return g.value.Subscribe(fn)
}

// Close cancels any in-flight load and releases every published handle.
// Loads finishing after Close release their own handles.
func (g *Gallery) Close() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	if g.cancel != nil {
		g.cancel()
		g.cancel = nil
	}
	old := g.entries
	g.entries = nil
	g.rev++
	rev := g.rev
	g.mu.Unlock()

	g.value.Publish(rev, nil)
	g.value.Reset()
	g.res.ReleaseEntries(old)
}

func clone(entries []domain.GalleryEntry) []domain.GalleryEntry {
	if entries == nil {
		return nil
	}
	out := make([]domain.GalleryEntry, len(entries))
	copy(out, entries)
	return out
}
