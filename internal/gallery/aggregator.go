package gallery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mmcdole/estate/internal/domain"
	"golang.org/x/sync/errgroup"
)

type materializer interface {
	Materialize(ctx context.Context, p domain.Payload) (domain.Handle, error)
	ReleaseEntries(entries []domain.GalleryEntry)
}

// Aggregator assembles the photo gallery of a listing.
type Aggregator struct {
	images      domain.ImageRepository
	res         materializer
	concurrency int
	logger      *slog.Logger
}

// NewAggregator creates an Aggregator. concurrency bounds parallel
// downloads; zero or negative means unbounded.
func NewAggregator(images domain.ImageRepository, res materializer, concurrency int, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{images: images, res: res, concurrency: concurrency, logger: logger}
}

// Build fetches every photo of listingID and returns them in metadata order.
// Downloads run concurrently and are joined before anything is returned.
// A photo that fails to download is dropped; an authorization failure or a
// cancelled ctx aborts the build and releases whatever was materialized.
func (a *Aggregator) Build(ctx context.Context, listingID string) ([]domain.GalleryEntry, error) {
	refs, err := a.images.GetImageMetadata(ctx, listingID)
	if err != nil {
		a.logger.Error("failed to fetch image metadata", "error", err, "listingID", listingID)
		return nil, fmt.Errorf("fetch image metadata: %w", err)
	}
	if len(refs) == 0 {
		a.logger.Debug("listing has no photos", "listingID", listingID)
		return []domain.GalleryEntry{}, nil
	}

	// One slot per ref keeps the join order-preserving
	slots := make([]*domain.GalleryEntry, len(refs))

	g, gctx := errgroup.WithContext(ctx)
	if a.concurrency > 0 {
		g.SetLimit(a.concurrency)
	}

	for i, ref := range refs {
		g.Go(func() error {
			payload, err := a.images.GetImageBinary(gctx, ref.ID)
			if err != nil {
				if errors.Is(err, domain.ErrAuthFailed) {
					return err
				}
				a.logger.Warn("dropping photo", "error", err, "imageID", ref.ID, "listingID", listingID)
				return nil
			}

			h, err := a.res.Materialize(gctx, payload)
			if err != nil {
				a.logger.Warn("failed to materialize photo", "error", err, "imageID", ref.ID)
				return nil
			}

			slots[i] = &domain.GalleryEntry{ImageID: ref.ID, Source: h, Thumbnail: h}
			return nil
		})
	}

	waitErr := g.Wait()

	entries := make([]domain.GalleryEntry, 0, len(slots))
	for _, s := range slots {
		if s != nil {
			entries = append(entries, *s)
		}
	}

	if waitErr == nil {
		waitErr = ctx.Err()
	}
	if waitErr != nil {
		a.res.ReleaseEntries(entries)
		return nil, waitErr
	}

	a.logger.Debug("built gallery", "listingID", listingID, "photos", len(entries), "requested", len(refs))
	return entries, nil
}
