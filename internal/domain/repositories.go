package domain

import "context"

// ListingRepository provides access to listings
type ListingRepository interface {
	// GetListings returns every listing visible to the current user
	GetListings(ctx context.Context) ([]Listing, error)

	// GetListing returns a single listing
	GetListing(ctx context.Context, id string) (*Listing, error)

	// UpdateListing sends a partial update, keyed by wire field name
	UpdateListing(ctx context.Context, id string, fields map[string]any) error
}

// ImageRepository provides photo metadata and binaries
type ImageRepository interface {
	// GetImageMetadata returns the photos of a listing in server order
	GetImageMetadata(ctx context.Context, listingID string) ([]ImageRef, error)

	// GetImageBinary downloads the bytes of one photo
	GetImageBinary(ctx context.Context, imageID string) (Payload, error)
}

// NoteRepository provides CRUD over listing notes
type NoteRepository interface {
	GetNotes(ctx context.Context, listingID string) ([]Note, error)
	AddNote(ctx context.Context, listingID string, userID int, text string) (*Note, error)
	// UpdateNote replaces the text of an existing note; the server needs its listing and author
	UpdateNote(ctx context.Context, note Note, text string) (*Note, error)
	DeleteNote(ctx context.Context, id string) error
}

// UserRepository resolves agent accounts
type UserRepository interface {
	GetUser(ctx context.Context, id int) (*User, error)
}

// ExportRepository sends listings out of the CRM
type ExportRepository interface {
	SendListingEmail(ctx context.Context, listingID, email string) error
}

// Gateway combines every repository the client core consumes.
// It is the only component that performs network I/O.
type Gateway interface {
	ListingRepository
	ImageRepository
	NoteRepository
	UserRepository
	ExportRepository
}
