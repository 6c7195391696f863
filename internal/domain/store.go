package domain

// Store is the session-scoped local cache (BoltDB + memory).
// It is wiped when opened; nothing survives past the session.
type Store interface {
	// === Blobs (materialized resources) ===
	GetBlob(key string) (Payload, bool)
	SaveBlob(key string, p Payload) error
	DeleteBlob(key string)

	// === Listings snapshot ===
	GetListings() ([]Listing, bool)
	SaveListings(listings []Listing) error

	// === Invalidation ===
	InvalidateListings()

	Close() error
}
