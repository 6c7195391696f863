package domain

import (
	"fmt"
	"time"
)

// PropertyType distinguishes kinds of property
type PropertyType string

const (
	PropertyHouse     PropertyType = "House"
	PropertyApartment PropertyType = "Apartment"
)

// TransactionType distinguishes sale from rental listings
type TransactionType string

const (
	TransactionSell TransactionType = "Sell"
	TransactionRent TransactionType = "Rent"
)

// ListingStatus represents where a listing is in the sales pipeline
type ListingStatus string

const (
	StatusAvailable ListingStatus = "Available"
	StatusPending   ListingStatus = "Pending"
	StatusClosed    ListingStatus = "Closed"
)

// Listing represents a property offered by a client
type Listing struct {
	ID              string          // Server-assigned identifier
	ClientID        string          // Owning client
	UserID          int             // Agent responsible for the listing (0 = unassigned)
	Title           string          // Display title
	Location        string          // City or district
	Street          string          // Street address
	Price           float64         // Asking price
	Area            float64         // Floor area in square meters
	PricePerArea    float64         // Price per square meter
	PropertyType    PropertyType    // House or Apartment
	TransactionType TransactionType // Sell or Rent
	Description     string          // Free-form description
	Floor           string          // Floor the unit is on
	NumOfFloors     string          // Floors in the building
	BuildYear       string          // Construction year
	Status          ListingStatus   // Pipeline status
	CreatedAt       time.Time       // When the listing was created
}

// FormattedPrice returns the price without decimals for display
func (l Listing) FormattedPrice() string {
	return fmt.Sprintf("%.0f", l.Price)
}

// ComputedPricePerArea returns PricePerArea, deriving it when the server omitted it
func (l Listing) ComputedPricePerArea() float64 {
	if l.PricePerArea > 0 || l.Area <= 0 {
		return l.PricePerArea
	}
	return l.Price / l.Area
}

// ImageRef identifies one photo of a listing, as returned by the metadata call
type ImageRef struct {
	ID           string
	ListingID    string
	Order        int // Position in the metadata response
	OriginalName string
	ContentType  string
	SizeBytes    int64
}

// Payload is raw binary content fetched from the server
type Payload struct {
	ContentType string
	Data        []byte
}

// Handle is an opaque, locally-addressable reference to materialized content.
// A handle stays readable until it is released.
type Handle string

// GalleryEntry is one photo ready for display.
// Source and Thumbnail share a handle: the server stores a single rendition.
type GalleryEntry struct {
	ImageID   string
	Source    Handle
	Thumbnail Handle
}

// Note is a free-text remark an agent left on a listing
type Note struct {
	ID        string // Server-assigned identifier
	ListingID string
	UserID    int
	Text      string
	CreatedAt time.Time
}

// NotePatch carries the mutable fields of a note; nil fields are left untouched
type NotePatch struct {
	Text *string
}

// Apply merges the patch into n
func (p NotePatch) Apply(n Note) Note {
	if p.Text != nil {
		n.Text = *p.Text
	}
	return n
}

// User is a CRM agent account
type User struct {
	ID       int
	Username string
	Email    string
}

// Change is a single field update confirmed by the server
type Change struct {
	Key   string
	Value any
}
