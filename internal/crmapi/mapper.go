package crmapi

import (
	"encoding/json"
	"time"

	"github.com/mmcdole/estate/internal/domain"
)

// Timestamps come from Python datetimes, with or without a zone
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999",
	"2006-01-02",
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func parseNumber(n json.Number) float64 {
	if n == "" {
		return 0
	}
	f, err := n.Float64()
	if err != nil {
		return 0
	}
	return f
}

// MapListing converts an API listing to a domain listing
func MapListing(l Listing) domain.Listing {
	out := domain.Listing{
		ID:              l.ID,
		Title:           l.Title,
		Location:        l.Location,
		Street:          l.Street,
		Price:           parseNumber(l.Price),
		Area:            parseNumber(l.Area),
		PricePerArea:    parseNumber(l.PricePerArea),
		PropertyType:    domain.PropertyType(l.PropertyType),
		TransactionType: domain.TransactionType(l.TransactionType),
		Description:     l.Description,
		Floor:           l.Floor,
		NumOfFloors:     l.NumOfFloors,
		BuildYear:       l.BuildYear,
		Status:          domain.ListingStatus(l.Status),
		CreatedAt:       parseTime(l.CreatedAt),
	}
	if l.ClientID != nil {
		out.ClientID = *l.ClientID
	}
	if l.UserID != nil {
		out.UserID = *l.UserID
	}
	return out
}

// MapListings converts API listings, keeping server order
func MapListings(ls []Listing) []domain.Listing {
	out := make([]domain.Listing, len(ls))
	for i, l := range ls {
		out[i] = MapListing(l)
	}
	return out
}

// MapImageRefs converts photo metadata; Order is the position in the response
func MapImageRefs(photos []Photo) []domain.ImageRef {
	refs := make([]domain.ImageRef, len(photos))
	for i, p := range photos {
		refs[i] = domain.ImageRef{
			ID:           p.ID,
			ListingID:    p.ListingID,
			Order:        i,
			OriginalName: p.OriginalName,
			SizeBytes:    p.SizeBytes,
		}
		if p.ContentType != nil {
			refs[i].ContentType = *p.ContentType
		}
	}
	return refs
}

// MapNote converts an API note to a domain note
func MapNote(n Note) domain.Note {
	return domain.Note{
		ID:        n.ID,
		ListingID: n.ListingID,
		UserID:    n.UserID,
		Text:      n.Note,
		CreatedAt: parseTime(n.CreatedAt),
	}
}

// MapNotes converts API notes, keeping server order
func MapNotes(ns []Note) []domain.Note {
	out := make([]domain.Note, len(ns))
	for i, n := range ns {
		out[i] = MapNote(n)
	}
	return out
}

// MapUser converts an API user to a domain user
func MapUser(u User) domain.User {
	return domain.User{ID: u.ID, Username: u.Username, Email: u.Email}
}
