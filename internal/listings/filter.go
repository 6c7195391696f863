// Package listings filters, sorts and searches the in-memory listings
// collection and holds the session's copy of it.
package listings

import (
	"strings"

	"github.com/mmcdole/estate/internal/domain"
)

// Criteria narrows a listings collection. Empty strings and zero bounds are
// unset and match everything.
type Criteria struct {
	Title           string
	Location        string
	Street          string
	PropertyType    string
	TransactionType string

	PriceFrom        float64
	PriceTo          float64
	AreaFrom         float64
	AreaTo           float64
	PricePerAreaFrom float64
	PricePerAreaTo   float64
}

// IsZero reports whether no criterion is set
func (c Criteria) IsZero() bool {
	return c == Criteria{}
}

// Filter returns the listings that satisfy every criterion, in input order.
// Text criteria are trimmed, case-insensitive substring matches; numeric
// bounds are inclusive. The input is not modified.
func Filter(listings []domain.Listing, c Criteria) []domain.Listing {
	title := normalize(c.Title)
	location := normalize(c.Location)
	street := normalize(c.Street)
	propertyType := normalize(c.PropertyType)
	transactionType := normalize(c.TransactionType)

	out := make([]domain.Listing, 0, len(listings))
	for _, l := range listings {
		if !contains(l.Title, title) ||
			!contains(l.Location, location) ||
			!contains(l.Street, street) ||
			!contains(string(l.PropertyType), propertyType) ||
			!contains(string(l.TransactionType), transactionType) {
			continue
		}
		if !within(l.Price, c.PriceFrom, c.PriceTo) ||
			!within(l.Area, c.AreaFrom, c.AreaTo) ||
			!within(l.ComputedPricePerArea(), c.PricePerAreaFrom, c.PricePerAreaTo) {
			continue
		}
		out = append(out, l)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// contains reports whether text includes the normalized needle; "" always matches
func contains(text, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(normalize(text), needle)
}

// within checks inclusive bounds; a zero bound is unset
func within(v, from, to float64) bool {
	if from != 0 && v < from {
		return false
	}
	if to != 0 && v > to {
		return false
	}
	return true
}
