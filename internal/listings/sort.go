package listings

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/mmcdole/estate/internal/domain"
)

// Direction is the price ordering of a sort
type Direction int

const (
	Asc Direction = iota
	Desc
)

func (d Direction) String() string {
	if d == Desc {
		return "desc"
	}
	return "asc"
}

// ParseDirection parses "asc" or "desc", case-insensitively
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asc", "":
		return Asc, nil
	case "desc":
		return Desc, nil
	default:
		return Asc, fmt.Errorf("unknown sort direction %q", s)
	}
}

// Sort returns a copy of listings ordered by price. Listings with equal
// prices keep their relative input order in both directions.
func Sort(listings []domain.Listing, dir Direction) []domain.Listing {
	out := slices.Clone(listings)
	slices.SortStableFunc(out, func(a, b domain.Listing) int {
		if dir == Desc {
			return cmp.Compare(b.Price, a.Price)
		}
		return cmp.Compare(a.Price, b.Price)
	})
	return out
}
