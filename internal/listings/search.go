package listings

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	sfuzzy "github.com/sahilm/fuzzy"

	"github.com/mmcdole/estate/internal/domain"
)

// titleIndex implements sahilm/fuzzy.Source over listing titles
type titleIndex struct {
	listings    []domain.Listing
	lowerTitles []string
}

func newTitleIndex(listings []domain.Listing) *titleIndex {
	idx := &titleIndex{listings: listings, lowerTitles: make([]string, len(listings))}
	for i, l := range listings {
		idx.lowerTitles[i] = strings.ToLower(l.Title)
	}
	return idx
}

// String returns the lowercase title at index i (implements fuzzy.Source)
func (idx *titleIndex) String(i int) string { return idx.lowerTitles[i] }

// Len returns the number of listings (implements fuzzy.Source)
func (idx *titleIndex) Len() int { return len(idx.listings) }

// SearchResult is a quick-find hit with the title positions that matched
type SearchResult struct {
	Listing        domain.Listing
	MatchedIndexes []int
	Score          int // Higher is better
}

// Search ranks listings by fuzzy title match, best first.
// A blank query returns nil.
func Search(listings []domain.Listing, query string) []SearchResult {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" || len(listings) == 0 {
		return nil
	}

	idx := newTitleIndex(listings)
	matches := sfuzzy.FindFrom(query, idx)

	results := make([]SearchResult, len(matches))
	for i, m := range matches {
		results[i] = SearchResult{
			Listing:        idx.listings[m.Index],
			MatchedIndexes: m.MatchedIndexes,
			Score:          m.Score,
		}
	}
	return results
}

// SuggestLocations returns the distinct locations matching prefix, closest
// first. Matching is case-insensitive and tolerates skipped characters.
func SuggestLocations(listings []domain.Listing, prefix string) []string {
	prefix = strings.TrimSpace(prefix)

	seen := make(map[string]bool)
	var locations []string
	for _, l := range listings {
		loc := strings.TrimSpace(l.Location)
		if loc == "" || seen[strings.ToLower(loc)] {
			continue
		}
		seen[strings.ToLower(loc)] = true
		locations = append(locations, loc)
	}
	if prefix == "" {
		sort.Strings(locations)
		return locations
	}

	ranks := fuzzy.RankFindNormalizedFold(prefix, locations)
	sort.Stable(ranks)

	out := make([]string, len(ranks))
	for i, r := range ranks {
		out[i] = r.Target
	}
	return out
}
