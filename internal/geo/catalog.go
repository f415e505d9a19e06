package geo

import (
	"context"
	"strings"

	"github.com/gosimple/slug"

	"leadterm/internal/lead"
)

// Catalog is an offline Geocoder over a fixed set of addresses. Matching is
// accent and case insensitive: every word of the query must appear in the
// address, the last one possibly as a prefix of a longer word.
type Catalog struct {
	entries []catalogEntry
	limit   int
}

type catalogEntry struct {
	address lead.Address
	key     string
}

// NewCatalog indexes addresses for search.
func NewCatalog(addresses []lead.Address) *Catalog {
	c := &Catalog{limit: 5}
	for _, a := range addresses {
		c.entries = append(c.entries, catalogEntry{address: a, key: "-" + slug.Make(a.Display) + "-"})
	}
	return c
}

// Search implements Geocoder.
func (c *Catalog) Search(ctx context.Context, query string) ([]lead.Address, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	terms := strings.Split(slug.Make(query), "-")
	var results []lead.Address
	for _, e := range c.entries {
		if matchesAll(e, terms) {
			results = append(results, e.address)
			if len(results) == c.limit {
				break
			}
		}
	}
	return results, nil
}

func matchesAll(e catalogEntry, terms []string) bool {
	matched := false
	for i, term := range terms {
		if term == "" {
			continue
		}
		needle := "-" + term + "-"
		if i == len(terms)-1 {
			needle = "-" + term
		}
		if !strings.Contains(e.key, needle) {
			return false
		}
		matched = true
	}
	return matched
}
