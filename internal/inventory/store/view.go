package store

import (
	"cmp"
	"slices"
	"strings"

	"golang.org/x/text/cases"
)

// SortField names the product field the view is ordered by.
type SortField string

const (
	SortByName      SortField = "name"
	SortByQuantity  SortField = "quantity"
	SortByUpdatedAt SortField = "updatedAt"
)

// SortOrder is the direction of the view ordering.
type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// ViewParams are the parameters of the derived product view.
type ViewParams struct {
	SearchQuery string    `json:"searchQuery"`
	SortBy      SortField `json:"sortBy"`
	SortOrder   SortOrder `json:"sortOrder"`
}

// Snapshot is an immutable input to FilterSort.
type Snapshot struct {
	Products []Product
	ViewParams
}

// FilterSort derives the displayed product list from a snapshot.
// Products whose case-folded name contains the case-folded query, or whose barcode contains
// the query literally, are kept. The result is stably sorted by the requested field;
// unknown fields sort by name. The input slice is never modified.
func FilterSort(s Snapshot) []Product {
	out := make([]Product, 0, len(s.Products))
	if s.SearchQuery == "" {
		out = append(out, s.Products...)
	} else {
		query := fold(s.SearchQuery)
		for _, p := range s.Products {
			if strings.Contains(fold(p.Name), query) || strings.Contains(p.Barcode, s.SearchQuery) {
				out = append(out, p)
			}
		}
	}

	compare := comparator(s.SortBy)
	if s.SortOrder == Desc {
		asc := compare
		compare = func(a, b Product) int { return asc(b, a) }
	}
	slices.SortStableFunc(out, compare)
	return out
}

func comparator(field SortField) func(a, b Product) int {
	switch field {
	case SortByQuantity:
		return func(a, b Product) int { return cmp.Compare(a.Quantity, b.Quantity) }
	case SortByUpdatedAt:
		return func(a, b Product) int { return a.UpdatedAt.Compare(b.UpdatedAt) }
	default:
		return func(a, b Product) int { return strings.Compare(fold(a.Name), fold(b.Name)) }
	}
}

// fold returns the Unicode case-folded form of s.
// A new Caser is created per call since Casers are stateful.
func fold(s string) string {
	return cases.Fold().String(s)
}

// viewCache memoizes the last FilterSort result.
// The key covers every input: the list version and the three view parameters.
type viewCache struct {
	valid   bool
	version uint64
	params  ViewParams
	result  []Product
}

func (c *viewCache) get(version uint64, params ViewParams) ([]Product, bool) {
	if !c.valid || c.version != version || c.params != params {
		return nil, false
	}
	return c.result, true
}

func (c *viewCache) put(version uint64, params ViewParams, result []Product) {
	c.valid = true
	c.version = version
	c.params = params
	c.result = result
}
