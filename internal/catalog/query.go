// Package catalog filters, ranks and relates product summaries in memory.
// Callers load the summaries ordered by ID; every function here is pure.
package catalog

import (
	"github.com/shopspring/decimal"
)

// Sort tokens accepted by Filter and Rank.
const (
	SortBestSelling = "best_selling"
	SortBestRated   = "best_rated"
	SortLatest      = "latest"
	SortDiscount    = "discount"
)

// Query is a catalog listing request. Brand and the price bounds only take
// effect together with CategoryID.
type Query struct {
	CategoryID *string
	Brand      *string
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	Sort       string
}

// Categorized reports whether q takes the category branch of the pipeline.
func (q Query) Categorized() bool {
	return q.CategoryID != nil && *q.CategoryID != ""
}

// IsKnownSort reports whether s names a ranking strategy.
func IsKnownSort(s string) bool {
	switch s {
	case SortBestSelling, SortBestRated, SortLatest, SortDiscount:
		return true
	}
	return false
}
