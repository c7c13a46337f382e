package catalog

import (
	"cmp"
	"slices"
	"strings"

	"github.com/proyectos-la/digital-world/internal/domain"
)

type compareFunc func(a, b *domain.ProductSummary) int

// Rank returns a newly ordered copy of items. Unknown or empty strategies
// order by ID ascending. Ties always fall back to ID ascending.
func Rank(items []domain.ProductSummary, strategy string) []domain.ProductSummary {
	out := slices.Clone(items)
	if strategy == SortDiscount {
		out = keep(out, func(p *domain.ProductSummary) bool { return p.IsOnSale })
	}

	primary := strategies[strategy]
	slices.SortStableFunc(out, func(a, b domain.ProductSummary) int {
		if primary != nil {
			if c := primary(&a, &b); c != 0 {
				return c
			}
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

var strategies = map[string]compareFunc{
	SortBestSelling: func(a, b *domain.ProductSummary) int {
		return cmp.Compare(b.TotalSold, a.TotalSold)
	},
	SortBestRated: func(a, b *domain.ProductSummary) int {
		if c := lastWhen(a.RatingCount == 0, b.RatingCount == 0); c != 0 {
			return c
		}
		return cmp.Compare(b.AverageRating, a.AverageRating)
	},
	SortLatest: func(a, b *domain.ProductSummary) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	},
	SortDiscount: func(a, b *domain.ProductSummary) int {
		if c := lastWhen(a.DiscountPercentage == nil, b.DiscountPercentage == nil); c != 0 || a.DiscountPercentage == nil {
			return c
		}
		return b.DiscountPercentage.Cmp(*a.DiscountPercentage)
	},
}

// lastWhen orders the element whose flag is set after the other one.
func lastWhen(aLast, bLast bool) int {
	switch {
	case aLast == bLast:
		return 0
	case aLast:
		return 1
	default:
		return -1
	}
}
