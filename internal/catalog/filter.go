package catalog

import (
	"github.com/proyectos-la/digital-world/internal/domain"
)

// Apply runs the full listing pipeline: Filter, then Rank when a category is set.
func Apply(items []domain.ProductSummary, q Query) []domain.ProductSummary {
	out := Filter(items, q)
	if q.Categorized() {
		out = Rank(out, q.Sort)
	}
	return out
}

// Filter narrows items according to q. Without a category only the sort
// shortcuts apply: "discount" keeps on-sale items and "latest" orders by
// creation time; anything else returns a copy of items as given.
func Filter(items []domain.ProductSummary, q Query) []domain.ProductSummary {
	if !q.Categorized() {
		switch q.Sort {
		case SortDiscount:
			return keep(items, func(p *domain.ProductSummary) bool { return p.IsOnSale })
		case SortLatest:
			return Rank(items, SortLatest)
		default:
			return keep(items, func(*domain.ProductSummary) bool { return true })
		}
	}

	return keep(items, func(p *domain.ProductSummary) bool {
		if p.CategoryID != *q.CategoryID {
			return false
		}
		if q.Brand != nil && (p.BrandName == nil || *p.BrandName != *q.Brand) {
			return false
		}
		if q.MinPrice == nil && q.MaxPrice == nil {
			return true
		}
		price := p.Effective()
		if q.MinPrice != nil && price.LessThan(*q.MinPrice) {
			return false
		}
		if q.MaxPrice != nil && price.GreaterThan(*q.MaxPrice) {
			return false
		}
		return true
	})
}

func keep(items []domain.ProductSummary, pred func(*domain.ProductSummary) bool) []domain.ProductSummary {
	out := make([]domain.ProductSummary, 0, len(items))
	for i := range items {
		if pred(&items[i]) {
			out = append(out, items[i])
		}
	}
	return out
}
