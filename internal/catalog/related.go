package catalog

import (
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/proyectos-la/digital-world/internal/domain"
)

// Related picks, among candidates, the products that share ref's category and
// either share its brand (no brand matches no brand) or have an effective
// price within window of ref's. The result excludes ref, has no duplicate
// IDs and is ordered by ID.
func Related(ref domain.ProductSummary, candidates []domain.ProductSummary, window decimal.Decimal) []domain.ProductSummary {
	refPrice := ref.Effective()
	seen := make(map[string]struct{}, len(candidates))
	out := make([]domain.ProductSummary, 0)

	for _, c := range candidates {
		if c.ID == ref.ID || c.CategoryID != ref.CategoryID {
			continue
		}
		if _, dup := seen[c.ID]; dup {
			continue
		}
		if sameBrand(ref.BrandID, c.BrandID) || c.Effective().Sub(refPrice).Abs().LessThanOrEqual(window) {
			seen[c.ID] = struct{}{}
			out = append(out, c)
		}
	}

	slices.SortFunc(out, func(a, b domain.ProductSummary) int { return strings.Compare(a.ID, b.ID) })
	return out
}

func sameBrand(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
