package catalog

import "github.com/proyectos-la/digital-world/pkg/pagination"

// Paginate returns the page of items selected by p.
func Paginate[T any](items []T, p pagination.Params) []T {
	lo, hi := p.Window(len(items))
	return items[lo:hi]
}
