// Package pagination computes page counts and the page links shown under post lists.
package pagination

const delta = 2

// Item is one entry of a page window: a page number or an ellipsis.
type Item struct {
	Page     int
	Ellipsis bool
}

// TotalPages is the number of pages needed for total items at size per page.
func TotalPages(total, size int) int {
	if total <= 0 || size <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

// Window returns the links for current out of total pages. The first and last pages are
// always present along with current±2. A gap of one page is filled with that page and a
// longer gap collapses into a single ellipsis.
func Window(current, total int) []Item {
	if total <= 0 {
		return []Item{}
	}
	current = min(max(current, 1), total)

	var pages []int
	for i := 1; i <= total; i++ {
		if i == 1 || i == total || (i >= current-delta && i <= current+delta) {
			pages = append(pages, i)
		}
	}

	items := make([]Item, 0, len(pages)+2)
	last := 0
	for _, p := range pages {
		switch gap := p - last; {
		case last == 0:
		case gap == 2:
			items = append(items, Item{Page: last + 1})
		case gap > 2:
			items = append(items, Item{Ellipsis: true})
		}
		items = append(items, Item{Page: p})
		last = p
	}
	return items
}
