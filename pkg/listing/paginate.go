package listing

import "strconv"

const DefaultPerPage = 20

type PageInfo struct {
	Page       int `json:"page"`
	PerPage    int `json:"perPage"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// Paginate returns one page of items. The page number is clamped into the
// valid range.
func Paginate[T any](items []T, page, perPage int) ([]T, PageInfo) {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	total := len(items)
	totalPages := (total + perPage - 1) / perPage
	if totalPages == 0 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}
	start := (page - 1) * perPage
	end := min(start+perPage, total)
	info := PageInfo{Page: page, PerPage: perPage, Total: total, TotalPages: totalPages}
	if start >= total {
		return []T{}, info
	}
	return items[start:end], info
}

// PageLink is one entry of a pager: a page number or a gap.
type PageLink struct {
	Number   int  `json:"number,omitempty"`
	Ellipsis bool `json:"ellipsis,omitempty"`
}

func (p PageLink) String() string {
	if p.Ellipsis {
		return "..."
	}
	return strconv.Itoa(p.Number)
}

// VisiblePages returns the first and last page, the pages within delta of
// current, and gaps between them. VisiblePages(5, 20, 2) yields
// 1 ... 3 4 5 6 7 ... 20.
func VisiblePages(current, total, delta int) []PageLink {
	if total <= 0 {
		return []PageLink{}
	}
	if total == 1 {
		return []PageLink{{Number: 1}}
	}
	current = max(1, min(current, total))

	start := max(2, current-delta)
	end := min(total-1, current+delta)

	links := []PageLink{{Number: 1}}
	if start > 2 {
		links = append(links, PageLink{Ellipsis: true})
	}
	for n := start; n <= end; n++ {
		links = append(links, PageLink{Number: n})
	}
	if end < total-1 {
		links = append(links, PageLink{Ellipsis: true})
	}
	return append(links, PageLink{Number: total})
}
