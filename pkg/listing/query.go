package listing

import (
	"net/url"
	"strconv"
	"strings"
)

// Query is the table state sent by the admin screens.
type Query struct {
	Search    string
	Status    string
	Type      string
	SortBy    string
	Direction Direction
	Page      int
	PerPage   int
}

func ParseQuery(v url.Values) Query {
	q := Query{
		Search:    strings.TrimSpace(v.Get("q")),
		Status:    strings.TrimSpace(v.Get("status")),
		Type:      strings.TrimSpace(v.Get("type")),
		SortBy:    strings.TrimSpace(v.Get("sort")),
		Direction: ParseDirection(v.Get("dir")),
		Page:      1,
		PerPage:   DefaultPerPage,
	}
	if n, err := strconv.Atoi(v.Get("page")); err == nil && n > 0 {
		q.Page = n
	}
	if n, err := strconv.Atoi(v.Get("perPage")); err == nil && n > 0 && n <= 100 {
		q.PerPage = n
	}
	return q
}
