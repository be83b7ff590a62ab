package models

import (
	"sort"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// LayoutEntry places a module in a page. Lower order renders first.
type LayoutEntry struct {
	ModuleID string `json:"moduleId"`
	Order    int    `json:"order"`
}

func (l LayoutEntry) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.ModuleID, validation.Required),
		validation.Field(&l.Order, validation.Min(0)),
	)
}

type PageItem struct {
	ID          string        `json:"_id,omitempty"`
	Title       string        `json:"title"`
	Slug        string        `json:"slug"`
	Status      Status        `json:"status"`
	PublishedAt *time.Time    `json:"publishedAt,omitempty"`
	Layout      []LayoutEntry `json:"layout"`
	CreatedAt   time.Time     `json:"createdAt,omitzero"`
	UpdatedAt   time.Time     `json:"updatedAt,omitzero"`
}

func (p PageItem) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Title, validation.Required),
		validation.Field(&p.Slug, validation.Required, validation.By(validSlug)),
		validation.Field(&p.Status, validation.Required, validation.In(toAny(Statuses)...)),
		validation.Field(&p.Layout),
	)
}

// SortedLayout returns the layout in render order. Entries with equal order
// keep their relative position.
func (p PageItem) SortedLayout() []LayoutEntry {
	out := make([]LayoutEntry, len(p.Layout))
	copy(out, p.Layout)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}
