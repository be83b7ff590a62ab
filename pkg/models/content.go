package models

import (
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-slug"
)

// Kind names a content collection on the API.
type Kind string

const (
	KindBlogs   Kind = "blogs"
	KindStories Kind = "stories"
)

func (k Kind) Valid() bool {
	return k == KindBlogs || k == KindStories
}

// Singular is the envelope key the API uses for a single record.
func (k Kind) Singular() string {
	if k == KindStories {
		return "story"
	}
	return "blog"
}

// ContentItem is a blog post or a story. Both collections share one shape.
type ContentItem struct {
	ID          string     `json:"_id,omitempty"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Excerpt     string     `json:"excerpt,omitempty"`
	Content     string     `json:"content,omitempty"`
	Author      string     `json:"author,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	Status      Status     `json:"status"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt,omitzero"`
	UpdatedAt   time.Time  `json:"updatedAt,omitzero"`
}

type (
	BlogItem  = ContentItem
	StoryItem = ContentItem
)

// Validate checks a record before it is submitted to the API.
func (c ContentItem) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Title, validation.Required, validation.Length(1, 300)),
		validation.Field(&c.Slug, validation.Required, validation.By(validSlug)),
		validation.Field(&c.Status, validation.Required, validation.In(toAny(Statuses)...)),
	)
}

// SlugFrom derives a URL slug from a title.
func SlugFrom(title string) (string, error) {
	return slug.Normalize(title)
}

func validSlug(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if !slug.IsValid(s) {
		return errors.New("must be a valid slug")
	}
	return nil
}

func toAny(statuses []Status) []interface{} {
	out := make([]interface{}, len(statuses))
	for i, s := range statuses {
		out[i] = s
	}
	return out
}
