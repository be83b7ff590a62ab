package models

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Status is the publication lifecycle of blogs, stories and pages. The
// lifecycle itself is owned by the API.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusScheduled Status = "scheduled"
	StatusArchived  Status = "archived"
)

// Statuses lists every known status in display order.
var Statuses = []Status{StatusDraft, StatusPublished, StatusScheduled, StatusArchived}

func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

const (
	BadgeSuccess = "success"
	BadgeDraft   = "draft"
)

// Badge is the visual treatment of a status in admin tables.
type Badge struct {
	Label   string `json:"label"`
	Variant string `json:"variant"`
}

// BadgeFor returns the published variant for published items and the draft
// variant for everything else.
func BadgeFor(s Status) Badge {
	if s == StatusPublished {
		return Badge{Label: "Published", Variant: BadgeSuccess}
	}
	label := strings.TrimSpace(string(s))
	if label == "" {
		label = string(StatusDraft)
	}
	r, size := utf8.DecodeRuneInString(label)
	return Badge{Label: string(unicode.ToUpper(r)) + label[size:], Variant: BadgeDraft}
}
