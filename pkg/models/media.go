package models

import (
	"strings"
	"time"
)

// UploadState tracks a media record from optimistic placeholder to the
// record the API confirmed.
type UploadState string

const (
	UploadPending   UploadState = "pending"
	UploadConfirmed UploadState = "confirmed"
	UploadFailed    UploadState = "failed"
)

const (
	MediaImage    = "image"
	MediaVideo    = "video"
	MediaDocument = "document"
)

type MediaItem struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Src        string      `json:"src"`
	SizeKB     float64     `json:"sizeKb"`
	UploadedAt time.Time   `json:"uploadedAt"`
	Type       string      `json:"type"`
	IsLocal    bool        `json:"isLocal,omitempty"`
	State      UploadState `json:"state,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// Category buckets a MIME type or a short type name into image, video or
// document.
func (m MediaItem) Category() string {
	t := strings.ToLower(m.Type)
	switch {
	case t == MediaImage || strings.HasPrefix(t, "image/"):
		return MediaImage
	case t == MediaVideo || strings.HasPrefix(t, "video/"):
		return MediaVideo
	default:
		return MediaDocument
	}
}
