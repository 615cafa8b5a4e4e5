package models

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

type VideoStatus string

const (
	VideoStatusPending    VideoStatus = "pending"
	VideoStatusProcessing VideoStatus = "processing"
	VideoStatusReady      VideoStatus = "ready"
	VideoStatusFailed     VideoStatus = "failed"
)

type Visibility string

const (
	VisibilityPublic        Visibility = "public"
	VisibilityUnlisted      Visibility = "unlisted"
	VisibilityPageProtected Visibility = "page_protected"
	VisibilityPrivate       Visibility = "private"
)

var ErrInvalidVisibility = errors.New("invalid visibility")

func ParseVisibility(s string) (Visibility, error) {
	switch v := Visibility(s); v {
	case VisibilityPublic, VisibilityUnlisted, VisibilityPageProtected, VisibilityPrivate:
		return v, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidVisibility, s)
}

type Video struct {
	ID               uuid.UUID   `json:"id" db:"id"`
	Title            string      `json:"title" db:"title" validate:"required,lte=255"`
	Description      *string     `json:"description,omitempty" db:"description"`
	OriginalFilename string      `json:"original_filename" db:"original_filename"`
	DurationSeconds  *float64    `json:"duration_seconds,omitempty" db:"duration_seconds"`
	Status           VideoStatus `json:"status" db:"status"`
	Visibility       Visibility  `json:"visibility" db:"visibility"`
	PageID           *int        `json:"page_id,omitempty" db:"page_id"`
	CreatedAt        time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at" db:"updated_at"`
	EmbedURL         string      `json:"embed_url,omitempty" db:"-"`
}

// OriginalKey is the storage key of the uploaded source file.
func (v *Video) OriginalKey() string {
	return fmt.Sprintf("%s/original/%s", v.ID, v.OriginalFilename)
}

// WithEmbedURL fills the player bootstrap path.
func (v *Video) WithEmbedURL() *Video {
	v.EmbedURL = fmt.Sprintf("/embed/%s", v.ID)
	return v
}

// LinkedPage reports the page a page_protected video is restricted to.
func (v *Video) LinkedPage() (int, bool) {
	if v.PageID == nil {
		return 0, false
	}
	return *v.PageID, true
}

type VideoList struct {
	Videos     []*Video `json:"videos"`
	TotalCount int      `json:"total_count"`
	TotalPages int      `json:"total_pages"`
	Page       int      `json:"page"`
	PageSize   int      `json:"page_size"`
	HasMore    bool     `json:"has_more"`
}

type VideoUploadInput struct {
	Title       string    `validate:"required,lte=255"`
	Description string    `validate:"lte=5000"`
	FileName    string    `validate:"required,lte=255"`
	FileSize    int64     `validate:"gt=0"`
	Visibility  string    `validate:"omitempty,oneof=public unlisted page_protected private"`
	PageID      *int      `validate:"omitempty,gt=0"`
	File        io.Reader `validate:"required"`
}

type VideoUpdateInput struct {
	Title       *string `json:"title" validate:"omitempty,min=1,lte=255"`
	Description *string `json:"description" validate:"omitempty,lte=5000"`
	Visibility  *string `json:"visibility"`
	PageID      *int    `json:"page_id" validate:"omitempty,gt=0"`
	ClearPageID bool    `json:"clear_page_id"`
}

// DownloadLink is a time limited link to a stored file.
type DownloadLink struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// VideoStatusInfo is the management view of a video's processing state.
type VideoStatusInfo struct {
	VideoID      uuid.UUID     `json:"video_id"`
	Status       VideoStatus   `json:"status"`
	Job          *TranscodeJob `json:"job,omitempty"`
	LiveProgress *int          `json:"live_progress,omitempty"`
	Variants     []*Variant    `json:"variants"`
}
