package models

import (
	"time"

	"github.com/google/uuid"
)

// Variant is one encoded rendition of a video. Rows are written once by the
// encode stage and replaced, never edited, on retry.
type Variant struct {
	ID            uuid.UUID `json:"id" db:"id"`
	VideoID       uuid.UUID `json:"video_id" db:"video_id"`
	Quality       string    `json:"quality" db:"quality"`
	Width         int       `json:"width" db:"width"`
	Height        int       `json:"height" db:"height"`
	Bitrate       int       `json:"bitrate" db:"bitrate"`
	FilePath      string    `json:"file_path" db:"file_path"`
	FileSizeBytes int64     `json:"file_size_bytes" db:"file_size_bytes"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// Bandwidth in bits per second, as advertised in a master playlist.
func (v *Variant) Bandwidth() int {
	return v.Bitrate * 1000
}
