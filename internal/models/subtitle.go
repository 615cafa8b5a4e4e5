package models

import (
	"io"
	"time"

	"github.com/google/uuid"
)

type Subtitle struct {
	ID        uuid.UUID `json:"id" db:"id"`
	VideoID   uuid.UUID `json:"video_id" db:"video_id"`
	Language  string    `json:"language" db:"language"`
	Label     string    `json:"label" db:"label"`
	FilePath  string    `json:"file_path" db:"file_path"`
	IsDefault bool      `json:"is_default" db:"is_default"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type SubtitleUploadInput struct {
	Language  string    `validate:"required,min=2,max=10"`
	Label     string    `validate:"required,lte=100"`
	IsDefault bool
	FileName  string    `validate:"required"`
	File      io.Reader `validate:"required"`
}
