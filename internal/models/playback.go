package models

import (
	"time"

	"github.com/google/uuid"
)

type ViewerTokenRequest struct {
	VideoID string `json:"video_id" validate:"required,uuid"`
	PageID  *int   `json:"page_id" validate:"omitempty,gt=0"`
}

type ViewerTokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	VideoID   uuid.UUID `json:"video_id"`
}

type PermissionResult struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

type VariantInfo struct {
	Quality string `json:"quality"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Bitrate int    `json:"bitrate"`
}

type SubtitleInfo struct {
	Language  string `json:"language"`
	Label     string `json:"label"`
	URL       string `json:"url"`
	IsDefault bool   `json:"is_default"`
}

// EmbedInfo bootstraps a player for one video.
type EmbedInfo struct {
	VideoID     uuid.UUID      `json:"video_id"`
	Title       string         `json:"title"`
	Status      VideoStatus    `json:"status"`
	StreamURL   string         `json:"stream_url,omitempty"`
	PosterURL   string         `json:"poster_url,omitempty"`
	StreamToken string         `json:"stream_token,omitempty"`
	ExpiresAt   *time.Time     `json:"expires_at,omitempty"`
	Duration    *float64       `json:"duration_seconds,omitempty"`
	Variants    []VariantInfo  `json:"variants,omitempty"`
	Subtitles   []SubtitleInfo `json:"subtitles,omitempty"`
}
