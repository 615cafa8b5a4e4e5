package http

import (
	"github.com/amankumarsingh77/video-gatekeeper/internal/stream"
	"github.com/labstack/echo/v4"
)

func MapStreamRoutes(streamGroup *echo.Group, h stream.Handler) {
	streamGroup.GET("/:video_id/master.m3u8", h.MasterPlaylist())
	streamGroup.GET("/:video_id/thumbnail.jpg", h.Thumbnail())
	streamGroup.GET("/:video_id/subtitles/:file", h.Subtitle())
	streamGroup.GET("/:video_id/:quality/playlist.m3u8", h.TierPlaylist())
	streamGroup.GET("/:video_id/:quality/:segment", h.Segment())
}

// MapFileRoutes serves signed links handed out by the local storage backend.
func MapFileRoutes(fileGroup *echo.Group, h stream.Handler) {
	fileGroup.GET("/*", h.SignedFile())
}
