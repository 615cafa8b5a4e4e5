package http

import (
	"fmt"

	"github.com/amankumarsingh77/video-gatekeeper/internal/config"
	"github.com/amankumarsingh77/video-gatekeeper/internal/middleware"
	"github.com/amankumarsingh77/video-gatekeeper/internal/videofiles"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
)

// uploadOverheadMB leaves room for the multipart envelope and form fields.
const uploadOverheadMB = 1

func MapVideoRoutes(videoGroup *echo.Group, h videofiles.Handler, mw *middleware.MiddlewareManager, cfg *config.Config) {
	videoGroup.Use(mw.AuthJWTMiddleware())
	uploadLimit := echoMiddleware.BodyLimit(fmt.Sprintf("%dM", cfg.Transcode.MaxUploadMB+uploadOverheadMB))

	videoGroup.POST("", h.UploadVideo(), uploadLimit)
	videoGroup.GET("", h.ListVideos())
	videoGroup.GET("/:video_id", h.GetVideoByID())
	videoGroup.GET("/:video_id/status", h.GetStatus())
	videoGroup.PATCH("/:video_id", h.UpdateVideo())
	videoGroup.DELETE("/:video_id", h.DeleteVideo())
	videoGroup.POST("/:video_id/retry", h.RetryVideo())
	videoGroup.GET("/:video_id/original", h.GetOriginalURL())

	videoGroup.POST("/:video_id/subtitles", h.UploadSubtitle(), echoMiddleware.BodyLimit("2M"))
	videoGroup.GET("/:video_id/subtitles", h.ListSubtitles())
	videoGroup.PUT("/:video_id/subtitles/:sub_id/default", h.SetDefaultSubtitle())
	videoGroup.DELETE("/:video_id/subtitles/:sub_id", h.DeleteSubtitle())
}
