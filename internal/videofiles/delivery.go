package videofiles

import "github.com/labstack/echo/v4"

type Handler interface {
	UploadVideo() echo.HandlerFunc
	ListVideos() echo.HandlerFunc
	GetVideoByID() echo.HandlerFunc
	GetStatus() echo.HandlerFunc
	UpdateVideo() echo.HandlerFunc
	DeleteVideo() echo.HandlerFunc
	RetryVideo() echo.HandlerFunc
	GetOriginalURL() echo.HandlerFunc

	UploadSubtitle() echo.HandlerFunc
	ListSubtitles() echo.HandlerFunc
	SetDefaultSubtitle() echo.HandlerFunc
	DeleteSubtitle() echo.HandlerFunc
}
