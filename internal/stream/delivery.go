package stream

import "github.com/labstack/echo/v4"

type Handler interface {
	MasterPlaylist() echo.HandlerFunc
	TierPlaylist() echo.HandlerFunc
	Segment() echo.HandlerFunc
	Thumbnail() echo.HandlerFunc
	Subtitle() echo.HandlerFunc
	SignedFile() echo.HandlerFunc
}
