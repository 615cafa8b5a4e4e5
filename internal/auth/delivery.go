package auth

import "github.com/labstack/echo/v4"

type Handler interface {
	IssueViewerToken() echo.HandlerFunc
	CheckPermission() echo.HandlerFunc
	Embed() echo.HandlerFunc

	CreateSession() echo.HandlerFunc
	Logout() echo.HandlerFunc
	GetMe() echo.HandlerFunc

	GetPage() echo.HandlerFunc
	SearchPages() echo.HandlerFunc
}
