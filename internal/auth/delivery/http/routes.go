package http

import (
	"github.com/amankumarsingh77/video-gatekeeper/internal/auth"
	"github.com/amankumarsingh77/video-gatekeeper/internal/middleware"
	"github.com/labstack/echo/v4"
)

func MapAuthRoutes(authGroup *echo.Group, h auth.Handler, mw *middleware.MiddlewareManager) {
	authGroup.POST("/viewer-token", h.IssueViewerToken())
	authGroup.GET("/check-permission/:video_id", h.CheckPermission())
	authGroup.POST("/session", h.CreateSession())
	authGroup.DELETE("/session", h.Logout(), mw.AuthJWTMiddleware())
	authGroup.GET("/me", h.GetMe(), mw.AuthJWTMiddleware())
}

func MapPageRoutes(pageGroup *echo.Group, h auth.Handler, mw *middleware.MiddlewareManager) {
	pageGroup.Use(mw.AuthJWTMiddleware())
	pageGroup.GET("/search", h.SearchPages())
	pageGroup.GET("/:page_id", h.GetPage())
}

func MapEmbedRoutes(embedGroup *echo.Group, h auth.Handler) {
	embedGroup.GET("/:video_id", h.Embed())
}
