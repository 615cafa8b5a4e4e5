package middleware

import (
	"net/http"
	"time"

	"github.com/amankumarsingh77/video-gatekeeper/internal/config"
	"github.com/amankumarsingh77/video-gatekeeper/internal/session"
	"github.com/amankumarsingh77/video-gatekeeper/pkg/logger"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type MiddlewareManager struct {
	sessUC  session.UCSession
	cfg     *config.Config
	origins []string
	logger  logger.Logger
}

func NewMiddlewareManager(sessUC session.UCSession, cfg *config.Config, origins []string, logger logger.Logger) *MiddlewareManager {
	return &MiddlewareManager{sessUC: sessUC, cfg: cfg, origins: origins, logger: logger}
}

// CORS allows the configured origins to embed and stream.
func (mw *MiddlewareManager) CORS() echo.MiddlewareFunc {
	return middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: mw.origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization, echo.HeaderXRequestID},
		MaxAge:       300,
	})
}

// RequestLogger writes one line per request into the api logger.
func (mw *MiddlewareManager) RequestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURIPath:   true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Status >= 500 {
				mw.logger.Warnf("RequestID: %s, Method: %s, URI: %s, Status: %v, Latency: %s, IP: %s",
					v.RequestID, v.Method, v.URIPath, v.Status, v.Latency.Round(time.Microsecond), v.RemoteIP)
				return nil
			}
			mw.logger.Infof("RequestID: %s, Method: %s, URI: %s, Status: %v, Latency: %s, IP: %s",
				v.RequestID, v.Method, v.URIPath, v.Status, v.Latency.Round(time.Microsecond), v.RemoteIP)
			return nil
		},
	})
}
