package http

import (
	"io"
	"net/http"

	"github.com/amankumarsingh77/video-gatekeeper/internal/storage"
	"github.com/amankumarsingh77/video-gatekeeper/internal/stream"
	"github.com/amankumarsingh77/video-gatekeeper/pkg/logger"
	"github.com/amankumarsingh77/video-gatekeeper/pkg/utils"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	mimeHLS        = "application/vnd.apple.mpegurl"
	cacheNone      = "no-cache"
	cacheSegment   = "max-age=31536000"
	cacheAuxiliary = "max-age=3600"

	headerCacheControl = "Cache-Control"
)

type streamHandler struct {
	streamUC stream.UseCase
	logger   logger.Logger
}

func NewStreamHandler(streamUC stream.UseCase, logger logger.Logger) stream.Handler {
	return &streamHandler{streamUC: streamUC, logger: logger}
}

// authorized parses the video id and checks the stream token.
func (h *streamHandler) authorized(c echo.Context) (uuid.UUID, error) {
	videoID, err := utils.ParseUUIDParam(c, "video_id")
	if err != nil {
		return uuid.Nil, err
	}
	if err := h.streamUC.Authorize(videoID, c.QueryParam("token")); err != nil {
		return uuid.Nil, err
	}
	return videoID, nil
}

func (h *streamHandler) MasterPlaylist() echo.HandlerFunc {
	return func(c echo.Context) error {
		videoID, err := h.authorized(c)
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		body, err := h.streamUC.MasterPlaylist(c.Request().Context(), videoID, c.QueryParam("token"))
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		c.Response().Header().Set(headerCacheControl, cacheNone)
		return c.Blob(http.StatusOK, mimeHLS, body)
	}
}

func (h *streamHandler) TierPlaylist() echo.HandlerFunc {
	return func(c echo.Context) error {
		videoID, err := h.authorized(c)
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		body, err := h.streamUC.TierPlaylist(c.Request().Context(), videoID, c.Param("quality"), c.QueryParam("token"))
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		c.Response().Header().Set(headerCacheControl, cacheNone)
		return c.Blob(http.StatusOK, mimeHLS, body)
	}
}

func (h *streamHandler) Segment() echo.HandlerFunc {
	return func(c echo.Context) error {
		videoID, err := h.authorized(c)
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		segment := c.Param("segment")
		rc, err := h.streamUC.Segment(c.Request().Context(), videoID, c.Param("quality"), segment)
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		return h.send(c, rc, storage.ContentType(segment), cacheSegment)
	}
}

func (h *streamHandler) Thumbnail() echo.HandlerFunc {
	return func(c echo.Context) error {
		videoID, err := h.authorized(c)
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		rc, err := h.streamUC.Thumbnail(c.Request().Context(), videoID)
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		return h.send(c, rc, "image/jpeg", cacheAuxiliary)
	}
}

func (h *streamHandler) Subtitle() echo.HandlerFunc {
	return func(c echo.Context) error {
		videoID, err := h.authorized(c)
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		rc, err := h.streamUC.Subtitle(c.Request().Context(), videoID, c.Param("file"))
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		return h.send(c, rc, "text/vtt", cacheAuxiliary)
	}
}

func (h *streamHandler) SignedFile() echo.HandlerFunc {
	return func(c echo.Context) error {
		key := c.Param("*")
		rc, err := h.streamUC.SignedFile(c.Request().Context(), c.Request().URL.Path, key, c.QueryParams())
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		return h.send(c, rc, storage.ContentType(key), cacheNone)
	}
}

func (h *streamHandler) send(c echo.Context, rc io.ReadCloser, contentType, cacheControl string) error {
	defer rc.Close()
	c.Response().Header().Set(headerCacheControl, cacheControl)
	return c.Stream(http.StatusOK, contentType, rc)
}
