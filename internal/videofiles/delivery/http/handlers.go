package http

import (
	"net/http"
	"strconv"

	"github.com/amankumarsingh77/video-gatekeeper/internal/config"
	"github.com/amankumarsingh77/video-gatekeeper/internal/models"
	"github.com/amankumarsingh77/video-gatekeeper/internal/videofiles"
	"github.com/amankumarsingh77/video-gatekeeper/pkg/httpErrors"
	"github.com/amankumarsingh77/video-gatekeeper/pkg/logger"
	"github.com/amankumarsingh77/video-gatekeeper/pkg/utils"
	"github.com/labstack/echo/v4"
)

type videoHandler struct {
	cfg     *config.Config
	videoUC videofiles.UseCase
	logger  logger.Logger
}

func NewVideoHandler(cfg *config.Config, videoUC videofiles.UseCase, logger logger.Logger) videofiles.Handler {
	return &videoHandler{
		cfg:     cfg,
		videoUC: videoUC,
		logger:  logger,
	}
}

func (h *videoHandler) UploadVideo() echo.HandlerFunc {
	return func(c echo.Context) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, httpErrors.NewBadRequestError("file is required"))
		}
		pageID, err := utils.ParseOptionalInt(c.FormValue("page_id"))
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		file, err := fh.Open()
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		defer file.Close()

		video, err := h.videoUC.UploadVideo(c.Request().Context(), &models.VideoUploadInput{
			Title:       c.FormValue("title"),
			Description: c.FormValue("description"),
			FileName:    fh.Filename,
			FileSize:    fh.Size,
			Visibility:  c.FormValue("visibility"),
			PageID:      pageID,
			File:        file,
		})
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		return c.JSON(http.StatusCreated, video)
	}
}

func (h *videoHandler) ListVideos() echo.HandlerFunc {
	return func(c echo.Context) error {
		pagination, err := utils.GetPaginationFromCtx(c)
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, httpErrors.NewBadRequestError(err.Error()))
		}
		videos, err := h.videoUC.ListVideos(c.Request().Context(), pagination)
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		return c.JSON(http.StatusOK, videos)
	}
}

func (h *videoHandler) GetVideoByID() echo.HandlerFunc {
	return func(c echo.Context) error {
		videoID, err := utils.ParseUUIDParam(c, "video_id")
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		video, err := h.videoUC.GetVideo(c.Request().Context(), videoID)
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		return c.JSON(http.StatusOK, video)
	}
}

func (h *videoHandler) GetStatus() echo.HandlerFunc {
	return func(c echo.Context) error {
		videoID, err := utils.ParseUUIDParam(c, "video_id")
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		status, err := h.videoUC.GetStatus(c.Request().Context(), videoID)
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		return c.JSON(http.StatusOK, status)
	}
}

func (h *videoHandler) GetOriginalURL() echo.HandlerFunc {
	return func(c echo.Context) error {
		videoID, err := utils.ParseUUIDParam(c, "video_id")
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		link, err := h.videoUC.GetOriginalURL(c.Request().Context(), videoID)
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		return c.JSON(http.StatusOK, link)
	}
}

func (h *videoHandler) UpdateVideo() echo.HandlerFunc {
	return func(c echo.Context) error {
		videoID, err := utils.ParseUUIDParam(c, "video_id")
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		input := &models.VideoUpdateInput{}
		if err := utils.ReadRequest(c, input); err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		video, err := h.videoUC.UpdateVideo(c.Request().Context(), videoID, input)
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		return c.JSON(http.StatusOK, video)
	}
}

func (h *videoHandler) DeleteVideo() echo.HandlerFunc {
	return func(c echo.Context) error {
		videoID, err := utils.ParseUUIDParam(c, "video_id")
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		if err := h.videoUC.DeleteVideo(c.Request().Context(), videoID); err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func (h *videoHandler) RetryVideo() echo.HandlerFunc {
	return func(c echo.Context) error {
		videoID, err := utils.ParseUUIDParam(c, "video_id")
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		job, err := h.videoUC.RetryVideo(c.Request().Context(), videoID)
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		return c.JSON(http.StatusAccepted, job)
	}
}

func (h *videoHandler) UploadSubtitle() echo.HandlerFunc {
	return func(c echo.Context) error {
		videoID, err := utils.ParseUUIDParam(c, "video_id")
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		fh, err := c.FormFile("file")
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, httpErrors.NewBadRequestError("file is required"))
		}
		isDefault := false
		if raw := c.FormValue("is_default"); raw != "" {
			if isDefault, err = strconv.ParseBool(raw); err != nil {
				return utils.ErrResponseWithLog(c, h.logger, httpErrors.NewBadRequestError("invalid is_default"))
			}
		}
		file, err := fh.Open()
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		defer file.Close()

		sub, err := h.videoUC.UploadSubtitle(c.Request().Context(), videoID, &models.SubtitleUploadInput{
			Language:  c.FormValue("language"),
			Label:     c.FormValue("label"),
			IsDefault: isDefault,
			FileName:  fh.Filename,
			File:      file,
		})
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		return c.JSON(http.StatusCreated, sub)
	}
}

func (h *videoHandler) ListSubtitles() echo.HandlerFunc {
	return func(c echo.Context) error {
		videoID, err := utils.ParseUUIDParam(c, "video_id")
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		subs, err := h.videoUC.ListSubtitles(c.Request().Context(), videoID)
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		return c.JSON(http.StatusOK, subs)
	}
}

func (h *videoHandler) SetDefaultSubtitle() echo.HandlerFunc {
	return func(c echo.Context) error {
		videoID, err := utils.ParseUUIDParam(c, "video_id")
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		subID, err := utils.ParseUUIDParam(c, "sub_id")
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		if err := h.videoUC.SetDefaultSubtitle(c.Request().Context(), videoID, subID); err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func (h *videoHandler) DeleteSubtitle() echo.HandlerFunc {
	return func(c echo.Context) error {
		videoID, err := utils.ParseUUIDParam(c, "video_id")
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		subID, err := utils.ParseUUIDParam(c, "sub_id")
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		if err := h.videoUC.DeleteSubtitle(c.Request().Context(), videoID, subID); err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}
