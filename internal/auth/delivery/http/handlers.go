package http

import (
	"net/http"
	"strconv"

	"github.com/amankumarsingh77/video-gatekeeper/internal/auth"
	"github.com/amankumarsingh77/video-gatekeeper/internal/config"
	"github.com/amankumarsingh77/video-gatekeeper/internal/models"
	"github.com/amankumarsingh77/video-gatekeeper/pkg/httpErrors"
	"github.com/amankumarsingh77/video-gatekeeper/pkg/logger"
	"github.com/amankumarsingh77/video-gatekeeper/pkg/utils"
	"github.com/labstack/echo/v4"
)

type authHandler struct {
	cfg    *config.Config
	authUC auth.UseCase
	logger logger.Logger
}

func NewAuthHandler(cfg *config.Config, authUC auth.UseCase, logger logger.Logger) auth.Handler {
	return &authHandler{
		cfg:    cfg,
		authUC: authUC,
		logger: logger,
	}
}

func (h *authHandler) IssueViewerToken() echo.HandlerFunc {
	return func(c echo.Context) error {
		req := &models.ViewerTokenRequest{}
		if err := c.Bind(req); err != nil {
			return utils.ErrResponseWithLog(c, h.logger, httpErrors.NewBadRequestError("invalid request payload"))
		}
		res, err := h.authUC.IssueViewerToken(c.Request().Context(), req)
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		return c.JSON(http.StatusOK, res)
	}
}

func (h *authHandler) CheckPermission() echo.HandlerFunc {
	return func(c echo.Context) error {
		videoID, err := utils.ParseUUIDParam(c, "video_id")
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		pageID, err := utils.ParseOptionalInt(c.QueryParam("page_id"))
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		res, err := h.authUC.CheckPermission(c.Request().Context(), videoID, pageID)
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		return c.JSON(http.StatusOK, res)
	}
}

// Embed answers with the player bootstrap. The page context comes from the
// signed viewer token; a bare page_id query value is only validated.
func (h *authHandler) Embed() echo.HandlerFunc {
	return func(c echo.Context) error {
		videoID, err := utils.ParseUUIDParam(c, "video_id")
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		if _, err := utils.ParseOptionalInt(c.QueryParam("page_id")); err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		info, err := h.authUC.GetEmbed(c.Request().Context(), videoID, c.QueryParam("viewer_token"))
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		c.Response().Header().Set("Cache-Control", "no-store")
		return c.JSON(http.StatusOK, info)
	}
}

func (h *authHandler) CreateSession() echo.HandlerFunc {
	return func(c echo.Context) error {
		req := &models.SessionRequest{}
		if err := c.Bind(req); err != nil {
			return utils.ErrResponseWithLog(c, h.logger, httpErrors.NewBadRequestError("invalid request payload"))
		}
		res, err := h.authUC.CreateSession(c.Request().Context(), req)
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		return c.JSON(http.StatusCreated, res)
	}
}

func (h *authHandler) Logout() echo.HandlerFunc {
	return func(c echo.Context) error {
		manager, err := utils.GetManagerFromCtx(c.Request().Context())
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, httpErrors.NewUnauthorizedError(nil))
		}
		if err := h.authUC.Logout(c.Request().Context(), manager); err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func (h *authHandler) GetMe() echo.HandlerFunc {
	return func(c echo.Context) error {
		manager, err := utils.GetManagerFromCtx(c.Request().Context())
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, httpErrors.NewUnauthorizedError(nil))
		}
		return c.JSON(http.StatusOK, manager)
	}
}

func (h *authHandler) GetPage() echo.HandlerFunc {
	return func(c echo.Context) error {
		pageID, err := strconv.Atoi(c.Param("page_id"))
		if err != nil || pageID <= 0 {
			return utils.ErrResponseWithLog(c, h.logger, httpErrors.NewBadRequestError("invalid page id"))
		}
		page, err := h.authUC.GetPage(c.Request().Context(), pageID)
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		return c.JSON(http.StatusOK, page)
	}
}

func (h *authHandler) SearchPages() echo.HandlerFunc {
	return func(c echo.Context) error {
		count := 0
		if raw := c.QueryParam("count"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				return utils.ErrResponseWithLog(c, h.logger, httpErrors.NewBadRequestError("invalid count"))
			}
			count = n
		}
		hits, err := h.authUC.SearchPages(c.Request().Context(), c.QueryParam("query"), count)
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		return c.JSON(http.StatusOK, hits)
	}
}
