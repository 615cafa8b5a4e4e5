package utils

import (
	"context"
	"strconv"

	"github.com/amankumarsingh77/video-gatekeeper/internal/models"
	"github.com/amankumarsingh77/video-gatekeeper/pkg/httpErrors"
	"github.com/amankumarsingh77/video-gatekeeper/pkg/logger"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type ManagerCtxKey struct{}

func GetManagerFromCtx(ctx context.Context) (*models.Manager, error) {
	manager, ok := ctx.Value(ManagerCtxKey{}).(*models.Manager)
	if !ok {
		return nil, httpErrors.ErrUnauthorized
	}
	return manager, nil
}

func GetRequestID(c echo.Context) string {
	return c.Response().Header().Get(echo.HeaderXRequestID)
}

func GetIPAddress(c echo.Context) string {
	return c.RealIP()
}

// ReadRequest binds the body into request and validates it.
func ReadRequest(c echo.Context, request interface{}) error {
	if err := c.Bind(request); err != nil {
		return httpErrors.NewBadRequestError("invalid request payload")
	}
	return ValidateStruct(c.Request().Context(), request)
}

func ParseUUIDParam(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, errors.Wrap(httpErrors.ErrInvalidUUID, name)
	}
	return id, nil
}

// ParseOptionalInt returns nil for an empty value.
func ParseOptionalInt(raw string) (*int, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return nil, httpErrors.NewBadRequestError("invalid integer " + strconv.Quote(raw))
	}
	return &v, nil
}

// ErrResponseWithLog logs the error with request context and writes the
// mapped REST error.
func ErrResponseWithLog(c echo.Context, log logger.Logger, err error) error {
	status, body := httpErrors.ErrorResponse(err)
	if status >= 500 {
		log.Errorf("RequestID: %s, IPAddress: %s, Error: %s", GetRequestID(c), GetIPAddress(c), err)
	} else {
		log.Debugf("RequestID: %s, IPAddress: %s, Error: %s", GetRequestID(c), GetIPAddress(c), err)
	}
	return c.JSON(status, body)
}
