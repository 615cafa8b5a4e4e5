package httpErrors

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/amankumarsingh77/video-gatekeeper/internal/models"
	"github.com/amankumarsingh77/video-gatekeeper/internal/storage"
	"github.com/amankumarsingh77/video-gatekeeper/internal/token"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

var (
	ErrBadRequest          = errors.New("bad request")
	ErrNotFound            = errors.New("not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrConflict            = errors.New("conflict")
	ErrRequestTimeout      = errors.New("request timeout")
	ErrInternalServerError = errors.New("internal server error")
	ErrInvalidUUID         = errors.New("invalid uuid")
)

type RestErr interface {
	Status() int
	Error() string
	Causes() interface{}
}

// RestError is the JSON body of every error response.
type RestError struct {
	ErrStatus int         `json:"status"`
	ErrError  string      `json:"error"`
	ErrCauses interface{} `json:"causes,omitempty"`
}

func (e RestError) Error() string {
	return fmt.Sprintf("status: %d - error: %s - causes: %v", e.ErrStatus, e.ErrError, e.ErrCauses)
}

func (e RestError) Status() int {
	return e.ErrStatus
}

func (e RestError) Causes() interface{} {
	return e.ErrCauses
}

func NewRestError(status int, err string, causes interface{}) RestErr {
	return RestError{ErrStatus: status, ErrError: err, ErrCauses: causes}
}

func NewBadRequestError(causes interface{}) RestErr {
	return RestError{ErrStatus: http.StatusBadRequest, ErrError: ErrBadRequest.Error(), ErrCauses: causes}
}

func NewNotFoundError(causes interface{}) RestErr {
	return RestError{ErrStatus: http.StatusNotFound, ErrError: ErrNotFound.Error(), ErrCauses: causes}
}

func NewUnauthorizedError(causes interface{}) RestErr {
	return RestError{ErrStatus: http.StatusUnauthorized, ErrError: ErrUnauthorized.Error(), ErrCauses: causes}
}

func NewForbiddenError(causes interface{}) RestErr {
	return RestError{ErrStatus: http.StatusForbidden, ErrError: ErrForbidden.Error(), ErrCauses: causes}
}

func NewConflictError(causes interface{}) RestErr {
	return RestError{ErrStatus: http.StatusConflict, ErrError: ErrConflict.Error(), ErrCauses: causes}
}

func NewInternalServerError(causes interface{}) RestErr {
	return RestError{ErrStatus: http.StatusInternalServerError, ErrError: ErrInternalServerError.Error(), ErrCauses: causes}
}

func validationCauses(verrs validator.ValidationErrors) map[string]string {
	causes := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		causes[fe.Field()] = fe.Tag()
	}
	return causes
}

// ParseErrors maps domain and library errors onto REST errors.
func ParseErrors(err error) RestErr {
	var restErr RestErr
	var verrs validator.ValidationErrors
	var httpErr *echo.HTTPError

	switch {
	case errors.As(err, &restErr):
		return restErr
	case errors.Is(err, sql.ErrNoRows), errors.Is(err, storage.ErrNotFound):
		return NewNotFoundError(nil)
	case errors.As(err, &verrs):
		return NewBadRequestError(validationCauses(verrs))
	case errors.Is(err, models.ErrInvalidVisibility):
		return NewRestError(http.StatusBadRequest, "invalid visibility", nil)
	case errors.Is(err, storage.ErrInvalidKey), errors.Is(err, ErrInvalidUUID):
		return NewBadRequestError(errors.Cause(err).Error())
	case errors.Is(err, token.ErrMalformed),
		errors.Is(err, token.ErrVersion),
		errors.Is(err, token.ErrBadSignature),
		errors.Is(err, token.ErrExpired),
		errors.Is(err, token.ErrVideoMismatch),
		errors.Is(err, token.ErrRevoked):
		return NewRestError(http.StatusForbidden, errors.Cause(err).Error(), nil)
	case errors.As(err, &httpErr):
		return NewRestError(httpErr.Code, fmt.Sprint(httpErr.Message), nil)
	case errors.Is(err, context.DeadlineExceeded):
		return NewRestError(http.StatusGatewayTimeout, ErrRequestTimeout.Error(), nil)
	}
	return NewInternalServerError(nil)
}

func ErrorResponse(err error) (int, interface{}) {
	restErr := ParseErrors(err)
	return restErr.Status(), restErr
}
