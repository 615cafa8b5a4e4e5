package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/amankumarsingh77/video-gatekeeper/internal/models"
	"github.com/amankumarsingh77/video-gatekeeper/pkg/httpErrors"
	"github.com/amankumarsingh77/video-gatekeeper/pkg/utils"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

const jwtCookieName = "jwt-token"

// AuthJWTMiddleware admits requests carrying a manager JWT, from the
// Authorization header or the jwt-token cookie, whose session is still live.
func (mw *MiddlewareManager) AuthJWTMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenString, err := bearerToken(c)
			if err != nil {
				mw.logger.Debugf("RequestID: %s, auth middleware: %s", utils.GetRequestID(c), err)
				return c.JSON(http.StatusUnauthorized, httpErrors.NewUnauthorizedError(nil))
			}

			manager, err := mw.validateJWTToken(c.Request().Context(), tokenString)
			if err != nil {
				mw.logger.Debugf("RequestID: %s, validateJWTToken: %s", utils.GetRequestID(c), err)
				if errors.Is(err, httpErrors.ErrForbidden) {
					return c.JSON(http.StatusForbidden, httpErrors.NewForbiddenError(nil))
				}
				return c.JSON(http.StatusUnauthorized, httpErrors.NewUnauthorizedError(nil))
			}

			c.Set("manager", manager)
			ctx := context.WithValue(c.Request().Context(), utils.ManagerCtxKey{}, manager)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

func bearerToken(c echo.Context) (string, error) {
	if header := c.Request().Header.Get(echo.HeaderAuthorization); header != "" {
		parts := strings.Fields(header)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return "", errors.New("malformed authorization header")
		}
		return parts[1], nil
	}
	cookie, err := c.Cookie(jwtCookieName)
	if err != nil || cookie.Value == "" {
		return "", errors.New("missing token")
	}
	return cookie.Value, nil
}

func (mw *MiddlewareManager) validateJWTToken(ctx context.Context, tokenString string) (*models.Manager, error) {
	claims, err := utils.ValidateToken(tokenString, mw.cfg.Server.JwtSecretKey)
	if err != nil {
		return nil, err
	}
	if claims.Role != models.ManagerRole {
		return nil, errors.Wrapf(httpErrors.ErrForbidden, "role %q", claims.Role)
	}
	if claims.ID == "" {
		return nil, errors.New("token without session")
	}
	sess, err := mw.sessUC.GetSessionByID(ctx, claims.ID)
	if err != nil {
		return nil, errors.Wrap(err, "session lookup")
	}
	if sess.KeyID != claims.KeyID {
		return nil, errors.New("session does not belong to token")
	}
	return &models.Manager{KeyID: claims.KeyID, Role: claims.Role, SessionID: sess.SessionID}, nil
}
