package session

import (
	"context"

	"github.com/amankumarsingh77/video-gatekeeper/internal/models"
)

// SessRepository stores manager sessions.
type SessRepository interface {
	CreateSession(ctx context.Context, session *models.Session, expire int) (string, error)
	GetSessionByID(ctx context.Context, sessionID string) (*models.Session, error)
	DeleteByID(ctx context.Context, sessionID string) error
}
