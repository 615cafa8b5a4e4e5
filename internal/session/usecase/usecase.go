package usecase

import (
	"context"

	"github.com/amankumarsingh77/video-gatekeeper/internal/config"
	"github.com/amankumarsingh77/video-gatekeeper/internal/models"
	"github.com/amankumarsingh77/video-gatekeeper/internal/session"
	"github.com/pkg/errors"
)

type sessionUC struct {
	sessionRepo session.SessRepository
	cfg         *config.Config
}

func NewSessionUseCase(sessionRepo session.SessRepository, cfg *config.Config) session.UCSession {
	return &sessionUC{sessionRepo: sessionRepo, cfg: cfg}
}

// CreateSession stores a manager session. A non-positive expire falls back
// to managers.sessionTTL.
func (u *sessionUC) CreateSession(ctx context.Context, sess *models.Session, expire int) (string, error) {
	if sess.KeyID == "" {
		return "", errors.New("session without key id")
	}
	if expire <= 0 {
		expire = int(u.cfg.Managers.SessionTTL.Seconds())
	}
	return u.sessionRepo.CreateSession(ctx, sess, expire)
}

func (u *sessionUC) DeleteByID(ctx context.Context, sessionID string) error {
	return u.sessionRepo.DeleteByID(ctx, sessionID)
}

func (u *sessionUC) GetSessionByID(ctx context.Context, sessionID string) (*models.Session, error) {
	if sessionID == "" {
		return nil, errors.New("empty session id")
	}
	return u.sessionRepo.GetSessionByID(ctx, sessionID)
}
