package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/amankumarsingh77/video-gatekeeper/internal/models"
	"github.com/amankumarsingh77/video-gatekeeper/internal/session"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const basePrefix = "manager-session:"

// ErrSessionNotFound is returned for unknown, expired or revoked sessions.
var ErrSessionNotFound = errors.New("session not found")

type sessionRepo struct {
	redisClient *redis.Client
	basePrefix  string
}

func NewSessionRepository(redisClient *redis.Client) session.SessRepository {
	return &sessionRepo{redisClient: redisClient, basePrefix: basePrefix}
}

// CreateSession stores sess for expire seconds and returns its id.
func (s *sessionRepo) CreateSession(ctx context.Context, sess *models.Session, expire int) (string, error) {
	if expire <= 0 {
		return "", errors.New("session expiry must be positive")
	}
	sess.SessionID = uuid.New().String()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now().UTC()
	}
	sessBytes, err := json.Marshal(sess)
	if err != nil {
		return "", errors.Wrap(err, "sessionRepo.CreateSession.json.Marshal")
	}
	if err := s.redisClient.Set(ctx, s.createKey(sess.SessionID), sessBytes, time.Duration(expire)*time.Second).Err(); err != nil {
		return "", errors.Wrap(err, "sessionRepo.CreateSession.redisClient.Set")
	}
	return sess.SessionID, nil
}

func (s *sessionRepo) GetSessionByID(ctx context.Context, sessionID string) (*models.Session, error) {
	sessBytes, err := s.redisClient.Get(ctx, s.createKey(sessionID)).Bytes()
	if err == redis.Nil {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "sessionRepo.GetSessionByID.redisClient.Get")
	}
	sess := &models.Session{}
	if err := json.Unmarshal(sessBytes, sess); err != nil {
		return nil, errors.Wrap(err, "sessionRepo.GetSessionByID.json.Unmarshal")
	}
	return sess, nil
}

func (s *sessionRepo) DeleteByID(ctx context.Context, sessionID string) error {
	if err := s.redisClient.Del(ctx, s.createKey(sessionID)).Err(); err != nil {
		return errors.Wrap(err, "sessionRepo.DeleteByID.redisClient.Del")
	}
	return nil
}

func (s *sessionRepo) createKey(sessionID string) string {
	return s.basePrefix + sessionID
}
