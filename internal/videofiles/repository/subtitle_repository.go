package repository

import (
	"context"

	"github.com/amankumarsingh77/video-gatekeeper/internal/models"
	"github.com/amankumarsingh77/video-gatekeeper/internal/videofiles"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

type subtitleRepo struct {
	db *sqlx.DB
}

func NewSubtitleRepo(db *sqlx.DB) videofiles.SubtitleRepository {
	return &subtitleRepo{db: db}
}

func (s *subtitleRepo) CreateSubtitle(ctx context.Context, sub *models.Subtitle) (*models.Subtitle, error) {
	created := &models.Subtitle{}
	err := withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if sub.IsDefault {
			if _, err := tx.ExecContext(ctx, clearDefaultSubtitleQuery, sub.VideoID); err != nil {
				return errors.Wrap(err, "subtitleRepo.CreateSubtitle.clearDefault")
			}
		}
		if err := tx.QueryRowxContext(
			ctx,
			createSubtitleQuery,
			sub.VideoID,
			sub.Language,
			sub.Label,
			sub.FilePath,
			sub.IsDefault,
		).StructScan(created); err != nil {
			return errors.Wrap(err, "subtitleRepo.CreateSubtitle.insert")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *subtitleRepo) GetSubtitles(ctx context.Context, videoID uuid.UUID) ([]*models.Subtitle, error) {
	subs := make([]*models.Subtitle, 0)
	if err := s.db.SelectContext(ctx, &subs, getSubtitlesQuery, videoID); err != nil {
		return nil, errors.Wrap(err, "subtitleRepo.GetSubtitles")
	}
	return subs, nil
}

func (s *subtitleRepo) GetSubtitle(ctx context.Context, videoID, subID uuid.UUID) (*models.Subtitle, error) {
	sub := &models.Subtitle{}
	if err := s.db.GetContext(ctx, sub, getSubtitleQuery, videoID, subID); err != nil {
		return nil, errors.Wrap(err, "subtitleRepo.GetSubtitle")
	}
	return sub, nil
}

// SetDefaultSubtitle clears the previous default in the same transaction.
func (s *subtitleRepo) SetDefaultSubtitle(ctx context.Context, videoID, subID uuid.UUID) error {
	return withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, clearDefaultSubtitleQuery, videoID); err != nil {
			return errors.Wrap(err, "subtitleRepo.SetDefaultSubtitle.clear")
		}
		res, err := tx.ExecContext(ctx, setDefaultSubtitleQuery, videoID, subID)
		if err != nil {
			return errors.Wrap(err, "subtitleRepo.SetDefaultSubtitle.set")
		}
		return errors.Wrap(rowsAffected(res), "subtitleRepo.SetDefaultSubtitle")
	})
}

func (s *subtitleRepo) DeleteSubtitle(ctx context.Context, videoID, subID uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, deleteSubtitleQuery, videoID, subID)
	if err != nil {
		return errors.Wrap(err, "subtitleRepo.DeleteSubtitle")
	}
	return errors.Wrap(rowsAffected(res), "subtitleRepo.DeleteSubtitle")
}
