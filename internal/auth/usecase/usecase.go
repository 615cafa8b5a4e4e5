package usecase

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"path"
	"sort"

	"github.com/amankumarsingh77/video-gatekeeper/internal/auth"
	"github.com/amankumarsingh77/video-gatekeeper/internal/config"
	"github.com/amankumarsingh77/video-gatekeeper/internal/models"
	"github.com/amankumarsingh77/video-gatekeeper/internal/pageaccess"
	"github.com/amankumarsingh77/video-gatekeeper/internal/policy"
	"github.com/amankumarsingh77/video-gatekeeper/internal/session"
	"github.com/amankumarsingh77/video-gatekeeper/internal/token"
	"github.com/amankumarsingh77/video-gatekeeper/internal/videofiles"
	"github.com/amankumarsingh77/video-gatekeeper/pkg/httpErrors"
	"github.com/amankumarsingh77/video-gatekeeper/pkg/logger"
	"github.com/amankumarsingh77/video-gatekeeper/pkg/utils"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	reasonNoVariants = "No video variants available"
	maxSearchResults = 50
)

type authUC struct {
	cfg       *config.Config
	videoRepo videofiles.Repository
	subRepo   videofiles.SubtitleRepository
	policy    *policy.Policy
	signer    *token.Signer
	sessUC    session.UCSession
	pages     auth.PageDirectory
	logger    logger.Logger
}

func NewAuthUseCase(
	cfg *config.Config,
	videoRepo videofiles.Repository,
	subRepo videofiles.SubtitleRepository,
	pol *policy.Policy,
	signer *token.Signer,
	sessUC session.UCSession,
	pages auth.PageDirectory,
	log logger.Logger,
) auth.UseCase {
	return &authUC{
		cfg:       cfg,
		videoRepo: videoRepo,
		subRepo:   subRepo,
		policy:    pol,
		signer:    signer,
		sessUC:    sessUC,
		pages:     pages,
		logger:    log,
	}
}

// findVideo returns nil, nil for an unknown id so the policy can answer
// with its own reason.
func (u *authUC) findVideo(ctx context.Context, videoID uuid.UUID) (*models.Video, error) {
	video, err := u.videoRepo.GetVideoByID(ctx, videoID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "authUC.findVideo")
	}
	return video, nil
}

func denial(d policy.Decision) error {
	return httpErrors.NewRestError(d.Status, d.Reason, nil)
}

func (u *authUC) IssueViewerToken(ctx context.Context, req *models.ViewerTokenRequest) (*models.ViewerTokenResponse, error) {
	if err := utils.ValidateStruct(ctx, req); err != nil {
		return nil, err
	}
	videoID, err := uuid.Parse(req.VideoID)
	if err != nil {
		return nil, errors.Wrap(httpErrors.ErrInvalidUUID, "video_id")
	}
	video, err := u.findVideo(ctx, videoID)
	if err != nil {
		return nil, err
	}

	d := u.policy.CanIssueViewerToken(ctx, video, req.PageID)
	if !d.Allowed {
		return nil, denial(d)
	}
	tok, expiresAt, err := u.signer.ViewerToken(video.ID.String(), req.PageID, u.cfg.Tokens.ViewerTTL)
	if err != nil {
		return nil, errors.Wrap(err, "authUC.IssueViewerToken.ViewerToken")
	}
	return &models.ViewerTokenResponse{Token: tok, ExpiresAt: expiresAt.UTC(), VideoID: video.ID}, nil
}

func (u *authUC) CheckPermission(ctx context.Context, videoID uuid.UUID, pageID *int) (*models.PermissionResult, error) {
	video, err := u.findVideo(ctx, videoID)
	if err != nil {
		return nil, err
	}
	d := u.policy.CheckPermission(video, pageID)
	return &models.PermissionResult{Allowed: d.Allowed, Reason: d.Reason}, nil
}

// GetEmbed bootstraps a player. viewerToken is only read for page_protected
// videos; there a token that is present must verify.
func (u *authUC) GetEmbed(ctx context.Context, videoID uuid.UUID, viewerToken string) (*models.EmbedInfo, error) {
	video, err := u.findVideo(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if video == nil {
		return nil, httpErrors.NewRestError(http.StatusNotFound, policy.ReasonVideoNotFound, nil)
	}

	var viewer *token.ViewerClaims
	if viewerToken != "" && video.Visibility == models.VisibilityPageProtected {
		if viewer, err = u.signer.VerifyViewer(viewerToken, video.ID.String()); err != nil {
			return nil, err
		}
	}
	if d := u.policy.CanEmbed(video, viewer); !d.Allowed {
		return nil, denial(d)
	}

	info := &models.EmbedInfo{
		VideoID:  video.ID,
		Title:    video.Title,
		Status:   video.Status,
		Duration: video.DurationSeconds,
	}
	if video.Status != models.VideoStatusReady {
		return info, nil
	}

	variants, err := u.videoRepo.GetVariants(ctx, video.ID)
	if err != nil {
		return nil, errors.Wrap(err, "authUC.GetEmbed.GetVariants")
	}
	if len(variants) == 0 {
		return nil, httpErrors.NewRestError(http.StatusNotFound, reasonNoVariants, nil)
	}
	sort.SliceStable(variants, func(i, j int) bool { return variants[i].Height > variants[j].Height })

	streamToken, expiresAt, err := u.signer.StreamToken(video.ID.String(), u.cfg.Tokens.StreamTTL)
	if err != nil {
		return nil, errors.Wrap(err, "authUC.GetEmbed.StreamToken")
	}
	expiresAt = expiresAt.UTC()
	info.StreamToken = streamToken
	info.ExpiresAt = &expiresAt
	info.StreamURL = fmt.Sprintf("/stream/%s/master.m3u8?token=%s", video.ID, streamToken)
	info.PosterURL = fmt.Sprintf("/stream/%s/thumbnail.jpg?token=%s", video.ID, streamToken)
	for _, v := range variants {
		info.Variants = append(info.Variants, models.VariantInfo{
			Quality: v.Quality,
			Width:   v.Width,
			Height:  v.Height,
			Bitrate: v.Bitrate,
		})
	}

	subs, err := u.subRepo.GetSubtitles(ctx, video.ID)
	if err != nil {
		return nil, errors.Wrap(err, "authUC.GetEmbed.GetSubtitles")
	}
	for _, s := range subs {
		info.Subtitles = append(info.Subtitles, models.SubtitleInfo{
			Language:  s.Language,
			Label:     s.Label,
			URL:       fmt.Sprintf("/stream/%s/subtitles/%s?token=%s", video.ID, path.Base(s.FilePath), streamToken),
			IsDefault: s.IsDefault,
		})
	}
	return info, nil
}

// CreateSession exchanges a manager API key for a JWT backed by a revocable
// session.
func (u *authUC) CreateSession(ctx context.Context, req *models.SessionRequest) (*models.SessionResponse, error) {
	if err := utils.ValidateStruct(ctx, req); err != nil {
		return nil, err
	}
	idx := models.MatchAPIKey(u.cfg.Managers.APIKeyHashes, req.APIKey)
	if idx < 0 {
		return nil, httpErrors.NewUnauthorizedError("invalid api key")
	}

	ttl := u.cfg.Managers.SessionTTL
	manager := &models.Manager{KeyID: fmt.Sprintf("key-%d", idx), Role: models.ManagerRole}
	sessionID, err := u.sessUC.CreateSession(ctx, &models.Session{KeyID: manager.KeyID}, int(ttl.Seconds()))
	if err != nil {
		return nil, errors.Wrap(err, "authUC.CreateSession.CreateSession")
	}
	tok, _, err := utils.GenerateJWTToken(manager, sessionID, u.cfg.Server.JwtSecretKey, ttl)
	if err != nil {
		return nil, errors.Wrap(err, "authUC.CreateSession.GenerateJWTToken")
	}
	u.logger.Infof("manager session created key_id=%s", manager.KeyID)
	return &models.SessionResponse{Token: tok, ExpiresIn: int64(ttl.Seconds())}, nil
}

func (u *authUC) Logout(ctx context.Context, manager *models.Manager) error {
	if manager == nil || manager.SessionID == "" {
		return httpErrors.NewUnauthorizedError(nil)
	}
	return u.sessUC.DeleteByID(ctx, manager.SessionID)
}

func (u *authUC) GetPage(ctx context.Context, pageID int) (*pageaccess.Page, error) {
	page, err := u.pages.GetPage(ctx, pageID)
	if err != nil {
		return nil, pageError(err)
	}
	return page, nil
}

func (u *authUC) SearchPages(ctx context.Context, query string, count int) ([]pageaccess.SearchHit, error) {
	if query == "" {
		return nil, httpErrors.NewBadRequestError("query is required")
	}
	if count > maxSearchResults {
		count = maxSearchResults
	}
	hits, err := u.pages.SearchPages(ctx, query, count)
	if err != nil {
		return nil, pageError(err)
	}
	return hits, nil
}

func pageError(err error) error {
	var statusErr *pageaccess.StatusError
	switch {
	case errors.As(err, &statusErr) && statusErr.Status == http.StatusNotFound:
		return httpErrors.NewNotFoundError("page not found")
	case errors.As(err, &statusErr) && statusErr.Status == http.StatusForbidden:
		return httpErrors.NewRestError(http.StatusForbidden, policy.ReasonPageNotAccessible, nil)
	case errors.Is(err, pageaccess.ErrNotConfigured), errors.Is(err, pageaccess.ErrUnreachable):
		return httpErrors.NewRestError(http.StatusServiceUnavailable, policy.ReasonPageServiceUnavailable, nil)
	}
	return errors.Wrap(err, "page service")
}
