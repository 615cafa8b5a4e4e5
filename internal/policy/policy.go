package policy

import (
	"context"
	"net/http"

	"github.com/amankumarsingh77/video-gatekeeper/internal/config"
	"github.com/amankumarsingh77/video-gatekeeper/internal/models"
	"github.com/amankumarsingh77/video-gatekeeper/internal/pageaccess"
	"github.com/amankumarsingh77/video-gatekeeper/internal/token"
	"github.com/amankumarsingh77/video-gatekeeper/pkg/logger"
	"github.com/pkg/errors"
)

const (
	ReasonVideoNotFound          = "Video not found"
	ReasonPageContextRequired    = "This video requires a page context"
	ReasonPageNotAccessible      = "Page not accessible"
	ReasonWrongPage              = "Video is not available on this page"
	ReasonCheckFailed            = "Permission check failed"
	ReasonPrivate                = "This video is private"
	ReasonUnknownVisibility      = "Unknown visibility setting"
	ReasonViewerTokenRequired    = "Viewer token required"
	ReasonPageServiceUnavailable = "Page service unavailable"
)

// PageChecker is the slice of the page service the policy needs.
type PageChecker interface {
	Configured() bool
	CheckPageAccess(ctx context.Context, pageID int) (bool, error)
}

// Decision is the outcome of a visibility check. Status is the HTTP status a
// denial maps to; FailOpen marks grants made without asking the page service.
type Decision struct {
	Allowed  bool   `json:"allowed"`
	Reason   string `json:"reason,omitempty"`
	Status   int    `json:"-"`
	FailOpen bool   `json:"-"`
}

func allow() Decision {
	return Decision{Allowed: true, Status: http.StatusOK}
}

func deny(status int, reason string) Decision {
	return Decision{Status: status, Reason: reason}
}

type Policy struct {
	pages         PageChecker
	onUnreachable map[models.Visibility]string
	logger        logger.Logger
}

// NewPolicy builds a policy. Tiers missing from onUnreachable deny when the
// page service cannot answer.
func NewPolicy(pages PageChecker, onUnreachable map[string]string, log logger.Logger) *Policy {
	fb := make(map[models.Visibility]string, len(onUnreachable))
	for tier, v := range onUnreachable {
		fb[models.Visibility(tier)] = v
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Policy{pages: pages, onUnreachable: fb, logger: log}
}

func (p *Policy) fallback(video *models.Video, pageID int, cause string) Decision {
	if p.onUnreachable[video.Visibility] == config.FallbackAllow {
		p.logger.Warnf("page check skipped (%s), allowing video_id=%s page_id=%d", cause, video.ID, pageID)
		d := allow()
		d.FailOpen = true
		return d
	}
	p.logger.Warnf("page check skipped (%s), denying video_id=%s page_id=%d", cause, video.ID, pageID)
	return deny(http.StatusForbidden, ReasonPageServiceUnavailable)
}

// CanIssueViewerToken decides whether a viewer token may be minted for the
// video in the given page context.
func (p *Policy) CanIssueViewerToken(ctx context.Context, video *models.Video, pageID *int) Decision {
	if video == nil {
		return deny(http.StatusNotFound, ReasonVideoNotFound)
	}
	switch video.Visibility {
	case models.VisibilityPublic, models.VisibilityUnlisted:
		return allow()
	case models.VisibilityPrivate:
		return deny(http.StatusForbidden, ReasonPrivate)
	case models.VisibilityPageProtected:
	default:
		return deny(http.StatusForbidden, ReasonUnknownVisibility)
	}

	if pageID == nil {
		return deny(http.StatusForbidden, ReasonPageContextRequired)
	}
	if linked, ok := video.LinkedPage(); ok && linked != *pageID {
		return deny(http.StatusForbidden, ReasonWrongPage)
	}
	if p.pages == nil || !p.pages.Configured() {
		return p.fallback(video, *pageID, "page service not configured")
	}

	ok, err := p.pages.CheckPageAccess(ctx, *pageID)
	switch {
	case err == nil && ok:
		return allow()
	case err == nil:
		return deny(http.StatusForbidden, ReasonPageNotAccessible)
	case errors.Is(err, pageaccess.ErrUnreachable),
		errors.Is(err, pageaccess.ErrNotConfigured),
		errors.Is(err, context.DeadlineExceeded):
		return p.fallback(video, *pageID, err.Error())
	default:
		p.logger.Errorf("page check failed video_id=%s page_id=%d: %v", video.ID, *pageID, err)
		return deny(http.StatusInternalServerError, ReasonCheckFailed)
	}
}

// CanEmbed decides whether the player may be bootstrapped. viewer holds the
// verified claims of the presented viewer token, or nil when none was given.
func (p *Policy) CanEmbed(video *models.Video, viewer *token.ViewerClaims) Decision {
	if video == nil {
		return deny(http.StatusNotFound, ReasonVideoNotFound)
	}
	switch video.Visibility {
	case models.VisibilityPublic, models.VisibilityUnlisted:
		return allow()
	case models.VisibilityPrivate:
		return deny(http.StatusForbidden, ReasonPrivate)
	case models.VisibilityPageProtected:
	default:
		return deny(http.StatusForbidden, ReasonUnknownVisibility)
	}

	if viewer == nil {
		return deny(http.StatusUnauthorized, ReasonViewerTokenRequired)
	}
	if viewer.PageID == nil {
		return deny(http.StatusForbidden, ReasonPageContextRequired)
	}
	if linked, ok := video.LinkedPage(); ok && linked != *viewer.PageID {
		return deny(http.StatusForbidden, ReasonWrongPage)
	}
	return allow()
}

// CheckPermission is the local part of CanIssueViewerToken. It never calls
// the page service.
func (p *Policy) CheckPermission(video *models.Video, pageID *int) Decision {
	if video == nil {
		return deny(http.StatusNotFound, ReasonVideoNotFound)
	}
	switch video.Visibility {
	case models.VisibilityPublic, models.VisibilityUnlisted:
		return allow()
	case models.VisibilityPrivate:
		return deny(http.StatusForbidden, ReasonPrivate)
	case models.VisibilityPageProtected:
		if pageID == nil {
			return deny(http.StatusForbidden, ReasonPageContextRequired)
		}
		if linked, ok := video.LinkedPage(); ok && linked != *pageID {
			return deny(http.StatusForbidden, ReasonWrongPage)
		}
		return allow()
	}
	return deny(http.StatusForbidden, ReasonUnknownVisibility)
}
