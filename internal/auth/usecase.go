package auth

import (
	"context"

	"github.com/amankumarsingh77/video-gatekeeper/internal/models"
	"github.com/amankumarsingh77/video-gatekeeper/internal/pageaccess"
	"github.com/google/uuid"
)

type UseCase interface {
	IssueViewerToken(ctx context.Context, req *models.ViewerTokenRequest) (*models.ViewerTokenResponse, error)
	CheckPermission(ctx context.Context, videoID uuid.UUID, pageID *int) (*models.PermissionResult, error)
	GetEmbed(ctx context.Context, videoID uuid.UUID, viewerToken string) (*models.EmbedInfo, error)

	CreateSession(ctx context.Context, req *models.SessionRequest) (*models.SessionResponse, error)
	Logout(ctx context.Context, manager *models.Manager) error

	GetPage(ctx context.Context, pageID int) (*pageaccess.Page, error)
	SearchPages(ctx context.Context, query string, count int) ([]pageaccess.SearchHit, error)
}

// PageDirectory is the read side of the page service used by managers when
// linking videos to pages.
type PageDirectory interface {
	GetPage(ctx context.Context, pageID int) (*pageaccess.Page, error)
	SearchPages(ctx context.Context, query string, count int) ([]pageaccess.SearchHit, error)
}
