package server

import (
	"context"
	"net/http"

	authHttp "github.com/amankumarsingh77/video-gatekeeper/internal/auth/delivery/http"
	authUsecase "github.com/amankumarsingh77/video-gatekeeper/internal/auth/usecase"
	"github.com/amankumarsingh77/video-gatekeeper/internal/config"
	"github.com/amankumarsingh77/video-gatekeeper/internal/middleware"
	"github.com/amankumarsingh77/video-gatekeeper/internal/pageaccess"
	"github.com/amankumarsingh77/video-gatekeeper/internal/policy"
	sessRepository "github.com/amankumarsingh77/video-gatekeeper/internal/session/repository"
	sessUsecase "github.com/amankumarsingh77/video-gatekeeper/internal/session/usecase"
	"github.com/amankumarsingh77/video-gatekeeper/internal/storage"
	streamHttp "github.com/amankumarsingh77/video-gatekeeper/internal/stream/delivery/http"
	streamUsecase "github.com/amankumarsingh77/video-gatekeeper/internal/stream/usecase"
	"github.com/amankumarsingh77/video-gatekeeper/internal/token"
	videoHttp "github.com/amankumarsingh77/video-gatekeeper/internal/videofiles/delivery/http"
	videoRepository "github.com/amankumarsingh77/video-gatekeeper/internal/videofiles/repository"
	videoUsecase "github.com/amankumarsingh77/video-gatekeeper/internal/videofiles/usecase"
	"github.com/amankumarsingh77/video-gatekeeper/pkg/logger"
	"github.com/amankumarsingh77/video-gatekeeper/pkg/utils"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
)

const filesPath = "/files"

// NewStorage picks the blob store named by storage.type. Local storage signs
// its download links with signer; S3 presigns them.
func NewStorage(cfg *config.Config, s3Client *s3.Client, presigner *s3.PresignClient, signer *token.Signer) (storage.Storage, error) {
	if cfg.Storage.Type == config.StorageS3 {
		if s3Client == nil {
			return nil, errors.New("s3 storage selected but no s3 client was created")
		}
		return storage.NewS3Storage(s3Client, presigner, cfg.S3.Bucket, cfg.Storage.WorkDir), nil
	}
	return storage.NewLocalStorage(cfg.Storage.Path, filesPath, signer)
}

// QueueOptions maps the transcode settings onto the Redis queue.
func QueueOptions(cfg *config.Config) videoRepository.QueueOptions {
	return videoRepository.QueueOptions{
		Key:         cfg.Redis.JobQueueKey,
		MaxAttempts: cfg.Transcode.MaxAttempts,
		RetryDelay:  cfg.Transcode.RetryDelay,
	}
}

// NewPageClient builds the page service client with its Redis cache.
func NewPageClient(cfg *config.Config, redisClient *redis.Client, log logger.Logger) *pageaccess.Client {
	return pageaccess.NewClient(pageaccess.Options{
		BaseURL:     cfg.PageService.URL,
		TokenID:     cfg.PageService.TokenID,
		TokenSecret: cfg.PageService.TokenSecret,
		Timeout:     cfg.PageService.Timeout,
		CacheTTL:    cfg.PageService.CacheTTL,
		Cache:       pageaccess.NewRedisCache(redisClient),
		Logger:      log,
	})
}

func (s *Server) MapHandlers(e *echo.Echo) error {
	signer, err := token.NewSigner(s.cfg.Server.SecretKey)
	if err != nil {
		return errors.Wrap(err, "token signer")
	}
	store, err := NewStorage(s.cfg, s.s3Client, s.preSignClient, signer)
	if err != nil {
		return errors.Wrap(err, "storage")
	}
	pages := NewPageClient(s.cfg, s.redisClient, s.logger)
	s.checkPageService(pages)
	pol := policy.NewPolicy(pages, s.cfg.Policy.OnUnreachable, s.logger)

	videoRepo := videoRepository.NewVideoRepo(s.db)
	jobRepo := videoRepository.NewJobRepo(s.db)
	subRepo := videoRepository.NewSubtitleRepo(s.db)
	queue := videoRepository.NewJobQueue(s.redisClient, QueueOptions(s.cfg))
	sessRepo := sessRepository.NewSessionRepository(s.redisClient)

	sessUC := sessUsecase.NewSessionUseCase(sessRepo, s.cfg)
	videoUC := videoUsecase.NewVideoUseCase(s.cfg, videoRepo, jobRepo, subRepo, queue, store, s.logger)
	authUC := authUsecase.NewAuthUseCase(s.cfg, videoRepo, subRepo, pol, signer, sessUC, pages, s.logger)
	streamUC := streamUsecase.NewStreamUseCase(s.cfg, videoRepo, store, signer, s.logger)

	videoHandlers := videoHttp.NewVideoHandler(s.cfg, videoUC, s.logger)
	authHandlers := authHttp.NewAuthHandler(s.cfg, authUC, s.logger)
	streamHandlers := streamHttp.NewStreamHandler(streamUC, s.logger)

	mw := middleware.NewMiddlewareManager(sessUC, s.cfg, s.cfg.Server.AllowOrigins, s.logger)

	e.Use(echoMiddleware.RecoverWithConfig(echoMiddleware.RecoverConfig{
		StackSize:         1 << 10,
		DisablePrintStack: true,
		DisableStackAll:   true,
	}))
	e.Use(echoMiddleware.RequestID())
	e.Use(mw.RequestLogger())
	e.Use(mw.CORS())

	// page service calls are bounded; uploads and media streams are not
	timeout := echoMiddleware.ContextTimeout(s.cfg.Server.CtxDefaultTimeout)

	v1 := e.Group("/api/v1")
	videoHttp.MapVideoRoutes(v1.Group("/videos"), videoHandlers, mw, s.cfg)
	authHttp.MapAuthRoutes(v1.Group("/auth", timeout), authHandlers, mw)
	authHttp.MapPageRoutes(v1.Group("/pages", timeout), authHandlers, mw)
	authHttp.MapEmbedRoutes(e.Group("/embed", timeout), authHandlers)
	streamHttp.MapStreamRoutes(e.Group("/stream"), streamHandlers)
	streamHttp.MapFileRoutes(e.Group(filesPath), streamHandlers)

	e.GET("/health", func(c echo.Context) error {
		s.logger.Debugf("health check request_id=%s", utils.GetRequestID(c))
		return c.JSON(http.StatusOK, map[string]string{
			"status":       "ok",
			"version":      s.cfg.Server.AppVersion,
			"page_service": pages.BreakerState().String(),
		})
	})
	return nil
}

// checkPageService logs which page service account the gatekeeper acts as.
// An unreachable service is not fatal; the policy fallbacks cover it.
func (s *Server) checkPageService(pages *pageaccess.Client) {
	if !pages.Configured() {
		s.logger.Warn("page service not configured, page_protected videos use the unreachable fallback")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.PageService.Timeout)
	defer cancel()
	user, err := pages.CurrentUser(ctx)
	if err != nil {
		s.logger.Warnf("page service check failed: %v", err)
		return
	}
	s.logger.Infof("page service reachable as user_id=%d name=%s", user.ID, user.Name)
}
