package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/amankumarsingh77/video-gatekeeper/internal/config"
	"github.com/amankumarsingh77/video-gatekeeper/internal/server"
	"github.com/amankumarsingh77/video-gatekeeper/internal/token"
	"github.com/amankumarsingh77/video-gatekeeper/internal/transcode"
	"github.com/amankumarsingh77/video-gatekeeper/internal/videofiles/repository"
	"github.com/amankumarsingh77/video-gatekeeper/internal/worker"
	"github.com/amankumarsingh77/video-gatekeeper/pkg/db/aws"
	"github.com/amankumarsingh77/video-gatekeeper/pkg/db/postgres"
	clientRedis "github.com/amankumarsingh77/video-gatekeeper/pkg/db/redis"
	"github.com/amankumarsingh77/video-gatekeeper/pkg/logger"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

func main() {
	cfgFile, err := config.LoadConfig(config.ConfigPath())
	if err != nil {
		log.Fatalf("loadConfig: %v", err)
	}
	cfg, err := config.ParseConfig(cfgFile)
	if err != nil {
		log.Fatalf("parseConfig: %v", err)
	}

	appLogger := logger.NewApiLogger(cfg)
	appLogger.InitLogger()
	defer appLogger.Sync()
	appLogger.Infof("AppVersion: %s, LogLevel: %s, Workers: %d, Presets: %v",
		cfg.Server.AppVersion, cfg.Logger.Level, cfg.Worker.WorkerCount, cfg.Transcode.Presets)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	psqlDB, err := postgres.NewPsqlDB(cfg)
	if err != nil {
		appLogger.Fatalf("could not connect to db: %v", err)
	}
	defer psqlDB.Close()

	redisClient, err := clientRedis.NewRedisClient(ctx, cfg)
	if err != nil {
		appLogger.Fatalf("could not connect to redis: %v", err)
	}
	defer redisClient.Close()

	var (
		s3Client      *s3.Client
		presignClient *s3.PresignClient
	)
	if cfg.Storage.Type == config.StorageS3 {
		s3Client, presignClient, err = aws.NewAWSClient(ctx, cfg.S3)
		if err != nil {
			appLogger.Fatalf("could not create s3 client: %v", err)
		}
	}
	signer, err := token.NewSigner(cfg.Server.SecretKey)
	if err != nil {
		appLogger.Fatalf("token signer: %v", err)
	}
	store, err := server.NewStorage(cfg, s3Client, presignClient, signer)
	if err != nil {
		appLogger.Fatalf("storage: %v", err)
	}

	queue := repository.NewJobQueue(redisClient, server.QueueOptions(cfg))
	orchestrator, err := worker.NewOrchestrator(
		cfg,
		repository.NewVideoRepo(psqlDB),
		repository.NewJobRepo(psqlDB),
		queue,
		store,
		transcode.NewCommandRunner(),
		appLogger,
	)
	if err != nil {
		appLogger.Fatalf("orchestrator: %v", err)
	}

	if err = worker.NewWorker(cfg, appLogger, queue, orchestrator).Run(ctx); err != nil {
		appLogger.Fatalf("worker stopped: %v", err)
	}
	appLogger.Info("worker shut down cleanly")
}
