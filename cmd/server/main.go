package main

import (
	"context"
	"log"

	"github.com/amankumarsingh77/video-gatekeeper/internal/config"
	"github.com/amankumarsingh77/video-gatekeeper/internal/server"
	"github.com/amankumarsingh77/video-gatekeeper/pkg/db/aws"
	"github.com/amankumarsingh77/video-gatekeeper/pkg/db/postgres"
	"github.com/amankumarsingh77/video-gatekeeper/pkg/db/redis"
	"github.com/amankumarsingh77/video-gatekeeper/pkg/logger"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

func main() {
	log.Println("Starting api server")
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
	appLogger.Infof("AppVersion: %s, LogLevel: %s, Mode: %s, Storage: %s",
		cfg.Server.AppVersion, cfg.Logger.Level, cfg.Server.Mode, cfg.Storage.Type)
	if cfg.Server.Debug {
		appLogger.Warn("debug mode is on, stream requests without a token are served")
	}

	psqlDB, err := postgres.NewPsqlDB(cfg)
	if err != nil {
		appLogger.Fatalf("could not connect to db: %v", err)
	}
	defer psqlDB.Close()
	appLogger.Infof("db connected, status: %#v", psqlDB.Stats())

	ctx := context.Background()
	redisClient, err := redis.NewRedisClient(ctx, cfg)
	if err != nil {
		appLogger.Fatalf("could not connect to redis: %v", err)
	}
	defer redisClient.Close()
	appLogger.Info("redis connected")

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

	s := server.NewServer(cfg, psqlDB, redisClient, s3Client, presignClient, appLogger)
	if err = s.Run(); err != nil {
		appLogger.Fatalf("server stopped: %v", err)
	}
}
