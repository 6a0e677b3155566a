// Package main is the entry point for the manuscript import worker.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sirupsen/logrus"

	"github.com/bookbloom/bookbloom/internal/artifact"
	"github.com/bookbloom/bookbloom/internal/config"
	"github.com/bookbloom/bookbloom/internal/database"
	"github.com/bookbloom/bookbloom/internal/queue"
	"github.com/bookbloom/bookbloom/internal/repository"
	"github.com/bookbloom/bookbloom/internal/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := logrus.StandardLogger()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("load config")
	}
	if cfg.DatabaseURL == "" || !cfg.S3Enabled() || !cfg.QueueEnabled() {
		log.Fatal("worker requires database, object storage, and redis configuration")
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("connect database")
	}
	defer pool.Close()
	if err := database.EnsureSchema(ctx, pool); err != nil {
		log.WithError(err).Fatal("ensure schema")
	}
	repo := repository.NewBookRepository(pool)

	client, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: cfg.S3UseSSL,
		Region: cfg.S3Region,
	})
	if err != nil {
		log.WithError(err).Fatal("init object storage")
	}
	store := artifact.NewS3Store(client, cfg.ArtifactBucket, cfg.S3Region, cfg.ArtifactTTL)
	if err := store.EnsureBucket(ctx); err != nil {
		log.WithError(err).Fatal("ensure bucket")
	}

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
	server := asynq.NewServer(redisOpt, asynq.Config{Concurrency: cfg.Concurrency})
	processor := worker.NewProcessor(repo, store, log)
	mux := processor.Handler()

	scheduler := asynq.NewScheduler(redisOpt, nil)
	if _, err := scheduler.Register("@every 1h", queue.NewCleanupTask()); err != nil {
		log.WithError(err).Fatal("register cleanup schedule")
	}
	if err := scheduler.Start(); err != nil {
		log.WithError(err).Fatal("start scheduler")
	}

	go func() {
		<-ctx.Done()
		scheduler.Shutdown()
		server.Shutdown()
	}()

	if err := server.Run(mux); err != nil {
		log.WithError(err).Error("worker stopped")
		os.Exit(1)
	}
}
