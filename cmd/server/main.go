// Package main is the entry point for the BookBloom export API.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sirupsen/logrus"

	"github.com/bookbloom/bookbloom/internal/api"
	"github.com/bookbloom/bookbloom/internal/artifact"
	"github.com/bookbloom/bookbloom/internal/config"
	"github.com/bookbloom/bookbloom/internal/database"
	"github.com/bookbloom/bookbloom/internal/repository"
	"github.com/bookbloom/bookbloom/internal/service"
	"github.com/bookbloom/bookbloom/internal/signing"
	"github.com/bookbloom/bookbloom/internal/tracker"
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

	signer := signing.NewSigner(cfg.Secret())
	jobs := tracker.New()

	var (
		books      api.BookStore
		bookSource service.BookSource
	)
	if cfg.DatabaseURL != "" {
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			log.WithError(err).Fatal("connect database")
		}
		defer pool.Close()
		if err := database.EnsureSchema(ctx, pool); err != nil {
			log.WithError(err).Fatal("ensure schema")
		}
		repo := repository.NewBookRepository(pool)
		books, bookSource = repo, repo
	} else {
		mem := repository.NewMemoryBookStore()
		books, bookSource = mem, mem
		log.Warn("no database configured; book data is in-memory only")
	}

	var (
		store        artifact.Store
		memArtifacts *artifact.MemoryStore
		rawStore     *artifact.S3Store
	)
	if cfg.S3Enabled() {
		client, err := minio.New(cfg.S3Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
			Secure: cfg.S3UseSSL,
			Region: cfg.S3Region,
		})
		if err != nil {
			log.WithError(err).Fatal("init object storage")
		}
		s3 := artifact.NewS3Store(client, cfg.ArtifactBucket, cfg.S3Region, cfg.ArtifactTTL)
		if err := s3.EnsureBucket(ctx); err != nil {
			log.WithError(err).Fatal("ensure bucket")
		}
		store, rawStore = s3, s3
	} else {
		memArtifacts = artifact.NewMemoryStore(signer)
		store = memArtifacts
		log.Warn("no object storage configured; artifacts are in-memory only")
	}

	svc := service.NewExportService(bookSource, store, jobs, cfg.ArtifactTTL, log)

	var queueClient *asynq.Client
	if cfg.QueueEnabled() {
		queueClient = asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer queueClient.Close()
	}

	// The tracker never self-schedules; eviction is driven from here.
	go func() {
		ticker := time.NewTicker(cfg.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				svc.Cleanup(ctx)
			}
		}
	}()

	srv := api.New(cfg, svc, books, memArtifacts, rawStore, queueClient, signer, log)
	if err := srv.Run(ctx); err != nil {
		log.WithError(err).Error("server stopped")
		os.Exit(1)
	}
}
