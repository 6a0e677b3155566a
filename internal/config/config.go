// Package config centralizes how the service reads environment variables and
// exposes them as strongly typed values.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config represents runtime configuration shared by the API, worker, and
// CLI. Struct tags drive parsing; Load applies range fixups afterwards.
type Config struct {
	Address       string `env:"BOOKBLOOM_ADDRESS" envDefault:":8080"`
	DatabaseURL   string `env:"BOOKBLOOM_DATABASE_URL"`
	RedisAddr     string `env:"BOOKBLOOM_REDIS_ADDR"`
	RedisPassword string `env:"BOOKBLOOM_REDIS_PASSWORD"`
	RedisDB       int    `env:"BOOKBLOOM_REDIS_DB" envDefault:"0"`
	Concurrency   int    `env:"BOOKBLOOM_WORKERS" envDefault:"2"`
	MaxUploadSize int64  `env:"BOOKBLOOM_MAX_UPLOAD_BYTES" envDefault:"26214400"` // 25 MiB
	SigningSecret string `env:"BOOKBLOOM_SIGNING_SECRET"`

	ArtifactTTL     time.Duration `env:"BOOKBLOOM_ARTIFACT_TTL" envDefault:"168h"`
	CleanupInterval time.Duration `env:"BOOKBLOOM_CLEANUP_INTERVAL" envDefault:"10m"`

	S3Endpoint     string `env:"BOOKBLOOM_S3_ENDPOINT"`
	S3AccessKey    string `env:"BOOKBLOOM_S3_ACCESS_KEY"`
	S3SecretKey    string `env:"BOOKBLOOM_S3_SECRET_KEY"`
	S3Region       string `env:"BOOKBLOOM_S3_REGION" envDefault:"us-east-1"`
	S3UseSSL       bool   `env:"BOOKBLOOM_S3_USE_SSL" envDefault:"false"`
	ArtifactBucket string `env:"BOOKBLOOM_ARTIFACT_BUCKET" envDefault:"bookbloom-exports"`

	secret []byte
}

// Load reads configuration from environment variables falling back to
// defaults. Invalid values surface as errors rather than being silently
// swallowed.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 2
	}
	if cfg.MaxUploadSize <= 0 {
		cfg.MaxUploadSize = 25 << 20
	}
	if cfg.ArtifactTTL <= 0 {
		cfg.ArtifactTTL = 168 * time.Hour
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 10 * time.Minute
	}
	if cfg.SigningSecret != "" {
		cfg.secret = []byte(cfg.SigningSecret)
	} else {
		// Without a configured secret, signed URLs stay valid only for the
		// lifetime of this process.
		cfg.secret = randomSecret()
	}
	return cfg, nil
}

// Secret returns the URL signing secret.
func (c *Config) Secret() []byte {
	return c.secret
}

// S3Enabled reports whether artifact storage is backed by MinIO/S3.
func (c *Config) S3Enabled() bool {
	return c.S3Endpoint != ""
}

// QueueEnabled reports whether asynq-backed manuscript import is available.
func (c *Config) QueueEnabled() bool {
	return c.RedisAddr != ""
}

func randomSecret() []byte {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return []byte(hex.EncodeToString([]byte("fallbacksecret")))
	}
	return buf
}
