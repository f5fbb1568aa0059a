package deadletter

import (
	"errors"
	"fmt"
	"time"

	"github.com/ssv445/360dialog-feedback-bot/internal/pkg/env"
)

const (
	DefaultInterval  = 15 * time.Minute
	DefaultBatchSize = 500
)

// Config holds the dead-letter archive configuration
type Config struct {
	Enabled   bool
	Interval  time.Duration
	BatchSize int

	AccessKeyID     string
	SecretAccessKey string
	Region          string
	BucketName      string
	EndpointURL     string // Optional for S3-compatible services
}

// LoadConfig loads the archive configuration from environment variables
func LoadConfig() (*Config, error) {
	config := &Config{
		Enabled:         env.GetBool("DEADLETTER_ARCHIVE_ENABLED", false),
		Interval:        env.GetDuration("DEADLETTER_ARCHIVE_INTERVAL", DefaultInterval),
		BatchSize:       env.GetInt("DEADLETTER_ARCHIVE_BATCH", DefaultBatchSize),
		AccessKeyID:     env.GetEnv("S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: env.GetEnv("S3_SECRET_ACCESS_KEY", ""),
		Region:          env.GetEnv("S3_REGION", "us-east-1"),
		BucketName:      env.GetEnv("S3_BUCKET_NAME", ""),
		EndpointURL:     env.GetEnv("S3_ENDPOINT_URL", ""),
	}

	if !config.Enabled {
		return config, nil
	}
	if config.AccessKeyID == "" {
		return nil, errors.New("S3_ACCESS_KEY_ID is required when the dead-letter archive is enabled")
	}
	if config.SecretAccessKey == "" {
		return nil, errors.New("S3_SECRET_ACCESS_KEY is required when the dead-letter archive is enabled")
	}
	if config.BucketName == "" {
		return nil, errors.New("S3_BUCKET_NAME is required when the dead-letter archive is enabled")
	}
	if config.BatchSize <= 0 {
		return nil, fmt.Errorf("DEADLETTER_ARCHIVE_BATCH must be positive, got %d", config.BatchSize)
	}
	if config.Interval <= 0 {
		return nil, fmt.Errorf("DEADLETTER_ARCHIVE_INTERVAL must be positive, got %s", config.Interval)
	}
	return config, nil
}

// ObjectKey is the archive object name for a batch written at t
func ObjectKey(t time.Time, id string) string {
	// Format: deadletter/YYYY/MM/DD/UUID.jsonl
	t = t.UTC()
	return fmt.Sprintf("deadletter/%04d/%02d/%02d/%s.jsonl", t.Year(), int(t.Month()), t.Day(), id)
}
