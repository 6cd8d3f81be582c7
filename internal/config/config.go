// Package config loads server settings from DROPIN_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Store backends.
const (
	StoreDynamo   = "dynamo"
	StorePostgres = "postgres"
)

type Config struct {
	Store          string // DROPIN_STORE (dynamo | postgres, default dynamo)
	TableName      string // DROPIN_TABLE_NAME (default "mcrrc-drop-in-runs")
	DynamoEndpoint string // DROPIN_DYNAMODB_ENDPOINT (DynamoDB Local, optional)
	AWSRegion      string // DROPIN_AWS_REGION (default "us-east-1")
	DatabaseURL    string // DROPIN_DATABASE_URL (required for postgres)

	HTTPAddr string // DROPIN_HTTP_ADDR (default ":3001")
	GRPCAddr string // DROPIN_GRPC_ADDR (optional, empty = no gRPC health endpoint)
	NATSURL  string // DROPIN_NATS_URL (optional, empty = no events)

	WriteRPS   float64 // DROPIN_WRITE_RPS (default 2)
	WriteBurst int     // DROPIN_WRITE_BURST (default 5)

	GeocodeURL       string // DROPIN_GEOCODE_URL (default public Nominatim)
	GeocodeUserAgent string // DROPIN_GEOCODE_USER_AGENT

	// Sync settings
	SyncInterval   time.Duration // DROPIN_SYNC_INTERVAL (default 0 = disabled)
	SyncS3Bucket   string        // DROPIN_SYNC_S3_BUCKET (enables S3 when set)
	SyncS3Key      string        // DROPIN_SYNC_S3_KEY (default "dropin/active-runs.jsonl")
	SyncS3Endpoint string        // DROPIN_SYNC_S3_ENDPOINT (custom endpoint for MinIO)
	SyncFile       string        // DROPIN_SYNC_FILE (enables a local file copy when set)

	LogFormat string     // DROPIN_LOG_FORMAT (text | json, default text)
	LogLevel  slog.Level // DROPIN_LOG_LEVEL (default info)
}

// LoadDotEnv loads KEY=value pairs from path into the environment without
// overriding variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func Load() (*Config, error) {
	c := &Config{
		Store:            envOrDefault("DROPIN_STORE", StoreDynamo),
		TableName:        envOrDefault("DROPIN_TABLE_NAME", "mcrrc-drop-in-runs"),
		DynamoEndpoint:   os.Getenv("DROPIN_DYNAMODB_ENDPOINT"),
		AWSRegion:        envOrDefault("DROPIN_AWS_REGION", "us-east-1"),
		DatabaseURL:      os.Getenv("DROPIN_DATABASE_URL"),
		HTTPAddr:         envOrDefault("DROPIN_HTTP_ADDR", ":3001"),
		GRPCAddr:         os.Getenv("DROPIN_GRPC_ADDR"),
		NATSURL:          os.Getenv("DROPIN_NATS_URL"),
		GeocodeURL:       os.Getenv("DROPIN_GEOCODE_URL"),
		GeocodeUserAgent: os.Getenv("DROPIN_GEOCODE_USER_AGENT"),
		SyncS3Bucket:     os.Getenv("DROPIN_SYNC_S3_BUCKET"),
		SyncS3Key:        envOrDefault("DROPIN_SYNC_S3_KEY", "dropin/active-runs.jsonl"),
		SyncS3Endpoint:   os.Getenv("DROPIN_SYNC_S3_ENDPOINT"),
		SyncFile:         os.Getenv("DROPIN_SYNC_FILE"),
		LogFormat:        envOrDefault("DROPIN_LOG_FORMAT", "text"),
	}

	switch c.Store {
	case StoreDynamo:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return nil, fmt.Errorf("DROPIN_DATABASE_URL is required when DROPIN_STORE=postgres")
		}
	default:
		return nil, fmt.Errorf("DROPIN_STORE: unknown backend %q", c.Store)
	}

	if c.LogFormat != "text" && c.LogFormat != "json" {
		return nil, fmt.Errorf("DROPIN_LOG_FORMAT: must be text or json, got %q", c.LogFormat)
	}
	if err := c.LogLevel.UnmarshalText([]byte(envOrDefault("DROPIN_LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("DROPIN_LOG_LEVEL: %w", err)
	}

	rps, err := strconv.ParseFloat(envOrDefault("DROPIN_WRITE_RPS", "2"), 64)
	if err != nil || rps <= 0 {
		return nil, fmt.Errorf("DROPIN_WRITE_RPS: must be a positive number")
	}
	c.WriteRPS = rps

	burst, err := strconv.Atoi(envOrDefault("DROPIN_WRITE_BURST", "5"))
	if err != nil || burst <= 0 {
		return nil, fmt.Errorf("DROPIN_WRITE_BURST: must be a positive integer")
	}
	c.WriteBurst = burst

	d, err := time.ParseDuration(envOrDefault("DROPIN_SYNC_INTERVAL", "0s"))
	if err != nil {
		return nil, fmt.Errorf("DROPIN_SYNC_INTERVAL: %w", err)
	}
	c.SyncInterval = d

	return c, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
