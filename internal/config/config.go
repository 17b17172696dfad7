// Package config builds the process configuration from the environment,
// once, at startup. The resulting struct is passed by reference; nothing
// reads ambient environment state after load.
package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
)

// Environment variable names.
const (
	EnvTableName     = "CSML_TABLE_NAME"
	EnvRedisAddr     = "CSML_REDIS_ADDR"
	EnvRedisPassword = "CSML_REDIS_PASSWORD"
	EnvRedisDB       = "CSML_REDIS_DB"
	EnvBoltPath      = "CSML_BOLT_PATH"
	EnvEncryptionKey = "CSML_ENCRYPTION_KEY"
	EnvWebhookURL    = "CSML_WEBHOOK_URL"
	EnvListenAddr    = "CSML_LISTEN_ADDR"
)

// Config is the engine's process configuration.
type Config struct {
	// TableName is the storage table/namespace. Mandatory.
	TableName string

	// RedisAddr selects the Redis backend when set; otherwise BoltPath
	// selects the local file backend.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	BoltPath      string

	// EncryptionKey is the active AES-256 payload key (base64, 32 bytes
	// decoded). When empty, payloads are stored unencrypted.
	EncryptionKey []byte

	WebhookURL string
	ListenAddr string
}

// Load reads the configuration. A missing table name is fatal before any
// engine operation proceeds.
func Load() (*Config, error) {
	table := os.Getenv(EnvTableName)
	if table == "" {
		return nil, fmt.Errorf("missing %s environment variable", EnvTableName)
	}

	cfg := &Config{
		TableName:     table,
		RedisAddr:     os.Getenv(EnvRedisAddr),
		RedisPassword: os.Getenv(EnvRedisPassword),
		BoltPath:      os.Getenv(EnvBoltPath),
		WebhookURL:    os.Getenv(EnvWebhookURL),
		ListenAddr:    os.Getenv(EnvListenAddr),
	}
	if cfg.BoltPath == "" && cfg.RedisAddr == "" {
		cfg.BoltPath = "csml.db"
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}

	if raw := os.Getenv(EnvRedisDB); raw != "" {
		db, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvRedisDB, err)
		}
		cfg.RedisDB = db
	}

	if raw := os.Getenv(EnvEncryptionKey); raw != "" {
		key, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvEncryptionKey, err)
		}
		cfg.EncryptionKey = key
	}

	return cfg, nil
}
