package config

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresTableName(t *testing.T) {
	t.Setenv(EnvTableName, "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvTableName)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv(EnvTableName, "conversations")
	t.Setenv(EnvRedisAddr, "")
	t.Setenv(EnvBoltPath, "")
	t.Setenv(EnvListenAddr, "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "conversations", cfg.TableName)
	assert.Equal(t, "csml.db", cfg.BoltPath, "bolt is the fallback backend")
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Empty(t, cfg.EncryptionKey)
}

func TestLoadRedisSelection(t *testing.T) {
	t.Setenv(EnvTableName, "conversations")
	t.Setenv(EnvRedisAddr, "localhost:6379")
	t.Setenv(EnvRedisDB, "3")
	t.Setenv(EnvBoltPath, "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Empty(t, cfg.BoltPath, "redis disables the bolt fallback")
}

func TestLoadEncryptionKey(t *testing.T) {
	key := strings.Repeat("k", 32)
	t.Setenv(EnvTableName, "conversations")
	t.Setenv(EnvEncryptionKey, base64.StdEncoding.EncodeToString([]byte(key)))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []byte(key), cfg.EncryptionKey)
}

func TestLoadInvalidValues(t *testing.T) {
	t.Run("bad redis db", func(t *testing.T) {
		t.Setenv(EnvTableName, "conversations")
		t.Setenv(EnvRedisDB, "not-a-number")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("bad encryption key", func(t *testing.T) {
		t.Setenv(EnvTableName, "conversations")
		t.Setenv(EnvRedisDB, "")
		t.Setenv(EnvEncryptionKey, "%%% not base64 %%%")
		_, err := Load()
		assert.Error(t, err)
	})
}
