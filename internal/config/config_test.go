package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfigContent = `
[development]
log_level = "trace"
log_to_stdout = true
store_backend = "memory"
session_ttl_hours = 1
metrics_port = 2112

[production]
log_level = "debug"
logs_path = "/var/log/website"
store_backend = "postgres"
db_host = "localhost"
db_port = "5432"
db_name = "website"
metrics_port = 2112
tracing_enabled = true
`

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(testConfigContent), 0o600))

	cfg, err := Load("development", path)
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.StoreBackend)
	assert.Equal(t, "trace", cfg.LogLevel)
	assert.Equal(t, 1, cfg.SessionTTLHours)
	assert.Equal(t, "development", cfg.Environment)

	cfg, err = Load("prod", path)
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.StoreBackend)
	assert.Equal(t, "website", cfg.DBName)
	assert.True(t, cfg.TracingEnabled)

	_, err = Load("staging", path)
	assert.Error(t, err)
}
