package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfigFile(t, `
app:
  name: ghostradar
  env: test
metrics_provider:
  base_url: http://metrics.local
  api_key: key123
  timeout: 5s
database:
  postgres:
    host: db.local
    port: 5432
    user: radar
    password: secret
    dbname: radar
    sslmode: disable
nats:
  url: nats://nats.local:4222
api:
  port: "9090"
engine:
  tick_interval: 15s
  action_workers: 8
`)

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "ghostradar", config.App.Name)
	assert.Equal(t, "http://metrics.local", config.MetricsProvider.BaseURL)
	assert.Equal(t, 5*time.Second, config.MetricsProvider.Timeout)
	assert.Equal(t, "db.local", config.Database.Postgres.Host)
	assert.Equal(t, "9090", config.API.Port)
	assert.Equal(t, 15*time.Second, config.Engine.TickInterval)
	assert.Equal(t, 8, config.Engine.ActionWorkers)

	// 未配置的引擎项回退默认值
	assert.Equal(t, 10*time.Second, config.Engine.WebhookTimeout)
	assert.Equal(t, time.Minute, config.Engine.RegistryRefresh)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	path := writeConfigFile(t, `
app:
  name: ghostradar
metrics_provider:
  api_key: from_file
database:
  postgres:
    host: file.local
    port: 5432
`)

	t.Setenv("METRICS_API_KEY", "from_env")
	t.Setenv("DB_HOST", "env.local")
	t.Setenv("DB_PORT", "6432")
	t.Setenv("API_PORT", "8888")

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "from_env", config.MetricsProvider.APIKey)
	assert.Equal(t, "env.local", config.Database.Postgres.Host)
	assert.Equal(t, 6432, config.Database.Postgres.Port)
	assert.Equal(t, "8888", config.API.Port)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig("/no/such/app.yaml")
	assert.Error(t, err)
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	path := writeConfigFile(t, "app: [unbalanced")
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestGetDefaultConfigPath(t *testing.T) {
	t.Setenv("APP_ENV", "")
	assert.Equal(t, "configs/dev/app.yaml", GetDefaultConfigPath())

	t.Setenv("APP_ENV", "prod")
	assert.Equal(t, "configs/prod/app.yaml", GetDefaultConfigPath())
}
