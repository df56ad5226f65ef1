package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "main:\n  loglevel: info\n")
	s, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", s.Database.Type)
	assert.Equal(t, 8080, s.HTTP.Port)
	assert.Equal(t, 8, s.Dispatch.Workers)
	assert.Equal(t, 5*time.Minute, s.Delivery.Timeout.Std())
	assert.Equal(t, 1*time.Minute, s.Alerting.SchedulerInterval.Std())
}

func TestLoad_Overrides(t *testing.T) {
	path := writeConfig(t, `
http:
  port: 9090
dispatch:
  workers: 2
  queuesize: 10
delivery:
  timeout: 90s
  maxretries: 5
`)
	s, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, s.HTTP.Port)
	assert.Equal(t, 2, s.Dispatch.Workers)
	assert.Equal(t, 90*time.Second, s.Delivery.Timeout.Std())
	assert.Equal(t, 5, s.Delivery.MaxRetries)
}

func TestLoad_InvalidDatabaseType(t *testing.T) {
	path := writeConfig(t, "database:\n  type: mongodb\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database.type")
}

func TestLoad_MySQLRequiresDSN(t *testing.T) {
	path := writeConfig(t, "database:\n  type: mysql\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.dsn is required")
}

func TestValidate_BadWorkerPool(t *testing.T) {
	s := Defaults()
	s.Dispatch.Workers = 0
	require.Error(t, s.Validate())

	s = Defaults()
	s.Dispatch.QueueSize = -1
	require.Error(t, s.Validate())
}
