package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFromFile_Defaults(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, "storage:\n  backend: memory\n"))
	require.NoError(t, err)

	assert.Equal(t, "swedana-forms", cfg.App.Name)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, 15000, cfg.Server.ShutdownTimeout)
	assert.Equal(t, BackendMemory, cfg.Storage.Backend)
	assert.Equal(t, "swedana_form_submissions", cfg.Storage.Key)
	assert.Equal(t, "kv_store", cfg.Storage.Table)
	assert.Equal(t, 5432, cfg.Database.Postgres.Port)
	assert.Equal(t, "form-submissions", cfg.Search.Index)
	assert.Equal(t, []string{"order"}, cfg.Notifications.SMS.Types)
	assert.Equal(t, "1/2/2006 3:04:05 PM", cfg.Export.DateLayout)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.NotNil(t, cfg.Workers)
}

func TestLoadFromFile_WorkerDefaults(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, `
storage:
  backend: memory
workers:
  create-submission:
    enabled: true
    timeout: 2000
`))
	require.NoError(t, err)

	w := cfg.Workers["create-submission"]
	assert.True(t, w.Enabled)
	assert.Equal(t, 2000, w.Timeout)
	assert.Equal(t, 5, w.MaxJobsActive)
	assert.Equal(t, 3, w.MaxRetries)
}

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"unknown backend", "storage:\n  backend: mongo\n", `storage.backend "mongo"`},
		{"redis without address", "storage:\n  backend: redis\n", "database.redis.address"},
		{"postgres without host", "storage:\n  backend: postgres\n", "database.postgres.host"},
		{"negative quota", "storage:\n  backend: memory\n  max_bytes: -1\n", "max_bytes"},
		{"search without addresses", "storage:\n  backend: memory\nsearch:\n  enabled: true\n", "elasticsearch.addresses"},
		{"camunda without broker", "storage:\n  backend: memory\ncamunda:\n  enabled: true\n", "camunda.broker_address"},
		{"email without recipient", "storage:\n  backend: memory\nnotifications:\n  email:\n    enabled: true\n    from_email: a@b.se\n", "to_email"},
		{"sms without phone", "storage:\n  backend: memory\nnotifications:\n  sms:\n    enabled: true\n", "phone_number"},
		{"bad timezone", "storage:\n  backend: memory\nexport:\n  timezone: Mars/Olympus\n", "export.timezone"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFromFile_EnvOverride(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "memory")

	cfg, err := LoadFromFile(writeConfig(t, "storage:\n  backend: redis\n"))
	require.NoError(t, err)

	assert.Equal(t, BackendMemory, cfg.Storage.Backend)
}

func TestLoadFromFile_ExpandsEnvVars(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("FORMS_DATA_DIR", dir)

	cfg, err := LoadFromFile(writeConfig(t, "storage:\n  backend: file\n  directory: ${FORMS_DATA_DIR}\n"))
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.Storage.Directory)
}

func TestLoadFromFile_Missing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestSampleConfig(t *testing.T) {
	cfg, err := LoadFromFile(filepath.Join("..", "..", "..", "configs", "config.yaml"))
	require.NoError(t, err)

	assert.Equal(t, BackendFile, cfg.Storage.Backend)
	assert.Equal(t, "Europe/Stockholm", cfg.Export.Timezone)
	assert.True(t, IsWorkerEnabled(cfg, "send-submission-alert"))
	assert.Equal(t, 10000, GetWorkerConfig(cfg, "create-submission").Timeout)
}

func TestGetWorkerConfig_Absent(t *testing.T) {
	cfg := &Config{Workers: map[string]WorkerConfig{"off": {Enabled: false}}}

	assert.Equal(t, WorkerConfig{Enabled: true, MaxJobsActive: 5, Timeout: 30000, MaxRetries: 3}, GetWorkerConfig(cfg, "missing"))
	assert.True(t, IsWorkerEnabled(cfg, "missing"))
	assert.False(t, IsWorkerEnabled(cfg, "off"))
}

func TestExportLocation(t *testing.T) {
	assert.Equal(t, time.Local, ExportConfig{}.ExportLocation())
	assert.Equal(t, "Europe/Stockholm", ExportConfig{Timezone: "Europe/Stockholm"}.ExportLocation().String())
	assert.Equal(t, time.Local, ExportConfig{Timezone: "Nowhere/Else"}.ExportLocation())
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 1500*time.Millisecond, GetDuration(1500))
}

func TestPostgresDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: 5433, User: "forms", Password: "pw", Database: "swedana", SSLMode: "require"}

	assert.Equal(t, "host=db port=5433 user=forms password=pw dbname=swedana sslmode=require", p.GetDSN())
}
