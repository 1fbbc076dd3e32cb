package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv neutralizes overrides that may leak in from the host environment
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"HOST", "PORT", "DEBUG", "DB_PATH", "WEB_PORT", "API_BASE_URL", "LOG_LEVEL", "LOG_FORMAT", "OPTIMIZER_WORKERS"} {
		t.Setenv(k, "")
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Server.Port)
	assert.Equal(t, "./gearforge.db", cfg.Storage.DatabasePath)
	assert.Equal(t, 3*time.Second, cfg.GetNotificationTimeout())
}

func TestLoad_YAMLAndSetBonuses(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	path := filepath.Join(t.TempDir(), "gearforge.yaml")
	data := `
server:
  port: "6001"
logging:
  level: debug
optimizer:
  workers: 2
  set_bonuses:
    泰坦套裝:
      2:
        健康: 5
      4:
        健康: 10
        職業: 5
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "6001", cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 2, cfg.Optimizer.Workers)
	assert.Equal(t, 10.0, cfg.Optimizer.SetBonuses["泰坦套裝"][4]["健康"])
	// untouched sections keep their defaults
	assert.Equal(t, "http://localhost:5000", cfg.Web.APIBaseURL)
}

func TestLoad_InvalidYAML(t *testing.T) {
	t.Chdir(t.TempDir())

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Run("PORT and DB_PATH override file values", func(t *testing.T) {
		t.Setenv("PORT", "7000")
		t.Setenv("DB_PATH", "/tmp/x.db")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "7000", cfg.Server.Port)
		assert.Equal(t, "/tmp/x.db", cfg.Storage.DatabasePath)
	})

	t.Run("API_BASE_URL trailing slash is trimmed", func(t *testing.T) {
		t.Setenv("API_BASE_URL", "http://api.local:5000/")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "http://api.local:5000", cfg.Web.APIBaseURL)
	})

	t.Run("DEBUG accepts true and 1", func(t *testing.T) {
		t.Setenv("DEBUG", "TRUE")
		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		assert.True(t, cfg.Debug)

		t.Setenv("DEBUG", "0")
		cfg = DefaultConfig()
		cfg.applyEnvOverrides()
		assert.False(t, cfg.Debug)
	})
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Level = "verbose"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Optimizer.SetBonuses = map[string]map[int]map[string]float64{
		"x": {9: {"健康": 1}},
	}
	assert.Error(t, cfg.Validate())

	assert.NoError(t, DefaultConfig().Validate())
}

func TestSaveRoundTrip(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	path := filepath.Join(t.TempDir(), "nested", "cfg.yaml")
	cfg := DefaultConfig()
	cfg.Web.Port = "9090"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9090", loaded.Web.Port)
}

func TestLoad_ExampleFile(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join("..", "..", "gearforge.example.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, 30*time.Second, cfg.GetRequestTimeout())
	assert.Equal(t, 5.0, cfg.Optimizer.SetBonuses["鐵旗"][2]["健康"])
	assert.Len(t, cfg.Optimizer.SetBonuses["鐵旗"][4], 2)
}
