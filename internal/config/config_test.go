package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setenv(t *testing.T, kv map[string]string) {
	t.Helper()
	for _, k := range []string{"PORT", "API_BASE_URL", "ENV", "SESSION_KEY", "SITE_NAME", "SITE_HOST", "SENTRY_DSN", "API_TIMEOUT_SECONDS", "WORKSPACE_CACHE_HOURS", "STATS_CACHE_MINUTES", "POSTINGS_PER_RSS"} {
		old, had := os.LookupEnv(k)
		os.Unsetenv(k)
		t.Cleanup(func() {
			if had {
				os.Setenv(k, old)
			} else {
				os.Unsetenv(k)
			}
		})
	}
	for k, v := range kv {
		os.Setenv(k, v)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	setenv(t, map[string]string{
		"PORT":         "9876",
		"API_BASE_URL": "http://api.local",
		"ENV":          "DEV",
		"SESSION_KEY":  "c2VjcmV0",
	})
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, []byte("secret"), cfg.SessionKey)
	assert.Equal(t, "School Job Board", cfg.SiteName)
	assert.Equal(t, "localhost:9876", cfg.SiteHost)
	assert.Equal(t, "http://", cfg.URLProtocol)
	assert.Equal(t, 10*time.Second, cfg.APITimeout)
	assert.Equal(t, 12*time.Hour, cfg.WorkspaceTTL)
	assert.Equal(t, 5*time.Minute, cfg.StatsTTL)
}

func TestLoadConfigErrors(t *testing.T) {
	setenv(t, map[string]string{"PORT": "1"})
	_, err := LoadConfig()
	assert.EqualError(t, err, "API_BASE_URL cannot be empty")

	setenv(t, map[string]string{"PORT": "1", "API_BASE_URL": "x", "ENV": "prod", "SESSION_KEY": "%%%"})
	_, err = LoadConfig()
	assert.Error(t, err)

	setenv(t, map[string]string{"PORT": "1", "API_BASE_URL": "x", "ENV": "prod", "SESSION_KEY": "c2VjcmV0", "STATS_CACHE_MINUTES": "soon"})
	_, err = LoadConfig()
	assert.Contains(t, err.Error(), "STATS_CACHE_MINUTES")
}

func TestLoadCLIConfig(t *testing.T) {
	file := filepath.Join(t.TempDir(), "s.json")
	os.Setenv("JOBBOARD_SESSION_FILE", file)
	os.Unsetenv("JOBBOARD_API_BASE_URL")
	defer os.Unsetenv("JOBBOARD_SESSION_FILE")

	cfg, err := LoadCLIConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:7000", cfg.APIBaseURL)
	assert.Equal(t, file, cfg.SessionFile)
}
