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
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  secretKey: s3cret
`)
	v, err := LoadConfig(path)
	require.NoError(t, err)
	cfg, err := ParseConfig(v)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Port)
	assert.Equal(t, []string{"720p"}, cfg.Transcode.Presets)
	assert.Equal(t, 3, cfg.Transcode.MaxAttempts)
	assert.Equal(t, 4*time.Hour, cfg.Tokens.StreamTTL)
	assert.Equal(t, 3*time.Second, cfg.PageService.Timeout)
	assert.Equal(t, FallbackAllow, cfg.Policy.OnUnreachable["page_protected"])
	assert.Equal(t, StorageLocal, cfg.Storage.Type)
	assert.False(t, cfg.PageServiceConfigured())
}

func TestLoadConfigEnvOverride(t *testing.T) {
	path := writeConfig(t, `
server:
  secretKey: from-file
  debug: false
`)
	t.Setenv("SERVER_SECRETKEY", "from-env")
	t.Setenv("SERVER_DEBUG", "true")

	v, err := LoadConfig(path)
	require.NoError(t, err)
	cfg, err := ParseConfig(v)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Server.SecretKey)
	assert.True(t, cfg.Server.Debug)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file not found")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name: "placeholder secret in release",
			body: `
server:
  mode: release
`,
			wantErr: "must be changed",
		},
		{
			name: "unknown storage",
			body: `
server:
  secretKey: x
storage:
  type: ftp
`,
			wantErr: "unknown storage type",
		},
		{
			name: "s3 without bucket",
			body: `
server:
  secretKey: x
storage:
  type: s3
`,
			wantErr: "s3.bucket",
		},
		{
			name: "bad fallback",
			body: `
server:
  secretKey: x
policy:
  onUnreachable:
    page_protected: maybe
`,
			wantErr: "allow or deny",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := LoadConfig(writeConfig(t, tt.body))
			require.NoError(t, err)
			_, err = ParseConfig(v)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPageServiceConfigured(t *testing.T) {
	c := &Config{PageService: PageServiceConfig{URL: "http://wiki", TokenID: "id", TokenSecret: "secret"}}
	assert.True(t, c.PageServiceConfigured())
	c.PageService.TokenSecret = ""
	assert.False(t, c.PageServiceConfigured())
}
