package config

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

func TestLoadConfigReadsYAML(t *testing.T) {
	path := writeConfig(t, `
app-id: "00000000-0000-0000-0000-000000000001"
app-secret: "s3cret"
redirect-url: "http://localhost:9123/token"
callback-port: 9123
request-timeout: 2s
capture-timeout: 90s
proxy-url: "socks5://127.0.0.1:1080"
request-log: true
debug: true
logging-to-file: true
log-dir: "/tmp/msa-logs"
metrics-file: "/tmp/msa.prom"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "00000000-0000-0000-0000-000000000001", cfg.AppID)
	assert.Equal(t, "s3cret", cfg.AppSecret)
	assert.Equal(t, "http://localhost:9123/token", cfg.RedirectURL)
	assert.Equal(t, 9123, cfg.CallbackPort)
	assert.Equal(t, 2*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 90*time.Second, cfg.CaptureTimeout)
	assert.Equal(t, "socks5://127.0.0.1:1080", cfg.ProxyURL)
	assert.True(t, cfg.RequestLog)
	assert.True(t, cfg.Debug)
	assert.True(t, cfg.LoggingToFile)
	assert.Equal(t, "/tmp/msa-logs", cfg.LogDir)
	assert.Equal(t, "/tmp/msa.prom", cfg.MetricsFile)
	assert.Equal(t, DefaultLogMaxBackups, cfg.LogMaxBackups)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, DefaultCallbackPort, cfg.CallbackPort)
	assert.Equal(t, DefaultRequestTimeout, cfg.RequestTimeout)
	assert.Equal(t, DefaultCaptureTimeout, cfg.CaptureTimeout)
	assert.Equal(t, "http://localhost:8080/token", cfg.RedirectURL)
	assert.Equal(t, "logs", cfg.LogDir)
}

func TestLoadConfigEnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, "app-id: from-file\napp-secret: file-secret\ncallback-port: 9000\n")
	t.Setenv("MSA_APP_ID", "from-env")
	t.Setenv("MSA_CALLBACK_PORT", "9001")
	t.Setenv("MSA_REQUEST_TIMEOUT", "750ms")
	t.Setenv("MSA_PROXY_URL", "http://proxy.local:3128")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.AppID)
	assert.Equal(t, "file-secret", cfg.AppSecret, "unset variables keep file values")
	assert.Equal(t, 9001, cfg.CallbackPort)
	assert.Equal(t, 750*time.Millisecond, cfg.RequestTimeout)
	assert.Equal(t, "http://proxy.local:3128", cfg.ProxyURL)
	assert.Equal(t, "http://localhost:9001/token", cfg.RedirectURL)
}

func TestLoadConfigRejectsBadEnvironment(t *testing.T) {
	t.Setenv("MSA_REQUEST_TIMEOUT", "soon")
	_, err := LoadConfig("")
	assert.ErrorContains(t, err, "MSA_REQUEST_TIMEOUT")
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")

	_, err = LoadConfig(writeConfig(t, "app-id: [unterminated"))
	assert.ErrorContains(t, err, "failed to parse config file")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.AppID = "id"
		cfg.AppSecret = "secret"
		return cfg
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name    string
		mutate  func(*Config)
		message string
	}{
		{"missing app id", func(c *Config) { c.AppID = " " }, "app-id is required"},
		{"missing secret", func(c *Config) { c.AppSecret = "" }, "app-secret is required"},
		{"port out of range", func(c *Config) { c.CallbackPort = 70000 }, "callback-port"},
		{"zero request timeout", func(c *Config) { c.RequestTimeout = 0 }, "request-timeout must be positive"},
		{"negative capture timeout", func(c *Config) { c.CaptureTimeout = -time.Second }, "capture-timeout must be positive"},
		{"relative redirect", func(c *Config) { c.RedirectURL = "/token" }, "not an absolute URL"},
		{"unsupported proxy", func(c *Config) { c.ProxyURL = "ftp://proxy" }, "unsupported proxy-url scheme"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := valid()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.message)
		})
	}
}
