package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/codingconcepts/env"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultCallbackPort is the localhost port the redirect listener binds to.
	DefaultCallbackPort = 8080
	// DefaultRequestTimeout bounds each stage request.
	DefaultRequestTimeout = 500 * time.Millisecond
	// DefaultCaptureTimeout bounds the wait for the consent redirect.
	DefaultCaptureTimeout = 5 * time.Minute
	// DefaultLogMaxBackups is the number of rotated log files kept next to main.log.
	DefaultLogMaxBackups = 3
)

// Config represents the application's configuration, loaded from a YAML file
// and overridden by MSA_* environment variables.
type Config struct {
	SDKConfig `yaml:",inline"`

	// AppID is the Azure application (client) id.
	AppID string `yaml:"app-id" json:"app-id"`

	// AppSecret is the Azure application client secret.
	AppSecret string `yaml:"app-secret" json:"-"`

	// RedirectURL must be registered on the application and reach the local listener.
	RedirectURL string `yaml:"redirect-url" json:"redirect-url"`

	// CallbackPort is the localhost port the redirect listener binds to.
	CallbackPort int `yaml:"callback-port" json:"callback-port"`

	// RequestTimeout bounds each of the five stage requests.
	RequestTimeout time.Duration `yaml:"request-timeout" json:"request-timeout"`

	// CaptureTimeout bounds the wait for the browser redirect.
	CaptureTimeout time.Duration `yaml:"capture-timeout" json:"capture-timeout"`

	// Debug enables debug-level logging.
	Debug bool `yaml:"debug" json:"debug"`

	// LoggingToFile writes logs to a rotating main.log instead of stdout.
	LoggingToFile bool `yaml:"logging-to-file" json:"logging-to-file"`

	// LogDir is the directory for main.log. Defaults to "logs".
	LogDir string `yaml:"log-dir" json:"log-dir"`

	// LogMaxBackups is the number of rotated log files to keep.
	LogMaxBackups int `yaml:"log-max-backups" json:"log-max-backups"`

	// MetricsFile, when set, receives a Prometheus textfile with stage metrics after each run.
	MetricsFile string `yaml:"metrics-file" json:"metrics-file"`
}

// envOverrides mirrors the overridable settings. Values are kept as strings so an
// unset variable never clobbers the file value.
type envOverrides struct {
	AppID          string `env:"MSA_APP_ID"`
	AppSecret      string `env:"MSA_APP_SECRET"`
	RedirectURL    string `env:"MSA_REDIRECT_URL"`
	CallbackPort   string `env:"MSA_CALLBACK_PORT"`
	RequestTimeout string `env:"MSA_REQUEST_TIMEOUT"`
	ProxyURL       string `env:"MSA_PROXY_URL"`
}

// Default returns a configuration populated with default values only.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// LoadConfig reads the YAML file at configFile, applies MSA_* environment overrides
// and fills defaults. An empty path skips the file. The result is not validated.
func LoadConfig(configFile string) (*Config, error) {
	cfg := &Config{}

	if strings.TrimSpace(configFile) != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err = yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		log.Debugf("loaded configuration from %s", configFile)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (cfg *Config) applyEnv() error {
	var overrides envOverrides
	if err := env.Set(&overrides); err != nil {
		return fmt.Errorf("failed to read environment: %w", err)
	}

	if v := strings.TrimSpace(overrides.AppID); v != "" {
		cfg.AppID = v
	}
	if v := strings.TrimSpace(overrides.AppSecret); v != "" {
		cfg.AppSecret = v
	}
	if v := strings.TrimSpace(overrides.RedirectURL); v != "" {
		cfg.RedirectURL = v
	}
	if v := strings.TrimSpace(overrides.ProxyURL); v != "" {
		cfg.ProxyURL = v
	}
	if v := strings.TrimSpace(overrides.CallbackPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid MSA_CALLBACK_PORT %q: %w", v, err)
		}
		cfg.CallbackPort = port
	}
	if v := strings.TrimSpace(overrides.RequestTimeout); v != "" {
		timeout, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid MSA_REQUEST_TIMEOUT %q: %w", v, err)
		}
		cfg.RequestTimeout = timeout
	}
	return nil
}

func (cfg *Config) applyDefaults() {
	if cfg.CallbackPort == 0 {
		cfg.CallbackPort = DefaultCallbackPort
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.CaptureTimeout == 0 {
		cfg.CaptureTimeout = DefaultCaptureTimeout
	}
	if strings.TrimSpace(cfg.LogDir) == "" {
		cfg.LogDir = "logs"
	}
	if cfg.LogMaxBackups == 0 {
		cfg.LogMaxBackups = DefaultLogMaxBackups
	}
	if cfg.RedirectURL == "" && cfg.CallbackPort > 0 {
		cfg.RedirectURL = fmt.Sprintf("http://localhost:%d/token", cfg.CallbackPort)
	}
}

// Validate reports every configuration problem that would prevent a sign-in.
func (cfg *Config) Validate() error {
	var problems []error
	if strings.TrimSpace(cfg.AppID) == "" {
		problems = append(problems, errors.New("app-id is required (or set MSA_APP_ID)"))
	}
	if strings.TrimSpace(cfg.AppSecret) == "" {
		problems = append(problems, errors.New("app-secret is required (or set MSA_APP_SECRET)"))
	}
	if cfg.CallbackPort < 1 || cfg.CallbackPort > 65535 {
		problems = append(problems, fmt.Errorf("callback-port %d is out of range", cfg.CallbackPort))
	}
	if cfg.RequestTimeout <= 0 {
		problems = append(problems, fmt.Errorf("request-timeout must be positive, got %s", cfg.RequestTimeout))
	}
	if cfg.CaptureTimeout <= 0 {
		problems = append(problems, fmt.Errorf("capture-timeout must be positive, got %s", cfg.CaptureTimeout))
	}
	if redirect, err := url.Parse(cfg.RedirectURL); err != nil || redirect.Scheme == "" || redirect.Host == "" {
		problems = append(problems, fmt.Errorf("redirect-url %q is not an absolute URL", cfg.RedirectURL))
	} else if port := redirect.Port(); port != "" && port != strconv.Itoa(cfg.CallbackPort) {
		log.Warnf("redirect-url port %s differs from callback-port %d, the redirect may not reach the listener", port, cfg.CallbackPort)
	}
	if proxy := strings.TrimSpace(cfg.ProxyURL); proxy != "" {
		parsed, err := url.Parse(proxy)
		if err != nil {
			problems = append(problems, fmt.Errorf("invalid proxy-url: %w", err))
		} else if parsed.Scheme != "socks5" && parsed.Scheme != "http" && parsed.Scheme != "https" {
			problems = append(problems, fmt.Errorf("unsupported proxy-url scheme %q", parsed.Scheme))
		}
	}
	return errors.Join(problems...)
}
