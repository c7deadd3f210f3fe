// Package config loads CyberX settings from a YAML file, CYBERX_* environment
// variables and command-line flags, in increasing order of precedence.
package config

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/thecyberx/cyberx/pkg/defaults"
	"github.com/thecyberx/cyberx/pkg/duration"
)

// Host backends.
const (
	BackendAuto   = "auto"
	BackendChrome = "chrome"
	BackendHTTP   = "http"
)

// Config holds every setting the CLI and servers read.
type Config struct {
	Host      HostConfig      `yaml:"host" toml:"host"`
	HTTP      HTTPConfig      `yaml:"http" toml:"http"`
	CORS      CORSConfig      `yaml:"cors" toml:"cors"`
	Shell     ShellConfig     `yaml:"shell" toml:"shell"`
	Telemetry TelemetryConfig `yaml:"telemetry" toml:"telemetry"`

	// LogLevel is debug, info, warn or error.
	LogLevel string `yaml:"log_level" toml:"log_level"`

	// RulesDir replaces bundled rule tables file by file.
	RulesDir string `yaml:"rules_dir" toml:"rules_dir"`

	// EncoderScripts are Tengo files registered as extra encoders.
	EncoderScripts []string `yaml:"encoder_scripts" toml:"encoder_scripts"`
}

// HostConfig selects how pages, cookies and tabs are reached.
type HostConfig struct {
	// Backend is auto, chrome or http. Auto uses chrome when ChromeURL is
	// set and http otherwise.
	Backend string `yaml:"backend" toml:"backend"`

	// ChromeURL is a DevTools endpoint (http://127.0.0.1:9222 or ws://...)
	// of a running browser. Empty means launch a headless one when the
	// chrome backend is chosen.
	ChromeURL string `yaml:"chrome_url" toml:"chrome_url"`

	// URL is the page treated as the active tab when nothing is attached.
	URL string `yaml:"url" toml:"url"`
}

// HTTPConfig configures outbound requests.
type HTTPConfig struct {
	Timeout    time.Duration `yaml:"timeout" toml:"timeout"`
	Proxy      string        `yaml:"proxy" toml:"proxy"`
	Insecure   bool          `yaml:"insecure" toml:"insecure"`
	TLSProfile string        `yaml:"tls_profile" toml:"tls_profile"`
	UserAgent  string        `yaml:"user_agent" toml:"user_agent"`
}

// CORSConfig configures the CORS checker.
type CORSConfig struct {
	Origin string `yaml:"origin" toml:"origin"`
}

// ShellConfig pre-fills the reverse shell generator.
type ShellConfig struct {
	IP   string `yaml:"ip" toml:"ip"`
	Port string `yaml:"port" toml:"port"`
}

// TelemetryConfig enables tracing and metrics.
type TelemetryConfig struct {
	OTelEndpoint string `yaml:"otel_endpoint" toml:"otel_endpoint"`
	OTelInsecure bool   `yaml:"otel_insecure" toml:"otel_insecure"`
	MetricsAddr  string `yaml:"metrics_addr" toml:"metrics_addr"`
}

// Default returns a Config with every field at its default.
func Default() *Config {
	return &Config{
		Host: HostConfig{Backend: BackendAuto},
		HTTP: HTTPConfig{
			Timeout:   duration.HTTPProbing,
			UserAgent: defaults.UAChrome,
		},
		CORS:     CORSConfig{Origin: defaults.CORSOrigin},
		Shell:    ShellConfig{IP: defaults.ShellIP, Port: defaults.ShellPort},
		LogLevel: "info",
	}
}

// Dir returns the per-user config directory.
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "cyberx"), nil
}

// DefaultPath returns Dir()/config.yaml, or "" when there is no user
// config directory.
func DefaultPath() string {
	dir, err := Dir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads path over the defaults. A missing file at the default path is
// not an error; a missing explicit path is. Files ending in .toml are read
// as TOML; anything else as YAML, which covers JSON.
func Load(path string) (*Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := decode(path, data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		_, err := toml.Decode(string(data), cfg)
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// ApplyEnv overlays CYBERX_* variables read through getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	set := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	set("CYBERX_BACKEND", &c.Host.Backend)
	set("CYBERX_CHROME_URL", &c.Host.ChromeURL)
	set("CYBERX_URL", &c.Host.URL)
	set("CYBERX_PROXY", &c.HTTP.Proxy)
	set("CYBERX_TLS_PROFILE", &c.HTTP.TLSProfile)
	set("CYBERX_OTEL_ENDPOINT", &c.Telemetry.OTelEndpoint)
	set("CYBERX_METRICS_ADDR", &c.Telemetry.MetricsAddr)
	set("CYBERX_LOG_LEVEL", &c.LogLevel)
	set("CYBERX_RULES_DIR", &c.RulesDir)

	if v := getenv("CYBERX_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: CYBERX_TIMEOUT: %v", ErrInvalidConfig, err)
		}
		c.HTTP.Timeout = d
	}
	return nil
}

// RegisterFlags binds the shared host and network flags on fs. Values parsed
// later overwrite the loaded config.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Host.Backend, "backend", c.Host.Backend, "Host backend: auto, chrome, http")
	fs.StringVar(&c.Host.ChromeURL, "chrome", c.Host.ChromeURL, "Chrome DevTools URL to attach to")
	fs.StringVar(&c.Host.URL, "u", c.Host.URL, "Page URL to treat as the active tab")
	fs.StringVar(&c.HTTP.Proxy, "proxy", c.HTTP.Proxy, "HTTP/SOCKS5 proxy URL")
	fs.BoolVar(&c.HTTP.Insecure, "k", c.HTTP.Insecure, "Skip TLS verification")
	fs.StringVar(&c.HTTP.TLSProfile, "tls-profile", c.HTTP.TLSProfile, "Browser TLS fingerprint (chrome, firefox, safari, edge, ios)")
	fs.DurationVar(&c.HTTP.Timeout, "timeout", c.HTTP.Timeout, "Per-request timeout")
}

// Validate checks enumerations and required pairs.
func (c *Config) Validate() error {
	switch c.Host.Backend {
	case BackendAuto, BackendChrome, BackendHTTP:
	default:
		return fmt.Errorf("%w: unknown backend %q", ErrInvalidConfig, c.Host.Backend)
	}
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidConfig)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.CORS.Origin == "" {
		return fmt.Errorf("%w: cors.origin", ErrMissingRequired)
	}
	return nil
}

// ResolvedBackend returns the concrete backend auto stands for.
func (c *Config) ResolvedBackend() string {
	if c.Host.Backend != BackendAuto {
		return c.Host.Backend
	}
	if c.Host.ChromeURL != "" {
		return BackendChrome
	}
	return BackendHTTP
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, name)
}
