// Package config loads kubetree's configuration file and applies environment
// overrides on top of it.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/kubetree/internal/tools"
)

// Kubeconfig path types.
const (
	KubeconfigHost = "host"
	KubeconfigWSL  = "wsl"
)

// Config is the complete kubetree configuration.
type Config struct {
	Namespace  string           `yaml:"namespace" toml:"namespace"`
	Bridge     BridgeConfig     `yaml:"bridge" toml:"bridge"`
	Kubeconfig KubeconfigConfig `yaml:"kubeconfig" toml:"kubeconfig"`
	Log        LogConfig        `yaml:"log" toml:"log"`
	Download   DownloadConfig   `yaml:"download" toml:"download"`
	Tools      ToolsConfig      `yaml:"tools" toml:"tools"`
	Views      ViewsConfig      `yaml:"views" toml:"views"`
}

// BridgeConfig controls routing commands through WSL.
type BridgeConfig struct {
	Enabled bool `yaml:"enabled" toml:"enabled"`
}

// KubeconfigConfig points at the cluster configuration. Type is "host" for a
// path on this machine or "wsl" for a path inside WSL.
type KubeconfigConfig struct {
	Path string `yaml:"path" toml:"path"`
	Type string `yaml:"type" toml:"type"`
}

// LogConfig configures the root logger.
type LogConfig struct {
	Level string `yaml:"level" toml:"level"`
	JSON  bool   `yaml:"json" toml:"json"`
	Path  string `yaml:"path" toml:"path"`
}

// DownloadConfig tunes artifact downloads.
type DownloadConfig struct {
	Timeout  Duration `yaml:"timeout" toml:"timeout"`
	MaxBytes int64    `yaml:"max_bytes" toml:"max_bytes"`
	TempDir  string   `yaml:"temp_dir" toml:"temp_dir"`
}

// ToolsConfig disables tools or pins other versions.
type ToolsConfig struct {
	Disabled []string           `yaml:"disabled" toml:"disabled"`
	Pin      map[string]ToolPin `yaml:"pin" toml:"pin"`
}

// ToolPin overrides a built-in tool's version or artifact URL template.
type ToolPin struct {
	Version string `yaml:"version" toml:"version"`
	URL     string `yaml:"url" toml:"url"`
}

// ViewsConfig bounds the tree view registry.
type ViewsConfig struct {
	Capacity int `yaml:"capacity" toml:"capacity"`
}

// Duration is a time.Duration written as "90s" or "5m" in config files.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Namespace:  tools.DefaultNamespace,
		Kubeconfig: KubeconfigConfig{Type: KubeconfigHost},
		Log:        LogConfig{Level: "info"},
		Download: DownloadConfig{
			Timeout:  Duration{5 * time.Minute},
			MaxBytes: 200 * 1024 * 1024,
		},
		Views: ViewsConfig{Capacity: 16},
	}
}

// DefaultPath returns ~/.kubetree/config.yaml for the given home directory.
func DefaultPath(home string) string {
	return filepath.Join(home, "."+tools.DefaultNamespace, "config.yaml")
}

// Load reads the configuration at path, choosing TOML for ".toml" files and
// YAML otherwise. A missing file yields the defaults.
func Load(path string) (Config, error) {
	contents, err := os.ReadFile(path) // #nosec G304 -- user-supplied config path
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := Default()
			cfg.ApplyDefaults()
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(contents, &cfg)
	} else {
		err = yaml.Unmarshal(contents, &cfg)
	}
	if err != nil {
		return Config{}, fmt.Errorf("unmarshal config %s: %w", path, err)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// ApplyDefaults fills fields a file left empty.
func (c *Config) ApplyDefaults() {
	defaults := Default()

	if c.Namespace == "" {
		c.Namespace = defaults.Namespace
	}
	if c.Kubeconfig.Type == "" {
		c.Kubeconfig.Type = defaults.Kubeconfig.Type
	}
	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
	if c.Download.Timeout.Duration <= 0 {
		c.Download.Timeout = defaults.Download.Timeout
	}
	if c.Download.MaxBytes <= 0 {
		c.Download.MaxBytes = defaults.Download.MaxBytes
	}
	if c.Views.Capacity <= 0 {
		c.Views.Capacity = defaults.Views.Capacity
	}
}

// ApplyEnv overrides fields from KUBETREE_* variables. KUBECONFIG is used
// when no kubeconfig path is configured.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv("KUBETREE_USE_WSL"); v != "" {
		b, err := parseBool(v)
		if err != nil {
			return fmt.Errorf("KUBETREE_USE_WSL: %w", err)
		}
		c.Bridge.Enabled = b
	}
	if v := getenv("KUBETREE_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := getenv("KUBETREE_LOG_JSON"); v != "" {
		b, err := parseBool(v)
		if err != nil {
			return fmt.Errorf("KUBETREE_LOG_JSON: %w", err)
		}
		c.Log.JSON = b
	}
	if v := getenv("KUBETREE_LOG_PATH"); v != "" {
		c.Log.Path = v
	}
	if v := getenv("KUBETREE_KUBECONFIG"); v != "" {
		c.Kubeconfig.Path = v
	} else if c.Kubeconfig.Path == "" {
		c.Kubeconfig.Path = getenv("KUBECONFIG")
	}
	if v := getenv("KUBETREE_KUBECONFIG_TYPE"); v != "" {
		c.Kubeconfig.Type = v
	}
	if v := getenv("KUBETREE_DOWNLOAD_TIMEOUT"); v != "" {
		if err := c.Download.Timeout.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("KUBETREE_DOWNLOAD_TIMEOUT: %w", err)
		}
	}
	return nil
}

// Validate checks values that cannot be defaulted.
func (c Config) Validate() error {
	var errs []error
	switch c.Kubeconfig.Type {
	case KubeconfigHost, KubeconfigWSL:
	default:
		errs = append(errs, fmt.Errorf("kubeconfig.type must be %q or %q, got %q", KubeconfigHost, KubeconfigWSL, c.Kubeconfig.Type))
	}
	if hclog.LevelFromString(c.Log.Level) == hclog.NoLevel {
		errs = append(errs, fmt.Errorf("unknown log level %q", c.Log.Level))
	}
	if strings.ContainsAny(c.Namespace, `/\`) {
		errs = append(errs, fmt.Errorf("namespace %q must not contain path separators", c.Namespace))
	}
	return errors.Join(errs...)
}

// ToolsConfig converts the tools section for tools.Builder.
func (c Config) ToolsConfig() tools.Config {
	overrides := make(map[string]tools.Override, len(c.Tools.Pin))
	for name, pin := range c.Tools.Pin {
		overrides[name] = tools.Override{Version: pin.Version, URL: pin.URL}
	}
	return tools.Config{
		Namespace:     c.Namespace,
		DisabledTools: append([]string(nil), c.Tools.Disabled...),
		Overrides:     overrides,
	}
}

// Encode writes the configuration as YAML, or TOML when format is "toml".
func (c Config) Encode(w io.Writer, format string) error {
	if strings.EqualFold(format, "toml") {
		return toml.NewEncoder(w).Encode(c)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return err
	}
	return enc.Close()
}

func parseBool(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "yes", "on":
		return true, nil
	case "no", "off":
		return false, nil
	}
	return strconv.ParseBool(v)
}
