// Package config loads the cfsync configuration from ~/.cfsync/config.yml,
// CFSYNC_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fivetwenty-io/cfsync/internal/constants"
	"github.com/fivetwenty-io/cfsync/pkg/capi"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the complete configuration.
type Config struct {
	Platforms   []capi.PlatformInstance `json:"platforms"    yaml:"platforms"    mapstructure:"platforms"`
	CFBinary    string                  `json:"cf_binary"    yaml:"cf_binary"    mapstructure:"cf_binary"`
	CFHome      string                  `json:"cf_home"      yaml:"cf_home"      mapstructure:"cf_home"`
	RetryBudget int                     `json:"retry_budget" yaml:"retry_budget" mapstructure:"retry_budget"`
	Output      string                  `json:"output"       yaml:"output"       mapstructure:"output"`
	HTTP        HTTPConfig              `json:"http"         yaml:"http"         mapstructure:"http"`
	Log         LogConfig               `json:"log"          yaml:"log"          mapstructure:"log"`
	NATS        NATSConfig              `json:"nats"         yaml:"nats"         mapstructure:"nats"`
	Watch       WatchConfig             `json:"watch"        yaml:"watch"        mapstructure:"watch"`

	// File is the config file that was read, if any.
	File string `json:"-" yaml:"-" mapstructure:"-"`
}

// HTTPConfig tunes the Cloud Controller transport.
type HTTPConfig struct {
	Timeout       time.Duration `json:"timeout"         yaml:"timeout"         mapstructure:"timeout"`
	RetryMax      int           `json:"retry_max"       yaml:"retry_max"       mapstructure:"retry_max"`
	SkipTLSVerify bool          `json:"skip_tls_verify" yaml:"skip_tls_verify" mapstructure:"skip_tls_verify"`
	Debug         bool          `json:"debug"           yaml:"debug"           mapstructure:"debug"`
}

// LogConfig selects the log level and handler.
type LogConfig struct {
	Level  string `json:"level"  yaml:"level"  mapstructure:"level"`
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// NATSConfig enables publishing tree changes. An empty URL disables it.
type NATSConfig struct {
	URL           string `json:"url"            yaml:"url"            mapstructure:"url"`
	SubjectPrefix string `json:"subject_prefix" yaml:"subject_prefix" mapstructure:"subject_prefix"`
}

// WatchConfig controls periodic refresh sweeps.
type WatchConfig struct {
	Interval time.Duration `json:"interval" yaml:"interval" mapstructure:"interval"`
	Depth    int           `json:"depth"    yaml:"depth"    mapstructure:"depth"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("cf_binary", constants.DefaultCFBinary)
	v.SetDefault("retry_budget", constants.DefaultRetryBudget)
	v.SetDefault("output", constants.FormatTable)
	v.SetDefault("http.timeout", constants.DefaultHTTPTimeout)
	v.SetDefault("http.retry_max", constants.DefaultHTTPRetryMax)
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "text")
	v.SetDefault("nats.subject_prefix", constants.DefaultNATSSubjectPrefix)
	v.SetDefault("watch.interval", constants.DefaultWatchInterval)
	v.SetDefault("watch.depth", constants.DefaultTreeDepth)
}

// Dir returns the default configuration directory.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(home, constants.ConfigDirName), nil
}

// Load reads file, or config.yml in the default directory when file is empty,
// and overlays CFSYNC_* environment variables. A missing file is not an
// error, so commands can create it.
func Load(v *viper.Viper, file string) (*Config, error) {
	SetDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}

		v.AddConfigPath(dir)
		v.SetConfigName(constants.ConfigFileName)
		v.SetConfigType("yml")
	}

	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	err := v.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config

	err = v.Unmarshal(&cfg)
	if err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	cfg.File = v.ConfigFileUsed()

	err = cfg.Validate()
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks values that cannot be fixed by defaults.
func (c *Config) Validate() error {
	switch c.Output {
	case constants.FormatTable, constants.FormatJSON, constants.FormatYAML:
	default:
		return fmt.Errorf("%w: %q (use table, json or yaml)", constants.ErrInvalidOutputFormat, c.Output)
	}

	for _, platform := range c.Platforms {
		if platform.APIAddress == "" {
			return fmt.Errorf("platform %q: %w", platform.Name, constants.ErrAPIEndpointRequired)
		}
	}

	if c.Watch.Interval < constants.MinWatchInterval {
		return fmt.Errorf("%w: %s is below %s", constants.ErrInvalidWatchInterval, c.Watch.Interval, constants.MinWatchInterval)
	}

	if c.RetryBudget < 0 {
		c.RetryBudget = 0
	}

	return nil
}

// Platform returns the named platform, or the first one when name is empty.
func (c *Config) Platform(name string) (*capi.PlatformInstance, error) {
	if len(c.Platforms) == 0 {
		return nil, constants.ErrNoPlatformsConfigured
	}

	if name == "" {
		return &c.Platforms[0], nil
	}

	for i := range c.Platforms {
		if c.Platforms[i].Name == name {
			return &c.Platforms[i], nil
		}
	}

	return nil, fmt.Errorf("%w: %s", constants.ErrPlatformNotFound, name)
}

// PlatformInstances returns pointers to every configured platform, optionally
// restricted to one name.
func (c *Config) PlatformInstances(name string) ([]*capi.PlatformInstance, error) {
	if name != "" {
		platform, err := c.Platform(name)
		if err != nil {
			return nil, err
		}

		return []*capi.PlatformInstance{platform}, nil
	}

	if len(c.Platforms) == 0 {
		return nil, constants.ErrNoPlatformsConfigured
	}

	out := make([]*capi.PlatformInstance, 0, len(c.Platforms))
	for i := range c.Platforms {
		out = append(out, &c.Platforms[i])
	}

	return out, nil
}

// SetPlatform adds platform or replaces the one with the same name.
func (c *Config) SetPlatform(platform capi.PlatformInstance) error {
	if platform.APIAddress == "" {
		return constants.ErrAPIEndpointRequired
	}

	if platform.Name == "" {
		platform.Name = hostOf(platform.APIAddress)
	}

	for i := range c.Platforms {
		if c.Platforms[i].Name == platform.Name {
			c.Platforms[i] = platform

			return nil
		}
	}

	c.Platforms = append(c.Platforms, platform)

	return nil
}

// ClientConfig derives the resilient client configuration.
func (c *Config) ClientConfig(logger capi.Logger) *capi.Config {
	return &capi.Config{
		CFBinary:      c.CFBinary,
		CFHome:        c.CFHome,
		RetryBudget:   c.RetryBudget,
		HTTPTimeout:   c.HTTP.Timeout,
		HTTPRetryMax:  c.HTTP.RetryMax,
		Debug:         c.HTTP.Debug,
		SkipTLSVerify: c.HTTP.SkipTLSVerify,
		Logger:        logger,
	}
}

// Save writes the configuration as YAML to path, or to the file it was read
// from when path is empty, or to the default location.
func (c *Config) Save(path string) (string, error) {
	if path == "" {
		path = c.File
	}

	if path == "" {
		dir, err := Dir()
		if err != nil {
			return "", err
		}

		path = filepath.Join(dir, constants.ConfigFileName+".yml")
	}

	err := os.MkdirAll(filepath.Dir(path), constants.ConfigDirPerm)
	if err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to encode config: %w", err)
	}

	err = os.WriteFile(path, data, constants.ConfigFilePerm)
	if err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}

	c.File = path

	return path, nil
}

func hostOf(address string) string {
	host := address
	if i := strings.Index(host, "://"); i >= 0 {
		host = host[i+3:]
	}

	host = strings.TrimPrefix(host, "api.")

	if i := strings.IndexAny(host, "/:"); i >= 0 {
		host = host[:i]
	}

	return host
}
