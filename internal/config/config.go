// Package config loads rowkit settings from an optional config file and
// ROWKIT_ environment variables.
package config

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/roach88/rowkit/internal/crypt"
	"github.com/roach88/rowkit/internal/paging"
)

// EnvPrefix is the environment variable prefix. ROWKIT_DATABASE_DSN sets
// database.dsn.
const EnvPrefix = "ROWKIT"

// Config is the full configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Crypto   CryptoConfig   `mapstructure:"crypto"`
	Paging   PagingConfig   `mapstructure:"paging"`
	Log      LogConfig      `mapstructure:"log"`
}

// DatabaseConfig selects the store backend.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // sqlite or postgres
	DSN    string `mapstructure:"dsn"`    // file path for sqlite
}

// CryptoConfig holds master keys by version. Key is shorthand for the
// master of ActiveVersion.
type CryptoConfig struct {
	ActiveVersion int               `mapstructure:"active_version"`
	Key           string            `mapstructure:"key"`
	Keys          map[string]string `mapstructure:"keys"` // "v1" or "1" -> master key
}

// PagingConfig holds pagination defaults.
type PagingConfig struct {
	MinPerPage   int    `mapstructure:"min_per_page"`
	DefaultOrder string `mapstructure:"default_order"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text or json
}

// ErrNoKeys is returned by Keyring when no master key is configured.
var ErrNoKeys = errors.New("no encryption keys configured")

// Load reads configuration. When path is empty, rowkit.yaml in the working
// directory is used if present. Environment variables override the file.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("rowkit")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "rowkit.db")
	v.SetDefault("crypto.active_version", 1)
	v.SetDefault("crypto.key", "")
	v.SetDefault("crypto.keys", map[string]string{})
	v.SetDefault("paging.min_per_page", paging.MinPerPage)
	v.SetDefault("paging.default_order", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	if c.Paging.MinPerPage < 1 {
		return fmt.Errorf("paging.min_per_page must be positive, got %d", c.Paging.MinPerPage)
	}
	return nil
}

// Masters returns the configured master keys by version.
func (c CryptoConfig) Masters() (map[int]string, error) {
	masters := make(map[int]string, len(c.Keys)+1)
	for k, v := range c.Keys {
		n, err := strconv.Atoi(strings.TrimPrefix(strings.ToLower(k), "v"))
		if err != nil || n < 1 {
			return nil, fmt.Errorf("crypto.keys: invalid version %q", k)
		}
		masters[n] = v
	}
	if c.Key != "" {
		masters[c.ActiveVersion] = c.Key
	}
	return masters, nil
}

// Versions returns the configured key versions in ascending order.
func (c CryptoConfig) Versions() []int {
	masters, _ := c.Masters()
	out := make([]int, 0, len(masters))
	for n := range masters {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// Keyring builds the field keyring, or returns ErrNoKeys.
func (c CryptoConfig) Keyring() (*crypt.Keyring, error) {
	masters, err := c.Masters()
	if err != nil {
		return nil, err
	}
	if len(masters) == 0 {
		return nil, ErrNoKeys
	}
	return crypt.NewKeyring(c.ActiveVersion, masters)
}
