// Package config loads formguard settings from a YAML file, FORMGUARD_
// environment variables and command flags, in increasing precedence.
package config

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/goliatone/go-formguard/pkg/risk"
	"github.com/goliatone/go-formguard/pkg/validation"
)

// EnvPrefix namespaces environment overrides, e.g. FORMGUARD_HTTP_ADDR.
const EnvPrefix = "FORMGUARD"

type Config struct {
	Log        LogConfig        `mapstructure:"log"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Validation ValidationConfig `mapstructure:"validation"`
	Schemas    SchemasConfig    `mapstructure:"schemas"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	Upload     UploadConfig     `mapstructure:"upload"`
}

type LogConfig struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

type CacheConfig struct {
	Size int `mapstructure:"size"`
}

type ValidationConfig struct {
	// RejectRisk turns threats at or above this level into errors. Empty
	// keeps detection advisory.
	RejectRisk string `mapstructure:"reject_risk"`
}

type SchemasConfig struct {
	Dir     string `mapstructure:"dir"`
	OpenAPI string `mapstructure:"openapi"`
}

type HTTPConfig struct {
	Addr         string  `mapstructure:"addr"`
	RateLimit    float64 `mapstructure:"rate_limit"`
	Burst        int     `mapstructure:"burst"`
	MaxBodyBytes int64   `mapstructure:"max_body_bytes"`
}

type UploadConfig struct {
	MaxSize           int64    `mapstructure:"max_size"`
	AllowedTypes      []string `mapstructure:"allowed_types"`
	AllowedExtensions []string `mapstructure:"allowed_extensions"`
}

// flagKeys maps command flags onto config keys.
var flagKeys = map[string]string{
	"log-level":   "log.level",
	"cache-size":  "cache.size",
	"reject-risk": "validation.reject_risk",
	"schemas":     "schemas.dir",
	"openapi":     "schemas.openapi",
	"addr":        "http.addr",
	"rate-limit":  "http.rate_limit",
	"burst":       "http.burst",
}

func setDefaults(v *viper.Viper) {
	uploads := validation.DefaultUploadOptions()
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "json")
	v.SetDefault("cache.size", 1024)
	v.SetDefault("validation.reject_risk", "")
	v.SetDefault("schemas.dir", "")
	v.SetDefault("schemas.openapi", "")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.rate_limit", 50.0)
	v.SetDefault("http.burst", 100)
	v.SetDefault("http.max_body_bytes", 2<<20)
	v.SetDefault("upload.max_size", uploads.MaxSize)
	v.SetDefault("upload.allowed_types", uploads.AllowedTypes)
	v.SetDefault("upload.allowed_extensions", uploads.AllowedExtensions)
}

// Load reads path when non-empty, applies environment overrides, then any
// changed flags in flags that appear in the flag mapping.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path = strings.TrimSpace(path); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errors.WithHint(
				errors.Wrapf(err, "config: read %s", path),
				"config files are YAML; pass --config with a readable path",
			)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			flag := flags.Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return Config{}, errors.Wrapf(err, "config: bind flag %s", name)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "config: decode")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.Cache.Size <= 0 {
		return errors.Newf("config: cache.size must be positive, got %d", c.Cache.Size)
	}
	if _, _, err := c.RejectRisk(); err != nil {
		return errors.Wrap(err, "config: validation.reject_risk")
	}
	if c.HTTP.RateLimit < 0 || c.HTTP.Burst < 0 {
		return errors.New("config: http.rate_limit and http.burst must not be negative")
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		return errors.Newf("config: http.max_body_bytes must be positive, got %d", c.HTTP.MaxBodyBytes)
	}
	if c.Upload.MaxSize <= 0 {
		return errors.Newf("config: upload.max_size must be positive, got %d", c.Upload.MaxSize)
	}
	return nil
}

// RejectRisk parses validation.reject_risk. ok is false when unset.
func (c Config) RejectRisk() (level risk.Level, ok bool, err error) {
	raw := strings.TrimSpace(c.Validation.RejectRisk)
	if raw == "" {
		return risk.Low, false, nil
	}
	level, err = risk.ParseLevel(raw)
	if err != nil {
		return risk.Low, false, err
	}
	return level, true, nil
}

// UploadOptions converts the upload section for the validator.
func (c Config) UploadOptions() validation.UploadOptions {
	return validation.UploadOptions{
		MaxSize:           c.Upload.MaxSize,
		AllowedTypes:      append([]string(nil), c.Upload.AllowedTypes...),
		AllowedExtensions: append([]string(nil), c.Upload.AllowedExtensions...),
	}
}
