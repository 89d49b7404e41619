// Package config assembles pedago's runtime configuration.
//
// Sources, lowest precedence first: built-in defaults, the config file
// (pedago.yaml in the working directory, or --config), a .env file, the
// PEDAGO_* environment, then explicitly set command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is the environment variable prefix; "submission.endpoint"
// reads PEDAGO_SUBMISSION_ENDPOINT.
const EnvPrefix = "PEDAGO"

// EnvFile is loaded from the working directory when present. Variables
// already set in the environment win.
const EnvFile = ".env"

// Config is the validated runtime configuration.
type Config struct {
	DB            string              `mapstructure:"db" json:"db" validate:"required"`
	Catalog       CatalogConfig       `mapstructure:"catalog" json:"catalog"`
	Submission    SubmissionConfig    `mapstructure:"submission" json:"submission"`
	Notifications NotificationsConfig `mapstructure:"notifications" json:"notifications"`
	Watch         WatchConfig         `mapstructure:"watch" json:"watch"`
}

// CatalogConfig locates chapter definitions.
type CatalogConfig struct {
	Source  string        `mapstructure:"source" json:"source" validate:"required"` // directory or http(s) base URL
	Timeout time.Duration `mapstructure:"timeout" json:"timeout" validate:"min=0"`  // 0 disables the client timeout
}

// SubmissionConfig drives work delivery. An empty endpoint disables it.
type SubmissionConfig struct {
	Endpoint       string        `mapstructure:"endpoint" json:"endpoint" validate:"omitempty,url"`
	MaxAttempts    int           `mapstructure:"max_attempts" json:"max_attempts" validate:"min=1"`
	Timeout        time.Duration `mapstructure:"timeout" json:"timeout" validate:"gt=0"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff" json:"initial_backoff" validate:"gt=0"`
}

// NotificationsConfig tunes generation and the log.
type NotificationsConfig struct {
	Lookahead time.Duration `mapstructure:"lookahead" json:"lookahead" validate:"gt=0"`
	Retention time.Duration `mapstructure:"retention" json:"retention" validate:"gt=0"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl" json:"cache_ttl" validate:"min=0"`
}

// WatchConfig sets the period of `pedago watch`.
type WatchConfig struct {
	Interval time.Duration `mapstructure:"interval" json:"interval" validate:"gt=0"`
}

var defaults = map[string]any{
	"db":                         "pedago.db",
	"catalog.source":             "./catalog",
	"catalog.timeout":            time.Duration(0),
	"submission.endpoint":        "",
	"submission.max_attempts":    3,
	"submission.timeout":         10 * time.Second,
	"submission.initial_backoff": time.Second,
	"notifications.lookahead":    3 * time.Hour,
	"notifications.retention":    7 * 24 * time.Hour,
	"notifications.cache_ttl":    time.Minute,
	"watch.interval":             15 * time.Minute,
}

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"db":       "db",
	"catalog":  "catalog.source",
	"endpoint": "submission.endpoint",
	"interval": "watch.interval",
}

// Load builds the configuration. flags may be nil; the "config" flag, when
// set, names a config file that must exist.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := readConfigFile(v, flags); err != nil {
		return nil, err
	}
	if err := loadEnvFile(EnvFile); err != nil {
		return nil, err
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	cfg := new(Config)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readConfigFile(v *viper.Viper, flags *pflag.FlagSet) error {
	explicit := ""
	if flags != nil {
		if f := flags.Lookup("config"); f != nil {
			explicit = f.Value.String()
		}
	}

	if explicit != "" {
		v.SetConfigFile(explicit)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", explicit, err)
		}
		return nil
	}

	v.SetConfigName("pedago")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func loadEnvFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Validate checks cfg against its struct tags and reports every problem
// at once, naming fields by their configuration key.
func Validate(cfg *Config) error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}

	msg := make([]string, 0, len(verrs))
	for _, field := range verrs {
		namespace := field.Namespace()
		key := namespace[strings.IndexByte(namespace, '.')+1:]
		switch field.Tag() {
		case "required":
			msg = append(msg, fmt.Sprintf("%s is required", key))
		case "url":
			msg = append(msg, fmt.Sprintf("%s must be a URL", key))
		case "min", "gt":
			msg = append(msg, fmt.Sprintf("%s must be %s %s", key, comparison(field.Tag()), field.Param()))
		default:
			msg = append(msg, fmt.Sprintf("%s failed %s", key, field.Tag()))
		}
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msg, "; "))
}

func comparison(tag string) string {
	if tag == "gt" {
		return "greater than"
	}
	return "at least"
}
