// Package config loads and persists hospitalinsights settings.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	envPrefix = "HOSPINSIGHTS"
	dirName   = ".hospitalinsights"
)

// Global configuration structure.
type Global struct {
	ExportDir    string `mapstructure:"export_dir" yaml:"export_dir"`
	ExportFormat string `mapstructure:"export_format" yaml:"export_format" validate:"oneof=csv xlsx"`

	// Pipeline behaviour
	DedupePatients bool     `mapstructure:"dedupe_patients" yaml:"dedupe_patients"`
	AgeMin         float64  `mapstructure:"age_min" yaml:"age_min" validate:"gte=0"`
	AgeMax         float64  `mapstructure:"age_max" yaml:"age_max" validate:"gtfield=AgeMin"`
	DateLayouts    []string `mapstructure:"date_layouts" yaml:"date_layouts" validate:"dive,required"`
	TopDiagnoses   int      `mapstructure:"top_diagnoses" yaml:"top_diagnoses" validate:"gte=1,lte=100"`

	// Batch processing
	BatchConcurrency int `mapstructure:"batch_concurrency" yaml:"batch_concurrency" validate:"gte=1,lte=64"`

	// Logging
	LogLevel  string `mapstructure:"log_level" yaml:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format" validate:"oneof=console json"`
}

// Keys lists the settable configuration keys in display order.
var Keys = []string{
	"export_dir", "export_format", "dedupe_patients", "age_min", "age_max",
	"date_layouts", "top_diagnoses", "batch_concurrency", "log_level", "log_format",
}

var validate = validator.New()

// Validate checks field constraints.
func (c *Global) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Dir returns the per-user configuration directory.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, dirName), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.hospitalinsights/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	v.SetDefault("export_dir", "")
	v.SetDefault("export_format", "csv")
	v.SetDefault("dedupe_patients", true)
	v.SetDefault("age_min", 0.0)
	v.SetDefault("age_max", 150.0)
	v.SetDefault("date_layouts", []string{})
	v.SetDefault("top_diagnoses", 10)
	v.SetDefault("batch_concurrency", 4)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	c.ExportFormat = strings.ToLower(strings.TrimSpace(c.ExportFormat))
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Set parses val for key and assigns it, then re-validates the config.
func (c *Global) Set(key, val string) error {
	val = strings.TrimSpace(val)
	var err error
	switch key {
	case "export_dir":
		c.ExportDir = val
	case "export_format":
		c.ExportFormat = strings.ToLower(val)
	case "dedupe_patients":
		c.DedupePatients, err = cast.ToBoolE(val)
	case "age_min":
		c.AgeMin, err = cast.ToFloat64E(val)
	case "age_max":
		c.AgeMax, err = cast.ToFloat64E(val)
	case "date_layouts":
		c.DateLayouts = nil
		for _, l := range strings.Split(val, ",") {
			if l = strings.TrimSpace(l); l != "" {
				c.DateLayouts = append(c.DateLayouts, l)
			}
		}
	case "top_diagnoses":
		c.TopDiagnoses, err = cast.ToIntE(val)
	case "batch_concurrency":
		c.BatchConcurrency, err = cast.ToIntE(val)
	case "log_level":
		c.LogLevel = strings.ToLower(val)
	case "log_format":
		c.LogFormat = strings.ToLower(val)
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return c.Validate()
}

// Get renders the value of key for display.
func (c *Global) Get(key string) (string, error) {
	switch key {
	case "export_dir":
		return c.ExportDir, nil
	case "export_format":
		return c.ExportFormat, nil
	case "dedupe_patients":
		return cast.ToString(c.DedupePatients), nil
	case "age_min":
		return cast.ToString(c.AgeMin), nil
	case "age_max":
		return cast.ToString(c.AgeMax), nil
	case "date_layouts":
		return strings.Join(c.DateLayouts, ","), nil
	case "top_diagnoses":
		return cast.ToString(c.TopDiagnoses), nil
	case "batch_concurrency":
		return cast.ToString(c.BatchConcurrency), nil
	case "log_level":
		return c.LogLevel, nil
	case "log_format":
		return c.LogFormat, nil
	}
	return "", fmt.Errorf("unknown key: %s", key)
}
