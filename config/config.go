// Copyright © 2024 The runcoliru authors

// Package config loads runcoliru settings from a config file and RUNCOLIRU_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/luthersystems/runcoliru/coliru"
	"github.com/luthersystems/runcoliru/gist"
	"github.com/luthersystems/runcoliru/session"
	"github.com/luthersystems/runcoliru/shellcmd"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EnvPrefix prefixes environment overrides, e.g. RUNCOLIRU_COLIRU_URL.
const EnvPrefix = "RUNCOLIRU"

// Config holds all application configuration.
type Config struct {
	Coliru  ColiruConfig  `mapstructure:"coliru"`
	GitHub  GitHubConfig  `mapstructure:"github"`
	Compile CompileConfig `mapstructure:"compile"`
	Storage StorageConfig `mapstructure:"storage"`
	Log     LogConfig     `mapstructure:"log"`
	Tracing TracingConfig `mapstructure:"tracing"`
	Color   string        `mapstructure:"color"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-"`
}

type ColiruConfig struct {
	URL      string        `mapstructure:"url"`
	Timeout  time.Duration `mapstructure:"timeout"`
	MaxTries uint          `mapstructure:"max_tries"`
}

type GitHubConfig struct {
	APIURL   string `mapstructure:"api_url"`
	Token    string `mapstructure:"token"`
	MaxTries uint   `mapstructure:"max_tries"`
}

type CompileConfig struct {
	Args  string `mapstructure:"args"`
	ANSIC bool   `mapstructure:"ansi_c"`
}

type StorageConfig struct {
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type TracingConfig struct {
	Endpoint   string  `mapstructure:"endpoint"`
	SampleRate float64 `mapstructure:"sample_rate"`
}

// SetDefaults registers every key with its default value. Keys must be
// registered for environment overrides to reach Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("coliru.url", coliru.DefaultURL)
	v.SetDefault("coliru.timeout", coliru.DefaultTimeout)
	v.SetDefault("coliru.max_tries", 1)
	v.SetDefault("github.api_url", gist.DefaultAPIURL)
	v.SetDefault("github.token", "")
	v.SetDefault("github.max_tries", 3)
	v.SetDefault("compile.args", session.DefaultTemplate)
	v.SetDefault("compile.ansi_c", false)
	v.SetDefault("storage.path", DefaultStoragePath())
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "console")
	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.sample_rate", 1.0)
	v.SetDefault("color", "auto")
}

// Default returns the built-in configuration, ignoring files and the
// environment.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(err)
	}
	return &cfg
}

// DefaultStoragePath returns $XDG_CONFIG_HOME/runcoliru/state.db, using the
// platform's user config directory when XDG_CONFIG_HOME is unset.
func DefaultStoragePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".runcoliru", "state.db")
	}
	return filepath.Join(dir, "runcoliru", "state.db")
}

// Load reads configuration from path and the environment. With an empty
// path it looks for .runcoliru.{yaml,toml,json} in the home directory and
// a missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
		v.SetConfigName(".runcoliru")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()
	return &cfg, nil
}

// Validate checks configuration for issues and returns warnings.
func (c *Config) Validate() []string {
	var warnings []string

	if c.Coliru.Timeout <= 0 {
		warnings = append(warnings, fmt.Sprintf("coliru.timeout %s is not positive; requests will not time out", c.Coliru.Timeout))
	}
	if c.Coliru.MaxTries == 0 {
		warnings = append(warnings, "coliru.max_tries is 0; a single attempt is made")
	}
	if c.GitHub.MaxTries == 0 {
		warnings = append(warnings, "github.max_tries is 0; a single attempt is made")
	}
	if strings.TrimSpace(c.Compile.Args) == "" {
		warnings = append(warnings, "compile.args is empty; nothing will run")
	} else if !strings.Contains(c.Compile.Args, shellcmd.Placeholder) {
		warnings = append(warnings, fmt.Sprintf("compile.args does not contain %s; .cpp files are not passed to the compiler", shellcmd.Placeholder))
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		warnings = append(warnings, fmt.Sprintf("log.level %q is not a valid level; using warn", c.Log.Level))
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		warnings = append(warnings, fmt.Sprintf("tracing.sample_rate %.2f is outside [0, 1]", c.Tracing.SampleRate))
	}
	return warnings
}

// Logger builds the process logger. The format is "json" for production
// encoding or anything else for console encoding; both write to stderr.
func (c LogConfig) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		level = zapcore.WarnLevel
	}
	var zc zap.Config
	if c.Format == "json" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	return zc.Build()
}
