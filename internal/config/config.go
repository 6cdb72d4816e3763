// Package config loads the securestore CLI configuration from defaults, a
// YAML file, SECURESTORE_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultAppName   = "securestore"
	DefaultLogLevel  = "warn"
	DefaultLogFormat = "text"

	fileName  = "securestore"
	envPrefix = "securestore"
)

// Config is the effective CLI configuration
type Config struct {
	AppName   string `mapstructure:"app_name" yaml:"app_name"`
	DataDir   string `mapstructure:"data_dir" yaml:"data_dir"`
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
}

// flagKeys maps config keys to the flags that override them
var flagKeys = map[string]string{
	"app_name":   "app-name",
	"data_dir":   "data-dir",
	"log_level":  "log-level",
	"log_format": "log-format",
}

// Dir returns the user configuration directory searched for securestore.yaml
func Dir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("could not get user config directory: %w", err)
	}
	return filepath.Join(dir, DefaultAppName), nil
}

// DefaultDataDir returns the data directory used when none is configured
func DefaultDataDir(appName string) (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("could not get user config directory: %w", err)
	}
	return filepath.Join(dir, appName), nil
}

// Load builds the configuration. configFile, when non-empty, replaces the
// search of the standard locations and must exist. flags may be nil.
func Load(flags *pflag.FlagSet, configFile string) (Config, error) {
	var c Config
	v := viper.New()

	// 1. Defaults
	v.SetDefault("app_name", DefaultAppName)
	v.SetDefault("data_dir", "")
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("log_format", DefaultLogFormat)

	// 2. Config file
	v.SetConfigName(fileName)
	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		if dir, err := Dir(); err == nil {
			v.AddConfigPath(dir)
		}
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return c, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// 3. Environment
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// 4. Flags
	if flags != nil {
		for key, name := range flagKeys {
			if flag := flags.Lookup(name); flag != nil {
				if err := v.BindPFlag(key, flag); err != nil {
					return c, err
				}
			}
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("failed to parse config: %w", err)
	}

	if c.AppName == "" {
		return c, fmt.Errorf("app_name must not be empty")
	}
	if c.DataDir == "" {
		dir, err := DefaultDataDir(c.AppName)
		if err != nil {
			return c, err
		}
		c.DataDir = dir
	}

	return c, nil
}

// Write prints the configuration as YAML
func Write(w io.Writer, c Config) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	_, err = w.Write(data)
	return err
}
