// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

// Package config loads the nscrawl configuration from an optional
// configuration file, NSCRAWL_* environment variables, and command line
// flags, in increasing order of precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/siemens/nscrawler/internal/logsink"
	"github.com/siemens/nscrawler/nsenter"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables, such as
// NSCRAWL_TIMEOUT and NSCRAWL_LOG_LEVEL.
const EnvPrefix = "NSCRAWL"

// Config is the nscrawl configuration.
type Config struct {
	Timeout     time.Duration  `mapstructure:"timeout"`      // per feature run.
	JoinTimeout time.Duration  `mapstructure:"join-timeout"` // for workers to terminate.
	Workers     int            `mapstructure:"workers"`      // parallel feature runs; GOMAXPROCS if zero.
	Tolerated   []string       `mapstructure:"tolerated"`    // namespace kinds whose attach failures are ignored.
	DockerHost  string         `mapstructure:"docker-host"`
	Rootfs      bool           `mapstructure:"rootfs"` // collect from rootfs where possible.
	Features    []string       `mapstructure:"features"`
	Format      string         `mapstructure:"format"`       // "json" or "yaml".
	MetricsFile string         `mapstructure:"metrics-file"` // Prometheus text file to write after crawling.
	Log         logsink.Config `mapstructure:"log"`
}

// flagKeys maps command line flag names to configuration keys where these
// differ.
var flagKeys = map[string]string{
	"feature":         "features",
	"log-level":       "log.level",
	"log-file":        "log.file",
	"log-max-size":    "log.max-size",
	"log-max-backups": "log.max-backups",
}

// SetDefaults sets the configuration defaults in v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("timeout", 10*time.Second)
	v.SetDefault("join-timeout", time.Second)
	v.SetDefault("workers", 0)
	v.SetDefault("tolerated", []string{string(nsenter.User)})
	v.SetDefault("docker-host", "")
	v.SetDefault("rootfs", true)
	v.SetDefault("features", []string{})
	v.SetDefault("format", "json")
	v.SetDefault("metrics-file", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max-size", 10)
	v.SetDefault("log.max-backups", 3)
}

// BindFlags binds those flags of the flag set to v that correspond with
// configuration keys.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	var err error
	flags.VisitAll(func(flag *pflag.Flag) {
		key, ok := flagKeys[flag.Name]
		if !ok {
			key = flag.Name
		}
		if !isKnownKey(v, key) {
			return
		}
		if bindErr := v.BindPFlag(key, flag); bindErr != nil && err == nil {
			err = bindErr
		}
	})
	return err
}

func isKnownKey(v *viper.Viper, key string) bool {
	for _, known := range v.AllKeys() {
		if known == key {
			return true
		}
	}
	return false
}

// Load the configuration, reading the configuration file first if file
// isn't empty. Defaults must have been set beforehand using SetDefaults.
func Load(v *viper.Viper, file string) (Config, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("cannot read configuration file %q, reason: %w", file, err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("invalid configuration, reason: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Format {
	case "json", "yaml":
	default:
		return fmt.Errorf("invalid output format %q, must be json or yaml", c.Format)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("invalid timeout %s", c.Timeout)
	}
	if _, err := c.ToleratedKinds(); err != nil {
		return err
	}
	return nil
}

// ToleratedKinds returns the tolerated namespace kinds.
func (c Config) ToleratedKinds() ([]nsenter.Kind, error) {
	return nsenter.ParseKinds(c.Tolerated)
}
