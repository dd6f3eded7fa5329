package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const defaultConfigName = "rocketbridge.yaml"

// Load builds configuration from defaults, an optional yaml file, and
// environment variables. Precedence: defaults < file < env.
// If path is empty, ./rocketbridge.yaml is used when present.
func Load(path string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	// Register every key so env-only overrides survive Unmarshal.
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("session.host", cfg.Session.Host)
	v.SetDefault("session.username", cfg.Session.Username)
	v.SetDefault("session.password", cfg.Session.Password)
	v.SetDefault("session.secure", cfg.Session.Secure)
	v.SetDefault("session.channels", cfg.Session.Channels)
	v.SetDefault("redis.url", cfg.Redis.URL)
	v.SetDefault("redis.password", cfg.Redis.Password)
	v.SetDefault("redis.db", cfg.Redis.DB)

	v.SetEnvPrefix("ROCKETBRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := path != ""
	if path == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return cfg, err
		}
		path = filepath.Join(cwd, defaultConfigName)
	}
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		missing := errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
		if !missing {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if explicit {
			return cfg, fmt.Errorf("read config: %w", err)
		}
	}

	normalizeChannels(v)

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

// normalizeChannels accepts "session.channels" as either a single string
// or a list of strings, matching the connect options contract.
func normalizeChannels(v *viper.Viper) {
	switch raw := v.Get("session.channels").(type) {
	case string:
		v.Set("session.channels", []string{raw})
	case []any:
		names := make([]string, 0, len(raw))
		for _, entry := range raw {
			if s, ok := entry.(string); ok {
				names = append(names, s)
			}
		}
		v.Set("session.channels", names)
	}
}
