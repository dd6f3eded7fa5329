// Package config handles configuration loading and schema definition.
package config

import "errors"

// Config is the top-level rocketbridge configuration.
type Config struct {
	LogLevel string      `mapstructure:"log_level" yaml:"log_level"`
	Session  Options     `mapstructure:"session" yaml:"session"`
	Redis    RedisConfig `mapstructure:"redis" yaml:"redis"`
}

// Options configures one Rocket.Chat session.
//
// AutoJoin and Filter are pointers so that "unset" is distinguishable
// from an explicit false; both default to true.
type Options struct {
	Host     string   `mapstructure:"host" yaml:"host"`
	Username string   `mapstructure:"username" yaml:"username"`
	Password string   `mapstructure:"password" yaml:"password"`
	Secure   bool     `mapstructure:"secure" yaml:"secure"`
	Channels []string `mapstructure:"channels" yaml:"channels"`
	AutoJoin *bool    `mapstructure:"auto_join" yaml:"auto_join,omitempty"`
	Filter   *bool    `mapstructure:"filter" yaml:"filter,omitempty"`
}

// RedisConfig holds the optional Redis relay settings. An empty URL
// disables the relay.
type RedisConfig struct {
	URL      string `mapstructure:"url" yaml:"url"`
	Password string `mapstructure:"password" yaml:"password,omitempty"`
	DB       int    `mapstructure:"db" yaml:"db,omitempty"`
}

// Default returns the configuration defaults: info logging, the
// "general" channel, auto-join and filter enabled.
func Default() Config {
	return Config{
		LogLevel: "info",
		Session: Options{
			Channels: []string{"general"},
		},
	}
}

// AutoJoinEnabled reports the auto-join policy, defaulting to true.
func (o Options) AutoJoinEnabled() bool {
	return o.AutoJoin == nil || *o.AutoJoin
}

// FilterEnabled reports the filter policy, defaulting to true. The flag
// is reserved: it is carried on the session state but nothing consumes
// it yet.
func (o Options) FilterEnabled() bool {
	return o.Filter == nil || *o.Filter
}

// DisplayName returns the session display name: the username when set,
// else the host.
func (o Options) DisplayName() string {
	if o.Username != "" {
		return o.Username
	}
	return o.Host
}

// Validate checks the required fields.
func (o Options) Validate() error {
	if o.Host == "" {
		return errors.New("session host is required")
	}
	return nil
}
