// Package config loads Client connection defaults from a YAML file or
// environment variables, for callers that don't want to hand-build a
// shv.ClientOption.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/shvgo/shv"
)

// Config mirrors the fields shv.ClientOption exposes via its SetX
// methods, in a form viper can populate from YAML or SHV_-prefixed
// environment variables.
type Config struct {
	Server         string        `mapstructure:"server" yaml:"server"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" yaml:"connect_timeout"`

	User      string `mapstructure:"user" yaml:"user"`
	Password  string `mapstructure:"password" yaml:"password,omitempty"`
	LoginType string `mapstructure:"login_type" yaml:"login_type"` // "plain" or "sha1"

	DeviceId   string `mapstructure:"device_id" yaml:"device_id,omitempty"`
	MountPoint string `mapstructure:"mount_point" yaml:"mount_point,omitempty"`

	Protocol string `mapstructure:"protocol" yaml:"protocol"` // "chainpack" or "cpon"

	ReconnectRetries  int           `mapstructure:"reconnect_retries" yaml:"reconnect_retries"`
	ReconnectInterval time.Duration `mapstructure:"reconnect_interval" yaml:"reconnect_interval"`
}

// Dump renders c back to YAML with the password redacted, for logging
// the effective configuration a Client connected with.
func (c *Config) Dump() (string, error) {
	redacted := *c
	if redacted.Password != "" {
		redacted.Password = "********"
	}
	out, err := yaml.Marshal(&redacted)
	if err != nil {
		return "", fmt.Errorf("config: marshal: %w", err)
	}
	return string(out), nil
}

// defaults mirrors client_option.go's DefaultConnectTimeout etc. so a
// Config loaded from a sparse file still produces a usable ClientOption.
func defaults() Config {
	return Config{
		ConnectTimeout:    10 * time.Second,
		LoginType:         "sha1",
		Protocol:          "chainpack",
		ReconnectInterval: time.Minute,
	}
}

// Load reads configuration from path (YAML) if non-empty, overlaid with
// any SHV_-prefixed environment variables (e.g. SHV_SERVER,
// SHV_PASSWORD), falling back to package defaults for anything unset.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SHV")
	v.AutomaticEnv()

	d := defaults()
	v.SetDefault("connect_timeout", d.ConnectTimeout)
	v.SetDefault("login_type", d.LoginType)
	v.SetDefault("protocol", d.Protocol)
	v.SetDefault("reconnect_interval", d.ReconnectInterval)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if cfg.Server == "" {
		return nil, fmt.Errorf("config: server is required")
	}
	return &cfg, nil
}

// ClientOption builds a shv.ClientOption from c.
func (c *Config) ClientOption() (*shv.ClientOption, error) {
	opt, err := shv.NewClientOption(c.Server)
	if err != nil {
		return nil, err
	}
	opt.SetConnectTimeout(c.ConnectTimeout)
	opt.SetDevice(c.DeviceId, c.MountPoint)
	opt.SetAutoReconnectRule(shv.NewAutoReconnectRule(c.ReconnectRetries, c.ReconnectInterval))

	loginType := shv.LoginTypeSha1
	if c.LoginType == "plain" {
		loginType = shv.LoginTypePlain
	}
	opt.SetCredentials(c.User, c.Password, loginType)

	if c.Protocol == "cpon" {
		opt.SetProtocol(shv.ProtocolCpon)
	} else {
		opt.SetProtocol(shv.ProtocolChainPack)
	}
	return opt, nil
}
