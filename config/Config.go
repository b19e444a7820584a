// Package config loads the configuration of the brace command: the
// construction parameters of the dual-head network and logging
// settings.
package config

import (
	"fmt"
	"strings"

	"github.com/samuelfneumann/brace/initwfn"
	"github.com/samuelfneumann/brace/network"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables overriding the
// configuration, e.g. BRACE_OBS_DIM
const EnvPrefix = "BRACE"

// Config holds all brace configuration
type Config struct {
	// Network construction
	ObsDim int    `mapstructure:"obs_dim"`
	Hidden int    `mapstructure:"hidden"`
	Device string `mapstructure:"device"`

	// Weight initialization. Gain applies to the Glorot and He
	// initializers, Seed to FanInUniform, Value to Constant, Low and High
	// to Uniform, and Mean and StdDev to Gaussian.
	Init   string  `mapstructure:"init"`
	Gain   float64 `mapstructure:"gain"`
	Seed   uint64  `mapstructure:"seed"`
	Value  float64 `mapstructure:"value"`
	Low    float64 `mapstructure:"low"`
	High   float64 `mapstructure:"high"`
	Mean   float64 `mapstructure:"mean"`
	StdDev float64 `mapstructure:"std_dev"`

	// Logging
	LogLevel string `mapstructure:"log_level"`
}

// Default returns a config with the default construction parameters.
// ObsDim has no default and must be configured.
func Default() *Config {
	return &Config{
		Hidden:   network.DefaultHidden,
		Device:   string(network.CPU),
		Init:     string(initwfn.FanInUniform),
		Gain:     1.0,
		Low:      -1.0,
		High:     1.0,
		StdDev:   1.0,
		LogLevel: "info",
	}
}

// Load returns the configuration built from, in increasing order of
// precedence, the defaults, the YAML/JSON/TOML file at path (skipped if
// path is empty), BRACE_* environment variables, and any flags in flags
// that were set. Flags are looked up by their configuration key with
// underscores replaced by dashes, e.g. --obs-dim.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	def := Default()
	v.SetDefault("obs_dim", def.ObsDim)
	v.SetDefault("hidden", def.Hidden)
	v.SetDefault("device", def.Device)
	v.SetDefault("init", def.Init)
	v.SetDefault("gain", def.Gain)
	v.SetDefault("seed", def.Seed)
	v.SetDefault("value", def.Value)
	v.SetDefault("low", def.Low)
	v.SetDefault("high", def.High)
	v.SetDefault("mean", def.Mean)
	v.SetDefault("std_dev", def.StdDev)
	v.SetDefault("log_level", def.LogLevel)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("load: could not read %v: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for _, key := range v.AllKeys() {
			flag := flags.Lookup(strings.ReplaceAll(key, "_", "-"))
			if flag == nil || !flag.Changed {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("load: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.ObsDim <= 0 {
		return fmt.Errorf("obs_dim must be positive")
	}
	if c.Hidden <= 0 {
		return fmt.Errorf("hidden must be positive")
	}
	if _, err := network.ParseDevice(c.Device); err != nil {
		return fmt.Errorf("device: %v", err)
	}
	if _, err := c.InitWFn(); err != nil {
		return fmt.Errorf("init: %v", err)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug, info, warn, error")
	}
	return nil
}

// InitWFn returns the weight initializer named by Init, configured by
// the initializer fields of c
func (c *Config) InitWFn() (*initwfn.InitWFn, error) {
	switch initwfn.Type(c.Init) {
	case initwfn.FanInUniform, "":
		return initwfn.NewFanInUniform(c.Seed)
	case initwfn.GlorotU:
		return initwfn.NewGlorotU(c.Gain)
	case initwfn.GlorotN:
		return initwfn.NewGlorotN(c.Gain)
	case initwfn.HeU:
		return initwfn.NewHeU(c.Gain)
	case initwfn.HeN:
		return initwfn.NewHeN(c.Gain)
	case initwfn.Zeroes:
		return initwfn.NewZeroes()
	case initwfn.Ones:
		return initwfn.NewOnes()
	case initwfn.Constant:
		return initwfn.NewConstant(c.Value)
	case initwfn.Uniform:
		if c.Low >= c.High {
			return nil, fmt.Errorf("uniform initializer needs low < high, "+
				"have low(%v) high(%v)", c.Low, c.High)
		}
		return initwfn.NewUniform(c.Low, c.High)
	case initwfn.Gaussian:
		if c.StdDev <= 0 {
			return nil, fmt.Errorf("gaussian initializer needs a positive "+
				"std_dev, have(%v)", c.StdDev)
		}
		return initwfn.NewGaussian(c.Mean, c.StdDev)
	default:
		return nil, fmt.Errorf("unsupported initializer %q", c.Init)
	}
}

// Network returns the network.Config described by the configuration
func (c *Config) Network() (network.Config, error) {
	device, err := network.ParseDevice(c.Device)
	if err != nil {
		return network.Config{}, fmt.Errorf("network: %v", err)
	}

	init, err := c.InitWFn()
	if err != nil {
		return network.Config{}, fmt.Errorf("network: %v", err)
	}

	return network.Config{
		ObsDim: c.ObsDim,
		Hidden: c.Hidden,
		Device: device,
		Init:   init,
	}, nil
}
