// Package config loads the binary's configuration from flags, environment
// and an optional YAML file, in that order of precedence.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the resolved runtime configuration.
type Config struct {
	Device     string `mapstructure:"device"`      // "wrist" or "handheld"
	ListenAddr string `mapstructure:"listen_addr"` // sync listen address, empty to disable
	PeerURL    string `mapstructure:"peer_url"`    // sync dial URL, empty to disable

	Week int `mapstructure:"week"`
	Day  int `mapstructure:"day"`

	Completion           string `mapstructure:"completion"` // "manual", "distance", "timeout"
	SprintTimeoutSeconds int    `mapstructure:"sprint_timeout_seconds"`

	SessionFile string  `mapstructure:"session_file"` // YAML library override, empty for built-in
	DataDir     string  `mapstructure:"data_dir"`
	LogFile     string  `mapstructure:"log_file"`
	SimSpeedMPH float64 `mapstructure:"sim_speed_mph"` // simulated tracker top speed
	HRM         bool    `mapstructure:"hrm"`           // scan for a BLE heart rate strap
}

// RegisterFlags declares the command line surface on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to YAML config file")
	fs.String("device", "wrist", "device role: wrist or handheld")
	fs.String("listen-addr", "", "address to listen on for peer sync (e.g. :8735)")
	fs.String("peer-url", "", "websocket URL of the peer device (e.g. ws://host:8735/sync)")
	fs.Int("week", 1, "program week")
	fs.Int("day", 1, "program day")
	fs.String("completion", "timeout", "sprint completion: manual, distance or timeout")
	fs.Int("sprint-timeout-seconds", 15, "fallback sprint duration")
	fs.String("session-file", "", "YAML session library (built-in program when empty)")
	fs.String("data-dir", "./data", "directory for the results database")
	fs.String("log-file", "./sprintcoach.log", "session log path")
	fs.Float64("sim-speed-mph", 18, "simulated tracker top speed")
	fs.Bool("hrm", false, "connect a BLE heart rate strap")
}

// Load resolves the configuration: defaults < config file < environment
// (SPRINTCOACH_*) < flags.
func Load(fs *pflag.FlagSet) (Config, error) {
	v := viper.New()

	v.SetDefault("device", "wrist")
	v.SetDefault("week", 1)
	v.SetDefault("day", 1)
	v.SetDefault("completion", "timeout")
	v.SetDefault("sprint_timeout_seconds", 15)
	v.SetDefault("data_dir", "./data")
	v.SetDefault("log_file", "./sprintcoach.log")
	v.SetDefault("sim_speed_mph", 18)

	v.SetEnvPrefix("SPRINTCOACH")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if path, _ := fs.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	// Flags use dashes, config keys use underscores. Only flags the user
	// actually set are promoted, so an untouched flag default never shadows
	// a file or environment value.
	fs.Visit(func(f *pflag.Flag) {
		key := strings.ReplaceAll(f.Name, "-", "_")
		switch f.Value.Type() {
		case "int":
			n, _ := fs.GetInt(f.Name)
			v.Set(key, n)
		case "bool":
			b, _ := fs.GetBool(f.Name)
			v.Set(key, b)
		case "float64":
			x, _ := fs.GetFloat64(f.Name)
			v.Set(key, x)
		default:
			s, _ := fs.GetString(f.Name)
			v.Set(key, s)
		}
	})

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the orchestrator cannot run with.
func (c Config) Validate() error {
	switch c.Device {
	case "wrist", "handheld":
	default:
		return fmt.Errorf("config: device must be wrist or handheld, got %q", c.Device)
	}
	switch c.Completion {
	case "manual", "distance", "timeout":
	default:
		return fmt.Errorf("config: completion must be manual, distance or timeout, got %q", c.Completion)
	}
	if c.Week < 1 || c.Day < 1 {
		return fmt.Errorf("config: week and day must be positive, got week %d day %d", c.Week, c.Day)
	}
	if c.SprintTimeoutSeconds <= 0 {
		return fmt.Errorf("config: sprint timeout must be positive, got %d", c.SprintTimeoutSeconds)
	}
	return nil
}
