// Package config loads the fxasynq settings from a file and the environment.
// It follows the usual viper conventions: a "fxasynq.yaml" file searched in a
// few well-known locations, overridable through FXASYNQ_* environment
// variables, with live reload of the file via fsnotify.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-viper/mapstructure/v2"
	"github.com/hibiken/asynq"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Settings holds everything needed to build the asynq client and server.
type Settings struct {
	// BrokerAddr is the redis URI of the message broker,
	// e.g. "redis://localhost:6379/0".
	BrokerAddr string `mapstructure:"broker_addr" yaml:"broker_addr"`
	// ResultAddr is the redis URI of the result store. Defaults to BrokerAddr.
	ResultAddr string `mapstructure:"result_addr" yaml:"result_addr"`
	// TrackStarted controls whether a "started" event and log line are emitted
	// when a worker begins executing a task.
	TrackStarted bool `mapstructure:"track_started" yaml:"track_started"`

	Environment string `mapstructure:"environment" yaml:"environment"`

	// Worker tuning, forwarded verbatim to the asynq server config.
	Concurrency     int            `mapstructure:"concurrency" yaml:"concurrency"`
	Queues          map[string]int `mapstructure:"queues" yaml:"queues,omitempty"`
	StrictPriority  bool           `mapstructure:"strict_priority" yaml:"strict_priority"`
	ShutdownTimeout time.Duration  `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// configChangeHooks stores functions to be called when the config changes.
var configChangeHooks []func(*Settings)
var currentViper *viper.Viper

// AddConfigChangeHook registers a function to be called when the configuration changes.
func (s *Settings) AddConfigChangeHook(hook func(*Settings)) {
	configChangeHooks = append(configChangeHooks, hook)
}

// Load reads the settings from file and environment.
func Load() (*Settings, error) {
	v := viper.New()

	v.SetConfigName("fxasynq")
	v.SetConfigType("yaml")

	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/fxasynq")

	v.AutomaticEnv()
	v.SetEnvPrefix("FXASYNQ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; proceed with defaults and environment variables.
			fmt.Fprintln(os.Stderr, "Config file not found, using defaults and environment variables.")
		} else {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var s Settings
	if err := unmarshal(v, &s); err != nil {
		return nil, err
	}
	if s.ResultAddr == "" {
		s.ResultAddr = s.BrokerAddr
	}

	// Keep the viper instance around so change hooks keep working.
	currentViper = v

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		if err := unmarshal(v, &s); err != nil {
			fmt.Fprintln(os.Stderr, fmt.Errorf("failed to re-unmarshal config %q: %w", e.Name, err))
			return
		}
		for _, hook := range configChangeHooks {
			hook(&s)
		}
	})

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &s, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("broker_addr", "redis://127.0.0.1:6379/0")
	v.SetDefault("track_started", true)
	v.SetDefault("environment", "development")
	v.SetDefault("concurrency", 10)
	v.SetDefault("strict_priority", false)
	v.SetDefault("shutdown_timeout", "8s")
}

func unmarshal(v *viper.Viper, s *Settings) error {
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(s, hook); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return nil
}

// Validate checks the settings for required fields and valid values.
func (s *Settings) Validate() error {
	switch s.Environment {
	case "development", "staging", "production":
		// valid
	default:
		return fmt.Errorf("invalid environment: %q", s.Environment)
	}
	if s.BrokerAddr == "" {
		return fmt.Errorf("broker_addr must not be empty")
	}
	if _, err := asynq.ParseRedisURI(s.BrokerAddr); err != nil {
		return fmt.Errorf("invalid broker_addr %q: %w", s.BrokerAddr, err)
	}
	if s.ResultAddr != "" {
		if _, err := asynq.ParseRedisURI(s.ResultAddr); err != nil {
			return fmt.Errorf("invalid result_addr %q: %w", s.ResultAddr, err)
		}
	}
	if s.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got %d", s.Concurrency)
	}
	for q, prio := range s.Queues {
		if prio <= 0 {
			return fmt.Errorf("queue %q must have a positive priority, got %d", q, prio)
		}
	}
	return nil
}

// BrokerConnOpt returns the asynq connection options for the broker.
func (s *Settings) BrokerConnOpt() (asynq.RedisConnOpt, error) {
	opt, err := asynq.ParseRedisURI(s.BrokerAddr)
	if err != nil {
		return nil, fmt.Errorf("invalid broker_addr %q: %w", s.BrokerAddr, err)
	}
	return opt, nil
}

// ResultConnOpt returns the asynq connection options for the result store.
// Falls back to the broker when no separate result store is configured.
func (s *Settings) ResultConnOpt() (asynq.RedisConnOpt, error) {
	addr := s.ResultAddr
	if addr == "" {
		addr = s.BrokerAddr
	}
	opt, err := asynq.ParseRedisURI(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid result_addr %q: %w", addr, err)
	}
	return opt, nil
}

// GenerateMinimal creates settings with sensible development defaults.
func GenerateMinimal() *Settings {
	return &Settings{
		BrokerAddr:      "redis://127.0.0.1:6379/0",
		ResultAddr:      "redis://127.0.0.1:6379/1",
		TrackStarted:    true,
		Environment:     "development",
		Concurrency:     10,
		Queues:          map[string]int{"critical": 6, "default": 3, "low": 1},
		ShutdownTimeout: 8 * time.Second,
	}
}

// SaveGenerated saves generated settings to a YAML file.
func SaveGenerated(s *Settings, filename string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
