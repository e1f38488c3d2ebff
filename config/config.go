// Package config provides configuration loading for the entitystore process.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/AndreasM009/entitystore-go/revision"
)

// Store types
const (
	StoreInMemory     = "inmemory"
	StoreCosmosDB     = "cosmosdb"
	StoreTableStorage = "tablestorage"
)

// Notifier types
const (
	NotifierStdout = "stdout"
	NotifierKafka  = "kafka"
)

// Config holds the process configuration (read-only after load).
type Config struct {
	Store    StoreConfig    `yaml:"store"`
	Notifier NotifierConfig `yaml:"notifier"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Log      LogConfig      `yaml:"log"`
}

// StoreConfig selects the entity store. Properties are passed to the store's
// Init as metadata.
type StoreConfig struct {
	Type       string            `yaml:"type"`
	Properties map[string]string `yaml:"properties,omitempty"`
}

// NotifierConfig selects where notifications are emitted.
type NotifierConfig struct {
	Type  string      `yaml:"type"`
	Kafka KafkaConfig `yaml:"kafka,omitempty"`
}

// KafkaConfig holds configuration for the kafka notifier.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers,omitempty"`
	Topic   string   `yaml:"topic,omitempty"`
}

// PipelineConfig holds configuration of the update pipeline.
type PipelineConfig struct {
	Workers int `yaml:"workers"`
	// PreferredMethod is the quoting method tried first for entity types not seen yet.
	PreferredMethod revision.Method `yaml:"preferredMethod"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Type:       StoreInMemory,
			Properties: map[string]string{},
		},
		Notifier: NotifierConfig{
			Type: NotifierStdout,
		},
		Pipeline: PipelineConfig{
			Workers:         4,
			PreferredMethod: revision.WithoutQuotations,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from path. An empty path yields the defaults with
// environment overrides applied.
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	// Apply environment variable overrides
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("ENTITYSTORE_STORE_TYPE"); v != "" {
		c.Store.Type = v
	}
	if v := os.Getenv("ENTITYSTORE_KAFKA_BROKERS"); v != "" {
		c.Notifier.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("ENTITYSTORE_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// Validate checks the configuration for unknown types and missing settings.
func (c *Config) Validate() error {
	switch c.Store.Type {
	case StoreInMemory, StoreCosmosDB, StoreTableStorage:
	default:
		return fmt.Errorf("unknown store type %q", c.Store.Type)
	}

	switch c.Notifier.Type {
	case NotifierStdout:
	case NotifierKafka:
		if len(c.Notifier.Kafka.Brokers) == 0 || c.Notifier.Kafka.Topic == "" {
			return fmt.Errorf("kafka notifier requires brokers and topic")
		}
	default:
		return fmt.Errorf("unknown notifier type %q", c.Notifier.Type)
	}

	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("pipeline workers must be at least 1, got %d", c.Pipeline.Workers)
	}
	return nil
}
