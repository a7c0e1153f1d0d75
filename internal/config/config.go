package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

type Config struct {
	Environment    string `yaml:"environment" validate:"oneof=production development"`
	LogLevel       string `yaml:"log_level" validate:"oneof=debug info warn error"`
	BlocksDir      string `yaml:"blocks_dir" validate:"required"`
	DestinationDir string `yaml:"destination_dir" validate:"required"`

	// Destination is the file name prefix of the outputs: <destination>_<task>.csv.
	Destination string `yaml:"destination" validate:"required"`

	Tasks   []string `yaml:"tasks" validate:"required,min=1,dive,oneof=all transactions transfers blocks"`
	Workers int      `yaml:"workers" validate:"gt=0,lte=256"`

	// Recursive also reads block files one directory level below BlocksDir.
	Recursive bool `yaml:"recursive"`

	KVStore KVStoreConfig `yaml:"kvstore"`
	NATS    NATSConfig    `yaml:"nats"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type KVStoreConfig struct {
	Enabled bool           `yaml:"enabled"`
	Badger  BadgerKVConfig `yaml:"badger"`
}

type BadgerKVConfig struct {
	Directory string `yaml:"directory"`
	Prefix    string `yaml:"prefix"`
}

type NATSConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url" validate:"required_if=Enabled true,omitempty,url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr" validate:"required_if=Enabled true"`
}

// Default returns a configuration with every optional field set.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	// apply defaults
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration, including values overridden after Load.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("struct validation failed: %w", err)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Destination == "" {
		c.Destination = "solana"
	}
	if len(c.Tasks) == 0 {
		c.Tasks = []string{"all"}
	}
	if c.Workers == 0 {
		c.Workers = 4
	}
	if c.KVStore.Badger.Directory == "" {
		c.KVStore.Badger.Directory = filepath.Join(".solana-etl", "badger")
	}
	if c.NATS.SubjectPrefix == "" {
		c.NATS.SubjectPrefix = "solana.etl"
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9090"
	}
}

// OutputPath is the file a task's rows are written to.
func (c *Config) OutputPath(name string) string {
	return filepath.Join(c.DestinationDir, c.Destination+"_"+name+".csv")
}
