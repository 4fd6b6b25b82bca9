// Package config provides configuration management for the graph import service.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Import    ImportConfig    `mapstructure:"import"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Log       LogConfig       `mapstructure:"log"`
}

// ImportConfig holds graph construction configuration.
type ImportConfig struct {
	Concurrency               int    `mapstructure:"concurrency"`
	NodeBatchSize             int    `mapstructure:"node_batch_size"`
	RelationshipBatchSize     int    `mapstructure:"relationship_batch_size"`
	DeduplicateIDs            bool   `mapstructure:"deduplicate_ids"`
	IDMapType                 string `mapstructure:"id_map_type"` // dense, paged or highlimit
	SkipDanglingRelationships bool   `mapstructure:"skip_dangling_relationships"`
	UsePooledBuilderProvider  bool   `mapstructure:"use_pooled_builder_provider"`
	PoolAcquireTimeoutSec     int    `mapstructure:"pool_acquire_timeout_sec"`
	DataDir                   string `mapstructure:"data_dir"`
	IncludeMetaData           bool   `mapstructure:"include_metadata"`
}

// DatabaseConfig holds the import-run ledger connection configuration.
type DatabaseConfig struct {
	Type     string `mapstructure:"type"` // sqlite, postgres or mysql
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	MaxConns int    `mapstructure:"max_conns"`
	Path     string `mapstructure:"path"` // sqlite file path
}

// StorageConfig holds input bundle storage configuration.
type StorageConfig struct {
	Type      string `mapstructure:"type"` // cos or local
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	SecretID  string `mapstructure:"secret_id"`
	SecretKey string `mapstructure:"secret_key"`
	Domain    string `mapstructure:"domain"`
	Scheme    string `mapstructure:"scheme"`
	LocalPath string `mapstructure:"local_path"`
}

// SchedulerConfig holds importd scheduler configuration.
type SchedulerConfig struct {
	PollInterval  int `mapstructure:"poll_interval"` // in seconds
	WorkerCount   int `mapstructure:"worker_count"`
	TaskBatchSize int `mapstructure:"task_batch_size"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"` // json or text
}

// Load reads configuration from the specified file path.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/graph-import")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			fmt.Println("Config file not found, using defaults")
		} else if os.IsNotExist(err) {
			fmt.Printf("Config file %s not found, using defaults\n", configPath)
		} else {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("GRAPH_IMPORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadFromReader loads configuration from raw content (useful for testing).
func LoadFromReader(configType string, content []byte) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType(configType)
	if err := v.ReadConfig(bytes.NewReader(content)); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Import defaults
	v.SetDefault("import.concurrency", 4)
	v.SetDefault("import.node_batch_size", 10000)
	v.SetDefault("import.relationship_batch_size", 8192)
	v.SetDefault("import.deduplicate_ids", false)
	v.SetDefault("import.id_map_type", "dense")
	v.SetDefault("import.skip_dangling_relationships", true)
	v.SetDefault("import.use_pooled_builder_provider", false)
	v.SetDefault("import.pool_acquire_timeout_sec", 3600)
	v.SetDefault("import.data_dir", "./data")
	v.SetDefault("import.include_metadata", false)

	// Database defaults
	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.path", "./graph-import.db")

	// Storage defaults
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_path", "./storage")

	// Scheduler defaults
	v.SetDefault("scheduler.poll_interval", 2)
	v.SetDefault("scheduler.worker_count", 2)
	v.SetDefault("scheduler.task_batch_size", 10)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.output_path", "./logs")
	v.SetDefault("log.format", "text")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Import.Concurrency < 1 {
		return fmt.Errorf("import concurrency must be at least 1")
	}
	if c.Import.NodeBatchSize < 1 || c.Import.RelationshipBatchSize < 1 {
		return fmt.Errorf("batch sizes must be positive")
	}
	switch c.Import.IDMapType {
	case "dense", "paged", "highlimit":
	default:
		return fmt.Errorf("unsupported id map type: %s", c.Import.IDMapType)
	}
	if c.Import.DeduplicateIDs && c.Import.IDMapType == "highlimit" {
		return fmt.Errorf("id deduplication is not supported with the highlimit id map")
	}

	switch c.Database.Type {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("sqlite database path is required")
		}
	case "postgres", "mysql":
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
	default:
		return fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}

	if c.Scheduler.WorkerCount < 1 {
		return fmt.Errorf("worker count must be at least 1")
	}

	return nil
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *Config) EnsureDataDir() error {
	if c.Import.DataDir == "" {
		return nil
	}
	return os.MkdirAll(c.Import.DataDir, 0755)
}

// RunDir returns the working directory for a single import run.
func (c *Config) RunDir(runID string) string {
	return filepath.Join(c.Import.DataDir, runID)
}
