// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Operator() OperatorConfig
	Monitor() MonitorConfig
	Store() StoreConfig

	// Operator setters, used by CLI flags.
	SetOperatorCode(string)
	SetOperatorName(string)
	SetOperatorSilenceTolerance(d time.Duration)

	// Monitor setters.
	SetMonitorTickInterval(d time.Duration)
}

// Config holds the entire application configuration. It uses private
// fields to enforce access through the Interface's getter methods;
// decoding goes through an exported shadow struct because mapstructure
// cannot populate unexported fields.
type Config struct {
	logger   LoggerConfig
	operator OperatorConfig
	monitor  MonitorConfig
	store    StoreConfig
}

// rawConfig mirrors Config with exported fields for viper decoding.
type rawConfig struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Operator OperatorConfig `mapstructure:"operator" yaml:"operator"`
	Monitor  MonitorConfig  `mapstructure:"monitor" yaml:"monitor"`
	Store    StoreConfig    `mapstructure:"store" yaml:"store"`
}

// -- Interface Method Implementations (Getters) --

func (c *Config) Logger() LoggerConfig     { return c.logger }
func (c *Config) Operator() OperatorConfig { return c.operator }
func (c *Config) Monitor() MonitorConfig   { return c.monitor }
func (c *Config) Store() StoreConfig       { return c.store }

// -- Interface Method Implementations (Setters) --

func (c *Config) SetOperatorCode(code string) { c.operator.Code = code }
func (c *Config) SetOperatorName(name string) { c.operator.Name = name }
func (c *Config) SetOperatorSilenceTolerance(d time.Duration) {
	c.operator.SilenceTolerance = d
}
func (c *Config) SetMonitorTickInterval(d time.Duration) { c.monitor.TickInterval = d }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug string `mapstructure:"debug" yaml:"debug"`
	Info  string `mapstructure:"info" yaml:"info"`
	Warn  string `mapstructure:"warn" yaml:"warn"`
	Error string `mapstructure:"error" yaml:"error"`
	Fatal string `mapstructure:"fatal" yaml:"fatal"`
}

// OperatorConfig describes the operator the companion serves.
type OperatorConfig struct {
	Code             string        `mapstructure:"code" yaml:"code"`
	Name             string        `mapstructure:"name" yaml:"name"`
	SilenceTolerance time.Duration `mapstructure:"silence_tolerance" yaml:"silence_tolerance"`
	CheckinInterval  time.Duration `mapstructure:"checkin_interval" yaml:"checkin_interval"`
}

// MonitorConfig tunes the background monitor loop.
type MonitorConfig struct {
	TickInterval            time.Duration `mapstructure:"tick_interval" yaml:"tick_interval"`
	FaultBackoff            time.Duration `mapstructure:"fault_backoff" yaml:"fault_backoff"`
	RemarkProbability       float64       `mapstructure:"remark_probability" yaml:"remark_probability"`
	MemoryRemarkProbability float64       `mapstructure:"memory_remark_probability" yaml:"memory_remark_probability"`
}

// ArchiveConfig configures the optional Postgres mission archive.
type ArchiveConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	URL     string `mapstructure:"url" yaml:"url"`
}

// StoreConfig configures the persistence layer.
type StoreConfig struct {
	DataDir string        `mapstructure:"data_dir" yaml:"data_dir"`
	Archive ArchiveConfig `mapstructure:"archive" yaml:"archive"`
}

// NewDefaultConfig creates a new configuration struct populated with
// default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var raw rawConfig
	if err := v.Unmarshal(&raw); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return raw.config()
}

func (r rawConfig) config() *Config {
	return &Config{
		logger:   r.Logger,
		operator: r.Operator,
		monitor:  r.Monitor,
		store:    r.Store,
	}
}

// SetDefaults initializes default values for various configuration
// parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "vigil")
	v.SetDefault("logger.log_file", "vigil.log")
	v.SetDefault("logger.max_size", 20)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Operator --
	v.SetDefault("operator.code", "operator-1")
	v.SetDefault("operator.name", "Operator")
	v.SetDefault("operator.silence_tolerance", "5m")
	v.SetDefault("operator.checkin_interval", "10m")

	// -- Monitor --
	v.SetDefault("monitor.tick_interval", "1s")
	v.SetDefault("monitor.fault_backoff", "2s")
	v.SetDefault("monitor.remark_probability", 0.02)
	v.SetDefault("monitor.memory_remark_probability", 0.30)

	// -- Store --
	v.SetDefault("store.data_dir", "")
	v.SetDefault("store.archive.enabled", false)
	v.SetDefault("store.archive.url", "")
}

// NewConfigFromViper creates a new configuration instance from a viper
// object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	// Bind environment variables for sensitive data.
	v.BindEnv("store.archive.url", "VIGIL_ARCHIVE_URL")

	var raw rawConfig
	if err := v.Unmarshal(&raw); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	cfg := raw.config()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.operator.Code == "" {
		return fmt.Errorf("operator.code is a required configuration field")
	}
	if c.operator.SilenceTolerance <= 0 {
		return fmt.Errorf("operator.silence_tolerance must be a positive duration")
	}
	if c.monitor.TickInterval <= 0 {
		return fmt.Errorf("monitor.tick_interval must be a positive duration")
	}
	if c.monitor.RemarkProbability < 0 || c.monitor.RemarkProbability > 1 {
		return fmt.Errorf("monitor.remark_probability must be between 0.0 and 1.0")
	}
	if c.monitor.MemoryRemarkProbability < 0 || c.monitor.MemoryRemarkProbability > 1 {
		return fmt.Errorf("monitor.memory_remark_probability must be between 0.0 and 1.0")
	}
	if err := c.store.Archive.Validate(); err != nil {
		return fmt.Errorf("store.archive configuration invalid: %w", err)
	}
	return nil
}

// Validate checks the archive configuration.
func (a *ArchiveConfig) Validate() error {
	if !a.Enabled {
		return nil
	}
	if a.URL == "" {
		return fmt.Errorf("url is required when the archive is enabled. Ensure VIGIL_ARCHIVE_URL is set")
	}
	return nil
}
