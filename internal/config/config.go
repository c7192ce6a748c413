package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // kpi.timezone must resolve on hosts without a zoneinfo database

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server ServerConfig `mapstructure:"server" yaml:"server"`
	Store  StoreConfig  `mapstructure:"store" yaml:"store"`
	Data   DataConfig   `mapstructure:"data" yaml:"data"`
	KPI    KPIConfig    `mapstructure:"kpi" yaml:"kpi"`
	Log    LogConfig    `mapstructure:"log" yaml:"log"`
}

type ServerConfig struct {
	Addr           string   `mapstructure:"addr" yaml:"addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	InitSchema     bool     `mapstructure:"init_schema" yaml:"init_schema"`
}

// StoreConfig selects the relational store. Driver is one of mysql, sqlite or postgres.
type StoreConfig struct {
	Driver       string `mapstructure:"driver" yaml:"driver"`
	DSN          string `mapstructure:"dsn" yaml:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns" yaml:"max_open_conns"`
}

type DataConfig struct {
	UploadDir  string `mapstructure:"upload_dir" yaml:"upload_dir"`
	CleanedDir string `mapstructure:"cleaned_dir" yaml:"cleaned_dir"`
}

type KPIConfig struct {
	Timezone   string `mapstructure:"timezone" yaml:"timezone"`
	TopLimit   int    `mapstructure:"top_limit" yaml:"top_limit"`
	WindowDays int    `mapstructure:"window_days" yaml:"window_days"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Location resolves the designated KPI timezone.
func (k KPIConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(k.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid kpi.timezone %q: %w", k.Timezone, err)
	}
	return loc, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("server.init_schema", false)
	v.SetDefault("store.driver", "mysql")
	v.SetDefault("store.dsn", "root:@tcp(127.0.0.1:3306)/orderpulse")
	v.SetDefault("store.max_open_conns", 10)
	v.SetDefault("data.upload_dir", "data/upload")
	v.SetDefault("data.cleaned_dir", "data/cleaned")
	v.SetDefault("kpi.timezone", "Asia/Kolkata")
	v.SetDefault("kpi.top_limit", 10)
	v.SetDefault("kpi.window_days", 30)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// LoadConfig loads configuration from config.yaml and environment variables.
// An explicit cfgFile must exist; otherwise the usual search paths are tried
// and a missing file falls back to defaults.
func LoadConfig(cfgFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./deploy/")
		v.AddConfigPath("./")
		v.AddConfigPath("$HOME/.orderpulse/")
		v.AddConfigPath("/etc/orderpulse/")
	}

	// ORDERPULSE_STORE_DSN overrides store.dsn
	v.SetEnvPrefix("ORDERPULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "mysql", "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported store.driver %q (want mysql, sqlite or postgres)", c.Store.Driver)
	}
	if c.KPI.TopLimit < 1 {
		return fmt.Errorf("kpi.top_limit must be positive, got %d", c.KPI.TopLimit)
	}
	if c.KPI.WindowDays < 1 {
		return fmt.Errorf("kpi.window_days must be positive, got %d", c.KPI.WindowDays)
	}
	if _, err := c.KPI.Location(); err != nil {
		return err
	}
	return nil
}

// Marshal renders the effective configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	b, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal yaml: %w", err)
	}
	return b, nil
}
