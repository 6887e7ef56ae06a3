package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the root configuration structure for the application
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Log         LogConfig         `mapstructure:"log"`
	Persistence PersistenceConfig `mapstructure:"persistence"`
	Shutdown    ShutdownConfig    `mapstructure:"shutdown"`
}

// ServerConfig holds the network settings
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
}

// LogConfig defines logging verbosity and output style
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// PersistenceConfig defines the snapshot settings
type PersistenceConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Filename string        `mapstructure:"filename"`
	Interval time.Duration `mapstructure:"interval"` // 0 disables periodic saving
}

// ShutdownConfig bounds how long connections may take to drain
type ShutdownConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// envAliases maps config keys to the plain environment names accepted besides the prefixed ones
var envAliases = map[string]string{
	"server.port":          "PORT",
	"persistence.enabled":  "PERSISTENCE_ENABLED",
	"persistence.filename": "DUMP_FILE",
}

// Load reads the configuration from a file and overrides it with environment variables.
// A .env file in the working directory is applied to the environment first, if present
func Load(path string) (*Config, error) {
	return LoadWith(viper.GetViper(), path)
}

// LoadWith is Load on a caller-provided viper instance, so flags can be bound beforehand
func LoadWith(v *viper.Viper, path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(path)
	v.AddConfigPath(".")

	v.SetEnvPrefix("REDISMOCK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, alias := range envAliases {
		prefixed := "REDISMOCK_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, alias); err != nil {
			return nil, err
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults populates viper with fallback values if they are not provided via file or ENV
func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "6380")

	// Logger
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Persistence
	v.SetDefault("persistence.enabled", true)
	v.SetDefault("persistence.filename", "./redis_dump.json")
	v.SetDefault("persistence.interval", "0s")

	// Shutdown
	v.SetDefault("shutdown.timeout", "5s")
}
