package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// ErrLoadConfig indicates a failure to read or parse the YAML configuration.
var ErrLoadConfig = errors.New("config load failed")

// ErrValidateConfig indicates that the loaded configuration is invalid.
var ErrValidateConfig = errors.New("configuration validation failed")

// Config represents the top-level YAML configuration file.
type Config struct {
	Backup    BackupConfig    `mapstructure:"backup"    yaml:"backup"`
	Retention RetentionConfig `mapstructure:"retention" yaml:"retention"`
	Schedule  string          `mapstructure:"schedule"  yaml:"schedule,omitempty"`
}

// BackupConfig locates the live database file and the backup directory.
type BackupConfig struct {
	Directory string `mapstructure:"directory" yaml:"directory"`
	Database  string `mapstructure:"database"  yaml:"database"`
}

// RetentionConfig specifies how many scheduled backups to keep.
// KeepLast <= 0 keeps everything.
type RetentionConfig struct {
	KeepLast int `mapstructure:"keep_last" yaml:"keep_last,omitempty"`
}

// Load reads the configuration from the given YAML file using Viper and
// unmarshals into the Config struct. An empty path uses defaults plus
// environment overrides only (BACKUP_DIRECTORY, BACKUP_DATABASE, SCHEDULE,
// RETENTION_KEEP_LAST).
func (c *Config) Load(path string) error {
	v := viper.New()
	v.SetDefault("backup.directory", "backups")
	v.SetDefault("backup.database", filepath.Join("data", "ynk_users.db"))
	v.SetDefault("retention.keep_last", 0)
	v.SetDefault("schedule", "0 2 * * *")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("%w: read config %s: %v", ErrLoadConfig, path, err)
		}
	}

	if err := v.UnmarshalExact(c); err != nil {
		return fmt.Errorf("%w: unmarshal config: %v", ErrLoadConfig, err)
	}

	return c.validate()
}

func (c *Config) validate() error {
	if c.Backup.Directory == "" {
		return fmt.Errorf("%w: backup.directory is empty", ErrValidateConfig)
	}
	if c.Backup.Database == "" {
		return fmt.Errorf("%w: backup.database is empty", ErrValidateConfig)
	}
	return nil
}
