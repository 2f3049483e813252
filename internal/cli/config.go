package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	cfgKeyDataDir        = "data_dir"
	cfgKeyBackupDir      = "backup_dir"
	cfgKeyBackupSchedule = "backup_schedule"
	cfgKeyLogLevel       = "log_level"

	defaultBackupSchedule = "@daily"
	defaultLogLevel       = "warn"
)

// defaultConfigYAML is the content written to config.yaml on first run.
const defaultConfigYAML = `# shelf configuration

# Data directory (optional; overridable by --data-dir or SHELF_DATA_DIR)
# data_dir:

# Backup directory (default: <data_dir>/backups)
# backup_dir:

# Cron schedule for "shelf backup --schedule"
backup_schedule: "@daily"

# debug, info, warn or error
log_level: warn
`

// settings are the values read from config.yaml.
type settings struct {
	DataDir        string `mapstructure:"data_dir"`
	BackupDir      string `mapstructure:"backup_dir"`
	BackupSchedule string `mapstructure:"backup_schedule"`
	LogLevel       string `mapstructure:"log_level"`
}

// loadSettings reads config.yaml from configDir using Viper, creating the
// directory and a default file on first run.
func loadSettings(configDir string) (settings, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return settings{}, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return settings{}, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyDataDir, "")
	v.SetDefault(cfgKeyBackupDir, "")
	v.SetDefault(cfgKeyBackupSchedule, defaultBackupSchedule)
	v.SetDefault(cfgKeyLogLevel, defaultLogLevel)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return settings{}, fmt.Errorf("read config: %w", err)
		}
	}

	var s settings
	if err := v.Unmarshal(&s); err != nil {
		return settings{}, fmt.Errorf("decode config: %w", err)
	}
	return s, nil
}

// ensureDefaultConfigFile creates a default config.yaml if the file does not
// exist in the config directory.
func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, configFileExt)
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("%w: log_level %q", errUsage, s)
	}
	return l, nil
}
