// Package conf loads and provides application settings.
package conf

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// Settings holds the full application configuration.
type Settings struct {
	// Debug enables verbose logging and permits destructive database
	// recovery when no migration path exists.
	Debug bool `mapstructure:"debug"`

	Storage struct {
		SQLite struct {
			// Path to the database file, or ":memory:" for ephemeral use.
			Path string `mapstructure:"path"`
		} `mapstructure:"sqlite"`
	} `mapstructure:"storage"`

	Recognition struct {
		BaseURL  string        `mapstructure:"baseurl"`
		Timeout  time.Duration `mapstructure:"timeout"`
		CacheTTL time.Duration `mapstructure:"cachettl"`
	} `mapstructure:"recognition"`

	HTTP struct {
		Host string `mapstructure:"host"`
		Port int    `mapstructure:"port"`
	} `mapstructure:"http"`

	Scans struct {
		// ImageDir stores copies of scanned photos; empty disables saving.
		ImageDir string `mapstructure:"imagedir"`
		// HistoryLimit bounds the default scan history page size.
		HistoryLimit int `mapstructure:"historylimit"`
	} `mapstructure:"scans"`
}

var (
	settingsInstance *Settings
	settingsMutex    sync.Mutex
)

// Load reads the configuration from config.yaml (current directory or
// $HOME/.config/brickbin), environment variables prefixed with BRICKBIN_,
// and built-in defaults, in ascending priority.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// GetSettings returns the loaded settings instance, or nil before Load.
func GetSettings() *Settings {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()
	return settingsInstance
}

// initViper initializes viper with default values and reads the configuration file.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.config/brickbin")

	viper.SetEnvPrefix("brickbin")
	viper.AutomaticEnv()

	setDefaultConfig()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			// No config file is fine, defaults and env apply.
			return nil
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// setDefaultConfig registers the default value of every configuration key.
func setDefaultConfig() {
	viper.SetDefault("debug", false)
	viper.SetDefault("storage.sqlite.path", "brickbin.db")
	viper.SetDefault("recognition.baseurl", "https://api.brickognize.com")
	viper.SetDefault("recognition.timeout", 30*time.Second)
	viper.SetDefault("recognition.cachettl", 5*time.Minute)
	viper.SetDefault("http.host", "localhost")
	viper.SetDefault("http.port", 8090)
	viper.SetDefault("scans.imagedir", "")
	viper.SetDefault("scans.historylimit", 50)
}

// ValidateSettings checks settings for values that cannot work at runtime.
func ValidateSettings(settings *Settings) error {
	if settings.Storage.SQLite.Path == "" {
		return fmt.Errorf("storage.sqlite.path must not be empty")
	}
	if settings.Recognition.BaseURL == "" {
		return fmt.Errorf("recognition.baseurl must not be empty")
	}
	if settings.Scans.HistoryLimit <= 0 {
		return fmt.Errorf("scans.historylimit must be positive")
	}
	if settings.HTTP.Port < 1 || settings.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535")
	}
	return nil
}
