// Package config handles configuration management using Viper
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	// Window configuration
	Window WindowConfig `mapstructure:"window"`

	// Engine configuration
	Engine EngineConfig `mapstructure:"engine"`

	// Logging configuration
	Logging LoggingConfig `mapstructure:"logging"`
}

// WindowConfig describes the toplevel window the embedder creates
type WindowConfig struct {
	Width  int    `mapstructure:"width"`
	Height int    `mapstructure:"height"`
	Title  string `mapstructure:"title"`
	AppID  string `mapstructure:"app_id"`
}

// EngineConfig locates the engine library and the application bundle
type EngineConfig struct {
	LibraryPath string   `mapstructure:"library_path"`
	AssetsPath  string   `mapstructure:"assets_path"`
	ICUDataPath string   `mapstructure:"icu_data_path"`
	Args        []string `mapstructure:"args"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	LogLevel string `mapstructure:"log_level"` // Override LOG_LEVEL env var
}

// DefaultConfig provides sensible defaults
var DefaultConfig = Config{
	Window: WindowConfig{
		Width:  800,
		Height: 600,
		Title:  "Wayhost",
		AppID:  "dev.wayhost",
	},
	Engine: EngineConfig{
		LibraryPath: "libflutter_engine.so",
		AssetsPath:  "",
		ICUDataPath: "icudtl.dat",
		Args:        []string{},
	},
	Logging: LoggingConfig{
		LogLevel: "",
	},
}

// Load reads the configuration file, applying defaults for anything unset.
// An explicit path wins; otherwise $XDG_CONFIG_HOME/wayhost/wayhost.toml is
// tried. A missing config file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("toml")

	v.SetDefault("window.width", DefaultConfig.Window.Width)
	v.SetDefault("window.height", DefaultConfig.Window.Height)
	v.SetDefault("window.title", DefaultConfig.Window.Title)
	v.SetDefault("window.app_id", DefaultConfig.Window.AppID)
	v.SetDefault("engine.library_path", DefaultConfig.Engine.LibraryPath)
	v.SetDefault("engine.assets_path", DefaultConfig.Engine.AssetsPath)
	v.SetDefault("engine.icu_data_path", DefaultConfig.Engine.ICUDataPath)
	v.SetDefault("engine.args", DefaultConfig.Engine.Args)
	v.SetDefault("logging.log_level", DefaultConfig.Logging.LogLevel)

	v.SetEnvPrefix("WAYHOST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("wayhost")
		v.AddConfigPath(configDir())
		if err := v.ReadInConfig(); err != nil {
			// Only a malformed file is fatal; absence falls back to defaults
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &cfg, nil
}

func configDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "wayhost")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "wayhost")
}
