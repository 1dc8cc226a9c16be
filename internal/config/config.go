// Package config loads blockc settings from .blockc.yaml, BLOCKC_* env vars,
// a .env file, and command-line flags, in viper's usual precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/chazu/blockstudio/pkg/sketch"
	"github.com/chazu/blockstudio/pkg/snap"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "BLOCKC"

// Config holds the runtime settings shared by the CLI and the desktop app.
type Config struct {
	ArduinoCLI    string        `mapstructure:"arduino_cli"`
	FQBN          string        `mapstructure:"fqbn"`
	Port          string        `mapstructure:"port"`
	Baud          int           `mapstructure:"baud"`
	SketchDir     string        `mapstructure:"sketch_dir"`
	BoardFile     string        `mapstructure:"board_file"`
	SnapThreshold float64       `mapstructure:"snap_threshold"`
	EvalTimeout   time.Duration `mapstructure:"eval_timeout"`
	UploadTimeout time.Duration `mapstructure:"upload_timeout"`
	LogLevel      string        `mapstructure:"log_level"`
	LogFile       string        `mapstructure:"log_file"`
	Verbose       bool          `mapstructure:"verbose"`
}

// Init points viper at the config file and the environment. An explicit
// cfgFile must exist; otherwise .blockc.yaml is looked up in the working
// directory and the home directory, and its absence is not an error.
func Init(cfgFile string) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(".blockc")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
	}

	viper.SetEnvPrefix(EnvPrefix)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", viper.ConfigFileUsed(), err)
	}
	return nil
}

// SetDefaults registers the built-in defaults with viper.
func SetDefaults() {
	viper.SetDefault("arduino_cli", "arduino-cli")
	viper.SetDefault("fqbn", sketch.DefaultFQBN)
	viper.SetDefault("port", "")
	viper.SetDefault("baud", sketch.DefaultBaud)
	viper.SetDefault("sketch_dir", "temp")
	viper.SetDefault("board_file", "")
	viper.SetDefault("snap_threshold", snap.DefaultThreshold)
	viper.SetDefault("eval_timeout", "5s")
	viper.SetDefault("upload_timeout", "2m")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_file", "")
	viper.SetDefault("verbose", false)
}

// LoadDotEnv loads variables from .env files into the process environment
// without overriding variables that are already set. A missing file is
// skipped; a malformed one is an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		err := godotenv.Load(f)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("config: %s: %w", f, err)
		}
	}
	return nil
}

// Load reads configuration from viper, applying built-in defaults for any
// values not set by config file, environment, or flags.
func Load() (Config, error) {
	SetDefaults()
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if cfg.SnapThreshold <= 0 {
		return Config{}, fmt.Errorf("config: snap_threshold must be positive, got %v", cfg.SnapThreshold)
	}
	return cfg, nil
}

// Profile returns the board profile. A configured board file wins outright;
// otherwise the default board is used with FQBN and baud from the config.
func (c Config) Profile() (sketch.Profile, error) {
	if c.BoardFile != "" {
		return sketch.LoadProfile(c.BoardFile)
	}
	p := sketch.DefaultProfile()
	if c.FQBN != "" {
		p.FQBN = c.FQBN
	}
	if c.Baud > 0 {
		p.Baud = c.Baud
	}
	return p, p.Validate()
}
