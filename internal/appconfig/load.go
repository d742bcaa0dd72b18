package appconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Load reads configuration from the provided path. If path is empty, uses DefaultConfigPath.
func Load(path string) (Config, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}

	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("config_version", cfg.ConfigVersion)
	v.SetDefault("screen.width", cfg.Screen.Width)
	v.SetDefault("screen.height", cfg.Screen.Height)
	v.SetDefault("channel.depth", cfg.Channel.Depth)
	v.SetDefault("rendezvous.call_timeout_ms", cfg.Rendezvous.CallTimeoutMS)
	v.SetDefault("rendezvous.handshake_timeout_ms", cfg.Rendezvous.HandshakeTimeoutMS)
	v.SetDefault("toplevel.max_drawing_depth", cfg.Toplevel.MaxDrawingDepth)
	v.SetDefault("input.click_to_activate", cfg.Input.ClickToActivate)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.misrouted_per_second", cfg.Logging.MisroutedPerSecond)
	v.SetDefault("logging.misrouted_per_minute", cfg.Logging.MisroutedPerMinute)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return Config{}, err
		}
	} else {
		if !v.IsSet("config_version") {
			return Config{}, fmt.Errorf("config_version is required; expected %d", CurrentConfigVersion)
		}
		if v.GetInt("config_version") != CurrentConfigVersion {
			return Config{}, fmt.Errorf("unsupported config_version %d; expected %d", v.GetInt("config_version"), CurrentConfigVersion)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	cfg.Logging.File = expandEnv(cfg.Logging.File)
	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	if cfg.Screen.Width <= 0 || cfg.Screen.Height <= 0 {
		return fmt.Errorf("screen.width and screen.height must be positive, got %dx%d", cfg.Screen.Width, cfg.Screen.Height)
	}
	if cfg.Channel.Depth <= 0 {
		return fmt.Errorf("channel.depth must be positive, got %d", cfg.Channel.Depth)
	}
	if cfg.Rendezvous.CallTimeoutMS <= 0 {
		return fmt.Errorf("rendezvous.call_timeout_ms must be positive, got %d", cfg.Rendezvous.CallTimeoutMS)
	}
	if cfg.Rendezvous.HandshakeTimeoutMS <= 0 {
		return fmt.Errorf("rendezvous.handshake_timeout_ms must be positive, got %d", cfg.Rendezvous.HandshakeTimeoutMS)
	}
	if cfg.Toplevel.MaxDrawingDepth <= 0 {
		return fmt.Errorf("toplevel.max_drawing_depth must be positive, got %d", cfg.Toplevel.MaxDrawingDepth)
	}
	if cfg.Logging.MisroutedPerSecond > cfg.Logging.MisroutedPerMinute {
		return fmt.Errorf("logging.misrouted_per_second (%d) must not exceed logging.misrouted_per_minute (%d)",
			cfg.Logging.MisroutedPerSecond, cfg.Logging.MisroutedPerMinute)
	}
	return nil
}

func expandEnv(value string) string {
	if value == "" || !strings.Contains(value, "$") {
		return value
	}
	return os.Expand(value, func(key string) string {
		if val, ok := lookupEnv(key); ok {
			return val
		}
		return "$" + key
	})
}

func lookupEnv(key string) (string, bool) {
	if val, ok := os.LookupEnv(key); ok {
		return val, true
	}
	switch key {
	case "UID":
		return fmt.Sprintf("%d", os.Getuid()), true
	case "GID":
		return fmt.Sprintf("%d", os.Getgid()), true
	}
	return "", false
}

// WriteDefault writes the default config to the target path.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		path = defaultPath
	}

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config already exists at %s", path)
		}
	}

	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
