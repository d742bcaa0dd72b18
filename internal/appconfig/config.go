package appconfig

import (
	"os"
	"path/filepath"
	"time"

	"pkt.systems/rtgui/schema"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int              `mapstructure:"config_version" yaml:"config_version"`
	Screen        ScreenConfig     `mapstructure:"screen" yaml:"screen"`
	Channel       ChannelConfig    `mapstructure:"channel" yaml:"channel"`
	Rendezvous    RendezvousConfig `mapstructure:"rendezvous" yaml:"rendezvous"`
	Toplevel      ToplevelConfig   `mapstructure:"toplevel" yaml:"toplevel"`
	Input         InputConfig      `mapstructure:"input" yaml:"input"`
	Logging       LoggingConfig    `mapstructure:"logging" yaml:"logging"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// ScreenConfig sets the display the clips are bounded by.
type ScreenConfig struct {
	Width  int `mapstructure:"width" yaml:"width"`
	Height int `mapstructure:"height" yaml:"height"`
}

// ChannelConfig sizes the per-thread mailboxes.
type ChannelConfig struct {
	Depth int `mapstructure:"depth" yaml:"depth"`
}

// RendezvousConfig bounds synchronous calls.
type RendezvousConfig struct {
	CallTimeoutMS      int `mapstructure:"call_timeout_ms" yaml:"call_timeout_ms"`
	HandshakeTimeoutMS int `mapstructure:"handshake_timeout_ms" yaml:"handshake_timeout_ms"`
}

// ToplevelConfig limits owner-side window state.
type ToplevelConfig struct {
	MaxDrawingDepth int `mapstructure:"max_drawing_depth" yaml:"max_drawing_depth"`
}

// InputConfig controls input routing.
type InputConfig struct {
	ClickToActivate bool `mapstructure:"click_to_activate" yaml:"click_to_activate"`
}

// LoggingConfig controls log output and drop-warning rate limits.
type LoggingConfig struct {
	File               string `mapstructure:"file" yaml:"file"`
	MisroutedPerSecond int    `mapstructure:"misrouted_per_second" yaml:"misrouted_per_second"`
	MisroutedPerMinute int    `mapstructure:"misrouted_per_minute" yaml:"misrouted_per_minute"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ConfigVersion: CurrentConfigVersion,
		Screen: ScreenConfig{
			Width:  schema.DefaultScreenWidth,
			Height: schema.DefaultScreenHeight,
		},
		Channel: ChannelConfig{
			Depth: schema.DefaultChannelDepth,
		},
		Rendezvous: RendezvousConfig{
			CallTimeoutMS:      int(schema.DefaultCallTimeout / time.Millisecond),
			HandshakeTimeoutMS: int(schema.DefaultHandshakeTimeout / time.Millisecond),
		},
		Toplevel: ToplevelConfig{
			MaxDrawingDepth: schema.DefaultMaxDrawingDepth,
		},
		Input: InputConfig{
			ClickToActivate: true,
		},
		Logging: LoggingConfig{
			File:               "",
			MisroutedPerSecond: schema.DefaultMisroutedPerSecond,
			MisroutedPerMinute: schema.DefaultMisroutedPerMinute,
		},
	}
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".rtgui", "config.yaml"), nil
}

// CoreConfig converts the file form into the core's limits.
func (c Config) CoreConfig() schema.CoreConfig {
	return schema.CoreConfig{
		Screen:             schema.R(0, 0, c.Screen.Width, c.Screen.Height),
		ChannelDepth:       c.Channel.Depth,
		CallTimeout:        time.Duration(c.Rendezvous.CallTimeoutMS) * time.Millisecond,
		HandshakeTimeout:   time.Duration(c.Rendezvous.HandshakeTimeoutMS) * time.Millisecond,
		MaxDrawingDepth:    c.Toplevel.MaxDrawingDepth,
		MisroutedPerSecond: c.Logging.MisroutedPerSecond,
		MisroutedPerMinute: c.Logging.MisroutedPerMinute,
	}
}
