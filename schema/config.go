package schema

import (
	"errors"
	"time"
)

// CoreConfig defines limits and timeouts for the window core.
type CoreConfig struct {
	// Screen is the display rectangle clips are bounded by.
	Screen Rect
	// ChannelDepth is the capacity of each thread mailbox.
	ChannelDepth int
	// CallTimeout bounds each synchronous call.
	CallTimeout time.Duration
	// HandshakeTimeout bounds the deactivate handshake between owner threads.
	HandshakeTimeout time.Duration
	// MaxDrawingDepth bounds nested draw scopes per toplevel.
	MaxDrawingDepth int
	// MisroutedPerSecond and MisroutedPerMinute rate-limit drop warnings per window.
	MisroutedPerSecond int
	MisroutedPerMinute int
}

// Defaults for CoreConfig.
const (
	DefaultScreenWidth        = 800
	DefaultScreenHeight       = 480
	DefaultChannelDepth       = 64
	DefaultCallTimeout        = 500 * time.Millisecond
	DefaultHandshakeTimeout   = 200 * time.Millisecond
	DefaultMaxDrawingDepth    = 32
	DefaultMisroutedPerSecond = 5
	DefaultMisroutedPerMinute = 60
)

// NormalizeCoreConfig applies defaults and validates the config.
func NormalizeCoreConfig(cfg CoreConfig) (CoreConfig, error) {
	if cfg.Screen.Empty() {
		cfg.Screen = R(0, 0, DefaultScreenWidth, DefaultScreenHeight)
	}
	if cfg.ChannelDepth <= 0 {
		cfg.ChannelDepth = DefaultChannelDepth
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if cfg.MaxDrawingDepth <= 0 {
		cfg.MaxDrawingDepth = DefaultMaxDrawingDepth
	}
	if cfg.MisroutedPerSecond <= 0 {
		cfg.MisroutedPerSecond = DefaultMisroutedPerSecond
	}
	if cfg.MisroutedPerMinute <= 0 {
		cfg.MisroutedPerMinute = DefaultMisroutedPerMinute
	}
	if cfg.MisroutedPerSecond > cfg.MisroutedPerMinute {
		return CoreConfig{}, errors.New("misrouted per-second limit must not exceed per-minute limit")
	}
	return cfg, nil
}
