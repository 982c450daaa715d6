// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Static configuration loaded from YAML at startup.

package control

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/momentics/warplink/api"
	"github.com/momentics/warplink/dpram"
	"github.com/momentics/warplink/protocol"
)

// Config is the daemon configuration. Durations accept Go syntax ("250ms").
type Config struct {
	Device    DeviceConfig    `yaml:"device"`
	Link      LinkConfig      `yaml:"link"`
	Interface InterfaceConfig `yaml:"interface"`
	TAP       TAPConfig       `yaml:"tap"`

	// Simulate replaces the card with the in-process peer.
	Simulate bool   `yaml:"simulate"`
	LogLevel string `yaml:"log_level"`

	// MetricsInterval is the period of the metrics publisher.
	MetricsInterval time.Duration `yaml:"metrics_interval"`
}

// DeviceConfig locates the card's control region.
type DeviceConfig struct {
	Path           string `yaml:"path"`
	MapIndex       int    `yaml:"map_index"`
	MapSize        int    `yaml:"map_size"`
	RegisterOffset int    `yaml:"register_offset"`
	WindowOffset   int    `yaml:"window_offset"`
	WindowSize     int    `yaml:"window_size"`
}

// LinkConfig is the round trip policy.
type LinkConfig struct {
	Timeout          time.Duration `yaml:"timeout"`
	SpinBatch        int           `yaml:"spin_batch"`
	BreakerThreshold int           `yaml:"breaker_threshold"`
	BreakerReset     time.Duration `yaml:"breaker_reset"`
}

// InterfaceConfig holds network interface settings.
type InterfaceConfig struct {
	Name         string        `yaml:"name"`
	Budget       int           `yaml:"budget"`
	PollInterval time.Duration `yaml:"poll_interval"`
	TxTimeout    time.Duration `yaml:"tx_timeout"`
	Promiscuous  bool          `yaml:"promiscuous"`
	MsgLevel     string        `yaml:"msg_level"`
	RxBuffers    int           `yaml:"rx_buffers"`
	// PollCPU pins receive polling to one CPU. Negative leaves it unpinned.
	PollCPU      int           `yaml:"poll_cpu"`
}

// TAPConfig enables the bridge to a kernel TAP device.
type TAPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Name    string `yaml:"name"`
}

// DefaultConfig returns a configuration for the first UIO device.
func DefaultConfig() Config {
	return Config{
		Device: DeviceConfig{
			Path:           "/dev/uio0",
			MapSize:        dpram.WindowOffset + dpram.WindowSpan,
			RegisterOffset: dpram.RegisterOffset,
			WindowOffset:   dpram.WindowOffset,
			WindowSize:     protocol.WindowSize,
		},
		Link: LinkConfig{
			Timeout:          250 * time.Millisecond,
			SpinBatch:        256,
			BreakerThreshold: 3,
			BreakerReset:     5 * time.Second,
		},
		Interface: InterfaceConfig{
			Name:         "warp0",
			Budget:       8,
			PollInterval: 100 * time.Millisecond,
			TxTimeout:    2 * time.Second,
			MsgLevel:     "info",
			RxBuffers:    256,
			PollCPU:      -1,
		},
		TAP:             TAPConfig{Name: "warp0"},
		LogLevel:        "info",
		MetricsInterval: time.Second,
	}
}

// LoadConfig reads path over the defaults. Unknown keys are rejected.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks ranges and the device layout.
func (c Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{api.ErrInvalidArgument}, args...)...))
	}

	d := c.Device
	if !c.Simulate && d.Path == "" {
		bad("device.path is required unless simulate is set")
	}
	if d.MapIndex < 0 {
		bad("device.map_index %d", d.MapIndex)
	}
	if d.RegisterOffset < 0 || d.RegisterOffset%4 != 0 {
		bad("device.register_offset %#x must be a non-negative multiple of 4", d.RegisterOffset)
	}
	if d.WindowSize < protocol.WindowSize {
		bad("device.window_size %d below the largest frame (%d)", d.WindowSize, protocol.WindowSize)
	}
	if d.MapSize > 0 {
		if d.RegisterOffset+4 > d.MapSize {
			bad("register at %#x outside map of %#x bytes", d.RegisterOffset, d.MapSize)
		}
		if d.WindowOffset < 0 || d.WindowOffset+d.WindowSize > d.MapSize {
			bad("window %#x+%#x outside map of %#x bytes", d.WindowOffset, d.WindowSize, d.MapSize)
		}
	}
	if d.RegisterOffset < d.WindowOffset+d.WindowSize && d.WindowOffset < d.RegisterOffset+4 {
		bad("register at %#x overlaps the window", d.RegisterOffset)
	}

	if c.Link.Timeout <= 0 {
		bad("link.timeout must be positive")
	}
	if c.Link.SpinBatch <= 0 {
		bad("link.spin_batch must be positive")
	}
	if c.Link.BreakerThreshold < 0 {
		bad("link.breaker_threshold %d", c.Link.BreakerThreshold)
	}

	i := c.Interface
	if i.Name == "" {
		bad("interface.name is required")
	}
	if i.Budget <= 0 {
		bad("interface.budget must be positive")
	}
	if i.PollInterval <= 0 || i.TxTimeout <= 0 {
		bad("interface poll_interval and tx_timeout must be positive")
	}
	if i.RxBuffers <= 0 {
		bad("interface.rx_buffers must be positive")
	}
	if _, err := ParseLevel(i.MsgLevel); err != nil {
		errs = append(errs, fmt.Errorf("interface.msg_level: %w", err))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	if c.TAP.Enabled && c.TAP.Name == "" {
		bad("tap.name is required when tap is enabled")
	}
	if c.MetricsInterval <= 0 {
		bad("metrics_interval must be positive")
	}
	return errors.Join(errs...)
}

// ParseLevel parses a slog level name such as "debug" or "warn+2".
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("%w: level %q", api.ErrInvalidArgument, s)
	}
	return l, nil
}
