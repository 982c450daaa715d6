// File: client/client.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package client provides typed calls for the board's command families.
// Every call is one or more round trips over the shared link, so client
// traffic interleaves safely with the network interface.
package client

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/momentics/warplink/api"
	"github.com/momentics/warplink/protocol"
	"github.com/momentics/warplink/transport"
)

// Client issues board commands over a link.
type Client struct {
	link *transport.Link
	log  *slog.Logger
}

// New creates a client bound to link. A nil logger selects slog.Default().
func New(link *transport.Link, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{link: link, log: logger.With("component", "client")}
}

// Link returns the underlying link.
func (c *Client) Link() *transport.Link { return c.link }

// DebugMessage prints msg on the board's debug console.
func (c *Client) DebugMessage(ctx context.Context, kind uint8, msg string) error {
	return c.link.Post(ctx, &protocol.DbgMsg{Type: kind, Msg: msg})
}

// SetCPUTurbo selects the CPU turbo level.
func (c *Client) SetCPUTurbo(ctx context.Context, level uint32) error {
	return c.link.Post(ctx, &protocol.SetCPUTurbo{Level: level})
}

// SelectKickstart selects the ROM image used on the next reset.
func (c *Client) SelectKickstart(ctx context.Context, nr uint8) error {
	return c.link.Post(ctx, &protocol.SelectKick{Nr: nr})
}

// SetIDEMode switches between native and legacy IDE mode.
func (c *Client) SetIDEMode(ctx context.Context, native bool) error {
	return c.link.Post(ctx, &protocol.SetIDEMode{NativeEnable: native})
}

// SetIDESpeed programs the IDE strobe timings.
func (c *Client) SetIDESpeed(ctx context.Context, t protocol.SetIDESpeed) error {
	return c.link.Post(ctx, &t)
}

// SetHIDMouseRes sets the USB mouse resolution.
func (c *Client) SetHIDMouseRes(ctx context.Context, res uint16) error {
	return c.link.Post(ctx, &protocol.SetHIDMouseRes{Res: res})
}

// HIDMouseRes reads the USB mouse resolution.
func (c *Client) HIDMouseRes(ctx context.Context) (uint16, error) {
	var r protocol.HIDMouseRes
	if err := c.link.Call(ctx, protocol.Bare(protocol.CmdGetHIDMouseRes), &r); err != nil {
		return 0, err
	}
	return r.Res, nil
}

// SetWiFiCredentials stores the network name and passphrase. They travel as
// two commands; the pair is not atomic with respect to other link users.
func (c *Client) SetWiFiCredentials(ctx context.Context, ssid, pass string) error {
	if len(ssid) >= protocol.WiFiSSIDLen || len(pass) >= protocol.WiFiPassLen {
		return fmt.Errorf("%w: credentials longer than %d bytes", api.ErrInvalidArgument, protocol.WiFiSSIDLen-1)
	}
	if err := c.link.Post(ctx, &protocol.SetWiFiSSID{SSID: ssid}); err != nil {
		return fmt.Errorf("set ssid: %w", err)
	}
	if err := c.link.Post(ctx, &protocol.SetWiFiPass{Pass: pass}); err != nil {
		return fmt.Errorf("set passphrase: %w", err)
	}
	return nil
}

// SetTempRegulator configures the fan regulator.
func (c *Client) SetTempRegulator(ctx context.Context, cpuTemp, minPWMPercent int32) error {
	if minPWMPercent < 0 || minPWMPercent > 100 {
		return fmt.Errorf("%w: pwm %d%%", api.ErrInvalidArgument, minPWMPercent)
	}
	return c.link.Post(ctx, &protocol.SetTempRegulator{CPUTemp: cpuTemp, MinPWMPercent: minPWMPercent})
}

// SetTimeZoneShift sets the offset applied to the board's real time clock.
func (c *Client) SetTimeZoneShift(ctx context.Context, shift time.Duration) error {
	return c.link.Post(ctx, &protocol.SetTimeZoneShift{ShiftSecs: int32(shift / time.Second)})
}

// ARMInfo reads the coprocessor identification.
func (c *Client) ARMInfo(ctx context.Context) (protocol.ARMInfo, error) {
	var r protocol.ARMInfo
	err := c.link.Call(ctx, protocol.Bare(protocol.CmdGetARMInfo), &r)
	return r, err
}

// MouseWheel returns the wheel delta accumulated since the last call.
func (c *Client) MouseWheel(ctx context.Context) (int8, error) {
	var r protocol.MouseWheelData
	if err := c.link.Call(ctx, protocol.Bare(protocol.CmdGetMouseWheelData), &r); err != nil {
		return 0, err
	}
	return r.Count, nil
}
