package control

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/momentics/warplink/api"
	"github.com/momentics/warplink/dpram"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "warplink.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	require.Equal(t, dpram.RegisterOffset, cfg.Device.RegisterOffset)
	require.Equal(t, dpram.WindowOffset, cfg.Device.WindowOffset)
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
simulate: true
link:
  timeout: 50ms
  breaker_threshold: 0
interface:
  name: warp1
  budget: 4
  promiscuous: true
  msg_level: debug
tap:
  enabled: true
  name: tapwarp
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.True(t, cfg.Simulate)
	require.Equal(t, 50*time.Millisecond, cfg.Link.Timeout)
	require.Zero(t, cfg.Link.BreakerThreshold)
	require.Equal(t, "warp1", cfg.Interface.Name)
	require.Equal(t, 4, cfg.Interface.Budget)
	require.True(t, cfg.Interface.Promiscuous)
	require.Equal(t, "tapwarp", cfg.TAP.Name)

	// untouched keys keep their defaults
	require.Equal(t, 256, cfg.Link.SpinBatch)
	require.Equal(t, 100*time.Millisecond, cfg.Interface.PollInterval)
}

func TestLoadConfigEmptyFile(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigRejectsUnknownKeys(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "interface:\n  budjet: 4\n"))
	require.Error(t, err)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Device.WindowSize = 16
	cfg.Interface.Budget = 0
	cfg.Interface.MsgLevel = "chatty"
	cfg.Device.RegisterOffset = cfg.Device.WindowOffset + 8

	err := cfg.Validate()
	require.ErrorIs(t, err, api.ErrInvalidArgument)
	require.Contains(t, err.Error(), "window_size")
	require.Contains(t, err.Error(), "budget")
	require.Contains(t, err.Error(), "msg_level")
	require.Contains(t, err.Error(), "overlaps")
}

func TestConfigStoreNormalisesAndNotifies(t *testing.T) {
	cs := NewConfigStore(DefaultConfig().Interface)
	require.False(t, cs.Promiscuous())
	require.Equal(t, slog.LevelInfo, cs.MsgLevel())
	require.Equal(t, 8, cs.Budget())

	var got []map[string]any
	cs.OnReload(func(changed map[string]any) { got = append(got, changed) })

	require.NoError(t, cs.SetConfig(map[string]any{
		KeyPromiscuous: "on",
		KeyMsgLevel:    "warn",
		KeyBudget:      float64(16),
	}))
	require.True(t, cs.Promiscuous())
	require.Equal(t, slog.LevelWarn, cs.MsgLevel())
	require.Equal(t, 16, cs.Budget())
	require.Len(t, got, 1)
	require.Len(t, got[0], 3)

	// unchanged values do not notify
	require.NoError(t, cs.SetConfig(map[string]any{KeyBudget: 16}))
	require.Len(t, got, 1)
}

func TestConfigStoreRejectsBadValues(t *testing.T) {
	cs := NewConfigStore(DefaultConfig().Interface)
	notified := false
	cs.OnReload(func(map[string]any) { notified = true })

	for _, bad := range []map[string]any{
		{"netif.mtu": 1500},
		{KeyBudget: 0},
		{KeyBudget: "many"},
		{KeyPromiscuous: 3},
		{KeyMsgLevel: "loud"},
		{KeyPromiscuous: true, KeyBudget: -1},
	} {
		require.ErrorIs(t, cs.SetConfig(bad), api.ErrInvalidArgument, "%v", bad)
	}
	require.False(t, notified)
	require.False(t, cs.Promiscuous(), "partial update applied")
}

func TestMetricsAndProbes(t *testing.T) {
	mr := NewMetricsRegistry()
	require.True(t, mr.Updated().IsZero())
	mr.Publish(map[string]any{"rx_packets": uint64(3), "tx_packets": uint64(1)})
	mr.Set("rx_packets", uint64(4))
	snap := mr.GetSnapshot()
	require.Equal(t, uint64(4), snap["rx_packets"])
	require.Equal(t, uint64(1), snap["tx_packets"])
	require.False(t, mr.Updated().IsZero())

	dp := NewDebugProbes()
	RegisterPlatformProbes(dp)
	dp.RegisterProbe("register", func() any { return "0x00000040" })
	state := dp.DumpState()
	require.Equal(t, "0x00000040", state["register"])
	require.Contains(t, dp.Names(), "platform.cpus")
	require.Positive(t, state["platform.cpus"])
}
