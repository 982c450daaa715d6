package adapters_test

import (
	"testing"

	"github.com/momentics/warplink/adapters"
	"github.com/momentics/warplink/control"
)

func TestControlAdapterBasic(t *testing.T) {
	ctrl := adapters.NewControlAdapter(
		control.NewConfigStore(control.DefaultConfig().Interface),
		control.NewMetricsRegistry(),
		control.NewDebugProbes(),
	)
	cfg := ctrl.GetConfig()
	if cfg[control.KeyBudget] != 8 {
		t.Errorf("Expected budget 8 on init, got %v", cfg[control.KeyBudget])
	}

	var changed map[string]any
	ctrl.OnReload(func(c map[string]any) { changed = c })
	if err := ctrl.SetConfig(map[string]any{control.KeyBudget: 2}); err != nil {
		t.Fatal(err)
	}
	if changed[control.KeyBudget] != 2 {
		t.Error("Reload hook not called with the changed key")
	}
	if err := ctrl.SetConfig(map[string]any{"bogus": 1}); err == nil {
		t.Error("Expected unknown key to be rejected")
	}

	ctrl.SetMetric("rx_packets", uint64(7))
	ctrl.RegisterDebugProbe("register", func() any { return uint32(0x40) })
	stats := ctrl.Stats()
	if stats["rx_packets"] != uint64(7) {
		t.Error("Metric missing from stats")
	}
	if stats["debug.register"] != uint32(0x40) {
		t.Error("Probe missing from stats")
	}
	if _, ok := stats["debug.platform.cpus"]; !ok {
		t.Error("Platform probes not registered")
	}
}
