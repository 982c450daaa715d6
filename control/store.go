// control/store.go
// Author: momentics <momentics@gmail.com>
//
// Thread-safe store of the runtime-tunable settings.

package control

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/momentics/warplink/api"
)

// Runtime-tunable keys.
const (
	KeyPromiscuous = "netif.promiscuous"
	KeyMsgLevel    = "netif.msg_level"
	KeyBudget      = "netif.budget"
)

// ConfigStore holds the settings that may change while the interface runs.
// Values are normalised on the way in: bool, slog.Level and int.
type ConfigStore struct {
	mu        sync.RWMutex
	config    map[string]any
	listeners []func(changed map[string]any)
}

// NewConfigStore seeds a store from the interface section of cfg.
func NewConfigStore(cfg InterfaceConfig) *ConfigStore {
	level, err := ParseLevel(cfg.MsgLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	return &ConfigStore{
		config: map[string]any{
			KeyPromiscuous: cfg.Promiscuous,
			KeyMsgLevel:    level,
			KeyBudget:      cfg.Budget,
		},
	}
}

// GetSnapshot returns a copy of all values.
func (cs *ConfigStore) GetSnapshot() map[string]any {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	out := make(map[string]any, len(cs.config))
	for k, v := range cs.config {
		out[k] = v
	}
	return out
}

// Promiscuous returns the current receive filter setting.
func (cs *ConfigStore) Promiscuous() bool {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.config[KeyPromiscuous].(bool)
}

// MsgLevel returns the current interface message level.
func (cs *ConfigStore) MsgLevel() slog.Level {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.config[KeyMsgLevel].(slog.Level)
}

// Budget returns the current poll budget.
func (cs *ConfigStore) Budget() int {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.config[KeyBudget].(int)
}

// SetConfig validates and merges newCfg, then notifies listeners with the
// keys whose value changed. Nothing is applied if any entry is invalid.
func (cs *ConfigStore) SetConfig(newCfg map[string]any) error {
	norm := make(map[string]any, len(newCfg))
	for k, v := range newCfg {
		nv, err := normalize(k, v)
		if err != nil {
			return err
		}
		norm[k] = nv
	}

	cs.mu.Lock()
	changed := make(map[string]any)
	for k, v := range norm {
		if cs.config[k] != v {
			cs.config[k] = v
			changed[k] = v
		}
	}
	listeners := append([]func(map[string]any){}, cs.listeners...)
	cs.mu.Unlock()

	if len(changed) > 0 {
		dispatchReload(listeners, changed)
	}
	return nil
}

func normalize(key string, v any) (any, error) {
	switch key {
	case KeyPromiscuous:
		switch b := v.(type) {
		case bool:
			return b, nil
		case string:
			switch b {
			case "true", "on", "1":
				return true, nil
			case "false", "off", "0":
				return false, nil
			}
		}
	case KeyMsgLevel:
		switch l := v.(type) {
		case slog.Level:
			return l, nil
		case string:
			return ParseLevel(l)
		}
	case KeyBudget:
		var n int
		switch b := v.(type) {
		case int:
			n = b
		case int64:
			n = int(b)
		case float64:
			n = int(b)
		default:
			return nil, fmt.Errorf("%w: %s must be a number, got %T", api.ErrInvalidArgument, key, v)
		}
		if n <= 0 {
			return nil, fmt.Errorf("%w: %s must be positive, got %d", api.ErrInvalidArgument, key, n)
		}
		return n, nil
	default:
		return nil, fmt.Errorf("%w: unknown key %q", api.ErrInvalidArgument, key)
	}
	return nil, fmt.Errorf("%w: bad value %v for %s", api.ErrInvalidArgument, v, key)
}
