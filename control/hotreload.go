// control/hotreload.go
// Reload listener registration and dispatch for ConfigStore.

package control

// OnReload registers fn to receive the keys changed by each SetConfig.
// Listeners run synchronously on the caller of SetConfig, in registration
// order, without the store lock held.
func (cs *ConfigStore) OnReload(fn func(changed map[string]any)) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.listeners = append(cs.listeners, fn)
}

func dispatchReload(listeners []func(map[string]any), changed map[string]any) {
	for _, fn := range listeners {
		fn(changed)
	}
}
