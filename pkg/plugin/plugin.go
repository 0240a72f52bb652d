// Package plugin defines the lifecycle contract between the host daemon and
// agent plugins, and a manager that drives it.
package plugin

import "context"

// Plugin defines the lifecycle hooks that each plugin implementation must satisfy.
type Plugin interface {
	// Info returns the static metadata for the plugin.
	Info() Info
	// Configure inspects the runtime settings before the plugin is registered.
	Configure(settings Settings) error
	// Start activates the plugin.
	Start(ctx context.Context) error
	// Stop gracefully halts the plugin and releases any resources.
	Stop(ctx context.Context) error
}

// Settings are the string values the agent runtime exposes to plugins, such
// as EVM_PRIVATE_KEY.
type Settings map[string]string

// Get returns the named setting or "".
func (s Settings) Get(key string) string {
	if s == nil {
		return ""
	}
	return s[key]
}

// Clone returns a copy plugins may mutate.
func (s Settings) Clone() Settings {
	if s == nil {
		return Settings{}
	}
	dup := make(Settings, len(s))
	for k, v := range s {
		dup[k] = v
	}
	return dup
}
