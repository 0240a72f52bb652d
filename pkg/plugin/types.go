package plugin

// ActionInfo describes one action a plugin exposes to the agent runtime.
type ActionInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Similes     []string `json:"similes,omitempty"`
}

// Info contains descriptive metadata for a plugin implementation.
type Info struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Version     string       `json:"version,omitempty"`
	Actions     []ActionInfo `json:"actions,omitempty"`
	Providers   []string     `json:"providers,omitempty"`
}

// State represents the lifecycle position of a plugin instance.
type State string

const (
	StateRegistered State = "registered"
	StateStarted    State = "started"
	StateStopped    State = "stopped"
)
