package plugin

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Manager keeps track of registered plugins and orchestrates their lifecycle.
type Manager struct {
	mu       sync.RWMutex
	registry map[string]*instance
	settings Settings
}

type instance struct {
	mu     sync.Mutex
	Plugin Plugin
	Info   Info
	State  State
}

// NewManager constructs a manager handing settings to every plugin.
func NewManager(settings Settings) *Manager {
	return &Manager{
		registry: make(map[string]*instance),
		settings: settings.Clone(),
	}
}

// Register configures p and records it under its Info id.
func (m *Manager) Register(p Plugin) error {
	if p == nil {
		return errors.New("plugin implementation cannot be nil")
	}
	info := p.Info()
	if info.ID == "" {
		return errors.New("plugin id cannot be empty")
	}
	if err := p.Configure(m.settings.Clone()); err != nil {
		return fmt.Errorf("configure plugin %s: %w", info.ID, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.registry[info.ID]; exists {
		return fmt.Errorf("plugin %s already registered", info.ID)
	}
	m.registry[info.ID] = &instance{Plugin: p, Info: info, State: StateRegistered}
	return nil
}

// Start starts a plugin by id.
func (m *Manager) Start(ctx context.Context, id string) error {
	inst, err := m.get(id)
	if err != nil {
		return err
	}
	inst.mu.Lock()
	defer inst.mu.Unlock()
	if inst.State == StateStarted {
		return nil
	}
	if err := inst.Plugin.Start(ctx); err != nil {
		return fmt.Errorf("start plugin %s: %w", id, err)
	}
	inst.State = StateStarted
	return nil
}

// Stop halts a plugin if it is running.
func (m *Manager) Stop(ctx context.Context, id string) error {
	inst, err := m.get(id)
	if err != nil {
		return err
	}
	inst.mu.Lock()
	defer inst.mu.Unlock()
	if inst.State != StateStarted {
		return nil
	}
	if err := inst.Plugin.Stop(ctx); err != nil {
		return fmt.Errorf("stop plugin %s: %w", id, err)
	}
	inst.State = StateStopped
	return nil
}

// StartAll starts all registered plugins in id order.
func (m *Manager) StartAll(ctx context.Context) error {
	for _, id := range m.ids() {
		if err := m.Start(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// StopAll stops all active plugins, attempting every plugin even when one
// fails.
func (m *Manager) StopAll(ctx context.Context) error {
	var errs []error
	for _, id := range m.ids() {
		if err := m.Stop(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// State returns the lifecycle state of a plugin.
func (m *Manager) State(id string) (State, error) {
	inst, err := m.get(id)
	if err != nil {
		return "", err
	}
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return inst.State, nil
}

// Plugins lists the metadata of every registered plugin in id order.
func (m *Manager) Plugins() []Info {
	ids := m.ids()
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Info, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.registry[id].Info)
	}
	return out
}

func (m *Manager) ids() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.registry))
	for id := range m.registry {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (m *Manager) get(id string) (*instance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inst, ok := m.registry[id]
	if !ok {
		return nil, fmt.Errorf("plugin %s not registered", id)
	}
	return inst, nil
}
