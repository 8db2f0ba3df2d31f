package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"

	"github.com/nodus-labs/agentpool/internal/adapter/ws"
	"github.com/nodus-labs/agentpool/internal/port/agent"
	"github.com/nodus-labs/agentpool/internal/port/broadcast"
	"github.com/nodus-labs/agentpool/internal/port/events"
)

// RegistryEntry is the public record of one hosted agent.
type RegistryEntry struct {
	Name         string         `json:"name"`
	FactoryRef   string         `json:"module_path"`
	MountPath    string         `json:"mount_path"`
	Config       map[string]any `json:"config,omitempty"`
	A2AEndpoint  string         `json:"a2a_endpoint"`
	CardEndpoint string         `json:"card_endpoint"`
}

type poolEntry struct {
	RegistryEntry
	agent agent.Agent
}

// Pool is the agent registry. All mutation is serialized behind a single
// mutex; request dispatch takes the read lock.
type Pool struct {
	mu      sync.RWMutex
	entries map[string]*poolEntry // keyed by agent name
	mounts  map[string]string     // mount path -> agent name

	deps      agent.Deps
	hub       broadcast.Broadcaster
	publisher events.Publisher
}

// NewPool creates an empty registry. hub and publisher may be nil.
func NewPool(deps agent.Deps, hub broadcast.Broadcaster, publisher events.Publisher) *Pool {
	return &Pool{
		entries:   make(map[string]*poolEntry),
		mounts:    make(map[string]string),
		deps:      deps,
		hub:       hub,
		publisher: publisher,
	}
}

// Register constructs the agent from the factory registered under factoryRef
// and records it. Returns false (registry unchanged) on unknown factory,
// construction error, or name/mount collision. mountPath defaults to /{name}.
func (p *Pool) Register(ctx context.Context, name, factoryRef string, config map[string]any, mountPath string) bool {
	if name == "" || factoryRef == "" {
		slog.Error("agent registration rejected", "name", name, "module_path", factoryRef, "reason", "empty name or module path")
		return false
	}
	if mountPath == "" {
		mountPath = "/" + name
	}

	inst, err := agent.New(factoryRef, p.deps, config)
	if err != nil {
		slog.Error("agent registration failed", "name", name, "module_path", factoryRef, "error", err)
		return false
	}

	p.mu.Lock()
	if _, exists := p.entries[name]; exists {
		p.mu.Unlock()
		slog.Error("agent registration rejected", "name", name, "reason", "name already registered")
		return false
	}
	if owner, exists := p.mounts[mountPath]; exists {
		p.mu.Unlock()
		slog.Error("agent registration rejected", "name", name, "mount_path", mountPath, "reason", "mount path owned by "+owner)
		return false
	}

	entry := &poolEntry{
		RegistryEntry: RegistryEntry{
			Name:         name,
			FactoryRef:   factoryRef,
			MountPath:    mountPath,
			Config:       config,
			A2AEndpoint:  p.deps.BaseURL + mountPath + "/a2a",
			CardEndpoint: p.deps.BaseURL + mountPath + "/",
		},
		agent: inst,
	}
	p.entries[name] = entry
	p.mounts[mountPath] = name
	p.mu.Unlock()

	slog.Info("agent registered", "name", name, "module_path", factoryRef, "mount_path", mountPath)
	p.notify(ctx, ws.EventAgentRegistered, events.SubjectAgentRegistered, entry.RegistryEntry)
	return true
}

// Unregister removes the agent. Requests to its mount path 404 afterwards.
func (p *Pool) Unregister(ctx context.Context, name string) bool {
	p.mu.Lock()
	entry, ok := p.entries[name]
	if !ok {
		p.mu.Unlock()
		slog.Warn("unregister of unknown agent", "name", name)
		return false
	}
	delete(p.entries, name)
	delete(p.mounts, entry.MountPath)
	p.mu.Unlock()

	slog.Info("agent unregistered", "name", name, "mount_path", entry.MountPath)
	p.notify(ctx, ws.EventAgentRemoved, events.SubjectAgentUnregistered, entry.RegistryEntry)
	return true
}

// Reload re-runs the factory with the stored config and swaps the instance
// atomically. A fresh instance guarantees all in-memory agent state is reset.
func (p *Pool) Reload(ctx context.Context, name string) bool {
	p.mu.RLock()
	entry, ok := p.entries[name]
	p.mu.RUnlock()
	if !ok {
		slog.Warn("reload of unknown agent", "name", name)
		return false
	}

	inst, err := agent.New(entry.FactoryRef, p.deps, entry.Config)
	if err != nil {
		slog.Error("agent reload failed", "name", name, "module_path", entry.FactoryRef, "error", err)
		return false
	}

	p.mu.Lock()
	// Re-check under the write lock: the entry may have been unregistered
	// between the lookup and the swap.
	entry, ok = p.entries[name]
	if !ok {
		p.mu.Unlock()
		slog.Warn("reload of unknown agent", "name", name)
		return false
	}
	entry.agent = inst
	p.mu.Unlock()

	slog.Info("agent reloaded", "name", name, "module_path", entry.FactoryRef)
	p.notify(ctx, ws.EventAgentReloaded, events.SubjectAgentReloaded, entry.RegistryEntry)
	return true
}

// poolConfig is the on-disk agents file.
type poolConfig struct {
	Agents []agentConfig `json:"agents"`
}

type agentConfig struct {
	Name       string         `json:"name"`
	ModulePath string         `json:"module_path"`
	Enabled    *bool          `json:"enabled,omitempty"`
	Config     map[string]any `json:"config,omitempty"`
	MountPath  string         `json:"mount_path,omitempty"`
}

// LoadFromConfig registers all enabled agents from a JSON config file and
// returns the success count. Fails open: a missing or malformed file logs an
// error and returns 0 without touching the registry.
func (p *Pool) LoadFromConfig(ctx context.Context, path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Error("agents config not readable", "path", path, "error", err)
		return 0
	}

	var cfg poolConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		slog.Error("agents config malformed", "path", path, "error", err)
		return 0
	}

	count := 0
	for _, ac := range cfg.Agents {
		if ac.Enabled != nil && !*ac.Enabled {
			slog.Info("agent disabled, skipping", "name", ac.Name)
			continue
		}
		if p.Register(ctx, ac.Name, ac.ModulePath, ac.Config, ac.MountPath) {
			count++
		}
	}

	slog.Info("agents config loaded", "path", path, "registered", count, "declared", len(cfg.Agents))
	return count
}

// Resolve returns the agent mounted at the given path.
func (p *Pool) Resolve(mountPath string) (agent.Agent, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	name, ok := p.mounts[mountPath]
	if !ok {
		return nil, false
	}
	return p.entries[name].agent, true
}

// Get returns the agent registered under name.
func (p *Pool) Get(name string) (agent.Agent, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	entry, ok := p.entries[name]
	if !ok {
		return nil, false
	}
	return entry.agent, true
}

// Executor returns the agent registered under name if it supports
// post-approval execution.
func (p *Pool) Executor(name string) (agent.Executor, bool) {
	a, ok := p.Get(name)
	if !ok {
		return nil, false
	}
	exec, ok := a.(agent.Executor)
	return exec, ok
}

// Entry returns the registry record for name.
func (p *Pool) Entry(name string) (RegistryEntry, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	entry, ok := p.entries[name]
	if !ok {
		return RegistryEntry{}, false
	}
	return entry.RegistryEntry, true
}

// List returns all registry records sorted by name.
func (p *Pool) List() []RegistryEntry {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]RegistryEntry, 0, len(p.entries))
	for _, entry := range p.entries {
		out = append(out, entry.RegistryEntry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Count returns the number of registered agents.
func (p *Pool) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.entries)
}

// notify fans the registry change out to WebSocket clients and the broker.
func (p *Pool) notify(ctx context.Context, wsEvent, subject string, entry RegistryEntry) {
	if p.hub != nil {
		p.hub.BroadcastEvent(ctx, wsEvent, ws.AgentEvent{
			Name:      entry.Name,
			MountPath: entry.MountPath,
		})
	}
	if p.publisher != nil {
		data, err := json.Marshal(entry)
		if err != nil {
			slog.Error("marshal registry event", "name", entry.Name, "error", err)
			return
		}
		if err := p.publisher.Publish(ctx, subject, data); err != nil {
			slog.Debug("publish registry event failed", "subject", subject, "error", err)
		}
	}
}

// String implements fmt.Stringer for log lines.
func (e RegistryEntry) String() string {
	return fmt.Sprintf("%s (%s) at %s", e.Name, e.FactoryRef, e.MountPath)
}
