package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/nodus-labs/agentpool/internal/domain/a2a"
	"github.com/nodus-labs/agentpool/internal/port/agent"
)

// echoAgent is a minimal test agent that reports its construction generation.
type echoAgent struct {
	generation int
	state      int
}

func (e *echoAgent) Name() string { return "echo" }

func (e *echoAgent) Card(baseURL string) a2a.Card {
	return a2a.NewCard("echo", "test agent", baseURL+"/a2a", nil)
}

func (e *echoAgent) Dispatch(_ context.Context, method string, params a2a.Params) (any, error) {
	if method != "echo" {
		return nil, a2a.MethodNotFound(method)
	}
	e.state++
	return map[string]any{"generation": e.generation, "state": e.state}, nil
}

func (e *echoAgent) Execute(_ context.Context, actionType string, data map[string]any) (any, error) {
	return map[string]any{"executed": actionType}, nil
}

var echoGenerations int

func init() {
	agent.Register("test/echo", func(deps agent.Deps, config map[string]any) (agent.Agent, error) {
		echoGenerations++
		return &echoAgent{generation: echoGenerations}, nil
	})
	agent.Register("test/failing", func(deps agent.Deps, config map[string]any) (agent.Agent, error) {
		return nil, errors.New("construction failed")
	})
}

func newTestPool() *Pool {
	return NewPool(agent.Deps{BaseURL: "http://localhost:8000"}, nil, nil)
}

func TestRegisterAndResolve(t *testing.T) {
	p := newTestPool()
	ctx := context.Background()

	if !p.Register(ctx, "echo1", "test/echo", nil, "") {
		t.Fatal("register failed")
	}

	entry, ok := p.Entry("echo1")
	if !ok {
		t.Fatal("entry missing")
	}
	if entry.MountPath != "/echo1" {
		t.Fatalf("expected default mount /echo1, got %s", entry.MountPath)
	}
	if entry.A2AEndpoint != "http://localhost:8000/echo1/a2a" {
		t.Fatalf("unexpected a2a endpoint: %s", entry.A2AEndpoint)
	}

	if _, ok := p.Resolve("/echo1"); !ok {
		t.Fatal("resolve by mount path failed")
	}
	if _, ok := p.Resolve("/other"); ok {
		t.Fatal("unexpected resolution for unknown mount")
	}
}

func TestRegisterUnknownFactory(t *testing.T) {
	p := newTestPool()

	if p.Register(context.Background(), "ghost", "test/does-not-exist", nil, "") {
		t.Fatal("register of unknown factory must return false")
	}
	if p.Count() != 0 {
		t.Fatal("registry must stay unchanged on failure")
	}
}

func TestRegisterFactoryError(t *testing.T) {
	p := newTestPool()

	if p.Register(context.Background(), "broken", "test/failing", nil, "") {
		t.Fatal("register must return false when the factory errors")
	}
	if p.Count() != 0 {
		t.Fatal("registry must stay unchanged on failure")
	}
}

func TestRegisterDuplicateName(t *testing.T) {
	p := newTestPool()
	ctx := context.Background()

	if !p.Register(ctx, "echo1", "test/echo", nil, "") {
		t.Fatal("first register failed")
	}
	if p.Register(ctx, "echo1", "test/echo", nil, "/elsewhere") {
		t.Fatal("duplicate name must be rejected")
	}
	if p.Count() != 1 {
		t.Fatalf("expected 1 agent, got %d", p.Count())
	}
}

func TestUnregisterRemovesRouting(t *testing.T) {
	p := newTestPool()
	ctx := context.Background()

	p.Register(ctx, "echo1", "test/echo", nil, "")
	if !p.Unregister(ctx, "echo1") {
		t.Fatal("unregister failed")
	}
	if _, ok := p.Resolve("/echo1"); ok {
		t.Fatal("unregistered mount must not resolve")
	}
	if p.Unregister(ctx, "echo1") {
		t.Fatal("second unregister must return false")
	}
}

func TestReloadSwapsInstance(t *testing.T) {
	p := newTestPool()
	ctx := context.Background()

	p.Register(ctx, "echo1", "test/echo", nil, "")

	before, _ := p.Get("echo1")
	// Mutate in-memory agent state, then reload.
	if _, err := before.Dispatch(ctx, "echo", nil); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	if !p.Reload(ctx, "echo1") {
		t.Fatal("reload failed")
	}

	after, _ := p.Get("echo1")
	if before == after {
		t.Fatal("reload must swap in a fresh instance")
	}
	res, err := after.Dispatch(ctx, "echo", nil)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if res.(map[string]any)["state"] != 1 {
		t.Fatal("reloaded agent must start with fresh state")
	}
}

func TestReloadUnknownAgent(t *testing.T) {
	p := newTestPool()
	if p.Reload(context.Background(), "nobody") {
		t.Fatal("reload of unknown agent must return false")
	}
}

func TestLoadFromConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agents.json")
	content := `{
	  "agents": [
	    {"name": "a", "module_path": "test/echo", "enabled": true},
	    {"name": "b", "module_path": "test/echo"},
	    {"name": "c", "module_path": "test/echo", "enabled": false},
	    {"name": "d", "module_path": "test/missing", "enabled": true}
	  ]
	}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	p := newTestPool()
	count := p.LoadFromConfig(context.Background(), path)
	if count != 2 {
		t.Fatalf("expected 2 registered agents, got %d", count)
	}
	if _, ok := p.Get("c"); ok {
		t.Fatal("disabled agent must not be registered")
	}
	if _, ok := p.Get("d"); ok {
		t.Fatal("agent with unknown module must not be registered")
	}
}

func TestLoadFromConfigFailsOpen(t *testing.T) {
	p := newTestPool()
	ctx := context.Background()

	if count := p.LoadFromConfig(ctx, "/nonexistent/agents.json"); count != 0 {
		t.Fatalf("missing file must yield 0, got %d", count)
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "agents.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if count := p.LoadFromConfig(ctx, path); count != 0 {
		t.Fatalf("malformed file must yield 0, got %d", count)
	}
	if p.Count() != 0 {
		t.Fatal("registry must stay unchanged when config fails")
	}
}

func TestListSorted(t *testing.T) {
	p := newTestPool()
	ctx := context.Background()

	p.Register(ctx, "zeta", "test/echo", nil, "")
	p.Register(ctx, "alpha", "test/echo", nil, "")

	entries := p.List()
	if len(entries) != 2 || entries[0].Name != "alpha" {
		t.Fatalf("expected sorted listing, got %+v", entries)
	}
}
