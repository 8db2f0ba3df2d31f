package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/nodus-labs/agentpool/internal/domain/a2a"
)

func fakeAgent(t *testing.T) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var lastID atomic.Int64

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(a2a.NewCard("fake_agent", "test double", "http://x/a2a", nil))
	})
	mux.HandleFunc("/a2a", func(w http.ResponseWriter, r *http.Request) {
		var req a2a.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if id, ok := req.ID.(float64); ok {
			lastID.Store(int64(id))
		}

		switch req.Method {
		case "ping":
			_ = json.NewEncoder(w).Encode(a2a.NewResult(req.ID, map[string]any{"pong": true}))
		case "fail":
			w.WriteHeader(http.StatusOK)
			_ = json.NewEncoder(w).Encode(a2a.NewError(req.ID, a2a.AgentErrorf("nope")))
		default:
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(a2a.NewError(req.ID, a2a.MethodNotFound(req.Method)))
		}
	})
	return httptest.NewServer(mux), &lastID
}

func TestCallSuccess(t *testing.T) {
	srv, _ := fakeAgent(t)
	defer srv.Close()

	c := New(srv.URL)
	result, err := c.Call(context.Background(), "ping", nil)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if result["pong"] != true {
		t.Fatalf("unexpected result: %v", result)
	}
}

func TestCallMonotonicIDs(t *testing.T) {
	srv, lastID := fakeAgent(t)
	defer srv.Close()

	c := New(srv.URL)
	for want := int64(1); want <= 3; want++ {
		if _, err := c.Call(context.Background(), "ping", nil); err != nil {
			t.Fatalf("call %d: %v", want, err)
		}
		if got := lastID.Load(); got != want {
			t.Fatalf("expected id %d, got %d", want, got)
		}
	}
}

func TestCallEnvelopeError(t *testing.T) {
	srv, _ := fakeAgent(t)
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.Call(context.Background(), "fail", nil)
	var envErr *a2a.Error
	if !errors.As(err, &envErr) || envErr.Code != a2a.CodeAgentError {
		t.Fatalf("expected -32000 passthrough, got %v", err)
	}
}

func TestCallMethodNotFound(t *testing.T) {
	srv, _ := fakeAgent(t)
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.Call(context.Background(), "missing", nil)
	var envErr *a2a.Error
	if !errors.As(err, &envErr) || envErr.Code != a2a.CodeMethodNotFound {
		t.Fatalf("expected -32601, got %v", err)
	}
}

func TestDiscover(t *testing.T) {
	srv, _ := fakeAgent(t)
	defer srv.Close()

	c := New(srv.URL)
	card, err := c.Discover(context.Background())
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if card.Name != "fake_agent" {
		t.Fatalf("unexpected card: %+v", card)
	}
}
