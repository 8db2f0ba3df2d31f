// Package client implements the outbound A2A caller used to talk to hosted
// agents over JSON-RPC 2.0.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/nodus-labs/agentpool/internal/domain/a2a"
	"github.com/nodus-labs/agentpool/internal/resilience"
)

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides the default 30s request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithBreaker adds a circuit breaker around every call.
func WithBreaker(b *resilience.Breaker) Option {
	return func(c *Client) { c.breaker = b }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// Client calls one agent mount (e.g. http://localhost:8000/weather).
type Client struct {
	baseURL string
	http    *http.Client
	breaker *resilience.Breaker
	nextID  atomic.Int64
}

// New creates a Client for the agent mounted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Call posts a JSON-RPC 2.0 envelope and returns the result payload.
// Envelope errors come back as *a2a.Error.
func (c *Client) Call(ctx context.Context, method string, params map[string]any) (map[string]any, error) {
	req := a2a.Request{
		JSONRPC: a2a.Version,
		Method:  method,
		Params:  params,
		ID:      c.nextID.Add(1),
	}

	var resp a2a.Response
	call := func() error {
		return c.post(ctx, c.baseURL+"/a2a", req, &resp)
	}

	var err error
	if c.breaker != nil {
		err = c.breaker.Execute(call)
	} else {
		err = call()
	}
	if err != nil {
		return nil, err
	}

	if resp.Error != nil {
		return nil, resp.Error
	}

	result, ok := resp.Result.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("unexpected result type %T", resp.Result)
	}
	return result, nil
}

// Discover fetches the AgentCard from the mount root.
func (c *Client) Discover(ctx context.Context) (*a2a.Card, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("discover: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("discover returned %d", resp.StatusCode)
	}

	var card a2a.Card
	if err := json.NewDecoder(resp.Body).Decode(&card); err != nil {
		return nil, fmt.Errorf("decode agent card: %w", err)
	}
	return &card, nil
}

// Execute runs an approved HITL action by approval ID.
func (c *Client) Execute(ctx context.Context, approvalID string) (map[string]any, error) {
	var out map[string]any
	body := map[string]string{"approval_id": approvalID}
	if err := c.post(ctx, c.baseURL+"/a2a/execute", body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, url string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", url, err)
	}
	defer resp.Body.Close()

	// The envelope carries the error detail; only bail on statuses that
	// cannot carry a JSON-RPC body.
	if resp.StatusCode >= http.StatusInternalServerError && resp.Header.Get("Content-Type") != "application/json" {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("agent returned %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
