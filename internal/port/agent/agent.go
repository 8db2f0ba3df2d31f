// Package agent defines the plugin contract every hosted A2A agent implements,
// and the factory registry agents self-register into at init() time.
package agent

import (
	"context"
	"time"

	"github.com/nodus-labs/agentpool/internal/domain/a2a"
	"github.com/nodus-labs/agentpool/internal/domain/approval"
	"github.com/nodus-labs/agentpool/internal/port/cache"
)

// Agent is one hosted A2A agent. Dispatch maps a method name to a computation
// and returns the result payload, or an error. Returning *a2a.Error selects
// the envelope error code; any other error is reported as -32603 with a
// generic message.
type Agent interface {
	Name() string
	Card(baseURL string) a2a.Card
	Dispatch(ctx context.Context, method string, params a2a.Params) (any, error)
}

// Executor is implemented by agents that run actions after HITL approval.
// Execute must be safe to call exactly once per approved action; idempotency
// across retries is enforced by the approval service, not the agent.
type Executor interface {
	Agent
	Execute(ctx context.Context, actionType string, data map[string]any) (any, error)
}

// Approver is the narrow slice of the approval service agents use to propose
// pending confirmations.
type Approver interface {
	Propose(ctx context.Context, p approval.Proposal) (*approval.Approval, error)
}

// Observe is called once per outbound API call with the upstream name
// and whether the call failed. Used for metrics; may be nil.
type Observe func(ctx context.Context, api string, failed bool)

// Upstream carries outbound API settings shared by agents that call
// external services. Plain data so the port stays free of adapter imports.
type Upstream struct {
	WeatherURL         string
	CurrencyURL        string
	Timeout            time.Duration
	BreakerMaxFailures int
	BreakerTimeout     time.Duration
	WeatherTTL         time.Duration
	RateTTL            time.Duration
	Observe            Observe
}

// Deps carries the shared pool resources handed to every factory.
type Deps struct {
	BaseURL   string      // external base URL of the pool, e.g. http://localhost:8000
	Cache     cache.Cache // shared L1 cache, may be nil
	Approvals Approver    // HITL approval service, may be nil
	Upstream  Upstream    // outbound API settings
}
