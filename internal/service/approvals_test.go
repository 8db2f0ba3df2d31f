package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	otelapi "go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/nodus-labs/agentpool/internal/adapter/otel"
	"github.com/nodus-labs/agentpool/internal/domain/approval"
	"github.com/nodus-labs/agentpool/internal/port/agent"
)

// countingExecutor records how many times Execute ran.
type countingExecutor struct {
	echoAgent
	mu    sync.Mutex
	calls int
}

func (c *countingExecutor) Execute(_ context.Context, actionType string, data map[string]any) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return map[string]any{"action": actionType, "call": c.calls}, nil
}

func newTestApprovals(exec agent.Executor) *Approvals {
	s := NewApprovals(10*time.Minute, nil, nil)
	if exec != nil {
		s.SetExecutorLookup(func(name string) (agent.Executor, bool) {
			return exec, true
		})
	}
	return s
}

func propose(t *testing.T, s *Approvals) *approval.Approval {
	t.Helper()
	appr, err := s.Propose(context.Background(), approval.Proposal{
		Agent:      "email_agent",
		ActionType: "send_email",
		ActionData: map[string]any{"to": "jane@example.com"},
		Question:   "Send it?",
	})
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	return appr
}

func TestProposeAssignsIDAndTTL(t *testing.T) {
	s := newTestApprovals(nil)
	appr := propose(t, s)

	if appr.ID == "" {
		t.Fatal("approval ID missing")
	}
	if appr.Status != approval.StatusPending {
		t.Fatalf("expected pending, got %s", appr.Status)
	}
	ttl := appr.ExpiresAt.Sub(appr.CreatedAt)
	if ttl != 10*time.Minute {
		t.Fatalf("expected 10m TTL, got %s", ttl)
	}
}

func TestProposeRequiresAgentAndAction(t *testing.T) {
	s := newTestApprovals(nil)
	if _, err := s.Propose(context.Background(), approval.Proposal{Agent: "x"}); err == nil {
		t.Fatal("expected error for missing action_type")
	}
}

func TestApproveThenExecuteIdempotent(t *testing.T) {
	exec := &countingExecutor{}
	s := newTestApprovals(exec)
	appr := propose(t, s)

	if _, err := s.Approve(context.Background(), appr.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	first, err := s.Execute(context.Background(), appr.ID)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	second, err := s.Execute(context.Background(), appr.ID)
	if err != nil {
		t.Fatalf("replay execute: %v", err)
	}

	if exec.calls != 1 {
		t.Fatalf("action must run once, ran %d times", exec.calls)
	}
	if first.(map[string]any)["call"] != second.(map[string]any)["call"] {
		t.Fatal("replay must return the stored result")
	}

	got, err := s.Get(appr.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != approval.StatusExecuted {
		t.Fatalf("expected executed, got %s", got.Status)
	}
}

func TestExecutePendingFails(t *testing.T) {
	exec := &countingExecutor{}
	s := newTestApprovals(exec)
	appr := propose(t, s)

	if _, err := s.Execute(context.Background(), appr.ID); err == nil {
		t.Fatal("execute of a pending approval must fail")
	}
	if exec.calls != 0 {
		t.Fatal("action must not run without approval")
	}
}

func TestExecuteRejectedFails(t *testing.T) {
	exec := &countingExecutor{}
	s := newTestApprovals(exec)
	appr := propose(t, s)

	if _, err := s.Reject(context.Background(), appr.ID); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if _, err := s.Execute(context.Background(), appr.ID); err == nil {
		t.Fatal("execute of a rejected approval must fail")
	}
}

func TestExecuteUnknownID(t *testing.T) {
	s := newTestApprovals(&countingExecutor{})
	_, err := s.Execute(context.Background(), "nope")
	if !errors.Is(err, approval.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLazyExpiry(t *testing.T) {
	s := newTestApprovals(&countingExecutor{})
	appr := propose(t, s)

	// Move the clock past the TTL.
	s.now = func() time.Time { return time.Now().Add(11 * time.Minute) }

	got, err := s.Get(appr.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != approval.StatusExpired {
		t.Fatalf("expected expired on read, got %s", got.Status)
	}

	if _, err := s.Approve(context.Background(), appr.ID); err == nil {
		t.Fatal("approve of an expired approval must fail")
	}
	if _, err := s.Execute(context.Background(), appr.ID); err == nil {
		t.Fatal("execute of an expired approval must fail")
	}
}

func TestSweepExpiresPending(t *testing.T) {
	s := newTestApprovals(nil)
	appr := propose(t, s)

	s.now = func() time.Time { return time.Now().Add(11 * time.Minute) }
	s.sweep(context.Background())

	got, err := s.Get(appr.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != approval.StatusExpired {
		t.Fatalf("expected expired after sweep, got %s", got.Status)
	}
}

func TestListFilterByStatus(t *testing.T) {
	s := newTestApprovals(nil)
	a1 := propose(t, s)
	propose(t, s)

	if _, err := s.Approve(context.Background(), a1.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	if got := s.List(approval.StatusPending); len(got) != 1 {
		t.Fatalf("expected 1 pending, got %d", len(got))
	}
	if got := s.List(""); len(got) != 2 {
		t.Fatalf("expected 2 total, got %d", len(got))
	}
}

func TestApprovalLifecycleRecordsMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	otelapi.SetMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))

	m, err := otel.NewMetrics()
	if err != nil {
		t.Fatalf("new metrics: %v", err)
	}

	s := newTestApprovals(nil)
	s.SetMetrics(m)

	appr := propose(t, s)
	if _, err := s.Approve(context.Background(), appr.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	names := make(map[string]bool)
	for _, sm := range rm.ScopeMetrics {
		for _, metric := range sm.Metrics {
			names[metric.Name] = true
		}
	}
	if !names["agentpool.approvals.proposed"] {
		t.Fatal("propose did not record agentpool.approvals.proposed")
	}
	if !names["agentpool.approvals.resolved"] {
		t.Fatal("approve did not record agentpool.approvals.resolved")
	}
}
