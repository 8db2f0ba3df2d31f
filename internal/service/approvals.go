package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nodus-labs/agentpool/internal/adapter/otel"
	"github.com/nodus-labs/agentpool/internal/adapter/ws"
	"github.com/nodus-labs/agentpool/internal/domain/approval"
	"github.com/nodus-labs/agentpool/internal/port/agent"
	"github.com/nodus-labs/agentpool/internal/port/broadcast"
	"github.com/nodus-labs/agentpool/internal/port/events"
)

// ExecutorLookup resolves the agent that runs an approved action.
type ExecutorLookup func(agentName string) (agent.Executor, bool)

// Approvals tracks pending HITL confirmations through their lifecycle.
// Execute is idempotent per approval ID: replays return the stored result.
type Approvals struct {
	mu    sync.Mutex
	items map[string]*approval.Approval

	ttl       time.Duration
	hub       broadcast.Broadcaster
	publisher events.Publisher
	executors ExecutorLookup
	metrics   *otel.Metrics
	now       func() time.Time
}

// NewApprovals creates the approval service. hub and publisher may be nil.
func NewApprovals(ttl time.Duration, hub broadcast.Broadcaster, publisher events.Publisher) *Approvals {
	return &Approvals{
		items:     make(map[string]*approval.Approval),
		ttl:       ttl,
		hub:       hub,
		publisher: publisher,
		now:       time.Now,
	}
}

// SetExecutorLookup wires the registry lookup for post-approval execution.
// Set after the pool exists; the pool itself needs the approval service to
// construct HITL agents.
func (s *Approvals) SetExecutorLookup(fn ExecutorLookup) {
	s.executors = fn
}

// SetMetrics wires the approval lifecycle counters. The recorders are
// nil-safe, so leaving this unset is fine.
func (s *Approvals) SetMetrics(m *otel.Metrics) {
	s.metrics = m
}

// Propose creates a pending approval with a fresh UUID and the configured TTL.
func (s *Approvals) Propose(ctx context.Context, p approval.Proposal) (*approval.Approval, error) {
	if p.Agent == "" || p.ActionType == "" {
		return nil, fmt.Errorf("proposal needs agent and action_type")
	}

	now := s.now()
	appr := &approval.Approval{
		ID:          uuid.NewString(),
		Agent:       p.Agent,
		ActionType:  p.ActionType,
		ActionData:  p.ActionData,
		Description: p.Description,
		Question:    p.Question,
		Preview:     p.Preview,
		Status:      approval.StatusPending,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.ttl),
	}

	s.mu.Lock()
	s.items[appr.ID] = appr
	s.mu.Unlock()

	slog.Info("approval proposed", "approval_id", appr.ID, "agent", p.Agent, "action_type", p.ActionType)
	s.metrics.RecordApprovalProposed(ctx, p.Agent)
	s.notify(ctx, ws.EventApprovalPending, events.SubjectApprovalProposed, appr)

	cp := *appr
	return &cp, nil
}

// Get returns the approval, applying lazy expiry.
func (s *Approvals) Get(id string) (*approval.Approval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	appr, ok := s.items[id]
	if !ok {
		return nil, approval.ErrNotFound
	}
	s.expireLocked(appr)

	cp := *appr
	return &cp, nil
}

// List returns all approvals, optionally filtered by status, newest first.
func (s *Approvals) List(status approval.Status) []*approval.Approval {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*approval.Approval, 0, len(s.items))
	for _, appr := range s.items {
		s.expireLocked(appr)
		if status != "" && appr.Status != status {
			continue
		}
		cp := *appr
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Approve transitions a pending approval to approved.
func (s *Approvals) Approve(ctx context.Context, id string) (*approval.Approval, error) {
	return s.resolve(ctx, id, approval.StatusApproved)
}

// Reject transitions a pending approval to rejected.
func (s *Approvals) Reject(ctx context.Context, id string) (*approval.Approval, error) {
	return s.resolve(ctx, id, approval.StatusRejected)
}

func (s *Approvals) resolve(ctx context.Context, id string, to approval.Status) (*approval.Approval, error) {
	s.mu.Lock()
	appr, ok := s.items[id]
	if !ok {
		s.mu.Unlock()
		return nil, approval.ErrNotFound
	}
	if err := appr.Resolve(to, s.now()); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	cp := *appr
	s.mu.Unlock()

	slog.Info("approval resolved", "approval_id", id, "status", cp.Status)
	s.metrics.RecordApprovalResolved(ctx, string(cp.Status))
	s.notify(ctx, ws.EventApprovalResolved, events.SubjectApprovalResolved, &cp)
	return &cp, nil
}

// Execute runs the approved action exactly once. A replay for an already
// executed approval returns the stored result without re-running the action.
func (s *Approvals) Execute(ctx context.Context, id string) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	appr, ok := s.items[id]
	if !ok {
		return nil, approval.ErrNotFound
	}
	s.expireLocked(appr)

	switch appr.Status {
	case approval.StatusExecuted:
		return appr.Result, nil
	case approval.StatusApproved:
		// fallthrough to execution
	default:
		return nil, fmt.Errorf("approval %s is %s, expected approved", id, appr.Status)
	}

	if s.executors == nil {
		return nil, fmt.Errorf("no executor lookup configured")
	}
	exec, ok := s.executors(appr.Agent)
	if !ok {
		return nil, fmt.Errorf("agent %s cannot execute approved actions", appr.Agent)
	}

	// Holding the lock through Execute serializes all approval activity,
	// which is also what makes the idempotency check race-free. Actions are
	// local and fast; revisit if an agent ever executes over the network.
	result, err := exec.Execute(ctx, appr.ActionType, appr.ActionData)
	if err != nil {
		return nil, fmt.Errorf("execute %s: %w", appr.ActionType, err)
	}
	if err := appr.MarkExecuted(result, s.now()); err != nil {
		return nil, err
	}

	slog.Info("approval executed", "approval_id", id, "agent", appr.Agent, "action_type", appr.ActionType)
	cp := *appr
	s.notifyAsync(ws.EventApprovalExecuted, events.SubjectApprovalExecuted, &cp)
	return result, nil
}

// StartSweeper expires stale approvals in the background until ctx is done.
func (s *Approvals) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweep(ctx)
			}
		}
	}()
}

func (s *Approvals) sweep(ctx context.Context) {
	var expired []*approval.Approval

	s.mu.Lock()
	for _, appr := range s.items {
		if appr.Status == approval.StatusPending && s.expireLocked(appr) {
			cp := *appr
			expired = append(expired, &cp)
		}
	}
	s.mu.Unlock()

	for _, appr := range expired {
		slog.Info("approval expired", "approval_id", appr.ID, "agent", appr.Agent)
		s.metrics.RecordApprovalResolved(ctx, string(approval.StatusExpired))
		s.notify(ctx, ws.EventApprovalResolved, events.SubjectApprovalResolved, appr)
	}
}

// expireLocked applies lazy expiry. Caller holds the mutex.
func (s *Approvals) expireLocked(appr *approval.Approval) bool {
	if appr.Expired(s.now()) {
		appr.Status = approval.StatusExpired
		return true
	}
	return false
}

func (s *Approvals) notify(ctx context.Context, wsEvent, subject string, appr *approval.Approval) {
	if s.hub != nil {
		s.hub.BroadcastEvent(ctx, wsEvent, ws.ApprovalEvent{
			ApprovalID: appr.ID,
			Agent:      appr.Agent,
			ActionType: appr.ActionType,
			Status:     string(appr.Status),
			Question:   appr.Question,
		})
	}
	if s.publisher != nil {
		data, err := json.Marshal(appr)
		if err != nil {
			slog.Error("marshal approval event", "approval_id", appr.ID, "error", err)
			return
		}
		if err := s.publisher.Publish(ctx, subject, data); err != nil {
			slog.Debug("publish approval event failed", "subject", subject, "error", err)
		}
	}
}

// notifyAsync is used where the caller holds the service mutex.
func (s *Approvals) notifyAsync(wsEvent, subject string, appr *approval.Approval) {
	go s.notify(context.Background(), wsEvent, subject, appr)
}
