package hitlmath

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/nodus-labs/agentpool/internal/domain/a2a"
	"github.com/nodus-labs/agentpool/internal/domain/approval"
	"github.com/nodus-labs/agentpool/internal/port/agent"
)

type fakeApprover struct {
	last approval.Proposal
}

func (f *fakeApprover) Propose(_ context.Context, p approval.Proposal) (*approval.Approval, error) {
	f.last = p
	now := time.Now()
	return &approval.Approval{
		ID:         uuid.NewString(),
		Agent:      p.Agent,
		ActionType: p.ActionType,
		ActionData: p.ActionData,
		Question:   p.Question,
		Status:     approval.StatusPending,
		CreatedAt:  now,
		ExpiresAt:  now.Add(10 * time.Minute),
	}, nil
}

func newAgent(t *testing.T) (agent.Agent, *fakeApprover) {
	t.Helper()
	approver := &fakeApprover{}
	a, err := New(agent.Deps{Approvals: approver}, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	return a, approver
}

func TestMultiplyWithConfirmation(t *testing.T) {
	a, approver := newAgent(t)

	res, err := a.Dispatch(context.Background(), "multiply_with_confirmation", a2a.Params{"base_number": 21.0})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	result := res.(map[string]any)
	if result["status"] != "hitl_required" {
		t.Fatalf("expected hitl_required, got %v", result["status"])
	}
	if approver.last.ActionType != "math_multiplication" {
		t.Fatalf("unexpected action_type: %s", approver.last.ActionType)
	}
	if approver.last.ActionData["factor"] != 2.0 {
		t.Fatalf("default factor not applied: %v", approver.last.ActionData["factor"])
	}
}

func TestExecuteMultiplicationDirect(t *testing.T) {
	a, _ := newAgent(t)

	res, err := a.Dispatch(context.Background(), "execute_multiplication", a2a.Params{
		"base_number": 21.0,
		"factor":      3.0,
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	result := res.(Result)
	if result.Result != 63 {
		t.Fatalf("expected 63, got %v", result.Result)
	}
	if result.Operation != "multiplication" {
		t.Fatalf("unexpected operation: %s", result.Operation)
	}
}

func TestExecuteMultiplicationMissingBase(t *testing.T) {
	a, _ := newAgent(t)

	_, err := a.Dispatch(context.Background(), "execute_multiplication", a2a.Params{})
	var envErr *a2a.Error
	if !errors.As(err, &envErr) || envErr.Code != a2a.CodeInvalidParams {
		t.Fatalf("expected -32602, got %v", err)
	}
}

func TestExecuteApprovedAction(t *testing.T) {
	a, _ := newAgent(t)
	exec := a.(agent.Executor)

	res, err := exec.Execute(context.Background(), "math_multiplication", map[string]any{
		"base_number": 10.0,
		"factor":      4.0,
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if res.(Result).Result != 40 {
		t.Fatalf("expected 40, got %v", res.(Result).Result)
	}

	// Factor falls back to 2 when the stored data omits it.
	res, err = exec.Execute(context.Background(), "math_multiplication", map[string]any{
		"base_number": 10.0,
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if res.(Result).Result != 20 {
		t.Fatalf("expected 20, got %v", res.(Result).Result)
	}
}
