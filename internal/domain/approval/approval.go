// Package approval defines the HITL (Human-in-the-Loop) approval lifecycle.
// A proposed action moves through an explicit state machine instead of the
// caller-trusted status flag the A2A convention started from:
//
//	pending -> approved -> executed
//	pending -> rejected
//	pending -> expired (TTL elapsed)
package approval

import (
	"errors"
	"fmt"
	"time"
)

// Status is the lifecycle state of a proposed action.
type Status string

// Approval lifecycle states.
const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusExpired  Status = "expired"
	StatusExecuted Status = "executed"
)

// ErrNotFound indicates no approval exists for the given ID.
var ErrNotFound = errors.New("approval not found")

// Proposal is the input for creating a pending approval.
type Proposal struct {
	Agent       string         `json:"agent"`
	ActionType  string         `json:"action_type"`
	ActionData  map[string]any `json:"action_data"`
	Description string         `json:"description"`
	Question    string         `json:"question"`
	Preview     any            `json:"preview,omitempty"`
}

// Approval is a tracked pending confirmation. The ID keys the idempotent
// execute operation.
type Approval struct {
	ID          string         `json:"id"`
	Agent       string         `json:"agent"`
	ActionType  string         `json:"action_type"`
	ActionData  map[string]any `json:"action_data"`
	Description string         `json:"description"`
	Question    string         `json:"question"`
	Preview     any            `json:"preview,omitempty"`
	Status      Status         `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	ExpiresAt   time.Time      `json:"expires_at"`
	ResolvedAt  *time.Time     `json:"resolved_at,omitempty"`
	Result      any            `json:"result,omitempty"`
}

// Expired reports whether the approval's TTL has elapsed while still pending.
func (a *Approval) Expired(now time.Time) bool {
	return a.Status == StatusPending && now.After(a.ExpiresAt)
}

// Resolve transitions a pending approval to approved or rejected.
func (a *Approval) Resolve(to Status, now time.Time) error {
	if to != StatusApproved && to != StatusRejected {
		return fmt.Errorf("invalid resolution %q", to)
	}
	if a.Expired(now) {
		a.Status = StatusExpired
	}
	if a.Status != StatusPending {
		return fmt.Errorf("approval %s is %s, expected pending", a.ID, a.Status)
	}
	a.Status = to
	a.ResolvedAt = &now
	return nil
}

// MarkExecuted transitions an approved approval to executed, storing the
// action result for idempotent replays.
func (a *Approval) MarkExecuted(result any, now time.Time) error {
	if a.Status != StatusApproved {
		return fmt.Errorf("approval %s is %s, expected approved", a.ID, a.Status)
	}
	a.Status = StatusExecuted
	a.Result = result
	a.ResolvedAt = &now
	return nil
}
