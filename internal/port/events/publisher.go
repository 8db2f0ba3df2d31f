// Package events defines the port for publishing pool lifecycle events to an
// external broker. Publishing is best-effort: the pool works without a broker.
package events

import "context"

// Subjects for pool lifecycle events.
const (
	SubjectAgentRegistered   = "agents.registered"
	SubjectAgentUnregistered = "agents.unregistered"
	SubjectAgentReloaded     = "agents.reloaded"
	SubjectApprovalProposed  = "approvals.proposed"
	SubjectApprovalResolved  = "approvals.resolved"
	SubjectApprovalExecuted  = "approvals.executed"
)

// Publisher sends an event payload to the given subject.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}
