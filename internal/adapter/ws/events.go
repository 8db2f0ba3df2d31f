package ws

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Event type constants for WebSocket messages.
const (
	EventApprovalPending  = "approval.pending"
	EventApprovalResolved = "approval.resolved"
	EventApprovalExecuted = "approval.executed"
	EventAgentRegistered  = "agent.registered"
	EventAgentReloaded    = "agent.reloaded"
	EventAgentRemoved     = "agent.removed"
)

// ApprovalEvent is broadcast on every approval lifecycle transition.
type ApprovalEvent struct {
	ApprovalID string `json:"approval_id"`
	Agent      string `json:"agent"`
	ActionType string `json:"action_type"`
	Status     string `json:"status"`
	Question   string `json:"question,omitempty"`
}

// AgentEvent is broadcast when an agent is registered, reloaded, or removed.
type AgentEvent struct {
	Name      string `json:"name"`
	MountPath string `json:"mount_path"`
}

// BroadcastEvent is a convenience method that marshals a typed event and broadcasts it.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}

	h.Broadcast(ctx, Message{
		Type:    eventType,
		Payload: json.RawMessage(data),
	})
}
