// Package email implements the HITL email agent. Sending requires human
// approval; the send itself is simulated.
package email

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nodus-labs/agentpool/internal/domain/a2a"
	"github.com/nodus-labs/agentpool/internal/domain/approval"
	"github.com/nodus-labs/agentpool/internal/port/agent"
)

// Ref is the factory reference used in pool configuration.
const Ref = "agentpool/email"

func init() {
	agent.Register(Ref, New)
}

// InboxEmail is one simulated inbox entry.
type InboxEmail struct {
	ID      string `json:"id"`
	From    string `json:"from"`
	Subject string `json:"subject"`
	Preview string `json:"preview"`
	Date    string `json:"date"`
	Unread  bool   `json:"unread"`
}

var simulatedInbox = []InboxEmail{
	{
		ID:      "email_001",
		From:    "john@example.com",
		Subject: "Project X Update",
		Preview: "Hi, here's the latest update on Project X...",
		Date:    "2025-11-23T10:30:00Z",
		Unread:  true,
	},
	{
		ID:      "email_002",
		From:    "sarah@example.com",
		Subject: "Meeting Schedule",
		Preview: "Can we reschedule our meeting for next week?",
		Date:    "2025-11-23T09:15:00Z",
		Unread:  true,
	},
	{
		ID:      "email_003",
		From:    "notifications@system.com",
		Subject: "System Alert",
		Preview: "Your account has been updated...",
		Date:    "2025-11-22T16:45:00Z",
		Unread:  false,
	},
}

// Agent sends emails behind HITL confirmation and reads a simulated inbox.
type Agent struct {
	name      string
	approvals agent.Approver
}

// New creates the email agent. It takes no configuration but requires the
// approval service.
func New(deps agent.Deps, config map[string]any) (agent.Agent, error) {
	if deps.Approvals == nil {
		return nil, fmt.Errorf("email: approval service is required")
	}
	return &Agent{name: "email_agent", approvals: deps.Approvals}, nil
}

func (a *Agent) Name() string { return a.name }

func (a *Agent) Card(baseURL string) a2a.Card {
	return a2a.NewCard(
		a.name,
		"Send emails with HITL confirmation (requires human approval)",
		baseURL+"/a2a",
		map[string]a2a.Capability{
			"send_email": {
				Description: "Send an email (requires human confirmation before sending)",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"to":      map[string]any{"type": "string", "description": "Recipient email address"},
						"subject": map[string]any{"type": "string", "description": "Email subject line"},
						"body":    map[string]any{"type": "string", "description": "Email body content"},
						"cc": map[string]any{
							"type":        "array",
							"items":       map[string]any{"type": "string"},
							"description": "CC recipients (optional)",
						},
						"bcc": map[string]any{
							"type":        "array",
							"items":       map[string]any{"type": "string"},
							"description": "BCC recipients (optional)",
						},
					},
					"required": []string{"to", "subject", "body"},
				},
			},
			"check_inbox": {
				Description: "Check inbox for new emails (no confirmation required)",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"unread_only": map[string]any{
							"type":        "boolean",
							"description": "Only show unread emails",
							"default":     true,
						},
						"limit": map[string]any{
							"type":        "integer",
							"description": "Maximum number of emails to return",
							"default":     10,
						},
					},
				},
			},
		},
	)
}

func (a *Agent) Dispatch(ctx context.Context, method string, params a2a.Params) (any, error) {
	switch method {
	case "send_email":
		return a.sendEmail(ctx, params)
	case "check_inbox":
		return a.checkInbox(params)
	default:
		return nil, a2a.MethodNotFound(method)
	}
}

func (a *Agent) sendEmail(ctx context.Context, params a2a.Params) (any, error) {
	to, _ := params.String("to", "")
	subject, _ := params.String("subject", "")
	body, _ := params.String("body", "")
	if to == "" || subject == "" || body == "" {
		return nil, a2a.InvalidParams("Missing required parameters: to, subject, body")
	}
	cc, err := params.StringSlice("cc", nil)
	if err != nil {
		return nil, err
	}
	bcc, err := params.StringSlice("bcc", nil)
	if err != nil {
		return nil, err
	}

	bodyPreview := body
	if len(bodyPreview) > 100 {
		bodyPreview = bodyPreview[:100] + "..."
	}

	prop := approval.Proposal{
		Agent:       a.name,
		ActionType:  "send_email",
		Description: fmt.Sprintf("Send email to %s", to),
		Question:    fmt.Sprintf("Do you want to send an email to %s with subject '%s'?", to, subject),
		ActionData: map[string]any{
			"to":      to,
			"subject": subject,
			"body":    body,
			"cc":      cc,
			"bcc":     bcc,
		},
		Preview: map[string]any{
			"to":           to,
			"subject":      subject,
			"body_preview": bodyPreview,
			"cc":           cc,
			"bcc":          bcc,
		},
	}

	appr, err := a.approvals.Propose(ctx, prop)
	if err != nil {
		return nil, fmt.Errorf("propose send_email: %w", err)
	}

	slog.Info("email send requires approval", "to", to, "subject", subject, "approval_id", appr.ID)

	return map[string]any{
		"status":             "hitl_required",
		"approval_id":        appr.ID,
		"action_type":        appr.ActionType,
		"action_description": appr.Description,
		"action_data":        appr.ActionData,
		"question":           appr.Question,
		"preview":            appr.Preview,
		"expires_at":         appr.ExpiresAt.Format(time.RFC3339),
	}, nil
}

func (a *Agent) checkInbox(params a2a.Params) (any, error) {
	unreadOnly, err := params.Bool("unread_only", true)
	if err != nil {
		return nil, err
	}
	limit, err := params.Int("limit", 10)
	if err != nil {
		return nil, err
	}

	emails := make([]InboxEmail, 0, len(simulatedInbox))
	unread := 0
	for _, e := range simulatedInbox {
		if e.Unread {
			unread++
		}
		if unreadOnly && !e.Unread {
			continue
		}
		emails = append(emails, e)
	}
	if limit >= 0 && len(emails) > limit {
		emails = emails[:limit]
	}

	return map[string]any{
		"emails":       emails,
		"total_count":  len(simulatedInbox),
		"unread_count": unread,
	}, nil
}

// Execute runs the approved action. Called by the approval service once per
// approval; idempotency is enforced there.
func (a *Agent) Execute(ctx context.Context, actionType string, data map[string]any) (any, error) {
	if actionType != "send_email" {
		return nil, a2a.AgentErrorf("Unknown action type: %s", actionType)
	}

	to, _ := data["to"].(string)
	subject, _ := data["subject"].(string)

	now := time.Now()
	slog.Info("email sent (simulated)", "to", to, "subject", subject)

	return map[string]any{
		"status":     "sent",
		"message_id": fmt.Sprintf("msg_%d", now.UnixNano()),
		"to":         to,
		"subject":    subject,
		"sent_at":    now.Format(time.RFC3339),
		"note":       "Email sent successfully (simulated)",
	}, nil
}
