// Package hitlmath implements the interactive multiplication agent used to
// demonstrate the HITL confirmation flow.
package hitlmath

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
const Ref = "agentpool/hitlmath"

func init() {
	agent.Register(Ref, New)
}

// Result is the execute_multiplication response payload.
type Result struct {
	BaseNumber  float64 `json:"base_number"`
	Factor      float64 `json:"factor"`
	Result      float64 `json:"result"`
	Operation   string  `json:"operation"`
	Explanation string  `json:"explanation"`
	Timestamp   string  `json:"timestamp"`
}

// Agent multiplies numbers behind an optional HITL confirmation.
type Agent struct {
	name      string
	approvals agent.Approver
}

// New creates the hitlmath agent.
func New(deps agent.Deps, config map[string]any) (agent.Agent, error) {
	if deps.Approvals == nil {
		return nil, fmt.Errorf("hitlmath: approval service is required")
	}
	return &Agent{name: "hitl_math_agent", approvals: deps.Approvals}, nil
}

func (a *Agent) Name() string { return a.name }

func (a *Agent) Card(baseURL string) a2a.Card {
	return a2a.NewCard(
		a.name,
		"HITL Math Agent for interactive multiplication",
		baseURL+"/a2a",
		map[string]a2a.Capability{
			"multiply_with_confirmation": {
				Description: "Multiply a number by a factor with HITL confirmation (default factor: 2)",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"base_number": map[string]any{"type": "number", "description": "The base number to multiply"},
						"factor":      map[string]any{"type": "number", "description": "The multiplication factor", "default": 2.0},
					},
					"required": []string{"base_number"},
				},
			},
			"execute_multiplication": {
				Description: "Execute the multiplication directly (no confirmation)",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"base_number": map[string]any{"type": "number", "description": "The base number"},
						"factor":      map[string]any{"type": "number", "description": "The multiplication factor", "default": 2.0},
					},
					"required": []string{"base_number"},
				},
			},
		},
	)
}

func (a *Agent) Dispatch(ctx context.Context, method string, params a2a.Params) (any, error) {
	switch method {
	case "multiply_with_confirmation":
		return a.multiplyWithConfirmation(ctx, params)
	case "execute_multiplication":
		base, factor, err := multiplyParams(params)
		if err != nil {
			return nil, err
		}
		return multiply(base, factor), nil
	default:
		return nil, a2a.MethodNotFound(method)
	}
}

func (a *Agent) multiplyWithConfirmation(ctx context.Context, params a2a.Params) (any, error) {
	base, factor, err := multiplyParams(params)
	if err != nil {
		return nil, err
	}

	prop := approval.Proposal{
		Agent:       a.name,
		ActionType:  "math_multiplication",
		Description: fmt.Sprintf("Multiply %v by a number", base),
		Question:    fmt.Sprintf("Which number do you want to multiply %v by?", base),
		ActionData: map[string]any{
			"base_number": base,
			"factor":      factor,
			"operation":   "multiplication",
			"input_type":  "number",
		},
		Preview: fmt.Sprintf("Multiplication of %v", base),
	}

	appr, err := a.approvals.Propose(ctx, prop)
	if err != nil {
		return nil, fmt.Errorf("propose multiplication: %w", err)
	}

	slog.Info("multiplication requires approval", "base_number", base, "factor", factor, "approval_id", appr.ID)

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

// Execute runs the approved multiplication.
func (a *Agent) Execute(ctx context.Context, actionType string, data map[string]any) (any, error) {
	if actionType != "math_multiplication" {
		return nil, a2a.AgentErrorf("Unknown action type: %s", actionType)
	}

	base, _ := toFloat(data["base_number"])
	factor, ok := toFloat(data["factor"])
	if !ok {
		factor = 2.0
	}
	return multiply(base, factor), nil
}

func multiplyParams(params a2a.Params) (base, factor float64, err error) {
	base, err = params.RequireFloat("base_number")
	if err != nil {
		return 0, 0, err
	}
	factor, err = params.Float("factor", 2.0)
	if err != nil {
		return 0, 0, err
	}
	return base, factor, nil
}

func multiply(base, factor float64) Result {
	result := base * factor
	return Result{
		BaseNumber:  base,
		Factor:      factor,
		Result:      result,
		Operation:   "multiplication",
		Explanation: fmt.Sprintf("The result of %v × %v is %v", base, factor, result),
		Timestamp:   time.Now().Format(time.RFC3339),
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
