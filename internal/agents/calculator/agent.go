// Package calculator implements the mathematical calculations agent.
package calculator

import (
	"context"
	"fmt"
	"time"

	"github.com/nodus-labs/agentpool/internal/domain/a2a"
	"github.com/nodus-labs/agentpool/internal/port/agent"
)

// Ref is the factory reference used in pool configuration.
const Ref = "agentpool/calculator"

func init() {
	agent.Register(Ref, New)
}

// Result is the response payload for both calculation methods.
type Result struct {
	Expression  string    `json:"expression"`
	Result      float64   `json:"result"`
	Explanation string    `json:"explanation"`
	Timestamp   time.Time `json:"timestamp"`
}

// Agent evaluates mathematical expressions over A2A.
type Agent struct {
	name string
}

// New creates the calculator agent. It takes no configuration.
func New(deps agent.Deps, config map[string]any) (agent.Agent, error) {
	return &Agent{name: "calculator_agent"}, nil
}

func (a *Agent) Name() string { return a.name }

func (a *Agent) Card(baseURL string) a2a.Card {
	return a2a.NewCard(
		a.name,
		"Mathematical calculations (addition, subtraction, multiplication, division, power, square root, percentages)",
		baseURL+"/a2a",
		map[string]a2a.Capability{
			"calculate": {
				Description: "Evaluate a mathematical expression",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"expression": map[string]any{
							"type":        "string",
							"description": "Mathematical expression to evaluate (e.g., '2 + 2', '15% of 200', 'sqrt(144)')",
						},
					},
					"required": []string{"expression"},
				},
			},
			"percentage": {
				Description: "Calculate percentage of a number",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"percentage": map[string]any{"type": "number", "description": "Percentage value (e.g., 15 for 15%)"},
						"of_value":   map[string]any{"type": "number", "description": "Base value"},
					},
					"required": []string{"percentage", "of_value"},
				},
			},
		},
	)
}

func (a *Agent) Dispatch(ctx context.Context, method string, params a2a.Params) (any, error) {
	switch method {
	case "calculate":
		return a.calculate(params)
	case "percentage":
		return a.percentage(params)
	default:
		return nil, a2a.MethodNotFound(method)
	}
}

func (a *Agent) calculate(params a2a.Params) (any, error) {
	expression, err := params.RequireString("expression")
	if err != nil {
		return nil, err
	}

	result, err := Eval(expression)
	if err != nil {
		return nil, a2a.AgentErrorf("%v", err)
	}

	return Result{
		Expression:  expression,
		Result:      result,
		Explanation: fmt.Sprintf("The result of %s is %v", expression, result),
		Timestamp:   time.Now(),
	}, nil
}

func (a *Agent) percentage(params a2a.Params) (any, error) {
	percentage, err := params.RequireFloat("percentage")
	if err != nil {
		return nil, err
	}
	ofValue, err := params.RequireFloat("of_value")
	if err != nil {
		return nil, err
	}

	result := (percentage / 100) * ofValue
	return Result{
		Expression:  fmt.Sprintf("%v%% of %v", percentage, ofValue),
		Result:      result,
		Explanation: fmt.Sprintf("%v%% of %v is %v", percentage, ofValue, result),
		Timestamp:   time.Now(),
	}, nil
}
