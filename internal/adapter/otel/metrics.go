package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "agentpool"

// Metrics holds all AgentPool metric instruments.
type Metrics struct {
	Dispatches        metric.Int64Counter
	DispatchErrors    metric.Int64Counter
	DispatchDuration  metric.Float64Histogram
	UpstreamCalls     metric.Int64Counter
	ApprovalsProposed metric.Int64Counter
	ApprovalsResolved metric.Int64Counter
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.Dispatches, err = meter.Int64Counter("agentpool.dispatches",
		metric.WithDescription("Number of A2A method dispatches"))
	if err != nil {
		return nil, err
	}

	m.DispatchErrors, err = meter.Int64Counter("agentpool.dispatch.errors",
		metric.WithDescription("Number of A2A dispatches that returned an envelope error"))
	if err != nil {
		return nil, err
	}

	m.DispatchDuration, err = meter.Float64Histogram("agentpool.dispatch.duration_seconds",
		metric.WithDescription("A2A dispatch duration in seconds"))
	if err != nil {
		return nil, err
	}

	m.UpstreamCalls, err = meter.Int64Counter("agentpool.upstream.calls",
		metric.WithDescription("Number of outbound API calls"))
	if err != nil {
		return nil, err
	}

	m.ApprovalsProposed, err = meter.Int64Counter("agentpool.approvals.proposed",
		metric.WithDescription("Number of HITL approvals proposed"))
	if err != nil {
		return nil, err
	}

	m.ApprovalsResolved, err = meter.Int64Counter("agentpool.approvals.resolved",
		metric.WithDescription("Number of HITL approvals approved, rejected, or expired"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordDispatch records one dispatch with its agent/method attributes.
func (m *Metrics) RecordDispatch(ctx context.Context, agent, method string, seconds float64, failed bool) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("agent", agent),
		attribute.String("method", method),
	)
	m.Dispatches.Add(ctx, 1, attrs)
	m.DispatchDuration.Record(ctx, seconds, attrs)
	if failed {
		m.DispatchErrors.Add(ctx, 1, attrs)
	}
}

// RecordUpstream counts one outbound API call.
func (m *Metrics) RecordUpstream(ctx context.Context, api string, failed bool) {
	if m == nil {
		return
	}
	m.UpstreamCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("api", api),
		attribute.Bool("failed", failed),
	))
}

// RecordApprovalProposed counts one new pending approval.
func (m *Metrics) RecordApprovalProposed(ctx context.Context, agent string) {
	if m == nil {
		return
	}
	m.ApprovalsProposed.Add(ctx, 1, metric.WithAttributes(attribute.String("agent", agent)))
}

// RecordApprovalResolved counts one approval leaving the pending state,
// with its outcome (approved, rejected, or expired) as an attribute.
func (m *Metrics) RecordApprovalResolved(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.ApprovalsResolved.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}
