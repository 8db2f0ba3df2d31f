package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nodus-labs/agentpool/internal/domain/a2a"
	"github.com/nodus-labs/agentpool/internal/logger"
)

// httpStatus maps an envelope error code to the transport status. Agent
// errors (-32000) travel as HTTP 200: the call succeeded, the action failed.
func httpStatus(code int) int {
	switch code {
	case a2a.CodeInvalidRequest, a2a.CodeInvalidParams:
		return http.StatusBadRequest
	case a2a.CodeMethodNotFound:
		return http.StatusNotFound
	case a2a.CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusOK
	}
}

// handleA2A is the JSON-RPC 2.0 endpoint for the agent mounted at the
// request's path.
func (s *Server) handleA2A(w http.ResponseWriter, r *http.Request) {
	mount := "/" + chi.URLParam(r, "agent")
	ag, ok := s.pool.Resolve(mount)
	if !ok {
		writeError(w, http.StatusNotFound, "no agent mounted at "+mount)
		return
	}

	var req a2a.Request
	if err := decodeJSON(r, &req); err != nil {
		env := a2a.Errorf(a2a.CodeInvalidRequest, "Invalid Request")
		writeJSON(w, httpStatus(env.Code), a2a.NewError(nil, env))
		return
	}

	if req.JSONRPC != a2a.Version {
		env := a2a.Errorf(a2a.CodeInvalidRequest, "Invalid Request")
		writeJSON(w, httpStatus(env.Code), a2a.NewError(req.ID, env))
		return
	}
	if req.Method == "" {
		env := a2a.Errorf(a2a.CodeInvalidRequest, "Invalid Request: missing method")
		writeJSON(w, httpStatus(env.Code), a2a.NewError(req.ID, env))
		return
	}

	slog.Info("a2a request",
		"agent", ag.Name(),
		"method", req.Method,
		"id", req.ID,
		"request_id", logger.RequestID(r.Context()),
	)

	start := time.Now()
	result, err := ag.Dispatch(r.Context(), req.Method, req.Params)
	elapsed := time.Since(start)

	if err != nil {
		env := asEnvelopeError(err)
		if env.Code == a2a.CodeInternal {
			// Internal details are logged, never sent to the caller.
			slog.Error("a2a dispatch failed", "agent", ag.Name(), "method", req.Method, "error", err)
		}
		s.metrics.RecordDispatch(r.Context(), ag.Name(), req.Method, elapsed.Seconds(), true)
		writeJSON(w, httpStatus(env.Code), a2a.NewError(req.ID, env))
		return
	}

	s.metrics.RecordDispatch(r.Context(), ag.Name(), req.Method, elapsed.Seconds(), false)
	writeJSON(w, http.StatusOK, a2a.NewResult(req.ID, result))
}

// asEnvelopeError passes envelope errors through and flattens everything
// else to -32603 with a generic message.
func asEnvelopeError(err error) *a2a.Error {
	var env *a2a.Error
	if errors.As(err, &env) {
		return env
	}
	return a2a.Errorf(a2a.CodeInternal, "Internal error")
}

// handleAgentCard serves the AgentCard for discovery.
func (s *Server) handleAgentCard(w http.ResponseWriter, r *http.Request) {
	mount := "/" + chi.URLParam(r, "agent")
	ag, ok := s.pool.Resolve(mount)
	if !ok {
		writeError(w, http.StatusNotFound, "no agent mounted at "+mount)
		return
	}
	writeJSON(w, http.StatusOK, ag.Card(s.baseURL+mount))
}

// handleAgentHealth is the per-agent health check.
func (s *Server) handleAgentHealth(w http.ResponseWriter, r *http.Request) {
	mount := "/" + chi.URLParam(r, "agent")
	ag, ok := s.pool.Resolve(mount)
	if !ok {
		writeError(w, http.StatusNotFound, "no agent mounted at "+mount)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "agent": ag.Name()})
}

// handleExecute runs an approved HITL action. The body carries the approval
// ID; replays return the stored result.
func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	mount := "/" + chi.URLParam(r, "agent")
	if _, ok := s.pool.Resolve(mount); !ok {
		writeError(w, http.StatusNotFound, "no agent mounted at "+mount)
		return
	}

	var body struct {
		ApprovalID string `json:"approval_id"`
	}
	if err := decodeJSON(r, &body); err != nil || body.ApprovalID == "" {
		writeError(w, http.StatusBadRequest, "approval_id is required")
		return
	}

	result, err := s.approvals.Execute(r.Context(), body.ApprovalID)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"status": "error", "message": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "result": result})
}
