package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nodus-labs/agentpool/internal/domain/approval"
	"github.com/nodus-labs/agentpool/internal/port/agent"
)

// handleIndex describes the pool and its registered agents.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	entries := s.pool.List()
	writeJSON(w, http.StatusOK, map[string]any{
		"name":              "agent_pool",
		"description":       "A2A agent pool hosting multiple agents behind one server",
		"version":           "1.0.0",
		"agents":            entries,
		"count":             len(entries),
		"available_modules": agent.Available(),
	})
}

// handleHealth is the pool-level health check.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	entries := s.pool.List()
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "healthy",
		"agents": len(names),
		"names":  names,
	})
}

func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"agents": s.pool.List()})
}

type registerRequest struct {
	Name       string         `json:"name"`
	ModulePath string         `json:"module_path"`
	Config     map[string]any `json:"config,omitempty"`
	MountPath  string         `json:"mount_path,omitempty"`
}

func (s *Server) handleRegisterAgent(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Name == "" || req.ModulePath == "" {
		writeError(w, http.StatusBadRequest, "name and module_path are required")
		return
	}

	if !s.pool.Register(r.Context(), req.Name, req.ModulePath, req.Config, req.MountPath) {
		writeError(w, http.StatusUnprocessableEntity, "registration failed for "+req.Name)
		return
	}

	entry, _ := s.pool.Entry(req.Name)
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleUnregisterAgent(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !s.pool.Unregister(r.Context(), name) {
		writeError(w, http.StatusNotFound, "agent not found: "+name)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleReloadAll reloads every registered agent.
func (s *Server) handleReloadAll(w http.ResponseWriter, r *http.Request) {
	reloaded := make([]string, 0)
	failed := make([]string, 0)
	for _, entry := range s.pool.List() {
		if s.pool.Reload(r.Context(), entry.Name) {
			reloaded = append(reloaded, entry.Name)
		} else {
			failed = append(failed, entry.Name)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"reloaded": reloaded,
		"failed":   failed,
	})
}

func (s *Server) handleReloadAgent(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !s.pool.Reload(r.Context(), name) {
		writeError(w, http.StatusNotFound, "reload failed for "+name)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reloaded", "agent": name})
}

// --- Approvals ---

func (s *Server) handleListApprovals(w http.ResponseWriter, r *http.Request) {
	status := approval.Status(r.URL.Query().Get("status"))
	items := s.approvals.List(status)
	writeJSON(w, http.StatusOK, map[string]any{
		"approvals": items,
		"count":     len(items),
	})
}

func (s *Server) handleGetApproval(w http.ResponseWriter, r *http.Request) {
	appr, err := s.approvals.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, appr)
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	s.resolveApproval(w, r, s.approvals.Approve)
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	s.resolveApproval(w, r, s.approvals.Reject)
}

func (s *Server) resolveApproval(
	w http.ResponseWriter,
	r *http.Request,
	resolve func(ctx context.Context, id string) (*approval.Approval, error),
) {
	appr, err := resolve(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, approval.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, appr)
}

func (s *Server) handleExecuteApproval(w http.ResponseWriter, r *http.Request) {
	result, err := s.approvals.Execute(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, approval.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "result": result})
}
