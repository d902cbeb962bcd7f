package server

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/hearthd/hearth/internal/audit"
	"github.com/hearthd/hearth/internal/capability"
	"github.com/hearthd/hearth/internal/firewall"
	"github.com/hearthd/hearth/internal/forge"
	"github.com/hearthd/hearth/internal/model"
	"github.com/hearthd/hearth/internal/store"
)

func (s *Server) handleForgeCreate(w http.ResponseWriter, r *http.Request) {
	var spec model.CapabilitySpec
	if err := readJSON(r, &spec); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.deps.Forge.Create(r.Context(), spec)
	if err != nil {
		var specErr *forge.SpecError
		switch {
		case errors.As(err, &specErr):
			writeError(w, http.StatusBadRequest, specErr.Error())
		case errors.Is(err, store.ErrAlreadyRegistered):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, forge.ErrPersist):
			s.deps.Logger.Error("synthesis persistence failure", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "persistence failure")
		default:
			s.deps.Logger.Error("synthesis failed unexpectedly", zap.Error(err))
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	// Compile failures, blocked, and pending results are all 200s; they
	// are reported outcomes, not transport errors.
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSafetyStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"enabled": s.deps.Governor.IsAutonomous(),
		"mode":    s.deps.Governor.Mode(),
	})
}

func (s *Server) handleSafetyToggle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled bool   `json:"enabled"`
		Warrant string `json:"warrant"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Moving toward autonomy needs a warrant; moving toward HITL is the
	// safe direction and never requires one.
	if req.Enabled {
		if req.Warrant == "" {
			writeError(w, http.StatusForbidden, "enabling autonomy requires a warrant")
			return
		}
		if err := s.deps.Warrants.Consume(req.Warrant); err != nil {
			writeError(w, http.StatusForbidden, err.Error())
			return
		}
	}

	if err := s.deps.Governor.SetAutonomous(req.Enabled, model.TriggerManual, "operator toggle"); err != nil {
		s.deps.Logger.Error("safety toggle failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"enabled": s.deps.Governor.IsAutonomous(),
		"mode":    s.deps.Governor.Mode(),
		"message": "safety state updated",
	})
}

func (s *Server) handleKillSwitch(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Governor.KillSwitch("operator kill switch"); err != nil {
		s.deps.Logger.Error("kill switch failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"enabled": false,
		"mode":    s.deps.Governor.Mode(),
		"message": "kill switch engaged",
	})
}

func (s *Server) handleReloadStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Watcher.Status())
}

func (s *Server) handleReloadList(w http.ResponseWriter, r *http.Request) {
	descs, err := s.deps.Registry.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	generated := make([]model.CapabilityDescriptor, 0)
	for _, d := range descs {
		if d.Tier == model.TierGenerated {
			d.Normalize()
			generated = append(generated, d)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"capabilities": generated})
}

func (s *Server) handleReloadEnable(w http.ResponseWriter, r *http.Request) {
	s.deps.Watcher.SetEnabled(true)
	writeJSON(w, http.StatusOK, s.deps.Watcher.Status())
}

func (s *Server) handleReloadDisable(w http.ResponseWriter, r *http.Request) {
	s.deps.Watcher.SetEnabled(false)
	writeJSON(w, http.StatusOK, s.deps.Watcher.Status())
}

func (s *Server) handleReloadTrigger(w http.ResponseWriter, r *http.Request) {
	count, err := s.deps.Watcher.Trigger()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"reloaded": count,
		"status":   s.deps.Watcher.Status(),
	})
}

func (s *Server) handleCapabilityList(w http.ResponseWriter, r *http.Request) {
	descs, err := s.deps.Registry.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	for i := range descs {
		descs[i].Normalize()
	}
	writeJSON(w, http.StatusOK, map[string]any{"capabilities": descs})
}

func (s *Server) handlePromote(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name    string `json:"name"`
		Warrant string `json:"warrant"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	// Promotion is permanent; it always needs a warrant.
	if req.Warrant == "" {
		writeError(w, http.StatusForbidden, "promotion requires a warrant")
		return
	}
	if err := s.deps.Warrants.Consume(req.Warrant); err != nil {
		writeError(w, http.StatusForbidden, err.Error())
		return
	}

	desc, err := s.deps.Store.PromoteCapability(req.Name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	auditErr := s.deps.Store.Append(audit.Entry{
		Event:      audit.EventPromotion,
		Capability: desc.Name,
		Tier:       desc.Tier.String(),
		Message:    "promoted to core tier",
	})
	if auditErr != nil {
		s.deps.Logger.Error("promotion audit append failed", zap.Error(auditErr))
	}

	desc.Normalize()
	writeJSON(w, http.StatusOK, desc)
}

func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	var payload map[string]any
	if err := readJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.deps.Dispatcher.Invoke(r.Context(), name, payload)
	if err != nil {
		var denied *firewall.DeniedError
		switch {
		case errors.As(err, &denied):
			writeError(w, http.StatusForbidden, denied.Error())
		case errors.Is(err, capability.ErrUnknownCapability):
			writeError(w, http.StatusNotFound, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"result": result})
}

func (s *Server) handleApprovalList(w http.ResponseWriter, r *http.Request) {
	requests, err := s.deps.Approvals.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"approvals": requests})
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Key        string `json:"key"`
		TTLSeconds int    `json:"ttl_seconds"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.deps.Approvals.Approve(req.Key, time.Duration(req.TTLSeconds)*time.Second); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": req.Key, "status": "approved"})
}

func (s *Server) handleDeny(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Key string `json:"key"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.deps.Approvals.Deny(req.Key); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": req.Key, "status": "denied"})
}

func (s *Server) handleWarrantIssue(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason          string `json:"reason"`
		DurationSeconds int    `json:"duration_seconds"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	token, err := s.deps.Warrants.Issue(req.Reason, time.Duration(req.DurationSeconds)*time.Second)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, token)
}
