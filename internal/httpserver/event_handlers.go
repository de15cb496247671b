package httpserver

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/freespacenet/fsn-rewards/internal/engine"
)

// eventRequest is the shared payload for action event endpoints.
type eventRequest struct {
	UserID string `json:"user_id"`
}

// handleEvent runs the given orchestrator with fail-quiet semantics: a denied
// grant is still a 200 with xp_granted=false, because the platform action
// that triggered the event has already happened. Only store failures are
// surfaced as 5xx.
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request,
	handle func(ctx context.Context, userID string) (engine.ActionResult, error)) {

	var req eventRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		s.respondError(w, http.StatusBadRequest, errMissingUserID)
		return
	}

	result, err := handle(r.Context(), req.UserID)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleVaultUpload(w http.ResponseWriter, r *http.Request) {
	s.handleEvent(w, r, s.engine.HandleVaultUpload)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	s.handleEvent(w, r, s.engine.HandleDailyLogin)
}

func (s *Server) handleProfileUpdate(w http.ResponseWriter, r *http.Request) {
	s.handleEvent(w, r, s.engine.HandleProfileUpdate)
}

func (s *Server) handleAgentMessage(w http.ResponseWriter, r *http.Request) {
	s.handleEvent(w, r, s.engine.HandleAgentMessage)
}

// handleGenericEvent attempts a bare grant for any action name. Unknown
// actions come back granted=false, reason=unknown_action; they are never a
// client error. Internal actions like the referral payout cannot be reported
// from outside, so a caller can never mint them for an arbitrary user.
func (s *Server) handleGenericEvent(w http.ResponseWriter, r *http.Request) {
	action := chi.URLParam(r, "action")
	if rule, ok := s.engine.Rules().Lookup(action); ok && rule.Internal {
		s.respondError(w, http.StatusForbidden, errInternalAction)
		return
	}

	var req eventRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		s.respondError(w, http.StatusBadRequest, errMissingUserID)
		return
	}

	att, err := s.engine.AttemptGrant(r.Context(), req.UserID, action)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}
	s.respondJSON(w, http.StatusOK, att)
}
