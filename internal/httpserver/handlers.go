package httpserver

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/freespacenet/fsn-rewards/internal/metrics"
	"github.com/freespacenet/fsn-rewards/internal/userstore"
	"github.com/freespacenet/fsn-rewards/internal/version"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Info(),
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	_, _ = w.Write([]byte(metrics.FormatPrometheus(s.collector.GetSnapshot())))
}

// handleRules returns the active rule table so platform services can show
// users what each action is worth.
func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{
		"rules": s.engine.Rules().All(),
	})
}

type nameClaimRequest struct {
	UserID   string `json:"user_id"`
	Name     string `json:"name"`
	Referrer string `json:"referrer,omitempty"`
}

// handleNameClaim registers a .rep name for the user, then awards the claim
// XP. Name conflicts are a real client error (409), unlike grant denials.
func (s *Server) handleNameClaim(w http.ResponseWriter, r *http.Request) {
	var req nameClaimRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		s.respondError(w, http.StatusBadRequest, errMissingUserID)
		return
	}

	user, err := s.identity.ClaimName(r.Context(), req.UserID, req.Name, req.Referrer)
	if err != nil {
		if errors.Is(err, userstore.ErrNameTaken) {
			s.respondError(w, http.StatusConflict, err)
		} else {
			s.respondError(w, http.StatusBadRequest, err)
		}
		return
	}

	result, err := s.engine.HandleNameClaim(r.Context(), req.UserID)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}

	s.debugf("name claim: user=%s name=%s xp_granted=%v", user.ID, user.Name, result.XPGranted)
	s.respondJSON(w, http.StatusOK, map[string]any{
		"user":   user,
		"reward": result,
	})
}

func (s *Server) handleUserStatus(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	snap, err := s.engine.Snapshot(r.Context(), userID)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}
	s.respondJSON(w, http.StatusOK, snap)
}

func (s *Server) handleUserLedger(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			s.respondError(w, http.StatusBadRequest, errors.New("limit must be between 1 and 500"))
			return
		}
		limit = n
	}

	events, err := s.ledger.ListRecent(r.Context(), userID, limit)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"user_id": userID,
		"events":  events,
	})
}
