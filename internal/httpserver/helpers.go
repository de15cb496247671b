package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
)

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logf("encode response: %v", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, err error) {
	s.respondJSON(w, status, map[string]any{"error": err.Error()})
}

// decodeJSON parses the request body into dst, rejecting unknown fields so
// payload typos surface during integration instead of silently dropping data.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	return nil
}

var (
	errMissingUserID  = errors.New("user_id is required")
	errInternalAction = errors.New("action is not externally reportable")
)
