// internal/httpapi/settings.go
package httpapi

import (
	"net/http"

	"drift-workers/internal/models"
)

func (s *Server) getProfile(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deals.Profile())
}

// updateProfile replaces the whole profile and rescores every deal.
func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	var p models.UserProfile
	if err := decode(w, r, &p, false); err != nil {
		s.writeError(w, r, err)
		return
	}
	updated, err := s.deals.UpdateProfile(r.Context(), p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) getPreferences(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deals.Preferences())
}

func (s *Server) updatePreferences(w http.ResponseWriter, r *http.Request) {
	var p models.AgentPreferences
	if err := decode(w, r, &p, false); err != nil {
		s.writeError(w, r, err)
		return
	}
	updated, err := s.deals.UpdatePreferences(p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
