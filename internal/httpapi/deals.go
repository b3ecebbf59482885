// internal/httpapi/deals.go
package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	apperrors "drift-workers/internal/common/errors"
	"drift-workers/internal/common/validation"
	"drift-workers/internal/deals"
	"drift-workers/internal/insights"
	"drift-workers/internal/models"
	"drift-workers/internal/risk"
)

func (s *Server) listDeals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := deals.Filter{
		Search:   q.Get("q"),
		Priority: models.Priority(strings.ToLower(q.Get("priority"))),
		Sort:     deals.ParseSortKey(q.Get("sort")),
	}

	var err error
	if f.Dir, err = deals.ParseDirection(q.Get("dir")); err != nil {
		s.writeError(w, r, apperrors.NewParseError("query parameter", err))
		return
	}
	if f.Page, err = intParam(q.Get("page")); err != nil {
		s.writeError(w, r, err)
		return
	}
	if f.PageSize, err = intParam(q.Get("pageSize")); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.deals.Query(f))
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, apperrors.NewParseError("query parameter", fmt.Errorf("%q is not a non-negative integer", v))
	}
	return n, nil
}

func (s *Server) getDeal(w http.ResponseWriter, r *http.Request) {
	d, err := s.deals.Deal(r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) createDeal(w http.ResponseWriter, r *http.Request) {
	var d models.Deal
	if err := decode(w, r, &d, false); err != nil {
		s.writeError(w, r, err)
		return
	}
	created, err := s.deals.CreateDeal(r.Context(), d)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// updateDeal takes the ID from the path; an ID in the body is ignored.
func (s *Server) updateDeal(w http.ResponseWriter, r *http.Request) {
	var d models.Deal
	if err := decode(w, r, &d, false); err != nil {
		s.writeError(w, r, err)
		return
	}
	d.ID = r.PathValue("id")
	updated, err := s.deals.UpdateDeal(r.Context(), d)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

type followUpRequest struct {
	Preferences *models.AgentPreferences `json:"preferences,omitempty"`
}

type followUpResponse struct {
	DealID string `json:"dealId"`
	Draft  string `json:"draft"`
}

func (s *Server) generateFollowUp(w http.ResponseWriter, r *http.Request) {
	if s.generator == nil {
		s.writeError(w, r, apperrors.NewBusinessRuleError("Follow-up drafts unavailable", "no generator configured"))
		return
	}

	var req followUpRequest
	if err := decode(w, r, &req, true); err != nil {
		s.writeError(w, r, err)
		return
	}

	id := r.PathValue("id")
	deal, err := s.deals.Deal(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	prefs := s.deals.Preferences()
	if req.Preferences != nil {
		if res := validation.ValidateStruct(*req.Preferences); !res.Valid {
			s.writeError(w, r, apperrors.NewBusinessRuleError("Agent preferences validation failed", res.Summary()))
			return
		}
		prefs = *req.Preferences
	}

	draft, err := s.generator.Generate(r.Context(), deal, prefs)
	if err != nil {
		if _, ok := apperrors.AsStandard(err); !ok {
			err = apperrors.NewFollowUpGenerationError(err)
		}
		s.writeError(w, r, err)
		return
	}
	if _, err := s.deals.SetFollowUp(r.Context(), id, draft); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, followUpResponse{DealID: id, Draft: draft})
}

func (s *Server) getInsights(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, insights.Compute(s.deals.Deals()))
}

type scoreRequest struct {
	Deal    models.Deal            `json:"deal"`
	Profile *risk.WeightingProfile `json:"profile,omitempty"`
}

type scoreResponse struct {
	risk.Assessment
	Components risk.Components       `json:"components"`
	Profile    risk.WeightingProfile `json:"profile"`
}

// scoreDeal scores an ad-hoc deal without storing it.
func (s *Server) scoreDeal(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if err := decode(w, r, &req, false); err != nil {
		s.writeError(w, r, err)
		return
	}

	deal := req.Deal
	deal.Normalize()

	weighting := s.deals.Profile().Weighting()
	if req.Profile != nil {
		var p models.UserProfile
		p.SetWeighting(*req.Profile)
		if res := validation.ValidateStruct(p); !res.Valid {
			s.writeError(w, r, apperrors.NewProfileValidationError(res.Summary()))
			return
		}
		weighting = *req.Profile
	}

	a, c := risk.ComputeDetailed(deal.RiskInput(), weighting)
	writeJSON(w, http.StatusOK, scoreResponse{Assessment: a, Components: c, Profile: weighting})
}
