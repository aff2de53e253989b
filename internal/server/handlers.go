package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/claude/coachwizard/internal/apiclient"
	"github.com/claude/coachwizard/internal/models"
	"github.com/claude/coachwizard/internal/wizard"
	"github.com/go-chi/chi/v5"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// errorStatus maps a wizard error kind to an HTTP status.
func errorStatus(kind wizard.Kind) int {
	switch kind {
	case wizard.KindValidation:
		return http.StatusBadRequest
	case wizard.KindSessionMissing, wizard.KindOutOfOrder, wizard.KindPending,
		wizard.KindSuperseded, wizard.KindPlanIncomplete:
		return http.StatusConflict
	case wizard.KindRejected:
		return http.StatusUnprocessableEntity
	case wizard.KindNetwork, wizard.KindPlanUnavailable:
		return http.StatusBadGateway
	case wizard.KindPlanNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Error    string `json:"error"`
	Kind     string `json:"kind,omitempty"`
	Field    string `json:"field,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	var we *wizard.Error
	if !errors.As(err, &we) {
		s.log.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
		return
	}
	body := errorBody{Error: we.Error(), Kind: string(we.Kind), Field: we.Field}
	if we.Redirect != 0 {
		body.Redirect = we.Redirect.Route()
	}
	writeJSON(w, errorStatus(we.Kind), body)
}

// decode reads a JSON request body into v.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON: " + err.Error(), Kind: string(wizard.KindValidation)})
		return false
	}
	return true
}

// gate answers 303 to the corrective route when step may not be shown.
func (s *Server) gate(w http.ResponseWriter, r *http.Request, c *wizard.Controller, step wizard.Step) bool {
	err := c.Enter(r.Context(), step)
	if err == nil {
		return true
	}
	if to := wizard.RedirectOf(err); to != 0 {
		http.Redirect(w, r, to.Route(), http.StatusSeeOther)
		return false
	}
	s.writeError(w, err)
	return false
}

func (s *Server) current(r *http.Request) *wizard.Controller {
	return s.controller(namespaceFromContext(r))
}

type nextBody struct {
	Next string `json:"next"`
}

func (s *Server) handleRegisterOptions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{
		"genders":       models.Genders,
		"fitnessLevels": s.catalog.Options(r.Context(), apiclient.FitnessLevels, ""),
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var p models.Profile
	if !s.decode(w, r, &p) {
		return
	}
	id, err := s.current(r).StartSession(r.Context(), p)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"userId": id,
		"next":   wizard.Sport.Route(),
	})
}

func (s *Server) handleSportOptions(w http.ResponseWriter, r *http.Request) {
	if !s.gate(w, r, s.current(r), wizard.Sport) {
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{
		"sports": s.catalog.Options(r.Context(), apiclient.Sports, ""),
		"levels": s.catalog.Options(r.Context(), apiclient.FitnessLevels, ""),
	})
}

func (s *Server) handleSport(w http.ResponseWriter, r *http.Request) {
	var sel models.SportSelection
	if !s.decode(w, r, &sel) {
		return
	}
	if err := s.current(r).SubmitSport(r.Context(), sel); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nextBody{Next: wizard.Competition.Route()})
}

func (s *Server) handleCompetitionOptions(w http.ResponseWriter, r *http.Request) {
	c := s.current(r)
	if !s.gate(w, r, c, wizard.Competition) {
		return
	}
	st, err := c.Status(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sport":            st.SelectedSport,
		"competitionTypes": s.catalog.Options(r.Context(), apiclient.CompetitionTypes, ""),
		"formats":          s.catalog.Options(r.Context(), apiclient.SportFormats, st.SelectedSport),
		"levels":           s.catalog.Options(r.Context(), apiclient.CompetitionLevels, ""),
	})
}

func (s *Server) handleCompetition(w http.ResponseWriter, r *http.Request) {
	var comp models.Competition
	if !s.decode(w, r, &comp) {
		return
	}
	if err := s.current(r).SubmitCompetition(r.Context(), comp); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nextBody{Next: wizard.History.Route()})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	c := s.current(r)
	if !s.gate(w, r, c, wizard.History) {
		return
	}
	resp := map[string]any{}
	lists, err := c.LoadHistory(r.Context())
	if err != nil {
		// Keep the page usable with whatever was recorded locally.
		resp["warning"] = err.Error()
		lists = c.History()
	}
	resp["injuries"] = lists.Injuries
	resp["achievements"] = lists.Achievements
	resp["severities"] = models.InjurySeverities
	resp["categories"] = models.AchievementCategories
	resp["next"] = wizard.Diet.Route()
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAddInjury(w http.ResponseWriter, r *http.Request) {
	var rec models.InjuryRecord
	if !s.decode(w, r, &rec) {
		return
	}
	created, err := s.current(r).AddInjury(r.Context(), rec)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleAddAchievement(w http.ResponseWriter, r *http.Request) {
	var rec models.AchievementRecord
	if !s.decode(w, r, &rec) {
		return
	}
	created, err := s.current(r).AddAchievement(r.Context(), rec)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleDietOptions(w http.ResponseWriter, r *http.Request) {
	if !s.gate(w, r, s.current(r), wizard.Diet) {
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{
		"dietTypes": s.catalog.Options(r.Context(), apiclient.DietTypes, ""),
	})
}

func (s *Server) handleDiet(w http.ResponseWriter, r *http.Request) {
	var d models.DietPreferences
	if !s.decode(w, r, &d) {
		return
	}
	c := s.current(r)
	if err := c.SubmitDiet(r.Context(), d); err != nil {
		s.writeError(w, err)
		return
	}
	st, err := c.Status(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nextBody{Next: planRoute(st.SessionID)})
}

func planRoute(id string) string {
	return wizard.Plan.Route() + "/" + url.PathEscape(id)
}

func (s *Server) handlePlanRedirect(w http.ResponseWriter, r *http.Request) {
	st, err := s.current(r).Status(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if st.SessionID == "" {
		http.Redirect(w, r, wizard.Profile.Route(), http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, planRoute(st.SessionID), http.StatusSeeOther)
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	plan, err := s.current(r).FetchPlan(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (s *Server) handleStartOver(w http.ResponseWriter, r *http.Request) {
	if err := s.current(r).Restart(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nextBody{Next: wizard.Profile.Route()})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.current(r).Status(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
