package web

import (
	"net/http"

	"github.com/JonMunkholm/csvcompare/internal/core"
	"github.com/go-chi/chi/v5"
)

// ruleSetBodyLimit bounds rule set request bodies; they carry no file data.
const ruleSetBodyLimit = 1 << 20

func (s *Server) handleListRuleSets(w http.ResponseWriter, r *http.Request) {
	ruleSets, err := s.service.ListRuleSets(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	if ruleSets == nil {
		ruleSets = []core.RuleSet{}
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"ruleSets": ruleSets})
}

func (s *Server) handleCreateRuleSet(w http.ResponseWriter, r *http.Request) {
	var in core.RuleSetInput
	if err := decodeJSON(w, r, ruleSetBodyLimit, &in); err != nil {
		respondError(w, r, err)
		return
	}

	rs, err := s.service.CreateRuleSet(r.Context(), in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, rs)
}

func (s *Server) handleGetRuleSet(w http.ResponseWriter, r *http.Request) {
	rs, err := s.service.GetRuleSet(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, rs)
}

func (s *Server) handleUpdateRuleSet(w http.ResponseWriter, r *http.Request) {
	var in core.RuleSetInput
	if err := decodeJSON(w, r, ruleSetBodyLimit, &in); err != nil {
		respondError(w, r, err)
		return
	}

	rs, err := s.service.UpdateRuleSet(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, rs)
}

func (s *Server) handleDeleteRuleSet(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteRuleSet(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MatchRuleSetsRequest carries the headers of the two files to score
// saved rule sets against.
type MatchRuleSetsRequest struct {
	File1Headers []string `json:"file1Headers"`
	File2Headers []string `json:"file2Headers"`
}

func (s *Server) handleMatchRuleSets(w http.ResponseWriter, r *http.Request) {
	var req MatchRuleSetsRequest
	if err := decodeJSON(w, r, ruleSetBodyLimit, &req); err != nil {
		respondError(w, r, err)
		return
	}

	matches, err := s.service.MatchRuleSets(r.Context(), req.File1Headers, req.File2Headers)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"matches": matches})
}
