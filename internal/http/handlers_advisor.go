package http

import (
	"net/http"
)

type analyzeRequest struct {
	HouseholdID string `json:"household_id"`
}

type chatRequest struct {
	Message     string `json:"message"`
	HouseholdID string `json:"household_id"`
}

type chatResponse struct {
	Response string `json:"response"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	// An empty body analyzes the caller's personal scope.
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}
	analysis, err := s.svc.Advisor.Analyze(r.Context(), userID(r), req.HouseholdID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	reply, err := s.svc.Advisor.Chat(r.Context(), userID(r), req.HouseholdID, sanitizeInput(req.Message))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{Response: reply})
}
