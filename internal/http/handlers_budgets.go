package http

import (
	"net/http"

	"fintrack/internal/services"
)

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	q := NewQueryParser(r)
	month := q.Month("month", s.svc.Analytics.Today())
	if err := q.Err(); err != nil {
		writeError(w, r, err)
		return
	}
	budgets, err := s.svc.Budgets.List(r.Context(), userID(r), q.String("household_id"), month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, budgets)
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var in services.BudgetInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	b, err := s.svc.Budgets.Create(r.Context(), userID(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (s *Server) handleBudgetStatus(w http.ResponseWriter, r *http.Request) {
	q := NewQueryParser(r)
	month := q.Month("month", s.svc.Analytics.Today())
	if err := q.Err(); err != nil {
		writeError(w, r, err)
		return
	}
	status, err := s.svc.Analytics.BudgetStatus(r.Context(), userID(r), q.String("household_id"), month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	var p services.BudgetPatch
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, r, err)
		return
	}
	b, err := s.svc.Budgets.Update(r.Context(), userID(r), r.PathValue("id"), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Budgets.Delete(r.Context(), userID(r), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}
