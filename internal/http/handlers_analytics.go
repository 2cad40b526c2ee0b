package http

import (
	"net/http"

	"fintrack/internal/services"
)

func (s *Server) handleMonthlySummary(w http.ResponseWriter, r *http.Request) {
	q := NewQueryParser(r)
	month := q.Month("month", s.svc.Analytics.Today())
	if err := q.Err(); err != nil {
		writeError(w, r, err)
		return
	}
	summary, err := s.svc.Analytics.MonthlySummary(r.Context(), userID(r), q.String("household_id"), month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleCategoryBreakdown(w http.ResponseWriter, r *http.Request) {
	q := NewQueryParser(r)
	month := q.Month("month", s.svc.Analytics.Today())
	isIncome := q.Bool("is_income", false)
	if err := q.Err(); err != nil {
		writeError(w, r, err)
		return
	}
	breakdown, err := s.svc.Analytics.CategoryBreakdown(r.Context(), userID(r), q.String("household_id"), month, isIncome)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, breakdown)
}

func (s *Server) handleSpendingTrend(w http.ResponseWriter, r *http.Request) {
	q := NewQueryParser(r)
	days := q.Int("days", services.DefaultTrendDays)
	if err := q.Err(); err != nil {
		writeError(w, r, err)
		return
	}
	trend, err := s.svc.Analytics.SpendingTrend(r.Context(), userID(r), q.String("household_id"), days)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trend)
}
