package http

import (
	"net/http"

	"fintrack/internal/services"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	p := NewQueryParser(r)
	q := services.TransactionQuery{
		HouseholdID: p.String("household_id"),
		StartDate:   p.Date("start_date"),
		EndDate:     p.Date("end_date"),
		CategoryID:  p.String("category_id"),
		IsIncome:    p.OptionalBool("is_income"),
		IsShared:    p.OptionalBool("is_shared"),
		Search:      p.String("search"),
		Skip:        p.Int("skip", 0),
		Limit:       p.Int("limit", services.DefaultPageSize),
	}
	if err := p.Err(); err != nil {
		writeError(w, r, err)
		return
	}
	txs, err := s.svc.Transactions.List(r.Context(), userID(r), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var in services.TransactionInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	in.Description = sanitizeInput(in.Description)
	t, err := s.svc.Transactions.Create(r.Context(), userID(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	logDebug(r, "Transaction created", "transaction_id", t.ID, "amount_cents", t.Amount.Cents)
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := s.svc.Transactions.Get(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var p services.TransactionPatch
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, r, err)
		return
	}
	if p.Description != nil {
		d := sanitizeInput(*p.Description)
		p.Description = &d
	}
	t, err := s.svc.Transactions.Update(r.Context(), userID(r), r.PathValue("id"), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Transactions.Delete(r.Context(), userID(r), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}
