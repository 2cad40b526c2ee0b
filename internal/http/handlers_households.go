package http

import (
	"net/http"
)

type householdRequest struct {
	Name string `json:"name"`
}

type joinRequest struct {
	InviteCode string `json:"invite_code"`
}

func (s *Server) handleListHouseholds(w http.ResponseWriter, r *http.Request) {
	hs, err := s.svc.Households.List(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, hs)
}

func (s *Server) handleCreateHousehold(w http.ResponseWriter, r *http.Request) {
	var req householdRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	h, err := s.svc.Households.Create(r.Context(), userID(r), sanitizeInput(req.Name))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, h)
}

func (s *Server) handleJoinHousehold(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	h, err := s.svc.Households.Join(r.Context(), userID(r), sanitizeInput(req.InviteCode))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

func (s *Server) handleGetHousehold(w http.ResponseWriter, r *http.Request) {
	h, err := s.svc.Households.Get(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := s.svc.Households.Members(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

func (s *Server) handleRegenerateCode(w http.ResponseWriter, r *http.Request) {
	h, err := s.svc.Households.RegenerateCode(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	err := s.svc.Households.RemoveMember(r.Context(), userID(r), r.PathValue("id"), r.PathValue("user_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}

func (s *Server) handleLeaveHousehold(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Households.Leave(r.Context(), userID(r), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}
