package http

import (
	"net/http"

	"fintrack/internal/services"
)

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	q := NewQueryParser(r)
	cats, err := s.svc.Categories.List(r.Context(), userID(r), q.String("household_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var in services.CategoryInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	in.Name = sanitizeInput(in.Name)
	c, err := s.svc.Categories.Create(r.Context(), userID(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var p services.CategoryPatch
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, r, err)
		return
	}
	if p.Name != nil {
		name := sanitizeInput(*p.Name)
		p.Name = &name
	}
	c, err := s.svc.Categories.Update(r.Context(), userID(r), r.PathValue("id"), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Categories.Delete(r.Context(), userID(r), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}
