package http

import (
	"net/http"

	"fintrack/internal/importer"
)

func (s *Server) handleImportPreview(w http.ResponseWriter, r *http.Request) {
	up, err := readUpload(w, r, s.maxUploadBytes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	preview, err := s.svc.Imports.Preview(up.Filename, up.Data)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

func (s *Server) handleImportConfirm(w http.ResponseWriter, r *http.Request) {
	up, err := readUpload(w, r, s.maxUploadBytes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	negate, err := formBool(up.Form, "negate_amounts")
	if err != nil {
		writeError(w, r, err)
		return
	}
	mapping := importer.Mapping{
		DateColumn:        up.Form.Get("date_column"),
		AmountColumn:      up.Form.Get("amount_column"),
		DescriptionColumn: up.Form.Get("description_column"),
		CategoryID:        up.Form.Get("category_id"),
		DateFormat:        up.Form.Get("date_format"),
		NegateAmounts:     negate,
		HouseholdID:       up.Form.Get("household_id"),
	}
	result, err := s.svc.Imports.Confirm(r.Context(), userID(r), up.Filename, up.Data, mapping)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
