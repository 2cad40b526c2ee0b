package http

import (
	"errors"
	"net/http"

	"fintrack/internal/auth"
	"fintrack/internal/core"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string     `json:"access_token"`
	TokenType   string     `json:"token_type"`
	User        *core.User `json:"user,omitempty"`
}

func (s *Server) issueToken(w http.ResponseWriter, r *http.Request, status int, user *core.User) {
	token, err := s.svc.Tokens.Generate(user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, status, tokenResponse{AccessToken: token, TokenType: "bearer", User: user})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := s.svc.Accounts.Register(r.Context(), req.Email, sanitizeInput(req.Name), req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.logger.InfoContext(r.Context(), "User registered", "user_id", user.ID)
	s.issueToken(w, r, http.StatusCreated, user)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := s.svc.Accounts.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.issueToken(w, r, http.StatusOK, user)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.svc.Accounts.User(r.Context(), userID(r))
	if errors.Is(err, core.ErrNotFound) {
		err = auth.ErrInvalidToken
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
