package httpadapter

import (
	"net/http"
	"strings"
)

// /accounts/signup
func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	req, ok := s.credentials(w, r)
	if !ok {
		return
	}

	owner, err := s.accounts.SignUp(r.Context(), req.Username, req.Password)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, accountResponse{Username: owner.Username})
}

// /accounts/login
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	req, ok := s.credentials(w, r)
	if !ok {
		return
	}

	token, owner, err := s.accounts.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, accountResponse{Username: owner.Username, Token: token})
}

// /accounts/logout
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if s.accounts == nil {
		notFound(w)
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Local ")
	if !ok || strings.TrimSpace(token) == "" {
		writeError(w, http.StatusUnauthorized, "missing local token")
		return
	}
	if err := s.accounts.Logout(r.Context(), strings.TrimSpace(token)); err != nil {
		internalError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) credentials(w http.ResponseWriter, r *http.Request) (credentialsRequest, bool) {
	var req credentialsRequest
	if s.accounts == nil {
		notFound(w)
		return req, false
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return req, false
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON body")
		return req, false
	}
	return req, true
}
