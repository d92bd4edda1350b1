package service

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/movebridge/relofund/internal/auth"
)

// AuthService handles account registration and login.
type AuthService struct {
	authenticator *auth.PasswordAuthenticator
	jwtManager    *auth.JWTManager
}

// NewAuthService creates the auth HTTP service.
func NewAuthService(authenticator *auth.PasswordAuthenticator, jwtManager *auth.JWTManager) *AuthService {
	return &AuthService{authenticator: authenticator, jwtManager: jwtManager}
}

// Register mounts the auth routes on the mux.
func (s *AuthService) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/auth/register", s.register)
	mux.HandleFunc("POST /v1/auth/login", s.login)
}

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type sessionResponse struct {
	AccountID string `json:"account_id"`
	Token     string `json:"token"`
}

func (s *AuthService) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json"})
		return
	}

	account, err := s.authenticator.Register(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrWeakPassword):
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		case errors.Is(err, auth.ErrEmailExists):
			writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
		default:
			slog.Error("Registration failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "registration failed"})
		}
		return
	}

	token, err := s.jwtManager.Generate(account)
	if err != nil {
		slog.Error("Token generation failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "registration failed"})
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{AccountID: account.ID, Token: token})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *AuthService) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json"})
		return
	}

	account, err := s.authenticator.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: auth.ErrInvalidCredentials.Error()})
		return
	}

	token, err := s.jwtManager.Generate(account)
	if err != nil {
		slog.Error("Token generation failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "login failed"})
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{AccountID: account.ID, Token: token})
}
