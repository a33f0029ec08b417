package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"flight_spotter/internal/auth"
	"flight_spotter/internal/database"
	"flight_spotter/internal/models"
)

type registerRequest struct {
	Username string `json:"username" validate:"required,alphanum,min=1,max=30"`
	Password string `json:"password" validate:"required,min=5,max=72"`
	Email    string `json:"email" validate:"required,email,max=254"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type tokenResponse struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

type userResponse struct {
	User    *models.User            `json:"user"`
	Flights []*models.SpottedFlight `json:"flights"`
}

// handleRegister serves POST /user/register
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeBody(w, r, &req) {
		return
	}

	hash, err := auth.HashPassword(req.Password, s.BcryptCost)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	user, err := s.Users.Create(r.Context(), req.Username, hash, req.Email)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.writeToken(w, r, http.StatusCreated, user)
}

// handleLogin serves POST /user/login. Unknown users and wrong passwords get the same answer.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, hash, err := s.Users.GetWithPassword(r.Context(), req.Username)
	if err != nil && !errors.Is(err, database.ErrUserNotFound) {
		writeDomainError(w, r, err)
		return
	}
	if err != nil || !auth.CheckPassword(hash, req.Password) {
		writeError(w, http.StatusUnauthorized, "Invalid username/password")
		return
	}

	s.writeToken(w, r, http.StatusOK, user)
}

// handleLogout serves POST /user/logout. Tokens are stateless; the client discards its copy.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logout successful"})
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.Users.List(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]*models.User{"users": users})
}

// handleGetUser serves GET /user/{username} with the user's spotted flights
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.Users.Get(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	flights, err := s.Flights.ListByUser(r.Context(), user.ID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, userResponse{User: user, Flights: flights})
}

// handleDeleteUser serves DELETE /user/{username}
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if err := s.Users.Delete(r.Context(), username); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": username})
}

func (s *Server) writeToken(w http.ResponseWriter, r *http.Request, status int, user *models.User) {
	token, err := s.Tokens.GenerateToken(user.Username)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, status, tokenResponse{User: user, Token: token})
}
