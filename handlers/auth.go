package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"jot/middleware"
	"jot/models"
	"jot/store"
	"jot/token"
)

type authRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *API) SignUp(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password required")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), a.hashCost)
	if err != nil {
		writeError(w, http.StatusBadRequest, "password not accepted")
		return
	}
	user, err := a.store.CreateUser(r.Context(), req.Email, string(hash))
	if errors.Is(err, store.ErrDuplicate) {
		writeError(w, http.StatusBadRequest, "user already registered")
		return
	}
	if err != nil {
		slog.Error("signup failed", "err", err)
		writeError(w, http.StatusInternalServerError, "could not create user")
		return
	}

	a.writeSession(w, http.StatusCreated, user)
}

func (a *API) SignIn(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	user, err := a.store.UserByEmail(r.Context(), strings.TrimSpace(req.Email))
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		slog.Error("signin lookup failed", "err", err)
	}
	if err != nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	a.writeSession(w, http.StatusOK, user)
}

func (a *API) Refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	claims, err := a.tokens.Parse(req.RefreshToken, token.Refresh)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}
	user, err := a.store.UserByID(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	a.writeSession(w, http.StatusOK, user)
}

func (a *API) CurrentUser(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	user, err := a.store.UserByID(r.Context(), userID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusUnauthorized, "user not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (a *API) writeSession(w http.ResponseWriter, status int, user models.User) {
	pair, err := a.tokens.Issue(user.ID)
	if err != nil {
		slog.Error("token generation failed", "err", err)
		writeError(w, http.StatusInternalServerError, "token generation failed")
		return
	}
	writeJSON(w, status, models.Session{
		AccessToken:  pair.Access,
		RefreshToken: pair.Refresh,
		ExpiresAt:    pair.ExpiresAt,
		User:         user,
	})
}
