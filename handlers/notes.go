package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"jot/middleware"
	"jot/models"
)

// ownerFilter reads the optional user_id query filter. ok is false when the
// filter names somebody other than the principal.
func ownerFilter(r *http.Request, principal int64) (ok bool, err error) {
	s := r.URL.Query().Get("user_id")
	if s == "" {
		return true, nil
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return false, err
	}
	return id == principal, nil
}

func (a *API) ListNotes(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	ok, err := ownerFilter(r, userID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user_id")
		return
	}

	newestFirst := true
	switch r.URL.Query().Get("order") {
	case "", "created_at.desc":
	case "created_at.asc":
		newestFirst = false
	default:
		writeError(w, http.StatusBadRequest, "invalid order")
		return
	}

	if !ok {
		writeJSON(w, http.StatusOK, []models.Note{})
		return
	}

	notes, err := a.store.ListNotes(r.Context(), userID, newestFirst)
	if err != nil {
		slog.Error("list notes failed", "user_id", userID, "err", err)
		writeError(w, http.StatusInternalServerError, "could not list notes")
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

func (a *API) CreateNote(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	var req struct {
		UserID  int64  `json:"user_id"`
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, "content required")
		return
	}
	if req.UserID != 0 && req.UserID != userID {
		writeError(w, http.StatusForbidden, "notes can only be created for yourself")
		return
	}

	note, err := a.store.InsertNote(r.Context(), userID, req.Content)
	if err != nil {
		slog.Error("create note failed", "user_id", userID, "err", err)
		writeError(w, http.StatusInternalServerError, "could not create note")
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

func (a *API) DeleteNote(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	noteID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	ok, err := ownerFilter(r, userID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user_id")
		return
	}
	if !ok {
		writeJSON(w, http.StatusOK, map[string]int64{"deleted": 0})
		return
	}

	affected, err := a.store.DeleteNote(r.Context(), noteID, userID)
	if err != nil {
		slog.Error("delete note failed", "note_id", noteID, "user_id", userID, "err", err)
		writeError(w, http.StatusInternalServerError, "could not delete note")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": affected})
}
