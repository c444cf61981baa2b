package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"jot/middleware"
	"jot/models"
	"jot/token"
)

// Store is the persistence the API needs. *store.Store satisfies it.
type Store interface {
	CreateUser(ctx context.Context, email, passwordHash string) (models.User, error)
	UserByEmail(ctx context.Context, email string) (models.User, error)
	UserByID(ctx context.Context, id int64) (models.User, error)
	InsertNote(ctx context.Context, userID int64, content string) (models.Note, error)
	ListNotes(ctx context.Context, userID int64, newestFirst bool) ([]models.Note, error)
	DeleteNote(ctx context.Context, id, userID int64) (int64, error)
}

// API is the hosted notes service: credential auth plus per-user notes.
type API struct {
	store    Store
	tokens   *token.Issuer
	apiKey   string
	hashCost int
}

func NewAPI(store Store, tokens *token.Issuer, apiKey string) *API {
	return &API{store: store, tokens: tokens, apiKey: apiKey, hashCost: bcrypt.DefaultCost}
}

// Routes returns the router to mount under /api.
func (a *API) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.CORS)
	r.Use(middleware.RequireAPIKey(a.apiKey))

	r.Post("/auth/signup", a.SignUp)
	r.Post("/auth/token", a.SignIn)
	r.Post("/auth/refresh", a.Refresh)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(a.tokens))
		r.Get("/auth/user", a.CurrentUser)
		r.Get("/notes", a.ListNotes)
		r.Post("/notes", a.CreateNote)
		r.Delete("/notes/{id}", a.DeleteNote)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
