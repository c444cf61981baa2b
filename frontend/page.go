// Package frontend serves the note page: one Page per browser, each with
// its own backend client, switching between the sign-in forms and the note
// list as the client's session changes.
package frontend

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"jot/client"
	"jot/metrics"
	"jot/models"
)

var (
	ErrNotAuthenticated = errors.New("not signed in")
	ErrMissingElement   = errors.New("required element missing")
)

const (
	ModeLogin    = "login"
	ModeRegister = "register"
)

// authChangeTimeout bounds the note reload triggered by a session change
// that did not come from a request.
const authChangeTimeout = 10 * time.Second

// Backend is the session and notes client a Page drives. *client.Client
// satisfies it.
type Backend interface {
	GetSession(ctx context.Context) (*models.Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error)
	SignUp(ctx context.Context, email, password string) (*models.Session, error)
	SignOut(ctx context.Context) error
	OnAuthStateChange(fn func(client.AuthChange)) (unsubscribe func())

	InsertNote(ctx context.Context, userID int64, content string) (models.Note, error)
	ListNotes(ctx context.Context, userID int64) ([]models.Note, error)
	DeleteNote(ctx context.Context, id, userID int64) error

	Close()
}

// Page holds what one browser sees. Its lock is never held while the
// backend is called, so requests from the same browser can overlap.
type Page struct {
	id      string
	backend Backend
	log     *slog.Logger

	mu           sync.Mutex
	user         *models.User
	gen          uint64 // bumped whenever the principal changes
	notes        []models.Note
	input        string
	focus        bool
	alert        string
	mode         string
	email        string
	scratch      []string
	scratchInput string
	scratchFocus bool
	lastSeen     time.Time
	unsubscribe  func()
	closed       bool
}

func NewPage(id string, backend Backend, log *slog.Logger) *Page {
	return &Page{
		id:       id,
		backend:  backend,
		log:      log.With("page", id),
		mode:     ModeLogin,
		lastSeen: time.Now(),
	}
}

func (p *Page) ID() string { return p.id }

// Start subscribes to session changes and resolves the initial state from
// any session the backend already holds.
func (p *Page) Start(ctx context.Context) {
	unsubscribe := p.backend.OnAuthStateChange(p.handleAuthChange)
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		unsubscribe()
		return
	}
	p.unsubscribe = unsubscribe
	p.mu.Unlock()

	s, err := p.backend.GetSession(ctx)
	if err != nil {
		p.log.Warn("session check failed", "err", err)
	}
	p.applySession(ctx, s)
}

// Close detaches the page from its backend.
func (p *Page) Close() {
	p.mu.Lock()
	unsubscribe := p.unsubscribe
	p.unsubscribe = nil
	p.closed = true
	p.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	p.backend.Close()
}

func (p *Page) touch(now time.Time) {
	p.mu.Lock()
	p.lastSeen = now
	p.mu.Unlock()
}

func (p *Page) idleSince() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastSeen
}

func (p *Page) principal() (*models.User, uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.user, p.gen
}

// AddNote saves text for the current principal and reloads the list.
// Whitespace-only text is ignored.
func (p *Page) AddNote(ctx context.Context, text string) error {
	content := strings.TrimSpace(text)
	if content == "" {
		p.log.Debug("ignored empty note")
		p.mu.Lock()
		p.input = text
		p.mu.Unlock()
		return nil
	}

	user, _ := p.principal()
	if user == nil {
		return ErrNotAuthenticated
	}

	if _, err := p.backend.InsertNote(ctx, user.ID, content); err != nil {
		p.persistenceFailed("create", err)
		p.mu.Lock()
		p.input = text
		p.mu.Unlock()
		return err
	}
	metrics.NotesCreated.Inc()

	p.mu.Lock()
	p.input = ""
	p.focus = true
	p.mu.Unlock()

	return p.LoadNotes(ctx)
}

// DeleteNote deletes note id. The request is always scoped to the current
// principal.
func (p *Page) DeleteNote(ctx context.Context, id int64) error {
	user, _ := p.principal()
	if user == nil {
		return ErrNotAuthenticated
	}

	if err := p.backend.DeleteNote(ctx, id, user.ID); err != nil {
		p.persistenceFailed("delete", err)
		return err
	}
	metrics.NotesDeleted.Inc()

	return p.LoadNotes(ctx)
}

// LoadNotes replaces the list with the principal's notes, newest first. A
// result that arrives after the principal changed is dropped.
func (p *Page) LoadNotes(ctx context.Context) error {
	user, gen := p.principal()
	if user == nil {
		return ErrNotAuthenticated
	}

	notes, err := p.backend.ListNotes(ctx, user.ID)
	if err != nil {
		p.persistenceFailed("read", err)
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.gen != gen {
		p.log.Debug("dropping notes for previous principal", "user_id", user.ID)
		return nil
	}
	p.notes = notes
	p.log.Debug("rendering notes", "count", len(notes))
	return nil
}

func (p *Page) persistenceFailed(op string, err error) {
	metrics.PersistenceErrors.WithLabelValues(op).Inc()
	p.log.Error("note request failed", "op", op, "err", err)
}

// AddScratchNote appends text to the page-local scratch pad.
func (p *Page) AddScratchNote(text string) {
	content := strings.TrimSpace(text)
	p.log.Debug("save clicked", "text_length", len(content))

	p.mu.Lock()
	defer p.mu.Unlock()
	if content == "" {
		p.log.Debug("ignored empty note")
		p.scratchInput = text
		return
	}
	p.scratch = append(p.scratch, content)
	p.scratchInput = ""
	p.scratchFocus = true
	p.log.Debug("note added", "total", len(p.scratch))
}

func (p *Page) SignIn(ctx context.Context, email, password string) error {
	s, err := p.backend.SignInWithPassword(ctx, email, password)
	if err != nil {
		p.authFailed("sign in", email, err)
		return err
	}
	p.applySession(ctx, s)
	return nil
}

func (p *Page) SignUp(ctx context.Context, email, password string) error {
	s, err := p.backend.SignUp(ctx, email, password)
	if err != nil {
		p.authFailed("sign up", email, err)
		return err
	}
	p.applySession(ctx, s)
	return nil
}

// SignOut always leaves the page signed out, even when the backend call
// fails.
func (p *Page) SignOut(ctx context.Context) error {
	if err := p.backend.SignOut(ctx); err != nil {
		p.log.Warn("sign out failed", "err", err)
	}
	p.signedOut()
	return nil
}

func (p *Page) authFailed(action, email string, err error) {
	p.log.Info(action+" rejected", "email", email, "err", err)

	msg := "Could not " + action + ", please try again"
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		msg = apiErr.Message
	}

	p.mu.Lock()
	p.alert = msg
	p.email = email
	p.mu.Unlock()
}

// handleAuthChange is the single path by which the backend's own session
// changes reach the page.
func (p *Page) handleAuthChange(ch client.AuthChange) {
	metrics.AuthEvents.WithLabelValues(string(ch.Event)).Inc()
	p.log.Debug("auth state changed", "event", ch.Event)

	if ch.Event == client.SignedOut || ch.Session == nil {
		p.signedOut()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), authChangeTimeout)
	defer cancel()
	p.applySession(ctx, ch.Session)
}

// applySession enters the state s implies. Notes are reloaded only when the
// principal actually changed.
func (p *Page) applySession(ctx context.Context, s *models.Session) {
	if s == nil {
		p.signedOut()
		return
	}

	p.mu.Lock()
	changed := p.user == nil || p.user.ID != s.User.ID
	if changed {
		u := s.User
		p.user = &u
		p.gen++
		p.notes = nil
		p.input = ""
		p.alert = ""
		p.email = u.Email
	}
	p.mu.Unlock()

	if changed {
		_ = p.LoadNotes(ctx)
	}
}

func (p *Page) signedOut() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.user != nil {
		p.gen++
	}
	p.user = nil
	p.notes = nil
	p.input = ""
	p.focus = false
	p.email = ""
	p.mode = ModeLogin
}

// SetMode picks which auth form is shown.
func (p *Page) SetMode(mode string) {
	if mode != ModeLogin && mode != ModeRegister {
		return
	}
	p.mu.Lock()
	p.mode = mode
	p.mu.Unlock()
}

// View is a snapshot of the page for one render.
type View struct {
	Authenticated bool
	Email         string
	Mode          string
	Rows          []Row
	Input         string
	Focus         bool
	Alert         string
}

// View snapshots the page. The alert and the focus request are delivered
// once.
func (p *Page) View() View {
	p.mu.Lock()
	defer p.mu.Unlock()

	v := View{
		Authenticated: p.user != nil,
		Email:         p.email,
		Mode:          p.mode,
		Rows:          RenderNotes(p.notes),
		Input:         p.input,
		Focus:         p.focus,
		Alert:         p.alert,
	}
	p.focus = false
	p.alert = ""
	return v
}

func (p *Page) ScratchView() View {
	p.mu.Lock()
	defer p.mu.Unlock()

	v := View{
		Rows:  RenderScratch(p.scratch),
		Input: p.scratchInput,
		Focus: p.scratchFocus,
	}
	p.scratchFocus = false
	return v
}
