package frontend

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"jot/client"
	"jot/models"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeService is the shared notes store behind any number of fakeBackends.
type fakeService struct {
	mu        sync.Mutex
	users     map[string]models.User
	passwords map[string]string
	notes     []models.Note
	lastID    int64
}

func newFakeService() *fakeService {
	return &fakeService{users: make(map[string]models.User), passwords: make(map[string]string)}
}

func (s *fakeService) backend() *fakeBackend {
	return &fakeBackend{svc: s, subs: make(map[int]func(client.AuthChange))}
}

func (s *fakeService) noteTexts(userID int64) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, n := range s.notes {
		if n.UserID == userID {
			out = append(out, n.Content)
		}
	}
	return out
}

type deleteCall struct {
	ID, UserID int64
}

// fakeBackend mimics client.Client: it holds one session and notifies
// subscribers synchronously, outside its lock.
type fakeBackend struct {
	svc *fakeService

	mu      sync.Mutex
	session *models.Session
	subs    map[int]func(client.AuthChange)
	nextSub int
	closed  bool

	inserts []string
	deletes []deleteCall
	lists   int

	insertErr  error
	listErr    error
	deleteErr  error
	signOutErr error
	beforeList func()
}

func (b *fakeBackend) GetSession(context.Context) (*models.Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.session, nil
}

func (b *fakeBackend) SignInWithPassword(_ context.Context, email, password string) (*models.Session, error) {
	b.svc.mu.Lock()
	u, ok := b.svc.users[email]
	pw := b.svc.passwords[email]
	b.svc.mu.Unlock()
	if !ok || pw != password {
		return nil, &client.APIError{Status: http.StatusUnauthorized, Message: "Invalid credentials"}
	}
	return b.setSession(u, client.SignedIn), nil
}

func (b *fakeBackend) SignUp(_ context.Context, email, password string) (*models.Session, error) {
	b.svc.mu.Lock()
	if _, ok := b.svc.users[email]; ok {
		b.svc.mu.Unlock()
		return nil, &client.APIError{Status: http.StatusBadRequest, Message: "User already exists"}
	}
	b.svc.lastID++
	u := models.User{ID: b.svc.lastID, Email: email, CreatedAt: time.Now()}
	b.svc.users[email] = u
	b.svc.passwords[email] = password
	b.svc.mu.Unlock()

	return b.setSession(u, client.SignedIn), nil
}

func (b *fakeBackend) SignOut(context.Context) error {
	b.mu.Lock()
	b.session = nil
	err := b.signOutErr
	b.mu.Unlock()
	b.emit(client.AuthChange{Event: client.SignedOut})
	return err
}

func (b *fakeBackend) OnAuthStateChange(fn func(client.AuthChange)) func() {
	b.mu.Lock()
	id := b.nextSub
	b.nextSub++
	b.subs[id] = fn
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

func (b *fakeBackend) InsertNote(_ context.Context, userID int64, content string) (models.Note, error) {
	b.mu.Lock()
	err := b.insertErr
	b.inserts = append(b.inserts, content)
	b.mu.Unlock()
	if err != nil {
		return models.Note{}, err
	}

	b.svc.mu.Lock()
	defer b.svc.mu.Unlock()
	b.svc.lastID++
	n := models.Note{ID: b.svc.lastID, UserID: userID, Content: content, CreatedAt: time.Now()}
	b.svc.notes = append(b.svc.notes, n)
	return n, nil
}

func (b *fakeBackend) ListNotes(_ context.Context, userID int64) ([]models.Note, error) {
	b.mu.Lock()
	b.lists++
	err, hook := b.listErr, b.beforeList
	b.mu.Unlock()
	if err != nil {
		return nil, err
	}

	b.svc.mu.Lock()
	var out []models.Note
	for _, n := range b.svc.notes {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	b.svc.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })

	if hook != nil {
		hook()
	}
	return out, nil
}

func (b *fakeBackend) DeleteNote(_ context.Context, id, userID int64) error {
	b.mu.Lock()
	err := b.deleteErr
	b.deletes = append(b.deletes, deleteCall{id, userID})
	b.mu.Unlock()
	if err != nil {
		return err
	}

	b.svc.mu.Lock()
	defer b.svc.mu.Unlock()
	kept := b.svc.notes[:0]
	for _, n := range b.svc.notes {
		if n.ID == id && n.UserID == userID {
			continue
		}
		kept = append(kept, n)
	}
	b.svc.notes = kept
	return nil
}

func (b *fakeBackend) Close() {
	b.mu.Lock()
	b.closed = true
	b.subs = make(map[int]func(client.AuthChange))
	b.mu.Unlock()
}

func (b *fakeBackend) setSession(u models.User, ev client.Event) *models.Session {
	s := &models.Session{AccessToken: "at", RefreshToken: "rt", ExpiresAt: time.Now().Add(time.Hour), User: u}
	b.mu.Lock()
	b.session = s
	b.mu.Unlock()
	b.emit(client.AuthChange{Event: ev, Session: s})
	return s
}

func (b *fakeBackend) emit(ch client.AuthChange) {
	b.mu.Lock()
	subs := make([]func(client.AuthChange), 0, len(b.subs))
	for _, fn := range b.subs {
		subs = append(subs, fn)
	}
	b.mu.Unlock()
	for _, fn := range subs {
		fn(ch)
	}
}

func (b *fakeBackend) set(fn func(b *fakeBackend)) {
	b.mu.Lock()
	fn(b)
	b.mu.Unlock()
}

func (b *fakeBackend) insertCalls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.inserts...)
}

func (b *fakeBackend) listCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lists
}
