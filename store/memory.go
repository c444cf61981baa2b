package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"jot/models"
)

// Memory is a process-local Store for development and tests. Data is lost
// on restart.
type Memory struct {
	mu     sync.Mutex
	users  map[int64]models.User
	notes  map[int64]models.Note
	lastID int64
	now    func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		users: make(map[int64]models.User),
		notes: make(map[int64]models.Note),
		now:   time.Now,
	}
}

func (m *Memory) nextID() int64 {
	m.lastID++
	return m.lastID
}

func (m *Memory) CreateUser(_ context.Context, email, passwordHash string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Email == email {
			return models.User{}, ErrDuplicate
		}
	}
	u := models.User{ID: m.nextID(), Email: email, PasswordHash: passwordHash, CreatedAt: m.now()}
	m.users[u.ID] = u
	return u, nil
}

func (m *Memory) UserByEmail(_ context.Context, email string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, ErrNotFound
}

func (m *Memory) UserByID(_ context.Context, id int64) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return u, nil
}

func (m *Memory) InsertNote(_ context.Context, userID int64, content string) (models.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := models.Note{ID: m.nextID(), UserID: userID, Content: content, CreatedAt: m.now()}
	m.notes[n.ID] = n
	return n, nil
}

func (m *Memory) ListNotes(_ context.Context, userID int64, newestFirst bool) ([]models.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.Note, 0, len(m.notes))
	for _, n := range m.notes {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt) != newestFirst
		}
		return (a.ID < b.ID) != newestFirst
	})
	return out, nil
}

func (m *Memory) DeleteNote(_ context.Context, id, userID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.notes[id]
	if !ok || n.UserID != userID {
		return 0, nil
	}
	delete(m.notes, id)
	return 1, nil
}
