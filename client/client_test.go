package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"jot/handlers"
	"jot/models"
	"jot/store"
	"jot/token"
)

const anonKey = "anon-client-test"

func newService(t *testing.T, accessTTL time.Duration) *httptest.Server {
	t.Helper()
	api := handlers.NewAPI(store.NewMemory(), token.NewIssuer("client-test", accessTTL, 24*time.Hour), anonKey)
	mux := http.NewServeMux()
	mux.Handle("/api/", http.StripPrefix("/api", api.Routes()))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type recorder struct {
	mu     sync.Mutex
	events []AuthChange
	ch     chan AuthChange
}

func record(c *Client) *recorder {
	r := &recorder{ch: make(chan AuthChange, 16)}
	c.OnAuthStateChange(func(ch AuthChange) {
		r.mu.Lock()
		r.events = append(r.events, ch)
		r.mu.Unlock()
		select {
		case r.ch <- ch:
		default:
		}
	})
	return r
}

func (r *recorder) kinds() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Event)
	}
	return out
}

func TestSignUpSignInSignOut(t *testing.T) {
	srv := newService(t, time.Hour)
	ctx := context.Background()

	c := New(srv.URL, anonKey)
	defer c.Close()
	rec := record(c)

	s, err := c.GetSession(ctx)
	require.NoError(t, err)
	require.Nil(t, s)

	s, err = c.SignUp(ctx, "a@example.com", "pw123456")
	require.NoError(t, err)
	require.Equal(t, "a@example.com", s.User.Email)

	got, err := c.GetSession(ctx)
	require.NoError(t, err)
	require.Equal(t, s.AccessToken, got.AccessToken)

	require.NoError(t, c.SignOut(ctx))
	got, err = c.GetSession(ctx)
	require.NoError(t, err)
	require.Nil(t, got)

	_, err = c.SignInWithPassword(ctx, "a@example.com", "nope")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.Status)

	_, err = c.SignInWithPassword(ctx, "a@example.com", "pw123456")
	require.NoError(t, err)

	require.Equal(t, []Event{SignedIn, SignedOut, SignedIn}, rec.kinds())
}

func TestNotes_RoundTrip(t *testing.T) {
	srv := newService(t, time.Hour)
	ctx := context.Background()

	c := New(srv.URL, anonKey)
	defer c.Close()

	_, err := c.ListNotes(ctx, 1)
	require.ErrorIs(t, err, ErrNoSession)

	s, err := c.SignUp(ctx, "n@example.com", "pw123456")
	require.NoError(t, err)
	uid := s.User.ID

	first, err := c.InsertNote(ctx, uid, "first")
	require.NoError(t, err)
	_, err = c.InsertNote(ctx, uid, "second")
	require.NoError(t, err)

	notes, err := c.ListNotes(ctx, uid)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	require.Equal(t, "second", notes[0].Content)

	require.NoError(t, c.DeleteNote(ctx, first.ID, uid))
	notes, err = c.ListNotes(ctx, uid)
	require.NoError(t, err)
	require.Len(t, notes, 1)
}

func TestDeleteNote_SendsOwnerFilter(t *testing.T) {
	var gotPath, gotUser, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser = r.URL.Query().Get("user_id")
		gotKey = r.Header.Get("apikey")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"deleted":1}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "k")
	defer c.Close()
	c.session = &models.Session{AccessToken: "t", ExpiresAt: time.Now().Add(time.Hour), User: models.User{ID: 9}}

	require.NoError(t, c.DeleteNote(context.Background(), 5, 9))
	require.Equal(t, "/api/notes/5", gotPath)
	require.Equal(t, "9", gotUser)
	require.Equal(t, "k", gotKey)
}

func TestGetSession_RefreshesExpired(t *testing.T) {
	srv := newService(t, time.Hour)
	ctx := context.Background()

	seed := New(srv.URL, anonKey)
	s, err := seed.SignUp(ctx, "r@example.com", "pw123456")
	require.NoError(t, err)
	seed.Close()

	c := New(srv.URL, anonKey)
	defer c.Close()
	rec := record(c)
	stale := *s
	stale.ExpiresAt = time.Now().Add(-time.Minute)
	c.session = &stale

	got, err := c.GetSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.True(t, got.ExpiresAt.After(time.Now()))
	require.Equal(t, []Event{TokenRefreshed}, rec.kinds())
}

func TestGetSession_RefreshFailureSignsOut(t *testing.T) {
	srv := newService(t, time.Hour)

	c := New(srv.URL, anonKey)
	defer c.Close()
	rec := record(c)
	c.session = &models.Session{RefreshToken: "bogus", ExpiresAt: time.Now().Add(-time.Minute)}

	got, err := c.GetSession(context.Background())
	require.Error(t, err)
	require.Nil(t, got)
	require.Equal(t, []Event{SignedOut}, rec.kinds())

	got, err = c.GetSession(context.Background())
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestBackgroundRefresh(t *testing.T) {
	srv := newService(t, 2*time.Second)

	c := New(srv.URL, anonKey, WithRefreshMargin(1900*time.Millisecond))
	defer c.Close()
	rec := record(c)

	_, err := c.SignUp(context.Background(), "bg@example.com", "pw123456")
	require.NoError(t, err)
	require.Equal(t, SignedIn, (<-rec.ch).Event)

	select {
	case ev := <-rec.ch:
		require.Equal(t, TokenRefreshed, ev.Event)
		require.NotNil(t, ev.Session)
	case <-time.After(3 * time.Second):
		t.Fatal("no background refresh")
	}
}

func TestUnsubscribe(t *testing.T) {
	c := New("http://127.0.0.1:0", anonKey)
	defer c.Close()

	calls := 0
	unsubscribe := c.OnAuthStateChange(func(AuthChange) { calls++ })
	require.NoError(t, c.SignOut(context.Background()))
	unsubscribe()
	require.NoError(t, c.SignOut(context.Background()))
	require.Equal(t, 1, calls)
}

func TestRefreshDelay(t *testing.T) {
	tests := []struct {
		name             string
		lifetime, margin time.Duration
		want             time.Duration
	}{
		{"ahead of margin", time.Hour, time.Minute, 59 * time.Minute},
		{"lifetime under margin", 30 * time.Second, time.Minute, 15 * time.Second},
		{"lifetime equals margin", time.Minute, time.Minute, 30 * time.Second},
		{"already expired", -time.Minute, time.Minute, minRefreshDelay},
		{"just past margin", time.Minute + time.Millisecond, time.Minute, minRefreshDelay},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, refreshDelay(tt.lifetime, tt.margin))
		})
	}
}

func TestShortAccessTTL_NoRefreshLoop(t *testing.T) {
	srv := newService(t, 30*time.Second)

	c := New(srv.URL, anonKey)
	defer c.Close()
	rec := record(c)

	_, err := c.SignUp(context.Background(), "short@example.com", "pw123456")
	require.NoError(t, err)
	time.Sleep(300 * time.Millisecond)

	require.Equal(t, []Event{SignedIn}, rec.kinds())
}

func TestRefresh_SignOutDuringRefreshWins(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
		w.Header().Set("Content-Type", "application/json")
		exp := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
		_, _ = w.Write([]byte(`{"access_token":"new","refresh_token":"rt2","expires_at":"` + exp + `","user":{"id":1}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, anonKey)
	defer c.Close()
	c.session = &models.Session{AccessToken: "old", RefreshToken: "rt", ExpiresAt: time.Now().Add(-time.Minute)}
	rec := record(c)

	type result struct {
		s   *models.Session
		err error
	}
	done := make(chan result, 1)
	go func() {
		s, err := c.GetSession(context.Background())
		done <- result{s, err}
	}()

	<-entered
	require.NoError(t, c.SignOut(context.Background()))
	close(release)

	res := <-done
	require.NoError(t, res.err)
	require.Nil(t, res.s)

	s, err := c.GetSession(context.Background())
	require.NoError(t, err)
	require.Nil(t, s)
	require.Equal(t, []Event{SignedOut}, rec.kinds())
}
