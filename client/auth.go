package client

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"jot/models"
)

type Event string

const (
	SignedIn       Event = "SIGNED_IN"
	SignedOut      Event = "SIGNED_OUT"
	TokenRefreshed Event = "TOKEN_REFRESHED"
)

// AuthChange is delivered to OnAuthStateChange subscribers. Session is nil
// after SignedOut.
type AuthChange struct {
	Event   Event
	Session *models.Session
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// OnAuthStateChange registers fn for every later session change. fn runs
// on the goroutine that caused the change, after the Client has released its
// lock.
func (c *Client) OnAuthStateChange(fn func(AuthChange)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// GetSession returns the current session, renewing it first when the access
// token has expired. A nil session with a nil error means signed out.
func (c *Client) GetSession(ctx context.Context) (*models.Session, error) {
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()

	if s == nil {
		return nil, nil
	}
	if !s.Expired(c.now()) {
		return s, nil
	}
	return c.refresh(ctx, s)
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error) {
	var s models.Session
	if err := c.do(ctx, http.MethodPost, "/auth/token", nil, "", credentials{email, password}, &s); err != nil {
		return nil, err
	}
	c.setSession(&s, SignedIn)
	return &s, nil
}

func (c *Client) SignUp(ctx context.Context, email, password string) (*models.Session, error) {
	var s models.Session
	if err := c.do(ctx, http.MethodPost, "/auth/signup", nil, "", credentials{email, password}, &s); err != nil {
		return nil, err
	}
	c.setSession(&s, SignedIn)
	return &s, nil
}

// SignOut drops the local session. Tokens are stateless on the service side
// so there is nothing to revoke remotely.
func (c *Client) SignOut(_ context.Context) error {
	c.setSession(nil, SignedOut)
	return nil
}

// refresh renews prev. If the session changed meanwhile, the newer one wins
// and the result is dropped.
func (c *Client) refresh(ctx context.Context, prev *models.Session) (*models.Session, error) {
	var s models.Session
	body := map[string]string{"refresh_token": prev.RefreshToken}
	err := c.do(ctx, http.MethodPost, "/auth/refresh", nil, "", body, &s)

	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) || prev.Expired(c.now()) {
			if !c.setSessionIf(prev, nil, SignedOut) {
				return c.current(), nil
			}
			return nil, err
		}
		if cur := c.current(); cur != prev {
			return cur, nil
		}
		return nil, err
	}
	if !c.setSessionIf(prev, &s, TokenRefreshed) {
		return c.current(), nil
	}
	return &s, nil
}

func (c *Client) autoRefresh(prev *models.Session) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := c.refresh(ctx, prev); err != nil {
		slog.Warn("background token refresh failed", "user_id", prev.User.ID, "err", err)
	}
}

func (c *Client) current() *models.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// minRefreshDelay bounds how often the background timer can fire.
const minRefreshDelay = time.Second

// refreshDelay schedules renewal margin before expiry. Sessions that live
// no longer than the margin renew at half their remaining lifetime instead.
func refreshDelay(lifetime, margin time.Duration) time.Duration {
	d := lifetime - margin
	if lifetime <= margin {
		d = lifetime / 2
	}
	if d < minRefreshDelay {
		d = minRefreshDelay
	}
	return d
}

func (c *Client) setSession(s *models.Session, ev Event) {
	c.swapSession(false, nil, s, ev)
}

// setSessionIf replaces the session only while it is still prev and reports
// whether it did.
func (c *Client) setSessionIf(prev, s *models.Session, ev Event) bool {
	return c.swapSession(true, prev, s, ev)
}

func (c *Client) swapSession(check bool, prev, s *models.Session, ev Event) bool {
	c.mu.Lock()
	if c.closed || (check && c.session != prev) {
		c.mu.Unlock()
		return false
	}
	c.session = s
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if s != nil {
		delay := refreshDelay(s.ExpiresAt.Sub(c.now()), c.refreshMargin)
		c.timer = time.AfterFunc(delay, func() { c.autoRefresh(s) })
	}
	subs := make([]func(AuthChange), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	change := AuthChange{Event: ev, Session: s}
	for _, fn := range subs {
		fn(change)
	}
	return true
}
