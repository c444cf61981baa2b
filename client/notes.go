package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"jot/models"
)

func (c *Client) accessToken(ctx context.Context) (string, error) {
	s, err := c.GetSession(ctx)
	if err != nil {
		return "", err
	}
	if s == nil {
		return "", ErrNoSession
	}
	return s.AccessToken, nil
}

func ownerQuery(userID int64) url.Values {
	return url.Values{"user_id": {strconv.FormatInt(userID, 10)}}
}

func (c *Client) InsertNote(ctx context.Context, userID int64, content string) (models.Note, error) {
	tok, err := c.accessToken(ctx)
	if err != nil {
		return models.Note{}, err
	}
	body := struct {
		UserID  int64  `json:"user_id"`
		Content string `json:"content"`
	}{userID, content}

	var n models.Note
	if err := c.do(ctx, http.MethodPost, "/notes", nil, tok, body, &n); err != nil {
		return models.Note{}, err
	}
	return n, nil
}

// ListNotes returns userID's notes, newest first.
func (c *Client) ListNotes(ctx context.Context, userID int64) ([]models.Note, error) {
	tok, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}
	q := ownerQuery(userID)
	q.Set("order", "created_at.desc")

	var notes []models.Note
	if err := c.do(ctx, http.MethodGet, "/notes", q, tok, nil, &notes); err != nil {
		return nil, err
	}
	return notes, nil
}

// DeleteNote asks the service to delete note id, constrained to userID.
func (c *Client) DeleteNote(ctx context.Context, id, userID int64) error {
	tok, err := c.accessToken(ctx)
	if err != nil {
		return err
	}
	path := "/notes/" + strconv.FormatInt(id, 10)
	return c.do(ctx, http.MethodDelete, path, ownerQuery(userID), tok, nil, nil)
}
