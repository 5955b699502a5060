// internal/app/system/apiclient/sessions.go
package apiclient

import (
	"context"
	"encoding/json"
	"net/url"
)

// CreateSession authenticates a user against the remote API by creating a
// session. A non-201 response yields a StatusError; the caller decides
// whether that rejects the login (fail-closed) or not.
func (c *Client) CreateSession(ctx context.Context, username, password string) (Session, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	path := "sessions?" + url.Values{"embedded": []string{`{"user":1}`}}.Encode()
	resp, err := c.Post(ctx, path, form, "")
	if err != nil {
		return Session{}, err
	}
	if resp.Status != 201 {
		return Session{}, &StatusError{Status: resp.Status, Body: resp.Body}
	}
	return DecodeSession(resp.Body)
}

// FindSessionByToken resolves a bearer token to its session resource,
// embedding the session user. Returns ErrNotFound when no such session
// exists.
func (c *Client) FindSessionByToken(ctx context.Context, token string) (Session, error) {
	path := ListPath("sessions", map[string]any{"token": token}, url.Values{
		"embedded": []string{`{"user":1}`},
	})
	resp, err := c.Get(ctx, path, token)
	if err != nil {
		return Session{}, err
	}
	if !resp.OK() {
		return Session{}, &StatusError{Status: resp.Status, Body: resp.Body}
	}
	env, err := DecodeList(resp.Body)
	if err != nil {
		return Session{}, err
	}
	if len(env.Items) != 1 {
		return Session{}, ErrNotFound
	}
	return DecodeSession(env.Items[0])
}

// DeleteSession removes a remote session (logout) using its etag for the
// conditional delete.
func (c *Client) DeleteSession(ctx context.Context, id, etag, token string) error {
	resp, err := c.Delete(ctx, "sessions/"+id, etag, token)
	if err != nil {
		return err
	}
	if resp.Status == 404 {
		// Session already gone; logout is idempotent.
		return nil
	}
	if !resp.OK() {
		return &StatusError{Status: resp.Status, Body: resp.Body}
	}
	return nil
}

// ListPath assembles a list request path with an optional `where` JSON
// filter and any extra query parameters (max_results, page, embedded).
func ListPath(resource string, where map[string]any, extra url.Values) string {
	values := url.Values{}
	for k, vs := range extra {
		for _, v := range vs {
			values.Add(k, v)
		}
	}
	if len(where) > 0 {
		raw, _ := json.Marshal(where)
		values.Set("where", string(raw))
	}
	if len(values) == 0 {
		return resource
	}
	return resource + "?" + values.Encode()
}
