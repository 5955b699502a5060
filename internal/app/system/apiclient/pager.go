// internal/app/system/apiclient/pager.go
package apiclient

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/clubsuite/membersync/internal/domain/models"
)

// Pager walks a paginated list endpoint by following `_links.next` until
// exhaustion. A page fetch failure aborts the whole listing: callers never
// receive a silently truncated list.
type Pager struct {
	c     *Client
	token string
	next  string
	done  bool
}

// Pages starts a pager at the given list path (including any query string).
func (c *Client) Pages(path, token string) *Pager {
	return &Pager{c: c, token: token, next: path}
}

// Next fetches the next page. It returns nil when the listing is exhausted.
func (p *Pager) Next(ctx context.Context) (*ListEnvelope, error) {
	if p.done {
		return nil, nil
	}
	resp, err := p.c.Get(ctx, p.next, p.token)
	if err != nil {
		p.done = true
		return nil, err
	}
	if resp.Status == 404 {
		p.done = true
		return nil, ErrNotFound
	}
	if !resp.OK() {
		p.done = true
		return nil, &StatusError{Status: resp.Status, Body: resp.Body}
	}
	env, err := DecodeList(resp.Body)
	if err != nil {
		p.done = true
		return nil, fmt.Errorf("page %q: %w", p.next, err)
	}
	p.next = env.NextPath()
	p.done = p.next == ""
	return env, nil
}

// ListAll follows a list endpoint to exhaustion and concatenates the items
// of every page, in order.
func (c *Client) ListAll(ctx context.Context, path, token string) ([]json.RawMessage, error) {
	var items []json.RawMessage
	pager := c.Pages(path, token)
	for {
		page, err := pager.Next(ctx)
		if err != nil {
			return nil, err
		}
		if page == nil {
			return items, nil
		}
		items = append(items, page.Items...)
	}
}

// ListMemberships follows a groupmemberships listing to exhaustion and
// decodes every item.
func (c *Client) ListMemberships(ctx context.Context, path, token string) ([]models.GroupMembership, error) {
	items, err := c.ListAll(ctx, path, token)
	if err != nil {
		return nil, err
	}
	out := make([]models.GroupMembership, 0, len(items))
	for _, raw := range items {
		var m models.GroupMembership
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, &DecodeError{Err: err}
		}
		out = append(out, m)
	}
	return out, nil
}

// ListGroups follows a groups listing to exhaustion and decodes every item.
func (c *Client) ListGroups(ctx context.Context, path, token string) ([]models.RemoteGroup, error) {
	items, err := c.ListAll(ctx, path, token)
	if err != nil {
		return nil, err
	}
	out := make([]models.RemoteGroup, 0, len(items))
	for _, raw := range items {
		g, err := DecodeGroup(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}
