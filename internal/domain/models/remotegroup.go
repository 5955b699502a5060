// internal/domain/models/remotegroup.go
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// RemoteGroup is the cached projection of a group resource from the
// membership API.
type RemoteGroup struct {
	ID              string `json:"_id"`
	Name            string `json:"name"`
	RequiresStorage bool   `json:"requires_storage"`
}

// GroupMembership joins a remote user to a remote group. The API returns the
// `group` field either as a plain id or, when the listing was fetched with
// `embedded={"group":1}`, as the full group resource; Group is nil in the
// former case.
type GroupMembership struct {
	ID      string
	UserID  string
	GroupID string
	Group   *RemoteGroup
}

func (m *GroupMembership) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID    string          `json:"_id"`
		User  string          `json:"user"`
		Group json.RawMessage `json:"group"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.ID = raw.ID
	m.UserID = raw.User

	switch {
	case len(raw.Group) == 0:
		m.GroupID = ""
	case bytes.HasPrefix(bytes.TrimSpace(raw.Group), []byte("{")):
		var g RemoteGroup
		if err := json.Unmarshal(raw.Group, &g); err != nil {
			return fmt.Errorf("decode embedded group: %w", err)
		}
		m.Group = &g
		m.GroupID = g.ID
	default:
		if err := json.Unmarshal(raw.Group, &m.GroupID); err != nil {
			return fmt.Errorf("decode group id: %w", err)
		}
	}
	return nil
}
