// internal/domain/models/remoteuser.go
package models

import "strings"

// Membership tiers as reported by the membership API. The remote API is
// authoritative; these values are mirrored, never written back.
const (
	MembershipNone          = "none"
	MembershipRegular       = "regular"
	MembershipExtraordinary = "extraordinary"
	MembershipHonorary      = "honorary"
)

// RemoteUser is the cached projection of a user resource from the
// membership API. The remote `_id` is the stable primary key and doubles
// as the local account name.
type RemoteUser struct {
	ID         string `json:"_id"`
	Email      string `json:"email"`
	FirstName  string `json:"firstname"`
	LastName   string `json:"lastname"`
	Membership string `json:"membership"`
}

// DisplayName returns the name shown in the host platform.
func (u RemoteUser) DisplayName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// IsMember reports whether the user holds any membership tier at all.
func (u RemoteUser) IsMember() bool {
	return u.Membership != "" && u.Membership != MembershipNone
}
