// internal/app/system/directory/membergroups.go
package directory

import (
	"context"
	"strings"

	"github.com/clubsuite/membersync/internal/app/system/apicache"
	"github.com/clubsuite/membersync/internal/app/system/apiclient"
	"github.com/clubsuite/membersync/internal/domain/models"
	"go.uber.org/zap"
)

// memberPseudoGroup is one entry of the closed, compile-time-known group set
// derived from the user's membership tier.
type memberPseudoGroup struct {
	GID  string
	Name string
}

// MembersGroupID aggregates every user with any membership tier at all.
const MembersGroupID = "members"

var memberPseudoGroups = []memberPseudoGroup{
	{GID: MembersGroupID, Name: "Members"},
	{GID: models.MembershipHonorary, Name: "Honorary Members"},
	{GID: models.MembershipExtraordinary, Name: "Extraordinary Members"},
	{GID: models.MembershipRegular, Name: "Ordinary Members"},
}

// MemberGroupDirectory exposes membership tiers as pseudo-groups. Unlike
// GroupDirectory it never lists a remote groups resource: the group set is
// fixed, only per-user and per-tier user queries hit the API.
type MemberGroupDirectory struct {
	api   *apiclient.Client
	cache *apicache.Cache
	log   *zap.Logger
}

// NewMemberGroupDirectory builds the membership-tier backend.
func NewMemberGroupDirectory(api *apiclient.Client, cache *apicache.Cache, logger *zap.Logger) *MemberGroupDirectory {
	return &MemberGroupDirectory{api: api, cache: cache, log: logger}
}

// ListGroups filters the fixed pseudo-group set by search.
func (d *MemberGroupDirectory) ListGroups(_ context.Context, search string, _, _ int) []string {
	ids := make([]string, 0, len(memberPseudoGroups))
	needle := strings.ToLower(search)
	for _, g := range memberPseudoGroups {
		if needle == "" ||
			strings.Contains(strings.ToLower(g.Name), needle) ||
			strings.Contains(g.GID, needle) {
			ids = append(ids, g.GID)
		}
	}
	return ids
}

// GroupExists reports whether gid names one of the pseudo-groups.
func (d *MemberGroupDirectory) GroupExists(_ context.Context, gid string) bool {
	for _, g := range memberPseudoGroups {
		if g.GID == gid {
			return true
		}
	}
	return false
}

// GroupDetails returns display information for a pseudo-group.
func (d *MemberGroupDirectory) GroupDetails(_ context.Context, gid string) (map[string]string, bool) {
	for _, g := range memberPseudoGroups {
		if g.GID == gid {
			return map[string]string{"displayName": g.Name}, true
		}
	}
	return nil, false
}

// tierFilter builds the users filter for a pseudo-group: the aggregate
// "members" group matches any tier except none.
func tierFilter(gid string) map[string]any {
	if gid == MembersGroupID {
		return map[string]any{"membership": map[string]any{"$ne": models.MembershipNone}}
	}
	return map[string]any{"membership": gid}
}

// UsersInGroup lists the ids of users in the given tier.
func (d *MemberGroupDirectory) UsersInGroup(ctx context.Context, gid, search string, limit, offset int) []string {
	if !d.GroupExists(ctx, gid) {
		return []string{}
	}
	key := apicache.Key("membergroupdir", "usersInGroup", gid, search, limit, offset)
	return readThrough(ctx, d.cache, d.log, key, apicache.MembershipTTL, []string{},
		func(ctx context.Context) ([]string, error) {
			where := tierFilter(gid)
			if search != "" {
				filter := nameFilter(search)
				where["$or"] = []map[string]any{
					{"firstname": filter},
					{"lastname": filter},
					{"email": filter},
				}
			}
			path := apiclient.ListPath("users", where, pageParams(limit, offset))
			if limit > 0 {
				resp, err := d.api.Get(ctx, path, "")
				if err != nil {
					return nil, err
				}
				if !resp.OK() {
					return nil, &apiclient.StatusError{Status: resp.Status, Body: resp.Body}
				}
				env, err := apiclient.DecodeList(resp.Body)
				if err != nil {
					return nil, err
				}
				return decodeIDs(env.Items, "_id")
			}
			items, err := d.api.ListAll(ctx, path, "")
			if err != nil {
				return nil, err
			}
			return decodeIDs(items, "_id")
		})
}

// CountUsersInGroup returns the number of users in the given tier.
func (d *MemberGroupDirectory) CountUsersInGroup(ctx context.Context, gid, search string) int {
	if !d.GroupExists(ctx, gid) {
		return 0
	}
	key := apicache.Key("membergroupdir", "countUsersInGroup", gid, search)
	return readThrough(ctx, d.cache, d.log, key, apicache.MembershipTTL, 0,
		func(ctx context.Context) (int, error) {
			where := tierFilter(gid)
			if search != "" {
				filter := nameFilter(search)
				where["$or"] = []map[string]any{
					{"firstname": filter},
					{"lastname": filter},
					{"email": filter},
				}
			}
			return listTotal(ctx, d.api, apiclient.ListPath("users", where, nil))
		})
}

// GetUserGroups derives the user's pseudo-groups from their membership
// field: the aggregate members group plus the specific tier.
func (d *MemberGroupDirectory) GetUserGroups(ctx context.Context, uid string) []string {
	key := apicache.Key("membergroupdir", "getUserGroups", uid)
	return readThrough(ctx, d.cache, d.log, key, apicache.MembershipTTL, []string{},
		func(ctx context.Context) ([]string, error) {
			resp, err := d.api.Get(ctx, "users/"+uid, "")
			if err != nil {
				return nil, err
			}
			if resp.Status == 404 {
				return []string{}, nil
			}
			if !resp.OK() {
				return nil, &apiclient.StatusError{Status: resp.Status, Body: resp.Body}
			}
			u, err := apiclient.DecodeUser(resp.Body)
			if err != nil {
				return nil, err
			}
			if !u.IsMember() {
				return []string{}, nil
			}
			gids := []string{MembersGroupID}
			if d.GroupExists(ctx, u.Membership) {
				gids = append(gids, u.Membership)
			}
			return gids, nil
		})
}

// InGroup reports whether the user's membership tier places them in the
// given pseudo-group.
func (d *MemberGroupDirectory) InGroup(ctx context.Context, uid, gid string) bool {
	for _, g := range d.GetUserGroups(ctx, uid) {
		if g == gid {
			return true
		}
	}
	return false
}
