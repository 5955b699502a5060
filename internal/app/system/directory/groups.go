// internal/app/system/directory/groups.go
package directory

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/clubsuite/membersync/internal/app/system/apicache"
	"github.com/clubsuite/membersync/internal/app/system/apiclient"
	"github.com/clubsuite/membersync/internal/domain/models"
	"go.uber.org/zap"
)

// GroupDirectory answers group queries from the remote `groups` and
// `groupmemberships` resources through the cache.
type GroupDirectory struct {
	api         *apiclient.Client
	cache       *apicache.Cache
	adminGroups []string
	log         *zap.Logger
}

// NewGroupDirectory builds a group backend. adminGroups is the configured
// allowlist of remote admin group identifiers.
func NewGroupDirectory(api *apiclient.Client, cache *apicache.Cache, adminGroups []string, logger *zap.Logger) *GroupDirectory {
	return &GroupDirectory{api: api, cache: cache, adminGroups: adminGroups, log: logger}
}

// groupEntry is the cached three-way lookup result for a single group; a
// negative entry records that the remote API answered 404.
type groupEntry struct {
	Found bool               `json:"found"`
	Group models.RemoteGroup `json:"group"`
}

// ListGroups returns the ids of groups matching search. limit <= 0 lists
// everything, following pagination to exhaustion.
func (d *GroupDirectory) ListGroups(ctx context.Context, search string, limit, offset int) []string {
	key := apicache.Key("groupdir", "getGroups", search, limit, offset)
	return readThrough(ctx, d.cache, d.log, key, apicache.DefaultTTL, []string{},
		func(ctx context.Context) ([]string, error) {
			where := map[string]any{}
			if search != "" {
				where["name"] = nameFilter(search)
			}
			path := apiclient.ListPath("groups", where, pageParams(limit, offset))

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
				return d.collectGroups(ctx, env.Items)
			}

			groups, err := d.api.ListGroups(ctx, path, "")
			if err != nil {
				return nil, err
			}
			ids := make([]string, 0, len(groups))
			for _, g := range groups {
				d.cacheGroup(ctx, g)
				ids = append(ids, g.ID)
			}
			return ids, nil
		})
}

func (d *GroupDirectory) collectGroups(ctx context.Context, items []json.RawMessage) ([]string, error) {
	ids := make([]string, 0, len(items))
	for _, raw := range items {
		g, err := apiclient.DecodeGroup(raw)
		if err != nil {
			return nil, err
		}
		d.cacheGroup(ctx, g)
		ids = append(ids, g.ID)
	}
	return ids, nil
}

func (d *GroupDirectory) cacheGroup(ctx context.Context, g models.RemoteGroup) {
	key := apicache.Key("groupdir", "getGroup", g.ID)
	d.cache.Set(ctx, key, groupEntry{Found: true, Group: g}, apicache.DefaultTTL)
}

// GetGroup resolves a single group. The bool reports whether the group
// exists remotely; a remote 404 is an expected condition, cached as a
// negative entry, not an error.
func (d *GroupDirectory) GetGroup(ctx context.Context, gid string) (models.RemoteGroup, bool) {
	key := apicache.Key("groupdir", "getGroup", gid)
	entry := readThrough(ctx, d.cache, d.log, key, apicache.DefaultTTL, groupEntry{},
		func(ctx context.Context) (groupEntry, error) {
			resp, err := d.api.Get(ctx, "groups/"+gid, "")
			if err != nil {
				return groupEntry{}, err
			}
			switch {
			case resp.OK():
				g, err := apiclient.DecodeGroup(resp.Body)
				if err != nil {
					return groupEntry{}, err
				}
				return groupEntry{Found: true, Group: g}, nil
			case resp.Status == 404:
				return groupEntry{Found: false}, nil
			default:
				return groupEntry{}, &apiclient.StatusError{Status: resp.Status, Body: resp.Body}
			}
		})
	return entry.Group, entry.Found
}

// GroupExists reports whether the group exists remotely.
func (d *GroupDirectory) GroupExists(ctx context.Context, gid string) bool {
	_, found := d.GetGroup(ctx, gid)
	return found
}

// GroupDetails returns display information about a group, or nothing when
// it is unknown.
func (d *GroupDirectory) GroupDetails(ctx context.Context, gid string) (map[string]string, bool) {
	g, found := d.GetGroup(ctx, gid)
	if !found {
		return nil, false
	}
	return map[string]string{"displayName": g.Name}, true
}

// UsersInGroup lists the ids of the group's members.
//
// TODO: the search term is not pushed down to the API; groupmemberships
// carry user ids only, so a server-side name match needs an embedded-user
// filter the API does not offer.
func (d *GroupDirectory) UsersInGroup(ctx context.Context, gid, search string, limit, offset int) []string {
	key := apicache.Key("groupdir", "usersInGroup", gid, search, limit, offset)
	return readThrough(ctx, d.cache, d.log, key, apicache.MembershipTTL, []string{},
		func(ctx context.Context) ([]string, error) {
			where := map[string]any{"group": gid}
			path := apiclient.ListPath("groupmemberships", where, pageParams(limit, offset))
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
				return decodeIDs(env.Items, "user")
			}
			items, err := d.api.ListAll(ctx, path, "")
			if err != nil {
				return nil, err
			}
			return decodeIDs(items, "user")
		})
}

// CountUsersInGroup returns the member count reported by the API.
func (d *GroupDirectory) CountUsersInGroup(ctx context.Context, gid, search string) int {
	key := apicache.Key("groupdir", "countUsersInGroup", gid)
	return readThrough(ctx, d.cache, d.log, key, apicache.MembershipTTL, 0,
		func(ctx context.Context) (int, error) {
			path := apiclient.ListPath("groupmemberships", map[string]any{"group": gid}, nil)
			return listTotal(ctx, d.api, path)
		})
}

// GetUserGroups lists every group the user belongs to.
func (d *GroupDirectory) GetUserGroups(ctx context.Context, uid string) []string {
	key := apicache.Key("groupdir", "getUserGroups", uid)
	return readThrough(ctx, d.cache, d.log, key, apicache.MembershipTTL, []string{},
		func(ctx context.Context) ([]string, error) {
			path := apiclient.ListPath("groupmemberships", map[string]any{"user": uid}, url.Values{
				"max_results": []string{"100"},
			})
			items, err := d.api.ListAll(ctx, path, "")
			if err != nil {
				return nil, err
			}
			return decodeIDs(items, "group")
		})
}

// InGroup reports whether the user is a member of the group. Each (uid,
// gid) pair is cached independently.
func (d *GroupDirectory) InGroup(ctx context.Context, uid, gid string) bool {
	key := apicache.Key("groupdir", "inGroup", uid, gid)
	return readThrough(ctx, d.cache, d.log, key, apicache.MembershipTTL, false,
		func(ctx context.Context) (bool, error) {
			path := apiclient.ListPath("groupmemberships", map[string]any{"user": uid, "group": gid}, nil)
			total, err := listTotal(ctx, d.api, path)
			if err != nil {
				return false, err
			}
			return total > 0, nil
		})
}

// IsAdmin reports whether the user belongs to any of the configured admin
// groups. Each group membership is probed (and cached) independently.
func (d *GroupDirectory) IsAdmin(ctx context.Context, uid string) bool {
	for _, gid := range d.adminGroups {
		if d.InGroup(ctx, uid, gid) {
			return true
		}
	}
	return false
}
