// internal/app/system/directory/users.go
package directory

import (
	"context"
	"errors"

	"github.com/clubsuite/membersync/internal/app/system/apicache"
	"github.com/clubsuite/membersync/internal/app/system/apiclient"
	"github.com/clubsuite/membersync/internal/domain/models"
	"go.uber.org/zap"
)

// UserDirectory answers user queries from the remote `users` resource
// through the cache. Password checks delegate to the remote session
// endpoint; no local credential is ever consulted.
type UserDirectory struct {
	api   *apiclient.Client
	cache *apicache.Cache
	log   *zap.Logger
}

// NewUserDirectory builds a user backend.
func NewUserDirectory(api *apiclient.Client, cache *apicache.Cache, logger *zap.Logger) *UserDirectory {
	return &UserDirectory{api: api, cache: cache, log: logger}
}

// userEntry is the cached three-way lookup result for a single user. A
// negative entry means the account is locally managed (remote 404).
type userEntry struct {
	Found bool              `json:"found"`
	User  models.RemoteUser `json:"user"`
}

// GetUser resolves a single remote user. The bool reports remote
// existence; 404 is an expected condition cached as a negative entry.
func (d *UserDirectory) GetUser(ctx context.Context, uid string) (models.RemoteUser, bool) {
	key := apicache.Key("userdir", "getUser", uid)
	entry := readThrough(ctx, d.cache, d.log, key, apicache.DefaultTTL, userEntry{},
		func(ctx context.Context) (userEntry, error) {
			resp, err := d.api.Get(ctx, "users/"+uid, "")
			if err != nil {
				return userEntry{}, err
			}
			switch {
			case resp.OK():
				u, err := apiclient.DecodeUser(resp.Body)
				if err != nil {
					return userEntry{}, err
				}
				if u.ID != uid {
					return userEntry{}, &apiclient.DecodeError{Err: errIDMismatch}
				}
				return userEntry{Found: true, User: u}, nil
			case resp.Status == 404:
				return userEntry{Found: false}, nil
			default:
				return userEntry{}, &apiclient.StatusError{Status: resp.Status, Body: resp.Body}
			}
		})
	return entry.User, entry.Found
}

// UserExists reports whether the account is backed by a remote user.
func (d *UserDirectory) UserExists(ctx context.Context, uid string) bool {
	_, found := d.GetUser(ctx, uid)
	return found
}

// DisplayName returns the user's display name, or "" when unknown.
func (d *UserDirectory) DisplayName(ctx context.Context, uid string) string {
	u, found := d.GetUser(ctx, uid)
	if !found {
		return ""
	}
	return u.DisplayName()
}

// ListUsers returns the ids of users matching search.
func (d *UserDirectory) ListUsers(ctx context.Context, search string, limit, offset int) []string {
	key := apicache.Key("userdir", "getUsers", search, limit, offset)
	return readThrough(ctx, d.cache, d.log, key, apicache.DefaultTTL, []string{},
		func(ctx context.Context) ([]string, error) {
			where := map[string]any{}
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

// CountUsers returns the total number of remote users.
func (d *UserDirectory) CountUsers(ctx context.Context) int {
	key := apicache.Key("userdir", "countUsers")
	return readThrough(ctx, d.cache, d.log, key, apicache.DefaultTTL, 0,
		func(ctx context.Context) (int, error) {
			return listTotal(ctx, d.api, "users")
		})
}

// AuthOutcome classifies a credential check. A rejection and an upstream
// outage must stay distinguishable: the login flow fails closed on the
// former and may fail open (administrators only) on the latter.
type AuthOutcome int

const (
	AuthGranted AuthOutcome = iota
	AuthRejected
	AuthUnavailable
)

// CheckPassword verifies credentials against the remote API by creating and
// immediately discarding a session. It returns the authenticated user id on
// AuthGranted, "" otherwise.
func (d *UserDirectory) CheckPassword(ctx context.Context, loginName, password string) (string, AuthOutcome) {
	sess, err := d.api.CreateSession(ctx, loginName, password)
	if err != nil {
		if rejected(err) {
			d.log.Info("remote authentication rejected",
				zap.String("login", loginName), zap.Error(err))
			return "", AuthRejected
		}
		d.log.Warn("remote authentication unavailable",
			zap.String("login", loginName), zap.Error(err))
		return "", AuthUnavailable
	}

	if sess.User.ID != "" {
		key := apicache.Key("userdir", "getUser", sess.User.ID)
		d.cache.Set(ctx, key, userEntry{Found: true, User: sess.User}, apicache.DefaultTTL)
	}

	// The throwaway session is deleted right away; the host platform issues
	// its own session.
	if err := d.api.DeleteSession(ctx, sess.ID, sess.Etag, sess.Token); err != nil {
		d.log.Warn("could not discard verification session",
			zap.String("login", loginName), zap.Error(err))
	}
	return sess.User.ID, AuthGranted
}

// rejected reports whether the session-create failure is a credential
// rejection (4xx) rather than an outage (network error or 5xx).
func rejected(err error) bool {
	var se *apiclient.StatusError
	return errors.As(err, &se) && se.Status >= 400 && se.Status < 500
}
