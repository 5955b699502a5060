// internal/app/features/lookup/handler.go

// Package lookup exposes the cached directory backends over HTTP, so a
// host identity subsystem running out of process can query remote groups
// and users through this service instead of talking to the membership API
// directly. All reads inherit the directory's resilience policy: during a
// remote outage they answer from stale cache or neutral defaults, never
// with an error status.
package lookup

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/clubsuite/membersync/internal/app/system/directory"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler holds the directory backends served by this feature.
type Handler struct {
	Groups  *directory.GroupDirectory
	Users   *directory.UserDirectory
	Members *directory.MemberGroupDirectory
	Log     *zap.Logger
}

// NewHandler constructs a lookup Handler over the three directory backends.
func NewHandler(groups *directory.GroupDirectory, users *directory.UserDirectory, members *directory.MemberGroupDirectory, logger *zap.Logger) *Handler {
	return &Handler{
		Groups:  groups,
		Users:   users,
		Members: members,
		Log:     logger,
	}
}

// searchParams extracts the common search/limit/offset query parameters.
func searchParams(r *http.Request) (search string, limit, offset int) {
	q := r.URL.Query()
	search = q.Get("search")
	limit, _ = strconv.Atoi(q.Get("limit"))
	offset, _ = strconv.Atoi(q.Get("offset"))
	return search, limit, offset
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ServeGroups handles GET /directory/groups?search=&limit=&offset=,
// returning { "groups": [gid, …] } across the remote groups and the
// membership-tier pseudo-groups.
func (h *Handler) ServeGroups(w http.ResponseWriter, r *http.Request) {
	search, limit, offset := searchParams(r)
	gids := h.Groups.ListGroups(r.Context(), search, limit, offset)
	gids = append(gids, h.Members.ListGroups(r.Context(), search, limit, offset)...)
	writeJSON(w, http.StatusOK, map[string][]string{"groups": gids})
}

// ServeGroup handles GET /directory/groups/{gid}, returning the group's
// display details or 404.
func (h *Handler) ServeGroup(w http.ResponseWriter, r *http.Request) {
	gid := chi.URLParam(r, "gid")
	details, found := h.Groups.GroupDetails(r.Context(), gid)
	if !found {
		details, found = h.Members.GroupDetails(r.Context(), gid)
	}
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "group not found"})
		return
	}
	writeJSON(w, http.StatusOK, details)
}

// ServeGroupUsers handles GET /directory/groups/{gid}/users, returning the
// ids and the total count of the group's members.
func (h *Handler) ServeGroupUsers(w http.ResponseWriter, r *http.Request) {
	gid := chi.URLParam(r, "gid")
	search, limit, offset := searchParams(r)

	var uids []string
	var total int
	if h.Members.GroupExists(r.Context(), gid) {
		uids = h.Members.UsersInGroup(r.Context(), gid, search, limit, offset)
		total = h.Members.CountUsersInGroup(r.Context(), gid, search)
	} else {
		uids = h.Groups.UsersInGroup(r.Context(), gid, search, limit, offset)
		total = h.Groups.CountUsersInGroup(r.Context(), gid, search)
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": uids, "total": total})
}

// ServeUsers handles GET /directory/users?search=&limit=&offset=.
func (h *Handler) ServeUsers(w http.ResponseWriter, r *http.Request) {
	search, limit, offset := searchParams(r)
	uids := h.Users.ListUsers(r.Context(), search, limit, offset)
	writeJSON(w, http.StatusOK, map[string]any{
		"users": uids,
		"total": h.Users.CountUsers(r.Context()),
	})
}

// ServeUser handles GET /directory/users/{uid}, returning the display name,
// group memberships (remote groups plus tier pseudo-groups) and admin flag,
// or 404 when the account is not backed by a remote user.
func (h *Handler) ServeUser(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")
	if !h.Users.UserExists(r.Context(), uid) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
		return
	}
	gids := h.Groups.GetUserGroups(r.Context(), uid)
	gids = append(gids, h.Members.GetUserGroups(r.Context(), uid)...)
	writeJSON(w, http.StatusOK, map[string]any{
		"uid":          uid,
		"display_name": h.Users.DisplayName(r.Context(), uid),
		"groups":       gids,
		"admin":        h.Groups.IsAdmin(r.Context(), uid),
	})
}

// ServeVerify handles POST /directory/verify with form fields username and
// password. Verification always happens against the remote API; no local
// credential exists. A rejected credential answers 401 and a remote outage
// answers 503, so the caller can tell "wrong password" from "cannot check" —
// the login flow fails open for verified administrators only on the latter.
func (h *Handler) ServeVerify(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad form data"})
		return
	}
	username := r.PostForm.Get("username")
	password := r.PostForm.Get("password")
	if username == "" || password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "username and password are required"})
		return
	}

	uid, outcome := h.Users.CheckPassword(r.Context(), username, password)
	switch outcome {
	case directory.AuthGranted:
		writeJSON(w, http.StatusOK, map[string]string{"uid": uid})
	case directory.AuthUnavailable:
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "remote directory unavailable"})
	default:
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "credentials rejected"})
	}
}
