// internal/testutil/fakeapi.go
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/clubsuite/membersync/internal/app/system/apiclient"
	"github.com/clubsuite/membersync/internal/domain/models"
	"go.uber.org/zap"
)

// FakeMembership is one groupmemberships row in the fake API.
type FakeMembership struct {
	ID    string
	User  string
	Group string
}

type fakeSession struct {
	ID    string
	Token string
	User  string
	Etag  string
}

// FakeAPI simulates the remote membership API over httptest: users, groups
// and groupmemberships listings with `where` filters and pagination, plus
// session create/find/delete. Mutate the exported fields between requests
// to shape responses.
type FakeAPI struct {
	t *testing.T

	mu          sync.Mutex
	Users       map[string]models.RemoteUser
	Passwords   map[string]string // user id -> accepted password
	Groups      []models.RemoteGroup
	Memberships []FakeMembership
	PageSize    int // default 25

	sessions    map[string]fakeSession
	sessionSeq  int
	failStatus  int
	failLeft    int
	requestsLog []string

	srv *httptest.Server
}

// NewFakeAPI starts a fake remote API server, shut down with the test.
func NewFakeAPI(t *testing.T) *FakeAPI {
	t.Helper()
	f := &FakeAPI{
		t:         t,
		Users:     make(map[string]models.RemoteUser),
		Passwords: make(map[string]string),
		PageSize:  25,
		sessions:  make(map[string]fakeSession),
	}
	f.srv = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.srv.Close)
	return f
}

// URL returns the fake API's base URL.
func (f *FakeAPI) URL() string { return f.srv.URL }

// Client returns an API client pointed at the fake server.
func (f *FakeAPI) Client() *apiclient.Client {
	return apiclient.New(apiclient.Options{BaseURL: f.srv.URL, APIKey: "test-token"}, zap.NewNop())
}

// FailNext makes the next n requests answer with the given status code.
func (f *FakeAPI) FailNext(status, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failStatus = status
	f.failLeft = n
}

// Requests returns the method+path of every request seen so far.
func (f *FakeAPI) Requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requestsLog...)
}

// AddMembership appends a groupmemberships row.
func (f *FakeAPI) AddMembership(user, group string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := fmt.Sprintf("m%d", len(f.Memberships)+1)
	f.Memberships = append(f.Memberships, FakeMembership{ID: id, User: user, Group: group})
}

// Sessions returns the number of live sessions.
func (f *FakeAPI) Sessions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sessions)
}

func (f *FakeAPI) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requestsLog = append(f.requestsLog, r.Method+" "+r.URL.Path)
	if f.failLeft > 0 {
		f.failLeft--
		status := f.failStatus
		f.mu.Unlock()
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"_error":{"code":` + strconv.Itoa(status) + `}}`))
		return
	}
	f.mu.Unlock()

	path := strings.Trim(r.URL.Path, "/")
	parts := strings.SplitN(path, "/", 2)

	switch {
	case r.Method == "GET" && path == "":
		w.WriteHeader(200)
		_, _ = w.Write([]byte(`{}`))
	case r.Method == "GET" && parts[0] == "users" && len(parts) == 1:
		f.list(w, r, "users")
	case r.Method == "GET" && parts[0] == "users":
		f.getUser(w, parts[1])
	case r.Method == "GET" && parts[0] == "groups" && len(parts) == 1:
		f.list(w, r, "groups")
	case r.Method == "GET" && parts[0] == "groups":
		f.getGroup(w, parts[1])
	case r.Method == "GET" && parts[0] == "groupmemberships" && len(parts) == 1:
		f.list(w, r, "groupmemberships")
	case r.Method == "POST" && path == "sessions":
		f.createSession(w, r)
	case r.Method == "GET" && path == "sessions":
		f.list(w, r, "sessions")
	case r.Method == "DELETE" && parts[0] == "sessions":
		f.deleteSession(w, r, parts[1])
	default:
		w.WriteHeader(404)
		_, _ = w.Write([]byte(`{"_error":{"code":404}}`))
	}
}

func (f *FakeAPI) getUser(w http.ResponseWriter, id string) {
	f.mu.Lock()
	u, ok := f.Users[id]
	f.mu.Unlock()
	if !ok {
		w.WriteHeader(404)
		_, _ = w.Write([]byte(`{"_error":{"code":404}}`))
		return
	}
	_ = json.NewEncoder(w).Encode(u)
}

func (f *FakeAPI) getGroup(w http.ResponseWriter, id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, g := range f.Groups {
		if g.ID == id {
			_ = json.NewEncoder(w).Encode(g)
			return
		}
	}
	w.WriteHeader(404)
	_, _ = w.Write([]byte(`{"_error":{"code":404}}`))
}

// list serves a filtered, paginated resource listing in the API's envelope
// format.
func (f *FakeAPI) list(w http.ResponseWriter, r *http.Request, resource string) {
	q := r.URL.Query()

	var where map[string]any
	if raw := q.Get("where"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &where); err != nil {
			w.WriteHeader(400)
			return
		}
	}
	embedGroup := strings.Contains(q.Get("embedded"), `"group"`)
	embedUser := strings.Contains(q.Get("embedded"), `"user"`)

	f.mu.Lock()
	docs := f.docsFor(resource, embedGroup, embedUser)
	f.mu.Unlock()

	var matched []map[string]any
	for _, d := range docs {
		if matchWhere(d, where) {
			matched = append(matched, d)
		}
	}

	pageSize := f.PageSize
	if v := q.Get("max_results"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			pageSize = n
		}
	}
	page := 1
	if v := q.Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page = n
		}
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if start > len(matched) {
		start = len(matched)
	}
	if end > len(matched) {
		end = len(matched)
	}

	items := make([]json.RawMessage, 0, end-start)
	for _, d := range matched[start:end] {
		raw, _ := json.Marshal(d)
		items = append(items, raw)
	}

	env := map[string]any{
		"_items": items,
		"_meta":  map[string]any{"total": len(matched), "page": page, "max_results": pageSize},
	}
	if end < len(matched) {
		next := url.Values{}
		for k, vs := range q {
			for _, v := range vs {
				next.Add(k, v)
			}
		}
		next.Set("page", strconv.Itoa(page+1))
		env["_links"] = map[string]any{
			"next": map[string]any{"href": resource + "?" + next.Encode()},
		}
	}
	_ = json.NewEncoder(w).Encode(env)
}

// docsFor renders the resource rows as generic documents, applying any
// requested embedding. Callers hold f.mu.
func (f *FakeAPI) docsFor(resource string, embedGroup, embedUser bool) []map[string]any {
	var docs []map[string]any
	switch resource {
	case "users":
		for _, u := range f.Users {
			docs = append(docs, toDoc(u))
		}
		sort.Slice(docs, func(i, j int) bool {
			return fmt.Sprint(docs[i]["_id"]) < fmt.Sprint(docs[j]["_id"])
		})
	case "groups":
		for _, g := range f.Groups {
			docs = append(docs, toDoc(g))
		}
	case "groupmemberships":
		for _, m := range f.Memberships {
			d := map[string]any{"_id": m.ID, "user": m.User, "group": any(m.Group)}
			if embedGroup {
				for _, g := range f.Groups {
					if g.ID == m.Group {
						d["group"] = toDoc(g)
						break
					}
				}
			}
			docs = append(docs, d)
		}
	case "sessions":
		for _, s := range f.sessions {
			d := map[string]any{"_id": s.ID, "token": s.Token, "user": any(s.User), "_etag": s.Etag}
			if embedUser {
				if u, ok := f.Users[s.User]; ok {
					d["user"] = toDoc(u)
				}
			}
			docs = append(docs, d)
		}
	}
	return docs
}

func (f *FakeAPI) createSession(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(400)
		return
	}
	username := r.PostForm.Get("username")
	password := r.PostForm.Get("password")

	f.mu.Lock()
	defer f.mu.Unlock()

	// Login by user id or email, like the real API.
	uid := username
	if _, ok := f.Users[uid]; !ok {
		for id, u := range f.Users {
			if u.Email == username {
				uid = id
				break
			}
		}
	}
	if want, ok := f.Passwords[uid]; !ok || want != password {
		w.WriteHeader(401)
		_, _ = w.Write([]byte(`{"_error":{"code":401,"message":"credentials rejected"}}`))
		return
	}

	f.sessionSeq++
	s := fakeSession{
		ID:    fmt.Sprintf("sess%d", f.sessionSeq),
		Token: fmt.Sprintf("tok%d", f.sessionSeq),
		User:  uid,
		Etag:  fmt.Sprintf("etag%d", f.sessionSeq),
	}
	f.sessions[s.ID] = s

	d := map[string]any{"_id": s.ID, "token": s.Token, "user": any(s.User), "_etag": s.Etag}
	if strings.Contains(r.URL.Query().Get("embedded"), `"user"`) {
		d["user"] = toDoc(f.Users[uid])
	}
	w.WriteHeader(201)
	_ = json.NewEncoder(w).Encode(d)
}

func (f *FakeAPI) deleteSession(w http.ResponseWriter, r *http.Request, id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		w.WriteHeader(404)
		_, _ = w.Write([]byte(`{"_error":{"code":404}}`))
		return
	}
	if etag := r.Header.Get("If-Match"); etag != "" && etag != s.Etag {
		w.WriteHeader(412)
		_, _ = w.Write([]byte(`{"_error":{"code":412}}`))
		return
	}
	delete(f.sessions, id)
	w.WriteHeader(204)
}

func toDoc(v any) map[string]any {
	raw, _ := json.Marshal(v)
	var d map[string]any
	_ = json.Unmarshal(raw, &d)
	return d
}

// matchWhere implements the subset of the API's filter language the service
// uses: equality, $or, $ne and $regex.
func matchWhere(doc map[string]any, where map[string]any) bool {
	for k, v := range where {
		if k == "$or" {
			alts, ok := v.([]any)
			if !ok {
				return false
			}
			matched := false
			for _, alt := range alts {
				if sub, ok := alt.(map[string]any); ok && matchWhere(doc, sub) {
					matched = true
					break
				}
			}
			if !matched {
				return false
			}
			continue
		}
		if !matchField(doc[k], v) {
			return false
		}
	}
	return true
}

func matchField(got, want any) bool {
	if cond, ok := want.(map[string]any); ok {
		for op, arg := range cond {
			switch op {
			case "$ne":
				if fmt.Sprint(got) == fmt.Sprint(arg) {
					return false
				}
			case "$regex":
				re, err := regexp.Compile(fmt.Sprint(arg))
				if err != nil || !re.MatchString(fmt.Sprint(got)) {
					return false
				}
			default:
				return false
			}
		}
		return true
	}
	return fmt.Sprint(got) == fmt.Sprint(want)
}
