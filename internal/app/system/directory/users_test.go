package directory_test

import (
	"context"
	"testing"

	"github.com/clubsuite/membersync/internal/app/system/apicache"
	"github.com/clubsuite/membersync/internal/app/system/directory"
	"github.com/clubsuite/membersync/internal/domain/models"
	"github.com/clubsuite/membersync/internal/testutil"
	"go.uber.org/zap"
)

func newUserDir(f *testutil.FakeAPI) *directory.UserDirectory {
	cache := apicache.New(apicache.NewMemoryBackend(), zap.NewNop())
	return directory.NewUserDirectory(f.Client(), cache, zap.NewNop())
}

func TestGetUser(t *testing.T) {
	f := testutil.NewFakeAPI(t)
	f.Users["u1"] = models.RemoteUser{
		ID: "u1", Email: "ada@example.org",
		FirstName: "Ada", LastName: "Lovelace",
		Membership: models.MembershipRegular,
	}
	d := newUserDir(f)
	ctx := context.Background()

	u, found := d.GetUser(ctx, "u1")
	if !found || u.Email != "ada@example.org" {
		t.Fatalf("got (%+v, %v)", u, found)
	}
	if got := d.DisplayName(ctx, "u1"); got != "Ada Lovelace" {
		t.Fatalf("got display name %q", got)
	}

	before := len(f.Requests())
	if !d.UserExists(ctx, "u1") {
		t.Fatal("UserExists disagrees with GetUser")
	}
	if len(f.Requests()) != before {
		t.Fatal("repeat lookup must be a cache hit")
	}
}

func TestGetUserNotFound(t *testing.T) {
	f := testutil.NewFakeAPI(t)
	d := newUserDir(f)
	ctx := context.Background()

	if _, found := d.GetUser(ctx, "ghost"); found {
		t.Fatal("unknown user reported found")
	}
	if got := d.DisplayName(ctx, "ghost"); got != "" {
		t.Fatalf("got display name %q for unknown user", got)
	}
}

func TestListUsersSearch(t *testing.T) {
	f := testutil.NewFakeAPI(t)
	f.Users["u1"] = models.RemoteUser{ID: "u1", FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.org"}
	f.Users["u2"] = models.RemoteUser{ID: "u2", FirstName: "Grace", LastName: "Hopper", Email: "grace@example.org"}
	f.Users["u3"] = models.RemoteUser{ID: "u3", FirstName: "Alan", LastName: "Turing", Email: "alan@ada-fans.org"}
	d := newUserDir(f)
	ctx := context.Background()

	// The search matches first name, last name or email.
	ids := d.ListUsers(ctx, "ada", 0, 0)
	if len(ids) != 2 || ids[0] != "u1" || ids[1] != "u3" {
		t.Fatalf("got %v, want [u1 u3]", ids)
	}

	all := d.ListUsers(ctx, "", 0, 0)
	if len(all) != 3 {
		t.Fatalf("got %d users, want 3", len(all))
	}
	if n := d.CountUsers(ctx); n != 3 {
		t.Fatalf("got count %d, want 3", n)
	}
}

func TestCheckPassword(t *testing.T) {
	f := testutil.NewFakeAPI(t)
	f.Users["u1"] = models.RemoteUser{ID: "u1", Email: "ada@example.org", FirstName: "Ada"}
	f.Passwords["u1"] = "s3cret"
	d := newUserDir(f)
	ctx := context.Background()

	uid, outcome := d.CheckPassword(ctx, "ada@example.org", "s3cret")
	if uid != "u1" || outcome != directory.AuthGranted {
		t.Fatalf("got (%q, %v), want (u1, granted)", uid, outcome)
	}
	// The verification session is discarded immediately.
	if n := f.Sessions(); n != 0 {
		t.Fatalf("got %d live sessions, want 0", n)
	}

	// A successful login warms the user cache.
	before := len(f.Requests())
	if _, found := d.GetUser(ctx, "u1"); !found {
		t.Fatal("authenticated user not found")
	}
	if len(f.Requests()) != before {
		t.Fatal("GetUser after CheckPassword must be a cache hit")
	}
}

func TestCheckPasswordRejected(t *testing.T) {
	f := testutil.NewFakeAPI(t)
	f.Users["u1"] = models.RemoteUser{ID: "u1", Email: "ada@example.org"}
	f.Passwords["u1"] = "s3cret"
	d := newUserDir(f)
	ctx := context.Background()

	uid, outcome := d.CheckPassword(ctx, "ada@example.org", "wrong")
	if uid != "" || outcome != directory.AuthRejected {
		t.Fatalf("got (%q, %v) for bad password, want rejection", uid, outcome)
	}
	uid, outcome = d.CheckPassword(ctx, "nobody@example.org", "s3cret")
	if uid != "" || outcome != directory.AuthRejected {
		t.Fatalf("got (%q, %v) for unknown login, want rejection", uid, outcome)
	}
	if n := f.Sessions(); n != 0 {
		t.Fatalf("got %d live sessions, want 0", n)
	}
}

func TestCheckPasswordUpstreamDown(t *testing.T) {
	f := testutil.NewFakeAPI(t)
	f.Users["u1"] = models.RemoteUser{ID: "u1", Email: "ada@example.org"}
	f.Passwords["u1"] = "s3cret"
	d := newUserDir(f)

	f.FailNext(500, 1)
	uid, outcome := d.CheckPassword(context.Background(), "ada@example.org", "s3cret")
	if uid != "" || outcome != directory.AuthUnavailable {
		t.Fatalf("got (%q, %v) while upstream down, want unavailable", uid, outcome)
	}

	// A rejection and an outage are distinct outcomes: the caller may fail
	// open only on the latter, never on a bad credential.
	uid, outcome = d.CheckPassword(context.Background(), "ada@example.org", "wrong")
	if uid != "" || outcome != directory.AuthRejected {
		t.Fatalf("got (%q, %v) for bad password, want rejection", uid, outcome)
	}
}
