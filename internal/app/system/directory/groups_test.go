package directory_test

import (
	"context"
	"testing"
	"time"

	"github.com/clubsuite/membersync/internal/app/system/apicache"
	"github.com/clubsuite/membersync/internal/app/system/directory"
	"github.com/clubsuite/membersync/internal/domain/models"
	"github.com/clubsuite/membersync/internal/testutil"
	"go.uber.org/zap"
)

func newGroupDir(f *testutil.FakeAPI, adminGroups ...string) (*directory.GroupDirectory, *apicache.MemoryBackend) {
	b := apicache.NewMemoryBackend()
	cache := apicache.New(b, zap.NewNop())
	return directory.NewGroupDirectory(f.Client(), cache, adminGroups, zap.NewNop()), b
}

func countRequests(f *testutil.FakeAPI) int { return len(f.Requests()) }

func TestGetGroup(t *testing.T) {
	f := testutil.NewFakeAPI(t)
	f.Groups = []models.RemoteGroup{{ID: "g1", Name: "Chess Club", RequiresStorage: true}}
	d, _ := newGroupDir(f)
	ctx := context.Background()

	g, found := d.GetGroup(ctx, "g1")
	if !found || g.Name != "Chess Club" {
		t.Fatalf("got (%+v, %v), want Chess Club", g, found)
	}

	// Second lookup is answered from cache.
	before := countRequests(f)
	if _, found := d.GetGroup(ctx, "g1"); !found {
		t.Fatal("cached lookup failed")
	}
	if countRequests(f) != before {
		t.Fatal("cached lookup must not hit the API")
	}
}

func TestGetGroupCachesNegative(t *testing.T) {
	f := testutil.NewFakeAPI(t)
	d, _ := newGroupDir(f)
	ctx := context.Background()

	if _, found := d.GetGroup(ctx, "nope"); found {
		t.Fatal("unknown group reported found")
	}

	// The 404 is cached too: no second round trip.
	before := countRequests(f)
	if _, found := d.GetGroup(ctx, "nope"); found {
		t.Fatal("unknown group reported found on second lookup")
	}
	if countRequests(f) != before {
		t.Fatal("negative entry must be served from cache")
	}
	if d.GroupExists(ctx, "nope") {
		t.Fatal("GroupExists disagrees with GetGroup")
	}
}

func TestGetGroupServesStaleOnUpstreamFailure(t *testing.T) {
	f := testutil.NewFakeAPI(t)
	f.Groups = []models.RemoteGroup{{ID: "g1", Name: "Chess Club"}}
	d, b := newGroupDir(f)
	ctx := context.Background()

	if _, found := d.GetGroup(ctx, "g1"); !found {
		t.Fatal("seed lookup failed")
	}

	// Invalidate the sentinel so the next read must go upstream, then make
	// the upstream fail.
	key := apicache.Key("groupdir", "getGroup", "g1")
	if err := b.Set(ctx, key+"_valid", []byte("1"), time.Millisecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(10 * time.Millisecond)
	f.FailNext(500, 1)

	g, found := d.GetGroup(ctx, "g1")
	if !found || g.Name != "Chess Club" {
		t.Fatalf("got (%+v, %v), want stale Chess Club", g, found)
	}
}

func TestGetGroupNeutralOnColdFailure(t *testing.T) {
	f := testutil.NewFakeAPI(t)
	f.Groups = []models.RemoteGroup{{ID: "g1", Name: "Chess Club"}}
	d, _ := newGroupDir(f)

	f.FailNext(500, 1)
	if _, found := d.GetGroup(context.Background(), "g1"); found {
		t.Fatal("cold-cache upstream failure must report not found")
	}
}

func TestListGroupsSearch(t *testing.T) {
	f := testutil.NewFakeAPI(t)
	f.Groups = []models.RemoteGroup{
		{ID: "g1", Name: "Chess Club"},
		{ID: "g2", Name: "Sailing"},
		{ID: "g3", Name: "chess masters"},
	}
	d, _ := newGroupDir(f)
	ctx := context.Background()

	ids := d.ListGroups(ctx, "chess", 0, 0)
	if len(ids) != 2 || ids[0] != "g1" || ids[1] != "g3" {
		t.Fatalf("got %v, want [g1 g3]", ids)
	}

	// A full listing warms the per-group cache.
	before := countRequests(f)
	if _, found := d.GetGroup(ctx, "g3"); !found {
		t.Fatal("listed group not found")
	}
	if countRequests(f) != before {
		t.Fatal("GetGroup after ListGroups must be a cache hit")
	}
}

func TestUsersInGroup(t *testing.T) {
	f := testutil.NewFakeAPI(t)
	f.Groups = []models.RemoteGroup{{ID: "g1", Name: "Chess Club"}}
	f.AddMembership("u1", "g1")
	f.AddMembership("u2", "g1")
	f.AddMembership("u3", "g2")
	d, _ := newGroupDir(f)
	ctx := context.Background()

	uids := d.UsersInGroup(ctx, "g1", "", 0, 0)
	if len(uids) != 2 || uids[0] != "u1" || uids[1] != "u2" {
		t.Fatalf("got %v, want [u1 u2]", uids)
	}
	if n := d.CountUsersInGroup(ctx, "g1", ""); n != 2 {
		t.Fatalf("got count %d, want 2", n)
	}
}

func TestGetUserGroupsAndInGroup(t *testing.T) {
	f := testutil.NewFakeAPI(t)
	f.AddMembership("u1", "g1")
	f.AddMembership("u1", "g2")
	f.AddMembership("u2", "g1")
	d, _ := newGroupDir(f)
	ctx := context.Background()

	gids := d.GetUserGroups(ctx, "u1")
	if len(gids) != 2 || gids[0] != "g1" || gids[1] != "g2" {
		t.Fatalf("got %v, want [g1 g2]", gids)
	}
	if !d.InGroup(ctx, "u1", "g2") {
		t.Fatal("u1 should be in g2")
	}
	if d.InGroup(ctx, "u2", "g2") {
		t.Fatal("u2 should not be in g2")
	}
}

func TestIsAdmin(t *testing.T) {
	f := testutil.NewFakeAPI(t)
	f.AddMembership("u1", "board")
	f.AddMembership("u2", "g1")
	d, _ := newGroupDir(f, "board", "staff")
	ctx := context.Background()

	if !d.IsAdmin(ctx, "u1") {
		t.Fatal("board member should be admin")
	}
	if d.IsAdmin(ctx, "u2") {
		t.Fatal("u2 should not be admin")
	}
}

func TestGroupDetails(t *testing.T) {
	f := testutil.NewFakeAPI(t)
	f.Groups = []models.RemoteGroup{{ID: "g1", Name: "Chess Club"}}
	d, _ := newGroupDir(f)

	details, found := d.GroupDetails(context.Background(), "g1")
	if !found || details["displayName"] != "Chess Club" {
		t.Fatalf("got (%v, %v)", details, found)
	}
}
