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

func newMemberGroupDir(f *testutil.FakeAPI) *directory.MemberGroupDirectory {
	cache := apicache.New(apicache.NewMemoryBackend(), zap.NewNop())
	return directory.NewMemberGroupDirectory(f.Client(), cache, zap.NewNop())
}

func seedTierUsers(f *testutil.FakeAPI) {
	f.Users["u1"] = models.RemoteUser{ID: "u1", FirstName: "Ada", Membership: models.MembershipRegular}
	f.Users["u2"] = models.RemoteUser{ID: "u2", FirstName: "Grace", Membership: models.MembershipHonorary}
	f.Users["u3"] = models.RemoteUser{ID: "u3", FirstName: "Alan", Membership: models.MembershipNone}
}

func TestMemberPseudoGroups(t *testing.T) {
	f := testutil.NewFakeAPI(t)
	d := newMemberGroupDir(f)
	ctx := context.Background()

	all := d.ListGroups(ctx, "", 0, 0)
	if len(all) != 4 {
		t.Fatalf("got %v, want 4 pseudo-groups", all)
	}
	if !d.GroupExists(ctx, directory.MembersGroupID) || !d.GroupExists(ctx, models.MembershipHonorary) {
		t.Fatal("known pseudo-groups missing")
	}
	if d.GroupExists(ctx, "chess") {
		t.Fatal("arbitrary gid reported as pseudo-group")
	}

	hits := d.ListGroups(ctx, "honorary", 0, 0)
	if len(hits) != 1 || hits[0] != models.MembershipHonorary {
		t.Fatalf("got %v, want [honorary]", hits)
	}

	details, found := d.GroupDetails(ctx, directory.MembersGroupID)
	if !found || details["displayName"] != "Members" {
		t.Fatalf("got (%v, %v)", details, found)
	}
	// No request in this test may hit the API: the group set is fixed.
	if n := len(f.Requests()); n != 0 {
		t.Fatalf("pseudo-group queries made %d API requests", n)
	}
}

func TestMemberGroupUsersInGroup(t *testing.T) {
	f := testutil.NewFakeAPI(t)
	seedTierUsers(f)
	d := newMemberGroupDir(f)
	ctx := context.Background()

	// The aggregate group spans every tier except none.
	uids := d.UsersInGroup(ctx, directory.MembersGroupID, "", 0, 0)
	if len(uids) != 2 || uids[0] != "u1" || uids[1] != "u2" {
		t.Fatalf("got %v, want [u1 u2]", uids)
	}

	honorary := d.UsersInGroup(ctx, models.MembershipHonorary, "", 0, 0)
	if len(honorary) != 1 || honorary[0] != "u2" {
		t.Fatalf("got %v, want [u2]", honorary)
	}

	if got := d.UsersInGroup(ctx, "notatier", "", 0, 0); len(got) != 0 {
		t.Fatalf("got %v for unknown pseudo-group", got)
	}

	if n := d.CountUsersInGroup(ctx, directory.MembersGroupID, ""); n != 2 {
		t.Fatalf("got count %d, want 2", n)
	}
	if n := d.CountUsersInGroup(ctx, models.MembershipRegular, ""); n != 1 {
		t.Fatalf("got count %d, want 1", n)
	}
}

func TestMemberGroupGetUserGroups(t *testing.T) {
	f := testutil.NewFakeAPI(t)
	seedTierUsers(f)
	d := newMemberGroupDir(f)
	ctx := context.Background()

	gids := d.GetUserGroups(ctx, "u1")
	if len(gids) != 2 || gids[0] != directory.MembersGroupID || gids[1] != models.MembershipRegular {
		t.Fatalf("got %v, want [members regular]", gids)
	}

	// Tier "none" is not a membership.
	if got := d.GetUserGroups(ctx, "u3"); len(got) != 0 {
		t.Fatalf("got %v for non-member", got)
	}
	// Unknown users have no tiers either.
	if got := d.GetUserGroups(ctx, "ghost"); len(got) != 0 {
		t.Fatalf("got %v for unknown user", got)
	}
}

func TestMemberGroupInGroup(t *testing.T) {
	f := testutil.NewFakeAPI(t)
	seedTierUsers(f)
	d := newMemberGroupDir(f)
	ctx := context.Background()

	if !d.InGroup(ctx, "u2", directory.MembersGroupID) {
		t.Fatal("honorary member should be in members")
	}
	if !d.InGroup(ctx, "u2", models.MembershipHonorary) {
		t.Fatal("honorary member should be in honorary")
	}
	if d.InGroup(ctx, "u2", models.MembershipRegular) {
		t.Fatal("honorary member should not be in regular")
	}
	if d.InGroup(ctx, "u3", directory.MembersGroupID) {
		t.Fatal("tier none should not be in members")
	}
}
