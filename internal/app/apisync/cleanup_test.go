package apisync_test

import (
	"context"
	"testing"
	"time"

	"github.com/clubsuite/membersync/internal/domain/models"
	"github.com/clubsuite/membersync/internal/testutil"
)

func TestCleanupSharesHonorsRetention(t *testing.T) {
	f := testutil.NewFakeAPI(t)
	ids := testutil.NewFakeIdentity()
	shares := testutil.NewFakeShareMappings()
	e := newTestEngine(t, f, ids, shares)
	ctx := context.Background()

	// Two soft-deleted mappings: one past retention, one freshly deleted.
	f.Groups = []models.RemoteGroup{
		remoteGroup("g1", "Chess Club", true),
		remoteGroup("g2", "Go Club", true),
	}
	if err := e.SyncShares(ctx); err != nil {
		t.Fatal(err)
	}
	expired, _, _ := shares.FindByGroupID(ctx, "g1")
	fresh, _, _ := shares.FindByGroupID(ctx, "g2")

	retention := testConfig().Retention
	if err := shares.MarkDeleted(ctx, expired.ID, time.Now().UTC().Add(-retention-time.Hour)); err != nil {
		t.Fatal(err)
	}
	if err := shares.MarkDeleted(ctx, fresh.ID, time.Now().UTC()); err != nil {
		t.Fatal(err)
	}

	if err := e.CleanupShares(ctx); err != nil {
		t.Fatalf("CleanupShares failed: %v", err)
	}

	if _, found, _ := shares.FindByGroupID(ctx, "g1"); found {
		t.Fatal("expired mapping not removed")
	}
	if _, ok, _ := ids.Folder(ctx, fileOwner, expired.FolderID); ok {
		t.Fatal("expired folder not removed")
	}
	if _, found, _ := ids.Group(ctx, "g1"); found {
		t.Fatal("expired local group not removed")
	}

	// Still within retention: everything stays recoverable.
	if _, found, _ := shares.FindByGroupID(ctx, "g2"); !found {
		t.Fatal("fresh soft-deleted mapping removed early")
	}
	if _, ok, _ := ids.Folder(ctx, fileOwner, fresh.FolderID); !ok {
		t.Fatal("fresh folder removed early")
	}

	if st := e.Status(); st.MappingsCleaned != 1 || st.LastCleanup.IsZero() {
		t.Fatalf("got status %+v, want 1 cleaned", st)
	}
}

func TestCleanupSharesToleratesHalfCleanedMapping(t *testing.T) {
	f := testutil.NewFakeAPI(t)
	ids := testutil.NewFakeIdentity()
	shares := testutil.NewFakeShareMappings()
	e := newTestEngine(t, f, ids, shares)
	ctx := context.Background()

	// The mapping references a folder and group a crashed run already
	// deleted.
	m, err := shares.Insert(ctx, "g1", "gone")
	if err != nil {
		t.Fatal(err)
	}
	if err := shares.MarkDeleted(ctx, m.ID, time.Now().UTC().Add(-testConfig().Retention-time.Hour)); err != nil {
		t.Fatal(err)
	}

	if err := e.CleanupShares(ctx); err != nil {
		t.Fatalf("CleanupShares failed: %v", err)
	}
	if _, found, _ := shares.FindByGroupID(ctx, "g1"); found {
		t.Fatal("half-cleaned mapping not removed")
	}
	if st := e.Status(); st.MappingsCleaned != 1 {
		t.Fatalf("got status %+v, want 1 cleaned", st)
	}
}
