package groupshares_test

import (
	"errors"
	"testing"
	"time"

	"github.com/clubsuite/membersync/internal/app/store/groupshares"
	"github.com/clubsuite/membersync/internal/app/system/indexes"
	"github.com/clubsuite/membersync/internal/testutil"
)

func newStore(t *testing.T) *groupshares.Store {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	return groupshares.New(db)
}

func TestInsertAndFind(t *testing.T) {
	s := newStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	m, err := s.Insert(ctx, "g1", "f1")
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if m.GID != "g1" || m.FolderID != "f1" || m.DeletedAt != nil {
		t.Fatalf("got %+v", m)
	}

	byGID, found, err := s.FindByGroupID(ctx, "g1")
	if err != nil || !found || byGID.ID != m.ID {
		t.Fatalf("FindByGroupID got (%+v, %v, %v)", byGID, found, err)
	}
	byFolder, found, err := s.FindByFolderID(ctx, "f1")
	if err != nil || !found || byFolder.ID != m.ID {
		t.Fatalf("FindByFolderID got (%+v, %v, %v)", byFolder, found, err)
	}

	if _, found, err := s.FindByGroupID(ctx, "nope"); err != nil || found {
		t.Fatalf("lookup of unknown gid got (found=%v, err=%v)", found, err)
	}
}

func TestInsertDuplicate(t *testing.T) {
	s := newStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := s.Insert(ctx, "g1", "f1"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Insert(ctx, "g1", "f2"); !errors.Is(err, groupshares.ErrDuplicate) {
		t.Fatalf("duplicate gid: got err %v, want ErrDuplicate", err)
	}
	if _, err := s.Insert(ctx, "g2", "f1"); !errors.Is(err, groupshares.ErrDuplicate) {
		t.Fatalf("duplicate folder: got err %v, want ErrDuplicate", err)
	}
}

func TestSoftDeleteLifecycle(t *testing.T) {
	s := newStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	m, err := s.Insert(ctx, "g1", "f1")
	if err != nil {
		t.Fatal(err)
	}

	deletedAt := time.Now().UTC().Add(-time.Hour)
	if err := s.MarkDeleted(ctx, m.ID, deletedAt); err != nil {
		t.Fatal(err)
	}

	got, found, _ := s.FindByGroupID(ctx, "g1")
	if !found || got.DeletedAt == nil {
		t.Fatalf("got (%+v, %v), want soft-deleted", got, found)
	}

	deleted, err := s.FindDeleted(ctx)
	if err != nil || len(deleted) != 1 {
		t.Fatalf("FindDeleted got (%v, %v)", deleted, err)
	}
	due, err := s.FindDeletedBefore(ctx, time.Now().UTC())
	if err != nil || len(due) != 1 {
		t.Fatalf("FindDeletedBefore(now) got (%v, %v)", due, err)
	}
	if due, _ := s.FindDeletedBefore(ctx, deletedAt.Add(-time.Minute)); len(due) != 0 {
		t.Fatalf("FindDeletedBefore(early cutoff) got %v, want none", due)
	}

	if err := s.Restore(ctx, m.ID); err != nil {
		t.Fatal(err)
	}
	got, _, _ = s.FindByGroupID(ctx, "g1")
	if got.DeletedAt != nil {
		t.Fatalf("got %+v after restore", got)
	}
	if deleted, _ := s.FindDeleted(ctx); len(deleted) != 0 {
		t.Fatalf("FindDeleted after restore got %v", deleted)
	}
}

func TestUpdateFolder(t *testing.T) {
	s := newStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	m, err := s.Insert(ctx, "g1", "f1")
	if err != nil {
		t.Fatal(err)
	}
	other, err := s.Insert(ctx, "g2", "f2")
	if err != nil {
		t.Fatal(err)
	}

	if err := s.UpdateFolder(ctx, m.ID, "f3"); err != nil {
		t.Fatal(err)
	}
	got, _, _ := s.FindByGroupID(ctx, "g1")
	if got.FolderID != "f3" {
		t.Fatalf("got folder %q, want f3", got.FolderID)
	}

	// Repointing at another mapping's folder trips the unique index.
	if err := s.UpdateFolder(ctx, m.ID, other.FolderID); !errors.Is(err, groupshares.ErrDuplicate) {
		t.Fatalf("got err %v, want ErrDuplicate", err)
	}
}

func TestDelete(t *testing.T) {
	s := newStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	m, err := s.Insert(ctx, "g1", "f1")
	if err != nil {
		t.Fatal(err)
	}

	n, err := s.Delete(ctx, m.ID)
	if err != nil || n != 1 {
		t.Fatalf("Delete got (%d, %v), want 1 row", n, err)
	}
	n, err = s.Delete(ctx, m.ID)
	if err != nil || n != 0 {
		t.Fatalf("second Delete got (%d, %v), want 0 rows", n, err)
	}

	all, err := s.FindAll(ctx)
	if err != nil || len(all) != 0 {
		t.Fatalf("FindAll got (%v, %v)", all, err)
	}
}
