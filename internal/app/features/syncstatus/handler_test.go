package syncstatus_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/clubsuite/membersync/internal/app/apisync"
	"github.com/clubsuite/membersync/internal/app/features/syncstatus"
	"github.com/clubsuite/membersync/internal/domain/models"
	"github.com/clubsuite/membersync/internal/testutil"
	"go.uber.org/zap"
)

func TestServeReportsLastRun(t *testing.T) {
	f := testutil.NewFakeAPI(t)
	ids := testutil.NewFakeIdentity()
	shares := testutil.NewFakeShareMappings()
	e := apisync.New(apisync.Config{
		FileOwner:     "clubfiles",
		InternalGroup: "members",
		Retention:     720 * time.Hour,
	}, f.Client(), ids, shares, zap.NewNop())

	f.Groups = []models.RemoteGroup{
		{ID: "g1", Name: "Chess Club", RequiresStorage: true},
	}
	if err := e.SyncShares(context.Background()); err != nil {
		t.Fatalf("SyncShares failed: %v", err)
	}

	srv := httptest.NewServer(syncstatus.Routes(syncstatus.NewHandler(e)))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Fatalf("status code: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want %q", ct, "application/json")
	}

	var status apisync.Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status.GroupsSeen != 1 {
		t.Errorf("groups_seen: got %d, want 1", status.GroupsSeen)
	}
	if status.LastShareSync.IsZero() {
		t.Error("last_share_sync not recorded")
	}
	if status.LastError != "" {
		t.Errorf("last_error: got %q, want empty", status.LastError)
	}
}
