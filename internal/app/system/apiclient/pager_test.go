package apiclient_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"testing"

	"github.com/clubsuite/membersync/internal/app/system/apiclient"
	"github.com/clubsuite/membersync/internal/testutil"
)

func TestListAllFollowsPagination(t *testing.T) {
	f := testutil.NewFakeAPI(t)
	for i := 0; i < 230; i++ {
		f.AddMembership(fmt.Sprintf("u%03d", i), "g1")
	}

	path := apiclient.ListPath("groupmemberships", map[string]any{"group": "g1"},
		url.Values{"max_results": {"100"}})
	ctx, cancel := testutil.TestContext()
	defer cancel()
	items, err := f.Client().ListAll(ctx, path, "")
	if err != nil {
		t.Fatalf("ListAll failed: %v", err)
	}
	if len(items) != 230 {
		t.Fatalf("got %d items, want 230", len(items))
	}

	// Items arrive in listing order across page boundaries.
	var first, last struct {
		User string `json:"user"`
	}
	if err := json.Unmarshal(items[0], &first); err != nil {
		t.Fatalf("unmarshal first item: %v", err)
	}
	if err := json.Unmarshal(items[229], &last); err != nil {
		t.Fatalf("unmarshal last item: %v", err)
	}
	if first.User != "u000" || last.User != "u229" {
		t.Fatalf("got first=%q last=%q, want u000/u229", first.User, last.User)
	}

	pages := 0
	for _, req := range f.Requests() {
		if req == "GET /groupmemberships" {
			pages++
		}
	}
	if pages != 3 {
		t.Fatalf("got %d page fetches, want 3", pages)
	}
}

func TestListAllAbortsOnPageError(t *testing.T) {
	f := testutil.NewFakeAPI(t)
	for i := 0; i < 50; i++ {
		f.AddMembership(fmt.Sprintf("u%02d", i), "g1")
	}
	f.PageSize = 20

	ctx, cancel := testutil.TestContext()
	defer cancel()
	pager := f.Client().Pages("groupmemberships", "")

	page, err := pager.Next(ctx)
	if err != nil {
		t.Fatalf("first page failed: %v", err)
	}
	if len(page.Items) != 20 {
		t.Fatalf("got %d items on first page, want 20", len(page.Items))
	}

	// A failure mid-listing must surface, never a truncated result.
	f.FailNext(500, 1)
	_, err = pager.Next(ctx)
	var se *apiclient.StatusError
	if !errors.As(err, &se) || se.Status != 500 {
		t.Fatalf("got err %v, want StatusError 500", err)
	}

	// The pager is spent after a failure.
	page, err = pager.Next(ctx)
	if page != nil || err != nil {
		t.Fatalf("got (%v, %v) after failure, want (nil, nil)", page, err)
	}
}

func TestListAllNotFound(t *testing.T) {
	f := testutil.NewFakeAPI(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	_, err := f.Client().ListAll(ctx, "nosuchresource", "")
	if !errors.Is(err, apiclient.ErrNotFound) {
		t.Fatalf("got err %v, want ErrNotFound", err)
	}
}

func TestListMembershipsDecodes(t *testing.T) {
	f := testutil.NewFakeAPI(t)
	f.AddMembership("u1", "g1")
	f.AddMembership("u2", "g1")

	ctx, cancel := testutil.TestContext()
	defer cancel()
	ms, err := f.Client().ListMemberships(ctx, "groupmemberships", "")
	if err != nil {
		t.Fatalf("ListMemberships failed: %v", err)
	}
	if len(ms) != 2 {
		t.Fatalf("got %d memberships, want 2", len(ms))
	}
	if ms[0].UserID != "u1" || ms[0].GroupID != "g1" {
		t.Fatalf("got %+v, want user u1 in g1", ms[0])
	}
}
