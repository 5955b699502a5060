package apiclient_test

import (
	"errors"
	"testing"

	"github.com/clubsuite/membersync/internal/app/system/apiclient"
)

func TestDecodeList(t *testing.T) {
	body := []byte(`{
		"_items": [{"_id":"g1"},{"_id":"g2"}],
		"_meta": {"total": 7, "page": 1, "max_results": 2},
		"_links": {"next": {"href": "groups?page=2"}}
	}`)

	env, err := apiclient.DecodeList(body)
	if err != nil {
		t.Fatalf("DecodeList failed: %v", err)
	}
	if len(env.Items) != 2 {
		t.Errorf("items = %d, want 2", len(env.Items))
	}
	if env.Meta.Total != 7 {
		t.Errorf("total = %d, want 7", env.Meta.Total)
	}
	if env.NextPath() != "groups?page=2" {
		t.Errorf("next = %q", env.NextPath())
	}
}

func TestDecodeList_LastPageHasNoNext(t *testing.T) {
	env, err := apiclient.DecodeList([]byte(`{"_items":[],"_meta":{"total":0}}`))
	if err != nil {
		t.Fatalf("DecodeList failed: %v", err)
	}
	if env.NextPath() != "" {
		t.Errorf("next = %q, want empty", env.NextPath())
	}
}

func TestDecodeList_RejectsNonEnvelope(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"missing items", `{"_meta":{"total":0}}`},
		{"items not array", `{"_items":"nope"}`},
		{"not json", `<html>gateway error</html>`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := apiclient.DecodeList([]byte(tc.body))
			var de *apiclient.DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("err = %v, want DecodeError", err)
			}
		})
	}
}

func TestDecodeUser_RequiresID(t *testing.T) {
	_, err := apiclient.DecodeUser([]byte(`{"email":"a@b.c"}`))
	var de *apiclient.DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("err = %v, want DecodeError", err)
	}

	u, err := apiclient.DecodeUser([]byte(`{"_id":"u1","firstname":"Ada","lastname":"Lovelace","membership":"regular"}`))
	if err != nil {
		t.Fatalf("DecodeUser failed: %v", err)
	}
	if u.DisplayName() != "Ada Lovelace" {
		t.Errorf("display name = %q", u.DisplayName())
	}
	if !u.IsMember() {
		t.Error("regular member reported as non-member")
	}
}

func TestDecodeSession_UserAsID(t *testing.T) {
	s, err := apiclient.DecodeSession([]byte(`{"_id":"s1","token":"t1","user":"u1","_etag":"e1"}`))
	if err != nil {
		t.Fatalf("DecodeSession failed: %v", err)
	}
	if s.User.ID != "u1" || s.Token != "t1" || s.Etag != "e1" {
		t.Errorf("session = %+v", s)
	}
}

func TestDecodeSession_UserEmbedded(t *testing.T) {
	body := []byte(`{"_id":"s1","token":"t1","_etag":"e1",
		"user":{"_id":"u1","email":"a@b.c","membership":"honorary"}}`)
	s, err := apiclient.DecodeSession(body)
	if err != nil {
		t.Fatalf("DecodeSession failed: %v", err)
	}
	if s.User.ID != "u1" || s.User.Membership != "honorary" {
		t.Errorf("user = %+v", s.User)
	}
}

func TestDecodeSession_RejectsMissingToken(t *testing.T) {
	_, err := apiclient.DecodeSession([]byte(`{"_id":"s1"}`))
	var de *apiclient.DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("err = %v, want DecodeError", err)
	}
}
