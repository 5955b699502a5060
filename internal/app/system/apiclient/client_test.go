package apiclient_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/clubsuite/membersync/internal/app/system/apiclient"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *apiclient.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return apiclient.New(apiclient.Options{
		BaseURL: srv.URL,
		APIKey:  "service-key",
	}, zap.NewNop())
}

func TestGet_UsesServiceKeyWhenNoToken(t *testing.T) {
	var gotAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{}`))
	})

	resp, err := c.Get(context.Background(), "users/abc", "")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !resp.OK() {
		t.Fatalf("expected 2xx, got %d", resp.Status)
	}
	if gotAuth != "service-key" {
		t.Errorf("Authorization = %q, want service key", gotAuth)
	}
}

func TestGet_UserTokenWinsOverServiceKey(t *testing.T) {
	var gotAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{}`))
	})

	if _, err := c.Get(context.Background(), "users/abc", "user-token"); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if gotAuth != "user-token" {
		t.Errorf("Authorization = %q, want user token", gotAuth)
	}
}

func TestDelete_SendsIfMatch(t *testing.T) {
	var gotEtag, gotMethod string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotEtag = r.Header.Get("If-Match")
		gotMethod = r.Method
		w.WriteHeader(204)
	})

	resp, err := c.Delete(context.Background(), "sessions/s1", "etag-1", "tok")
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if gotMethod != "DELETE" {
		t.Errorf("method = %q", gotMethod)
	}
	if gotEtag != "etag-1" {
		t.Errorf("If-Match = %q, want etag-1", gotEtag)
	}
	if resp.Status != 204 {
		t.Errorf("status = %d, want 204", resp.Status)
	}
}

func TestPost_FormEncoded(t *testing.T) {
	var gotContentType, gotUser string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		_ = r.ParseForm()
		gotUser = r.PostForm.Get("username")
		w.WriteHeader(201)
		_, _ = w.Write([]byte(`{"_id":"s1","token":"t1"}`))
	})

	form := map[string][]string{"username": {"alice"}, "password": {"pw"}}
	resp, err := c.Post(context.Background(), "sessions", form, "")
	if err != nil {
		t.Fatalf("Post failed: %v", err)
	}
	if gotContentType != "application/x-www-form-urlencoded" {
		t.Errorf("Content-Type = %q", gotContentType)
	}
	if gotUser != "alice" {
		t.Errorf("username = %q, want alice", gotUser)
	}
	if resp.Status != 201 {
		t.Errorf("status = %d, want 201", resp.Status)
	}
}

func TestNon2xx_BodyPreserved(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(422)
		_, _ = w.Write([]byte(`{"_error":{"code":422,"message":"validation failed"}}`))
	})

	resp, err := c.Get(context.Background(), "groups", "")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if resp.OK() {
		t.Fatal("expected non-2xx")
	}
	if len(resp.Body) == 0 {
		t.Error("error body was dropped")
	}
}

func TestURLJoin_ToleratesSlashes(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)

	c := apiclient.New(apiclient.Options{BaseURL: srv.URL + "/"}, zap.NewNop())
	if _, err := c.Get(context.Background(), "/users/abc", ""); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if gotPath != "/users/abc" {
		t.Errorf("request path = %q, want /users/abc", gotPath)
	}
}
