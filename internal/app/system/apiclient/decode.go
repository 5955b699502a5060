// internal/app/system/apiclient/decode.go
package apiclient

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/clubsuite/membersync/internal/domain/models"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// DecodeError reports a response body that did not match the expected
// schema. It is distinct from transport and status errors so callers can
// treat a malformed payload as a hard failure rather than a crash.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("apiclient: decode: %v", e.Err) }
func (e *DecodeError) Unwrap() error { return e.Err }

//go:embed schemas/*.json
var schemaFS embed.FS

var (
	listSchema    = mustCompile("schemas/listenvelope.json")
	sessionSchema = mustCompile("schemas/session.json")
)

func mustCompile(name string) *jsonschema.Schema {
	raw, err := schemaFS.ReadFile(name)
	if err != nil {
		panic(err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		panic(err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(name, doc); err != nil {
		panic(err)
	}
	sch, err := c.Compile(name)
	if err != nil {
		panic(err)
	}
	return sch
}

// validate checks raw JSON against a compiled schema and wraps any mismatch
// in a DecodeError.
func validate(sch *jsonschema.Schema, body []byte) error {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return &DecodeError{Err: err}
	}
	if err := sch.Validate(inst); err != nil {
		return &DecodeError{Err: err}
	}
	return nil
}

// ListMeta mirrors the `_meta` object of list responses.
type ListMeta struct {
	Total int `json:"total"`
}

type listLink struct {
	Href string `json:"href"`
}

type listLinks struct {
	Next *listLink `json:"next"`
}

// ListEnvelope is the common shape of all list endpoints:
// `{_items: [...], _meta: {total}, _links: {next: {href}}}`.
type ListEnvelope struct {
	Items []json.RawMessage `json:"_items"`
	Meta  ListMeta          `json:"_meta"`
	Links listLinks         `json:"_links"`
}

// NextPath returns the relative path of the next page, or "" on the last
// page.
func (e *ListEnvelope) NextPath() string {
	if e.Links.Next == nil {
		return ""
	}
	return e.Links.Next.Href
}

// DecodeList validates and decodes a list envelope.
func DecodeList(body []byte) (*ListEnvelope, error) {
	if err := validate(listSchema, body); err != nil {
		return nil, err
	}
	var env ListEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &DecodeError{Err: err}
	}
	return &env, nil
}

// DecodeUser decodes a user resource.
func DecodeUser(body []byte) (models.RemoteUser, error) {
	var u models.RemoteUser
	if err := json.Unmarshal(body, &u); err != nil {
		return models.RemoteUser{}, &DecodeError{Err: err}
	}
	if u.ID == "" {
		return models.RemoteUser{}, &DecodeError{Err: fmt.Errorf("user resource missing _id")}
	}
	return u, nil
}

// DecodeGroup decodes a group resource.
func DecodeGroup(body []byte) (models.RemoteGroup, error) {
	var g models.RemoteGroup
	if err := json.Unmarshal(body, &g); err != nil {
		return models.RemoteGroup{}, &DecodeError{Err: err}
	}
	if g.ID == "" {
		return models.RemoteGroup{}, &DecodeError{Err: fmt.Errorf("group resource missing _id")}
	}
	return g, nil
}

// Session is a created remote session: the bearer token, the user it belongs
// to and the etag needed for conditional deletion.
type Session struct {
	ID    string
	Token string
	User  models.RemoteUser
	Etag  string
}

// DecodeSession validates and decodes a session resource. The `user` field
// arrives either as a bare id or as an embedded user object.
func DecodeSession(body []byte) (Session, error) {
	if err := validate(sessionSchema, body); err != nil {
		return Session{}, err
	}
	var raw struct {
		ID    string          `json:"_id"`
		Token string          `json:"token"`
		User  json.RawMessage `json:"user"`
		Etag  string          `json:"_etag"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return Session{}, &DecodeError{Err: err}
	}
	s := Session{ID: raw.ID, Token: raw.Token, Etag: raw.Etag}
	if len(raw.User) > 0 {
		if bytes.HasPrefix(bytes.TrimSpace(raw.User), []byte("{")) {
			if err := json.Unmarshal(raw.User, &s.User); err != nil {
				return Session{}, &DecodeError{Err: err}
			}
		} else if err := json.Unmarshal(raw.User, &s.User.ID); err != nil {
			return Session{}, &DecodeError{Err: err}
		}
	}
	return s, nil
}
