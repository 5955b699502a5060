// internal/app/system/directory/directory.go

// Package directory presents remote membership data through a read-oriented
// capability set consumable by the host identity subsystem. Every read is
// cache-first; on upstream failure the backends degrade to stale cache
// values or neutral defaults, never errors. The host directory contract has
// no error channel, so resilience is the whole point here.
package directory

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/clubsuite/membersync/internal/app/system/apicache"
	"github.com/clubsuite/membersync/internal/app/system/apiclient"
	"go.uber.org/zap"
)

// defaultPageLimit matches the API's default page size for offset/page
// conversion.
const defaultPageLimit = 25

// errIDMismatch marks a resource whose _id does not match the id it was
// requested under.
var errIDMismatch = errors.New("response _id does not match requested id")

// readThrough is the shared read policy: valid cache hit wins; otherwise
// query the remote and cache the result; on remote failure log, serve a
// stale cache value if one exists, else the neutral default.
func readThrough[T any](ctx context.Context, cache *apicache.Cache, log *zap.Logger,
	key string, ttl time.Duration, neutral T, remote func(context.Context) (T, error)) T {

	var cached T
	if cache.Get(ctx, key, &cached) {
		return cached
	}

	v, err := remote(ctx)
	if err == nil {
		cache.Set(ctx, key, v, ttl)
		return v
	}
	log.Error("directory read failed, trying stale cache",
		zap.String("key", key), zap.Error(err))

	var stale T
	if cache.GetStale(ctx, key, &stale) {
		return stale
	}
	return neutral
}

// nameFilter builds the case-insensitive regex filter the API expects for a
// free-text search, matching any of the whitespace-separated keywords.
func nameFilter(search string) map[string]any {
	pattern := "^(?i).*" + strings.ReplaceAll(regexp.QuoteMeta(search), " ", "|") + ".*"
	return map[string]any{"$regex": pattern}
}

// pageParams converts a limit/offset pair into the API's max_results/page
// query parameters.
func pageParams(limit, offset int) url.Values {
	params := url.Values{}
	if limit > 0 {
		params.Set("max_results", strconv.Itoa(limit))
	}
	if offset > 0 {
		l := limit
		if l <= 0 {
			l = defaultPageLimit
		}
		params.Set("page", strconv.Itoa(offset/l+1))
	}
	return params
}

// listTotal fetches a listing and returns its `_meta.total` count.
func listTotal(ctx context.Context, api *apiclient.Client, path string) (int, error) {
	resp, err := api.Get(ctx, path, "")
	if err != nil {
		return 0, err
	}
	if !resp.OK() {
		return 0, &apiclient.StatusError{Status: resp.Status, Body: resp.Body}
	}
	env, err := apiclient.DecodeList(resp.Body)
	if err != nil {
		return 0, err
	}
	return env.Meta.Total, nil
}

// decodeIDs extracts a named string field from every item of a listing.
func decodeIDs(items []json.RawMessage, field string) ([]string, error) {
	out := make([]string, 0, len(items))
	for _, raw := range items {
		var m map[string]json.RawMessage
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		var v string
		if err := json.Unmarshal(m[field], &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
