// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for membersync.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: api_url, mongo_uri, etc.
//   - Environment variables: MEMBERSYNC_API_URL, MEMBERSYNC_MONGO_URI, etc.
//   - Command-line flags: --api_url, --mongo_uri, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "membersync", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	// Remote membership API
	{Name: "api_url", Default: "", Desc: "Base URL of the remote membership API"},
	{Name: "api_key", Default: "", Desc: "Service token for unauthenticated API calls"},

	// Sync policy
	{Name: "file_owner", Default: "", Desc: "Local account that owns all synced group folders"},
	{Name: "admin_groups", Default: "", Desc: "Comma-separated remote groups (id or name) granting local admin"},
	{Name: "internal_group", Default: "members", Desc: "Local group holding everyone with a membership"},
	{Name: "user_quota", Default: "0 B", Desc: "Storage quota assigned to synced accounts"},
	{Name: "share_retention", Default: "720h", Desc: "How long soft-deleted folder mappings are kept (e.g., 720h)"},

	// Background job intervals
	{Name: "sync_interval", Default: "15m", Desc: "Interval between full share/admin syncs"},
	{Name: "cleanup_interval", Default: "24h", Desc: "Interval between retention cleanup runs"},
	{Name: "queue_interval", Default: "1m", Desc: "Interval between task queue drains"},

	// Cache
	{Name: "cache_backend", Default: "memory", Desc: "API cache backend: 'memory', 'mongo', or 'off'"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, MEMBERSYNC_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "MEMBERSYNC", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		APIURL: appValues.String("api_url"),
		APIKey: appValues.String("api_key"),

		FileOwner:      appValues.String("file_owner"),
		AdminGroups:    splitList(appValues.String("admin_groups")),
		InternalGroup:  appValues.String("internal_group"),
		UserQuota:      appValues.String("user_quota"),
		ShareRetention: appValues.Duration("share_retention", 720*time.Hour),

		SyncInterval:    appValues.Duration("sync_interval", 15*time.Minute),
		CleanupInterval: appValues.Duration("cleanup_interval", 24*time.Hour),
		QueueInterval:   appValues.Duration("queue_interval", time.Minute),

		CacheBackend: appValues.String("cache_backend"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// Required fields and URI formats are checked here so misconfiguration
// fails fast instead of surfacing as runtime sync errors.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	if appCfg.APIURL == "" {
		return fmt.Errorf("api_url is required")
	}
	if appCfg.FileOwner == "" {
		return fmt.Errorf("file_owner is required")
	}

	switch appCfg.CacheBackend {
	case "memory", "mongo", "off":
	default:
		return fmt.Errorf("cache_backend must be 'memory', 'mongo', or 'off' (got %q)", appCfg.CacheBackend)
	}

	if appCfg.ShareRetention <= 0 {
		return fmt.Errorf("share_retention must be positive")
	}

	return nil
}

// splitList parses a comma-separated config value into trimmed entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
