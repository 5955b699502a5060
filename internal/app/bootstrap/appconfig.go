// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration.
//
// WAFFLE's CoreConfig handles framework-level settings like HTTP ports,
// TLS, logging level and format, and request limits. AppConfig is where
// everything specific to this service lives: the remote membership API
// endpoint and credentials, sync policy, and MongoDB connection settings.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64 // Max connections in the pool
	MongoMinPoolSize uint64 // Min connections in the pool

	// Remote membership API
	APIURL string // Base URL of the membership API (e.g., https://api.example.org)
	APIKey string // Service token sent when no user token is available

	// Sync policy
	FileOwner      string        // Local account owning all synced group folders
	AdminGroups    []string      // Remote groups (id or name) whose members get local admin
	InternalGroup  string        // Local group holding everyone with a membership
	UserQuota      string        // Storage quota for synced accounts
	ShareRetention time.Duration // How long soft-deleted mappings are kept

	// Background job intervals
	SyncInterval    time.Duration // Full share+admin sync
	CleanupInterval time.Duration // Retention cleanup
	QueueInterval   time.Duration // Task queue drain

	// Cache configuration
	CacheBackend string // "memory", "mongo", or "off"
}
