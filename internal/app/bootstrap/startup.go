// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/clubsuite/membersync/internal/app/apisync"
	"github.com/clubsuite/membersync/internal/app/store/groupshares"
	"github.com/clubsuite/membersync/internal/app/store/localidentity"
	"github.com/clubsuite/membersync/internal/app/store/taskqueue"
	"github.com/clubsuite/membersync/internal/app/system/apicache"
	"github.com/clubsuite/membersync/internal/app/system/apiclient"
	"github.com/clubsuite/membersync/internal/app/system/directory"
	"github.com/clubsuite/membersync/internal/app/system/tasks"
	"github.com/clubsuite/membersync/internal/app/system/timeouts"
	"github.com/clubsuite/membersync/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// runtime holds the long-lived components built during Startup and shared
// by BuildHandler and Shutdown.
type runtime struct {
	api          *apiclient.Client
	cache        *apicache.Cache
	engine       *apisync.Engine
	groupDir     *directory.GroupDirectory
	userDir      *directory.UserDirectory
	memberGroups *directory.MemberGroupDirectory
	runner       *tasks.Runner
	drain        *workers.QueueDrain
}

var rt runtime

// Startup builds the API client, cache, reconciliation engine and
// background workers, then starts the workers. It runs after DB
// connections and schema setup are complete, but before the HTTP handler
// is built.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	api := apiclient.New(apiclient.Options{
		BaseURL: appCfg.APIURL,
		APIKey:  appCfg.APIKey,
	}, logger)

	backend := apicache.Select(appCfg.CacheBackend, deps.MongoDatabase, logger)
	cache := apicache.New(backend, logger)

	groupDir := directory.NewGroupDirectory(api, cache, appCfg.AdminGroups, logger)
	userDir := directory.NewUserDirectory(api, cache, logger)
	memberGroups := directory.NewMemberGroupDirectory(api, cache, logger)

	engine := apisync.New(apisync.Config{
		FileOwner:     appCfg.FileOwner,
		AdminGroups:   appCfg.AdminGroups,
		InternalGroup: appCfg.InternalGroup,
		Retention:     appCfg.ShareRetention,
		UserQuota:     appCfg.UserQuota,
	},
		api,
		localidentity.New(deps.MongoDatabase),
		groupshares.New(deps.MongoDatabase),
		logger,
	)

	runner := tasks.NewRunner(logger, timeouts.Sync(),
		tasks.FullSyncJob(engine, appCfg.SyncInterval),
		tasks.ShareCleanupJob(engine, appCfg.CleanupInterval),
	)
	runner.Start()

	drain := workers.NewQueueDrain(taskqueue.New(deps.MongoDatabase), engine, logger, appCfg.QueueInterval)
	drain.Start()

	rt = runtime{
		api:          api,
		cache:        cache,
		engine:       engine,
		groupDir:     groupDir,
		userDir:      userDir,
		memberGroups: memberGroups,
		runner:       runner,
		drain:        drain,
	}
	return nil
}
