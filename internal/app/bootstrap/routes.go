// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	healthfeature "github.com/clubsuite/membersync/internal/app/features/health"
	lookupfeature "github.com/clubsuite/membersync/internal/app/features/lookup"
	syncstatusfeature "github.com/clubsuite/membersync/internal/app/features/syncstatus"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// the Startup hook have completed, so the engine and API client built in
// Startup are available.
//
// The HTTP surface is deliberately small: the service's real work happens
// in background jobs and through the directory/engine APIs. Only operational
// endpoints are exposed.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	r := chi.NewRouter()

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, rt.api, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Read-only view of the engine's last-run status
	statusHandler := syncstatusfeature.NewHandler(rt.engine)
	r.Mount("/sync/status", syncstatusfeature.Routes(statusHandler))

	// Directory queries for an out-of-process host identity subsystem
	lookupHandler := lookupfeature.NewHandler(rt.groupDir, rt.userDir, rt.memberGroups, logger)
	r.Mount("/directory", lookupfeature.Routes(lookupHandler))

	return r, nil
}
