// internal/app/features/syncstatus/handler.go
package syncstatus

import (
	"encoding/json"
	"net/http"

	"github.com/clubsuite/membersync/internal/app/apisync"
)

// Handler serves the reconciliation engine's last-run status.
type Handler struct {
	engine *apisync.Engine
}

// NewHandler creates a new syncstatus handler.
func NewHandler(engine *apisync.Engine) *Handler {
	return &Handler{engine: engine}
}

// Serve handles GET /sync/status, returning the engine's status snapshot:
//
//	{ "last_share_sync":"…", "last_admin_sync":"…", "last_cleanup":"…",
//	  "groups_seen":N, "shares_soft_deleted":N, "shares_restored":N,
//	  "mappings_cleaned":N }
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(h.engine.Status())
}
