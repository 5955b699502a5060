// internal/app/features/syncstatus/routes.go
package syncstatus

import "github.com/go-chi/chi/v5"

// Routes returns a subrouter that serves the sync status endpoint.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Serve) // this will be mounted under /sync/status
	return r
}
