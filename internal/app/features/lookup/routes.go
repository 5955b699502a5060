// internal/app/features/lookup/routes.go
package lookup

import "github.com/go-chi/chi/v5"

// Routes returns a subrouter with the directory lookup endpoints. It is
// mounted under /directory.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/groups", h.ServeGroups)
	r.Get("/groups/{gid}", h.ServeGroup)
	r.Get("/groups/{gid}/users", h.ServeGroupUsers)
	r.Get("/users", h.ServeUsers)
	r.Get("/users/{uid}", h.ServeUser)
	r.Post("/verify", h.ServeVerify)
	return r
}
