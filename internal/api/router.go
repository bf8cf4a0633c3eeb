package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pellmark/folio/internal/docservice"
)

// NewRouter builds the /api subrouter. Every route here sits behind the
// auth middleware, including the live event stream when sseHandler is
// non-nil. corpusRoot locates the attachments directory for uploads.
func NewRouter(svc *docservice.Service, authEnabled bool, token string, sseHandler http.Handler, corpusRoot string) chi.Router {
	h := NewHandler(svc)
	ah := NewAttachmentHandler(corpusRoot)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Document CRUD. Wildcard routes carry the document path, which may
	// contain slashes.
	r.Get("/docs", h.ListDocs)
	r.Post("/docs", h.CreateDoc)
	r.Get("/docs/*", h.GetDoc)
	r.Put("/docs/*", h.UpdateDoc)
	r.Delete("/docs/*", h.DeleteDoc)

	r.Get("/nav", h.Nav)
	r.Get("/search", h.Search)
	r.Get("/lint", h.Lint)
	r.Get("/graph", h.Graph)

	r.Post("/attachments", ah.Upload)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
