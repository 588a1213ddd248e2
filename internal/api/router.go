package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/starford/othala/internal/kbservice"
	"github.com/starford/othala/internal/sse"
)

// NewRouter creates a chi router with all API routes mounted. Every route,
// including the SSE stream, sits behind the x-user-key middleware.
// broker may be nil to disable the events endpoint.
func NewRouter(svc *kbservice.Service, broker *sse.Broker) chi.Router {
	h := NewHandler(svc, broker)

	r := chi.NewRouter()
	r.Use(RequireUserKey)

	// Notes CRUD.
	r.Get("/notes", h.ListNotes)
	r.Post("/notes", h.CreateNote)
	r.Get("/notes/{id}", h.GetNote)
	r.Put("/notes/{id}", h.UpdateNote)
	r.Delete("/notes/{id}", h.DeleteNote)

	// Tags.
	r.Get("/tags", h.ListTags)
	r.Post("/tags", h.CreateTag)

	// Links.
	r.Post("/links", h.CreateLink)
	r.Delete("/links", h.DeleteLink)

	// Insights.
	r.Get("/insights", h.Insights)

	// SSE endpoint.
	if broker != nil {
		r.Get("/events", broker.ServeHTTP)
	}

	return r
}
