package assistant

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers assistant management routes
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Route("/assistants", func(r chi.Router) {
		r.Post("/", h.CreateAssistant)
		r.Get("/", h.ListAssistants)

		r.Route("/{assistant_id}", func(r chi.Router) {
			r.Get("/", h.GetAssistant)
			r.Patch("/", h.UpdateAssistant)
			r.Delete("/", h.DeleteAssistant)
			r.Post("/sync", h.SyncAssistant)
			r.Get("/documents", h.ListDocuments)
		})
	})
}
