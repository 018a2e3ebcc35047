package chat

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers chat and conversation routes
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post("/chat/{slug}", h.Chat)

	r.Get("/conversations", h.ListConversations)
	r.Route("/conversations/{conversation_id}", func(r chi.Router) {
		r.Get("/", h.GetConversation)
		r.Post("/rating", h.RateConversation)
		r.Get("/transcript", h.GetTranscript)
	})
}
