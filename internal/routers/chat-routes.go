package routers

import (
	"github.com/go-chi/chi/v5"

	"github.com/ajtazer/tazerchat/internal/handlers"
	chat_handler "github.com/ajtazer/tazerchat/internal/handlers/chat-handler"
)

func ChatRouter(r chi.Router, chatHandler *chat_handler.ChatHandler) {
	r.Get("/api/v1/messages", handlers.WrapHandler(chatHandler.GetMessages))
	r.Post("/api/v1/messages", handlers.WrapHandler(chatHandler.PostMessage))
}
