package routers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	chat_handler "github.com/ajtazer/tazerchat/internal/handlers/chat-handler"
	"github.com/ajtazer/tazerchat/internal/middleware"
	"github.com/ajtazer/tazerchat/internal/websocket"
)

func NewRouter(chatHandler *chat_handler.ChatHandler, wsHandler *websocket.WSHandler, hub *websocket.Hub) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.WithRequestId)
	ChatRouter(r, chatHandler)
	HubRouter(r, hub)
	r.Get("/ws", wsHandler.HandleWS)
	return r
}
