package hub_handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	app_error "github.com/ajtazer/tazerchat/internal/errors"
	"github.com/ajtazer/tazerchat/internal/handlers"
	"github.com/ajtazer/tazerchat/internal/middleware"
	"github.com/ajtazer/tazerchat/internal/websocket"
)

type HubHandler struct {
	Hub *websocket.Hub
}

func NewHubHandler(hub *websocket.Hub) *HubHandler {
	return &HubHandler{Hub: hub}
}

func (h *HubHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func (h *HubHandler) HandleGetStats(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	reqID, ok := r.Context().Value(middleware.RequestIdKey).(string)
	if !ok {
		reqID = "unknown"
	}

	w.Header().Set("Content-Type", "application/json")
	return encode(w, handlers.CreateResponse("hub stats", h.Hub.GetHubStats(), reqID))
}

func (h *HubHandler) HandleGetRoomStats(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	roomName := chi.URLParam(r, "roomName")
	if roomName == "" {
		return app_error.Validation("room name is required", "roomName")
	}

	reqID, ok := r.Context().Value(middleware.RequestIdKey).(string)
	if !ok {
		reqID = "unknown"
	}

	w.Header().Set("Content-Type", "application/json")
	return encode(w, handlers.CreateResponse("room stats", h.Hub.GetRoomStats(roomName), reqID))
}

func encode(w http.ResponseWriter, body any) *app_error.AppError {
	if err := handlers.WriteBody(w, body); err != nil {
		return app_error.Internal("failed to encode response")
	}
	return nil
}
