package chat_handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/ajtazer/tazerchat/internal/dtos/chat_dto"
	app_error "github.com/ajtazer/tazerchat/internal/errors"
	"github.com/ajtazer/tazerchat/internal/handlers"
	"github.com/ajtazer/tazerchat/internal/middleware"
	chat_service "github.com/ajtazer/tazerchat/internal/use-case/chat-case"
)

type ChatHandler struct {
	Validate *validator.Validate
	Service  chat_service.ChatServiceContract
}

func NewChatHandler(service chat_service.ChatServiceContract) *ChatHandler {
	return &ChatHandler{
		Validate: validator.New(),
		Service:  service,
	}
}

// GetMessages handles GET /api/v1/messages?room=<name>[&limit=<n>], the
// one-shot analogue of a session's history replay.
func (h *ChatHandler) GetMessages(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	roomName := r.URL.Query().Get("room")
	if roomName == "" {
		return app_error.Validation("room query parameter is required", "room")
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			return app_error.Validation("limit must be an integer between 1 and 100", "limit")
		}
		limit = n
	}

	msgs, appErr := h.Service.RoomHistory(r.Context(), roomName, limit)
	if appErr != nil {
		return appErr
	}

	reqID, ok := r.Context().Value(middleware.RequestIdKey).(string)
	if !ok {
		reqID = "unknown"
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(handlers.CreateResponse("messages fetch successfully", chat_dto.NewMessagesResponse(msgs), reqID))

	return nil
}

// PostMessage handles POST /api/v1/messages: resolve-or-create the room,
// then append. The sender gets the stored message back immediately; live
// delivery to everyone (sender included) goes through the change feed.
func (h *ChatHandler) PostMessage(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	var req chat_dto.PostMessageRequest
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return app_error.Validation("Invalid JSON", "body")
	}

	if err := h.Validate.Struct(req); err != nil {
		return app_error.Validation(fmt.Sprintf("Invalid fields: %v", err), "validation")
	}

	msg, appErr := h.Service.SendMessage(r.Context(), req.RoomName, req.Nickname, req.Content)
	if appErr != nil {
		return appErr
	}

	reqID, ok := r.Context().Value(middleware.RequestIdKey).(string)
	if !ok {
		reqID = "unknown"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(handlers.CreateResponse("message sent successfully", chat_dto.PostMessageResponse{Message: chat_dto.NewMessageResponse(msg)}, reqID))

	return nil
}
