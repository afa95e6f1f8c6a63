package chat_service

import (
	"context"

	"github.com/ajtazer/tazerchat/internal/entity"
	app_error "github.com/ajtazer/tazerchat/internal/errors"
)

type ChatServiceContract interface {
	// SendMessage resolves the room by name, creating it on first
	// reference, then appends the message. Stateless: delivery back to the
	// sender happens through the change feed like any other participant.
	SendMessage(ctx context.Context, roomName, nickname, content string) (*entity.Message, *app_error.AppError)

	// RoomHistory returns up to limit recent messages for an existing
	// room, oldest first. Unknown rooms are a not-found error, not a
	// create.
	RoomHistory(ctx context.Context, roomName string, limit int) ([]*entity.Message, *app_error.AppError)
}
