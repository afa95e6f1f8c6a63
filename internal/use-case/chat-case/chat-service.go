package chat_service

import (
	"context"

	"github.com/ajtazer/tazerchat/internal/entity"
	app_error "github.com/ajtazer/tazerchat/internal/errors"
	message_repo "github.com/ajtazer/tazerchat/internal/repo/message"
	room_repo "github.com/ajtazer/tazerchat/internal/repo/room"
)

type ChatService struct {
	Rooms    room_repo.RoomRepoContract
	Messages message_repo.MessageRepoContract
}

func NewChatService(rooms room_repo.RoomRepoContract, messages message_repo.MessageRepoContract) ChatServiceContract {
	return &ChatService{
		Rooms:    rooms,
		Messages: messages,
	}
}

func (c *ChatService) SendMessage(ctx context.Context, roomName, nickname, content string) (*entity.Message, *app_error.AppError) {
	room, appErr := c.Rooms.ResolveOrCreate(ctx, roomName)
	if appErr != nil {
		return nil, appErr
	}

	return c.Messages.Append(ctx, room.ID.String(), nickname, content)
}

func (c *ChatService) RoomHistory(ctx context.Context, roomName string, limit int) ([]*entity.Message, *app_error.AppError) {
	if roomName == "" {
		return nil, app_error.Validation("room name is required", "room")
	}

	room, appErr := c.Rooms.FindByName(ctx, roomName)
	if appErr != nil {
		return nil, appErr
	}

	return c.Messages.Recent(ctx, room.ID.String(), limit)
}
