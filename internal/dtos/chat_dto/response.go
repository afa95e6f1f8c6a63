package chat_dto

import (
	"time"

	"github.com/ajtazer/tazerchat/internal/entity"
)

type MessageResponse struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"room_id"`
	Nickname  string    `json:"nickname"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type MessagesResponse struct {
	Messages []MessageResponse `json:"messages"`
}

type PostMessageResponse struct {
	Message MessageResponse `json:"message"`
}

func NewMessageResponse(m *entity.Message) MessageResponse {
	return MessageResponse{
		ID:        m.ID.Hex(),
		RoomID:    m.RoomID,
		Nickname:  m.Nickname,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}

func NewMessagesResponse(msgs []*entity.Message) MessagesResponse {
	out := MessagesResponse{Messages: make([]MessageResponse, 0, len(msgs))}
	for _, m := range msgs {
		out.Messages = append(out.Messages, NewMessageResponse(m))
	}
	return out
}
