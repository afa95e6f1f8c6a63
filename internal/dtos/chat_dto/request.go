package chat_dto

type PostMessageRequest struct {
	RoomName string `json:"roomName" validate:"required,min=1,max=128"`
	Nickname string `json:"nickname" validate:"required,min=1,max=64"`
	Content  string `json:"content" validate:"required,min=1,max=4096"`
}
