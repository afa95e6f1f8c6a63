package chat_dto

// WSOutgoingMessage is one live event on a room's websocket stream.
type WSOutgoingMessage struct {
	Event   string          `json:"event"`
	RoomID  string          `json:"roomId"`
	Message MessageResponse `json:"message"`
}
