package websocket

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/ajtazer/tazerchat/internal/feed"
	message_repo "github.com/ajtazer/tazerchat/internal/repo/message"
	room_repo "github.com/ajtazer/tazerchat/internal/repo/room"
	"github.com/ajtazer/tazerchat/internal/session"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// TODO: limit your cors, don't get true so easy in production
	CheckOrigin: func(r *http.Request) bool { return true },
}

type WSHandler struct {
	Hub      *Hub
	Rooms    room_repo.RoomRepoContract
	Messages message_repo.MessageRepoContract
	Feed     *feed.Feed

	HistoryLimit int
}

func NewWSHandler(hub *Hub, rooms room_repo.RoomRepoContract, messages message_repo.MessageRepoContract, f *feed.Feed) *WSHandler {
	return &WSHandler{
		Hub:      hub,
		Rooms:    rooms,
		Messages: messages,
		Feed:     f,
	}
}

// feedSource adapts *feed.Feed to the session's Source interface.
type feedSource struct {
	feed *feed.Feed
}

func (f feedSource) Subscribe(roomID string) session.Stream {
	return f.feed.Subscribe(roomID)
}

// HandleWS upgrades GET /ws?room=<name>&nickname=<n> and runs one room
// session for the lifetime of the connection: resolve the room, replay
// recent history, then stream live messages.
func (h *WSHandler) HandleWS(w http.ResponseWriter, r *http.Request) {
	roomName := r.URL.Query().Get("room")
	if roomName == "" {
		http.Error(w, "room query parameter is required", http.StatusBadRequest)
		return
	}
	nickname := r.URL.Query().Get("nickname")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("ws: upgrade failed")
		return
	}

	client := NewClient(conn, nickname, roomName)
	h.Hub.Register(roomName, client)

	sess := session.New(h.Rooms, h.Messages, feedSource{feed: h.Feed}, client)
	if h.HistoryLimit > 0 {
		sess.HistoryLimit = h.HistoryLimit
	}

	go client.writePump()
	go func() {
		if appErr := sess.Run(client.Context(), roomName); appErr != nil {
			log.Warn().Err(appErr).Str("room", roomName).Str("clientID", client.ID).Msg("ws: session ended with error")
			client.SendError(appErr.Message)
			client.Close()
		}
	}()

	// Blocks until the participant disconnects.
	client.readPump(func() {
		sess.Close()
		h.Hub.Unregister(roomName, client)
	})
}
