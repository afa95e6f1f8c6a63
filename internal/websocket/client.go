package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ajtazer/tazerchat/internal/dtos/chat_dto"
	"github.com/ajtazer/tazerchat/internal/entity"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

var (
	ErrClientQueueFull = errors.New("client message queue is full")
	ErrClientClosed    = errors.New("client connection closed")
)

// Client is one websocket participant. It is the delivery sink of exactly
// one room session; the session, not the hub, decides what it receives.
type Client struct {
	ID       string
	Nickname string
	RoomName string
	Conn     *websocket.Conn
	Send     chan []byte

	ctx    context.Context
	cancel context.CancelFunc
}

func NewClient(conn *websocket.Conn, nickname, roomName string) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		ID:       uuid.New().String(),
		Nickname: nickname,
		RoomName: roomName,
		Conn:     conn,
		Send:     make(chan []byte, 256),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Deliver implements session.Sink. A full buffer is an error: better to let
// the session die and the feed drop us than to block the dispatcher.
func (c *Client) Deliver(msg *entity.Message) error {
	event := chat_dto.WSOutgoingMessage{
		Event:   "message",
		RoomID:  msg.RoomID,
		Message: chat_dto.NewMessageResponse(msg),
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	select {
	case <-c.ctx.Done():
		return ErrClientClosed
	case c.Send <- data:
		return nil
	default:
		return ErrClientQueueFull
	}
}

func (c *Client) SendError(message string) {
	data, err := json.Marshal(map[string]string{
		"event":   "error",
		"message": message,
	})
	if err != nil {
		return
	}
	select {
	case c.Send <- data:
	default:
	}
}

func (c *Client) Context() context.Context {
	return c.ctx
}

// Close is idempotent; it stops both pumps and the underlying connection.
func (c *Client) Close() {
	c.cancel()
	_ = c.Conn.Close()
}

func (c *Client) IsActive() bool {
	select {
	case <-c.ctx.Done():
		return false
	default:
		return true
	}
}

// writePump drains c.Send onto the socket and keeps the connection alive
// with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case <-c.ctx.Done():
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case msg := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			if _, err := w.Write(msg); err != nil {
				_ = w.Close()
				return
			}
			_ = w.Close()

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump handles pongs for keep-alive and detects disconnects. Sending is
// an HTTP operation, so inbound frames are discarded.
func (c *Client) readPump(onClose func()) {
	defer func() {
		c.Close()
		onClose()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			break
		}
	}
}
