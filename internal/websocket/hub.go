package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Hub tracks live clients per room for stats, cleanup and shutdown. Message
// fan-out does not go through the hub: each client's session streams from
// the change feed instead.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}

	stats   HubStats
	statsMu sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc

	cleanupTicker *time.Ticker
}

type HubStats struct {
	TotalRooms       int       `json:"total_rooms"`
	TotalClients     int       `json:"total_clients"`
	TotalConnections int64     `json:"total_connections"`
	LastReset        time.Time `json:"last_reset"`
}

func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	hub := &Hub{
		rooms:  make(map[string]map[*Client]struct{}),
		ctx:    ctx,
		cancel: cancel,
		stats: HubStats{
			LastReset: time.Now(),
		},
		cleanupTicker: time.NewTicker(1 * time.Minute),
	}

	go hub.cleanupRoutine()

	return hub
}

func (h *Hub) Register(roomName string, client *Client) {
	h.mu.Lock()
	if h.rooms[roomName] == nil {
		h.rooms[roomName] = make(map[*Client]struct{})
	}
	h.rooms[roomName][client] = struct{}{}
	roomSize := len(h.rooms[roomName])
	h.mu.Unlock()

	h.updateStats(func(stats *HubStats) {
		stats.TotalConnections++
	})

	log.Info().Str("room", roomName).Str("clientID", client.ID).Int("roomSize", roomSize).Msg("ws: client registered to room")
}

func (h *Hub) Unregister(roomName string, client *Client) {
	h.mu.Lock()
	if clients, ok := h.rooms[roomName]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.rooms, roomName)
		}
	}
	h.mu.Unlock()

	log.Info().Str("room", roomName).Str("clientID", client.ID).Msg("ws: client unregistered from room")
}

// GetRoomStats returns connection statistics for one room.
func (h *Hub) GetRoomStats(roomName string) map[string]interface{} {
	h.mu.RLock()
	defer h.mu.RUnlock()

	stats := map[string]interface{}{
		"room":   roomName,
		"exists": false,
	}

	if clients, ok := h.rooms[roomName]; ok {
		active := 0
		for client := range clients {
			if client.IsActive() {
				active++
			}
		}

		stats["exists"] = true
		stats["total_connections"] = len(clients)
		stats["active_connections"] = active
	}

	return stats
}

func (h *Hub) GetHubStats() HubStats {
	h.statsMu.RLock()
	defer h.statsMu.RUnlock()

	h.mu.RLock()
	h.stats.TotalRooms = len(h.rooms)

	totalClients := 0
	for _, clients := range h.rooms {
		for client := range clients {
			if client.IsActive() {
				totalClients++
			}
		}
	}
	h.stats.TotalClients = totalClients
	h.mu.RUnlock()

	return h.stats
}

func (h *Hub) updateStats(fn func(*HubStats)) {
	h.statsMu.Lock()
	fn(&h.stats)
	h.statsMu.Unlock()
}

func (h *Hub) cleanupRoutine() {
	defer h.cleanupTicker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return
		case <-h.cleanupTicker.C:
			h.performCleanup()
		}
	}
}

// performCleanup prunes clients whose connection already ended but whose
// unregister never ran.
func (h *Hub) performCleanup() {
	type dead struct {
		room   string
		client *Client
	}
	var toRemove []dead

	h.mu.RLock()
	for room, clients := range h.rooms {
		for client := range clients {
			if !client.IsActive() {
				toRemove = append(toRemove, dead{room: room, client: client})
			}
		}
	}
	h.mu.RUnlock()

	for _, d := range toRemove {
		h.Unregister(d.room, d.client)
	}

	if len(toRemove) > 0 {
		log.Debug().Int("cleaned", len(toRemove)).Msg("ws: cleanup routine completed")
	}
}

// Close shuts the hub down and closes every tracked client.
func (h *Hub) Close() {
	log.Info().Msg("ws: shutting down hub")

	h.cancel()

	h.mu.RLock()
	var allClients []*Client
	for _, clients := range h.rooms {
		for client := range clients {
			allClients = append(allClients, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range allClients {
		client.Close()
	}

	log.Info().Int("clients", len(allClients)).Msg("ws: hub shutdown completed")
}
