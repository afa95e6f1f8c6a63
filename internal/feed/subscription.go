package feed

import (
	"sync"

	"github.com/ajtazer/tazerchat/internal/entity"
)

// Subscription is a live, order-preserving stream of messages for one room.
// The channel is closed when the subscriber unsubscribes, the feed shuts
// down, or the subscriber falls too far behind.
type Subscription struct {
	RoomID string

	ch   chan *entity.Message
	feed *Feed
	once sync.Once
}

func (s *Subscription) C() <-chan *entity.Message {
	return s.ch
}

// Close is idempotent. Deliveries after Close are suppressed.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.feed.remove(s)
		close(s.ch)
	})
}
