package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ajtazer/tazerchat/internal/entity"
	app_error "github.com/ajtazer/tazerchat/internal/errors"
	message_repo "github.com/ajtazer/tazerchat/internal/repo/message"
	room_repo "github.com/ajtazer/tazerchat/internal/repo/room"
)

type State int32

const (
	StateJoining State = iota
	StateReplaying
	StateLive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateJoining:
		return "joining"
	case StateReplaying:
		return "replaying"
	case StateLive:
		return "live"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Stream is the live message stream of one subscription. *feed.Subscription
// satisfies it.
type Stream interface {
	C() <-chan *entity.Message
	Close()
}

// Source hands out subscriptions. *feed.Feed satisfies it through an adapter.
type Source interface {
	Subscribe(roomID string) Stream
}

// Sink receives messages bound for one participant. An error return closes
// the session.
type Sink interface {
	Deliver(msg *entity.Message) error
}

// Session drives one participant's view of one room: resolve the room,
// replay recent history, then stream live messages. The cursor is the
// ordering key of the last delivered message; any incoming message at or
// below it is a duplicate and is discarded. That single comparison is what
// makes the replay-to-live handoff deliver each message exactly once.
type Session struct {
	Rooms        room_repo.RoomRepoContract
	Messages     message_repo.MessageRepoContract
	Feed         Source
	Sink         Sink
	HistoryLimit int

	// ResyncDelay spaces re-replays after a dropped subscription.
	ResyncDelay time.Duration

	room   *entity.Room
	cursor entity.Key
	state  atomic.Int32

	mu     sync.Mutex
	sub    Stream
	closed bool
}

func New(rooms room_repo.RoomRepoContract, messages message_repo.MessageRepoContract, source Source, sink Sink) *Session {
	return &Session{
		Rooms:        rooms,
		Messages:     messages,
		Feed:         source,
		Sink:         sink,
		HistoryLimit: message_repo.DefaultHistoryLimit,
		ResyncDelay:  time.Second,
	}
}

// Run executes the session until the context ends, the sink rejects a
// delivery, or Close is called. It returns the join or replay error that
// ended the session, nil on a normal close.
func (s *Session) Run(ctx context.Context, roomName string) *app_error.AppError {
	s.setState(StateJoining)

	room, appErr := s.Rooms.ResolveOrCreate(ctx, roomName)
	if appErr != nil {
		s.Close()
		return appErr
	}
	s.room = room

	for {
		s.setState(StateReplaying)

		// Subscribe before the snapshot: a message appended in between
		// shows up in both, and the cursor comparison drops the second
		// copy. The other order would lose it entirely.
		sub := s.Feed.Subscribe(room.ID.String())
		if !s.attach(sub) {
			sub.Close()
			return nil
		}

		history, appErr := s.Messages.Recent(ctx, room.ID.String(), s.HistoryLimit)
		if appErr != nil {
			s.Close()
			return appErr
		}

		for _, m := range history {
			if !s.deliver(m) {
				return nil
			}
		}

		s.setState(StateLive)
		if !s.live(ctx, sub) {
			return nil
		}

		// Subscription dropped underneath us: re-replay with the cursor as
		// dedup floor rather than going quiet.
		log.Warn().Str("roomID", room.ID.String()).Msg("session: live stream dropped, resyncing")
		select {
		case <-ctx.Done():
			s.Close()
			return nil
		case <-time.After(s.ResyncDelay):
		}
	}
}

// live consumes the subscription until it drops (returns true, caller
// resyncs) or the session ends (returns false).
func (s *Session) live(ctx context.Context, sub Stream) bool {
	for {
		select {
		case <-ctx.Done():
			s.Close()
			return false
		case m, ok := <-sub.C():
			if !ok {
				return !s.isClosed()
			}
			if !s.deliver(m) {
				return false
			}
		}
	}
}

// deliver pushes m to the sink unless it is a duplicate. Returns false when
// the session is done.
func (s *Session) deliver(m *entity.Message) bool {
	if m.Key().Compare(s.cursor) <= 0 {
		return true // already delivered
	}
	if err := s.Sink.Deliver(m); err != nil {
		log.Debug().Err(err).Msg("session: sink rejected delivery, closing")
		s.Close()
		return false
	}
	s.cursor = m.Key()
	return true
}

// Close is idempotent and releases the live subscription.
func (s *Session) Close() {
	s.mu.Lock()
	alreadyClosed := s.closed
	s.closed = true
	sub := s.sub
	s.sub = nil
	s.mu.Unlock()

	if alreadyClosed {
		return
	}
	s.setState(StateClosed)
	if sub != nil {
		sub.Close()
	}
}

// Room is the resolved room, nil before joining completes.
func (s *Session) Room() *entity.Room {
	return s.room
}

// Cursor is the ordering key of the last delivered message.
func (s *Session) Cursor() entity.Key {
	return s.cursor
}

func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) setState(st State) {
	s.state.Store(int32(st))
}

func (s *Session) attach(sub Stream) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.sub = sub
	return true
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
