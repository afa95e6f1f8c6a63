package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/ajtazer/tazerchat/internal/entity"
	app_error "github.com/ajtazer/tazerchat/internal/errors"
)

// --- fakes -----------------------------------------------------------------

type fakeRooms struct {
	mu    sync.Mutex
	rooms map[string]*entity.Room
	err   *app_error.AppError
}

func newFakeRooms() *fakeRooms {
	return &fakeRooms{rooms: make(map[string]*entity.Room)}
}

func (f *fakeRooms) ResolveOrCreate(ctx context.Context, name string) (*entity.Room, *app_error.AppError) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if room, ok := f.rooms[name]; ok {
		return room, nil
	}
	room := &entity.Room{ID: uuid.New(), Name: name, CreatedAt: time.Now().UTC()}
	f.rooms[name] = room
	return room, nil
}

func (f *fakeRooms) FindByName(ctx context.Context, name string) (*entity.Room, *app_error.AppError) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if room, ok := f.rooms[name]; ok {
		return room, nil
	}
	return nil, app_error.NotFound("room not found")
}

// fakeStore keeps messages in append order and feeds the fakeSource on
// Append, mimicking the store-then-publish pipeline.
type fakeStore struct {
	mu     sync.Mutex
	msgs   map[string][]*entity.Message
	source *fakeSource
	clock  time.Time
}

func newFakeStore(source *fakeSource) *fakeStore {
	return &fakeStore{
		msgs:   make(map[string][]*entity.Message),
		source: source,
		clock:  time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func (f *fakeStore) Append(ctx context.Context, roomID, nickname, content string) (*entity.Message, *app_error.AppError) {
	f.mu.Lock()
	f.clock = f.clock.Add(time.Millisecond)
	msg := &entity.Message{
		ID:        bson.NewObjectIDFromTimestamp(f.clock),
		RoomID:    roomID,
		Nickname:  nickname,
		Content:   content,
		CreatedAt: f.clock,
	}
	f.msgs[roomID] = append(f.msgs[roomID], msg)
	f.mu.Unlock()

	if f.source != nil {
		f.source.emit(msg)
	}
	return msg, nil
}

func (f *fakeStore) Recent(ctx context.Context, roomID string, limit int) ([]*entity.Message, *app_error.AppError) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := f.msgs[roomID]
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	out := make([]*entity.Message, len(all))
	copy(out, all)
	return out, nil
}

type fakeStream struct {
	ch   chan *entity.Message
	once sync.Once
}

func (s *fakeStream) C() <-chan *entity.Message { return s.ch }
func (s *fakeStream) Close()                    { s.once.Do(func() { close(s.ch) }) }

type fakeSource struct {
	mu         sync.Mutex
	streams    map[string][]*fakeStream
	subscribed chan string
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		streams:    make(map[string][]*fakeStream),
		subscribed: make(chan string, 16),
	}
}

func (f *fakeSource) Subscribe(roomID string) Stream {
	st := &fakeStream{ch: make(chan *entity.Message, 64)}
	f.mu.Lock()
	f.streams[roomID] = append(f.streams[roomID], st)
	f.mu.Unlock()
	f.subscribed <- roomID
	return st
}

func (f *fakeSource) emit(msg *entity.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, st := range f.streams[msg.RoomID] {
		select {
		case st.ch <- msg:
		default:
		}
	}
}

func (f *fakeSource) dropAll(roomID string) {
	f.mu.Lock()
	streams := f.streams[roomID]
	f.streams[roomID] = nil
	f.mu.Unlock()
	for _, st := range streams {
		st.Close()
	}
}

type captureSink struct {
	mu  sync.Mutex
	got []*entity.Message
	ch  chan *entity.Message
}

func newCaptureSink() *captureSink {
	return &captureSink{ch: make(chan *entity.Message, 128)}
}

func (s *captureSink) Deliver(msg *entity.Message) error {
	s.mu.Lock()
	s.got = append(s.got, msg)
	s.mu.Unlock()
	s.ch <- msg
	return nil
}

func (s *captureSink) contents() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.got))
	for i, m := range s.got {
		out[i] = m.Content
	}
	return out
}

func (s *captureSink) waitFor(t *testing.T, n int) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		s.mu.Lock()
		count := len(s.got)
		s.mu.Unlock()
		if count >= n {
			return
		}
		select {
		case <-s.ch:
		case <-deadline:
			t.Fatalf("timed out waiting for %d deliveries, have %d: %v", n, count, s.contents())
		}
	}
}

type harness struct {
	rooms  *fakeRooms
	store  *fakeStore
	source *fakeSource
	sink   *captureSink
	sess   *Session
	done   chan *app_error.AppError
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	source := newFakeSource()
	h := &harness{
		rooms:  newFakeRooms(),
		store:  newFakeStore(source),
		source: source,
		sink:   newCaptureSink(),
		done:   make(chan *app_error.AppError, 1),
	}
	h.sess = New(h.rooms, h.store, source, h.sink)
	h.sess.ResyncDelay = 10 * time.Millisecond
	return h
}

func (h *harness) run(ctx context.Context, roomName string) {
	go func() {
		h.done <- h.sess.Run(ctx, roomName)
	}()
}

func (h *harness) waitSubscribed(t *testing.T) {
	t.Helper()
	select {
	case <-h.source.subscribed:
	case <-time.After(2 * time.Second):
		t.Fatal("session never subscribed")
	}
}

func (h *harness) waitDone(t *testing.T) *app_error.AppError {
	t.Helper()
	select {
	case appErr := <-h.done:
		return appErr
	case <-time.After(2 * time.Second):
		t.Fatal("session never finished")
		return nil
	}
}

// --- tests -----------------------------------------------------------------

func TestSession_ReplaysHistoryThenStreamsLive(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	room, _ := h.rooms.ResolveOrCreate(ctx, "general")
	h.store.Append(ctx, room.ID.String(), "Alice", "one")
	h.store.Append(ctx, room.ID.String(), "Alice", "two")

	h.run(ctx, "general")
	h.sink.waitFor(t, 2)
	assert.Equal(t, []string{"one", "two"}, h.sink.contents())
	assert.Eventually(t, func() bool { return h.sess.State() == StateLive },
		2*time.Second, 5*time.Millisecond)

	h.store.Append(ctx, room.ID.String(), "Bob", "three")
	h.sink.waitFor(t, 3)
	assert.Equal(t, []string{"one", "two", "three"}, h.sink.contents())

	h.sess.Close()
	assert.Nil(t, h.waitDone(t))
	assert.Equal(t, StateClosed, h.sess.State())
}

func TestSession_DedupAcrossReplayLiveHandoff(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	room, _ := h.rooms.ResolveOrCreate(ctx, "general")
	h.store.Append(ctx, room.ID.String(), "Alice", "one")

	h.run(ctx, "general")
	h.waitSubscribed(t)

	// Appended after the subscription: shows up both in the snapshot (if
	// the read lands later) and on the live stream. Either way it must be
	// delivered exactly once.
	h.store.Append(ctx, room.ID.String(), "Alice", "two")

	h.sink.waitFor(t, 2)
	time.Sleep(50 * time.Millisecond) // allow a duplicate to surface, if any
	assert.Equal(t, []string{"one", "two"}, h.sink.contents())

	h.sess.Close()
	h.waitDone(t)
}

func TestSession_LiveDuplicateIsDiscarded(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	room, _ := h.rooms.ResolveOrCreate(ctx, "general")
	h.store.Append(ctx, room.ID.String(), "Alice", "one")

	h.run(ctx, "general")
	h.sink.waitFor(t, 1)

	// re-emit the already-delivered message straight onto the stream
	h.source.emit(h.store.msgs[room.ID.String()][0])
	h.store.Append(ctx, room.ID.String(), "Alice", "two")

	h.sink.waitFor(t, 2)
	assert.Equal(t, []string{"one", "two"}, h.sink.contents())

	h.sess.Close()
	h.waitDone(t)
}

func TestSession_BoundedReplay(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	room, _ := h.rooms.ResolveOrCreate(ctx, "busy")
	for i := 0; i < 60; i++ {
		h.store.Append(ctx, room.ID.String(), "Alice", "old")
	}
	h.store.Append(ctx, room.ID.String(), "Alice", "newest")

	h.run(ctx, "busy")
	h.sink.waitFor(t, 50)
	time.Sleep(50 * time.Millisecond)

	contents := h.sink.contents()
	assert.Len(t, contents, 50, "replay must cap at the history limit")
	assert.Equal(t, "newest", contents[len(contents)-1], "replay keeps the most recent messages")

	h.sess.Close()
	h.waitDone(t)
}

func TestSession_JoinFailureSurfaces(t *testing.T) {
	h := newHarness(t)
	h.rooms.err = app_error.StoreUnavailable("db down")

	h.run(context.Background(), "general")

	appErr := h.waitDone(t)
	require.NotNil(t, appErr)
	assert.Equal(t, app_error.KindStoreUnavailable, appErr.Kind)
	assert.Equal(t, StateClosed, h.sess.State())
}

func TestSession_ResyncsAfterFeedDrop(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	room, _ := h.rooms.ResolveOrCreate(ctx, "general")
	h.store.Append(ctx, room.ID.String(), "Alice", "one")

	h.run(ctx, "general")
	h.waitSubscribed(t)
	h.sink.waitFor(t, 1)

	// The subscription drops; a message lands while we are disconnected.
	h.source.dropAll(room.ID.String())
	h.store.Append(ctx, room.ID.String(), "Bob", "missed")

	// The session re-replays from its cursor: the missed message arrives,
	// the already-delivered one does not repeat.
	h.waitSubscribed(t)
	h.sink.waitFor(t, 2)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, []string{"one", "missed"}, h.sink.contents())

	h.store.Append(ctx, room.ID.String(), "Bob", "live again")
	h.sink.waitFor(t, 3)
	assert.Equal(t, []string{"one", "missed", "live again"}, h.sink.contents())

	h.sess.Close()
	h.waitDone(t)
}

// Scenario from the product: Alice posts before Bob joins; Bob sees the
// history once, then Alice's next message exactly once.
func TestScenario_GeneralRoom(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	room, _ := h.rooms.ResolveOrCreate(ctx, "general")
	h.store.Append(ctx, room.ID.String(), "Alice", "hi")

	h.run(ctx, "general")
	h.sink.waitFor(t, 1)
	assert.Equal(t, []string{"hi"}, h.sink.contents())

	h.store.Append(ctx, room.ID.String(), "Alice", "bye")
	h.sink.waitFor(t, 2)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, []string{"hi", "bye"}, h.sink.contents())

	h.sess.Close()
	h.waitDone(t)
}
