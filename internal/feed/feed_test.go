package feed

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/ajtazer/tazerchat/internal/entity"
)

func newTestFeed(t *testing.T) *Feed {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	f, err := New(context.Background(), rdb, 4, 16)
	require.NoError(t, err)
	t.Cleanup(f.Close)

	return f
}

func mkMsg(roomID, content string) *entity.Message {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &entity.Message{
		ID:        bson.NewObjectIDFromTimestamp(now),
		RoomID:    roomID,
		Nickname:  "Alice",
		Content:   content,
		CreatedAt: now,
	}
}

func recv(t *testing.T, sub *Subscription) *entity.Message {
	t.Helper()
	select {
	case m, ok := <-sub.C():
		require.True(t, ok, "subscription closed unexpectedly")
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for feed delivery")
		return nil
	}
}

func TestFeed_DeliversToSubscriber(t *testing.T) {
	f := newTestFeed(t)
	sub := f.Subscribe("room-1")
	defer sub.Close()

	sent := mkMsg("room-1", "hi")
	require.NoError(t, f.Publish(context.Background(), sent))

	got := recv(t, sub)
	assert.Equal(t, sent.ID, got.ID)
	assert.Equal(t, "hi", got.Content)
	assert.Equal(t, "room-1", got.RoomID)
	assert.True(t, got.Key().Compare(sent.Key()) == 0, "key must survive the wire")
}

func TestFeed_PreservesPerRoomOrder(t *testing.T) {
	f := newTestFeed(t)
	sub := f.Subscribe("room-1")
	defer sub.Close()

	var sent []*entity.Message
	for i := 0; i < 5; i++ {
		m := mkMsg("room-1", "msg")
		sent = append(sent, m)
		require.NoError(t, f.Publish(context.Background(), m))
	}

	prev := entity.Key{}
	for i := 0; i < 5; i++ {
		got := recv(t, sub)
		assert.Equal(t, sent[i].ID, got.ID, "delivery %d out of order", i)
		assert.Equal(t, 1, got.Key().Compare(prev), "keys must be strictly ascending")
		prev = got.Key()
	}
}

func TestFeed_NoBacklogForNewSubscriber(t *testing.T) {
	f := newTestFeed(t)

	before := mkMsg("room-1", "before")
	require.NoError(t, f.Publish(context.Background(), before))

	sub := f.Subscribe("room-1")
	defer sub.Close()

	after := mkMsg("room-1", "after")
	require.NoError(t, f.Publish(context.Background(), after))

	got := recv(t, sub)
	assert.Equal(t, after.ID, got.ID, "a new subscription starts with no backlog")
}

func TestFeed_RoomsAreIsolated(t *testing.T) {
	f := newTestFeed(t)

	sub1 := f.Subscribe("room-1")
	defer sub1.Close()
	sub2 := f.Subscribe("room-2")
	defer sub2.Close()

	require.NoError(t, f.Publish(context.Background(), mkMsg("room-1", "only room 1")))

	got := recv(t, sub1)
	assert.Equal(t, "only room 1", got.Content)

	select {
	case m := <-sub2.C():
		t.Fatalf("room-2 subscriber received foreign message %q", m.Content)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestFeed_FanOutToAllSubscribers(t *testing.T) {
	f := newTestFeed(t)

	subA := f.Subscribe("room-1")
	defer subA.Close()
	subB := f.Subscribe("room-1")
	defer subB.Close()

	sent := mkMsg("room-1", "hello everyone")
	require.NoError(t, f.Publish(context.Background(), sent))

	assert.Equal(t, sent.ID, recv(t, subA).ID)
	assert.Equal(t, sent.ID, recv(t, subB).ID)
}

func TestSubscription_CloseIsIdempotent(t *testing.T) {
	f := newTestFeed(t)

	sub := f.Subscribe("room-1")
	sub.Close()
	sub.Close() // must not panic

	_, ok := <-sub.C()
	assert.False(t, ok, "closed subscription must read as closed")

	// deliveries after close are suppressed, not queued
	require.NoError(t, f.Publish(context.Background(), mkMsg("room-1", "late")))
	time.Sleep(100 * time.Millisecond)
}

func TestFeed_SlowConsumerIsDropped(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	// buffer of 1: the second undrained delivery overflows
	f, err := New(context.Background(), rdb, 1, 1)
	require.NoError(t, err)
	t.Cleanup(f.Close)

	sub := f.Subscribe("room-1")

	require.NoError(t, f.Publish(context.Background(), mkMsg("room-1", "first")))
	require.NoError(t, f.Publish(context.Background(), mkMsg("room-1", "second")))
	require.NoError(t, f.Publish(context.Background(), mkMsg("room-1", "third")))

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-sub.C():
			if !ok {
				return // dropped as expected
			}
		case <-deadline:
			t.Fatal("slow consumer was never dropped")
		}
	}
}
