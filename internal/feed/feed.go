package feed

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/ajtazer/tazerchat/internal/entity"
)

const channelPrefix = "room."

// Feed republishes newly appended messages to every local subscriber of the
// message's room. Transport is Redis Pub/Sub (one channel per room), so any
// process sharing the Redis sees the same stream. A single reader feeds a
// pool of shard workers; a room always hashes to the same shard, which keeps
// per-room delivery order while unrelated rooms fan out in parallel.
type Feed struct {
	rdb    *redis.Client
	pubsub *redis.PubSub

	mu   sync.RWMutex
	subs map[string]map[*Subscription]struct{}

	shards []chan *entity.Message
	buffer int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New connects the feed to Redis and starts its dispatcher. The returned
// feed is live until Close.
func New(ctx context.Context, rdb *redis.Client, shardCount, bufferSize int) (*Feed, error) {
	if shardCount <= 0 {
		shardCount = 8
	}
	if bufferSize <= 0 {
		bufferSize = 256
	}

	fctx, cancel := context.WithCancel(context.Background())

	pubsub := rdb.PSubscribe(fctx, channelPrefix+"*")
	// Wait for the subscription confirmation so a Publish immediately after
	// New cannot be missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		cancel()
		pubsub.Close()
		return nil, err
	}

	f := &Feed{
		rdb:    rdb,
		pubsub: pubsub,
		subs:   make(map[string]map[*Subscription]struct{}),
		shards: make([]chan *entity.Message, shardCount),
		buffer: bufferSize,
		ctx:    fctx,
		cancel: cancel,
	}

	for i := range f.shards {
		f.shards[i] = make(chan *entity.Message, bufferSize)
		f.wg.Add(1)
		go f.shardWorker(i)
	}

	f.wg.Add(1)
	go f.readLoop()

	log.Info().Int("shards", shardCount).Msg("feed: change feed started")
	return f, nil
}

// Publish notifies all subscribers of the message's room. Called by the
// message store after a durable append.
func (f *Feed) Publish(ctx context.Context, msg *entity.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return f.rdb.Publish(ctx, channelPrefix+msg.RoomID, data).Err()
}

// Subscribe registers interest in a room. The subscription stream carries
// messages published after this call; there is no backlog.
func (f *Feed) Subscribe(roomID string) *Subscription {
	s := &Subscription{
		RoomID: roomID,
		ch:     make(chan *entity.Message, f.buffer),
		feed:   f,
	}

	f.mu.Lock()
	if f.subs[roomID] == nil {
		f.subs[roomID] = make(map[*Subscription]struct{})
	}
	f.subs[roomID][s] = struct{}{}
	f.mu.Unlock()

	log.Debug().Str("roomID", roomID).Msg("feed: subscription registered")
	return s
}

func (f *Feed) readLoop() {
	defer f.wg.Done()
	defer func() {
		for _, shard := range f.shards {
			close(shard)
		}
	}()

	ch := f.pubsub.Channel()
	for {
		select {
		case <-f.ctx.Done():
			return
		case m, ok := <-ch:
			if !ok {
				return
			}
			roomID := strings.TrimPrefix(m.Channel, channelPrefix)

			var msg entity.Message
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				log.Warn().Err(err).Str("channel", m.Channel).Msg("feed: dropping undecodable payload")
				continue
			}

			select {
			case f.shards[f.shard(roomID)] <- &msg:
			case <-f.ctx.Done():
				return
			}
		}
	}
}

func (f *Feed) shardWorker(id int) {
	defer f.wg.Done()

	for msg := range f.shards[id] {
		f.dispatch(msg)
	}
}

func (f *Feed) dispatch(msg *entity.Message) {
	var dropped []*Subscription

	f.mu.RLock()
	for s := range f.subs[msg.RoomID] {
		select {
		case s.ch <- msg:
		default:
			// Slow consumer. Cutting it loose is safe: the closed stream
			// tells its session to re-replay from the cursor.
			dropped = append(dropped, s)
		}
	}
	f.mu.RUnlock()

	for _, s := range dropped {
		log.Warn().Str("roomID", s.RoomID).Msg("feed: slow consumer, dropping subscription")
		s.Close()
	}
}

func (f *Feed) remove(s *Subscription) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if set, ok := f.subs[s.RoomID]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(f.subs, s.RoomID)
		}
	}
}

func (f *Feed) shard(roomID string) int {
	h := fnv.New32a()
	h.Write([]byte(roomID))
	return int(h.Sum32() % uint32(len(f.shards)))
}

// Close stops the dispatcher and closes every subscription.
func (f *Feed) Close() {
	f.cancel()
	f.pubsub.Close()
	f.wg.Wait()

	f.mu.Lock()
	var all []*Subscription
	for _, set := range f.subs {
		for s := range set {
			all = append(all, s)
		}
	}
	f.mu.Unlock()

	for _, s := range all {
		s.Close()
	}

	log.Info().Msg("feed: change feed stopped")
}
