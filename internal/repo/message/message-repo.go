package message_repo

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/ajtazer/tazerchat/internal/entity"
	app_error "github.com/ajtazer/tazerchat/internal/errors"
)

const (
	databaseName   = "tazerchat"
	collectionName = "messages"

	appendStripes = 64
)

type MessageRepo struct {
	Mongo *mongo.Client
	Feed  Publisher

	// Per-room append locks. Holding the stripe across key assignment,
	// insert and publish is the store's linearization point: without it a
	// slow insert could publish keys out of order and a session would drop
	// the lower-keyed message as a duplicate.
	stripes [appendStripes]sync.Mutex
}

func NewMessageRepo(client *mongo.Client, feed Publisher) *MessageRepo {
	return &MessageRepo{
		Mongo: client,
		Feed:  feed,
	}
}

func (r *MessageRepo) collection() *mongo.Collection {
	return r.Mongo.Database(databaseName).Collection(collectionName)
}

// EnsureIndexes creates the (room_id, created_at, _id) index backing ordered
// range scans. Called once at startup.
func (r *MessageRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "room_id", Value: 1},
			{Key: "created_at", Value: 1},
			{Key: "_id", Value: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create message index: %w", err)
	}
	return nil
}

func (r *MessageRepo) Append(ctx context.Context, roomID, nickname, content string) (*entity.Message, *app_error.AppError) {
	nickname = strings.TrimSpace(nickname)
	content = strings.TrimSpace(content)

	if roomID == "" {
		return nil, app_error.Validation("room id is required", "room_id")
	}
	if nickname == "" {
		return nil, app_error.Validation("nickname is required", "nickname")
	}
	if content == "" {
		return nil, app_error.Validation("content is required", "content")
	}

	mu := r.stripe(roomID)
	mu.Lock()
	defer mu.Unlock()

	// BSON datetimes carry millisecond precision; the key must round-trip
	// through the store and the feed without changing.
	now := time.Now().UTC().Truncate(time.Millisecond)
	msg := &entity.Message{
		ID:        bson.NewObjectIDFromTimestamp(now),
		RoomID:    roomID,
		Nickname:  nickname,
		Content:   content,
		CreatedAt: now,
	}

	if _, err := r.collection().InsertOne(ctx, msg); err != nil {
		log.Error().Err(err).Str("roomID", roomID).Msg("failed to insert message")
		return nil, app_error.StoreUnavailable("failed to persist message")
	}

	if r.Feed != nil {
		if err := r.Feed.Publish(ctx, msg); err != nil {
			// The append is durable; subscribers recover via re-replay.
			log.Warn().Err(err).Str("messageID", msg.ID.Hex()).Msg("message committed but feed publish failed")
		}
	}

	return msg, nil
}

func (r *MessageRepo) Recent(ctx context.Context, roomID string, limit int) ([]*entity.Message, *app_error.AppError) {
	if roomID == "" {
		return nil, app_error.Validation("room id is required", "room_id")
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	findOpts := options.Find().
		SetSort(bson.D{
			{Key: "created_at", Value: -1},
			{Key: "_id", Value: -1},
		}).
		SetLimit(int64(limit))

	cur, err := r.collection().Find(ctx, bson.M{"room_id": roomID}, findOpts)
	if err != nil {
		log.Error().Err(err).Str("roomID", roomID).Msg("failed to fetch messages")
		return nil, app_error.StoreUnavailable("failed to fetch messages")
	}
	defer cur.Close(ctx)

	var messages []*entity.Message
	if err := cur.All(ctx, &messages); err != nil {
		return nil, app_error.StoreUnavailable("failed to decode messages")
	}

	// reverse to ascending order, oldest first
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

func (r *MessageRepo) stripe(roomID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(roomID))
	return &r.stripes[h.Sum32()%appendStripes]
}
