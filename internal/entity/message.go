package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Message is immutable once appended. Its ObjectID is minted from the same
// timestamp as CreatedAt, so within a room both fields advance together.
type Message struct {
	ID        bson.ObjectID `bson:"_id" json:"id"`
	RoomID    string        `bson:"room_id" json:"room_id"`
	Nickname  string        `bson:"nickname" json:"nickname"`
	Content   string        `bson:"content" json:"content"`
	CreatedAt time.Time     `bson:"created_at" json:"created_at"`
}

func (m *Message) Key() Key {
	return Key{CreatedAt: m.CreatedAt, ID: m.ID}
}
