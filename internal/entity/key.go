package entity

import (
	"bytes"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Key is the total ordering key of a message within its room: created_at
// first, ObjectID as the tie-break. Every reader (history replay, live feed,
// session cursor) compares messages through this type so they all agree on
// relative order.
type Key struct {
	CreatedAt time.Time
	ID        bson.ObjectID
}

// Compare returns -1, 0 or 1. The zero Key sorts before every real key and
// serves as the "start of time" cursor sentinel.
func (k Key) Compare(other Key) int {
	if k.CreatedAt.Before(other.CreatedAt) {
		return -1
	}
	if k.CreatedAt.After(other.CreatedAt) {
		return 1
	}
	return bytes.Compare(k.ID[:], other.ID[:])
}

func (k Key) IsZero() bool {
	return k.CreatedAt.IsZero() && k.ID.IsZero()
}
