package entity

import (
	"time"

	"github.com/google/uuid"
)

// Room is created lazily on first reference to its name and never deleted.
// The unique index on Name is the source of truth for room identity.
type Room struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}
