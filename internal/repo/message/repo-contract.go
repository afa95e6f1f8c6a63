package message_repo

import (
	"context"

	"github.com/ajtazer/tazerchat/internal/entity"
	app_error "github.com/ajtazer/tazerchat/internal/errors"
)

const DefaultHistoryLimit = 50

type MessageRepoContract interface {
	// Append validates, persists and publishes one message. The returned
	// message carries its generated ordering key. Appends to the same room
	// are linearized: key order, commit order and feed publish order agree.
	Append(ctx context.Context, roomID, nickname, content string) (*entity.Message, *app_error.AppError)

	// Recent returns up to limit most recent messages for the room, oldest
	// first. A finite snapshot as of call time, not restartable.
	Recent(ctx context.Context, roomID string, limit int) ([]*entity.Message, *app_error.AppError)
}

// Publisher receives every successfully appended message. Satisfied by the
// change feed.
type Publisher interface {
	Publish(ctx context.Context, msg *entity.Message) error
}
