package room_repo

import (
	"context"

	"github.com/ajtazer/tazerchat/internal/entity"
	app_error "github.com/ajtazer/tazerchat/internal/errors"
)

type RoomRepoContract interface {
	// ResolveOrCreate maps a room name to its Room, inserting the record on
	// first reference. Concurrent first-joiners of one name all receive the
	// same room: the loser of the insert race retries the lookup.
	ResolveOrCreate(ctx context.Context, name string) (*entity.Room, *app_error.AppError)
	FindByName(ctx context.Context, name string) (*entity.Room, *app_error.AppError)
}
