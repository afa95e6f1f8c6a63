package room_repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ajtazer/tazerchat/internal/entity"
	app_error "github.com/ajtazer/tazerchat/internal/errors"
)

type RoomRepo struct {
	DB *gorm.DB
}

func NewRoomRepo(db *gorm.DB) RoomRepoContract {
	return &RoomRepo{DB: db}
}

func (r *RoomRepo) ResolveOrCreate(ctx context.Context, name string) (*entity.Room, *app_error.AppError) {
	if strings.TrimSpace(name) == "" {
		return nil, app_error.Validation("room name is required", "room")
	}

	room, appErr := r.FindByName(ctx, name)
	if appErr == nil {
		return room, nil
	}
	if appErr.Kind != app_error.KindNotFound {
		return nil, appErr
	}

	newRoom := &entity.Room{
		ID:        uuid.New(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}

	if err := r.DB.WithContext(ctx).Create(newRoom).Error; err != nil {
		if !isUniqueViolation(err) {
			log.Error().Err(err).Str("room", name).Msg("failed to create room")
			return nil, app_error.StoreUnavailable("failed to create room")
		}
		// Lost the first-join race: the winner's row is the room.
		room, appErr := r.FindByName(ctx, name)
		if appErr != nil {
			return nil, appErr
		}
		return room, nil
	}

	log.Info().Str("room", name).Str("roomID", newRoom.ID.String()).Msg("room created")
	return newRoom, nil
}

func (r *RoomRepo) FindByName(ctx context.Context, name string) (*entity.Room, *app_error.AppError) {
	var room entity.Room
	if err := r.DB.WithContext(ctx).Where("name = ?", name).First(&room).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, app_error.NotFound("room not found")
		}
		log.Error().Err(err).Str("room", name).Msg("failed to fetch room")
		return nil, app_error.StoreUnavailable("failed to fetch room")
	}
	return &room, nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique")
}
