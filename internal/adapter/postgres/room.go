package repo

import (
	"context"
	"errors"
	"time"

	"github.com/Temutjin2k/room-compass/internal/domain/models"
	"github.com/Temutjin2k/room-compass/internal/domain/types"
	"github.com/Temutjin2k/room-compass/pkg/postgres"
	"github.com/jackc/pgx/v5"
)

type RoomRepo struct {
	db Querier
}

func NewRoomRepo(db Querier) *RoomRepo {
	return &RoomRepo{
		db: db,
	}
}

// Create inserts a room. A taken code is reported as types.ErrRoomCodeTaken.
func (r *RoomRepo) Create(ctx context.Context, room models.Room) (err error) {
	const op = "RoomRepo.Create"
	defer func(start time.Time) { observe(op, start, err) }(time.Now())

	query := `
		INSERT INTO rooms (pass, name, is_open, update_at)
		VALUES ($1, $2, $3, $4);`

	if _, err = TxorDB(ctx, r.db).Exec(ctx, query, room.Pass, room.Name, room.IsOpen, room.UpdateAt); err != nil {
		if postgres.IsUniqueViolation(err) {
			return types.ErrRoomCodeTaken
		}
		return dbError(ctx, op, err)
	}
	return nil
}

func (r *RoomRepo) Get(ctx context.Context, pass int) (room *models.Room, err error) {
	const op = "RoomRepo.Get"
	defer func(start time.Time) { observe(op, start, err) }(time.Now())

	query := `
		SELECT pass, name, is_open, update_at
		FROM rooms
		WHERE pass = $1;`

	var rm models.Room
	if err = TxorDB(ctx, r.db).QueryRow(ctx, query, pass).Scan(&rm.Pass, &rm.Name, &rm.IsOpen, &rm.UpdateAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrRoomNotFound
		}
		return nil, dbError(ctx, op, err)
	}
	return &rm, nil
}

func (r *RoomRepo) Exists(ctx context.Context, pass int) (exists bool, err error) {
	const op = "RoomRepo.Exists"
	defer func(start time.Time) { observe(op, start, err) }(time.Now())

	query := `SELECT EXISTS (SELECT 1 FROM rooms WHERE pass = $1);`

	if err = TxorDB(ctx, r.db).QueryRow(ctx, query, pass).Scan(&exists); err != nil {
		return false, dbError(ctx, op, err)
	}
	return exists, nil
}

// Touch bumps update_at, called whenever someone joins.
func (r *RoomRepo) Touch(ctx context.Context, pass int) (err error) {
	const op = "RoomRepo.Touch"
	defer func(start time.Time) { observe(op, start, err) }(time.Now())

	query := `UPDATE rooms SET update_at = now() WHERE pass = $1;`

	return r.execOne(ctx, op, query, pass)
}

func (r *RoomRepo) SetOpen(ctx context.Context, pass int, open bool) (err error) {
	const op = "RoomRepo.SetOpen"
	defer func(start time.Time) { observe(op, start, err) }(time.Now())

	query := `UPDATE rooms SET is_open = $2, update_at = now() WHERE pass = $1;`

	return r.execOne(ctx, op, query, pass, open)
}

func (r *RoomRepo) execOne(ctx context.Context, op, query string, args ...any) error {
	tag, err := TxorDB(ctx, r.db).Exec(ctx, query, args...)
	if err != nil {
		return dbError(ctx, op, err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrRoomNotFound
	}
	return nil
}
