package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Temutjin2k/room-compass/internal/domain/models"
	"github.com/Temutjin2k/room-compass/internal/domain/types"
	wrap "github.com/Temutjin2k/room-compass/pkg/logger/wrapper"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type UserRepo struct {
	db Querier
}

func NewUserRepo(db Querier) *UserRepo {
	return &UserRepo{
		db: db,
	}
}

func (r *UserRepo) Create(ctx context.Context, name string) (id uuid.UUID, err error) {
	const op = "UserRepo.Create"
	defer func(start time.Time) { observe(op, start, err) }(time.Now())

	query := `
		INSERT INTO users (id, name, update_at)
		VALUES ($1, $2, now());`

	id = uuid.New()
	if _, err = TxorDB(ctx, r.db).Exec(ctx, query, id, name); err != nil {
		return uuid.Nil, dbError(ctx, op, err)
	}
	return id, nil
}

func (r *UserRepo) Get(ctx context.Context, id uuid.UUID) (u *models.User, err error) {
	const op = "UserRepo.Get"
	defer func(start time.Time) { observe(op, start, err) }(time.Now())

	query := `
		SELECT name, icon, role, room_pass, latitude, longitude, altitude, distance, update_at
		FROM users
		WHERE id = $1;`

	var (
		user          = models.User{ID: id}
		role          *string
		lat, lon, alt *float64
	)
	err = TxorDB(ctx, r.db).QueryRow(ctx, query, id).Scan(
		&user.Name,
		&user.Icon,
		&role,
		&user.RoomPass,
		&lat,
		&lon,
		&alt,
		&user.Distance,
		&user.UpdateAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrUserNotFound
		}
		return nil, dbError(ctx, op, err)
	}

	if role != nil {
		ur := types.UserRole(*role)
		user.Role = &ur
	}
	user.Location = point(lat, lon, alt)
	return &user, nil
}

// SetRoom moves the user into a room with the given role.
func (r *UserRepo) SetRoom(ctx context.Context, id uuid.UUID, pass int, role types.UserRole) (err error) {
	const op = "UserRepo.SetRoom"
	defer func(start time.Time) { observe(op, start, err) }(time.Now())

	query := `
		UPDATE users
		SET room_pass = $2, role = $3, update_at = now()
		WHERE id = $1;`

	return r.execOne(ctx, op, query, id, pass, role.String())
}

// Reset clears room membership, position and distance.
func (r *UserRepo) Reset(ctx context.Context, id uuid.UUID) (err error) {
	const op = "UserRepo.Reset"
	defer func(start time.Time) { observe(op, start, err) }(time.Now())

	query := `
		UPDATE users
		SET room_pass = NULL, role = NULL,
			latitude = NULL, longitude = NULL, altitude = NULL,
			distance = NULL, update_at = now()
		WHERE id = $1;`

	return r.execOne(ctx, op, query, id)
}

// HostLocation reads the position of the host sharing a room with the user.
// Nil without error when there is no host or it has no position.
func (r *UserRepo) HostLocation(ctx context.Context, id uuid.UUID) (p *models.GeoPoint, err error) {
	const op = "UserRepo.HostLocation"
	defer func(start time.Time) { observe(op, start, err) }(time.Now())

	query := `
		SELECT h.latitude, h.longitude, h.altitude
		FROM users u
		JOIN users h ON h.room_pass = u.room_pass AND h.role = 'host'
		WHERE u.id = $1
		LIMIT 1;`

	var lat, lon, alt *float64
	if err = TxorDB(ctx, r.db).QueryRow(ctx, query, id).Scan(&lat, &lon, &alt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, dbError(ctx, op, err)
	}
	return point(lat, lon, alt), nil
}

// UpdateLocation writes position and distance together.
func (r *UserRepo) UpdateLocation(ctx context.Context, id uuid.UUID, p models.GeoPoint, distance float64) (err error) {
	const op = "UserRepo.UpdateLocation"
	defer func(start time.Time) { observe(op, start, err) }(time.Now())

	query := `
		UPDATE users
		SET latitude = $2, longitude = $3, altitude = $4, distance = $5, update_at = now()
		WHERE id = $1;`

	return r.execOne(ctx, op, query, id, p.Latitude, p.Longitude, p.Altitude, distance)
}

// Clients lists the clients of a room, closest first.
func (r *UserRepo) Clients(ctx context.Context, pass int) (clients []models.ClientInfo, err error) {
	const op = "UserRepo.Clients"
	defer func(start time.Time) { observe(op, start, err) }(time.Now())

	query := `
		SELECT id::text, name, icon, distance, update_at
		FROM users
		WHERE room_pass = $1 AND role = 'client'
		ORDER BY distance NULLS LAST, name;`

	rows, err := TxorDB(ctx, r.db).Query(ctx, query, pass)
	if err != nil {
		return nil, dbError(ctx, op, err)
	}
	defer rows.Close()

	clients = make([]models.ClientInfo, 0)
	for rows.Next() {
		var (
			c  models.ClientInfo
			id string
		)
		if err = rows.Scan(&id, &c.Name, &c.Icon, &c.Distance, &c.UpdateAt); err != nil {
			return nil, dbError(ctx, op, err)
		}
		if c.ID, err = uuid.Parse(id); err != nil {
			return nil, dbError(ctx, op, err)
		}
		clients = append(clients, c)
	}
	if err = rows.Err(); err != nil {
		return nil, dbError(ctx, op, err)
	}
	return clients, nil
}

func (r *UserRepo) Settings(ctx context.Context, id uuid.UUID) (s *models.UserSettings, err error) {
	const op = "UserRepo.Settings"
	defer func(start time.Time) { observe(op, start, err) }(time.Now())

	query := `
		SELECT name, icon
		FROM users
		WHERE id = $1;`

	var settings models.UserSettings
	if err = TxorDB(ctx, r.db).QueryRow(ctx, query, id).Scan(&settings.Name, &settings.Icon); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrUserNotFound
		}
		return nil, dbError(ctx, op, err)
	}
	return &settings, nil
}

func (r *UserRepo) UpdateSettings(ctx context.Context, id uuid.UUID, s models.UserSettings) (err error) {
	const op = "UserRepo.UpdateSettings"
	defer func(start time.Time) { observe(op, start, err) }(time.Now())

	query := `
		UPDATE users
		SET name = $2, icon = $3, update_at = now()
		WHERE id = $1;`

	return r.execOne(ctx, op, query, id, s.Name, s.Icon)
}

func (r *UserRepo) UpdateIcon(ctx context.Context, id uuid.UUID, url string) (err error) {
	const op = "UserRepo.UpdateIcon"
	defer func(start time.Time) { observe(op, start, err) }(time.Now())

	query := `
		UPDATE users
		SET icon = $2, update_at = now()
		WHERE id = $1;`

	return r.execOne(ctx, op, query, id, url)
}

// execOne runs an update expected to hit exactly one user.
func (r *UserRepo) execOne(ctx context.Context, op, query string, args ...any) error {
	tag, err := TxorDB(ctx, r.db).Exec(ctx, query, args...)
	if err != nil {
		return dbError(ctx, op, err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrUserNotFound
	}
	return nil
}

func point(lat, lon, alt *float64) *models.GeoPoint {
	if lat == nil || lon == nil {
		return nil
	}
	return &models.GeoPoint{
		Latitude:  *lat,
		Longitude: *lon,
		Altitude:  alt,
	}
}

func dbError(ctx context.Context, op string, err error) error {
	ctx = wrap.WithAction(ctx, types.ActionDatabaseTransactionFailed)
	return wrap.Error(ctx, fmt.Errorf("%s: %w: %w", op, types.ErrDatabaseFailed, err))
}
