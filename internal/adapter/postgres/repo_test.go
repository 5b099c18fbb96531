package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Temutjin2k/room-compass/internal/domain/models"
	"github.com/Temutjin2k/room-compass/internal/domain/types"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

func strPtr(s string) *string { return &s }
func fPtr(f float64) *float64 { return &f }
func iPtr(i int) *int         { return &i }

func TestUserCreateAndGet(t *testing.T) {
	mock := newMock(t)
	users := NewUserRepo(mock)
	ctx := context.Background()

	mock.ExpectExec(`INSERT INTO users`).
		WithArgs(pgxmock.AnyArg(), "alice").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	id, err := users.Create(ctx, "alice")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if id == uuid.Nil {
		t.Fatalf("expected generated id")
	}

	now := time.Now()
	mock.ExpectQuery(`SELECT name, icon, role, room_pass, latitude, longitude, altitude, distance, update_at`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"name", "icon", "role", "room_pass", "latitude", "longitude", "altitude", "distance", "update_at"}).
			AddRow("alice", (*string)(nil), strPtr("client"), iPtr(1234), fPtr(35), fPtr(139), fPtr(10), fPtr(143.6), now))

	u, err := users.Get(ctx, id)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if u.ID != id || u.Name != "alice" || u.Icon != nil {
		t.Fatalf("unexpected user %+v", u)
	}
	if u.Role == nil || *u.Role != types.RoleClient || u.RoomPass == nil || *u.RoomPass != 1234 {
		t.Fatalf("unexpected membership %+v", u)
	}
	if u.Location == nil || u.Location.Latitude != 35 || *u.Location.Altitude != 10 {
		t.Fatalf("unexpected location %+v", u.Location)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserGetNotFound(t *testing.T) {
	mock := newMock(t)
	users := NewUserRepo(mock)

	mock.ExpectQuery(`SELECT name, icon, role`).
		WithArgs(pgxmock.AnyArg()).
		WillReturnError(pgx.ErrNoRows)

	if _, err := users.Get(context.Background(), uuid.New()); !errors.Is(err, types.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserGetWithoutLocation(t *testing.T) {
	mock := newMock(t)
	users := NewUserRepo(mock)

	mock.ExpectQuery(`SELECT name, icon, role`).
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"name", "icon", "role", "room_pass", "latitude", "longitude", "altitude", "distance", "update_at"}).
			AddRow("bob", (*string)(nil), (*string)(nil), (*int)(nil), (*float64)(nil), (*float64)(nil), (*float64)(nil), (*float64)(nil), time.Now()))

	u, err := users.Get(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if u.Location != nil || u.Role != nil || u.RoomPass != nil {
		t.Fatalf("expected empty membership and location, got %+v", u)
	}
}

func TestUserHostLocation(t *testing.T) {
	mock := newMock(t)
	users := NewUserRepo(mock)
	ctx := context.Background()
	id := uuid.New()

	mock.ExpectQuery(`JOIN users h ON h.room_pass = u.room_pass AND h.role = 'host'`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"latitude", "longitude", "altitude"}).
			AddRow(fPtr(35.001), fPtr(139.001), (*float64)(nil)))

	p, err := users.HostLocation(ctx, id)
	if err != nil {
		t.Fatalf("host location: %v", err)
	}
	if p == nil || p.Latitude != 35.001 || p.Altitude != nil {
		t.Fatalf("unexpected point %+v", p)
	}

	mock.ExpectQuery(`JOIN users h`).WithArgs(id).WillReturnError(pgx.ErrNoRows)
	if p, err := users.HostLocation(ctx, id); err != nil || p != nil {
		t.Fatalf("expected unknown host, got %v %v", p, err)
	}

	mock.ExpectQuery(`JOIN users h`).WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"latitude", "longitude", "altitude"}).
			AddRow((*float64)(nil), (*float64)(nil), (*float64)(nil)))
	if p, err := users.HostLocation(ctx, id); err != nil || p != nil {
		t.Fatalf("host without position must be unknown, got %v %v", p, err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserUpdateLocation(t *testing.T) {
	mock := newMock(t)
	users := NewUserRepo(mock)
	ctx := context.Background()
	id := uuid.New()

	mock.ExpectExec(`UPDATE users\s+SET latitude = \$2, longitude = \$3, altitude = \$4, distance = \$5`).
		WithArgs(id, 35.0, 139.0, pgxmock.AnyArg(), 143.6).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	p := models.GeoPoint{Latitude: 35, Longitude: 139, Altitude: models.Alt(10)}
	if err := users.UpdateLocation(ctx, id, p, 143.6); err != nil {
		t.Fatalf("update location: %v", err)
	}

	mock.ExpectExec(`UPDATE users`).
		WithArgs(id, 35.0, 139.0, pgxmock.AnyArg(), 0.0).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	if err := users.UpdateLocation(ctx, id, p, 0); !errors.Is(err, types.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	mock.ExpectExec(`UPDATE users`).
		WithArgs(id, 35.0, 139.0, pgxmock.AnyArg(), 0.0).
		WillReturnError(errors.New("connection refused"))
	if err := users.UpdateLocation(ctx, id, p, 0); !errors.Is(err, types.ErrDatabaseFailed) {
		t.Fatalf("expected ErrDatabaseFailed, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserSetRoomAndReset(t *testing.T) {
	mock := newMock(t)
	users := NewUserRepo(mock)
	ctx := context.Background()
	id := uuid.New()

	mock.ExpectExec(`SET room_pass = \$2, role = \$3`).
		WithArgs(id, 1234, "host").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	if err := users.SetRoom(ctx, id, 1234, types.RoleHost); err != nil {
		t.Fatalf("set room: %v", err)
	}

	mock.ExpectExec(`SET room_pass = NULL, role = NULL`).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	if err := users.Reset(ctx, id); err != nil {
		t.Fatalf("reset: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserClients(t *testing.T) {
	mock := newMock(t)
	users := NewUserRepo(mock)
	a, b := uuid.New(), uuid.New()

	mock.ExpectQuery(`SELECT id::text, name, icon, distance, update_at`).
		WithArgs(1234).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "icon", "distance", "update_at"}).
			AddRow(a.String(), "bob", strPtr("https://icon"), fPtr(12.5), time.Now()).
			AddRow(b.String(), "carol", (*string)(nil), (*float64)(nil), time.Now()))

	clients, err := users.Clients(context.Background(), 1234)
	if err != nil {
		t.Fatalf("clients: %v", err)
	}
	if len(clients) != 2 || clients[0].ID != a || *clients[0].Distance != 12.5 || clients[1].Distance != nil {
		t.Fatalf("unexpected clients %+v", clients)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserSettings(t *testing.T) {
	mock := newMock(t)
	users := NewUserRepo(mock)
	ctx := context.Background()
	id := uuid.New()

	mock.ExpectQuery(`SELECT name, icon\s+FROM users`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"name", "icon"}).AddRow("alice", strPtr("https://icon")))
	s, err := users.Settings(ctx, id)
	if err != nil || s.Name != "alice" || *s.Icon != "https://icon" {
		t.Fatalf("unexpected settings %+v %v", s, err)
	}

	mock.ExpectExec(`SET name = \$2, icon = \$3`).
		WithArgs(id, "Alice", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	if err := users.UpdateSettings(ctx, id, models.UserSettings{Name: "Alice"}); err != nil {
		t.Fatalf("update settings: %v", err)
	}

	mock.ExpectExec(`SET icon = \$2`).
		WithArgs(id, "https://new").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	if err := users.UpdateIcon(ctx, id, "https://new"); err != nil {
		t.Fatalf("update icon: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRoomRepo(t *testing.T) {
	mock := newMock(t)
	rooms := NewRoomRepo(mock)
	ctx := context.Background()
	now := time.Now()

	mock.ExpectExec(`INSERT INTO rooms`).
		WithArgs(1234, "picnic", true, now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	if err := rooms.Create(ctx, models.Room{Pass: 1234, Name: "picnic", IsOpen: true, UpdateAt: now}); err != nil {
		t.Fatalf("create room: %v", err)
	}

	mock.ExpectExec(`INSERT INTO rooms`).
		WithArgs(1234, "again", true, now).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	if err := rooms.Create(ctx, models.Room{Pass: 1234, Name: "again", IsOpen: true, UpdateAt: now}); !errors.Is(err, types.ErrRoomCodeTaken) {
		t.Fatalf("expected ErrRoomCodeTaken, got %v", err)
	}

	mock.ExpectQuery(`SELECT EXISTS`).WithArgs(1234).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	if ok, err := rooms.Exists(ctx, 1234); err != nil || !ok {
		t.Fatalf("expected room to exist: %v %v", ok, err)
	}

	mock.ExpectQuery(`SELECT pass, name, is_open, update_at`).WithArgs(1234).
		WillReturnRows(pgxmock.NewRows([]string{"pass", "name", "is_open", "update_at"}).AddRow(1234, "picnic", false, now))
	room, err := rooms.Get(ctx, 1234)
	if err != nil || room.IsOpen || room.Name != "picnic" {
		t.Fatalf("unexpected room %+v %v", room, err)
	}

	mock.ExpectQuery(`SELECT pass, name, is_open, update_at`).WithArgs(4321).WillReturnError(pgx.ErrNoRows)
	if _, err := rooms.Get(ctx, 4321); !errors.Is(err, types.ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}

	mock.ExpectExec(`UPDATE rooms SET update_at = now\(\)`).WithArgs(1234).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	if err := rooms.Touch(ctx, 1234); err != nil {
		t.Fatalf("touch: %v", err)
	}

	mock.ExpectExec(`UPDATE rooms SET is_open = \$2`).WithArgs(4321, false).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	if err := rooms.SetOpen(ctx, 4321, false); !errors.Is(err, types.ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
