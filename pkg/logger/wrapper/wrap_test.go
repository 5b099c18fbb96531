package wrap

import (
	"context"
	"errors"
	"testing"
)

var errBase = errors.New("base")

func TestErrorCarriesLogCtx(t *testing.T) {
	ctx := WithAction(context.Background(), "inner")
	ctx = WithUserID(ctx, "user-1")

	err := Error(ctx, errBase)
	if !errors.Is(err, errBase) {
		t.Fatalf("wrapped error must unwrap to base")
	}

	got := ErrorCtx(context.Background(), err)
	lc, ok := got.Value(LogCtxKey).(LogCtx)
	if !ok {
		t.Fatalf("expected log ctx in context")
	}
	if lc.Action != "inner" || lc.UserID != "user-1" {
		t.Fatalf("unexpected log ctx: %+v", lc)
	}
}

func TestErrorNil(t *testing.T) {
	if Error(context.Background(), nil) != nil {
		t.Fatalf("nil error must stay nil")
	}
}

func TestWithLogCtxMerges(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithLogCtx(ctx, LogCtx{Action: "join_room", RoomPass: "1234"})

	lc := ctx.Value(LogCtxKey).(LogCtx)
	if lc.RequestID != "req-1" || lc.Action != "join_room" || lc.RoomPass != "1234" {
		t.Fatalf("unexpected merge result: %+v", lc)
	}
	if GetRequestID(ctx) != "req-1" {
		t.Fatalf("unexpected request id")
	}
}

func TestErrorCtxKeepsOuterFields(t *testing.T) {
	err := Error(WithAction(context.Background(), "push_location"), errBase)

	outer := WithRoomPass(WithRequestID(context.Background(), "req-9"), "4821")
	lc := ErrorCtx(outer, err).Value(LogCtxKey).(LogCtx)
	if lc.Action != "push_location" || lc.RequestID != "req-9" || lc.RoomPass != "4821" {
		t.Fatalf("unexpected log ctx: %+v", lc)
	}
}
