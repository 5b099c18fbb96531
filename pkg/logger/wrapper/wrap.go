package wrap

import (
	"context"
	"errors"
)

// ctxError carries the LogCtx of the place an error was raised.
type ctxError struct {
	err    error
	logCtx LogCtx
}

func (e *ctxError) Error() string {
	return e.err.Error()
}

func (e *ctxError) Unwrap() error {
	return e.err
}

// Error wraps an error with the current LogCtx from the context
func Error(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}

	c, _ := ctx.Value(LogCtxKey).(LogCtx)

	// an already wrapped error keeps its chain and gets the newer context
	return &ctxError{
		err:    err,
		logCtx: c,
	}
}

// ErrorCtx merges the LogCtx carried by err over the one in ctx. Fields the
// error did not record, such as a room code set later, are kept from ctx.
func ErrorCtx(ctx context.Context, err error) context.Context {
	var e *ctxError
	if errors.As(err, &e) && e != nil {
		return WithLogCtx(ctx, e.logCtx)
	}
	return ctx
}
