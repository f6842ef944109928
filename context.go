package ledger

import (
	"context"
	"time"

	"github.com/golos-one/ledger/errors"
)

// Context is a subset of context.Context used to carry per block
// information through the evaluation pipeline.
type Context = context.Context

type contextKey int

const (
	contextKeyBlockTime contextKey = iota
	contextKeyHeight
)

// WithBlockTime sets the block time for the context. Block time is always
// represented in UTC.
func WithBlockTime(ctx Context, t time.Time) Context {
	return context.WithValue(ctx, contextKeyBlockTime, t.UTC())
}

// BlockTime returns the current block time. An error is returned if the
// block time is not present in the context, which means the context was not
// created as part of a block processing.
func BlockTime(ctx Context) (time.Time, error) {
	t, ok := ctx.Value(contextKeyBlockTime).(time.Time)
	if !ok {
		return time.Time{}, errors.Wrap(errors.ErrHuman, "block time not present in the context")
	}
	return t, nil
}

// WithHeight sets the block height for the context.
func WithHeight(ctx Context, height int64) Context {
	return context.WithValue(ctx, contextKeyHeight, height)
}

// GetHeight returns the block height and true when present.
func GetHeight(ctx Context) (int64, bool) {
	h, ok := ctx.Value(contextKeyHeight).(int64)
	return h, ok
}

// IsExpired returns true if given time is in the past as compared to the
// current time as declared in the context. Context must carry the block
// time or this function panics, as the deterministic clock is a hard
// requirement for every evaluator.
//
// A zero time value is never expired.
func IsExpired(ctx Context, t UnixTime) bool {
	if t.IsZero() {
		return false
	}
	now, err := BlockTime(ctx)
	if err != nil {
		panic("block time is required: " + err.Error())
	}
	return t.Time().Before(now) || t.Time().Equal(now)
}

// InThePast returns true if given time is strictly before the current block
// time.
func InThePast(ctx Context, t time.Time) bool {
	now, err := BlockTime(ctx)
	if err != nil {
		panic("block time is required: " + err.Error())
	}
	return t.Before(now)
}

// InTheFuture returns true if given time is strictly after the current
// block time.
func InTheFuture(ctx Context, t time.Time) bool {
	now, err := BlockTime(ctx)
	if err != nil {
		panic("block time is required: " + err.Error())
	}
	return t.After(now)
}
