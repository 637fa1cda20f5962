package worker

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Pool implements ports.TaskRunner as a fixed-size slot pool.
//
// Ledger submissions and observer polls block for seconds; the pool keeps
// them off request-serving goroutines and caps concurrent network round
// trips at the client's safe limit.
type Pool struct {
	slots chan struct{}
	log   zerolog.Logger
}

// New creates a pool with the given number of slots.
func New(size int, log zerolog.Logger) *Pool {
	if size <= 0 {
		size = 1
	}
	return &Pool{
		slots: make(chan struct{}, size),
		log:   log,
	}
}

// Do runs fn on the pool and waits for it. Blocks until a slot frees or ctx
// is done. fn receives the caller's ctx: a settlement already sent to the
// network must still await its receipt, so fn decides what cancellation
// means for it.
func (p *Pool) Do(ctx context.Context, fn func(context.Context) error) error {
	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("waiting for worker slot: %w", ctx.Err())
	}
	defer func() { <-p.slots }()

	return fn(ctx)
}

// Go runs fn on the pool without awaiting a result. The task gets a fresh
// background context: it must outlive the originating request.
func (p *Pool) Go(ctx context.Context, fn func(context.Context)) error {
	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("waiting for worker slot: %w", ctx.Err())
	}

	go func() {
		defer func() {
			<-p.slots
			if r := recover(); r != nil {
				p.log.Error().Interface("panic", r).Msg("background task panicked")
			}
		}()
		fn(context.Background())
	}()

	return nil
}
