// Package fanout runs best-effort concurrent waves.
package fanout

import (
	"context"

	zlog "github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Outcome is the result of one task of a wave. OK is false when the task failed or
// was skipped; Value is then the zero value.
type Outcome[T any] struct {
	Value T
	OK    bool
}

// Collect runs fn for every index in [0, n) with at most limit tasks in flight and
// returns the outcomes in index order. A failing task never affects its siblings.
// Tasks not yet started when ctx is done are skipped. limit <= 0 means no limit.
func Collect[T any](ctx context.Context, n, limit int, fn func(ctx context.Context, i int) (T, error)) []Outcome[T] {
	outcomes := make([]Outcome[T], n)
	if n == 0 {
		return outcomes
	}

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			v, err := fn(ctx, i)
			if err != nil {
				zlog.Debug().Msgf("fan-out task failed: index=%d error=%v", i, err)
				return nil // Continue with other tasks
			}
			outcomes[i] = Outcome[T]{Value: v, OK: true}
			return nil
		})
	}

	_ = g.Wait()
	return outcomes
}
