// Package pipeline provides the "caller" that spec.md §2 says assembles
// stages into a linear chain: a thin wrapper over golang.org/x/sync/errgroup
// that runs a fixed set of stage functions concurrently and surfaces the
// first failure, matching spec.md §7's "the whole pipeline collapses on any
// stage failure" policy.
package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Stage is one pipeline stage's entry point. Stages that don't need
// cancellation (the channel core has none, per spec.md §5) can ignore ctx.
type Stage func(ctx context.Context) error

// Run starts every stage as a goroutine and blocks until all have
// returned. It returns the first non-nil error any stage produced; ctx
// passed to the remaining stages is cancelled as soon as one fails, but
// spec.md's core stages do not currently observe cancellation — they stop
// naturally once their peer endpoint is closed and returns
// channel.ErrPeerGone.
func Run(ctx context.Context, stages ...Stage) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, stage := range stages {
		stage := stage
		g.Go(func() error {
			return stage(gctx)
		})
	}
	return g.Wait()
}
