package executor

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/vk/unitgrid/internal/ctxlog"
	"github.com/vk/unitgrid/internal/memory"
	"github.com/vk/unitgrid/internal/unit"
)

// Option configures a call to Execute.
type Option func(*options)

type options struct {
	workers int
}

func newOptions(opts []Option) options {
	o := options{workers: 1}
	for _, opt := range opts {
		opt(&o)
	}
	if o.workers < 1 {
		o.workers = 1
	}
	return o
}

// WithWorkers evaluates up to n units of a tier concurrently. Every tier
// still completes before the next one starts.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// runTier evaluates one tier, sequentially or with a bounded worker group.
func runTier(ctx context.Context, plan Plan, mem *memory.Store, tier []*unit.Unit, workers int) error {
	if workers == 1 || len(tier) == 1 {
		for _, u := range tier {
			if err := runUnit(ctx, plan, mem, u); err != nil {
				return err
			}
		}
		return nil
	}

	logger := ctxlog.FromContext(ctx)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, u := range tier {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := runUnit(gctx, plan, mem, u); err != nil {
				logger.Debug("executor: unit failed.", "unit", u.Name(), "error", err)
				return err
			}
			return nil
		})
	}
	return g.Wait()
}
