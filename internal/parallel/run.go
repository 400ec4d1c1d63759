package parallel

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Run calls fn once per worker, concurrently, each with its own Partition,
// and waits for all of them. The first error cancels ctx for the others and
// is returned.
func Run(ctx context.Context, workers int, fn func(ctx context.Context, part Partition) error) error {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers == 1 {
		return fn(ctx, Single)
	}

	g, ctx := errgroup.WithContext(ctx)
	for core := range workers {
		part := Partition{Core: core, NumCores: workers}
		g.Go(func() error {
			return fn(ctx, part)
		})
	}
	return g.Wait()
}
