package trace

import (
	"context"
	"sync"

	"github.com/go-alloc/segheap/concurrency/gopool"
)

// RunConcurrent replays ops against every runner concurrently, one per
// goroutine, dispatched through a bounded pool instead of a bare `go`
// per runner. Each Runner owns its own Allocator and mutex, so replays
// never contend with each other; this is the intended concurrency model
// for the allocator, which provides no internal synchronization of its
// own. It returns one error per runner, in runner order, nil where the
// replay succeeded.
func RunConcurrent(ctx context.Context, runners []*Runner, ops []Op, opt Options) []error {
	errs := make([]error, len(runners))

	pool := gopool.NewGoPool("trace-bench", &gopool.Option{
		MaxIdleWorkers: opt.MaxWorkers,
		WorkerMaxAge:   opt.WorkerMaxAge,
		TaskChanBuffer: len(runners) + 1,
	})

	var wg sync.WaitGroup
	wg.Add(len(runners))
	for i, rn := range runners {
		i, rn := i, rn
		pool.CtxGo(ctx, func() {
			defer wg.Done()
			errs[i] = rn.Run(ops)
		})
	}
	wg.Wait()

	return errs
}
