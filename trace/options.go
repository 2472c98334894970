package trace

import "time"

// Options configures RunConcurrent's worker pool; HistorySize is carried
// along but not applied (see below).
type Options struct {
	// MaxWorkers caps the number of goroutines the underlying pool keeps
	// idle between bursts of concurrent replays.
	MaxWorkers int

	// WorkerMaxAge is how long a pool worker lives, counted from its
	// creation, before it exits.
	WorkerMaxAge time.Duration

	// HistorySize is a history ring capacity for NewRunner. Neither
	// RunConcurrent nor NewRunner reads it; NewRunner takes its capacity as
	// an argument.
	HistorySize int
}

// DefaultOptions returns the default options to pass to RunConcurrent.
func DefaultOptions() Options {
	return Options{
		MaxWorkers:   16,
		WorkerMaxAge: time.Minute,
		HistorySize:  64,
	}
}
