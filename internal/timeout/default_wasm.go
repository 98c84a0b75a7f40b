//go:build js || wasip1

package timeout

// Default returns the cooperative guard. Goroutines on this platform are only
// rescheduled at yield points, so a watchdog cannot interrupt CPU-bound work.
func Default() Guard { return Cooperative{} }
