//go:build !js && !wasip1

package timeout

// Default returns the preemptive guard; the Go runtime preempts goroutines
// asynchronously on this platform.
func Default() Guard { return Preemptive{} }
