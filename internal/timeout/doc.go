// Package timeout bounds the execution time of a single unit of work.
//
// Two implementations share the Guard interface:
//
//   - Preemptive: the work runs on a watchdog goroutine and Run returns
//     ErrTimeout at the deadline, whether or not the work has finished.
//
//   - Cooperative: the work runs in the caller's goroutine; a timer cancels
//     its context and the overrun is reported when the work returns.
//
// Callers obtain a guard from Default or ForMode and never branch on the
// platform themselves.
package timeout
