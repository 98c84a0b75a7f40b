package warehouse

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/poutila/doxstrux-sub002/internal/timeout"
)

const maxContainerBits = 64

// registered is the dispatch-side record of one collector.
type registered struct {
	c      Collector
	name   string
	filter Filter
	mask   uint64

	// Per-pass state.
	quarantined bool
	calls       int
	elapsed     time.Duration
}

// TraceEntry is one collector invocation recorded when Config.Trace is set.
type TraceEntry struct {
	Collector  string `json:"collector"`
	TokenIndex int    `json:"token"`
}

// Timing is the time one collector spent on its tokens during the last
// pass. Calls counts OnToken invocations; tokens rejected by ShouldProcess
// add to Elapsed but not to Calls.
type Timing struct {
	Collector string        `json:"collector"`
	Calls     int           `json:"calls"`
	Elapsed   time.Duration `json:"elapsed"`
}

// Register adds c to the dispatch list. Registering the same collector
// twice is a no-op; identity is pointer identity for pointer-shaped
// collectors, and value collectors are never deduplicated.
func (w *Warehouse) Register(c Collector) error {
	if c == nil {
		return errors.New("register: nil collector")
	}
	if w.dispatching.Load() {
		w.reentered.Store(true)
		return fmt.Errorf("register %s: %w", c.Name(), ErrReentrant)
	}
	for _, rc := range w.collectors {
		if sameCollector(rc.c, c) {
			return nil
		}
	}
	name := c.Name()
	for _, rc := range w.collectors {
		if rc.name == name {
			return fmt.Errorf("register %s: %w", name, ErrDuplicateName)
		}
	}

	interest := c.Interest()

	ignore := normalizeTypes(interest.IgnoreInside, true)
	var newBits []string
	for _, container := range ignore {
		if _, ok := w.bits[container]; !ok {
			newBits = append(newBits, container)
		}
	}
	if len(w.bits)+len(newBits) > maxContainerBits {
		return fmt.Errorf("register %s: %w (%d)", name, ErrTooManyContainers, len(w.bits)+len(newBits))
	}
	var mask uint64
	for _, container := range newBits {
		w.bits[container] = uint(len(w.bits))
	}
	for _, container := range ignore {
		mask |= 1 << w.bits[container]
	}

	rc := &registered{c: c, name: name, mask: mask}
	if f, ok := c.(Filter); ok {
		rc.filter = f
	}
	pos := len(w.collectors)
	w.collectors = append(w.collectors, rc)
	for _, typ := range normalizeTypes(interest.Types, false) {
		w.routes[typ] = append(w.routes[typ], pos)
	}

	w.log.Debug("collector registered", "collector", name, "types", len(interest.Types), "ignore_mask", mask)
	return nil
}

// sameCollector compares by identity. Comparing arbitrary values with ==
// could panic on uncomparable types and would merge distinct collectors.
func sameCollector(a, b Collector) bool {
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}
	switch va.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	}
	return false
}

// normalizeTypes dedupes and sorts, so map-free callers get a fixed order.
func normalizeTypes(types []string, containers bool) []string {
	out := make([]string, 0, len(types))
	for _, t := range types {
		if containers {
			t = baseType(t)
		}
		if t != "" {
			out = append(out, t)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Dispatching reports whether a dispatch pass is in progress.
func (w *Warehouse) Dispatching() bool { return w.dispatching.Load() }

// Dispatch routes every token once to each interested collector, then
// finalizes all collectors in registration order. Collectors implementing
// Resetter are reset first, so every pass starts clean. Collector failures are
// recorded and returned; in strict mode the first one aborts the pass.
// Calling Dispatch from inside a collector fails with ErrReentrant and
// aborts the outer pass as well.
func (w *Warehouse) Dispatch(ctx context.Context) ([]*CollectorError, error) {
	if !w.dispatching.CompareAndSwap(false, true) {
		w.reentered.Store(true)
		w.log.Error("reentrant dispatch rejected")
		return nil, ErrReentrant
	}
	defer w.dispatching.Store(false)

	w.reentered.Store(false)
	w.failures = nil
	w.results = make(map[string]any, len(w.collectors))
	w.trace = nil
	for _, rc := range w.collectors {
		rc.quarantined, rc.calls, rc.elapsed = false, 0, 0
	}

	start := time.Now()
	if err := w.reset(ctx); err != nil {
		return w.Failures(), err
	}
	if err := w.pass(ctx); err != nil {
		return w.Failures(), err
	}
	if err := w.finalize(ctx); err != nil {
		return w.Failures(), err
	}

	w.log.Debug("dispatch complete",
		"tokens", len(w.tokens),
		"collectors", len(w.collectors),
		"failures", len(w.failures),
		"duration_us", time.Since(start).Microseconds(),
	)
	return w.Failures(), nil
}

// reset clears collector state left by a previous pass. A collector whose
// Reset fails sits out the rest of the pass.
func (w *Warehouse) reset(ctx context.Context) error {
	for _, rc := range w.collectors {
		r, ok := rc.c.(Resetter)
		if !ok {
			continue
		}
		err := w.cfg.Guard.Run(ctx, w.cfg.CollectorTimeout, func(context.Context) error {
			r.Reset()
			return nil
		})
		if w.reentered.Load() {
			return fmt.Errorf("collector %s reset: %w", rc.name, ErrReentrant)
		}
		if err == nil {
			continue
		}
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			return err
		}
		rc.quarantined = true
		if rerr := w.record(rc, -1, PhaseReset, err); rerr != nil {
			return rerr
		}
	}
	return nil
}

func (w *Warehouse) pass(ctx context.Context) error {
	var openMask uint64
	// Depth per container bit, so nested containers of one type keep the
	// bit set until the outermost closes.
	openCount := make([]int, len(w.bits))
	depth := 0

	for i := range w.tokens {
		if err := ctx.Err(); err != nil {
			return err
		}
		tok := &w.tokens[i]

		bit, tracked := uint(0), false
		if tok.Nesting != 0 && len(w.bits) > 0 {
			bit, tracked = w.bits[tok.Base()]
		}
		if tok.Nesting == 1 {
			if tracked && w.ix.pairs[i] >= 0 {
				openCount[bit]++
				openMask |= 1 << bit
			}
		} else if tok.Nesting == -1 {
			depth = max(depth-1, 0)
		}

		if route := w.routes[tok.Type]; len(route) > 0 {
			tc := TokenContext{Index: i, Token: tok, Parent: w.ix.parent[i], Depth: depth}
			for _, pos := range route {
				rc := w.collectors[pos]
				if rc.quarantined || openMask&rc.mask != 0 {
					continue
				}
				if err := w.invoke(ctx, rc, tc); err != nil {
					return err
				}
			}
		}

		if tok.Nesting == 1 {
			depth++
		} else if tok.Nesting == -1 && tracked && w.ix.pairsRev[i] >= 0 && openCount[bit] > 0 {
			openCount[bit]--
			if openCount[bit] == 0 {
				openMask &^= 1 << bit
			}
		}
	}
	return nil
}

// invoke runs one OnToken call under the guard. It returns an error only
// when the pass must stop.
func (w *Warehouse) invoke(ctx context.Context, rc *registered, tc TokenContext) error {
	if w.cfg.Trace {
		w.trace = append(w.trace, TraceEntry{Collector: rc.name, TokenIndex: tc.Index})
	}

	// Written by the guarded goroutine, which may outlive a timeout.
	var reached atomic.Bool
	start := time.Now()
	err := w.cfg.Guard.Run(ctx, w.cfg.CollectorTimeout, func(ctx context.Context) error {
		if rc.filter != nil && !rc.filter.ShouldProcess(tc) {
			return nil
		}
		reached.Store(true)
		return rc.c.OnToken(ctx, tc, w)
	})
	if reached.Load() {
		rc.calls++
	}
	rc.elapsed += time.Since(start)

	if w.reentered.Load() {
		w.log.Error("collector re-entered dispatch", "collector", rc.name, "token", tc.Index)
		return fmt.Errorf("collector %s at token %d: %w", rc.name, tc.Index, ErrReentrant)
	}
	if err == nil {
		return nil
	}
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return err
	}
	return w.record(rc, tc.Index, PhaseToken, err)
}

func (w *Warehouse) finalize(ctx context.Context) error {
	for _, rc := range w.collectors {
		if rc.quarantined {
			// Its abandoned call may still be touching collector state.
			continue
		}
		var res any
		err := w.cfg.Guard.Run(ctx, w.cfg.CollectorTimeout, func(context.Context) error {
			var ferr error
			res, ferr = rc.c.Finalize(w)
			return ferr
		})
		if w.reentered.Load() {
			return fmt.Errorf("collector %s finalize: %w", rc.name, ErrReentrant)
		}
		if err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				return err
			}
			if rerr := w.record(rc, -1, PhaseFinalize, err); rerr != nil {
				return rerr
			}
			continue
		}
		w.results[rc.name] = res
	}
	return nil
}

// record classifies and logs a collector failure. It returns the failure
// when strict mode requires aborting the pass.
func (w *Warehouse) record(rc *registered, idx int, phase Phase, err error) error {
	ce := &CollectorError{
		Collector:  rc.name,
		TokenIndex: idx,
		Phase:      phase,
		Kind:       FailureError,
		Err:        err,
	}
	var pe *timeout.PanicError
	switch {
	case errors.Is(err, timeout.ErrTimeout):
		ce.Kind = FailureTimeout
		if w.cfg.Guard.Preemptive() {
			rc.quarantined = true
		}
	case errors.As(err, &pe):
		ce.Kind = FailurePanic
		ce.Stack = pe.Stack
	}
	w.failures = append(w.failures, ce)

	w.log.Warn("collector failed",
		"collector", rc.name,
		"token", idx,
		"phase", phase,
		"kind", ce.Kind,
		"error", err,
	)
	if w.cfg.Strict {
		return ce
	}
	return nil
}

// Failures returns the failure log of the last dispatch.
func (w *Warehouse) Failures() []*CollectorError {
	return slices.Clone(w.failures)
}

// Results returns finalized results keyed by collector name. Collectors
// whose Finalize failed are absent.
func (w *Warehouse) Results() map[string]any {
	return maps.Clone(w.results)
}

// Collectors returns registered collector names in dispatch order.
func (w *Warehouse) Collectors() []string {
	names := make([]string, len(w.collectors))
	for i, rc := range w.collectors {
		names[i] = rc.name
	}
	return names
}

// Timings returns per-collector OnToken time for the last pass in
// registration order.
func (w *Warehouse) Timings() []Timing {
	out := make([]Timing, len(w.collectors))
	for i, rc := range w.collectors {
		out[i] = Timing{Collector: rc.name, Calls: rc.calls, Elapsed: rc.elapsed}
	}
	return out
}

// Trace returns the invocation trace of the last pass. Empty unless
// Config.Trace is set.
func (w *Warehouse) Trace() []TraceEntry {
	return slices.Clone(w.trace)
}

// TraceFingerprint hashes the invocation trace. Two passes over the same
// tokens with the same registrations produce the same fingerprint.
func (w *Warehouse) TraceFingerprint() uint64 {
	h := xxhash.New()
	var buf [8]byte
	for _, e := range w.trace {
		h.WriteString(e.Collector)
		binary.LittleEndian.PutUint64(buf[:], uint64(e.TokenIndex))
		h.Write(buf[:])
	}
	return h.Sum64()
}
