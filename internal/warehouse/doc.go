// Package warehouse indexes a flat token stream once and routes each token
// to the collectors interested in it.
//
// # Building
//
// New admits a document against the configured token and byte ceilings,
// canonicalizes every raw token into a primitive Token exactly once, and
// makes a single forward pass producing:
//
//   - type -> token indices
//   - open/close pair maps in both directions
//   - a parent map (a close token's parent is its own open token)
//   - the section table, searchable by line in O(log n)
//   - the fenced block inventory
//
// The children map is derived from the parent map on first use.
//
// # Dispatch
//
// Collectors declare the token types they want and the container types they
// never want to see inside. Dispatch walks the tokens once, keeping a bitmask
// of open ignored containers so the skip test is a single AND per collector.
// Each callback runs under a timeout.Guard with panic recovery; failures are
// recorded as *CollectorError and dispatch moves on, unless Config.Strict is
// set. Collector invocation order depends only on the token sequence and the
// order of Register calls.
//
// Usage:
//
//	wh, err := warehouse.New(tokens, text, warehouse.DefaultConfig())
//	if err != nil {
//	    // errors.Is(err, warehouse.ErrAdmission)
//	}
//	_ = wh.Register(links)
//	failures, err := wh.Dispatch(ctx)
//	results := wh.Results()
package warehouse
