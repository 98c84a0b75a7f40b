package warehouse

import "context"

// Interest declares which tokens a collector wants.
type Interest struct {
	// Types lists token types routed to OnToken.
	Types []string
	// IgnoreInside lists container types ("table", "blockquote_open", ...)
	// whose contents are never routed to this collector. The container's own
	// open and close tokens count as inside.
	IgnoreInside []string
}

// TokenContext describes the token being dispatched.
type TokenContext struct {
	Index  int
	Token  *Token
	Parent int // -1 at top level
	Depth  int // number of enclosing open containers
}

// Collector extracts one kind of structured data from the token stream.
//
// OnToken may query the warehouse through its read-only accessors but must
// not call Dispatch or Register; doing so aborts the pass with ErrReentrant.
// Finalize runs once per dispatch, after the pass, in registration order.
// Collectors that accumulate state implement Resetter so that repeated
// dispatches on one warehouse yield the same results.
type Collector interface {
	Name() string
	Interest() Interest
	OnToken(ctx context.Context, tc TokenContext, wh *Warehouse) error
	Finalize(wh *Warehouse) (any, error)
}

// Filter is implemented by collectors that want a cheap pre-check before
// OnToken. Collectors that always process their tokens omit it.
type Filter interface {
	ShouldProcess(tc TokenContext) bool
}

// Resetter is implemented by collectors that keep state between tokens.
// Dispatch calls Reset on every registered Resetter, in registration order,
// before each pass. Reset must not retain anything handed out by a previous
// Finalize.
type Resetter interface {
	Reset()
}
