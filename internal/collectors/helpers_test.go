package collectors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/poutila/doxstrux-sub002/internal/parser"
	"github.com/poutila/doxstrux-sub002/internal/warehouse"
)

// run tokenizes md, dispatches the collectors in strict mode and returns
// the results keyed by collector name.
func run(t *testing.T, md string, cs ...warehouse.Collector) map[string]any {
	t.Helper()
	src := parser.Normalize([]byte(md))
	toks := parser.NewMarkdownTokenizer().TokenizeString(src)
	wh, err := warehouse.New(toks, src, warehouse.Config{Strict: true})
	require.NoError(t, err)
	require.NoError(t, Register(wh, cs))
	failures, err := wh.Dispatch(context.Background())
	require.NoError(t, err)
	require.Empty(t, failures)
	return wh.Results()
}
