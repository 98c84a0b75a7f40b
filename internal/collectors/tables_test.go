package collectors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTables(t *testing.T) {
	md := "## Prices\n\n| item | cost |\n|:-----|-----:|\n| tea  | 2    |\n| cake | 4    |\n\n| only |\n|------|\n"
	res := run(t, md, NewTables())

	tables := res["tables"].([]Table)
	require.Len(t, tables, 2)

	tb := tables[0]
	assert.Equal(t, []string{"item", "cost"}, tb.Header)
	assert.Equal(t, []string{"left", "right"}, tb.Align)
	assert.Equal(t, [][]string{{"tea", "2"}, {"cake", "4"}}, tb.Rows)
	assert.Equal(t, 2, tb.StartLine)
	assert.Equal(t, 6, tb.EndLine)
	assert.Equal(t, "Prices", tb.Section)

	assert.Equal(t, []string{"only"}, tables[1].Header)
	assert.Nil(t, tables[1].Align)
	assert.Equal(t, [][]string{}, tables[1].Rows)
}
