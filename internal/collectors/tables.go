package collectors

import (
	"context"

	"github.com/poutila/doxstrux-sub002/internal/warehouse"
)

// Table is one table with its header and body cells.
type Table struct {
	StartLine int        `json:"start_line"`
	EndLine   int        `json:"end_line"`
	Header    []string   `json:"header"`
	Align     []string   `json:"align,omitempty"`
	Rows      [][]string `json:"rows"`
	Section   string     `json:"section,omitempty"`
}

// Tables collects tables by walking each table's token range once.
type Tables struct {
	items []Table
}

func NewTables() *Tables { return &Tables{} }

func (t *Tables) Name() string { return "tables" }

func (t *Tables) Interest() warehouse.Interest {
	return warehouse.Interest{Types: []string{"table_open"}}
}

func (t *Tables) OnToken(ctx context.Context, tc warehouse.TokenContext, wh *warehouse.Warehouse) error {
	end, ok := wh.MatchingClose(tc.Index)
	if !ok {
		return nil
	}
	table := Table{StartLine: lineOf(wh, tc.Index), EndLine: -1}
	if tc.Token.Lines != nil {
		table.EndLine = tc.Token.Lines.End
	}

	var row []string
	inHead := false
	aligned := false
	for j := tc.Index + 1; j < end; j++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		tok := wh.TokenAt(j)
		switch tok.Type {
		case "table_open":
			// Nested tables are collected on their own.
			if skip, ok := wh.MatchingClose(j); ok {
				j = skip
			}
		case "thead_open":
			inHead = true
		case "thead_close":
			inHead = false
		case "tr_open":
			row = []string{}
		case "tr_close":
			if inHead && table.Header == nil {
				table.Header = row
			} else {
				table.Rows = append(table.Rows, row)
			}
			row = nil
		case "th_open", "td_open":
			align, _ := tok.Attr("align")
			if inHead {
				table.Align = append(table.Align, align)
				aligned = aligned || align != ""
			}
			cell := ""
			if next := wh.TokenAt(j + 1); next != nil && next.Type == "inline" {
				cell = next.Content
			}
			row = append(row, cell)
		}
	}
	if !aligned {
		table.Align = nil
	}
	if table.Header == nil {
		table.Header = []string{}
	}
	if table.Rows == nil {
		table.Rows = [][]string{}
	}
	_, table.Section = sectionOf(wh, table.StartLine)
	t.items = append(t.items, table)
	return nil
}

func (t *Tables) Reset() { t.items = nil }

func (t *Tables) Finalize(*warehouse.Warehouse) (any, error) {
	if t.items == nil {
		return []Table{}, nil
	}
	return t.items, nil
}
