package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// defaultColumnWidth caps columns that do not set their own width.
const defaultColumnWidth = 60

// column describes one table column. Numeric columns set numeric to align
// right; width 0 uses defaultColumnWidth.
type column struct {
	title   string
	numeric bool
	width   int
}

// renderTable draws rows under cols. Short rows are padded and extra cells
// are dropped.
func renderTable(cols []column, rows [][]string) string {
	if len(cols) == 0 {
		return ""
	}
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, 0, len(cols))
	configs := make([]table.ColumnConfig, 0, len(cols))
	for i, col := range cols {
		header = append(header, col.title)
		cfg := table.ColumnConfig{
			Number:           i + 1,
			Align:            text.AlignLeft,
			AlignHeader:      text.AlignLeft,
			WidthMax:         col.width,
			WidthMaxEnforcer: text.Trim,
		}
		if col.numeric {
			cfg.Align = text.AlignRight
		}
		if cfg.WidthMax <= 0 {
			cfg.WidthMax = defaultColumnWidth
		}
		configs = append(configs, cfg)
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, cells := range rows {
		row := make(table.Row, len(cols))
		for i := range row {
			row[i] = ""
			if i < len(cells) {
				row[i] = cells[i]
			}
		}
		tw.AppendRow(row)
	}
	return tw.Render()
}
