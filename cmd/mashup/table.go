package main

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	return renderTableWithFooter(headers, rows, nil, aligns)
}

// renderTableWithFooter pads short rows to the header width and right-aligns
// the columns marked alignRight.
func renderTableWithFooter(headers []string, rows [][]string, footer []string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	toRow := func(cells []string) table.Row {
		row := make(table.Row, columns)
		for i := range row {
			row[i] = ""
			if i < len(cells) {
				row[i] = cells[i]
			}
		}
		return row
	}

	style := table.StyleRounded
	style.Format.Header = text.FormatDefault
	style.Format.Footer = text.FormatDefault

	tw := table.NewWriter()
	tw.SetStyle(style)
	tw.AppendHeader(toRow(headers))
	for _, cells := range rows {
		tw.AppendRow(toRow(cells))
	}
	if len(footer) > 0 {
		tw.AppendFooter(toRow(footer))
	}

	configs := make([]table.ColumnConfig, columns)
	for i := range configs {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs[i] = table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft, AlignFooter: align}
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}

// renderWorkspaceTable lists leftover request workspaces with their age
// relative to now and a size total.
func renderWorkspaceTable(workspaces []workspaceRow, now time.Time) string {
	rows := make([][]string, 0, len(workspaces))
	var total int64
	for _, ws := range workspaces {
		total += ws.Size
		rows = append(rows, []string{
			ws.Name,
			now.Sub(ws.ModTime).Round(time.Second).String(),
			formatMiB(ws.Size),
		})
	}
	footer := []string{fmt.Sprintf("%d workspace(s)", len(workspaces)), "", formatMiB(total)}
	return renderTableWithFooter([]string{"Workspace", "Age", "Size"}, rows, footer, []columnAlignment{alignLeft, alignRight, alignRight})
}

func formatMiB(size int64) string {
	return fmt.Sprintf("%.2f MiB", float64(size)/(1024*1024))
}
