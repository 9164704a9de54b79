package output

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// TableWriter renders reports as a terminal table, one row per record.
type TableWriter struct {
	t    table.Writer
	rows int
}

// NewTableWriter creates a table writer.
func NewTableWriter(w io.Writer) *TableWriter {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Platform", "Event", "Name", "Date", "Status", "Available"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Status", WidthMax: 60},
		{Name: "Available", Align: text.AlignCenter},
	})
	return &TableWriter{t: t}
}

// Write appends a row per record of r.
func (w *TableWriter) Write(r Report) error {
	event := r.Event
	if event == "" {
		event = r.URL
	}
	for _, rec := range r.Records {
		available := "no"
		if rec.Available {
			available = "yes"
		}
		w.t.AppendRow(table.Row{r.Platform, event, rec.Name, rec.Date, rec.Status, available})
		w.rows++
	}
	return nil
}

// Flush renders the table and resets it.
func (w *TableWriter) Flush() error {
	if w.rows == 0 {
		return nil
	}
	w.t.Render()
	w.t.ResetRows()
	w.rows = 0
	return nil
}

// Close renders any pending rows.
func (w *TableWriter) Close() error {
	return w.Flush()
}
