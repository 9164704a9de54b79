package output

import (
	"bufio"
	"encoding/json"
	"io"

	"github.com/jmylchreest/ticketwatch/pkg/ticket"
)

// JSONWriter writes reports as one JSON document.
type JSONWriter struct {
	w       *bufio.Writer
	pretty  bool
	indent  string
	reports []Report
}

// NewJSONWriter creates a JSON writer.
func NewJSONWriter(w io.Writer, pretty bool, indent string) *JSONWriter {
	return &JSONWriter{
		w:       bufio.NewWriter(w),
		pretty:  pretty,
		indent:  indent,
		reports: make([]Report, 0),
	}
}

// Write buffers a report.
func (w *JSONWriter) Write(r Report) error {
	w.reports = append(w.reports, r)
	return nil
}

// Flush writes the buffered reports. A single report is written as an
// object, several as an array.
func (w *JSONWriter) Flush() error {
	if len(w.reports) == 0 {
		return w.w.Flush()
	}

	var doc any = w.reports
	if len(w.reports) == 1 {
		doc = w.reports[0]
	}

	var output []byte
	var err error
	if w.pretty {
		output, err = json.MarshalIndent(doc, "", w.indent)
	} else {
		output, err = json.Marshal(doc)
	}
	if err != nil {
		return err
	}

	w.reports = w.reports[:0]
	if _, err := w.w.Write(output); err != nil {
		return err
	}
	if _, err := w.w.WriteString("\n"); err != nil {
		return err
	}

	return w.w.Flush()
}

// Close flushes the writer.
func (w *JSONWriter) Close() error {
	return w.Flush()
}

// JSONLWriter writes one JSON line per record, tagged with its platform and
// URL so lines can be grepped and streamed.
type JSONLWriter struct {
	w *bufio.Writer
}

type recordLine struct {
	Platform string `json:"platform"`
	Event    string `json:"event,omitempty"`
	URL      string `json:"url"`
	ticket.Record
}

// NewJSONLWriter creates a JSONL writer.
func NewJSONLWriter(w io.Writer) *JSONLWriter {
	return &JSONLWriter{
		w: bufio.NewWriter(w),
	}
}

// Write writes each record of r as a JSON line.
func (w *JSONLWriter) Write(r Report) error {
	for _, rec := range r.Records {
		output, err := json.Marshal(recordLine{
			Platform: r.Platform,
			Event:    r.Event,
			URL:      r.URL,
			Record:   rec,
		})
		if err != nil {
			return err
		}
		if _, err := w.w.Write(output); err != nil {
			return err
		}
		if _, err := w.w.WriteString("\n"); err != nil {
			return err
		}
	}

	return w.w.Flush()
}

// Flush flushes the buffer.
func (w *JSONLWriter) Flush() error {
	return w.w.Flush()
}

// Close flushes the writer.
func (w *JSONLWriter) Close() error {
	return w.Flush()
}
