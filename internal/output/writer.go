// Package output renders check reports for the one-shot check command.
package output

import (
	"fmt"
	"io"
	"time"

	"github.com/jmylchreest/ticketwatch/pkg/ticket"
)

// Format represents output format types.
type Format string

const (
	FormatJSON  Format = "json"
	FormatJSONL Format = "jsonl"
	FormatYAML  Format = "yaml"
	FormatTable Format = "table"
)

// Formats lists the supported formats, for flag help.
var Formats = []Format{FormatJSON, FormatJSONL, FormatYAML, FormatTable}

// Report is the outcome of checking one event page.
type Report struct {
	Platform  string          `json:"platform" yaml:"platform"`
	Event     string          `json:"event,omitempty" yaml:"event,omitempty"`
	URL       string          `json:"url" yaml:"url"`
	CheckedAt time.Time       `json:"checked_at" yaml:"checked_at"`
	Available bool            `json:"available" yaml:"available"`
	Records   []ticket.Record `json:"records" yaml:"records"`
}

// NewReport builds a report, deriving Available from the records.
func NewReport(platform, event, url string, records []ticket.Record) Report {
	if records == nil {
		records = []ticket.Record{}
	}
	return Report{
		Platform:  platform,
		Event:     event,
		URL:       url,
		CheckedAt: time.Now().UTC(),
		Available: ticket.AnyAvailable(records),
		Records:   records,
	}
}

// Writer handles report serialization.
type Writer interface {
	// Write outputs or buffers a single report.
	Write(r Report) error

	// Flush ensures all data is written.
	Flush() error

	// Close flushes and releases resources.
	Close() error
}

// WriterOption configures a writer.
type WriterOption func(*writerConfig)

type writerConfig struct {
	pretty bool
	indent string
}

// WithPretty enables pretty-printing.
func WithPretty(enabled bool) WriterOption {
	return func(c *writerConfig) {
		c.pretty = enabled
	}
}

// WithIndent sets the indentation string.
func WithIndent(indent string) WriterOption {
	return func(c *writerConfig) {
		c.indent = indent
	}
}

// NewWriter creates a writer for the specified format.
func NewWriter(w io.Writer, format Format, opts ...WriterOption) (Writer, error) {
	cfg := &writerConfig{
		pretty: true,
		indent: "  ",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	switch format {
	case FormatJSON:
		return NewJSONWriter(w, cfg.pretty, cfg.indent), nil
	case FormatJSONL:
		return NewJSONLWriter(w), nil
	case FormatYAML:
		return NewYAMLWriter(w), nil
	case FormatTable:
		return NewTableWriter(w), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}
