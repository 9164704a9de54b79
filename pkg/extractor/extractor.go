// Package extractor turns platform pages into normalized ticket records.
//
// Each implementation reverse-engineers one platform's data representation:
// TableExtractor scrapes HTML table rows, InlineJSONExtractor parses a
// JavaScript object literal embedded in a script tag, and ShadowDOMExtractor
// drives a browser to read data hidden inside closed shadow roots.
//
// Extractors never return errors. Faults are folded into placeholder records
// (or an empty slice for TableExtractor) so one event's failure cannot abort
// the scan of the others.
package extractor

import (
	"context"

	"github.com/jmylchreest/ticketwatch/pkg/ticket"
)

// Extractor checks one event page.
type Extractor interface {
	// Extract checks the page at url and returns its ticket records.
	Extract(ctx context.Context, url string) []ticket.Record

	// Name returns the extractor identifier.
	Name() string
}

// Func adapts a function to the Extractor interface.
type Func struct {
	ID string
	Fn func(ctx context.Context, url string) []ticket.Record
}

// Extract calls f.Fn.
func (f Func) Extract(ctx context.Context, url string) []ticket.Record {
	return f.Fn(ctx, url)
}

// Name returns f.ID.
func (f Func) Name() string {
	return f.ID
}
