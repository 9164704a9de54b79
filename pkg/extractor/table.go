package extractor

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jmylchreest/ticketwatch/internal/logger"
	"github.com/jmylchreest/ticketwatch/pkg/fetcher"
	"github.com/jmylchreest/ticketwatch/pkg/ticket"
)

// rowSelector matches the event rows: both classes present, in any order.
const rowSelector = "tr.gridc.fcTxt"

// StatusUnknown is used when a row's status cell is empty.
const StatusUnknown = "Unknown"

// TableOptions configures TableExtractor.
type TableOptions struct {
	// SkipHeaderRow drops the first matching row.
	SkipHeaderRow bool

	// SoldOutStatuses is the closed list of exact status texts that mean
	// "not available". Every other status counts as available.
	SoldOutStatuses []string
}

// DefaultTableOptions returns the options for the event-list table.
func DefaultTableOptions() TableOptions {
	return TableOptions{
		SoldOutStatuses: []string{"Sold out", "Find ticketsNo tickets available"},
	}
}

// TableExtractor scrapes event rows out of a static HTML table.
type TableExtractor struct {
	fetcher fetcher.Fetcher
	opts    TableOptions
}

// NewTableExtractor creates a table extractor. An empty SoldOutStatuses list
// falls back to the defaults.
func NewTableExtractor(f fetcher.Fetcher, opts TableOptions) *TableExtractor {
	if len(opts.SoldOutStatuses) == 0 {
		opts.SoldOutStatuses = DefaultTableOptions().SoldOutStatuses
	}
	return &TableExtractor{fetcher: f, opts: opts}
}

// Name returns the extractor identifier.
func (e *TableExtractor) Name() string {
	return "table"
}

// Extract fetches url and parses its event rows. Any fetch or parse fault
// yields an empty result.
func (e *TableExtractor) Extract(ctx context.Context, url string) []ticket.Record {
	page, err := e.fetcher.Fetch(ctx, url)
	if err != nil {
		logger.Warn("table page fetch failed", "url", url, "error", err)
		return []ticket.Record{}
	}

	records, err := ParseTable(page.HTML, e.opts)
	if err != nil {
		logger.Warn("table page parse failed", "url", url, "error", err)
		return []ticket.Record{}
	}

	logger.Debug("table page parsed", "url", url, "records", len(records))
	return records
}

// ParseTable extracts one record per qualifying row. Rows with fewer than
// four cells are skipped silently.
func ParseTable(markup string, opts TableOptions) ([]ticket.Record, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("failed to parse markup: %w", err)
	}

	soldOut := opts.SoldOutStatuses
	if len(soldOut) == 0 {
		soldOut = DefaultTableOptions().SoldOutStatuses
	}

	records := make([]ticket.Record, 0)
	doc.Find(rowSelector).Each(func(i int, row *goquery.Selection) {
		if i == 0 && opts.SkipHeaderRow {
			return
		}

		cells := row.ChildrenFiltered("td")
		if cells.Length() < 4 {
			return
		}

		status := strings.TrimSpace(cells.Eq(3).Text())
		available := !slices.Contains(soldOut, status)
		if status == "" {
			status = StatusUnknown
			available = false
		}

		records = append(records, ticket.Record{
			Name:      strings.TrimSpace(cells.Eq(1).Text()),
			Status:    status,
			Date:      strings.TrimSpace(cells.Eq(0).Text()),
			Available: available,
		})
	})

	return records, nil
}
