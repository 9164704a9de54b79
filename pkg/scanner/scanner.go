// Package scanner runs one platform's extractor over that platform's
// configured events.
package scanner

import (
	"context"
	"fmt"
	"slices"
	"time"

	"golang.org/x/time/rate"

	"github.com/jmylchreest/ticketwatch/internal/logger"
	"github.com/jmylchreest/ticketwatch/pkg/extractor"
	"github.com/jmylchreest/ticketwatch/pkg/ticket"
)

// Event is one watched event page.
type Event struct {
	Name string `json:"name" yaml:"name" mapstructure:"name"`
	URL  string `json:"url" yaml:"url" mapstructure:"url"`
}

// Result holds the records produced for one event.
type Result struct {
	Event   Event
	Records []ticket.Record
}

// Options configures a Scanner.
type Options struct {
	// RequestGap is the minimum spacing between two event checks. Zero
	// disables spacing.
	RequestGap time.Duration
}

// Scanner checks every event of one platform, sequentially.
type Scanner struct {
	name      string
	events    []Event
	extractor extractor.Extractor
	limiter   *rate.Limiter
}

// New creates a scanner for platform name.
func New(name string, events []Event, ext extractor.Extractor, opts Options) *Scanner {
	limit := rate.Inf
	if opts.RequestGap > 0 {
		limit = rate.Every(opts.RequestGap)
	}
	return &Scanner{
		name:      name,
		events:    slices.Clone(events),
		extractor: ext,
		limiter:   rate.NewLimiter(limit, 1),
	}
}

// Name returns the platform name.
func (s *Scanner) Name() string {
	return s.name
}

// Events returns the configured events in order.
func (s *Scanner) Events() []Event {
	return slices.Clone(s.events)
}

// URL returns the purchase link for the named event. Duplicate names resolve
// to the last configured entry.
func (s *Scanner) URL(event string) (string, bool) {
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].Name == event {
			return s.events[i].URL, true
		}
	}
	return "", false
}

// Scan checks every event in configuration order. Every event gets a result;
// a failed or skipped check yields an empty record slice.
func (s *Scanner) Scan(ctx context.Context) []Result {
	log := logger.Platform(s.name)
	results := make([]Result, 0, len(s.events))

	for _, ev := range s.events {
		if err := s.limiter.Wait(ctx); err != nil {
			log.Debug("scan interrupted", "event", ev.Name, "error", err)
			results = append(results, Result{Event: ev, Records: []ticket.Record{}})
			continue
		}

		records := s.scanEvent(ctx, ev)
		log.Debug("event checked",
			"event", ev.Name,
			"records", len(records),
			"available", ticket.AnyAvailable(records))
		results = append(results, Result{Event: ev, Records: records})
	}

	return results
}

// ScanAll checks every event and keys the records by event name. Duplicate
// names are last-write-wins.
func (s *Scanner) ScanAll(ctx context.Context) map[string][]ticket.Record {
	out := make(map[string][]ticket.Record, len(s.events))
	for _, r := range s.Scan(ctx) {
		out[r.Event.Name] = r.Records
	}
	return out
}

// AvailableOnly returns only the events with at least one available record,
// keeping only the available records.
func (s *Scanner) AvailableOnly(ctx context.Context) map[string][]ticket.Record {
	out := make(map[string][]ticket.Record)
	for name, records := range s.ScanAll(ctx) {
		if available := ticket.FilterAvailable(records); len(available) > 0 {
			out[name] = available
		}
	}
	return out
}

// scanEvent runs the extractor for one event. A panic is recovered and
// recorded as an empty result.
func (s *Scanner) scanEvent(ctx context.Context, ev Event) (records []ticket.Record) {
	defer func() {
		if r := recover(); r != nil {
			logger.Platform(s.name).Error("event check failed",
				"event", ev.Name,
				"url", ev.URL,
				"error", fmt.Sprint(r))
			records = []ticket.Record{}
		}
	}()

	records = s.extractor.Extract(ctx, ev.URL)
	if records == nil {
		records = []ticket.Record{}
	}
	return records
}
