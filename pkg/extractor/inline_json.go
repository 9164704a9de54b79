package extractor

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/titanous/json5"

	"github.com/jmylchreest/ticketwatch/internal/logger"
	"github.com/jmylchreest/ticketwatch/pkg/fetcher"
	"github.com/jmylchreest/ticketwatch/pkg/ticket"
)

// inventoryMarker identifies the script that carries the inventory literal.
const inventoryMarker = "window.inventory"

// inventoryPattern captures the object literal assigned to window.inventory,
// up to the first "};".
var inventoryPattern = regexp.MustCompile(`(?s)window\.inventory\s*=\s*(\{.*?\});`)

// Register status codes published by the event page.
const (
	RegisterOutOfStock = "OUT_OF_STOCK"
	RegisterSoldOut    = "SOLD_OUT"
)

// Statuses reported by InlineJSONExtractor.
const (
	StatusInfoNotFound = "ticket info not found"
	StatusUnparseable  = "unable to parse ticket info"
	StatusNotYetOnSale = "currently unavailable"
	StatusSoldOut      = "sold out"
	StatusPurchasable  = "currently purchasable"
)

var errNoInventoryField = errors.New("inventory.registerStatus missing or not a string")

// InlineJSONExtractor reads the register status embedded as a JavaScript
// object literal in the event page.
type InlineJSONExtractor struct {
	fetcher fetcher.Fetcher
}

// NewInlineJSONExtractor creates an inline-JSON extractor.
func NewInlineJSONExtractor(f fetcher.Fetcher) *InlineJSONExtractor {
	return &InlineJSONExtractor{fetcher: f}
}

// Name returns the extractor identifier.
func (e *InlineJSONExtractor) Name() string {
	return "inline-json"
}

// Extract fetches url and returns exactly one record describing the event.
func (e *InlineJSONExtractor) Extract(ctx context.Context, url string) []ticket.Record {
	page, err := e.fetcher.Fetch(ctx, url)
	if err != nil {
		logger.Warn("event page fetch failed", "url", url, "error", err)
		return []ticket.Record{ticket.Failed(err)}
	}

	rec := ParseInventory(page.HTML)
	logger.Debug("event page parsed", "url", url, "name", rec.Name, "status", rec.Status)
	return []ticket.Record{rec}
}

// ParseInventory derives the event record from the page markup.
func ParseInventory(markup string) ticket.Record {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return ticket.Failed(fmt.Errorf("failed to parse markup: %w", err))
	}

	var source string
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		if strings.Contains(text, inventoryMarker) {
			source = text
			return false
		}
		return true
	})
	if source == "" {
		return ticket.Unavailable(ticket.NameUnknownEvent, StatusInfoNotFound)
	}

	match := inventoryPattern.FindStringSubmatch(source)
	if match == nil {
		return ticket.Unavailable(ticket.NameUnknownEvent, StatusUnparseable)
	}

	status, err := registerStatus(match[1])
	if err != nil {
		logger.Debug("inventory literal rejected", "error", err)
		return ticket.Unavailable(ticket.NameUnknownEvent, StatusUnparseable)
	}

	name := strings.TrimSpace(doc.Find("title").First().Text())
	if name == "" {
		name = ticket.NameUnknownEvent
	}

	switch status {
	case RegisterOutOfStock:
		return ticket.Unavailable(name, StatusNotYetOnSale)
	case RegisterSoldOut:
		return ticket.Unavailable(name, StatusSoldOut)
	default:
		return ticket.Record{Name: name, Status: StatusPurchasable, Available: true}
	}
}

// registerStatus decodes the literal and returns inventory.registerStatus.
func registerStatus(literal string) (string, error) {
	var doc map[string]any
	if err := json5.Unmarshal([]byte(literal), &doc); err != nil {
		return "", fmt.Errorf("failed to decode inventory: %w", err)
	}

	inventory, ok := doc["inventory"].(map[string]any)
	if !ok {
		return "", errNoInventoryField
	}
	status, ok := inventory["registerStatus"].(string)
	if !ok {
		return "", errNoInventoryField
	}
	return status, nil
}
