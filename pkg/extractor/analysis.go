package extractor

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/titanous/json5"

	"github.com/jmylchreest/ticketwatch/internal/logger"
)

// AreaEntry is one ticket area read from the rendered page. A nil field means
// the element was not found at all.
type AreaEntry struct {
	Name   *string `json:"name"`
	Status *string `json:"status"`
}

// PageSnapshot is the raw material the analysis strategies work from. It is
// collected by SnapshotScript inside the browser.
type PageSnapshot struct {
	// Scripts holds the text of every script element mentioning jsonData.
	Scripts []string `json:"scripts"`

	// ShadowAreas holds area entries found inside shadow roots.
	ShadowAreas []AreaEntry `json:"shadowAreas"`

	// TableAreas holds area rows from the area table.
	TableAreas []AreaEntry `json:"tableAreas"`
}

// AnalysisOptions tunes the verdict rules.
type AnalysisOptions struct {
	// SoldOutAmount is the AMOUNT value that marks a sold-out area.
	SoldOutAmount string

	// DisabledColor is the BACKGROUND_COLOR value that marks a disabled area.
	DisabledColor string

	// SoldOutSynonyms are substrings that mark a DOM status as unavailable.
	SoldOutSynonyms []string

	// MaxListedAreas caps the area names listed in the message.
	MaxListedAreas int
}

// DefaultAnalysisOptions returns the rules used for the area page.
func DefaultAnalysisOptions() AnalysisOptions {
	return AnalysisOptions{
		SoldOutAmount:   "已售完",
		DisabledColor:   "disabled",
		SoldOutSynonyms: []string{"售完", "Sold out", "disabled"},
		MaxListedAreas:  5,
	}
}

func (o AnalysisOptions) withDefaults() AnalysisOptions {
	def := DefaultAnalysisOptions()
	if o.SoldOutAmount == "" {
		o.SoldOutAmount = def.SoldOutAmount
	}
	if o.DisabledColor == "" {
		o.DisabledColor = def.DisabledColor
	}
	if len(o.SoldOutSynonyms) == 0 {
		o.SoldOutSynonyms = def.SoldOutSynonyms
	}
	if o.MaxListedAreas <= 0 {
		o.MaxListedAreas = def.MaxListedAreas
	}
	return o
}

// Strategy names reported in Verdict.Strategy.
const (
	StrategyJSON   = "json"
	StrategyShadow = "shadow"
	StrategyTable  = "table"
	StrategyNone   = "none"
)

// Verdict messages.
const (
	MessageUnknownArea   = "unknown area"
	MessageUnknownStatus = "unknown status"
	MessageUndetermined  = "unable to determine ticket status"
	messageAvailable     = "tickets available! areas: "
	messageAllSoldOut    = "all areas sold out"
	messageShadowSoldOut = "shadow DOM analysis: all areas sold out"
	messageTableSoldOut  = "table analysis: all areas sold out"
)

// Verdict is the outcome of analysing one page snapshot.
type Verdict struct {
	Strategy  string
	Available bool
	Areas     []string
	Message   string
}

// jsonDataPattern captures the single-quoted array assigned to jsonData.
var jsonDataPattern = regexp.MustCompile(`(?s)jsonData\s*=\s*'(\[.*?\])';`)

var errNoJSONData = errors.New("no jsonData assignment found")

type strategy struct {
	name string
	fn   func(PageSnapshot, AnalysisOptions) (Verdict, bool)
}

// strategies are tried in order; the first one that can decide wins.
var strategies = []strategy{
	{StrategyJSON, analyzeJSON},
	{StrategyShadow, analyzeShadow},
	{StrategyTable, analyzeTable},
}

// Analyze runs the strategy chain over snap.
func Analyze(snap PageSnapshot, opts AnalysisOptions) Verdict {
	opts = opts.withDefaults()

	for _, s := range strategies {
		if v, ok := s.fn(snap, opts); ok {
			v.Strategy = s.name
			logger.Debug("area analysis decided",
				"strategy", s.name,
				"available", v.Available,
				"areas", len(v.Areas))
			return v
		}
		logger.Debug("area analysis strategy not applicable", "strategy", s.name)
	}

	return Verdict{Strategy: StrategyNone, Message: MessageUndetermined}
}

// analyzeJSON decides from the embedded jsonData array. A parsed array, even
// an empty one, is decisive.
func analyzeJSON(snap PageSnapshot, opts AnalysisOptions) (Verdict, bool) {
	for _, script := range snap.Scripts {
		entries, err := parseJSONData(script)
		if err != nil {
			if !errors.Is(err, errNoJSONData) {
				logger.Debug("jsonData rejected", "error", err)
			}
			continue
		}

		var areas []string
		for _, entry := range entries {
			if stringField(entry, "AMOUNT") == opts.SoldOutAmount ||
				stringField(entry, "BACKGROUND_COLOR") == opts.DisabledColor {
				continue
			}
			name := stringField(entry, "NAME")
			if name == "" {
				name = MessageUnknownArea
			}
			areas = append(areas, name)
		}
		return verdictFor(areas, messageAllSoldOut, opts), true
	}
	return Verdict{}, false
}

// parseJSONData extracts and decodes the jsonData array from script text.
func parseJSONData(script string) ([]map[string]any, error) {
	match := jsonDataPattern.FindStringSubmatch(script)
	if match == nil {
		return nil, errNoJSONData
	}

	raw := match[1]
	var entries []map[string]any
	if err := json5.Unmarshal([]byte(raw), &entries); err == nil {
		return entries, nil
	}

	// The array sits inside a single-quoted JS string, so quotes may arrive
	// escaped.
	unescaped := strings.NewReplacer(`\"`, `"`, `\'`, `'`).Replace(raw)
	if err := json5.Unmarshal([]byte(unescaped), &entries); err != nil {
		return nil, fmt.Errorf("failed to decode jsonData: %w", err)
	}
	return entries, nil
}

func analyzeShadow(snap PageSnapshot, opts AnalysisOptions) (Verdict, bool) {
	return analyzeAreas(snap.ShadowAreas, messageShadowSoldOut, opts)
}

func analyzeTable(snap PageSnapshot, opts AnalysisOptions) (Verdict, bool) {
	return analyzeAreas(snap.TableAreas, messageTableSoldOut, opts)
}

// analyzeAreas applies the synonym rule to DOM entries. It only decides when
// at least one entry was found.
func analyzeAreas(entries []AreaEntry, soldOutMessage string, opts AnalysisOptions) (Verdict, bool) {
	if len(entries) == 0 {
		return Verdict{}, false
	}

	var areas []string
	for _, e := range entries {
		status := MessageUnknownStatus
		if e.Status != nil {
			status = *e.Status
		}
		if containsAny(status, opts.SoldOutSynonyms) {
			continue
		}
		name := MessageUnknownArea
		if e.Name != nil {
			name = *e.Name
		}
		areas = append(areas, name)
	}
	return verdictFor(areas, soldOutMessage, opts), true
}

func verdictFor(areas []string, soldOutMessage string, opts AnalysisOptions) Verdict {
	if len(areas) == 0 {
		return Verdict{Message: soldOutMessage}
	}
	return Verdict{
		Available: true,
		Areas:     areas,
		Message:   availableMessage(areas, opts.MaxListedAreas),
	}
}

// availableMessage lists up to limit area names, with "..." when truncated.
func availableMessage(areas []string, limit int) string {
	listed := areas
	if len(listed) > limit {
		listed = listed[:limit]
	}
	msg := messageAvailable + strings.Join(listed, ", ")
	if len(areas) > limit {
		msg += "..."
	}
	return msg
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// stringField renders entry[key] as text. Missing keys yield "".
func stringField(entry map[string]any, key string) string {
	switch v := entry[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
