package notifier

import (
	"fmt"
	"strings"

	"github.com/jmylchreest/ticketwatch/pkg/ticket"
)

// MaxListedRecords caps the ticket lines in one message.
const MaxListedRecords = 3

// Message is one event's availability announcement.
type Message struct {
	Platform string
	Event    string
	Records  []ticket.Record
	// URL is the purchase link; omitted when empty.
	URL string
}

// Format renders m as a chat message.
func Format(m Message) string {
	lines := []string{
		fmt.Sprintf("🎟️ **%s tickets available!**", strings.ToUpper(m.Platform)),
		fmt.Sprintf("**Event: %s**", m.Event),
	}

	for i, r := range m.Records {
		if i == MaxListedRecords {
			break
		}
		lines = append(lines, fmt.Sprintf("• %s: %s", r.Name, r.Status))
	}
	if extra := len(m.Records) - MaxListedRecords; extra > 0 {
		lines = append(lines, fmt.Sprintf("• ...+%d more available", extra))
	}

	if m.URL != "" {
		lines = append(lines, "\n🔗 **Purchase link:**", m.URL)
	}

	return strings.Join(lines, "\n")
}
