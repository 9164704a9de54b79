// Package ticket defines the normalized availability record produced by every
// site extractor.
package ticket

import "fmt"

// Record is the result of one availability check for one ticket, event or
// ticket area. Records are built fresh on every scan and never mutated after
// construction.
type Record struct {
	// Name is the event or ticket-area label.
	Name string `json:"name" yaml:"name"`

	// Status is the human-readable status in the platform's vocabulary.
	// It is never empty.
	Status string `json:"status" yaml:"status"`

	// Date is the optional human-readable date/time.
	Date string `json:"date,omitempty" yaml:"date,omitempty"`

	// Price is the optional price text.
	Price string `json:"price,omitempty" yaml:"price,omitempty"`

	// Available is true iff this record should trigger a notification.
	// Extractors always set it explicitly.
	Available bool `json:"available" yaml:"available"`
}

// Placeholder names used by the error and obstruction records.
const (
	NameError         = "error"
	NameUnknownEvent  = "unknown event"
	NameSystemWarning = "system warning"
)

// Failed builds the placeholder record for a transport or automation fault.
func Failed(cause error) Record {
	return Record{
		Name:      NameError,
		Status:    fmt.Sprintf("check failed: %v", cause),
		Available: false,
	}
}

// Unavailable builds a record that is explicitly not purchasable.
func Unavailable(name, status string) Record {
	return Record{Name: name, Status: status, Available: false}
}

// AnyAvailable reports whether at least one record is available.
func AnyAvailable(records []Record) bool {
	for _, r := range records {
		if r.Available {
			return true
		}
	}
	return false
}

// FilterAvailable returns only the available records, preserving order.
// It returns nil when none are available.
func FilterAvailable(records []Record) []Record {
	var out []Record
	for _, r := range records {
		if r.Available {
			out = append(out, r)
		}
	}
	return out
}
