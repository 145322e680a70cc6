// Package session owns per-conversation state: message history, the
// symptom log, and the per-turn staging that keeps failed turns from
// leaving partial writes behind.
package session

import (
	"fmt"
	"strings"
	"time"
)

// SymptomEntry is one logged symptom. Entries are immutable once
// appended; log order is insertion order is chronological order.
type SymptomEntry struct {
	Timestamp   time.Time `json:"timestamp"`
	Description string    `json:"description"`
}

// String renders the entry the way it appears in tool output.
func (e SymptomEntry) String() string {
	return fmt.Sprintf("%s: %s", e.Timestamp.Format("2006-01-02 15:04:05"), e.Description)
}

// FormatSymptoms renders an ordered log for the model to relay.
// An empty log gets an explicit message rather than empty text.
func FormatSymptoms(entries []SymptomEntry) string {
	if len(entries) == 0 {
		return "No symptoms logged yet."
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("Symptom log (%d entries):\n", len(entries)))
	for _, e := range entries {
		b.WriteString("- ")
		b.WriteString(e.String())
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
