package sport

import (
	"sort"
	"strings"

	"github.com/oskarjolofsson/GSA1.0/internal/domain/entity"
)

const notSpecified = "Not specified"

// knownNotes are rendered first and always, in this order.
var knownNotes = []struct {
	key   string
	label string
}{
	{key: "shape", label: "Wanted ball shape"},
	{key: "height", label: "Wanted ball height"},
	{key: "misses", label: "Actual result"},
	{key: "extra", label: "Extra notes"},
}

// UserPrompt renders the per-request prompt. Notes are presented to the model
// as context to cross-check against the footage, never as ground truth.
func UserPrompt(notes entity.UserNotes) string {
	var b strings.Builder
	b.WriteString("Here are the golfer's own notes about this swing.\n")
	b.WriteString("Use them as context only. Do NOT assume they are correct.\n")
	b.WriteString("If they conflict with what you see, gently correct them.\n")
	b.WriteString("Never rank the golfer's assumptions above the video evidence.\n\n")
	b.WriteString("Golfer notes:\n")

	known := make(map[string]bool, len(knownNotes))
	for _, n := range knownNotes {
		known[n.key] = true
		writeNote(&b, n.label, notes[n.key])
	}

	var extra []string
	for k := range notes {
		if !known[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		writeNote(&b, k, notes[k])
	}
	return b.String()
}

func writeNote(b *strings.Builder, label, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		value = notSpecified
	}
	b.WriteString("- ")
	b.WriteString(label)
	b.WriteString(": ")
	b.WriteString(value)
	b.WriteString("\n")
}
