package journal

import (
	"fmt"
	"strings"
	"time"
)

// FormatCommandOrg renders one command record as an org-mode entry.
func FormatCommandOrg(c CommandRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "** Command: %s (%s)\n", c.Name, shortID(c.ID))
	b.WriteString(":PROPERTIES:\n")
	fmt.Fprintf(&b, ":ID: %s\n", c.ID)
	fmt.Fprintf(&b, ":TIME: %s\n", c.Time.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, ":PAYLOAD: %s\n", c.Payload)
	fmt.Fprintf(&b, ":SLOT: %d\n", c.Slot)
	fmt.Fprintf(&b, ":ATTEMPTS: %d\n", c.Attempts)
	fmt.Fprintf(&b, ":ELAPSED: %s\n", c.Elapsed)
	fmt.Fprintf(&b, ":RESULT: %s\n", c.Result)
	if c.Error != "" {
		fmt.Fprintf(&b, ":ERROR: %s\n", c.Error)
	}
	b.WriteString(":END:\n")
	return b.String()
}

func FormatCommandsOrg(cmds []CommandRecord) string {
	parts := make([]string, 0, len(cmds))
	for _, c := range cmds {
		parts = append(parts, FormatCommandOrg(c))
	}
	return strings.Join(parts, "\n")
}

// FormatMessageOrg renders a terminal message as a single org list item.
func FormatMessageOrg(m MessageRecord) string {
	ts := m.Time.UTC().Format("2006-01-02 15:04:05.000")
	if m.Type == "ERROR" {
		return fmt.Sprintf("- [%s] ERROR %s: %s", ts, m.ErrorType, m.Description)
	}
	return fmt.Sprintf("- [%s] %s: %s", ts, m.Type, m.Message)
}

func FormatMessagesOrg(msgs []MessageRecord) string {
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		lines = append(lines, FormatMessageOrg(m))
	}
	return strings.Join(lines, "\n")
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
