package audit

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const separator = "──────────────────────────────────────────────────────────────────"

// FormatTable renders a ReadResult as a human-readable timeline.
func FormatTable(result *ReadResult) string {
	if len(result.Entries) == 0 {
		return "No audit entries found.\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Audit: %s – %s UTC\n",
		formatDateTime(result.Summary.FirstTimestamp), formatDateTime(result.Summary.LastTimestamp))
	b.WriteString(separator + "\n")

	for _, e := range result.Entries {
		override := "-"
		if e.OverrideSet {
			override = fmt.Sprintf("%s=%q", e.OverrideVar, e.OverrideValue)
		}
		fmt.Fprintf(&b, "%-19s %-22s %-18s %-28s %s\n",
			formatDateTime(e.Timestamp),
			strings.ToUpper(e.Outcome()),
			truncate(e.Reason, 18),
			truncate(override, 28),
			truncate(e.ForkPath, 40))
	}

	b.WriteString(separator + "\n")
	b.WriteString(formatSummary(result.Summary))
	return b.String()
}

// FormatJSON renders a ReadResult as indented JSON.
func FormatJSON(result *ReadResult) (string, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("audit: marshal result: %w", err)
	}
	return string(data), nil
}

func formatDateTime(ts string) string {
	t, err := time.Parse(TimestampFormat, ts)
	if err != nil {
		return ts
	}
	return t.Format("2006-01-02 15:04:05")
}

func formatSummary(s Summary) string {
	var parts []string
	if s.LocalForkCount > 0 {
		parts = append(parts, fmt.Sprintf("%d local_fork", s.LocalForkCount))
	}
	if s.RegistryCount > 0 {
		parts = append(parts, fmt.Sprintf("%d registry", s.RegistryCount))
	}
	if s.FailureCount > 0 {
		parts = append(parts, fmt.Sprintf("%d refused", s.FailureCount))
	}
	return fmt.Sprintf("Summary: %d decisions (%s)\n", s.Total, strings.Join(parts, ", "))
}

// truncate shortens s to max runes, marking the cut with "...".
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max-3]) + "..."
}
