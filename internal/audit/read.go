package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Filter narrows the entries returned by Read.
type Filter struct {
	Dependency string
	From       time.Time // zero value = no lower bound
	To         time.Time // zero value = no upper bound
	FailedOnly bool
}

// Summary counts outcomes across a set of entries.
type Summary struct {
	Total          int    `json:"total"`
	LocalForkCount int    `json:"local_fork_count"`
	RegistryCount  int    `json:"registry_count"`
	FailureCount   int    `json:"failure_count"`
	FirstTimestamp string `json:"first_timestamp,omitempty"`
	LastTimestamp  string `json:"last_timestamp,omitempty"`
}

// ReadResult holds filtered entries and their summary.
type ReadResult struct {
	Entries []AuditEntry `json:"entries"`
	Summary Summary      `json:"summary"`
}

// Read returns the entries in the log at path matching filter.
// Malformed lines are skipped; use Verify to detect them.
func Read(path string, filter Filter) (*ReadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audit: open log: %w", err)
	}
	defer f.Close()

	result := &ReadResult{Entries: []AuditEntry{}}

	err = eachLine(f, func(_ int, line []byte) error {
		var entry AuditEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			return nil
		}
		if filter.matches(entry) {
			result.Entries = append(result.Entries, entry)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("audit: read log: %w", err)
	}

	result.Summary = summarize(result.Entries)
	return result, nil
}

func (f Filter) matches(e AuditEntry) bool {
	if f.Dependency != "" && e.Dependency != f.Dependency {
		return false
	}
	if f.FailedOnly && !e.Failed() {
		return false
	}
	if f.From.IsZero() && f.To.IsZero() {
		return true
	}
	ts, err := time.Parse(TimestampFormat, e.Timestamp)
	if err != nil {
		return false
	}
	if !f.From.IsZero() && ts.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && ts.After(f.To) {
		return false
	}
	return true
}

func summarize(entries []AuditEntry) Summary {
	s := Summary{Total: len(entries)}
	for i, e := range entries {
		if i == 0 {
			s.FirstTimestamp = e.Timestamp
		}
		s.LastTimestamp = e.Timestamp
		switch {
		case e.Failed():
			s.FailureCount++
		case e.Source == "local_fork":
			s.LocalForkCount++
		case e.Source == "registry":
			s.RegistryCount++
		}
	}
	return s
}
