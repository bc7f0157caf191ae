package audit

import (
	"encoding/json"
	"fmt"
	"os"
)

// VerifyResult holds the outcome of a hash chain verification.
type VerifyResult struct {
	Valid     bool   `json:"valid"`
	Lines     int    `json:"lines"`
	Error     string `json:"error,omitempty"`
	ErrorLine int    `json:"error_line,omitempty"`
}

// Verify reads a JSONL audit log and validates the hash chain.
// Returns Valid=true if the chain is intact, or details about the first
// broken link.
func Verify(path string) VerifyResult {
	f, err := os.Open(path)
	if err != nil {
		return VerifyResult{Error: fmt.Sprintf("open: %v", err)}
	}
	defer f.Close()

	var (
		result   VerifyResult
		lineNum  int
		expected = GenesisHash
	)
	err = eachLine(f, func(n int, line []byte) error {
		lineNum = n

		var entry AuditEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			result = VerifyResult{
				Error:     fmt.Sprintf("parse error: %v", err),
				ErrorLine: n,
			}
			return errStop
		}

		if entry.PrevHash != expected {
			msg := fmt.Sprintf("hash mismatch: expected %s, got %s", expected, entry.PrevHash)
			if n == 1 {
				msg = fmt.Sprintf("first entry prev_hash is %q, expected genesis hash", entry.PrevHash)
			}
			result = VerifyResult{Error: msg, ErrorLine: n}
			return errStop
		}

		expected = HashLine(line)
		return nil
	})
	if err != nil {
		return VerifyResult{Error: fmt.Sprintf("read: %v", err), ErrorLine: lineNum}
	}
	if result.Error != "" {
		return result
	}

	return VerifyResult{Valid: true, Lines: lineNum}
}
