package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// GenesisHash is the prev_hash of the first entry in a log.
const GenesisHash = "sha256:0000000000000000000000000000000000000000000000000000000000000000"

// TimestampFormat is the layout of AuditEntry.Timestamp.
const TimestampFormat = "2006-01-02T15:04:05.000Z"

// Log appends decisions to a JSONL file. Every line carries the hash of the
// line before it, so edits and deletions break the chain. Safe for
// concurrent use.
type Log struct {
	mu   sync.Mutex
	path string
	f    *os.File
	tip  string // hash of the last written line
}

// Open opens the log at path for appending, creating it and its directory
// when needed. An existing log is continued from its last line.
func Open(path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("audit: create directory: %w", err)
	}

	tip, err := chainTip(path)
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("audit: open file: %w", err)
	}
	return &Log{path: path, f: f, tip: tip}, nil
}

// chainTip is the prev_hash the next entry appended to path must carry.
func chainTip(path string) (string, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) || (err == nil && info.Size() == 0) {
		return GenesisHash, nil
	}
	if err != nil {
		return "", fmt.Errorf("audit: stat existing log: %w", err)
	}

	last, err := lastLine(path)
	if err != nil {
		return "", err
	}
	if len(last) == 0 {
		return GenesisHash, nil
	}
	return HashLine(last), nil
}

// Path returns the file the log appends to.
func (l *Log) Path() string { return l.path }

// Record chains entry onto the log and syncs it to disk. A blank
// Timestamp is filled with the current time; PrevHash is always set here.
func (l *Log) Record(entry AuditEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format(TimestampFormat)
	}
	entry.PrevHash = l.tip

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("audit: marshal entry: %w", err)
	}
	if _, err := l.f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("audit: write entry: %w", err)
	}
	if err := l.f.Sync(); err != nil {
		return fmt.Errorf("audit: sync: %w", err)
	}

	l.tip = HashLine(line)
	return nil
}

// Close closes the file. The log must not be used afterwards.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f.Close()
}

// HashLine returns "sha256:<hex>" of line, without its newline.
func HashLine(line []byte) string {
	sum := sha256.Sum256(line)
	return "sha256:" + hex.EncodeToString(sum[:])
}
