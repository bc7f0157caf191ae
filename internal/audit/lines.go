package audit

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
)

// tailChunk is how far lastLine reads backwards per step.
const tailChunk = 8 << 10

// errStop ends eachLine early without reporting an error.
var errStop = errors.New("stop")

// eachLine calls fn with the 1-based number and content of every line in r.
// Lines have no length limit. The trailing newline (and a CR before it) is
// stripped; a final line without a newline is still delivered.
func eachLine(r io.Reader, fn func(n int, line []byte) error) error {
	br := bufio.NewReader(r)
	for n := 1; ; n++ {
		line, err := br.ReadBytes('\n')
		if len(line) == 0 && err == io.EOF {
			return nil
		}
		if err != nil && err != io.EOF {
			return err
		}
		line = bytes.TrimSuffix(bytes.TrimSuffix(line, []byte("\n")), []byte("\r"))
		if ferr := fn(n, line); ferr != nil {
			if ferr == errStop {
				return nil
			}
			return ferr
		}
		if err == io.EOF {
			return nil
		}
	}
}

// lastLine returns the last non-empty line of the file at path, reading
// backwards from the end so that large logs are not scanned in full.
func lastLine(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audit: read existing log: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("audit: stat existing log: %w", err)
	}

	var tail []byte
	for pos := info.Size(); pos > 0; {
		n := min(int64(tailChunk), pos)
		pos -= n
		chunk := make([]byte, n)
		if _, err := f.ReadAt(chunk, pos); err != nil {
			return nil, fmt.Errorf("audit: read existing log: %w", err)
		}
		tail = append(chunk, tail...)

		trimmed := bytes.TrimRight(tail, "\r\n")
		if i := bytes.LastIndexByte(trimmed, '\n'); i >= 0 {
			return trimmed[i+1:], nil
		}
	}
	return bytes.TrimRight(tail, "\r\n"), nil
}
