package device

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// StaticEntry is one "address=name" line from the static device list.
type StaticEntry struct {
	Line    int
	Name    string
	Address string
}

// ParseStaticList reads a line-oriented device list.
//
// Each non-blank line that does not start with '#' must be "address=name".
// Malformed lines are returned in skipped (wrapping ErrMalformedEntry) and
// do not stop parsing. The error return is reserved for read failures.
func ParseStaticList(r io.Reader) (entries []StaticEntry, skipped []error, err error) {
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		address, name, ok := strings.Cut(line, "=")
		address = strings.TrimSpace(address)
		name = strings.TrimSpace(name)
		if !ok || address == "" || name == "" || strings.Contains(name, "=") {
			skipped = append(skipped, fmt.Errorf("line %d: %w", lineNo, ErrMalformedEntry))
			continue
		}
		entries = append(entries, StaticEntry{Line: lineNo, Name: name, Address: address})
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("reading static list: %w", err)
	}
	return entries, skipped, nil
}

// LoadStaticFile seeds the registry from the file at path and returns the
// number of devices created. Malformed lines are logged and skipped.
func (r *Registry) LoadStaticFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening static list: %w", err)
	}
	defer f.Close()

	entries, skipped, err := ParseStaticList(f)
	if err != nil {
		return 0, err
	}
	for _, e := range skipped {
		r.logger.Warn("skipping static device entry", "path", path, "error", e)
	}

	created := 0
	for _, e := range entries {
		ok, err := r.Seed(e.Name, e.Address)
		if err != nil {
			r.logger.Warn("skipping static device entry", "path", path, "line", e.Line, "error", err)
			continue
		}
		if ok {
			created++
		}
	}
	return created, nil
}
