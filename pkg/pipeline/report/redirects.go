package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"
)

const redirectArrow = "->"

// Redirect records that an input name was resolved to a differently named entity.
type Redirect struct {
	Input    string
	Resolved string
}

func (r Redirect) String() string {
	return r.Input + " " + redirectArrow + " " + r.Resolved
}

// RedirectLog is the append-only record of alias resolutions made during a run.
// It is written as "Input -> Resolved" lines.
type RedirectLog struct {
	mu      sync.Mutex
	entries []Redirect
}

// NewRedirectLog returns an empty log.
func NewRedirectLog() *RedirectLog {
	return &RedirectLog{}
}

// Append adds a resolution. Identical input and resolved names are not redirects and are
// ignored.
func (l *RedirectLog) Append(input, resolved string) {
	input = strings.TrimSpace(input)
	resolved = strings.TrimSpace(resolved)
	if input == "" || resolved == "" || input == resolved {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, Redirect{Input: input, Resolved: resolved})
}

// Entries returns a copy of the log in append order.
func (l *RedirectLog) Entries() []Redirect {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Redirect, len(l.entries))
	copy(out, l.entries)
	return out
}

// Inputs returns the set of redirected input names.
func (l *RedirectLog) Inputs() map[string]struct{} {
	out := make(map[string]struct{})
	for _, e := range l.Entries() {
		out[e.Input] = struct{}{}
	}
	return out
}

// WriteTo writes one "Input -> Resolved" line per entry.
func (l *RedirectLog) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var n int64
	for _, e := range l.Entries() {
		c, err := fmt.Fprintln(bw, e.String())
		n += int64(c)
		if err != nil {
			return n, err
		}
	}
	return n, bw.Flush()
}

// ReadRedirectLog parses a log written by WriteTo. Lines without an arrow are skipped.
func ReadRedirectLog(r io.Reader) (*RedirectLog, error) {
	l := NewRedirectLog()
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		in, out, ok := strings.Cut(line, redirectArrow)
		if !ok {
			continue
		}
		in = strings.TrimSpace(in)
		out = strings.TrimSpace(out)
		if in == "" {
			continue
		}
		l.mu.Lock()
		l.entries = append(l.entries, Redirect{Input: in, Resolved: out})
		l.mu.Unlock()
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read redirect log: %w", err)
	}
	return l, nil
}
