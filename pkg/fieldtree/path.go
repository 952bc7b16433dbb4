package fieldtree

import (
	"regexp"
	"strings"
)

// Segment is one step of a field path. The empty segment is the append
// marker: it addresses the next free list index instead of a named key.
type Segment string

// Append is the append-marker segment produced by "[]".
const Append Segment = ""

// IsAppend reports whether s is the append marker.
func (s Segment) IsAppend() bool { return s == Append }

// wellFormedRun matches consecutive bracket groups with no nested brackets.
var wellFormedRun = regexp.MustCompile(`^(?:\[[^\[\]]*\])+`)

// ParsePath splits a flat field name into path segments following the
// legacy bracket convention:
//
//	ParsePath("a")       // [a]
//	ParsePath("a[b][c]") // [a b c]
//	ParsePath("a[]")     // [a ""]
//	ParsePath("a[b]x")   // [a b], trailing text is dropped
//	ParsePath("a[b")     // [a_b], unmatched "[" becomes "_"
//	ParsePath("[x]")     // fails
//
// The second return value is false when the field must be discarded.
func ParsePath(name string) ([]Segment, bool) {
	if name == "" || name[0] == '[' {
		return nil, false
	}

	start := strings.IndexByte(name, '[')
	if start < 0 {
		return []Segment{Segment(name)}, true
	}

	tail := name[start:]
	if strings.IndexByte(tail, ']') < 0 {
		return []Segment{Segment(strings.ReplaceAll(name, "[", "_"))}, true
	}

	run := wellFormedRun.FindString(tail)
	if run == "" {
		return nil, false
	}

	path := []Segment{Segment(name[:start])}
	for run != "" {
		end := strings.IndexByte(run, ']')
		path = append(path, Segment(run[1:end]))
		run = run[end+1:]
	}
	return path, true
}

// FormatPath renders a path back into bracket notation, e.g. "a[b][]".
func FormatPath(path []Segment) string {
	if len(path) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(string(path[0]))
	for _, seg := range path[1:] {
		b.WriteByte('[')
		b.WriteString(string(seg))
		b.WriteByte(']')
	}
	return b.String()
}
