package lnlp

import (
	"reflect"
	"strings"
)

// Document is an ordered list of non-empty tokenized lines plus a mapping
// back to 1-based source line numbers (blank lines are dropped internally
// but their positions are preserved for display). A document also carries
// its own typed attribute store for document-wide results.
type Document struct {
	lines       []*Line
	sourceLines []int
	attrs       map[reflect.Type][]any
}

// FromText splits text on '\n', drops blank lines, and tokenizes the rest.
// Empty input yields a zero-line document, never an error.
func FromText(text string) *Document {
	d := &Document{attrs: make(map[reflect.Type][]any)}
	for i, raw := range strings.Split(text, "\n") {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		d.lines = append(d.lines, NewLine(raw))
		d.sourceLines = append(d.sourceLines, i+1)
	}
	return d
}

// FromLines builds a document from pre-tokenized lines with consecutive
// source numbering.
func FromLines(lines []*Line) *Document {
	d := &Document{attrs: make(map[reflect.Type][]any)}
	for i, l := range lines {
		d.lines = append(d.lines, l)
		d.sourceLines = append(d.sourceLines, i+1)
	}
	return d
}

// LineCount returns the number of retained (non-blank) lines.
func (d *Document) LineCount() int { return len(d.lines) }

// Line returns line i, or nil when out of range.
func (d *Document) Line(i int) *Line {
	if i < 0 || i >= len(d.lines) {
		return nil
	}
	return d.lines[i]
}

// SourceLineNumber maps an internal line index to its 1-based source line
// number. Returns 0 when out of range.
func (d *Document) SourceLineNumber(i int) int {
	if i < 0 || i >= len(d.sourceLines) {
		return 0
	}
	return d.sourceLines[i]
}

// EachLine invokes fn for every line in order.
func (d *Document) EachLine(fn func(i int, l *Line)) {
	for i, l := range d.lines {
		fn(i, l)
	}
}

// TextIn reconstructs the text covered by a document span.
func (d *Document) TextIn(span DocSpan) string {
	var parts []string
	for li := span.Start.Line; li <= span.End.Line; li++ {
		l := d.Line(li)
		if l == nil {
			continue
		}
		start, end := 0, l.Len()-1
		if li == span.Start.Line {
			start = span.Start.Token
		}
		if li == span.End.Line {
			end = span.End.Token
		}
		parts = append(parts, strings.TrimSpace(l.TextIn(SpanRef{Start: start, End: end})))
	}
	return strings.Join(parts, " ")
}

// AddDocAttr appends a document-wide attribute of type T.
func AddDocAttr[T any](d *Document, value T) {
	key := reflect.TypeOf((*T)(nil)).Elem()
	d.attrs[key] = append(d.attrs[key], value)
}

// DocAttrs returns all document-wide attributes of type T in insertion
// order.
func DocAttrs[T any](d *Document) []T {
	key := reflect.TypeOf((*T)(nil)).Elem()
	stored := d.attrs[key]
	out := make([]T, 0, len(stored))
	for _, v := range stored {
		out = append(out, v.(T))
	}
	return out
}
