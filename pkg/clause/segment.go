// Package clause segments contract sentences into clauses and links them:
// condition/effect pairs, coordination chains with precedence, exception
// propagation, list containment, and cross-references, plus a read-only
// query API over the resulting link graph.
package clause

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/coolbeans/covenant/pkg/contract"
	"github.com/coolbeans/covenant/pkg/lnlp"
)

// Category classifies a clause segment.
type Category int

const (
	// CategoryCondition is a clause introduced by a condition keyword.
	CategoryCondition Category = iota
	// CategoryTrailingEffect is a modal-bearing clause that follows a
	// condition in the same sentence.
	CategoryTrailingEffect
	// CategoryIndependent is any other clause.
	CategoryIndependent
)

// String returns the category tag.
func (c Category) String() string {
	switch c {
	case CategoryCondition:
		return "condition"
	case CategoryTrailingEffect:
		return "trailing_effect"
	case CategoryIndependent:
		return "independent"
	}
	return "unknown"
}

// Clause is the line attribute emitted by the segmenter.
type Clause struct {
	Category Category
}

// MarkerKind is the discriminant of a list marker.
type MarkerKind int

const (
	MarkerAlpha MarkerKind = iota
	MarkerRoman
	MarkerNumeric
)

// ListMarker is a parenthesized enumerator such as (a), (ii), or (3).
type ListMarker struct {
	Kind MarkerKind
	Text string
}

// ListMarkerResolver detects parenthesized list markers. Single letters
// i/v/x classify as roman (list usage dominates); other single letters as
// alpha.
type ListMarkerResolver struct{}

// NewListMarkerResolver constructs the marker pass.
func NewListMarkerResolver() *ListMarkerResolver { return &ListMarkerResolver{} }

// ResolveLine implements lnlp.LineResolver.
func (r *ListMarkerResolver) ResolveLine(sel lnlp.Selection) []lnlp.Assignment[ListMarker] {
	var out []lnlp.Assignment[ListMarker]

	for _, open := range sel.FindBy(lnlp.TextEq("(")) {
		inner := open + 1
		tok, ok := sel.Token(inner)
		if !ok || sel.TokenText(inner+1) != ")" {
			continue
		}

		var marker ListMarker
		switch tok.Class {
		case lnlp.ClassNatN:
			if _, err := strconv.Atoi(tok.Text); err != nil {
				continue
			}
			marker = ListMarker{Kind: MarkerNumeric, Text: tok.Text}
		case lnlp.ClassWord:
			runes := []rune(tok.Text)
			lower := strings.ToLower(tok.Text)
			switch {
			case len(runes) > 1 && isRomanWord(lower):
				marker = ListMarker{Kind: MarkerRoman, Text: tok.Text}
			case len(runes) == 1 && (lower == "i" || lower == "v" || lower == "x"):
				marker = ListMarker{Kind: MarkerRoman, Text: tok.Text}
			case len(runes) == 1 && unicode.IsLetter(runes[0]):
				marker = ListMarker{Kind: MarkerAlpha, Text: tok.Text}
			default:
				continue
			}
		default:
			continue
		}
		out = append(out, lnlp.Assign(lnlp.Span(open, inner+1), marker))
	}
	return out
}

func isRomanWord(lower string) bool {
	for _, r := range lower {
		switch r {
		case 'i', 'v', 'x', 'l', 'c', 'd', 'm':
		default:
			return false
		}
	}
	return lower != ""
}

// Segmenter splits each line into clause segments at sentence boundaries,
// commas, semicolons, condition keywords, exception keywords, coordination
// keywords outside a term of art, and list markers. Leading coordination,
// condition, and exception keywords (and list markers) are excluded from
// the clause span so they sit on the inter-span range the link gates
// inspect; a stripped condition keyword categorizes its clause.
type Segmenter struct{}

// NewSegmenter constructs the clause segmenter.
func NewSegmenter() *Segmenter { return &Segmenter{} }

// ResolveLine implements lnlp.LineResolver.
func (s *Segmenter) ResolveLine(sel lnlp.Selection) []lnlp.Assignment[Clause] {
	if sel.Empty() {
		return nil
	}

	line := sel.Line()
	conditionStarts := make(map[int]contract.KeywordKind)
	coordinationStarts := make(map[int]bool)
	exceptionStarts := make(map[int]bool)
	for _, a := range lnlp.Attrs[contract.ContractKeyword](line) {
		if a.Value.Kind.IsCondition() {
			conditionStarts[a.Span.Start] = a.Value.Kind
		}
		if a.Value.Kind.IsCoordination() {
			coordinationStarts[a.Span.Start] = true
		}
		if a.Value.Kind == contract.KwException {
			exceptionStarts[a.Span.Start] = true
		}
	}
	markerStarts := make(map[int]lnlp.SpanRef)
	for _, m := range lnlp.Attrs[ListMarker](line) {
		markerStarts[m.Span.Start] = m.Span
	}
	// Coordinators inside a term of art ("indemnify and hold harmless")
	// never split.
	termSpans := lnlp.Attrs[contract.TermOfArt](line)
	inTermOfArt := func(i int) bool {
		for _, ts := range termSpans {
			if ts.Span.ContainsIndex(i) {
				return true
			}
		}
		return false
	}

	// Split points sit between segments.
	isBoundary := func(i int) bool {
		tok, ok := sel.Token(i)
		if !ok {
			return false
		}
		if tok.IsPunc() {
			switch tok.Text {
			case ".":
				// The dot of a dotted number ("3.1") is not a boundary.
				prev, okPrev := sel.Token(i - 1)
				next, okNext := sel.Token(i + 1)
				return !(okPrev && okNext && prev.IsNatN() && next.IsNatN())
			case "!", "?", ";", ",":
				return true
			}
		}
		return false
	}

	var out []lnlp.Assignment[Clause]
	conditionSeen := false

	start := sel.Start
	flush := func(end int) {
		if end < start {
			return
		}
		seg, hasCond := trimSegment(sel, start, end, conditionStarts, coordinationStarts, exceptionStarts, markerStarts)
		if seg.Len() == 0 {
			return
		}

		category := CategoryIndependent
		switch {
		case hasCond:
			category = CategoryCondition
			conditionSeen = true
		case conditionSeen && segmentHasModal(line, seg):
			category = CategoryTrailingEffect
		}
		out = append(out, lnlp.Assign(seg, Clause{Category: category}))
	}

	for i := sel.Start; i <= sel.End; i++ {
		if isBoundary(i) {
			flush(i - 1)
			start = i + 1
			if t, _ := sel.Token(i); t.Text != "," {
				conditionSeen = false
			}
			continue
		}
		// A condition keyword, exception keyword, coordination keyword
		// outside a term of art, or list marker mid-segment starts a new
		// one.
		if i > start {
			if _, isCond := conditionStarts[i]; isCond {
				flush(i - 1)
				start = i
				continue
			}
			if exceptionStarts[i] {
				flush(i - 1)
				start = i
				continue
			}
			if coordinationStarts[i] && !inTermOfArt(i) {
				flush(i - 1)
				start = i
				continue
			}
			if _, isMarker := markerStarts[i]; isMarker {
				flush(i - 1)
				start = i
			}
		}
	}
	flush(sel.End)
	return out
}

// trimSegment strips leading whitespace, coordination keywords, condition
// keywords, exception keywords, and list markers, and trailing whitespace.
// Returns the trimmed span and whether a
// condition keyword was stripped.
func trimSegment(sel lnlp.Selection, start, end int, conditions map[int]contract.KeywordKind, coordinations, exceptions map[int]bool, markers map[int]lnlp.SpanRef) (lnlp.SpanRef, bool) {
	hasCond := false

	i := start
	for i <= end {
		tok, ok := sel.Token(i)
		if !ok {
			break
		}
		if tok.IsWhitespace() {
			i++
			continue
		}
		if _, isCond := conditions[i]; isCond {
			hasCond = true
			// Condition compounds ("subject to") cover two words.
			i = conditionSpanEnd(sel.Line(), i) + 1
			continue
		}
		if coordinations[i] || exceptions[i] {
			i++
			continue
		}
		if span, isMarker := markers[i]; isMarker {
			i = span.End + 1
			continue
		}
		break
	}

	// Trim trailing whitespace.
	j := end
	for j >= i {
		tok, ok := sel.Token(j)
		if !ok || !tok.IsWhitespace() {
			break
		}
		j--
	}
	return lnlp.Span(i, j), hasCond
}

func conditionSpanEnd(line *lnlp.Line, start int) int {
	end := start
	for _, a := range lnlp.Attrs[contract.ContractKeyword](line) {
		if a.Span.Start == start && a.Value.Kind.IsCondition() && a.Span.End > end {
			end = a.Span.End
		}
	}
	return end
}

func segmentHasModal(line *lnlp.Line, span lnlp.SpanRef) bool {
	for _, a := range contract.ModalAnchors(line) {
		if span.Contains(a.Span) {
			return true
		}
	}
	return false
}

