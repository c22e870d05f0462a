package contract

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/coolbeans/covenant/pkg/lnlp"
)

// SectionHeader marks a line (or line prefix) as a section heading. Only
// headers starting at token index <= 1 participate in structure building.
type SectionHeader struct {
	Identifier SectionIdentifier `json:"identifier"`
	Title      string            `json:"title,omitempty"`
	RawText    string            `json:"raw_text"`
}

// SectionHeaderResolver detects the three header patterns: kind-prefixed
// headings, standalone dotted numerics at line start, and parenthesized
// list items.
type SectionHeaderResolver struct {
	kindConfidence       float64
	numericConfidence    float64
	listItemConfidence   float64
}

// NewSectionHeaderResolver constructs the resolver with default
// confidences.
func NewSectionHeaderResolver() *SectionHeaderResolver {
	return &SectionHeaderResolver{
		kindConfidence:     0.95,
		numericConfidence:  0.80,
		listItemConfidence: 0.70,
	}
}

// ResolveLine implements lnlp.LineResolver.
func (r *SectionHeaderResolver) ResolveLine(sel lnlp.Selection) []lnlp.Assignment[lnlp.Scored[SectionHeader]] {
	var out []lnlp.Assignment[lnlp.Scored[SectionHeader]]

	kindFired := false
	for _, i := range sel.FindBy(lnlp.Word()) {
		if a, ok := r.tryKindHeader(sel, i); ok {
			out = append(out, a)
			if i <= 1 {
				kindFired = true
			}
		}
	}

	if !kindFired {
		if a, ok := r.tryStandaloneNumeric(sel); ok {
			out = append(out, a)
		}
	}

	out = append(out, r.findListItems(sel)...)
	return out
}

// tryKindHeader matches `<Kind> <identifier>` with an optional trailing
// title after a separator.
func (r *SectionHeaderResolver) tryKindHeader(sel lnlp.Selection, i int) (lnlp.Assignment[lnlp.Scored[SectionHeader]], bool) {
	var zero lnlp.Assignment[lnlp.Scored[SectionHeader]]

	kind, ok := SectionKindOf(sel.TokenText(i))
	if !ok {
		return zero, false
	}

	// A bare "DEFINITIONS" or "RECITALS" line heading needs no identifier,
	// but only at the start of a line and capitalized.
	bareHeading := func() (lnlp.Assignment[lnlp.Scored[SectionHeader]], bool) {
		if (kind == KindDefinitions || kind == KindRecital) && i <= 1 && isCapitalized(sel.TokenText(i)) {
			id := NamedIdentifier(kind, nil)
			header := SectionHeader{Identifier: id, RawText: sel.TokenText(i)}
			return lnlp.Assign(lnlp.Single(i), lnlp.NewScored(header, r.kindConfidence, "kind_header")), true
		}
		return zero, false
	}

	idIdx, ok := sel.NextWord(i)
	if !ok {
		return bareHeading()
	}

	sub, idEnd, ok := r.parseIdentifierAt(sel, idIdx)
	if !ok {
		return bareHeading()
	}

	id := NamedIdentifier(kind, &sub)
	title := r.titleAfter(sel, idEnd)
	span := lnlp.Span(i, idEnd)
	header := SectionHeader{
		Identifier: id,
		Title:      title,
		RawText:    sel.Line().TextIn(span),
	}
	return lnlp.Assign(span, lnlp.NewScored(header, r.kindConfidence, "kind_header")), true
}

// parseIdentifierAt parses a roman, dotted numeric, or single uppercase
// letter identifier starting at token idx.
func (r *SectionHeaderResolver) parseIdentifierAt(sel lnlp.Selection, idx int) (SectionIdentifier, int, bool) {
	tok, ok := sel.Token(idx)
	if !ok {
		return SectionIdentifier{}, 0, false
	}

	switch tok.Class {
	case lnlp.ClassNatN:
		parts, end := parseDottedNumeric(sel, idx)
		return NumericIdentifier(parts...), end, true
	case lnlp.ClassWord:
		text := tok.Text
		if v, c, ok := ParseRoman(text); ok {
			return RomanIdentifier(v, c), idx, true
		}
		runes := []rune(text)
		if len(runes) == 1 && unicode.IsUpper(runes[0]) {
			return AlphaIdentifier(runes[0], false, CaseUpper), idx, true
		}
	}
	return SectionIdentifier{}, 0, false
}

// parseDottedNumeric consumes `N(.N)*` with no intervening whitespace and
// returns the parts and end token.
func parseDottedNumeric(sel lnlp.Selection, idx int) ([]int, int) {
	var parts []int
	n, _ := strconv.Atoi(sel.TokenText(idx))
	parts = append(parts, n)
	end := idx
	for {
		dot := end + 1
		if sel.TokenText(dot) != "." {
			break
		}
		numIdx := dot + 1
		tok, ok := sel.Token(numIdx)
		if !ok || tok.Class != lnlp.ClassNatN {
			break
		}
		n, _ := strconv.Atoi(tok.Text)
		parts = append(parts, n)
		end = numIdx
	}
	return parts, end
}

// titleAfter extracts a heading title following the identifier, skipping a
// separator (dash, colon, period, em-dash).
func (r *SectionHeaderResolver) titleAfter(sel lnlp.Selection, idEnd int) string {
	pos, ok := sel.SkipWhitespaceForwards(idEnd + 1)
	if !ok {
		return ""
	}
	for {
		tok, okTok := sel.Token(pos)
		if !okTok {
			return ""
		}
		if tok.IsPunc() {
			switch tok.Text {
			case "-", "–", "—", ":", ".":
				next, okNext := sel.SkipWhitespaceForwards(pos + 1)
				if !okNext {
					return ""
				}
				pos = next
				continue
			default:
				return ""
			}
		}
		break
	}
	var words []string
	for i := pos; i <= sel.End; i++ {
		tok, okTok := sel.Token(i)
		if !okTok {
			break
		}
		if tok.IsWhitespace() {
			continue
		}
		if tok.IsPunc() && tok.Text != "'" {
			break
		}
		words = append(words, tok.Text)
	}
	return strings.Join(words, " ")
}

// tryStandaloneNumeric matches `N` or `N.N[.N]` at token position 0 when
// no kind-prefixed header fired.
func (r *SectionHeaderResolver) tryStandaloneNumeric(sel lnlp.Selection) (lnlp.Assignment[lnlp.Scored[SectionHeader]], bool) {
	var zero lnlp.Assignment[lnlp.Scored[SectionHeader]]
	if sel.Empty() {
		return zero, false
	}
	tok, ok := sel.Token(sel.Start)
	if !ok || tok.Class != lnlp.ClassNatN {
		return zero, false
	}

	parts, end := parseDottedNumeric(sel, sel.Start)
	// A bare number followed by more prose is a heading only when a
	// separator or capitalized title follows.
	title := r.titleAfter(sel, end)
	span := lnlp.Span(sel.Start, end)
	header := SectionHeader{
		Identifier: NumericIdentifier(parts...),
		Title:      title,
		RawText:    sel.Line().TextIn(span),
	}
	return lnlp.Assign(span, lnlp.NewScored(header, r.numericConfidence, "numeric_header")), true
}

// findListItems matches parenthesized list items `(a)`, `(ii)`, `(3)`.
func (r *SectionHeaderResolver) findListItems(sel lnlp.Selection) []lnlp.Assignment[lnlp.Scored[SectionHeader]] {
	var out []lnlp.Assignment[lnlp.Scored[SectionHeader]]

	for _, open := range sel.FindBy(lnlp.TextEq("(")) {
		inner := open + 1
		tok, ok := sel.Token(inner)
		if !ok {
			continue
		}
		closeIdx := inner + 1
		if sel.TokenText(closeIdx) != ")" {
			continue
		}

		var id SectionIdentifier
		switch tok.Class {
		case lnlp.ClassWord:
			runes := []rune(tok.Text)
			if v, c, okRoman := ParseRoman(tok.Text); okRoman && len(runes) > 1 {
				id = RomanIdentifier(v, c)
			} else if len(runes) == 1 && unicode.IsLetter(runes[0]) {
				id = AlphaIdentifier(runes[0], true, letterCaseOf(runes[0]))
			} else {
				continue
			}
		case lnlp.ClassNatN:
			n, _ := strconv.Atoi(tok.Text)
			id = NumericIdentifier(n)
		default:
			continue
		}

		span := lnlp.Span(open, closeIdx)
		header := SectionHeader{Identifier: id, RawText: sel.Line().TextIn(span)}
		out = append(out, lnlp.Assign(span, lnlp.NewScored(header, r.listItemConfidence, "list_item")))
	}
	return out
}
