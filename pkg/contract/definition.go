package contract

import (
	"strings"

	"github.com/coolbeans/covenant/pkg/lnlp"
)

// DefinitionType is how a defined term was introduced.
type DefinitionType int

const (
	// DefQuotedMeans: `"Term" means ...`
	DefQuotedMeans DefinitionType = iota
	// DefParenthetical: `... the Landlord ("Term") ...`
	DefParenthetical
	// DefHereinafter: `... (hereinafter, "Term") ...`
	DefHereinafter
)

// String returns the definition-form tag.
func (t DefinitionType) String() string {
	switch t {
	case DefQuotedMeans:
		return "quoted_means"
	case DefParenthetical:
		return "parenthetical"
	case DefHereinafter:
		return "hereinafter"
	}
	return "unknown"
}

// DefinedTerm is a term the contract explicitly defines. The name is
// canonicalized: trimmed, with case preserved for proper nouns.
type DefinedTerm struct {
	Name string         `json:"name"`
	Type DefinitionType `json:"type"`
}

func isQuoteToken(text string) bool {
	switch text {
	case `"`, "“", "”", "'", "‘", "’":
		return true
	}
	return false
}

// DefinitionResolver recognizes the three definition forms and emits
// scored DefinedTerm attributes.
type DefinitionResolver struct {
	quotedMeansConfidence   float64
	parentheticalConfidence float64
	hereinafterConfidence   float64
}

// NewDefinitionResolver constructs the resolver with default confidences.
func NewDefinitionResolver() *DefinitionResolver {
	return &DefinitionResolver{
		quotedMeansConfidence:   0.95,
		parentheticalConfidence: 0.90,
		hereinafterConfidence:   0.90,
	}
}

// ResolveLine implements lnlp.LineResolver.
func (r *DefinitionResolver) ResolveLine(sel lnlp.Selection) []lnlp.Assignment[lnlp.Scored[DefinedTerm]] {
	var out []lnlp.Assignment[lnlp.Scored[DefinedTerm]]

	// Quoted-means first: a quoted term immediately defined wins over a
	// parenthetical reading of the same span.
	quotedMeans := r.findQuotedMeans(sel)
	out = append(out, quotedMeans...)

	for _, a := range r.findParentheticals(sel) {
		if conflictsWithQuotedMeans(a, quotedMeans) {
			continue
		}
		out = append(out, a)
	}
	return out
}

// conflictsWithQuotedMeans drops a parenthetical when a quoted-means for
// the same term overlaps it.
func conflictsWithQuotedMeans(a lnlp.Assignment[lnlp.Scored[DefinedTerm]], quoted []lnlp.Assignment[lnlp.Scored[DefinedTerm]]) bool {
	for _, q := range quoted {
		if q.Span.Overlaps(a.Span) && q.Value.Value.Name == a.Value.Value.Name {
			return true
		}
	}
	return false
}

// findQuotedMeans matches `"<Term>" means ...` / `"<Term>" includes ...`.
func (r *DefinitionResolver) findQuotedMeans(sel lnlp.Selection) []lnlp.Assignment[lnlp.Scored[DefinedTerm]] {
	var out []lnlp.Assignment[lnlp.Scored[DefinedTerm]]

	for _, open := range sel.FindBy(lnlp.Pred(func(l *lnlp.Line, i int) bool {
		t, ok := l.Token(i)
		return ok && t.IsPunc() && isQuoteToken(t.Text)
	})) {
		name, closeIdx, ok := quotedTerm(sel, open)
		if !ok {
			continue
		}
		verbIdx, ok := sel.NextWord(closeIdx)
		if !ok {
			continue
		}
		verb := strings.ToLower(sel.TokenText(verbIdx))
		if verb != "means" && verb != "includes" {
			continue
		}
		term := DefinedTerm{Name: name, Type: DefQuotedMeans}
		out = append(out, lnlp.Assign(lnlp.Span(open, closeIdx),
			lnlp.NewScored(term, r.quotedMeansConfidence, "quoted_means")))
	}
	return out
}

// findParentheticals matches `("<Term>")` and `(hereinafter, "<Term>")`.
func (r *DefinitionResolver) findParentheticals(sel lnlp.Selection) []lnlp.Assignment[lnlp.Scored[DefinedTerm]] {
	var out []lnlp.Assignment[lnlp.Scored[DefinedTerm]]

	for _, open := range sel.FindBy(lnlp.TextEq("(")) {
		inner, ok := sel.SkipWhitespaceForwards(open + 1)
		if !ok {
			continue
		}

		defType := DefParenthetical
		confidence := r.parentheticalConfidence

		if strings.EqualFold(sel.TokenText(inner), "hereinafter") {
			defType = DefHereinafter
			confidence = r.hereinafterConfidence
			pos := inner
			// Skip an optional comma and the optional "referred to as".
			if next, ok := sel.SkipWhitespaceForwards(pos + 1); ok && sel.TokenText(next) == "," {
				pos = next
			}
			if r.matchOptionalWords(sel, &pos, "referred", "to", "as") {
				// consumed
			}
			next, ok := sel.SkipWhitespaceForwards(pos + 1)
			if !ok {
				continue
			}
			inner = next
		}

		tok, _ := sel.Token(inner)
		if !tok.IsPunc() || !isQuoteToken(tok.Text) {
			continue
		}
		name, closeQuote, ok := quotedTerm(sel, inner)
		if !ok {
			continue
		}
		closeParen, ok := sel.SkipWhitespaceForwards(closeQuote + 1)
		if !ok || sel.TokenText(closeParen) != ")" {
			continue
		}

		term := DefinedTerm{Name: name, Type: defType}
		tag := "parenthetical"
		if defType == DefHereinafter {
			tag = "hereinafter"
		}
		out = append(out, lnlp.Assign(lnlp.Span(open, closeParen),
			lnlp.NewScored(term, confidence, tag)))
	}
	return out
}

// quotedTerm reads the term between a quote token and its closing quote.
// The term must be 1..8 word/number tokens.
func quotedTerm(sel lnlp.Selection, open int) (string, int, bool) {
	var words []string
	pos := open
	for {
		next, ok := sel.SkipWhitespaceForwards(pos + 1)
		if !ok {
			return "", 0, false
		}
		tok, _ := sel.Token(next)
		if tok.IsPunc() && isQuoteToken(tok.Text) {
			if len(words) == 0 {
				return "", 0, false
			}
			return strings.TrimSpace(strings.Join(words, " ")), next, true
		}
		if tok.Class != lnlp.ClassWord && tok.Class != lnlp.ClassNatN {
			return "", 0, false
		}
		words = append(words, tok.Text)
		if len(words) > 8 {
			return "", 0, false
		}
		pos = next
	}
}

// matchOptionalWords consumes the given word sequence after *pos when it
// is present, advancing *pos to the last consumed token.
func (r *DefinitionResolver) matchOptionalWords(sel lnlp.Selection, pos *int, words ...string) bool {
	cur := *pos
	for _, w := range words {
		next, ok := sel.NextWord(cur)
		if !ok || !strings.EqualFold(sel.TokenText(next), w) {
			return false
		}
		cur = next
	}
	*pos = cur
	return true
}

// DefinedTermTable is the document-wide index of defined terms in scanning
// order, used by the reference and pronoun passes.
type DefinedTermTable struct {
	terms []DefinedTermEntry
	byKey map[string]int
}

// DefinedTermEntry records where a term was introduced.
type DefinedTermEntry struct {
	Term     DefinedTerm
	Position lnlp.DocPosition
	Span     lnlp.SpanRef
}

// CollectDefinedTerms scans the document for DefinedTerm attributes.
func CollectDefinedTerms(d *lnlp.Document) *DefinedTermTable {
	t := &DefinedTermTable{byKey: make(map[string]int)}
	d.EachLine(func(i int, l *lnlp.Line) {
		for _, a := range lnlp.Attrs[lnlp.Scored[DefinedTerm]](l) {
			entry := DefinedTermEntry{
				Term:     a.Value.Value,
				Position: lnlp.DocPosition{Line: i, Token: a.Span.Start},
				Span:     a.Span,
			}
			t.terms = append(t.terms, entry)
			key := normalizeTermName(a.Value.Value.Name)
			if _, seen := t.byKey[key]; !seen {
				t.byKey[key] = len(t.terms) - 1
			}
		}
	})
	return t
}

// All returns all entries in scanning order.
func (t *DefinedTermTable) All() []DefinedTermEntry { return t.terms }

// Lookup returns the first definition of name, case-insensitively.
func (t *DefinedTermTable) Lookup(name string) (DefinedTermEntry, bool) {
	idx, ok := t.byKey[normalizeTermName(name)]
	if !ok {
		return DefinedTermEntry{}, false
	}
	return t.terms[idx], true
}

// DefinedBefore reports whether name was defined at or before pos in
// scanning order.
func (t *DefinedTermTable) DefinedBefore(name string, pos lnlp.DocPosition) bool {
	entry, ok := t.Lookup(name)
	if !ok {
		return false
	}
	return entry.Position.Before(pos) || entry.Position == pos
}

func normalizeTermName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}
