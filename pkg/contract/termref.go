package contract

import (
	"strings"

	"github.com/coolbeans/covenant/pkg/lnlp"
)

// TermReference is a surface occurrence of a previously defined term.
type TermReference struct {
	Name string `json:"name"`
}

// TermReferenceResolver finds occurrences of defined terms. A reference
// only resolves to a term defined at or before it in scanning order.
type TermReferenceResolver struct {
	table *DefinedTermTable

	baseConfidence     float64
	exactMatchBoost    float64
	distancePenalty    float64
	maxDistancePenalty float64
}

// NewTermReferenceResolver constructs the resolver over a collected term
// table.
func NewTermReferenceResolver(table *DefinedTermTable) *TermReferenceResolver {
	return &TermReferenceResolver{
		table:              table,
		baseConfidence:     0.80,
		exactMatchBoost:    0.10,
		distancePenalty:    0.002,
		maxDistancePenalty: 0.15,
	}
}

// ResolveLine implements lnlp.LineResolver.
func (r *TermReferenceResolver) ResolveLine(sel lnlp.Selection) []lnlp.Assignment[lnlp.Scored[TermReference]] {
	var out []lnlp.Assignment[lnlp.Scored[TermReference]]
	if r.table == nil {
		return nil
	}

	definitionSpans := lnlp.Attrs[lnlp.Scored[DefinedTerm]](sel.Line())

	for _, i := range sel.FindBy(lnlp.Word()) {
		for _, entry := range r.table.All() {
			words := strings.Fields(entry.Term.Name)
			if len(words) == 0 {
				continue
			}
			end, exact, ok := r.matchTermAt(sel, i, words)
			if !ok {
				continue
			}
			pos := lnlp.DocPosition{Line: sel.LineIndex, Token: i}
			if entry.Position == pos || !entry.Position.Before(pos) {
				continue
			}
			// The defining span itself is not a reference.
			if insideDefinition(definitionSpans, lnlp.Span(i, end)) {
				continue
			}

			distance := lineDistanceTokens(entry.Position, pos)
			penalty := float64(distance) * r.distancePenalty
			if penalty > r.maxDistancePenalty {
				penalty = r.maxDistancePenalty
			}
			conf := r.baseConfidence - penalty
			rationale := []string{"defined_term_surface"}
			if exact {
				conf += r.exactMatchBoost
				rationale = append(rationale, "exact_surface_match")
			}

			out = append(out, lnlp.Assign(lnlp.Span(i, end),
				lnlp.NewScored(TermReference{Name: entry.Term.Name}, conf, rationale...)))
			break
		}
	}
	return out
}

// matchTermAt matches the term's word sequence at token i. Returns the end
// index and whether the surface form matches case-exactly.
func (r *TermReferenceResolver) matchTermAt(sel lnlp.Selection, i int, words []string) (int, bool, bool) {
	pos := i
	exact := true
	for wi, w := range words {
		if wi > 0 {
			next, ok := sel.NextWord(pos)
			if !ok {
				return 0, false, false
			}
			pos = next
		}
		text := sel.TokenText(pos)
		if !strings.EqualFold(text, w) {
			return 0, false, false
		}
		if text != w {
			exact = false
		}
	}
	return pos, exact, true
}

func insideDefinition(defs []lnlp.Attr[lnlp.Scored[DefinedTerm]], span lnlp.SpanRef) bool {
	for _, d := range defs {
		if d.Span.Overlaps(span) {
			return true
		}
	}
	return false
}

// lineDistanceTokens approximates token distance between two document
// positions as a flat per-line cost plus the token offset difference.
func lineDistanceTokens(from, to lnlp.DocPosition) int {
	if from.Line == to.Line {
		d := to.Token - from.Token
		if d < 0 {
			d = -d
		}
		return d
	}
	lines := to.Line - from.Line
	if lines < 0 {
		lines = -lines
	}
	return lines*20 + to.Token
}
