package contract

import (
	"strings"

	"github.com/coolbeans/covenant/pkg/lnlp"
)

// Polarity is the net sign of a clause after negation accounting.
type Polarity int

const (
	PolarityPositive Polarity = iota
	PolarityNegative
	PolarityAmbiguous
)

// String returns the polarity tag.
func (p Polarity) String() string {
	switch p {
	case PolarityPositive:
		return "positive"
	case PolarityNegative:
		return "negative"
	case PolarityAmbiguous:
		return "ambiguous"
	}
	return "unknown"
}

// NegationKind classifies a detected negation word.
type NegationKind int

const (
	NegationSimple NegationKind = iota
	NegationCorrelative
	NegationCompound
)

// NegationSpan records one negation occurrence.
type NegationSpan struct {
	Span lnlp.SpanRef `json:"span"`
	Word string       `json:"word"`
	Kind NegationKind `json:"kind"`
}

var simpleNegations = wordSet("not", "no", "never", "without", "cannot")

var correlativeNegations = wordSet("neither", "nor")

var compoundNegations = wordSet(
	"can't", "won't", "didn't", "isn't", "doesn't", "don't", "aren't",
	"wasn't", "weren't", "shouldn't", "wouldn't", "couldn't", "mustn't", "shan't",
)

// doubleNegativePattern names one recognized double-negative construction.
type doubleNegativePattern struct {
	description string
	words       []string
	// maxGap is the token window for the separated "no ... without" form;
	// zero means the words must be adjacent.
	maxGap int
}

var doubleNegativePatterns = []doubleNegativePattern{
	{description: "unless not", words: []string{"unless", "not"}},
	{description: "cannot fail to", words: []string{"cannot", "fail", "to"}},
	{description: "not without", words: []string{"not", "without"}},
	{description: "never not", words: []string{"never", "not"}},
	{description: "no ... without", words: []string{"no", "without"}, maxGap: 5},
}

// PolarityContext is the result of negation accounting over a clause.
// Polarity follows negation-count parity unless a double-negative pattern
// forces Ambiguous.
type PolarityContext struct {
	Polarity          Polarity       `json:"polarity"`
	NegationCount     int            `json:"negation_count"`
	NegationSpans     []NegationSpan `json:"negation_spans,omitempty"`
	HasDoubleNegative bool           `json:"has_double_negative"`
	Confidence        float64        `json:"confidence"`
	NeedsReview       bool           `json:"needs_review"`
	ReviewReason      string         `json:"review_reason,omitempty"`
}

// DetectNegations finds negation words inside [start, end] on a selection.
func DetectNegations(sel lnlp.Selection, start, end int) []NegationSpan {
	var out []NegationSpan
	for i := start; i <= end; i++ {
		tok, ok := sel.Token(i)
		if !ok || !tok.IsWord() {
			continue
		}
		lower := strings.ToLower(tok.Text)
		switch {
		case correlativeNegations[lower]:
			out = append(out, NegationSpan{Span: lnlp.Single(i), Word: lower, Kind: NegationCorrelative})
		case compoundNegations[lower]:
			out = append(out, NegationSpan{Span: lnlp.Single(i), Word: lower, Kind: NegationCompound})
		case simpleNegations[lower]:
			out = append(out, NegationSpan{Span: lnlp.Single(i), Word: lower, Kind: NegationSimple})
		}
	}
	return out
}

// detectDoubleNegatives returns the descriptions of every double-negative
// pattern present in [start, end].
func detectDoubleNegatives(sel lnlp.Selection, start, end int) []string {
	var words []string
	for i := start; i <= end; i++ {
		tok, ok := sel.Token(i)
		if !ok || !tok.IsWord() {
			continue
		}
		words = append(words, strings.ToLower(tok.Text))
	}

	var found []string
	for _, p := range doubleNegativePatterns {
		if p.maxGap > 0 {
			// Separated form: first word then second within maxGap words.
			for i, w := range words {
				if w != p.words[0] {
					continue
				}
				for j := i + 1; j < len(words) && j <= i+p.maxGap; j++ {
					if words[j] == p.words[1] {
						found = append(found, p.description)
						break
					}
				}
			}
			continue
		}
		for i := 0; i+len(p.words) <= len(words); i++ {
			matched := true
			for k, w := range p.words {
				if words[i+k] != w {
					matched = false
					break
				}
			}
			if matched {
				found = append(found, p.description)
				break
			}
		}
	}
	return dedupeStrings(found)
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// ComputePolarity accumulates negations over [start, end] and derives the
// clause polarity per the parity rules.
func ComputePolarity(sel lnlp.Selection, start, end int) PolarityContext {
	negations := DetectNegations(sel, start, end)
	patterns := detectDoubleNegatives(sel, start, end)

	ctx := PolarityContext{
		NegationCount: len(negations),
		NegationSpans: negations,
	}

	hasCorrelative := false
	for _, n := range negations {
		if n.Kind == NegationCorrelative {
			hasCorrelative = true
		}
	}

	if len(patterns) > 0 {
		ctx.HasDoubleNegative = true
		ctx.Polarity = PolarityAmbiguous
		ctx.Confidence = 0.6
		ctx.NeedsReview = true
		ctx.ReviewReason = strings.Join(patterns, "; ")
		return ctx
	}

	parity := len(negations) % 2
	switch {
	case len(negations) == 0:
		ctx.Polarity = PolarityPositive
		ctx.Confidence = 1.0
	case len(negations) == 1:
		ctx.Polarity = PolarityNegative
		ctx.Confidence = 0.95
	case len(negations) == 2:
		ctx.Polarity = PolarityPositive
		ctx.Confidence = 0.7
		ctx.NeedsReview = true
		ctx.ReviewReason = "double negation"
	default:
		if parity == 0 {
			ctx.Polarity = PolarityPositive
		} else {
			ctx.Polarity = PolarityNegative
		}
		ctx.Confidence = 0.5
		ctx.NeedsReview = true
		ctx.ReviewReason = "multiple negations"
	}

	if hasCorrelative && !ctx.NeedsReview {
		ctx.NeedsReview = true
		ctx.Confidence = 0.7
		ctx.ReviewReason = "correlative negation"
	} else if hasCorrelative {
		ctx.ReviewReason += "; correlative negation"
	}

	return ctx
}

// PolarityResolver attaches a PolarityContext to each sentence segment of
// a line.
type PolarityResolver struct{}

// NewPolarityResolver constructs the polarity pass.
func NewPolarityResolver() *PolarityResolver { return &PolarityResolver{} }

// ResolveLine implements lnlp.LineResolver.
func (r *PolarityResolver) ResolveLine(sel lnlp.Selection) []lnlp.Assignment[PolarityContext] {
	var out []lnlp.Assignment[PolarityContext]
	for _, segment := range sel.SplitWith(lnlp.TextIs(".", "!", "?", ";")) {
		if segment.Empty() {
			continue
		}
		ctx := ComputePolarity(segment, segment.Start, segment.End)
		out = append(out, lnlp.Assign(segment.Span(), ctx))
	}
	return out
}
