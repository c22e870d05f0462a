package contract

import (
	"sort"
	"strconv"
	"strings"

	"github.com/coolbeans/covenant/pkg/lnlp"
)

// PronounType classifies the pronouns the resolver handles.
type PronounType int

const (
	PronounPersonal PronounType = iota
	PronounPossessive
	PronounRelative
	PronounDemonstrative
)

// String returns the pronoun-type tag.
func (t PronounType) String() string {
	switch t {
	case PronounPersonal:
		return "personal"
	case PronounPossessive:
		return "possessive"
	case PronounRelative:
		return "relative"
	case PronounDemonstrative:
		return "demonstrative"
	}
	return "unknown"
}

var pronounTypes = map[string]PronounType{
	"it": PronounPersonal, "they": PronounPersonal, "them": PronounPersonal,
	"he": PronounPersonal, "she": PronounPersonal, "him": PronounPersonal, "her": PronounPersonal,
	"itself": PronounPersonal, "themselves": PronounPersonal,
	"its": PronounPossessive, "their": PronounPossessive, "theirs": PronounPossessive,
	"his": PronounPossessive, "hers": PronounPossessive,
	"who": PronounRelative, "whom": PronounRelative, "whose": PronounRelative, "which": PronounRelative,
	"this": PronounDemonstrative, "that": PronounDemonstrative,
	"these": PronounDemonstrative, "those": PronounDemonstrative,
}

var pluralPronouns = map[string]bool{
	"they": true, "them": true, "their": true, "theirs": true,
	"themselves": true, "these": true, "those": true,
}

// AntecedentCandidate is one scored antecedent for a pronoun. Candidates
// always precede the pronoun in document order.
type AntecedentCandidate struct {
	Text          string  `json:"text"`
	IsDefinedTerm bool    `json:"is_defined_term"`
	TokenDistance int     `json:"token_distance"`
	Confidence    float64 `json:"confidence"`
}

// PronounReference is the attribute attached to each resolved pronoun,
// carrying up to five candidates sorted by descending confidence.
type PronounReference struct {
	Pronoun    string                `json:"pronoun"`
	Type       PronounType           `json:"type"`
	Candidates []AntecedentCandidate `json:"candidates"`
}

// Resolved reports whether at least one candidate was found.
func (p PronounReference) Resolved() bool { return len(p.Candidates) > 0 }

// Best returns the top candidate.
func (p PronounReference) Best() (AntecedentCandidate, bool) {
	if len(p.Candidates) == 0 {
		return AntecedentCandidate{}, false
	}
	return p.Candidates[0], true
}

const maxPronounCandidates = 5

// PronounResolver resolves third-person, relative, and demonstrative
// pronouns against antecedents earlier in the document snapshot.
type PronounResolver struct {
	doc *lnlp.Document

	baseConfidence   float64
	distancePenalty  float64
	maxDistancePen   float64
	definedTermBoost float64
	sameSentence     float64
	numberAgreement  float64
	competitorPen    float64
	lookbackLines    int
}

// NewPronounResolver constructs the resolver over a document snapshot that
// already carries defined-term, term-reference, and POS attributes.
func NewPronounResolver(doc *lnlp.Document) *PronounResolver {
	return &PronounResolver{
		doc:              doc,
		baseConfidence:   0.50,
		distancePenalty:  0.02,
		maxDistancePen:   0.30,
		definedTermBoost: 0.30,
		sameSentence:     0.10,
		numberAgreement:  0.15,
		competitorPen:    0.20,
		lookbackLines:    5,
	}
}

type antecedent struct {
	text          string
	isDefinedTerm bool
	position      lnlp.DocPosition
	endToken      int
}

// ResolveLine implements lnlp.LineResolver.
func (r *PronounResolver) ResolveLine(sel lnlp.Selection) []lnlp.Assignment[lnlp.Scored[PronounReference]] {
	var out []lnlp.Assignment[lnlp.Scored[PronounReference]]

	for _, i := range sel.FindBy(lnlp.Word()) {
		lower := strings.ToLower(sel.TokenText(i))
		ptype, isPronoun := pronounTypes[lower]
		if !isPronoun {
			continue
		}
		// Demonstratives acting as determiners ("this Section") resolve in
		// the section-reference pass instead.
		if ptype == PronounDemonstrative {
			if next, ok := sel.NextWord(i); ok && isCapitalized(sel.TokenText(next)) {
				continue
			}
		}

		pronounPos := lnlp.DocPosition{Line: sel.LineIndex, Token: i}
		candidates := r.scoreCandidates(sel, pronounPos, lower)
		if len(candidates) > maxPronounCandidates {
			candidates = candidates[:maxPronounCandidates]
		}

		ref := PronounReference{
			Pronoun:    sel.TokenText(i),
			Type:       ptype,
			Candidates: candidates,
		}
		conf := 0.0
		rationale := []string{"pronoun"}
		if len(candidates) > 0 {
			conf = candidates[0].Confidence
			if len(candidates) > 1 && candidates[1].Confidence >= 0.4 {
				conf -= r.competitorPen
				rationale = append(rationale, "multiple_candidates")
			}
		} else {
			rationale = append(rationale, "unresolved")
		}

		out = append(out, lnlp.Assign(lnlp.Single(i), lnlp.NewScored(ref, conf, rationale...)))
	}
	return out
}

// scoreCandidates gathers antecedents strictly before the pronoun and
// scores them.
func (r *PronounResolver) scoreCandidates(sel lnlp.Selection, pronounPos lnlp.DocPosition, pronoun string) []AntecedentCandidate {
	ants := r.collectAntecedents(pronounPos)

	out := make([]AntecedentCandidate, 0, len(ants))
	for _, a := range ants {
		distance := lineDistanceTokens(lnlp.DocPosition{Line: a.position.Line, Token: a.endToken}, pronounPos)
		penalty := float64(distance) * r.distancePenalty
		if penalty > r.maxDistancePen {
			penalty = r.maxDistancePen
		}

		conf := r.baseConfidence - penalty
		if a.isDefinedTerm {
			conf += r.definedTermBoost
		}
		if a.position.Line == pronounPos.Line && sameSentenceOnLine(sel.Line(), a.endToken, pronounPos.Token) {
			conf += r.sameSentence
		}
		if pluralPronouns[pronoun] == isPluralSurface(a.text) {
			conf += r.numberAgreement
		}

		out = append(out, AntecedentCandidate{
			Text:          a.text,
			IsDefinedTerm: a.isDefinedTerm,
			TokenDistance: distance,
			Confidence:    lnlp.Clamp01(conf),
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	return out
}

// collectAntecedents gathers defined-term, term-reference, and proper-noun
// spans strictly before the pronoun, within the lookback window.
func (r *PronounResolver) collectAntecedents(pronounPos lnlp.DocPosition) []antecedent {
	var out []antecedent
	seen := make(map[string]bool)

	firstLine := pronounPos.Line - r.lookbackLines
	if firstLine < 0 {
		firstLine = 0
	}

	for li := firstLine; li <= pronounPos.Line; li++ {
		line := r.doc.Line(li)
		if line == nil {
			continue
		}
		before := func(span lnlp.SpanRef) bool {
			if li < pronounPos.Line {
				return true
			}
			return span.End < pronounPos.Token
		}

		for _, a := range lnlp.Attrs[lnlp.Scored[DefinedTerm]](line) {
			if !before(a.Span) {
				continue
			}
			key := "def:" + normalizeTermName(a.Value.Value.Name)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, antecedent{
				text:          a.Value.Value.Name,
				isDefinedTerm: true,
				position:      lnlp.DocPosition{Line: li, Token: a.Span.Start},
				endToken:      a.Span.End,
			})
		}
		for _, a := range lnlp.Attrs[lnlp.Scored[TermReference]](line) {
			if !before(a.Span) {
				continue
			}
			key := "ref:" + normalizeTermName(a.Value.Value.Name) + ":" + strconv.Itoa(li) + ":" + strconv.Itoa(a.Span.Start)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, antecedent{
				text:          a.Value.Value.Name,
				isDefinedTerm: true,
				position:      lnlp.DocPosition{Line: li, Token: a.Span.Start},
				endToken:      a.Span.End,
			})
		}
		for _, np := range properNounPhrases(line) {
			if !before(np.span) {
				continue
			}
			key := "np:" + strings.ToLower(np.text) + ":" + strconv.Itoa(li) + ":" + strconv.Itoa(np.span.Start)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, antecedent{
				text:     np.text,
				position: lnlp.DocPosition{Line: li, Token: np.span.Start},
				endToken: np.span.End,
			})
		}
	}
	return out
}

type nounPhrase struct {
	text string
	span lnlp.SpanRef
}

// properNounPhrases groups contiguous proper-noun tokens into phrases,
// skipping sentence-initial capitalization that tags as determiner.
func properNounPhrases(line *lnlp.Line) []nounPhrase {
	var out []nounPhrase
	tags := lnlp.Attrs[POSTag](line)

	isProper := func(i int) bool {
		for _, t := range tags {
			if t.Span.ContainsIndex(i) {
				return t.Value.Tag == PosProperNoun
			}
		}
		return false
	}

	i := 0
	for i < line.Len() {
		if !isProper(i) {
			i++
			continue
		}
		start := i
		end := i
		j := i
		for {
			next := j + 1
			// Allow one whitespace token between phrase words.
			if tok, ok := line.Token(next); ok && tok.IsWhitespace() {
				next++
			}
			if tok, ok := line.Token(next); ok && tok.IsWord() && isProper(next) {
				end = next
				j = next
				continue
			}
			break
		}
		var words []string
		for k := start; k <= end; k++ {
			if tok, ok := line.Token(k); ok && !tok.IsWhitespace() {
				words = append(words, tok.Text)
			}
		}
		out = append(out, nounPhrase{text: strings.Join(words, " "), span: lnlp.Span(start, end)})
		i = end + 1
	}
	return out
}

// sameSentenceOnLine reports no sentence-boundary token between a and b on
// the same line.
func sameSentenceOnLine(line *lnlp.Line, a, b int) bool {
	if a > b {
		a, b = b, a
	}
	for i := a; i <= b; i++ {
		if tok, ok := line.Token(i); ok && tok.IsPunc() {
			switch tok.Text {
			case ".", "!", "?", ";":
				return false
			}
		}
	}
	return true
}

// isPluralSurface applies the conservative plural heuristics: suffixes
// -ies/-ors/-ees/-ers on words of length >= 4, or the specific words
// parties/both/all.
func isPluralSurface(text string) bool {
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return false
	}
	last := words[len(words)-1]
	switch last {
	case "parties", "both", "all":
		return true
	}
	if len(last) >= 4 {
		for _, suf := range []string{"ies", "ors", "ees", "ers"} {
			if strings.HasSuffix(last, suf) {
				return true
			}
		}
	}
	return false
}
