package contract

import (
	"strings"

	"github.com/coolbeans/covenant/pkg/lnlp"
)

// ConditionKind is the condition introducer of a ConditionRef.
type ConditionKind int

const (
	ConditionIf ConditionKind = iota
	ConditionUnless
	ConditionProvided
	ConditionSubjectTo
)

// String returns the condition tag.
func (k ConditionKind) String() string {
	switch k {
	case ConditionIf:
		return "if"
	case ConditionUnless:
		return "unless"
	case ConditionProvided:
		return "provided"
	case ConditionSubjectTo:
		return "subject_to"
	}
	return "unknown"
}

func conditionKindOf(kw KeywordKind) (ConditionKind, bool) {
	switch kw {
	case KwIf:
		return ConditionIf, true
	case KwUnless:
		return ConditionUnless, true
	case KwProvided:
		return ConditionProvided, true
	case KwSubjectTo:
		return ConditionSubjectTo, true
	}
	return 0, false
}

// ConditionRef points an obligation at a condition in the same sentence,
// with a short ellipsized preview.
type ConditionRef struct {
	Kind    ConditionKind `json:"kind"`
	Preview string        `json:"preview"`
	Span    lnlp.SpanRef  `json:"span"`
}

// ObligorKind discriminates how the obligor was found.
type ObligorKind int

const (
	ObligorTermReference ObligorKind = iota
	ObligorPronoun
	ObligorNounPhrase
)

// String returns the obligor-kind tag.
func (k ObligorKind) String() string {
	switch k {
	case ObligorTermReference:
		return "term_reference"
	case ObligorPronoun:
		return "pronoun"
	case ObligorNounPhrase:
		return "noun_phrase"
	}
	return "unknown"
}

// Obligor is the party an obligation attaches to.
type Obligor struct {
	Kind          ObligorKind  `json:"kind"`
	Text          string       `json:"text"`
	Span          lnlp.SpanRef `json:"span"`
	IsDefinedTerm bool         `json:"is_defined_term"`
	// ViaDefinedTerm is set for pronouns whose best antecedent is a
	// defined term.
	ViaDefinedTerm bool `json:"via_defined_term,omitempty"`
}

// ObligationPhrase is a modal-anchored normative statement: who must (or
// may, or must not) do what, under which conditions.
type ObligationPhrase struct {
	Obligor    Obligor        `json:"obligor"`
	Type       ObligationType `json:"type"`
	Action     string         `json:"action"`
	ActionSpan lnlp.SpanRef   `json:"action_span"`
	Conditions []ConditionRef `json:"conditions,omitempty"`
}

// Association labels attached to obligation attributes.
const (
	AssocObligorSource = "obligor_source"
	AssocActionSpan    = "action_span"
)

// ObligationResolver extracts obligation phrases anchored on modal
// keywords. A Shall nested inside a ShallNot span never produces its own
// obligation.
type ObligationResolver struct {
	baseConfidence float64
}

// NewObligationResolver constructs the resolver.
func NewObligationResolver() *ObligationResolver {
	return &ObligationResolver{baseConfidence: 0.75}
}

// ResolveLine implements lnlp.LineResolver.
func (r *ObligationResolver) ResolveLine(sel lnlp.Selection) []lnlp.Assignment[lnlp.Scored[ObligationPhrase]] {
	var out []lnlp.Assignment[lnlp.Scored[ObligationPhrase]]

	anchors := ModalAnchors(sel.Line())
	for _, anchor := range anchors {
		obligationType, skip := r.obligationTypeFor(sel, anchor)
		if skip {
			continue
		}

		obligor, competitors, found := r.findObligor(sel, anchor.Span.Start)
		if !found {
			// No obligor, no obligation; this is not an error.
			continue
		}

		actionSpan, action := r.extractAction(sel, anchor, anchors)
		conditions := r.findConditions(sel, anchor, anchors)

		conf := r.baseConfidence
		rationale := []string{"modal_anchor"}
		if obligor.IsDefinedTerm {
			conf += 0.10
			rationale = append(rationale, "defined_term_obligor")
		}
		if obligor.Kind == ObligorPronoun {
			conf += 0.05
			rationale = append(rationale, "pronoun_chain")
			if obligor.ViaDefinedTerm {
				conf += 0.10
				rationale = append(rationale, "pronoun_defined_term")
			}
		}
		if competitors > 1 {
			conf -= 0.15
			rationale = append(rationale, "multiple_obligor_candidates")
		}
		if action == "" {
			conf -= 0.10
			rationale = append(rationale, "empty_action")
		}

		phrase := ObligationPhrase{
			Obligor:    obligor,
			Type:       obligationType,
			Action:     action,
			ActionSpan: actionSpan,
			Conditions: conditions,
		}

		out = append(out, lnlp.Assign(anchor.Span, lnlp.NewScored(phrase, conf, rationale...),
			lnlp.Association{Label: AssocObligorSource, Glyph: '◆', Target: obligor.Span},
			lnlp.Association{Label: AssocActionSpan, Glyph: '▸', Target: actionSpan},
		))
	}
	return out
}

// obligationTypeFor reads the modal-negation classification when present;
// discretion releases produce no obligation phrase.
func (r *ObligationResolver) obligationTypeFor(sel lnlp.Selection, anchor lnlp.Attr[ContractKeyword]) (ObligationType, bool) {
	for _, c := range lnlp.Attrs[ModalNegationClassification](sel.Line()) {
		if c.Span == anchor.Span {
			if c.Value.ObligationType == ObligationDiscretion {
				return 0, true
			}
			return c.Value.ObligationType, false
		}
	}
	switch {
	case anchor.Value.Kind.IsNegatedModal():
		return ObligationProhibition, false
	case anchor.Value.Kind == KwMay || anchor.Value.Kind == KwCan:
		return ObligationPermission, false
	default:
		return ObligationDuty, false
	}
}

// findObligor looks backwards from the modal for the nearest term
// reference, resolved pronoun, or proper-noun phrase. Returns the obligor
// and how many distinct candidates competed.
func (r *ObligationResolver) findObligor(sel lnlp.Selection, modalStart int) (Obligor, int, bool) {
	line := sel.Line()
	var candidates []Obligor

	for _, a := range lnlp.Attrs[lnlp.Scored[TermReference]](line) {
		if a.Span.End < modalStart {
			candidates = append(candidates, Obligor{
				Kind:          ObligorTermReference,
				Text:          a.Value.Value.Name,
				Span:          a.Span,
				IsDefinedTerm: true,
			})
		}
	}
	for _, a := range lnlp.Attrs[lnlp.Scored[PronounReference]](line) {
		if a.Span.End >= modalStart || !a.Value.Value.Resolved() {
			continue
		}
		best, _ := a.Value.Value.Best()
		candidates = append(candidates, Obligor{
			Kind:           ObligorPronoun,
			Text:           a.Value.Value.Pronoun,
			Span:           a.Span,
			ViaDefinedTerm: best.IsDefinedTerm,
		})
	}
	for _, np := range properNounPhrases(line) {
		if np.span.End < modalStart {
			candidates = append(candidates, Obligor{
				Kind: ObligorNounPhrase,
				Text: np.text,
				Span: np.span,
			})
		}
	}

	if len(candidates) == 0 {
		return Obligor{}, 0, false
	}

	best := candidates[0]
	distinct := make(map[lnlp.SpanRef]bool)
	for _, c := range candidates {
		distinct[c.Span] = true
		if c.Span.End > best.Span.End {
			best = c
		} else if c.Span.End == best.Span.End && c.Kind < best.Kind {
			// Equal distance: prefer term reference over pronoun over
			// noun phrase.
			best = c
		}
	}
	return best, len(distinct), true
}

// extractAction walks forward from the modal, stopping at sentence
// punctuation, another modal anchor, or a condition keyword, then trims a
// trailing `and/or [the] <CapitalizedWord>` next-obligor fragment.
func (r *ObligationResolver) extractAction(sel lnlp.Selection, anchor lnlp.Attr[ContractKeyword], anchors []lnlp.Attr[ContractKeyword]) (lnlp.SpanRef, string) {
	start, ok := sel.SkipWhitespaceForwards(anchor.Span.End + 1)
	if !ok {
		return lnlp.Span(anchor.Span.End+1, anchor.Span.End), ""
	}

	end := start - 1
	conditionStarts := conditionKeywordStarts(sel.Line())

	for i := start; i <= sel.End; i++ {
		tok, okTok := sel.Token(i)
		if !okTok {
			break
		}
		if tok.IsPunc() {
			if tok.Text == "." || tok.Text == ";" || tok.Text == "!" || tok.Text == "?" {
				break
			}
		}
		if anchorStartsAt(anchors, i) && i > anchor.Span.End {
			break
		}
		if conditionStarts[i] {
			break
		}
		end = i
	}

	if end < start {
		return lnlp.Span(start, start-1), ""
	}

	end = trimTrailingObligor(sel, start, end)
	span := lnlp.Span(start, end)
	return span, strings.TrimSpace(sel.Line().TextIn(span))
}

func anchorStartsAt(anchors []lnlp.Attr[ContractKeyword], i int) bool {
	for _, a := range anchors {
		if a.Span.Start == i {
			return true
		}
	}
	return false
}

func conditionKeywordStarts(line *lnlp.Line) map[int]bool {
	out := make(map[int]bool)
	for _, a := range lnlp.Attrs[ContractKeyword](line) {
		if a.Value.Kind.IsCondition() {
			out[a.Span.Start] = true
		}
	}
	return out
}

// trimTrailingObligor drops a dangling `and/or [the] <CapitalizedWord>`
// tail that names the next clause's obligor.
func trimTrailingObligor(sel lnlp.Selection, start, end int) int {
	last, ok := sel.SkipWhitespaceBackwards(end)
	if !ok || last < start {
		return end
	}
	lastTok, _ := sel.Token(last)
	if !lastTok.IsWord() || !isCapitalized(lastTok.Text) {
		return end
	}

	prev, ok := sel.PrevWord(last)
	if !ok || prev < start {
		return end
	}
	prevText := strings.ToLower(sel.TokenText(prev))

	cut := -1
	if prevText == "and" || prevText == "or" {
		cut = prev
	} else if prevText == "the" {
		prev2, ok2 := sel.PrevWord(prev)
		if ok2 && prev2 >= start {
			p2 := strings.ToLower(sel.TokenText(prev2))
			if p2 == "and" || p2 == "or" {
				cut = prev2
			}
		}
	}
	if cut < 0 {
		return end
	}

	trimmed, ok := sel.SkipWhitespaceBackwards(cut - 1)
	if !ok || trimmed < start {
		return end
	}
	return trimmed
}

// conditionPreviewTokens is the preview length limit.
const conditionPreviewTokens = 6

// findConditions attaches conditions whose keyword sits in the modal's
// clause window: between this modal and the next one, within the same
// sentence. Prefix conditions attach unless another modal intervenes.
func (r *ObligationResolver) findConditions(sel lnlp.Selection, anchor lnlp.Attr[ContractKeyword], anchors []lnlp.Attr[ContractKeyword]) []ConditionRef {
	var out []ConditionRef

	nextModalStart := sel.End + 1
	for _, a := range anchors {
		if a.Span.Start > anchor.Span.End && a.Span.Start < nextModalStart {
			nextModalStart = a.Span.Start
		}
	}

	for _, c := range lnlp.Attrs[ContractKeyword](sel.Line()) {
		kind, isCondition := conditionKindOf(c.Value.Kind)
		if !isCondition {
			continue
		}
		pos := c.Span.Start
		if !sameSentenceOnLine(sel.Line(), anchor.Span.Start, pos) {
			continue
		}

		if pos > anchor.Span.End {
			// Suffix condition: must precede the next modal.
			if pos >= nextModalStart {
				continue
			}
		} else {
			// Prefix condition: reject when a modal intervenes.
			intervenes := false
			for _, a := range anchors {
				if a.Span.Start > pos && a.Span.End < anchor.Span.Start {
					intervenes = true
					break
				}
			}
			if intervenes {
				continue
			}
		}

		out = append(out, ConditionRef{
			Kind:    kind,
			Preview: conditionPreview(sel, c.Span, anchors),
			Span:    c.Span,
		})
	}
	return out
}

// conditionPreview renders up to six content tokens after the condition
// keyword, ellipsized when truncated, stopping at any modal.
func conditionPreview(sel lnlp.Selection, kwSpan lnlp.SpanRef, anchors []lnlp.Attr[ContractKeyword]) string {
	var words []string
	truncated := false

scan:
	for i := kwSpan.End + 1; i <= sel.End; i++ {
		tok, ok := sel.Token(i)
		if !ok || anchorStartsAt(anchors, i) {
			break
		}
		keep := false
		switch {
		case tok.IsWord(), tok.IsNatN():
			keep = true
		case tok.IsPunc():
			switch tok.Text {
			case "§", "-", "(", ")":
				keep = true
			case ".", ";", "!", "?":
				break scan
			}
		}
		if !keep {
			continue
		}
		if len(words) == conditionPreviewTokens {
			truncated = true
			break
		}
		words = append(words, tok.Text)
	}

	preview := strings.Join(words, " ")
	if truncated {
		preview += "…"
	}
	return preview
}
