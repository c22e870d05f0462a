package contract

import (
	"strings"

	"github.com/coolbeans/covenant/pkg/lnlp"
)

// ObligationType is the normative force of a modal in context. Discretion
// releases a party from a duty without prohibiting the action; obligation
// extraction only emits the first three.
type ObligationType int

const (
	ObligationDuty ObligationType = iota
	ObligationPermission
	ObligationProhibition
	ObligationDiscretion
)

// String returns the obligation-type tag.
func (t ObligationType) String() string {
	switch t {
	case ObligationDuty:
		return "duty"
	case ObligationPermission:
		return "permission"
	case ObligationProhibition:
		return "prohibition"
	case ObligationDiscretion:
		return "discretion"
	}
	return "unknown"
}

// DiscretionPattern names the construction that released the party.
type DiscretionPattern int

const (
	ShallNotBeRequiredTo DiscretionPattern = iota
	NeedNot
	IsNotRequiredTo
	ShallNotBeObligatedTo
	MayDeclineTo
)

// String describes the pattern.
func (p DiscretionPattern) String() string {
	switch p {
	case ShallNotBeRequiredTo:
		return "shall not be required to"
	case NeedNot:
		return "need not"
	case IsNotRequiredTo:
		return "is not required to"
	case ShallNotBeObligatedTo:
		return "shall not be obligated to"
	case MayDeclineTo:
		return "may decline to"
	}
	return "unknown"
}

// discretionWindow is how many word tokens after the modal are inspected
// for a discretion pattern.
const discretionWindow = 8

// ModalNegationClassification is the attribute attached to each modal
// anchor after polarity accounting.
type ModalNegationClassification struct {
	ObligationType    ObligationType     `json:"obligation_type"`
	Modal             KeywordKind        `json:"modal"`
	Polarity          Polarity           `json:"polarity"`
	DiscretionPattern *DiscretionPattern `json:"discretion_pattern,omitempty"`
	IsAmbiguous       bool               `json:"is_ambiguous"`
	NeedsReview       bool               `json:"needs_review"`
	Confidence        float64            `json:"confidence"`
}

// DetectDiscretionPattern scans a lowercased word window for the closed
// set of discretion constructions.
func DetectDiscretionPattern(words []string) (DiscretionPattern, bool) {
	joined := " " + strings.Join(words, " ") + " "

	contains := func(phrase string) bool {
		return strings.Contains(joined, " "+phrase+" ")
	}

	switch {
	case contains("shall not be required to"):
		return ShallNotBeRequiredTo, true
	case contains("shall not be obligated to"):
		return ShallNotBeObligatedTo, true
	case contains("is not required to"), contains("are not required to"):
		return IsNotRequiredTo, true
	case contains("need not"):
		return NeedNot, true
	case contains("may decline to"), contains("may refuse to"):
		return MayDeclineTo, true
	}
	return 0, false
}

// ClassifyModal derives the obligation type from a modal keyword and its
// clause polarity, then checks the following tokens for a discretion
// override.
func ClassifyModal(modal KeywordKind, polarity PolarityContext, followingWords []string) ModalNegationClassification {
	c := ModalNegationClassification{
		Modal:      modal,
		Polarity:   polarity.Polarity,
		Confidence: polarity.Confidence,
	}

	negated := polarity.Polarity == PolarityNegative || modal.IsNegatedModal()

	switch {
	case polarity.Polarity == PolarityAmbiguous:
		// Best guess on the modal alone, flagged for review.
		c.IsAmbiguous = true
		c.NeedsReview = true
		if modal == KwMay || modal == KwCan {
			c.ObligationType = ObligationPermission
		} else {
			c.ObligationType = ObligationDuty
		}
	case negated:
		c.ObligationType = ObligationProhibition
	case modal == KwMay || modal == KwCan:
		c.ObligationType = ObligationPermission
	default:
		c.ObligationType = ObligationDuty
	}
	if polarity.NeedsReview {
		c.NeedsReview = true
	}

	window := followingWords
	if len(window) > discretionWindow {
		window = window[:discretionWindow]
	}
	if pattern, ok := DetectDiscretionPattern(window); ok {
		p := pattern
		c.ObligationType = ObligationDiscretion
		c.DiscretionPattern = &p
		c.IsAmbiguous = true
		c.NeedsReview = true
	}

	return c
}

// ModalNegationResolver classifies every modal anchor on a line.
type ModalNegationResolver struct{}

// NewModalNegationResolver constructs the classifier pass.
func NewModalNegationResolver() *ModalNegationResolver { return &ModalNegationResolver{} }

// ResolveLine implements lnlp.LineResolver.
func (r *ModalNegationResolver) ResolveLine(sel lnlp.Selection) []lnlp.Assignment[ModalNegationClassification] {
	var out []lnlp.Assignment[ModalNegationClassification]

	anchors := ModalAnchors(sel.Line())
	for _, anchor := range anchors {
		windowEnd := clauseWindowEnd(sel, anchor.Span.End, anchors)
		polarity := ComputePolarity(sel, anchor.Span.Start, windowEnd)

		var following []string
		for i := anchor.Span.Start; i <= windowEnd; i++ {
			tok, ok := sel.Token(i)
			if !ok || !tok.IsWord() {
				continue
			}
			following = append(following, strings.ToLower(tok.Text))
			if len(following) >= discretionWindow {
				break
			}
		}

		out = append(out, lnlp.Assign(anchor.Span, ClassifyModal(anchor.Value.Kind, polarity, following)))
	}
	return out
}

// clauseWindowEnd returns the last token of the modal's clause window: up
// to the next modal anchor or sentence boundary on the line.
func clauseWindowEnd(sel lnlp.Selection, after int, anchors []lnlp.Attr[ContractKeyword]) int {
	end := sel.End
	if b, ok := sel.MatchFirstForwards(after+1, lnlp.TextIs(".", "!", "?", ";")); ok {
		end = b - 1
	}
	for _, a := range anchors {
		if a.Span.Start > after && a.Span.Start-1 < end {
			end = a.Span.Start - 1
		}
	}
	if end < after {
		end = after
	}
	return end
}
