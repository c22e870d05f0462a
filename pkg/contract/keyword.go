// Package contract provides the contract-domain resolver set: keywords,
// terms of art, temporal expressions, definitions, references, pronouns,
// section headers, polarity, modal classification, and obligations.
package contract

import (
	"strings"

	"github.com/coolbeans/covenant/pkg/lnlp"
)

// KeywordKind enumerates the contract keywords the lexical pass detects.
type KeywordKind int

const (
	KwShall KeywordKind = iota
	KwMay
	KwShallNot
	KwMust
	KwMustNot
	KwCannot
	KwWill
	KwWillNot
	KwCan
	KwMeans
	KwIncludes
	KwHereinafter
	KwIf
	KwUnless
	KwProvided
	KwSubjectTo
	KwParty
	KwAnd
	KwOr
	KwBut
	KwNor
	KwException
)

// String returns the keyword tag.
func (k KeywordKind) String() string {
	switch k {
	case KwShall:
		return "shall"
	case KwMay:
		return "may"
	case KwShallNot:
		return "shall_not"
	case KwMust:
		return "must"
	case KwMustNot:
		return "must_not"
	case KwCannot:
		return "cannot"
	case KwWill:
		return "will"
	case KwWillNot:
		return "will_not"
	case KwCan:
		return "can"
	case KwMeans:
		return "means"
	case KwIncludes:
		return "includes"
	case KwHereinafter:
		return "hereinafter"
	case KwIf:
		return "if"
	case KwUnless:
		return "unless"
	case KwProvided:
		return "provided"
	case KwSubjectTo:
		return "subject_to"
	case KwParty:
		return "party"
	case KwAnd:
		return "and"
	case KwOr:
		return "or"
	case KwBut:
		return "but"
	case KwNor:
		return "nor"
	case KwException:
		return "exception"
	}
	return "unknown"
}

// IsModal reports whether the keyword introduces a normative relation.
func (k KeywordKind) IsModal() bool {
	switch k {
	case KwShall, KwMay, KwShallNot, KwMust, KwMustNot, KwCannot, KwWill, KwWillNot, KwCan:
		return true
	}
	return false
}

// IsNegatedModal reports whether the keyword is a negated modal compound.
func (k KeywordKind) IsNegatedModal() bool {
	switch k {
	case KwShallNot, KwMustNot, KwWillNot, KwCannot:
		return true
	}
	return false
}

// IsCondition reports whether the keyword starts a condition.
func (k KeywordKind) IsCondition() bool {
	switch k {
	case KwIf, KwUnless, KwProvided, KwSubjectTo:
		return true
	}
	return false
}

// IsCoordination reports whether the keyword coordinates clauses.
func (k KeywordKind) IsCoordination() bool {
	switch k {
	case KwAnd, KwOr, KwBut, KwNor:
		return true
	}
	return false
}

// IsExceptionKeyword reports whether the keyword introduces an exception.
func (k KeywordKind) IsExceptionKeyword() bool {
	switch k {
	case KwUnless, KwException, KwProvided, KwSubjectTo:
		return true
	}
	return false
}

// ContractKeyword is the attribute attached to keyword spans. Compounds
// ("shall not", "subject to") cover both words; the inner modal keeps its
// own single-token annotation, so downstream passes must skip sub-spans.
type ContractKeyword struct {
	Kind KeywordKind
}

// KeywordResolver recognizes the modal and logical-connective keywords of
// the contract vocabulary.
type KeywordResolver struct{}

// NewKeywordResolver constructs the base keyword resolver.
func NewKeywordResolver() *KeywordResolver { return &KeywordResolver{} }

// ResolveLine implements lnlp.LineResolver.
func (r *KeywordResolver) ResolveLine(sel lnlp.Selection) []lnlp.Assignment[ContractKeyword] {
	var out []lnlp.Assignment[ContractKeyword]

	emit := func(span lnlp.SpanRef, kind KeywordKind) {
		out = append(out, lnlp.Assign(span, ContractKeyword{Kind: kind}))
	}

	for _, i := range sel.FindBy(lnlp.Word()) {
		word := strings.ToLower(sel.TokenText(i))
		next, hasNext := sel.NextWord(i)

		switch word {
		case "shall":
			if hasNext && strings.EqualFold(sel.TokenText(next), "not") {
				emit(lnlp.Span(i, next), KwShallNot)
			}
			emit(lnlp.Single(i), KwShall)
		case "must":
			if hasNext && strings.EqualFold(sel.TokenText(next), "not") {
				emit(lnlp.Span(i, next), KwMustNot)
			}
			emit(lnlp.Single(i), KwMust)
		case "will":
			if hasNext && strings.EqualFold(sel.TokenText(next), "not") {
				emit(lnlp.Span(i, next), KwWillNot)
			}
			emit(lnlp.Single(i), KwWill)
		case "may":
			emit(lnlp.Single(i), KwMay)
		case "cannot":
			emit(lnlp.Single(i), KwCannot)
		case "can":
			emit(lnlp.Single(i), KwCan)
		case "means":
			emit(lnlp.Single(i), KwMeans)
		case "includes":
			emit(lnlp.Single(i), KwIncludes)
		case "hereinafter":
			emit(lnlp.Single(i), KwHereinafter)
		case "if":
			emit(lnlp.Single(i), KwIf)
		case "unless":
			emit(lnlp.Single(i), KwUnless)
		case "provided":
			if hasNext && strings.EqualFold(sel.TokenText(next), "that") {
				emit(lnlp.Span(i, next), KwProvided)
			} else {
				emit(lnlp.Single(i), KwProvided)
			}
		case "subject":
			if hasNext && strings.EqualFold(sel.TokenText(next), "to") {
				emit(lnlp.Span(i, next), KwSubjectTo)
			}
		case "party", "parties":
			emit(lnlp.Single(i), KwParty)
		case "and":
			emit(lnlp.Single(i), KwAnd)
		case "or":
			emit(lnlp.Single(i), KwOr)
		case "but":
			emit(lnlp.Single(i), KwBut)
		case "nor":
			emit(lnlp.Single(i), KwNor)
		case "except", "excepting", "notwithstanding":
			emit(lnlp.Single(i), KwException)
		}
	}

	return out
}

// ProhibitionResolver normalizes "may not" and "cannot" to ShallNot
// equivalents. It runs after the base keyword pass and emits additional
// ContractKeyword spans; the inner May/Cannot annotations remain.
type ProhibitionResolver struct{}

// NewProhibitionResolver constructs the prohibition normalizer.
func NewProhibitionResolver() *ProhibitionResolver { return &ProhibitionResolver{} }

// ResolveLine implements lnlp.LineResolver.
func (r *ProhibitionResolver) ResolveLine(sel lnlp.Selection) []lnlp.Assignment[ContractKeyword] {
	var out []lnlp.Assignment[ContractKeyword]

	for _, a := range lnlp.Attrs[ContractKeyword](sel.Line()) {
		switch a.Value.Kind {
		case KwMay:
			next, ok := sel.NextWord(a.Span.End)
			if ok && strings.EqualFold(sel.TokenText(next), "not") {
				out = append(out, lnlp.Assign(lnlp.Span(a.Span.Start, next), ContractKeyword{Kind: KwShallNot}))
			}
		case KwCannot:
			out = append(out, lnlp.Assign(a.Span, ContractKeyword{Kind: KwShallNot}))
		}
	}
	return out
}

// ModalAnchors returns the modal keyword attributes on a line that should
// anchor obligation extraction: negated-modal compounds win over any modal
// contained in (or equal to) their span, so one "shall not" yields exactly
// one anchor.
func ModalAnchors(l *lnlp.Line) []lnlp.Attr[ContractKeyword] {
	all := lnlp.Attrs[ContractKeyword](l)

	var anchors []lnlp.Attr[ContractKeyword]
	for _, a := range all {
		if !a.Value.Kind.IsModal() {
			continue
		}
		shadowed := false
		for _, b := range all {
			if !b.Value.Kind.IsNegatedModal() || !b.Span.Contains(a.Span) {
				continue
			}
			// A strictly wider negated compound shadows its inner modal;
			// at equal span the ShallNot normalization wins over the base
			// keyword ("cannot").
			if b.Span != a.Span || (b.Value.Kind == KwShallNot && a.Value.Kind != KwShallNot) {
				shadowed = true
				break
			}
		}
		if !shadowed {
			anchors = append(anchors, a)
		}
	}
	return anchors
}

// KeywordsOfKind returns the keyword attrs of a given kind on a line.
func KeywordsOfKind(l *lnlp.Line, kind KeywordKind) []lnlp.Attr[ContractKeyword] {
	var out []lnlp.Attr[ContractKeyword]
	for _, a := range lnlp.Attrs[ContractKeyword](l) {
		if a.Value.Kind == kind {
			out = append(out, a)
		}
	}
	return out
}
