package contract

import (
	"strconv"
	"strings"
)

// SectionKind is the named heading kind of pattern-1 headers.
type SectionKind int

const (
	KindArticle SectionKind = iota
	KindSection
	KindSubsection
	KindParagraph
	KindClause
	KindExhibit
	KindSchedule
	KindAnnex
	KindAppendix
	KindRecital
	KindDefinitions
)

// String returns the upper-case canonical kind tag.
func (k SectionKind) String() string {
	switch k {
	case KindArticle:
		return "ARTICLE"
	case KindSection:
		return "SECTION"
	case KindSubsection:
		return "SUBSECTION"
	case KindParagraph:
		return "PARAGRAPH"
	case KindClause:
		return "CLAUSE"
	case KindExhibit:
		return "EXHIBIT"
	case KindSchedule:
		return "SCHEDULE"
	case KindAnnex:
		return "ANNEX"
	case KindAppendix:
		return "APPENDIX"
	case KindRecital:
		return "RECITAL"
	case KindDefinitions:
		return "DEFINITIONS"
	}
	return "UNKNOWN"
}

var sectionKinds = map[string]SectionKind{
	"article": KindArticle, "section": KindSection, "subsection": KindSubsection,
	"paragraph": KindParagraph, "clause": KindClause, "exhibit": KindExhibit,
	"schedule": KindSchedule, "annex": KindAnnex, "appendix": KindAppendix,
	"recital": KindRecital, "definitions": KindDefinitions,
}

// SectionKindOf parses a heading kind word (singular or plural).
func SectionKindOf(word string) (SectionKind, bool) {
	lower := strings.ToLower(strings.TrimSuffix(word, "s"))
	if k, ok := sectionKinds[lower]; ok {
		return k, true
	}
	if k, ok := sectionKinds[strings.ToLower(word)]; ok {
		return k, true
	}
	return 0, false
}

// IdentifierKind discriminates the SectionIdentifier union.
type IdentifierKind int

const (
	IdentNumeric IdentifierKind = iota
	IdentRoman
	IdentAlpha
	IdentNamed
)

// LetterCase records the case of roman and alpha identifiers.
type LetterCase int

const (
	CaseUpper LetterCase = iota
	CaseLower
)

// SectionIdentifier is the tagged identifier union. Exactly the fields of
// the active Kind are meaningful.
type SectionIdentifier struct {
	Kind IdentifierKind `json:"kind"`

	// Numeric: dotted parts, e.g. [1, 2] for "1.2".
	Parts []int `json:"parts,omitempty"`

	// Roman: value and case.
	RomanValue int        `json:"roman_value,omitempty"`
	RomanCase  LetterCase `json:"roman_case,omitempty"`

	// Alpha: a single letter, optionally parenthesized.
	Letter        rune       `json:"letter,omitempty"`
	Parenthesized bool       `json:"parenthesized,omitempty"`
	LetterCase    LetterCase `json:"letter_case,omitempty"`

	// Named: a heading kind plus optional sub-identifier.
	Named *SectionKind       `json:"named,omitempty"`
	Sub   *SectionIdentifier `json:"sub,omitempty"`
}

// NumericIdentifier builds a dotted numeric identifier.
func NumericIdentifier(parts ...int) SectionIdentifier {
	return SectionIdentifier{Kind: IdentNumeric, Parts: parts}
}

// RomanIdentifier builds a roman identifier.
func RomanIdentifier(value int, c LetterCase) SectionIdentifier {
	return SectionIdentifier{Kind: IdentRoman, RomanValue: value, RomanCase: c}
}

// AlphaIdentifier builds a letter identifier.
func AlphaIdentifier(letter rune, parenthesized bool, c LetterCase) SectionIdentifier {
	return SectionIdentifier{Kind: IdentAlpha, Letter: letter, Parenthesized: parenthesized, LetterCase: c}
}

// NamedIdentifier builds a named identifier with an optional sub.
func NamedIdentifier(kind SectionKind, sub *SectionIdentifier) SectionIdentifier {
	return SectionIdentifier{Kind: IdentNamed, Named: &kind, Sub: sub}
}

// Depth returns the outline depth of the identifier: dotted numerics by
// part count, romans at the top, letters nested below, parenthesized
// letters deepest.
func (id SectionIdentifier) Depth() int {
	switch id.Kind {
	case IdentNumeric:
		return len(id.Parts)
	case IdentRoman:
		return 1
	case IdentAlpha:
		if id.Parenthesized {
			return 5
		}
		return 4
	case IdentNamed:
		if id.Sub == nil {
			return 1
		}
		return 1 + id.Sub.Depth()
	}
	return 1
}

// Canonical returns the deterministic string form, e.g. "ARTICLE:R1",
// "SECTION:1.2", "a".
func (id SectionIdentifier) Canonical() string {
	switch id.Kind {
	case IdentNumeric:
		parts := make([]string, len(id.Parts))
		for i, p := range id.Parts {
			parts[i] = strconv.Itoa(p)
		}
		return strings.Join(parts, ".")
	case IdentRoman:
		if id.RomanCase == CaseLower {
			return "r" + strconv.Itoa(id.RomanValue)
		}
		return "R" + strconv.Itoa(id.RomanValue)
	case IdentAlpha:
		if id.LetterCase == CaseUpper {
			return strings.ToUpper(string(id.Letter))
		}
		return strings.ToLower(string(id.Letter))
	case IdentNamed:
		if id.Sub == nil {
			return id.Named.String()
		}
		return id.Named.String() + ":" + id.Sub.Canonical()
	}
	return ""
}

// SubCanonical returns the canonical form of the sub-identifier alone, or
// "" when there is none.
func (id SectionIdentifier) SubCanonical() string {
	if id.Kind == IdentNamed && id.Sub != nil {
		return id.Sub.Canonical()
	}
	return ""
}

var romanValues = map[rune]int{'i': 1, 'v': 5, 'x': 10, 'l': 50, 'c': 100, 'd': 500, 'm': 1000}

// ParseRoman parses a roman numeral in a consistent case. Mixed case or
// non-roman characters fail.
func ParseRoman(text string) (int, LetterCase, bool) {
	if text == "" {
		return 0, CaseUpper, false
	}
	c := CaseLower
	if text == strings.ToUpper(text) {
		c = CaseUpper
	} else if text != strings.ToLower(text) {
		return 0, CaseUpper, false
	}

	lower := strings.ToLower(text)
	total := 0
	prev := 0
	for i := len(lower) - 1; i >= 0; i-- {
		v, ok := romanValues[rune(lower[i])]
		if !ok {
			return 0, CaseUpper, false
		}
		if v < prev {
			total -= v
		} else {
			total += v
			prev = v
		}
	}
	if total <= 0 || total > 3999 {
		return 0, CaseUpper, false
	}
	return total, c, true
}

// letterCaseOf returns the case of a single letter.
func letterCaseOf(r rune) LetterCase {
	if r >= 'A' && r <= 'Z' {
		return CaseUpper
	}
	return CaseLower
}
