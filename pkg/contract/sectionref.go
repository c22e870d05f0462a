package contract

import (
	"strings"

	"github.com/coolbeans/covenant/pkg/lnlp"
)

// ReferenceKind discriminates section reference variants.
type ReferenceKind int

const (
	RefDirect ReferenceKind = iota
	RefRange
	RefList
	RefRelative
	RefExternal
)

// RelativeKind is the flavor of a relative reference.
type RelativeKind int

const (
	RelThis RelativeKind = iota
	RelForegoing
	RelAbove
	RelBelow
	RelHereof
	RelHerein
)

// String returns the relative-kind tag.
func (k RelativeKind) String() string {
	switch k {
	case RelThis:
		return "this"
	case RelForegoing:
		return "foregoing"
	case RelAbove:
		return "above"
	case RelBelow:
		return "below"
	case RelHereof:
		return "hereof"
	case RelHerein:
		return "herein"
	}
	return "unknown"
}

// SectionReference is a detected reference to a section. Target may be
// unresolved at line level; the document-wide linker resolves it against
// the built structure.
type SectionReference struct {
	Kind       ReferenceKind      `json:"kind"`
	Target     *SectionIdentifier `json:"target,omitempty"`
	RangeEnd   *SectionIdentifier `json:"range_end,omitempty"`
	Targets    []SectionIdentifier `json:"targets,omitempty"`
	Relative   RelativeKind       `json:"relative,omitempty"`
	External   string             `json:"external,omitempty"`
	Text       string             `json:"text"`
	Purpose    string             `json:"purpose,omitempty"`
}

// SectionReferenceResolver detects references to sections: relative
// ("this Section", "herein"), direct ("Section 1.2"), ranges, and lists.
type SectionReferenceResolver struct {
	directConfidence   float64
	relativeConfidence float64
}

// NewSectionReferenceResolver constructs the resolver.
func NewSectionReferenceResolver() *SectionReferenceResolver {
	return &SectionReferenceResolver{
		directConfidence:   0.90,
		relativeConfidence: 0.85,
	}
}

var relativeSuffixes = map[string]RelativeKind{
	"above":  RelAbove,
	"below":  RelBelow,
	"hereof": RelHereof,
	"herein": RelHerein,
}

// ResolveLine implements lnlp.LineResolver.
func (r *SectionReferenceResolver) ResolveLine(sel lnlp.Selection) []lnlp.Assignment[lnlp.Scored[SectionReference]] {
	var out []lnlp.Assignment[lnlp.Scored[SectionReference]]
	claimed := make(map[int]bool)

	claim := func(span lnlp.SpanRef) {
		for i := span.Start; i <= span.End; i++ {
			claimed[i] = true
		}
	}

	for _, i := range sel.FindBy(lnlp.Word()) {
		if claimed[i] {
			continue
		}
		word := strings.ToLower(sel.TokenText(i))

		// `this|such <Kind>` — relative reference to the enclosing unit.
		if word == "this" || word == "such" {
			next, ok := sel.NextWord(i)
			if !ok {
				continue
			}
			if _, isKind := SectionKindOf(sel.TokenText(next)); !isKind {
				continue
			}
			// "this Section 3.1" carries an explicit target after the kind.
			if a, ok2 := r.tryDirect(sel, next); ok2 {
				ref := a.Value.Value
				ref.Text = sel.Line().TextIn(lnlp.Span(i, a.Span.End))
				span := lnlp.Span(i, a.Span.End)
				out = append(out, lnlp.Assign(span, lnlp.NewScored(ref, a.Value.Confidence, a.Value.Rationale...)))
				claim(span)
				continue
			}
			span := lnlp.Span(i, next)
			ref := SectionReference{
				Kind:     RefRelative,
				Relative: RelThis,
				Text:     sel.Line().TextIn(span),
			}
			out = append(out, lnlp.Assign(span, lnlp.NewScored(ref, r.relativeConfidence, "relative_reference")))
			claim(span)
			continue
		}

		// Standalone herein / hereof.
		if word == "herein" || word == "hereof" {
			ref := SectionReference{
				Kind:     RefRelative,
				Relative: relativeSuffixes[word],
				Text:     sel.TokenText(i),
			}
			out = append(out, lnlp.Assign(lnlp.Single(i), lnlp.NewScored(ref, r.relativeConfidence, "relative_reference")))
			claim(lnlp.Single(i))
			continue
		}

		// The foregoing <Kind>.
		if word == "foregoing" {
			prev, okPrev := sel.PrevWord(i)
			if okPrev && strings.EqualFold(sel.TokenText(prev), "the") {
				span := lnlp.Span(prev, i)
				ref := SectionReference{Kind: RefRelative, Relative: RelForegoing, Text: sel.Line().TextIn(span)}
				out = append(out, lnlp.Assign(span, lnlp.NewScored(ref, r.relativeConfidence, "relative_reference")))
				claim(span)
			}
			continue
		}

		// `<Kind> <id>` and plural range/list forms.
		if a, ok := r.tryDirect(sel, i); ok {
			out = append(out, a)
			claim(a.Span)
		}
	}
	return out
}

// tryDirect matches `<Kind> <id>` (optionally plural with a range or
// list), with an optional relative suffix.
func (r *SectionReferenceResolver) tryDirect(sel lnlp.Selection, i int) (lnlp.Assignment[lnlp.Scored[SectionReference]], bool) {
	var zero lnlp.Assignment[lnlp.Scored[SectionReference]]

	word := sel.TokenText(i)
	kind, ok := SectionKindOf(word)
	if !ok || kind == KindDefinitions || kind == KindRecital {
		return zero, false
	}
	plural := strings.HasSuffix(strings.ToLower(word), "s")

	headerResolver := SectionHeaderResolver{}
	idIdx, ok := sel.NextWord(i)
	if !ok {
		return zero, false
	}
	first, idEnd, ok := headerResolver.parseIdentifierAt(sel, idIdx)
	if !ok {
		return zero, false
	}

	target := NamedIdentifier(kind, &first)
	end := idEnd
	ref := SectionReference{Kind: RefDirect, Target: &target}
	rationale := "direct_reference"

	if plural {
		if rangeRef, rangeEnd, okRange := r.tryRange(sel, kind, first, idEnd); okRange {
			ref = rangeRef
			end = rangeEnd
			rationale = "range_reference"
		} else if listRef, listEnd, okList := r.tryList(sel, kind, first, idEnd); okList {
			ref = listRef
			end = listEnd
			rationale = "list_reference"
		}
	}

	// External references: `Section 4 of the Master Agreement`.
	if doc, docEnd, okExt := r.tryExternal(sel, end); okExt {
		ref.Kind = RefExternal
		ref.External = doc
		end = docEnd
		rationale = "external_reference"
	} else if suffix, okSuffix := sel.NextWord(end); okSuffix {
		// Optional relative suffix: above / below / hereof / herein.
		if rel, isSuffix := relativeSuffixes[strings.ToLower(sel.TokenText(suffix))]; isSuffix {
			ref.Relative = rel
			end = suffix
		}
	}

	span := lnlp.Span(i, end)
	ref.Text = sel.Line().TextIn(span)
	return lnlp.Assign(span, lnlp.NewScored(ref, r.directConfidence, rationale)), true
}

// tryRange matches `<id> to|through <id>` after the first identifier.
func (r *SectionReferenceResolver) tryRange(sel lnlp.Selection, kind SectionKind, first SectionIdentifier, idEnd int) (SectionReference, int, bool) {
	connector, ok := sel.NextWord(idEnd)
	if !ok {
		return SectionReference{}, 0, false
	}
	c := strings.ToLower(sel.TokenText(connector))
	if c != "to" && c != "through" {
		return SectionReference{}, 0, false
	}
	secondIdx, ok := sel.NextWord(connector)
	if !ok {
		return SectionReference{}, 0, false
	}
	headerResolver := SectionHeaderResolver{}
	second, secondEnd, ok := headerResolver.parseIdentifierAt(sel, secondIdx)
	if !ok {
		return SectionReference{}, 0, false
	}

	start := NamedIdentifier(kind, &first)
	endID := NamedIdentifier(kind, &second)
	return SectionReference{Kind: RefRange, Target: &start, RangeEnd: &endID}, secondEnd, true
}

// tryList matches `<id>, <id> and <id>` after the first identifier.
func (r *SectionReferenceResolver) tryList(sel lnlp.Selection, kind SectionKind, first SectionIdentifier, idEnd int) (SectionReference, int, bool) {
	headerResolver := SectionHeaderResolver{}
	targets := []SectionIdentifier{NamedIdentifier(kind, &first)}
	end := idEnd

	pos := idEnd
	for {
		sep, ok := sel.SkipWhitespaceForwards(pos + 1)
		if !ok {
			break
		}
		sepText := strings.ToLower(sel.TokenText(sep))
		if sepText != "," && sepText != "and" {
			break
		}
		idIdx, ok := sel.NextWord(sep)
		if !ok {
			break
		}
		id, thisEnd, ok := headerResolver.parseIdentifierAt(sel, idIdx)
		if !ok {
			break
		}
		idCopy := id
		targets = append(targets, NamedIdentifier(kind, &idCopy))
		end = thisEnd
		pos = thisEnd
	}

	if len(targets) < 2 {
		return SectionReference{}, 0, false
	}
	return SectionReference{Kind: RefList, Targets: targets}, end, true
}

// tryExternal matches `of the <CapWords>+` naming another document.
func (r *SectionReferenceResolver) tryExternal(sel lnlp.Selection, end int) (string, int, bool) {
	ofIdx, ok := sel.NextWord(end)
	if !ok || !strings.EqualFold(sel.TokenText(ofIdx), "of") {
		return "", 0, false
	}
	theIdx, ok := sel.NextWord(ofIdx)
	if !ok || !strings.EqualFold(sel.TokenText(theIdx), "the") {
		return "", 0, false
	}

	var words []string
	pos := theIdx
	last := theIdx
	for {
		next, ok := sel.NextWord(pos)
		if !ok || !isCapitalized(sel.TokenText(next)) {
			break
		}
		words = append(words, sel.TokenText(next))
		pos, last = next, next
	}
	if len(words) < 2 {
		return "", 0, false
	}
	return strings.Join(words, " "), last, true
}
