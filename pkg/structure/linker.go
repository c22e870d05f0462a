package structure

import (
	"fmt"

	"github.com/coolbeans/covenant/pkg/contract"
	"github.com/coolbeans/covenant/pkg/lnlp"
)

// LinkStatus partitions linked references.
type LinkStatus int

const (
	StatusResolved LinkStatus = iota
	StatusUnresolved
	StatusFiltered
	StatusAmbiguous
)

// String returns the status tag.
func (s LinkStatus) String() string {
	switch s {
	case StatusResolved:
		return "resolved"
	case StatusUnresolved:
		return "unresolved"
	case StatusFiltered:
		return "filtered"
	case StatusAmbiguous:
		return "ambiguous"
	}
	return "unknown"
}

// LinkedReference is one section reference after document-wide linking.
type LinkedReference struct {
	Status     LinkStatus                `json:"status"`
	Line       int                       `json:"line"`
	SourceLine int                       `json:"source_line"`
	Span       lnlp.SpanRef              `json:"span"`
	Reference  contract.SectionReference `json:"reference"`
	Confidence float64                   `json:"confidence"`
	Target     *SectionNode              `json:"-"`
	Candidates []*SectionNode            `json:"-"`
	Reason     string                    `json:"reason,omitempty"`
}

// LinkedReferences is the partitioned result set.
type LinkedReferences struct {
	Resolved   []LinkedReference `json:"resolved"`
	Unresolved []LinkedReference `json:"unresolved"`
	Filtered   []LinkedReference `json:"filtered"`
	Ambiguous  []LinkedReference `json:"ambiguous"`
}

// Linker resolves section references against a built structure.
type Linker struct {
	directHitBoost    float64
	ambiguousSingle   float64
	ambiguousBoth     float64
	subIdentifierOnly float64
	unresolvedFactor  float64
}

// NewLinker constructs the linker with the default confidence factors.
func NewLinker() *Linker {
	return &Linker{
		directHitBoost:    1.1,
		ambiguousSingle:   0.85,
		ambiguousBoth:     0.6,
		subIdentifierOnly: 0.9,
		unresolvedFactor:  0.3,
	}
}

// Link walks every section reference in the document and resolves it.
// Dangling targeted references surface as errors; ambiguous and
// unresolved ones as warnings keyed by source line.
func (lk *Linker) Link(doc *lnlp.Document, s *DocumentStructure) lnlp.Result[*LinkedReferences] {
	var result lnlp.Result[*LinkedReferences]
	refs := &LinkedReferences{}
	result.Value = refs

	doc.EachLine(func(line int, l *lnlp.Line) {
		headerSpans := lineStartHeaderSpans(l)

		for _, a := range lnlp.Attrs[lnlp.Scored[contract.SectionReference]](l) {
			linked := LinkedReference{
				Line:       line,
				SourceLine: doc.SourceLineNumber(line),
				Span:       a.Span,
				Reference:  a.Value.Value,
				Confidence: a.Value.Confidence,
			}

			// A reference overlapping a line-start header is the header
			// itself, not a reference to elsewhere.
			filtered := false
			for _, hs := range headerSpans {
				if hs.Overlaps(a.Span) {
					filtered = true
					break
				}
			}
			if filtered {
				linked.Status = StatusFiltered
				refs.Filtered = append(refs.Filtered, linked)
				continue
			}

			lk.resolve(&linked, line, s)
			switch linked.Status {
			case StatusResolved:
				refs.Resolved = append(refs.Resolved, linked)
			case StatusAmbiguous:
				refs.Ambiguous = append(refs.Ambiguous, linked)
				result.Warnings = append(result.Warnings, lnlp.Issue{
					Kind:       lnlp.ErrOther,
					Message:    fmt.Sprintf("ambiguous reference %q: %s", linked.Reference.Text, linked.Reason),
					SourceLine: linked.SourceLine,
				})
			case StatusUnresolved:
				refs.Unresolved = append(refs.Unresolved, linked)
				result.Warnings = append(result.Warnings, lnlp.Issue{
					Kind:       lnlp.ErrDanglingReference,
					Message:    fmt.Sprintf("unresolved reference %q: %s", linked.Reference.Text, linked.Reason),
					SourceLine: linked.SourceLine,
				})
				if linked.Reference.Target != nil {
					result.Errors = append(result.Errors, lnlp.Issue{
						Kind:       lnlp.ErrDanglingReference,
						Message:    fmt.Sprintf("reference %q targets a section that does not exist", linked.Reference.Text),
						SourceLine: linked.SourceLine,
					})
				}
			}
		}
	})

	return result
}

// resolve applies the lookup rules in order.
func (lk *Linker) resolve(linked *LinkedReference, line int, s *DocumentStructure) {
	ref := linked.Reference

	// Relative references with no explicit target resolve to the
	// innermost containing section.
	if ref.Target == nil && (ref.Kind == contract.RefRelative || len(ref.Targets) == 0 && ref.Kind != contract.RefRange) {
		if node := s.InnermostContaining(line); node != nil {
			linked.Status = StatusResolved
			linked.Target = node
			return
		}
		linked.Status = StatusUnresolved
		linked.Reason = "no containing section"
		linked.Confidence = lnlp.Clamp01(linked.Confidence * lk.unresolvedFactor)
		return
	}

	target := ref.Target
	if target == nil && len(ref.Targets) > 0 {
		// List references resolve on their first target; the rest ride
		// along as candidates.
		target = &ref.Targets[0]
	}
	if target == nil {
		linked.Status = StatusUnresolved
		linked.Reason = "reference carries no target"
		linked.Confidence = lnlp.Clamp01(linked.Confidence * lk.unresolvedFactor)
		return
	}

	canonical := target.Canonical()

	// Direct canonical hit.
	if nodes := s.ByCanonical(canonical); len(nodes) > 0 {
		linked.Status = StatusResolved
		linked.Target = nodes[0]
		linked.Confidence = lnlp.Clamp01(linked.Confidence * lk.directHitBoost)
		return
	}

	// The ambiguous "(i)": roman one lowercase vs letter i. The collision
	// lives in the bare identifier, so probe the sub-identifier when the
	// reference is kind-prefixed.
	probe := canonical
	if sub := target.SubCanonical(); sub != "" {
		probe = sub
	}
	if alts, isAmbiguous := ambiguousIdentifierAlternatives(probe); isAmbiguous {
		var candidates []*SectionNode
		for _, alt := range alts {
			candidates = append(candidates, s.ByCanonical(alt)...)
			candidates = append(candidates, s.BySubIdentifier(alt)...)
		}
		switch len(candidates) {
		case 0:
			// fall through to the remaining rules
		case 1:
			linked.Status = StatusResolved
			linked.Target = candidates[0]
			linked.Confidence = lnlp.Clamp01(linked.Confidence * lk.ambiguousSingle)
			return
		default:
			linked.Status = StatusAmbiguous
			linked.Candidates = candidates
			linked.Reason = "roman one and letter i both present"
			linked.Confidence = lnlp.Clamp01(linked.Confidence * lk.ambiguousBoth)
			return
		}
	}

	// Bare sub-identifier: "Section 3.1" against a standalone "3.1".
	if sub := target.SubCanonical(); sub != "" {
		if nodes := s.ByCanonical(sub); len(nodes) > 0 {
			linked.Status = StatusResolved
			linked.Target = nodes[0]
			linked.Confidence = lnlp.Clamp01(linked.Confidence * lk.subIdentifierOnly)
			return
		}
		if nodes := s.BySubIdentifier(sub); len(nodes) > 0 {
			linked.Status = StatusResolved
			linked.Target = nodes[0]
			linked.Confidence = lnlp.Clamp01(linked.Confidence * lk.subIdentifierOnly)
			return
		}
	}

	linked.Status = StatusUnresolved
	linked.Reason = fmt.Sprintf("target %q not found in document structure", canonical)
	linked.Confidence = lnlp.Clamp01(linked.Confidence * lk.unresolvedFactor)
}

// ambiguousIdentifierAlternatives recognizes the (i)-style collision and
// returns both readings.
func ambiguousIdentifierAlternatives(canonical string) ([]string, bool) {
	switch canonical {
	case "i", "r1":
		return []string{"i", "r1"}, true
	case "v", "r5":
		return []string{"v", "r5"}, true
	case "x", "r10":
		return []string{"x", "r10"}, true
	}
	return nil, false
}

// lineStartHeaderSpans returns header spans starting at token <= 1.
func lineStartHeaderSpans(l *lnlp.Line) []lnlp.SpanRef {
	var out []lnlp.SpanRef
	for _, a := range lnlp.Attrs[lnlp.Scored[contract.SectionHeader]](l) {
		if a.Span.Start <= headerStartLimit {
			out = append(out, a.Span)
		}
	}
	return out
}
