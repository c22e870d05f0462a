package specrunner

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/coolbeans/covenant/pkg/contract"
	"github.com/coolbeans/covenant/pkg/lnlp"
)

// Failure is one assertion that did not hold.
type Failure struct {
	Paragraph int
	Assertion Assertion
	Message   string
}

// String renders the failure.
func (f Failure) String() string {
	return fmt.Sprintf("paragraph %d, line %d: %s — %s", f.Paragraph+1, f.Assertion.LineNo, f.Assertion.String(), f.Message)
}

// RunResult is a fixture evaluation outcome.
type RunResult struct {
	Title     string
	Evaluated int
	Failures  []Failure
}

// Ok reports whether every assertion held.
func (r RunResult) Ok() bool { return len(r.Failures) == 0 }

// RunSource parses and runs a fixture.
func RunSource(source string) (RunResult, error) {
	fixture, err := Parse(source)
	if err != nil {
		return RunResult{}, err
	}
	return Run(fixture), nil
}

// Run evaluates every paragraph's assertions against the pipeline.
func Run(fixture Fixture) RunResult {
	result := RunResult{Title: fixture.Title}
	pipeline := contract.NewPipeline()

	for pi, paragraph := range fixture.Paragraphs {
		doc := pipeline.Analyze(paragraph.Text)

		for _, assertion := range paragraph.Assertions {
			result.Evaluated++
			line, span, ok := locateTarget(doc, paragraph, assertion.Target)
			if !ok {
				result.Failures = append(result.Failures, Failure{
					Paragraph: pi,
					Assertion: assertion,
					Message:   "target text not found in paragraph",
				})
				continue
			}
			if msg, ok := evaluate(doc.Line(line), span, assertion); !ok {
				result.Failures = append(result.Failures, Failure{
					Paragraph: pi,
					Assertion: assertion,
					Message:   msg,
				})
			}
		}
	}
	return result
}

// locateTarget maps an assertion target to a (line, token span) in the
// analyzed document.
func locateTarget(doc *lnlp.Document, p Paragraph, target Target) (int, lnlp.SpanRef, bool) {
	switch target.Kind {
	case TargetMarker, TargetEntity:
		marker, ok := p.Markers[target.ID]
		if !ok {
			return 0, lnlp.SpanRef{}, false
		}
		return locateOffset(doc, p.Text, marker.Offset, marker.Text)
	case TargetText:
		occurrence := target.Occurrence
		if occurrence < 1 {
			occurrence = 1
		}
		offset := -1
		search := 0
		for n := 0; n < occurrence; n++ {
			idx := strings.Index(p.Text[search:], target.Text)
			if idx < 0 {
				return 0, lnlp.SpanRef{}, false
			}
			offset = search + idx
			search = offset + len(target.Text)
		}
		return locateOffset(doc, p.Text, offset, target.Text)
	}
	return 0, lnlp.SpanRef{}, false
}

// locateOffset converts a byte offset in the paragraph text to a
// token span on the matching document line.
func locateOffset(doc *lnlp.Document, text string, offset int, marked string) (int, lnlp.SpanRef, bool) {
	lines := strings.Split(text, "\n")
	lineStart := 0
	docLine := 0
	for _, raw := range lines {
		lineEnd := lineStart + len(raw)
		blank := strings.TrimSpace(raw) == ""
		if offset >= lineStart && offset <= lineEnd && !blank {
			col := offset - lineStart
			span, ok := tokenSpanForChars(doc.Line(docLine), col, col+len(marked))
			return docLine, span, ok
		}
		if !blank {
			docLine++
		}
		lineStart = lineEnd + 1
	}
	return 0, lnlp.SpanRef{}, false
}

// tokenSpanForChars maps a byte range of the reconstructed line text to
// the covering token range.
func tokenSpanForChars(l *lnlp.Line, start, end int) (lnlp.SpanRef, bool) {
	if l == nil {
		return lnlp.SpanRef{}, false
	}
	pos := 0
	first, last := -1, -1
	for i, tok := range l.Tokens() {
		tokStart := pos
		tokEnd := pos + len(tok.Text)
		pos = tokEnd
		if tokEnd <= start || tokStart >= end {
			continue
		}
		if first < 0 {
			first = i
		}
		last = i
	}
	if first < 0 {
		return lnlp.SpanRef{}, false
	}
	return lnlp.Span(first, last), true
}

// evaluate finds an attribute of the asserted type overlapping span whose
// fields satisfy every check.
func evaluate(l *lnlp.Line, span lnlp.SpanRef, assertion Assertion) (string, bool) {
	if l == nil {
		return "line missing", false
	}
	candidates := fieldsForType(l, span, assertion.TypeName)
	if candidates == nil {
		return fmt.Sprintf("no %s attribute overlaps the target", assertion.TypeName), false
	}

	var lastErr string
	for _, fields := range candidates {
		if msg, ok := checkFields(fields, assertion.Checks); ok {
			return "", true
		} else {
			lastErr = msg
		}
	}
	return lastErr, false
}

func checkFields(fields map[string]string, checks []FieldCheck) (string, bool) {
	for _, c := range checks {
		actual, ok := fields[c.Field]
		if !ok {
			return fmt.Sprintf("field %q not present (have %v)", c.Field, keys(fields)), false
		}
		if !compare(actual, c.Op, c.Value) {
			return fmt.Sprintf("field %q: %s %s %s does not hold", c.Field, actual, c.Op, c.Value), false
		}
	}
	return "", true
}

func keys(m map[string]string) []string {
	var out []string
	for k := range m {
		out = append(out, k)
	}
	return out
}

func compare(actual string, op Op, expected string) bool {
	switch op {
	case OpEqual:
		if strings.EqualFold(actual, expected) {
			return true
		}
		a, errA := strconv.ParseFloat(actual, 64)
		b, errB := strconv.ParseFloat(expected, 64)
		return errA == nil && errB == nil && a == b
	case OpContains:
		return strings.Contains(strings.ToLower(actual), strings.ToLower(expected))
	case OpGreaterEqual, OpLessEqual:
		a, errA := strconv.ParseFloat(actual, 64)
		b, errB := strconv.ParseFloat(expected, 64)
		if errA != nil || errB != nil {
			return false
		}
		if op == OpGreaterEqual {
			return a >= b
		}
		return a <= b
	}
	return false
}

func f(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func b(v bool) string {
	if v {
		return "true"
	}
	return "false"
}

// fieldsForType projects each overlapping attribute of the named type to
// a field map. Unknown type names return nil.
func fieldsForType(l *lnlp.Line, span lnlp.SpanRef, typeName string) []map[string]string {
	var out []map[string]string

	switch typeName {
	case "ObligationPhrase":
		for _, a := range lnlp.AttrsOverlapping[lnlp.Scored[contract.ObligationPhrase]](l, span) {
			v := a.Value.Value
			out = append(out, map[string]string{
				"obligation_type": v.Type.String(),
				"obligor":         v.Obligor.Text,
				"obligor_kind":    v.Obligor.Kind.String(),
				"action":          v.Action,
				"conditions":      strconv.Itoa(len(v.Conditions)),
				"confidence":      f(a.Value.Confidence),
			})
		}
	case "TemporalExpression":
		for _, a := range lnlp.AttrsOverlapping[lnlp.Scored[contract.TemporalExpression]](l, span) {
			v := a.Value.Value
			fields := map[string]string{
				"text":       v.Text,
				"confidence": f(a.Value.Confidence),
			}
			switch v.Kind {
			case contract.TemporalDate:
				fields["kind"] = "date"
				fields["month"] = strconv.Itoa(v.Date.Month)
				fields["day"] = strconv.Itoa(v.Date.Day)
				fields["year"] = strconv.Itoa(v.Date.Year)
			case contract.TemporalDuration:
				fields["kind"] = "duration"
				fields["value"] = strconv.Itoa(v.Duration.Value)
				fields["unit"] = v.Duration.Unit.String()
				fields["written_form"] = v.Duration.WrittenForm
			case contract.TemporalDeadline:
				fields["kind"] = "deadline"
				fields["value"] = strconv.Itoa(v.Deadline.Duration.Value)
				fields["unit"] = v.Deadline.Duration.Unit.String()
			case contract.TemporalDefinedDate:
				fields["kind"] = "defined_date"
				fields["term"] = v.DefinedTerm
			case contract.TemporalRelative:
				fields["kind"] = "relative"
				fields["trigger"] = v.Relative.Trigger
			}
			out = append(out, fields)
		}
	case "DefinedTerm":
		for _, a := range lnlp.AttrsOverlapping[lnlp.Scored[contract.DefinedTerm]](l, span) {
			out = append(out, map[string]string{
				"term":            a.Value.Value.Name,
				"definition_type": a.Value.Value.Type.String(),
				"confidence":      f(a.Value.Confidence),
			})
		}
	case "TermReference":
		for _, a := range lnlp.AttrsOverlapping[lnlp.Scored[contract.TermReference]](l, span) {
			out = append(out, map[string]string{
				"term":       a.Value.Value.Name,
				"confidence": f(a.Value.Confidence),
			})
		}
	case "PronounReference":
		for _, a := range lnlp.AttrsOverlapping[lnlp.Scored[contract.PronounReference]](l, span) {
			fields := map[string]string{
				"pronoun":    a.Value.Value.Pronoun,
				"candidates": strconv.Itoa(len(a.Value.Value.Candidates)),
				"confidence": f(a.Value.Confidence),
			}
			if best, ok := a.Value.Value.Best(); ok {
				fields["best"] = best.Text
			}
			out = append(out, fields)
		}
	case "SectionHeader":
		for _, a := range lnlp.AttrsOverlapping[lnlp.Scored[contract.SectionHeader]](l, span) {
			out = append(out, map[string]string{
				"canonical":  a.Value.Value.Identifier.Canonical(),
				"title":      a.Value.Value.Title,
				"depth":      strconv.Itoa(a.Value.Value.Identifier.Depth()),
				"confidence": f(a.Value.Confidence),
			})
		}
	case "SectionReference":
		for _, a := range lnlp.AttrsOverlapping[lnlp.Scored[contract.SectionReference]](l, span) {
			v := a.Value.Value
			fields := map[string]string{
				"text":       v.Text,
				"confidence": f(a.Value.Confidence),
			}
			switch v.Kind {
			case contract.RefDirect:
				fields["kind"] = "direct"
			case contract.RefRange:
				fields["kind"] = "range"
			case contract.RefList:
				fields["kind"] = "list"
			case contract.RefRelative:
				fields["kind"] = "relative"
				fields["relative"] = v.Relative.String()
			case contract.RefExternal:
				fields["kind"] = "external"
				fields["external"] = v.External
			}
			if v.Target != nil {
				fields["target"] = v.Target.Canonical()
			}
			out = append(out, fields)
		}
	case "PolarityContext":
		for _, a := range lnlp.AttrsOverlapping[contract.PolarityContext](l, span) {
			out = append(out, map[string]string{
				"polarity":            a.Value.Polarity.String(),
				"negation_count":      strconv.Itoa(a.Value.NegationCount),
				"has_double_negative": b(a.Value.HasDoubleNegative),
				"needs_review":        b(a.Value.NeedsReview),
				"confidence":          f(a.Value.Confidence),
			})
		}
	case "ModalNegation":
		for _, a := range lnlp.AttrsOverlapping[contract.ModalNegationClassification](l, span) {
			fields := map[string]string{
				"obligation_type": a.Value.ObligationType.String(),
				"modal":           a.Value.Modal.String(),
				"polarity":        a.Value.Polarity.String(),
				"is_ambiguous":    b(a.Value.IsAmbiguous),
				"needs_review":    b(a.Value.NeedsReview),
				"confidence":      f(a.Value.Confidence),
			}
			if a.Value.DiscretionPattern != nil {
				fields["discretion_pattern"] = a.Value.DiscretionPattern.String()
			}
			out = append(out, fields)
		}
	case "TermOfArt":
		for _, a := range lnlp.AttrsOverlapping[contract.TermOfArt](l, span) {
			out = append(out, map[string]string{
				"canonical": a.Value.Canonical,
				"category":  a.Value.Category.String(),
			})
		}
	case "ContractKeyword":
		for _, a := range lnlp.AttrsOverlapping[contract.ContractKeyword](l, span) {
			out = append(out, map[string]string{
				"kind": a.Value.Kind.String(),
			})
		}
	}
	return out
}
