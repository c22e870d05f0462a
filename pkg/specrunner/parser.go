// Package specrunner parses the plain-text golden fixture format and
// evaluates its assertions against pipeline output. Fixtures carry a
// title, `---`-separated paragraphs, inline `«ID:text»` markers that are
// stripped from the text handed to the pipeline, and `> ` assertion
// lines.
package specrunner

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/samber/oops"
)

// TargetKind discriminates assertion targets.
type TargetKind int

const (
	// TargetMarker addresses a numeric `«1:text»` span marker.
	TargetMarker TargetKind = iota
	// TargetEntity addresses an alphanumeric `«acme:text»` entity marker
	// via `§acme`.
	TargetEntity
	// TargetText addresses the N-th occurrence of a quoted string.
	TargetText
)

// Target identifies the text an assertion applies to.
type Target struct {
	Kind       TargetKind
	ID         string
	Text       string
	Occurrence int
}

// Op is an assertion comparison operator.
type Op int

const (
	OpEqual Op = iota
	OpGreaterEqual
	OpLessEqual
	OpContains
)

// String returns the operator literal.
func (o Op) String() string {
	switch o {
	case OpEqual:
		return "="
	case OpGreaterEqual:
		return ">="
	case OpLessEqual:
		return "<="
	case OpContains:
		return "~="
	}
	return "?"
}

// FieldCheck is one `field<op>value` inside an assertion body.
type FieldCheck struct {
	Field string
	Op    Op
	Value string
}

// Assertion is one `> ` line: a target, an attribute type name, and field
// checks.
type Assertion struct {
	Target   Target
	TypeName string
	Checks   []FieldCheck
	LineNo   int
}

// Marker is an inline span marker after normalization: the marked text
// and its byte offset in the paragraph's normalized text.
type Marker struct {
	ID     string
	Text   string
	Offset int
}

// Paragraph is one `---`-separated fixture block.
type Paragraph struct {
	Text       string
	Markers    map[string]Marker
	Assertions []Assertion
}

// Fixture is a parsed spec file.
type Fixture struct {
	Title      string
	Paragraphs []Paragraph
}

var (
	markerPattern    = regexp.MustCompile(`«([A-Za-z0-9_]+):([^»]*)»`)
	assertionPattern = regexp.MustCompile(`^>\s*(.+?):\s*([A-Za-z][A-Za-z0-9_]*)\((.*)\)\s*$`)
	textTargetPattern = regexp.MustCompile(`^\["(.+)"(?:@(\d+))?\]$`)
)

// Parse reads the fixture format from source text.
func Parse(source string) (Fixture, error) {
	var fixture Fixture
	current := newParagraph()

	flush := func() {
		if strings.TrimSpace(current.Text) != "" || len(current.Assertions) > 0 {
			current.Text = strings.TrimRight(current.Text, "\n")
			fixture.Paragraphs = append(fixture.Paragraphs, current)
		}
		current = newParagraph()
	}

	for lineNo, raw := range strings.Split(source, "\n") {
		line := raw
		trimmed := strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(trimmed, "//"):
			continue
		case strings.HasPrefix(trimmed, "# ") && fixture.Title == "":
			fixture.Title = strings.TrimSpace(strings.TrimPrefix(trimmed, "# "))
		case trimmed == "---":
			flush()
		case strings.HasPrefix(trimmed, "> "):
			assertion, err := parseAssertion(trimmed, lineNo+1)
			if err != nil {
				return fixture, err
			}
			current.Assertions = append(current.Assertions, assertion)
		default:
			normalized := stripMarkers(line, &current)
			if strings.TrimSpace(normalized) == "" && current.Text == "" {
				continue
			}
			current.Text += normalized + "\n"
		}
	}
	flush()

	if fixture.Title == "" {
		return fixture, oops.Code("FIXTURE_NO_TITLE").Errorf("fixture has no top-level # title")
	}
	return fixture, nil
}

func newParagraph() Paragraph {
	return Paragraph{Markers: make(map[string]Marker)}
}

// stripMarkers removes `«ID:text»` wrappers, recording each marked text
// and its offset in the normalized line as appended to the paragraph.
func stripMarkers(line string, p *Paragraph) string {
	base := len(p.Text)
	var out strings.Builder
	rest := line
	for {
		loc := markerPattern.FindStringSubmatchIndex(rest)
		if loc == nil {
			out.WriteString(rest)
			break
		}
		out.WriteString(rest[:loc[0]])
		id := rest[loc[2]:loc[3]]
		text := rest[loc[4]:loc[5]]
		p.Markers[id] = Marker{ID: id, Text: text, Offset: base + out.Len()}
		out.WriteString(text)
		rest = rest[loc[1]:]
	}
	return out.String()
}

// parseAssertion reads `> [1]: Type(a=b, c>=0.5)` forms.
func parseAssertion(line string, lineNo int) (Assertion, error) {
	m := assertionPattern.FindStringSubmatch(line)
	if m == nil {
		return Assertion{}, oops.Code("FIXTURE_BAD_ASSERTION").With("line", lineNo).Errorf("malformed assertion: %s", line)
	}

	targetText := strings.TrimSpace(m[1])
	target, err := parseTarget(targetText, lineNo)
	if err != nil {
		return Assertion{}, err
	}

	assertion := Assertion{Target: target, TypeName: m[2], LineNo: lineNo}
	body := strings.TrimSpace(m[3])
	if body != "" {
		for _, part := range splitChecks(body) {
			check, err := parseCheck(part, lineNo)
			if err != nil {
				return Assertion{}, err
			}
			assertion.Checks = append(assertion.Checks, check)
		}
	}
	return assertion, nil
}

func parseTarget(text string, lineNo int) (Target, error) {
	text = strings.TrimSpace(strings.TrimPrefix(text, ">"))

	if strings.HasPrefix(text, "§") {
		return Target{Kind: TargetEntity, ID: strings.TrimPrefix(text, "§")}, nil
	}
	if m := textTargetPattern.FindStringSubmatch(text); m != nil {
		occurrence := 1
		if m[2] != "" {
			occurrence, _ = strconv.Atoi(m[2])
		}
		return Target{Kind: TargetText, Text: m[1], Occurrence: occurrence}, nil
	}
	if strings.HasPrefix(text, "[") && strings.HasSuffix(text, "]") {
		id := strings.TrimSuffix(strings.TrimPrefix(text, "["), "]")
		if _, err := strconv.Atoi(id); err == nil {
			return Target{Kind: TargetMarker, ID: id}, nil
		}
		return Target{Kind: TargetEntity, ID: id}, nil
	}
	return Target{}, oops.Code("FIXTURE_BAD_TARGET").With("line", lineNo).Errorf("unrecognized target: %s", text)
}

// splitChecks splits on commas outside quotes.
func splitChecks(body string) []string {
	var out []string
	var cur strings.Builder
	inQuote := false
	for _, r := range body {
		switch {
		case r == '"':
			inQuote = !inQuote
			cur.WriteRune(r)
		case r == ',' && !inQuote:
			out = append(out, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	if s := strings.TrimSpace(cur.String()); s != "" {
		out = append(out, s)
	}
	return out
}

func parseCheck(text string, lineNo int) (FieldCheck, error) {
	for _, candidate := range []struct {
		literal string
		op      Op
	}{
		{">=", OpGreaterEqual},
		{"<=", OpLessEqual},
		{"~=", OpContains},
		{"=", OpEqual},
	} {
		idx := strings.Index(text, candidate.literal)
		if idx <= 0 {
			continue
		}
		field := strings.TrimSpace(text[:idx])
		value := strings.TrimSpace(text[idx+len(candidate.literal):])
		value = strings.Trim(value, `"`)
		return FieldCheck{Field: field, Op: candidate.op, Value: value}, nil
	}
	return FieldCheck{}, oops.Code("FIXTURE_BAD_CHECK").With("line", lineNo).Errorf("malformed field check: %s", text)
}

// String renders an assertion for failure messages.
func (a Assertion) String() string {
	var checks []string
	for _, c := range a.Checks {
		checks = append(checks, fmt.Sprintf("%s%s%s", c.Field, c.Op, c.Value))
	}
	return fmt.Sprintf("%s(%s)", a.TypeName, strings.Join(checks, ", "))
}
