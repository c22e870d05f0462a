package contract

import (
	"strconv"
	"strings"

	"github.com/coolbeans/covenant/pkg/lnlp"
)

// TemporalKind discriminates temporal expression variants.
type TemporalKind int

const (
	TemporalDate TemporalKind = iota
	TemporalDuration
	TemporalDeadline
	TemporalDefinedDate
	TemporalRelative
)

// DurationUnit is the unit of a duration. Business days bind tighter than
// plain days when both could match.
type DurationUnit int

const (
	UnitDays DurationUnit = iota
	UnitWeeks
	UnitMonths
	UnitYears
	UnitBusinessDays
)

// String returns the unit tag.
func (u DurationUnit) String() string {
	switch u {
	case UnitDays:
		return "days"
	case UnitWeeks:
		return "weeks"
	case UnitMonths:
		return "months"
	case UnitYears:
		return "years"
	case UnitBusinessDays:
		return "business_days"
	}
	return "unknown"
}

// DeadlineKind is the deadline introducer.
type DeadlineKind int

const (
	DeadlineWithin DeadlineKind = iota
	DeadlineBy
	DeadlineBefore
	DeadlineAfter
	DeadlineNoLaterThan
	DeadlineOnOrBefore
	DeadlinePromptlyFollowing
)

// TimeRelation is the relation of a relative time expression.
type TimeRelation int

const (
	RelationUpon TimeRelation = iota
	RelationFollowing
	RelationPriorTo
	RelationDuring
	RelationAtTimeOf
)

// DateParts is a calendar date; zero fields are absent.
type DateParts struct {
	Year  int `json:"year,omitempty"`
	Month int `json:"month,omitempty"`
	Day   int `json:"day,omitempty"`
}

// Duration is a time quantity, optionally carrying the written numeral it
// was spelled with ("thirty" in "thirty (30) days").
type Duration struct {
	Value       int          `json:"value"`
	Unit        DurationUnit `json:"unit"`
	WrittenForm string       `json:"written_form,omitempty"`
}

// Deadline is a deadline introducer plus the duration or reference that
// follows it.
type Deadline struct {
	Kind      DeadlineKind `json:"kind"`
	Duration  *Duration    `json:"duration,omitempty"`
	Reference string       `json:"reference,omitempty"`
}

// RelativeTime is a trigger-anchored time expression ("upon termination of
// the Agreement").
type RelativeTime struct {
	Relation TimeRelation `json:"relation"`
	Trigger  string       `json:"trigger"`
}

// TemporalExpression is the attribute emitted for every detected temporal
// pattern. Exactly one of the variant fields is set, per Kind.
type TemporalExpression struct {
	Kind        TemporalKind  `json:"kind"`
	Date        *DateParts    `json:"date,omitempty"`
	Duration    *Duration     `json:"duration,omitempty"`
	Deadline    *Deadline     `json:"deadline,omitempty"`
	DefinedTerm string        `json:"defined_term,omitempty"`
	Relative    *RelativeTime `json:"relative,omitempty"`
	Text        string        `json:"text"`
}

// TemporalResolver detects dates, durations, deadlines, defined dates, and
// relative time expressions.
type TemporalResolver struct {
	dateConfidence        float64
	durationConfidence    float64
	deadlineConfidence    float64
	definedDateConfidence float64
}

// NewTemporalResolver constructs the resolver with the default confidence
// levels.
func NewTemporalResolver() *TemporalResolver {
	return &TemporalResolver{
		dateConfidence:        0.95,
		durationConfidence:    0.90,
		deadlineConfidence:    0.85,
		definedDateConfidence: 0.80,
	}
}

var monthNumbers = map[string]int{
	"january": 1, "jan": 1,
	"february": 2, "feb": 2,
	"march": 3, "mar": 3,
	"april": 4, "apr": 4,
	"may": 5,
	"june": 6, "jun": 6,
	"july": 7, "jul": 7,
	"august": 8, "aug": 8,
	"september": 9, "sep": 9, "sept": 9,
	"october": 10, "oct": 10,
	"november": 11, "nov": 11,
	"december": 12, "dec": 12,
}

var writtenNumbers = map[string]int{
	"one": 1, "a": 1, "an": 1,
	"two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"eleven": 11, "twelve": 12, "thirteen": 13, "fourteen": 14, "fifteen": 15,
	"sixteen": 16, "seventeen": 17, "eighteen": 18, "nineteen": 19, "twenty": 20,
	"thirty": 30, "forty": 40, "fourty": 40, "fifty": 50,
	"sixty": 60, "seventy": 70, "eighty": 80, "ninety": 90,
	"hundred": 100,
}

func durationUnitOf(word string) (DurationUnit, bool) {
	switch strings.ToLower(word) {
	case "day", "days":
		return UnitDays, true
	case "week", "weeks":
		return UnitWeeks, true
	case "month", "months":
		return UnitMonths, true
	case "year", "years":
		return UnitYears, true
	}
	return 0, false
}

func deadlineKindOf(word string) (DeadlineKind, bool) {
	switch strings.ToLower(word) {
	case "within":
		return DeadlineWithin, true
	case "by":
		return DeadlineBy, true
	case "before":
		return DeadlineBefore, true
	case "after":
		return DeadlineAfter, true
	}
	return 0, false
}

// ResolveLine implements lnlp.LineResolver. Pattern families are tried in
// a fixed order at each position; a match advances the scan past its span.
func (r *TemporalResolver) ResolveLine(sel lnlp.Selection) []lnlp.Assignment[lnlp.Scored[TemporalExpression]] {
	var out []lnlp.Assignment[lnlp.Scored[TemporalExpression]]
	if sel.Empty() {
		return nil
	}

	i := sel.Start
	for i <= sel.End {
		tok, ok := sel.Token(i)
		if !ok {
			i++
			continue
		}
		if tok.Class == lnlp.ClassNatN {
			if assigns, end, matched := r.tryDuration(sel, i); matched {
				out = append(out, assigns...)
				i = end + 1
				continue
			}
			i++
			continue
		}
		if tok.Class != lnlp.ClassWord {
			i++
			continue
		}

		if assigns, end, matched := r.tryDate(sel, i); matched {
			out = append(out, assigns...)
			i = end + 1
			continue
		}
		if assigns, end, matched := r.tryDeadline(sel, i); matched {
			out = append(out, assigns...)
			i = end + 1
			continue
		}
		if assigns, end, matched := r.tryDuration(sel, i); matched {
			out = append(out, assigns...)
			i = end + 1
			continue
		}
		if assigns, end, matched := r.tryDefinedDate(sel, i); matched {
			out = append(out, assigns...)
			i = end + 1
			continue
		}
		if assigns, end, matched := r.tryRelative(sel, i); matched {
			out = append(out, assigns...)
			i = end + 1
			continue
		}
		i++
	}
	return out
}

// tryDate matches `<Month> <day 1-31>[, <year 1900-2100>]`.
func (r *TemporalResolver) tryDate(sel lnlp.Selection, i int) ([]lnlp.Assignment[lnlp.Scored[TemporalExpression]], int, bool) {
	month, ok := monthNumbers[strings.ToLower(sel.TokenText(i))]
	if !ok {
		return nil, 0, false
	}
	dayIdx, ok := sel.NextWord(i)
	if !ok {
		return nil, 0, false
	}
	dayTok, _ := sel.Token(dayIdx)
	if dayTok.Class != lnlp.ClassNatN {
		return nil, 0, false
	}
	day, _ := strconv.Atoi(dayTok.Text)
	if day < 1 || day > 31 {
		return nil, 0, false
	}

	end := dayIdx
	year := 0
	// Optional ", <year>".
	if comma, ok := sel.SkipWhitespaceForwards(dayIdx + 1); ok && sel.TokenText(comma) == "," {
		if yearIdx, ok := sel.SkipWhitespaceForwards(comma + 1); ok {
			yearTok, _ := sel.Token(yearIdx)
			if yearTok.Class == lnlp.ClassNatN {
				y, _ := strconv.Atoi(yearTok.Text)
				if y >= 1900 && y <= 2100 {
					year = y
					end = yearIdx
				}
			}
		}
	}

	span := lnlp.Span(i, end)
	expr := TemporalExpression{
		Kind: TemporalDate,
		Date: &DateParts{Year: year, Month: month, Day: day},
		Text: sel.Line().TextIn(span),
	}
	return []lnlp.Assignment[lnlp.Scored[TemporalExpression]]{
		lnlp.Assign(span, lnlp.NewScored(expr, r.dateConfidence, "date_pattern")),
	}, end, true
}

// parseDuration parses `N <unit>`, `<written> <unit>`, or
// `<written> (N) <unit>` starting at token i. The parenthetical number
// must agree with the written numeral. "business/working days" binds to
// BusinessDays.
func (r *TemporalResolver) parseDuration(sel lnlp.Selection, i int) (Duration, int, bool) {
	var d Duration
	tok, ok := sel.Token(i)
	if !ok {
		return d, 0, false
	}

	pos := i
	switch tok.Class {
	case lnlp.ClassNatN:
		d.Value, _ = strconv.Atoi(tok.Text)
	case lnlp.ClassWord:
		v, ok := writtenNumbers[strings.ToLower(tok.Text)]
		if !ok {
			return d, 0, false
		}
		d.Value = v
		d.WrittenForm = strings.ToLower(tok.Text)

		// Optional parenthetical confirmation: "thirty (30)".
		if open, ok := sel.SkipWhitespaceForwards(pos + 1); ok && sel.TokenText(open) == "(" {
			numIdx, okNum := sel.SkipWhitespaceForwards(open + 1)
			if okNum {
				numTok, _ := sel.Token(numIdx)
				closeIdx, okClose := sel.SkipWhitespaceForwards(numIdx + 1)
				if numTok.Class == lnlp.ClassNatN && okClose && sel.TokenText(closeIdx) == ")" {
					n, _ := strconv.Atoi(numTok.Text)
					if n != d.Value {
						return d, 0, false
					}
					pos = closeIdx
				}
			}
		}
	default:
		return d, 0, false
	}

	// The unit must immediately follow the number (whitespace only).
	unitIdx, ok := sel.SkipWhitespaceForwards(pos + 1)
	if !ok {
		return d, 0, false
	}
	if tok, okTok := sel.Token(unitIdx); !okTok || !tok.IsWord() {
		return d, 0, false
	}
	unitWord := strings.ToLower(sel.TokenText(unitIdx))

	if unitWord == "business" || unitWord == "working" {
		dayIdx, ok := sel.SkipWhitespaceForwards(unitIdx + 1)
		if !ok {
			return d, 0, false
		}
		if u, isUnit := durationUnitOf(sel.TokenText(dayIdx)); !isUnit || u != UnitDays {
			return d, 0, false
		}
		d.Unit = UnitBusinessDays
		return d, dayIdx, true
	}

	unit, isUnit := durationUnitOf(unitWord)
	if !isUnit {
		return d, 0, false
	}
	d.Unit = unit
	return d, unitIdx, true
}

// tryDeadline matches single-word and multi-word deadline introducers
// followed by a duration. The inner duration is also emitted on its own.
func (r *TemporalResolver) tryDeadline(sel lnlp.Selection, i int) ([]lnlp.Assignment[lnlp.Scored[TemporalExpression]], int, bool) {
	word := strings.ToLower(sel.TokenText(i))

	kind, afterKeyword, ok := func() (DeadlineKind, int, bool) {
		// Multi-word introducers first.
		switch word {
		case "no":
			if r.matchWords(sel, i, "no", "later", "than") {
				end := r.wordEnd(sel, i, 3)
				return DeadlineNoLaterThan, end, true
			}
		case "on":
			if r.matchWords(sel, i, "on", "or", "before") {
				end := r.wordEnd(sel, i, 3)
				return DeadlineOnOrBefore, end, true
			}
		case "promptly":
			if r.matchWords(sel, i, "promptly", "following") {
				end := r.wordEnd(sel, i, 2)
				return DeadlinePromptlyFollowing, end, true
			}
		}
		if k, ok := deadlineKindOf(word); ok {
			return k, i, true
		}
		return 0, 0, false
	}()
	if !ok {
		return nil, 0, false
	}

	durStart, ok := sel.NextWord(afterKeyword)
	if !ok {
		return nil, 0, false
	}
	// Durations may start on a number token; NextWord covers both classes.
	dur, durEnd, ok := r.parseDuration(sel, durStart)
	if !ok {
		return nil, 0, false
	}

	durSpan := lnlp.Span(durStart, durEnd)
	fullSpan := lnlp.Span(i, durEnd)
	durCopy := dur

	deadlineExpr := TemporalExpression{
		Kind:     TemporalDeadline,
		Deadline: &Deadline{Kind: kind, Duration: &durCopy, Reference: sel.Line().TextIn(durSpan)},
		Text:     sel.Line().TextIn(fullSpan),
	}
	durationExpr := TemporalExpression{
		Kind:     TemporalDuration,
		Duration: &durCopy,
		Text:     sel.Line().TextIn(durSpan),
	}

	return []lnlp.Assignment[lnlp.Scored[TemporalExpression]]{
		lnlp.Assign(fullSpan, lnlp.NewScored(deadlineExpr, r.deadlineConfidence, "deadline_pattern")),
		lnlp.Assign(durSpan, lnlp.NewScored(durationExpr, r.durationConfidence, "duration_pattern")),
	}, durEnd, true
}

// tryDuration matches a standalone duration (families 4 and 5).
func (r *TemporalResolver) tryDuration(sel lnlp.Selection, i int) ([]lnlp.Assignment[lnlp.Scored[TemporalExpression]], int, bool) {
	dur, end, ok := r.parseDuration(sel, i)
	if !ok {
		return nil, 0, false
	}
	span := lnlp.Span(i, end)
	expr := TemporalExpression{
		Kind:     TemporalDuration,
		Duration: &dur,
		Text:     sel.Line().TextIn(span),
	}
	return []lnlp.Assignment[lnlp.Scored[TemporalExpression]]{
		lnlp.Assign(span, lnlp.NewScored(expr, r.durationConfidence, "duration_pattern")),
	}, end, true
}

// tryDefinedDate matches `the <CapWords>+ Date`.
func (r *TemporalResolver) tryDefinedDate(sel lnlp.Selection, i int) ([]lnlp.Assignment[lnlp.Scored[TemporalExpression]], int, bool) {
	if !strings.EqualFold(sel.TokenText(i), "the") {
		return nil, 0, false
	}

	var capWords []string
	pos := i
	end := i
	for {
		next, ok := sel.NextWord(pos)
		if !ok {
			break
		}
		text := sel.TokenText(next)
		if !isCapitalized(text) {
			break
		}
		capWords = append(capWords, text)
		pos = next
		end = next
		if strings.EqualFold(text, "date") {
			break
		}
	}
	if len(capWords) < 2 || !strings.EqualFold(capWords[len(capWords)-1], "date") {
		return nil, 0, false
	}

	span := lnlp.Span(i, end)
	expr := TemporalExpression{
		Kind:        TemporalDefinedDate,
		DefinedTerm: strings.Join(capWords, " "),
		Text:        sel.Line().TextIn(span),
	}
	return []lnlp.Assignment[lnlp.Scored[TemporalExpression]]{
		lnlp.Assign(span, lnlp.NewScored(expr, r.definedDateConfidence, "defined_date_pattern")),
	}, end, true
}

// tryRelative matches `upon|following|during|prior to|at the time of
// <trigger>`; the trigger absorbs capitalized continuation and the
// connectives of/the.
func (r *TemporalResolver) tryRelative(sel lnlp.Selection, i int) ([]lnlp.Assignment[lnlp.Scored[TemporalExpression]], int, bool) {
	word := strings.ToLower(sel.TokenText(i))

	relation, keywordEnd, ok := func() (TimeRelation, int, bool) {
		switch word {
		case "upon":
			return RelationUpon, i, true
		case "following":
			return RelationFollowing, i, true
		case "during":
			return RelationDuring, i, true
		case "prior":
			if r.matchWords(sel, i, "prior", "to") {
				return RelationPriorTo, r.wordEnd(sel, i, 2), true
			}
		case "at":
			if r.matchWords(sel, i, "at", "the", "time", "of") {
				return RelationAtTimeOf, r.wordEnd(sel, i, 4), true
			}
		}
		return 0, 0, false
	}()
	if !ok {
		return nil, 0, false
	}

	first, ok := sel.NextWord(keywordEnd)
	if !ok {
		return nil, 0, false
	}
	firstTok, _ := sel.Token(first)
	if firstTok.Class != lnlp.ClassWord {
		return nil, 0, false
	}

	trigger := []string{firstTok.Text}
	pos := first
	end := first
	for {
		next, ok := sel.NextWord(pos)
		if !ok {
			break
		}
		text := sel.TokenText(next)
		if isCapitalized(text) {
			trigger = append(trigger, text)
			pos, end = next, next
			continue
		}
		// Connectives (of/the, possibly chained) are absorbed only when a
		// capitalized continuation follows them.
		words, last, ok := absorbConnectives(sel, next)
		if !ok {
			break
		}
		trigger = append(trigger, words...)
		pos, end = last, last
	}

	span := lnlp.Span(i, end)
	expr := TemporalExpression{
		Kind:     TemporalRelative,
		Relative: &RelativeTime{Relation: relation, Trigger: strings.Join(trigger, " ")},
		Text:     sel.Line().TextIn(span),
	}
	conf := 0.9 * r.durationConfidence
	return []lnlp.Assignment[lnlp.Scored[TemporalExpression]]{
		lnlp.Assign(span, lnlp.NewScored(expr, conf, "relative_time_pattern")),
	}, end, true
}

// absorbConnectives consumes a run of of/the starting at token i followed
// by one capitalized word. Returns the absorbed words and the last token.
func absorbConnectives(sel lnlp.Selection, i int) ([]string, int, bool) {
	var words []string
	pos := i
	for {
		text := sel.TokenText(pos)
		lower := strings.ToLower(text)
		if isCapitalized(text) {
			words = append(words, text)
			return words, pos, true
		}
		if lower != "of" && lower != "the" || len(words) >= 3 {
			return nil, 0, false
		}
		words = append(words, text)
		next, ok := sel.NextWord(pos)
		if !ok {
			return nil, 0, false
		}
		pos = next
	}
}

// matchWords reports whether the word sequence starting at token i equals
// words (case-insensitive, whitespace-separated).
func (r *TemporalResolver) matchWords(sel lnlp.Selection, i int, words ...string) bool {
	pos := i
	for wi, w := range words {
		if wi > 0 {
			next, ok := sel.NextWord(pos)
			if !ok {
				return false
			}
			pos = next
		}
		if !strings.EqualFold(sel.TokenText(pos), w) {
			return false
		}
	}
	return true
}

// wordEnd returns the token index of the n-th word of a sequence starting
// at i (n >= 1).
func (r *TemporalResolver) wordEnd(sel lnlp.Selection, i, n int) int {
	pos := i
	for k := 1; k < n; k++ {
		next, ok := sel.NextWord(pos)
		if !ok {
			return pos
		}
		pos = next
	}
	return pos
}
