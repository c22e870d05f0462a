package lnlp

import "strings"

// Pred is a token predicate used by the search combinators. Predicates are
// total: they are only invoked with in-range indices and never panic.
type Pred func(l *Line, i int) bool

// Class matches tokens of the given class.
func Class(c TokenClass) Pred {
	return func(l *Line, i int) bool {
		t, ok := l.Token(i)
		return ok && t.Class == c
	}
}

// Word matches word tokens.
func Word() Pred { return Class(ClassWord) }

// NatN matches natural-number tokens.
func NatN() Pred { return Class(ClassNatN) }

// Whitespace matches whitespace tokens.
func Whitespace() Pred { return Class(ClassWhitespace) }

// TextIs matches tokens whose text equals any of texts, case-insensitively.
func TextIs(texts ...string) Pred {
	return func(l *Line, i int) bool {
		t, ok := l.Token(i)
		if !ok {
			return false
		}
		for _, s := range texts {
			if strings.EqualFold(t.Text, s) {
				return true
			}
		}
		return false
	}
}

// TextEq matches tokens whose text equals s exactly.
func TextEq(s string) Pred {
	return func(l *Line, i int) bool {
		t, ok := l.Token(i)
		return ok && t.Text == s
	}
}

// AllOf matches when every predicate matches.
func AllOf(ps ...Pred) Pred {
	return func(l *Line, i int) bool {
		for _, p := range ps {
			if !p(l, i) {
				return false
			}
		}
		return true
	}
}

// AnyOf matches when at least one predicate matches.
func AnyOf(ps ...Pred) Pred {
	return func(l *Line, i int) bool {
		for _, p := range ps {
			if p(l, i) {
				return true
			}
		}
		return false
	}
}

// Not inverts a predicate.
func Not(p Pred) Pred {
	return func(l *Line, i int) bool { return !p(l, i) }
}

// WithAttr matches tokens covered by an attribute of type T.
func WithAttr[T any]() Pred {
	return func(l *Line, i int) bool { return HasAttrAt[T](l, i) }
}

// Selection is a token range on one line, the unit a line resolver works
// over. LineIndex carries the document line the selection came from (zero
// for free-standing lines).
type Selection struct {
	line      *Line
	Start     int
	End       int
	LineIndex int
}

// Select returns a selection over the whole line. A zero-token line yields
// an empty selection.
func Select(l *Line) Selection {
	return Selection{line: l, Start: 0, End: l.Len() - 1}
}

// Line returns the underlying line.
func (s Selection) Line() *Line { return s.line }

// Span returns the selection's token range.
func (s Selection) Span() SpanRef { return SpanRef{Start: s.Start, End: s.End} }

// Empty reports whether the selection covers no tokens.
func (s Selection) Empty() bool { return s.line == nil || s.End < s.Start }

// Token returns the token at absolute index i when i is inside the
// selection.
func (s Selection) Token(i int) (Token, bool) {
	if s.Empty() || i < s.Start || i > s.End {
		return Token{}, false
	}
	return s.line.Token(i)
}

// TokenText returns the text at absolute index i, or "".
func (s Selection) TokenText(i int) string {
	t, ok := s.Token(i)
	if !ok {
		return ""
	}
	return t.Text
}

// Sub returns the sub-selection clamped to [start, end].
func (s Selection) Sub(start, end int) Selection {
	if start < s.Start {
		start = s.Start
	}
	if end > s.End {
		end = s.End
	}
	return Selection{line: s.line, Start: start, End: end, LineIndex: s.LineIndex}
}

// FindBy returns every token index in the selection matching p, in
// document order.
func (s Selection) FindBy(p Pred) []int {
	if s.Empty() {
		return nil
	}
	var out []int
	for i := s.Start; i <= s.End; i++ {
		if p(s.line, i) {
			out = append(out, i)
		}
	}
	return out
}

// FindFirstBy returns the first token index matching p.
func (s Selection) FindFirstBy(p Pred) (int, bool) {
	if s.Empty() {
		return 0, false
	}
	for i := s.Start; i <= s.End; i++ {
		if p(s.line, i) {
			return i, true
		}
	}
	return 0, false
}

// MatchFirstForwards scans forward from index `from` (inclusive) and
// returns the first match inside the selection.
func (s Selection) MatchFirstForwards(from int, p Pred) (int, bool) {
	if s.Empty() {
		return 0, false
	}
	if from < s.Start {
		from = s.Start
	}
	for i := from; i <= s.End; i++ {
		if p(s.line, i) {
			return i, true
		}
	}
	return 0, false
}

// MatchFirstBackwards scans backward from index `from` (inclusive) and
// returns the first match inside the selection.
func (s Selection) MatchFirstBackwards(from int, p Pred) (int, bool) {
	if s.Empty() {
		return 0, false
	}
	if from > s.End {
		from = s.End
	}
	for i := from; i >= s.Start; i-- {
		if p(s.line, i) {
			return i, true
		}
	}
	return 0, false
}

// SplitWith splits the selection on tokens matching p. Separator tokens are
// not part of any piece; empty pieces are dropped.
func (s Selection) SplitWith(p Pred) []Selection {
	if s.Empty() {
		return nil
	}
	var out []Selection
	start := s.Start
	for i := s.Start; i <= s.End; i++ {
		if p(s.line, i) {
			if i > start {
				out = append(out, s.Sub(start, i-1))
			}
			start = i + 1
		}
	}
	if start <= s.End {
		out = append(out, s.Sub(start, s.End))
	}
	return out
}

// SkipWhitespaceForwards returns the first non-whitespace index at or after
// from.
func (s Selection) SkipWhitespaceForwards(from int) (int, bool) {
	return s.MatchFirstForwards(from, Not(Whitespace()))
}

// SkipWhitespaceBackwards returns the first non-whitespace index at or
// before from.
func (s Selection) SkipWhitespaceBackwards(from int) (int, bool) {
	return s.MatchFirstBackwards(from, Not(Whitespace()))
}

// NextWord returns the index of the next word or number token strictly
// after from.
func (s Selection) NextWord(from int) (int, bool) {
	return s.MatchFirstForwards(from+1, AnyOf(Word(), NatN()))
}

// PrevWord returns the index of the previous word or number token strictly
// before from.
func (s Selection) PrevWord(from int) (int, bool) {
	return s.MatchFirstBackwards(from-1, AnyOf(Word(), NatN()))
}
