package lnlp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenizeClasses(t *testing.T) {
	tokens := Tokenize("The Company shall pay $5,000 within 30 days.")

	var words, numbers, punct, spaces int
	for _, tok := range tokens {
		switch tok.Class {
		case ClassWord:
			words++
		case ClassNatN:
			numbers++
		case ClassPunc:
			punct++
		case ClassWhitespace:
			spaces++
		}
	}

	assert.Equal(t, 6, words)
	assert.Equal(t, 3, numbers, "5, 000 and 30")
	assert.Equal(t, 3, punct, "$ , and the final period")
	assert.Equal(t, 7, spaces)
}

func TestTokenizeEmpty(t *testing.T) {
	assert.Empty(t, Tokenize(""))
	assert.Equal(t, 0, NewLine("").Len())
}

func TestTokenizeContraction(t *testing.T) {
	tokens := Tokenize("can't won't")
	require.Len(t, tokens, 3)
	assert.Equal(t, "can't", tokens[0].Text)
	assert.Equal(t, ClassWord, tokens[0].Class)
	assert.Equal(t, "won't", tokens[2].Text)
}

func TestTokenizeUnicode(t *testing.T) {
	tokens := Tokenize("naïve café")
	require.Len(t, tokens, 3)
	assert.Equal(t, "naïve", tokens[0].Text)
	assert.Equal(t, "café", tokens[2].Text)
}

func TestLineRoundTrip(t *testing.T) {
	text := "Section 1.1 — Payment Terms."
	l := NewLine(text)
	assert.Equal(t, text, l.Text())
}

type marker struct{ Tag string }

func TestAttrStoreOrderAndContainment(t *testing.T) {
	l := NewLine("a b c d e")

	AddAttr(l, Span(4, 6), marker{Tag: "late"})
	AddAttr(l, Span(0, 0), marker{Tag: "early"})
	AddAttr(l, Span(0, 2), marker{Tag: "wide"})

	got := Attrs[marker](l)
	require.Len(t, got, 3)
	assert.Equal(t, "early", got[0].Value.Tag)
	assert.Equal(t, "wide", got[1].Value.Tag)
	assert.Equal(t, "late", got[2].Value.Tag)

	inside := AttrsIn[marker](l, Span(0, 3))
	require.Len(t, inside, 2)

	assert.True(t, HasAttrAt[marker](l, 5))
	assert.False(t, HasAttrAt[marker](l, 8))
}

func TestAssociations(t *testing.T) {
	l := NewLine("x relates to y")
	AddAttr(l, Span(0, 0), marker{Tag: "src"}, Association{Label: "target", Glyph: '→', Target: Span(6, 6)})

	got := Attrs[marker](l)
	require.Len(t, got, 1)
	require.Len(t, got[0].Assocs, 1)
	assert.Equal(t, "target", got[0].Assocs[0].Label)
	assert.Equal(t, Span(6, 6), got[0].Assocs[0].Target)
}

func TestSelectionCombinators(t *testing.T) {
	l := NewLine("The Vendor shall pay, and the Buyer shall accept.")
	sel := Select(l)

	shalls := sel.FindBy(TextIs("shall"))
	assert.Len(t, shalls, 2)

	first, ok := sel.FindFirstBy(TextIs("shall"))
	require.True(t, ok)
	assert.Equal(t, "shall", sel.TokenText(first))

	back, ok := sel.MatchFirstBackwards(first, AllOf(Word(), Not(TextIs("shall"))))
	require.True(t, ok)
	assert.Equal(t, "Vendor", sel.TokenText(back))

	pieces := sel.SplitWith(TextEq(","))
	assert.Len(t, pieces, 2)

	_, ok = sel.MatchFirstForwards(sel.End+5, Word())
	assert.False(t, ok, "out-of-range scans are total, not panics")
}

func TestSplitWithEmptySelection(t *testing.T) {
	sel := Select(NewLine(""))
	assert.True(t, sel.Empty())
	assert.Nil(t, sel.SplitWith(TextEq(",")))
	assert.Nil(t, sel.FindBy(Word()))
}

func TestDocumentFromText(t *testing.T) {
	d := FromText("First line.\n\n  \nSecond line.\nThird line.")

	require.Equal(t, 3, d.LineCount())
	assert.Equal(t, 1, d.SourceLineNumber(0))
	assert.Equal(t, 4, d.SourceLineNumber(1))
	assert.Equal(t, 5, d.SourceLineNumber(2))
	assert.Equal(t, 0, d.SourceLineNumber(7))
}

func TestDocumentSourceLinesStrictlyIncreasing(t *testing.T) {
	d := FromText("a\n\nb\nc\n\n\nd")
	prev := 0
	for i := 0; i < d.LineCount(); i++ {
		n := d.SourceLineNumber(i)
		assert.Greater(t, n, prev)
		prev = n
	}
}

func TestDocumentEmptyInput(t *testing.T) {
	d := FromText("")
	assert.Equal(t, 0, d.LineCount())
	assert.Nil(t, d.Line(0))
}

type tagAttr struct{ Name string }

type tagResolver struct{}

func (tagResolver) ResolveLine(sel Selection) []Assignment[tagAttr] {
	var out []Assignment[tagAttr]
	for _, i := range sel.FindBy(TextIs("shall")) {
		out = append(out, Assign(Single(i), tagAttr{Name: "modal"}))
	}
	return out
}

func TestRunLineResolver(t *testing.T) {
	d := FromText("A shall pay.\nB may decline.\nC shall not delay.")
	Run[tagAttr](d, tagResolver{})

	assert.Len(t, Attrs[tagAttr](d.Line(0)), 1)
	assert.Empty(t, Attrs[tagAttr](d.Line(1)))
	assert.Len(t, Attrs[tagAttr](d.Line(2)), 1)
}

type countResolver struct{}

func (countResolver) ResolveDocument(d *Document) []int {
	return []int{d.LineCount()}
}

func TestRunDocumentResolver(t *testing.T) {
	d := FromText("one\ntwo")
	RunDocument[int](d, countResolver{})
	assert.Equal(t, []int{2}, DocAttrs[int](d))
}

func TestDocSpanContainment(t *testing.T) {
	outer := DocSpan{Start: DocPosition{Line: 1, Token: 0}, End: DocPosition{Line: 3, Token: 5}}
	inner := DocSpan{Start: DocPosition{Line: 2, Token: 2}, End: DocPosition{Line: 2, Token: 4}}
	disjoint := DocSpan{Start: DocPosition{Line: 4, Token: 0}, End: DocPosition{Line: 4, Token: 1}}

	assert.True(t, outer.Contains(inner))
	assert.False(t, inner.Contains(outer))
	assert.True(t, outer.Overlaps(inner))
	assert.False(t, outer.Overlaps(disjoint))
	assert.False(t, outer.SingleLine())
	assert.True(t, inner.SingleLine())
}

func TestScoredClamping(t *testing.T) {
	s := NewScored("x", 1.4)
	assert.Equal(t, 1.0, s.Confidence)

	s = NewScored("x", -0.2)
	assert.Equal(t, 0.0, s.Confidence)

	s = NewScored("x", 0.5, "base").Scale(1.5).WithRationale("boost")
	assert.Equal(t, 0.75, s.Confidence)
	assert.Equal(t, []string{"base", "boost"}, s.Rationale)
}
