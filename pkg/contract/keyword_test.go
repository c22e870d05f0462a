package contract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coolbeans/covenant/pkg/lnlp"
)

func runKeywords(t *testing.T, text string) *lnlp.Line {
	t.Helper()
	d := lnlp.FromText(text)
	require.Equal(t, 1, d.LineCount())
	lnlp.Run[ContractKeyword](d, NewKeywordResolver())
	lnlp.Run[ContractKeyword](d, NewProhibitionResolver())
	return d.Line(0)
}

func kindsOn(l *lnlp.Line) []KeywordKind {
	var out []KeywordKind
	for _, a := range lnlp.Attrs[ContractKeyword](l) {
		out = append(out, a.Value.Kind)
	}
	return out
}

func TestKeywordBasics(t *testing.T) {
	l := runKeywords(t, "The Company shall pay if the Buyer accepts, unless waived.")
	kinds := kindsOn(l)
	assert.Contains(t, kinds, KwShall)
	assert.Contains(t, kinds, KwIf)
	assert.Contains(t, kinds, KwUnless)
}

func TestShallNotCompoundContainsInnerShall(t *testing.T) {
	l := runKeywords(t, "The Vendor shall not assign this Agreement.")

	var shallNot, shall *lnlp.Attr[ContractKeyword]
	for _, a := range lnlp.Attrs[ContractKeyword](l) {
		a := a
		switch a.Value.Kind {
		case KwShallNot:
			shallNot = &a
		case KwShall:
			shall = &a
		}
	}
	require.NotNil(t, shallNot)
	require.NotNil(t, shall)
	assert.True(t, shallNot.Span.Contains(shall.Span))
	assert.Equal(t, shallNot.Span.Start, shall.Span.Start)
}

func TestProhibitionNormalization(t *testing.T) {
	l := runKeywords(t, "The Tenant may not sublease and cannot assign.")

	shallNots := KeywordsOfKind(l, KwShallNot)
	assert.Len(t, shallNots, 2, "may not and cannot both normalize")
}

func TestModalAnchorsSkipNestedModals(t *testing.T) {
	l := runKeywords(t, "The Vendor shall not assign.")
	anchors := ModalAnchors(l)
	require.Len(t, anchors, 1)
	assert.Equal(t, KwShallNot, anchors[0].Value.Kind)

	l = runKeywords(t, "The Tenant may not sublease.")
	anchors = ModalAnchors(l)
	require.Len(t, anchors, 1)
	assert.Equal(t, KwShallNot, anchors[0].Value.Kind)
}

func TestCompoundConnectives(t *testing.T) {
	l := runKeywords(t, "Payment is due, subject to Section 3, provided that notice is given.")
	kinds := kindsOn(l)
	assert.Contains(t, kinds, KwSubjectTo)
	assert.Contains(t, kinds, KwProvided)
}

func TestCoordinationKeywords(t *testing.T) {
	l := runKeywords(t, "A pays and B works or C manages but D waits, nor E.")
	assert.Len(t, KeywordsOfKind(l, KwAnd), 1)
	assert.Len(t, KeywordsOfKind(l, KwOr), 1)
	assert.Len(t, KeywordsOfKind(l, KwBut), 1)
	assert.Len(t, KeywordsOfKind(l, KwNor), 1)
}

func TestTermsOfArtFirstWordLookup(t *testing.T) {
	r := NewTermsOfArtResolver()
	d := lnlp.FromText("The force majeure clause shall excuse performance. Payment is due net 30.")
	lnlp.Run[TermOfArt](d, r)

	terms := lnlp.Attrs[TermOfArt](d.Line(0))
	require.Len(t, terms, 2)
	assert.Equal(t, "force majeure", terms[0].Value.Canonical)
	assert.Equal(t, CategoryLegalDoctrine, terms[0].Value.Category)
	assert.Equal(t, "net 30", terms[1].Value.Canonical)
	assert.Equal(t, CategoryPaymentTerm, terms[1].Value.Category)
}

func TestTermsOfArtNoPartialMatch(t *testing.T) {
	r := NewTermsOfArtResolver()
	d := lnlp.FromText("The net amount is due and the company shall force compliance.")
	lnlp.Run[TermOfArt](d, r)
	assert.Empty(t, lnlp.Attrs[TermOfArt](d.Line(0)))
}

func TestTermsOfArtCaseInsensitive(t *testing.T) {
	r := NewTermsOfArtResolver()
	d := lnlp.FromText("FORCE MAJEURE shall excuse performance.")
	lnlp.Run[TermOfArt](d, r)

	terms := lnlp.Attrs[TermOfArt](d.Line(0))
	require.Len(t, terms, 1)
	assert.Equal(t, "force majeure", terms[0].Value.Canonical)
}

func TestTermsOfArtLongestWins(t *testing.T) {
	r := NewTermsOfArtResolver()
	d := lnlp.FromText("Notwithstanding anything to the contrary herein, payment is due.")
	lnlp.Run[TermOfArt](d, r)

	terms := lnlp.Attrs[TermOfArt](d.Line(0))
	require.Len(t, terms, 1)
	assert.Equal(t, "notwithstanding anything to the contrary", terms[0].Value.Canonical)
}

func TestTermsOfArtCustomEntry(t *testing.T) {
	r := NewTermsOfArtResolver()
	r.Add("custom legal term", CategoryLegalDoctrine)
	d := lnlp.FromText("This is a custom legal term example.")
	lnlp.Run[TermOfArt](d, r)

	terms := lnlp.Attrs[TermOfArt](d.Line(0))
	require.Len(t, terms, 1)
	assert.Equal(t, "custom legal term", terms[0].Value.Canonical)
}
