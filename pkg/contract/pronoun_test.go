package contract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coolbeans/covenant/pkg/lnlp"
)

func pronounDoc(t *testing.T, text string) *lnlp.Document {
	t.Helper()
	d := lnlp.FromText(text)
	lnlp.Run[POSTag](d, NewPartOfSpeechResolver())
	lnlp.Run[lnlp.Scored[DefinedTerm]](d, NewDefinitionResolver())
	table := CollectDefinedTerms(d)
	lnlp.Run[lnlp.Scored[TermReference]](d, NewTermReferenceResolver(table))
	lnlp.Run[lnlp.Scored[PronounReference]](d, NewPronounResolver(d))
	return d
}

func allPronouns(d *lnlp.Document) []lnlp.Attr[lnlp.Scored[PronounReference]] {
	var out []lnlp.Attr[lnlp.Scored[PronounReference]]
	d.EachLine(func(i int, l *lnlp.Line) {
		out = append(out, lnlp.Attrs[lnlp.Scored[PronounReference]](l)...)
	})
	return out
}

func TestPronounCandidatesPrecedePronoun(t *testing.T) {
	d := pronounDoc(t, "The Vendor shall deliver the goods and it shall invoice promptly.")
	prons := allPronouns(d)
	require.NotEmpty(t, prons)

	var it *lnlp.Attr[lnlp.Scored[PronounReference]]
	for i := range prons {
		if prons[i].Value.Value.Pronoun == "it" {
			it = &prons[i]
		}
	}
	require.NotNil(t, it)
	require.True(t, it.Value.Value.Resolved())
	for _, c := range it.Value.Value.Candidates {
		assert.Greater(t, c.TokenDistance, 0)
	}
	best, _ := it.Value.Value.Best()
	assert.Equal(t, "Vendor", best.Text)
}

func TestPronounDefinedTermBoost(t *testing.T) {
	d := pronounDoc(t, `"Supplier" means Acme Corp.
The Supplier warrants that it owns the goods.`)
	prons := allPronouns(d)
	require.NotEmpty(t, prons)

	var it *lnlp.Attr[lnlp.Scored[PronounReference]]
	for i := range prons {
		if prons[i].Value.Value.Pronoun == "it" {
			it = &prons[i]
		}
	}
	require.NotNil(t, it)
	best, ok := it.Value.Value.Best()
	require.True(t, ok)
	assert.True(t, best.IsDefinedTerm)
}

func TestPronounCandidateLimit(t *testing.T) {
	d := pronounDoc(t, "Alpha, Bravo, Charlie, Delta, Echo, Foxtrot and Golf agree that they cooperate.")
	prons := allPronouns(d)
	require.NotEmpty(t, prons)
	for _, p := range prons {
		assert.LessOrEqual(t, len(p.Value.Value.Candidates), 5)
	}
}

func TestPronounCandidatesSortedByConfidence(t *testing.T) {
	d := pronounDoc(t, `"Landlord" means Acme Corp.
The Landlord and the Manager agree that it controls the building.`)
	prons := allPronouns(d)
	require.NotEmpty(t, prons)
	for _, p := range prons {
		cands := p.Value.Value.Candidates
		for i := 1; i < len(cands); i++ {
			assert.GreaterOrEqual(t, cands[i-1].Confidence, cands[i].Confidence)
		}
	}
}

func TestPluralAgreementPrefersParties(t *testing.T) {
	d := pronounDoc(t, "The Vendors and the Manager agree that they deliver monthly.")
	prons := allPronouns(d)
	require.NotEmpty(t, prons)

	var they *lnlp.Attr[lnlp.Scored[PronounReference]]
	for i := range prons {
		if prons[i].Value.Value.Pronoun == "they" {
			they = &prons[i]
		}
	}
	require.NotNil(t, they)
	best, ok := they.Value.Value.Best()
	require.True(t, ok)
	assert.Equal(t, "Vendors", best.Text)
}

func TestDemonstrativeDeterminerSkipped(t *testing.T) {
	d := pronounDoc(t, "The Vendor shall not assign this Agreement to anyone.")
	for _, p := range allPronouns(d) {
		assert.NotEqual(t, "this", p.Value.Value.Pronoun,
			"'this Agreement' is a determiner, not an anaphoric pronoun")
	}
}
