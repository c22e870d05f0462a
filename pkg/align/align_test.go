package align

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coolbeans/covenant/pkg/contract"
	"github.com/coolbeans/covenant/pkg/lnlp"
	"github.com/coolbeans/covenant/pkg/structure"
)

func analyzed(t *testing.T, text string) (*lnlp.Document, *structure.DocumentStructure) {
	t.Helper()
	d := contract.NewPipeline().Analyze(text)
	built := structure.NewBuilder().Build(d)
	require.True(t, built.Ok())
	return d, built.Value
}

func TestJaccardAndCosineEdgeCases(t *testing.T) {
	assert.Equal(t, 1.0, Jaccard(nil, nil), "both empty sets are identical")
	assert.Equal(t, 0.0, Jaccard(map[string]bool{"a": true}, map[string]bool{"b": true}))
	assert.Equal(t, 1.0, Cosine(nil, nil))
	assert.Equal(t, 0.0, Cosine(map[string]int{"a": 1}, nil), "one empty frequency map")
	assert.InDelta(t, 1.0, Cosine(map[string]int{"a": 2}, map[string]int{"a": 5}), 1e-9)
}

func TestStringSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, StringSimilarity("Payment", "payment"))
	assert.Equal(t, 1.0, StringSimilarity("", ""))
	assert.InDelta(t, 1.0-2.0/11.0, StringSimilarity("section:1.1", "section:7.4"), 1e-9)
	assert.Less(t, StringSimilarity("Security", "Holding"), 0.3)
}

func TestHungarianPicksMinimumCost(t *testing.T) {
	cost := [][]float64{
		{4, 1, 3},
		{2, 0, 5},
		{3, 2, 2},
	}
	got := hungarian(cost)
	require.Len(t, got, 3)
	total := 0.0
	seen := make(map[int]bool)
	for i, j := range got {
		require.False(t, seen[j], "assignment must be a permutation")
		seen[j] = true
		total += cost[i][j]
	}
	assert.InDelta(t, 5.0, total, 1e-9, "optimal assignment is 1+2+2")
}

const alignOrigText = `Section 1.1 Payment
The Buyer shall pay the "Purchase Price" within thirty days of invoice.
Section 1.2 Delivery
The Vendor shall deliver the goods to the designated warehouse location.`

func TestExactIDMatchPass(t *testing.T) {
	origDoc, origStruct := analyzed(t, alignOrigText)
	revDoc, revStruct := analyzed(t, alignOrigText)

	result := NewAligner(DefaultConfig(), nil).Align(origDoc, origStruct, revDoc, revStruct)
	require.Len(t, result.Alignments, 2)
	for _, a := range result.Alignments {
		assert.Equal(t, AlignExactMatch, a.Type, "identical text is an exact match")
		assert.GreaterOrEqual(t, a.Confidence, 0.9)
		assert.Empty(t, a.UncertaintyReason)
	}
	assert.Equal(t, 2, result.Stats.Exact)
	assert.Equal(t, result.Stats.Total(), len(result.Alignments), "stats sum to alignment count")
}

func TestRenumberedByTitleAndDepth(t *testing.T) {
	revText := `Section 4.1 Payment
The Buyer shall pay the "Purchase Price" within thirty days of invoice.
Section 4.2 Delivery
The Vendor shall deliver the goods to the designated warehouse location.`

	origDoc, origStruct := analyzed(t, alignOrigText)
	revDoc, revStruct := analyzed(t, revText)

	result := NewAligner(DefaultConfig(), nil).Align(origDoc, origStruct, revDoc, revStruct)
	require.Len(t, result.Alignments, 2)
	for _, a := range result.Alignments {
		assert.Equal(t, AlignRenumbered, a.Type)
	}
	assert.Equal(t, 2, result.Stats.Renumbered)
}

func TestDeletionAndInsertion(t *testing.T) {
	origDoc, origStruct := analyzed(t, `Section 1.1 Payment
The Buyer shall pay the invoice amount promptly upon receipt.`)
	revDoc, revStruct := analyzed(t, `Section 9.9 Arbitration
Any dispute arising hereunder is settled by binding arbitration in Geneva.`)

	result := NewAligner(DefaultConfig(), nil).Align(origDoc, origStruct, revDoc, revStruct)
	assert.Equal(t, 1, result.Stats.Deleted)
	assert.Equal(t, 1, result.Stats.Inserted)
	for _, a := range result.Alignments {
		assert.InDelta(t, 0.60, a.Confidence, 1e-9, "unmatched default confidence")
	}
	assert.Equal(t, result.Stats.Total(), len(result.Alignments))
}

const splitOrigText = `Section 2.3 Security
The "Deposit" equals two monthly payments held in trust.
The "Escrow" account releases funds after final inspection.
Interest accrues quarterly under applicable banking regulations.
Unclaimed balances revert following statutory dormancy periods.`

const splitRevText = `Section 7.1 Holding
The "Deposit" equals two monthly payments held in trust.
Section 8.4 Disbursement
The "Escrow" account releases funds after final inspection.`

func TestSplitDetectionScenario(t *testing.T) {
	origDoc, origStruct := analyzed(t, splitOrigText)
	revDoc, revStruct := analyzed(t, splitRevText)

	// Compute the semantic similarities the pass will see, to pin the
	// expected confidence.
	origSem := ExtractSemantics(origDoc, origStruct.Nodes()[0])
	revNodes := revStruct.Nodes()
	require.Len(t, revNodes, 2)
	s1 := SemanticSimilarity(origSem, ExtractSemantics(revDoc, revNodes[0]))
	s2 := SemanticSimilarity(origSem, ExtractSemantics(revDoc, revNodes[1]))
	require.GreaterOrEqual(t, s1, 0.30, "first fragment must clear the candidate threshold")
	require.GreaterOrEqual(t, s2, 0.30, "second fragment must clear the candidate threshold")
	require.GreaterOrEqual(t, s1+s2, 0.80, "summed similarity must clear the accept threshold")

	result := NewAligner(DefaultConfig(), nil).Align(origDoc, origStruct, revDoc, revStruct)

	var split *AlignmentCandidate
	for i := range result.Alignments {
		if result.Alignments[i].Type == AlignSplit {
			split = &result.Alignments[i]
		}
	}
	require.NotNil(t, split, "one original covering two revised fragments is a split")
	assert.Len(t, split.Original, 1)
	assert.Len(t, split.Revised, 2)
	assert.InDelta(t, minFloat(1.0, (s1+s2)/2.0), split.Confidence, 1e-9)
	assert.Equal(t, 1, result.Stats.Split)
	assert.Equal(t, result.Stats.Total(), len(result.Alignments))
}

func TestMergeDetection(t *testing.T) {
	origDoc, origStruct := analyzed(t, splitRevText)
	revDoc, revStruct := analyzed(t, splitOrigText)

	result := NewAligner(DefaultConfig(), nil).Align(origDoc, origStruct, revDoc, revStruct)

	var merged *AlignmentCandidate
	for i := range result.Alignments {
		if result.Alignments[i].Type == AlignMerged {
			merged = &result.Alignments[i]
		}
	}
	require.NotNil(t, merged)
	assert.Len(t, merged.Original, 2)
	assert.Len(t, merged.Revised, 1)
	assert.Equal(t, 1, result.Stats.Merged)
}

func TestCandidateIDsStable(t *testing.T) {
	origDoc, origStruct := analyzed(t, alignOrigText)
	revDoc, revStruct := analyzed(t, alignOrigText)
	a := NewAligner(DefaultConfig(), nil)

	first := a.Compute(origDoc, origStruct, revDoc, revStruct)
	second := a.Compute(origDoc, origStruct, revDoc, revStruct)
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		assert.Equal(t, first[i].Type, second[i].Type)
	}
}

func TestForceMatchHintIdempotent(t *testing.T) {
	origDoc, origStruct := analyzed(t, alignOrigText)
	revDoc, revStruct := analyzed(t, alignOrigText)
	a := NewAligner(DefaultConfig(), nil)
	candidates := a.Compute(origDoc, origStruct, revDoc, revStruct)
	require.NotEmpty(t, candidates)

	id := candidates[0].ID
	hint := Hint{
		CandidateID: &id,
		HintType:    HintType{Kind: HintForceMatch, MatchType: "modified"},
		Confidence:  0.97,
		Source:      "reviewer",
	}

	candidates = ApplyHints(candidates, []Hint{hint}, DefaultConfig().Weights)
	once := candidates[0].Confidence
	candidates = ApplyHints(candidates, []Hint{hint}, DefaultConfig().Weights)

	assert.Equal(t, once, candidates[0].Confidence, "re-applying the same force_match keeps the confidence")
	assert.Equal(t, AlignModified, candidates[0].Type)
	assert.Empty(t, candidates[0].UncertaintyReason)

	found := false
	for _, s := range candidates[0].Signals {
		if s.Name == "hint:reviewer" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestForceNoMatchDropsFromResult(t *testing.T) {
	origDoc, origStruct := analyzed(t, alignOrigText)
	revDoc, revStruct := analyzed(t, alignOrigText)
	a := NewAligner(DefaultConfig(), nil)
	candidates := a.Compute(origDoc, origStruct, revDoc, revStruct)
	require.NotEmpty(t, candidates)

	hint := Hint{
		OriginalIDs: candidates[0].Original,
		RevisedIDs:  candidates[0].Revised,
		HintType:    HintType{Kind: HintForceNoMatch},
		Source:      "reviewer",
	}
	candidates = ApplyHints(candidates, []Hint{hint}, DefaultConfig().Weights)
	result := a.Finalize(candidates)

	for _, al := range result.Alignments {
		assert.False(t, sameIDSet(al.Original, hint.OriginalIDs) && sameIDSet(al.Revised, hint.RevisedIDs),
			"force_no_match targets never appear in the final result")
	}
}

func TestAdjustConfidenceClamped(t *testing.T) {
	c := []AlignmentCandidate{{ID: 0, Confidence: 0.9}}
	id := 0
	c = ApplyHints(c, []Hint{{
		CandidateID: &id,
		HintType:    HintType{Kind: HintAdjustConfidence, Delta: 0.5},
	}}, DefaultConfig().Weights)
	assert.Equal(t, 1.0, c[0].Confidence)

	c = ApplyHints(c, []Hint{{
		CandidateID: &id,
		HintType:    HintType{Kind: HintAdjustConfidence, Delta: -2.0},
	}}, DefaultConfig().Weights)
	assert.Equal(t, 0.0, c[0].Confidence)
}

func TestSemanticContextAppendsSignal(t *testing.T) {
	c := []AlignmentCandidate{{ID: 0, Confidence: 0.8}}
	id := 0
	c = ApplyHints(c, []Hint{{
		CandidateID: &id,
		HintType:    HintType{Kind: HintSemanticContext, Topics: []string{"payment", "escrow"}},
		Confidence:  0.7,
	}}, DefaultConfig().Weights)

	require.Len(t, c[0].Signals, 1)
	assert.Equal(t, "semantic_context:payment,escrow", c[0].Signals[0].Name)
	assert.Equal(t, DefaultConfig().Weights.Semantic, c[0].Signals[0].Weight)
	assert.Equal(t, 0.8, c[0].Confidence, "semantic context never changes confidence")
}

func TestConfigValidation(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())

	bad := cfg
	bad.Thresholds.Match = 1.4
	assert.Error(t, bad.Validate())

	zero := Config{}
	assert.Error(t, zero.Validate())
}
