package structure

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coolbeans/covenant/pkg/contract"
	"github.com/coolbeans/covenant/pkg/lnlp"
)

func buildFrom(t *testing.T, text string) (*lnlp.Document, *DocumentStructure, lnlp.Result[*DocumentStructure]) {
	t.Helper()
	d := contract.NewPipeline().Analyze(text)
	result := NewBuilder().Build(d)
	require.True(t, result.Ok())
	return d, result.Value, result
}

const outlineText = `ARTICLE I - DEFINITIONS
Section 1.1 Terms
Section 1.2 Interpretation
ARTICLE II - OBLIGATIONS
Section 2.1 Payment
The Company shall pay on time.`

func TestBuildOutlineTree(t *testing.T) {
	_, s, _ := buildFrom(t, outlineText)

	require.Len(t, s.Roots, 2)
	assert.Equal(t, "ARTICLE:R1", s.Roots[0].Canonical())
	assert.Equal(t, "ARTICLE:R2", s.Roots[1].Canonical())

	require.Len(t, s.Roots[0].Children, 2)
	got := []string{s.Roots[0].Children[0].Canonical(), s.Roots[0].Children[1].Canonical()}
	if diff := cmp.Diff([]string{"SECTION:1.1", "SECTION:1.2"}, got); diff != "" {
		t.Errorf("children mismatch (-want +got):\n%s", diff)
	}

	require.Len(t, s.Roots[1].Children, 1)
	assert.Equal(t, "SECTION:2.1", s.Roots[1].Children[0].Canonical())
}

func TestNodeLineRanges(t *testing.T) {
	d, s, _ := buildFrom(t, outlineText)

	art1 := s.Roots[0]
	assert.Equal(t, 0, art1.StartLine)
	assert.Equal(t, 3, art1.EndLine, "article one ends where article two starts")

	sec21 := s.Roots[1].Children[0]
	assert.Equal(t, d.LineCount(), sec21.EndLine, "last section runs to document end")

	assert.Equal(t, "SECTION:2.1", s.InnermostContaining(5).Canonical())
	assert.Equal(t, "SECTION:1.2", s.InnermostContaining(2).Canonical())
}

func TestDepthSkipWarnsButBuilds(t *testing.T) {
	d := contract.NewPipeline().Analyze("ARTICLE I - SCOPE\nThis is prose.\n(a) deep item at line start")
	result := NewBuilder().Build(d)
	assert.True(t, result.Ok(), "depth violations are warnings, never errors")
	require.NotEmpty(t, result.Value.Nodes())
	assert.NotEmpty(t, result.Warnings)
}

func TestMidLineHeadersExcluded(t *testing.T) {
	_, s, _ := buildFrom(t, "The parties refer to Section 2.1 often.")
	assert.Empty(t, s.Nodes(), "a mid-line detection is not a structural header")
}

func linkFrom(t *testing.T, text string) (*LinkedReferences, lnlp.Result[*LinkedReferences]) {
	t.Helper()
	d := contract.NewPipeline().Analyze(text)
	built := NewBuilder().Build(d)
	require.True(t, built.Ok())
	res := NewLinker().Link(d, built.Value)
	return res.Value, res
}

func TestReferenceResolutionScenario(t *testing.T) {
	refs, _ := linkFrom(t, `ARTICLE I - DEFINITIONS
Section 1.1 Terms
See Section 1.1 for definitions.`)

	require.GreaterOrEqual(t, len(refs.Resolved), 1)
	found := false
	for _, r := range refs.Resolved {
		if r.Target != nil && r.Target.Canonical() == "SECTION:1.1" {
			found = true
			assert.Greater(t, r.Confidence, 0.9, "direct hits get the 1.1x boost")
		}
	}
	assert.True(t, found)
}

func TestUnresolvedReferenceReportsDangling(t *testing.T) {
	refs, res := linkFrom(t, `Section 1.1 Terms
See Section 99.99 for details.`)

	require.Len(t, refs.Unresolved, 1)
	assert.Contains(t, refs.Unresolved[0].Reason, "not found")
	assert.InDelta(t, 0.90*0.3, refs.Unresolved[0].Confidence, 1e-9)

	assert.NotEmpty(t, res.Errors, "a dangling targeted reference is an error")
	assert.Equal(t, lnlp.ErrDanglingReference, res.Errors[0].Kind)
	assert.Equal(t, 2, res.Errors[0].SourceLine)
}

func TestHeaderLineReferenceFiltered(t *testing.T) {
	refs, _ := linkFrom(t, "Section 3.1 - Payment")
	require.Len(t, refs.Filtered, 1)
	assert.Empty(t, refs.Resolved)
	assert.Empty(t, refs.Unresolved)
}

func TestRelativeReferenceResolvesToInnermost(t *testing.T) {
	refs, _ := linkFrom(t, `ARTICLE I - GENERAL
Section 1.1 Scope
The limits described in this Section apply.`)

	require.NotEmpty(t, refs.Resolved)
	var relative *LinkedReference
	for i := range refs.Resolved {
		if refs.Resolved[i].Reference.Kind == contract.RefRelative {
			relative = &refs.Resolved[i]
		}
	}
	require.NotNil(t, relative)
	require.NotNil(t, relative.Target)
	assert.Equal(t, "SECTION:1.1", relative.Target.Canonical())
}

func TestSubIdentifierFallback(t *testing.T) {
	refs, _ := linkFrom(t, `3.1 Late Fees
A fee accrues as stated in Section 3.1 monthly.`)

	require.Len(t, refs.Resolved, 1)
	r := refs.Resolved[0]
	require.NotNil(t, r.Target)
	assert.Equal(t, "3.1", r.Target.Canonical())
	assert.InDelta(t, 0.90*0.9, r.Confidence, 1e-9, "bare-identifier fallback takes the 0.9 penalty")
}

func TestAmbiguousRomanVersusAlpha(t *testing.T) {
	// An (i) item and an (x) item exist; a "Clause i" reference could mean
	// roman one or the letter i.
	d := contract.NewPipeline().Analyze(`(i) first entry
(x) cross entry
The duty in Clause i survives.`)
	built := NewBuilder().Build(d)
	require.True(t, built.Ok())

	res := NewLinker().Link(d, built.Value)
	refs := res.Value

	// "(i)" headers canonicalize as alpha "i"; the reference parses as
	// roman r1, so the linker resolves through the ambiguity rule.
	total := len(refs.Resolved) + len(refs.Ambiguous)
	require.GreaterOrEqual(t, total, 1)
	if len(refs.Resolved) > 0 {
		assert.InDelta(t, 0.90*0.85, refs.Resolved[0].Confidence, 1e-9)
	}
}
