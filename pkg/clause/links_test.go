package clause

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coolbeans/covenant/pkg/contract"
	"github.com/coolbeans/covenant/pkg/lnlp"
)

func analyzeClauses(t *testing.T, text string) (*lnlp.Document, []ClauseSpan, []ClauseLink) {
	t.Helper()
	d := contract.NewPipeline().Analyze(text)
	lnlp.Run[ListMarker](d, NewListMarkerResolver())
	lnlp.Run[Clause](d, NewSegmenter())
	links := NewLinkResolver().Resolve(d)
	return d, ExtractClauseSpans(d), links
}

func clauseByText(t *testing.T, d *lnlp.Document, spans []ClauseSpan, substr string) lnlp.DocSpan {
	t.Helper()
	for _, cs := range spans {
		if containsFold(d.TextIn(cs.Span), substr) {
			return cs.Span
		}
	}
	t.Fatalf("no clause containing %q", substr)
	return lnlp.DocSpan{}
}

func containsFold(haystack, needle string) bool {
	return len(haystack) >= len(needle) && indexFold(haystack, needle) >= 0
}

func indexFold(haystack, needle string) int {
	h := []rune(haystack)
	n := []rune(needle)
	for i := 0; i+len(n) <= len(h); i++ {
		match := true
		for j := range n {
			a, b := h[i+j], n[j]
			if a >= 'A' && a <= 'Z' {
				a += 'a' - 'A'
			}
			if b >= 'A' && b <= 'Z' {
				b += 'a' - 'A'
			}
			if a != b {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

func linksOf(links []ClauseLink, role Role) []ClauseLink {
	var out []ClauseLink
	for _, l := range links {
		if l.Role == role {
			out = append(out, l)
		}
	}
	return out
}

func hasLink(links []ClauseLink, role Role, anchor, target lnlp.DocSpan) bool {
	for _, l := range links {
		if l.Role == role && l.Anchor == anchor && l.Target == target {
			return true
		}
	}
	return false
}

func TestSegmenterConditionAndTrailingEffect(t *testing.T) {
	d, spans, _ := analyzeClauses(t, "If the invoice is disputed, the Buyer shall notify the Vendor.")
	require.Len(t, spans, 2)
	assert.Equal(t, CategoryCondition, spans[0].Category)
	assert.Equal(t, CategoryTrailingEffect, spans[1].Category)
	assert.Contains(t, d.TextIn(spans[0].Span), "invoice is disputed")
}

func TestGateOneParentChildReciprocal(t *testing.T) {
	_, spans, links := analyzeClauses(t, "If the invoice is disputed, the Buyer shall notify the Vendor.")
	require.Len(t, spans, 2)

	cond, effect := spans[0].Span, spans[1].Span
	assert.True(t, hasLink(links, RoleParent, cond, effect))
	assert.True(t, hasLink(links, RoleChild, effect, cond))

	parents := linksOf(links, RoleParent)
	require.Len(t, parents, 1)
	assert.Equal(t, ConfidenceHigh, parents[0].Confidence, "same-line link is high confidence")
}

func TestCoordinationChainIsChain(t *testing.T) {
	d, spans, links := analyzeClauses(t, "Alpha pays promptly, Bravo works daily, and Charlie manages the site.")

	conjuncts := linksOf(links, RoleConjunct)
	require.Len(t, conjuncts, 2, "A, B, and C is a chain, not a star")

	a := clauseByText(t, d, spans, "Alpha pays")
	b := clauseByText(t, d, spans, "Bravo works")
	c := clauseByText(t, d, spans, "Charlie manages")
	assert.True(t, hasLink(links, RoleConjunct, a, b))
	assert.True(t, hasLink(links, RoleConjunct, b, c))
	assert.False(t, hasLink(links, RoleConjunct, a, c))
}

func TestCoordinationExceptionScenario(t *testing.T) {
	// Conjunct chain plus exception fan-out across the coordinated group.
	d, spans, links := analyzeClauses(t, "Alpha pays promptly, Bravo works daily, and Charlie manages the site, unless waived.")

	a := clauseByText(t, d, spans, "Alpha pays")
	b := clauseByText(t, d, spans, "Bravo works")
	c := clauseByText(t, d, spans, "Charlie manages")
	w := clauseByText(t, d, spans, "waived")

	assert.True(t, hasLink(links, RoleConjunct, a, b))
	assert.True(t, hasLink(links, RoleConjunct, b, c))
	assert.True(t, hasLink(links, RoleException, w, a))
	assert.True(t, hasLink(links, RoleException, w, b))
	assert.True(t, hasLink(links, RoleException, w, c))
}

func TestExceptionBlockedAcrossSemicolons(t *testing.T) {
	d, spans, links := analyzeClauses(t, "Alpha delivers the goods; Bravo inspects them, unless Carol objects.")

	a := clauseByText(t, d, spans, "Alpha delivers")
	b := clauseByText(t, d, spans, "Bravo inspects")
	carol := clauseByText(t, d, spans, "Carol objects")

	assert.True(t, hasLink(links, RoleException, carol, b))
	for _, l := range linksOf(links, RoleException) {
		assert.NotEqual(t, a, l.Target, "exception must not cross the semicolon to reach Alpha")
	}
}

func TestChainedExceptionTransitiveClosure(t *testing.T) {
	d, spans, links := analyzeClauses(t, "Alpha delivers the goods, unless Bravo objects, except Carol approves.")

	a := clauseByText(t, d, spans, "Alpha delivers")
	b := clauseByText(t, d, spans, "Bravo objects")
	c := clauseByText(t, d, spans, "Carol approves")

	assert.True(t, hasLink(links, RoleException, b, a))
	assert.True(t, hasLink(links, RoleException, c, b))
	assert.True(t, hasLink(links, RoleException, c, a), "transitive closure adds C→A")
}

func TestPrecedenceGroupsPartitionChain(t *testing.T) {
	_, _, links := analyzeClauses(t, "Alpha pays promptly and Bravo works daily or Charlie manages the site.")

	conjuncts := linksOf(links, RoleConjunct)
	require.Len(t, conjuncts, 2)

	require.NotNil(t, conjuncts[0].Coordination)
	require.NotNil(t, conjuncts[1].Coordination)
	assert.Equal(t, CoordAnd, *conjuncts[0].Coordination)
	assert.Equal(t, CoordOr, *conjuncts[1].Coordination)

	require.NotNil(t, conjuncts[0].PrecedenceGroup)
	require.NotNil(t, conjuncts[1].PrecedenceGroup)
	assert.NotEqual(t, *conjuncts[0].PrecedenceGroup, *conjuncts[1].PrecedenceGroup,
		"coordinator family change starts a new group")
}

func TestCommaOnlySequencesNotCoordinated(t *testing.T) {
	// Without any explicit coordinator, commas alone never coordinate.
	_, _, links := analyzeClauses(t, "Alpha delivers the goods, Bravo inspects them, Carol signs receipts.")
	assert.Empty(t, linksOf(links, RoleConjunct))
}

func TestListGrouping(t *testing.T) {
	d, spans, links := analyzeClauses(t, "The Vendor shall provide: (a) monthly reports, (b) audit access, (c) support hours.")

	items := linksOf(links, RoleListItem)
	require.Len(t, items, 3)
	containers := linksOf(links, RoleListContainer)
	require.Len(t, containers, 1)

	container := clauseByText(t, d, spans, "Vendor shall provide")
	for _, item := range items {
		assert.Equal(t, container, item.Target)
	}
	assert.Equal(t, container, containers[0].Anchor)

	q := NewQuery(links)
	assert.True(t, q.IsListContainer(container))
	assert.Len(t, q.ListItems(container), 3)
}

func TestListWithoutContainerEmitsNoLinks(t *testing.T) {
	_, _, links := analyzeClauses(t, "(a) first item, (b) second item")
	assert.Empty(t, linksOf(links, RoleListItem), "a list with no preceding clause has no container")
	assert.Empty(t, linksOf(links, RoleListContainer))
}

func TestCrossReferenceLinks(t *testing.T) {
	d, spans, links := analyzeClauses(t, "The Buyer shall comply with Section 3.1 at all times.")

	refs := linksOf(links, RoleCrossReference)
	require.Len(t, refs, 1)
	assert.Equal(t, ConfidenceHigh, refs[0].Confidence)

	clause := clauseByText(t, d, spans, "Buyer shall comply")
	assert.Equal(t, clause, refs[0].Anchor)

	q := NewQuery(links)
	assert.True(t, q.HasCrossReferences(clause))
	assert.Len(t, q.ReferencingClauses(refs[0].Target), 1)
}

func TestObligationEnrichmentAndSelfLink(t *testing.T) {
	_, _, links := analyzeClauses(t, "The Company shall pay the invoice on time.")

	var found bool
	for _, l := range links {
		if l.ObligationType != nil && *l.ObligationType == contract.ObligationDuty {
			found = true
			if l.Role == RoleSelf {
				assert.Equal(t, l.Anchor, l.Target)
			}
		}
	}
	assert.True(t, found, "a linkless obligation clause surfaces via a self link")
}

func TestLinkSpansWellFormed(t *testing.T) {
	d, _, links := analyzeClauses(t, "If notice is given, the Vendor shall deliver, and the Buyer shall pay, unless waived. See Section 2.1 herein.")
	for _, l := range links {
		for _, span := range []lnlp.DocSpan{l.Anchor, l.Target} {
			require.True(t, span.Start.AtOrBefore(span.End))
			line := d.Line(span.End.Line)
			require.NotNil(t, line)
			assert.Less(t, span.End.Token, line.Len())
		}
	}
}
