package contract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coolbeans/covenant/pkg/lnlp"
)

func obligationsFor(t *testing.T, text string) []lnlp.Attr[lnlp.Scored[ObligationPhrase]] {
	t.Helper()
	d := NewPipeline().Analyze(text)
	var out []lnlp.Attr[lnlp.Scored[ObligationPhrase]]
	d.EachLine(func(i int, l *lnlp.Line) {
		out = append(out, lnlp.Attrs[lnlp.Scored[ObligationPhrase]](l)...)
	})
	return out
}

func TestSimpleDutyScenario(t *testing.T) {
	d := NewPipeline().Analyze("The Company shall pay Vendor within 30 days.")
	line := d.Line(0)

	obligations := lnlp.Attrs[lnlp.Scored[ObligationPhrase]](line)
	require.Len(t, obligations, 1)
	ob := obligations[0].Value
	assert.Equal(t, ObligationDuty, ob.Value.Type)
	assert.Equal(t, ObligorNounPhrase, ob.Value.Obligor.Kind)
	assert.Equal(t, "Company", ob.Value.Obligor.Text)
	assert.Contains(t, ob.Value.Action, "pay Vendor within 30 days")
	assert.GreaterOrEqual(t, ob.Confidence, 0.75)

	var durations, deadlines int
	for _, a := range lnlp.Attrs[lnlp.Scored[TemporalExpression]](line) {
		switch a.Value.Value.Kind {
		case TemporalDuration:
			durations++
			assert.Equal(t, 30, a.Value.Value.Duration.Value)
			assert.Equal(t, UnitDays, a.Value.Value.Duration.Unit)
		case TemporalDeadline:
			deadlines++
			assert.Equal(t, DeadlineWithin, a.Value.Value.Deadline.Kind)
			assert.Equal(t, 30, a.Value.Value.Deadline.Duration.Value)
		}
	}
	assert.Equal(t, 1, durations)
	assert.Equal(t, 1, deadlines)
}

func TestMayNotProhibitionScenario(t *testing.T) {
	got := obligationsFor(t, "The Tenant may not sublease the Premises.")
	require.Len(t, got, 1)
	ob := got[0].Value.Value
	assert.Equal(t, ObligationProhibition, ob.Type)
	assert.Equal(t, "Tenant", ob.Obligor.Text)
	assert.Contains(t, ob.Action, "sublease the Premises")
}

func TestShallNotYieldsSingleObligation(t *testing.T) {
	got := obligationsFor(t, "The Vendor shall not assign its rights.")
	require.Len(t, got, 1, "nested Shall inside ShallNot must not double-extract")
	assert.Equal(t, ObligationProhibition, got[0].Value.Value.Type)
}

func TestObligationPrefersDefinedTermObligor(t *testing.T) {
	text := `"Supplier" means Acme Logistics Corp.
The Supplier shall deliver the goods on schedule.`
	got := obligationsFor(t, text)
	require.NotEmpty(t, got)

	var ob *lnlp.Scored[ObligationPhrase]
	for i := range got {
		v := got[i].Value
		if v.Value.Obligor.Text == "Supplier" {
			ob = &v
		}
	}
	require.NotNil(t, ob)
	assert.True(t, ob.Value.Obligor.IsDefinedTerm)
	assert.GreaterOrEqual(t, ob.Confidence, 0.85, "defined-term obligor boost")
}

func TestObligationTrimsTrailingNextObligor(t *testing.T) {
	got := obligationsFor(t, "The Vendor shall deliver the goods and the Buyer shall inspect them.")
	require.Len(t, got, 2)

	first := got[0].Value.Value
	assert.Equal(t, "Vendor", first.Obligor.Text)
	assert.False(t, strings.Contains(first.Action, "Buyer"),
		"trailing 'and the Buyer' belongs to the next obligation: %q", first.Action)

	second := got[1].Value.Value
	assert.Equal(t, "Buyer", second.Obligor.Text)
}

func TestObligationConditions(t *testing.T) {
	got := obligationsFor(t, "If the invoice is disputed, the Buyer shall notify the Vendor promptly.")
	require.Len(t, got, 1)
	ob := got[0].Value.Value
	require.Len(t, ob.Conditions, 1)
	assert.Equal(t, ConditionIf, ob.Conditions[0].Kind)
	assert.NotEmpty(t, ob.Conditions[0].Preview)
}

func TestObligationConditionPreviewEllipsized(t *testing.T) {
	got := obligationsFor(t, "The Buyer shall pay unless the inspection report identifies a material defect in the delivered goods.")
	require.Len(t, got, 1)
	ob := got[0].Value.Value
	require.Len(t, ob.Conditions, 1)
	assert.Equal(t, ConditionUnless, ob.Conditions[0].Kind)
	assert.True(t, strings.HasSuffix(ob.Conditions[0].Preview, "…"))

	words := strings.Fields(strings.TrimSuffix(ob.Conditions[0].Preview, "…"))
	assert.LessOrEqual(t, len(words), 6)
}

func TestObligationConditionOutsideClauseWindow(t *testing.T) {
	// The condition belongs to the second modal's window, not the first.
	got := obligationsFor(t, "The Vendor shall deliver the goods, and the Buyer shall pay unless the goods are defective.")
	require.Len(t, got, 2)
	first := got[0].Value.Value
	assert.Empty(t, first.Conditions, "condition after the second modal must not attach to the first")
	second := got[1].Value.Value
	require.Len(t, second.Conditions, 1)
}

func TestObligationAssociations(t *testing.T) {
	d := NewPipeline().Analyze("The Company shall pay the invoice.")
	obligations := lnlp.Attrs[lnlp.Scored[ObligationPhrase]](d.Line(0))
	require.Len(t, obligations, 1)

	labels := make(map[string]lnlp.SpanRef)
	for _, assoc := range obligations[0].Assocs {
		labels[assoc.Label] = assoc.Target
	}
	require.Contains(t, labels, AssocObligorSource)
	require.Contains(t, labels, AssocActionSpan)
	assert.Equal(t, obligations[0].Value.Value.Obligor.Span, labels[AssocObligorSource])
	assert.Equal(t, obligations[0].Value.Value.ActionSpan, labels[AssocActionSpan])
}

func TestNoObligorMeansNoObligation(t *testing.T) {
	got := obligationsFor(t, "shall be governed by the laws of Delaware.")
	assert.Empty(t, got, "a clause with no obligor is omitted, not an error")
}

func TestDiscretionProducesNoObligation(t *testing.T) {
	got := obligationsFor(t, "The Landlord shall not be required to accept partial payment.")
	assert.Empty(t, got, "a discretion release is not an obligation")
}
