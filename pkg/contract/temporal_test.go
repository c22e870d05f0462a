package contract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coolbeans/covenant/pkg/lnlp"
)

func temporalsFor(t *testing.T, text string) []lnlp.Attr[lnlp.Scored[TemporalExpression]] {
	t.Helper()
	d := lnlp.FromText(text)
	require.Equal(t, 1, d.LineCount())
	lnlp.Run[lnlp.Scored[TemporalExpression]](d, NewTemporalResolver())
	return lnlp.Attrs[lnlp.Scored[TemporalExpression]](d.Line(0))
}

func TestTemporalDateWithYear(t *testing.T) {
	got := temporalsFor(t, "This Agreement is effective as of January 15, 2025 between the parties.")
	require.Len(t, got, 1)
	expr := got[0].Value
	assert.Equal(t, TemporalDate, expr.Value.Kind)
	require.NotNil(t, expr.Value.Date)
	assert.Equal(t, 1, expr.Value.Date.Month)
	assert.Equal(t, 15, expr.Value.Date.Day)
	assert.Equal(t, 2025, expr.Value.Date.Year)
	assert.InDelta(t, 0.95, expr.Confidence, 1e-9)
}

func TestTemporalDateWithoutYear(t *testing.T) {
	got := temporalsFor(t, "Rent is due on March 1 of each month.")
	require.Len(t, got, 1)
	require.NotNil(t, got[0].Value.Value.Date)
	assert.Equal(t, 3, got[0].Value.Value.Date.Month)
	assert.Equal(t, 0, got[0].Value.Value.Date.Year)
}

func TestTemporalDeadlineWithDuration(t *testing.T) {
	got := temporalsFor(t, "The Company shall pay Vendor within 30 days.")
	require.Len(t, got, 2, "deadline plus its inner duration")

	var deadline, duration *TemporalExpression
	for i := range got {
		v := got[i].Value.Value
		switch v.Kind {
		case TemporalDeadline:
			deadline = &v
		case TemporalDuration:
			duration = &v
		}
	}
	require.NotNil(t, deadline)
	require.NotNil(t, duration)
	assert.Equal(t, DeadlineWithin, deadline.Deadline.Kind)
	assert.Equal(t, 30, deadline.Deadline.Duration.Value)
	assert.Equal(t, UnitDays, deadline.Deadline.Duration.Unit)
	assert.Equal(t, 30, duration.Duration.Value)
}

func TestTemporalMultiWordDeadlines(t *testing.T) {
	cases := []struct {
		text string
		kind DeadlineKind
	}{
		{"Notice shall be given no later than ten days before closing.", DeadlineNoLaterThan},
		{"Payment is due on or before thirty days after invoice.", DeadlineOnOrBefore},
		{"The report is delivered promptly following five business days thereafter.", DeadlinePromptlyFollowing},
	}
	for _, tc := range cases {
		got := temporalsFor(t, tc.text)
		found := false
		for _, a := range got {
			if a.Value.Value.Kind == TemporalDeadline && a.Value.Value.Deadline.Kind == tc.kind {
				found = true
			}
		}
		assert.True(t, found, "deadline kind for %q", tc.text)
	}
}

func TestTemporalWrittenNumberWithConfirmation(t *testing.T) {
	got := temporalsFor(t, "Termination requires thirty (30) days notice.")
	require.NotEmpty(t, got)
	dur := got[0].Value.Value
	require.Equal(t, TemporalDuration, dur.Kind)
	assert.Equal(t, 30, dur.Duration.Value)
	assert.Equal(t, "thirty", dur.Duration.WrittenForm)
	assert.Equal(t, UnitDays, dur.Duration.Unit)
}

func TestTemporalWrittenNumberMismatchedConfirmation(t *testing.T) {
	got := temporalsFor(t, "Termination requires thirty (60) days notice.")
	for _, a := range got {
		assert.NotEqual(t, TemporalDuration, a.Value.Value.Kind,
			"mismatched parenthetical must not parse as a duration")
	}
}

func TestTemporalBusinessDaysBindTighter(t *testing.T) {
	got := temporalsFor(t, "Closing occurs in five business days.")
	require.NotEmpty(t, got)
	dur := got[0].Value.Value
	require.Equal(t, TemporalDuration, dur.Kind)
	assert.Equal(t, UnitBusinessDays, dur.Duration.Unit)
	assert.Equal(t, 5, dur.Duration.Value)
}

func TestTemporalDefinedDate(t *testing.T) {
	got := temporalsFor(t, "Deliveries begin on the Effective Date of this Agreement.")
	require.NotEmpty(t, got)
	var defined *TemporalExpression
	for i := range got {
		v := got[i].Value.Value
		if v.Kind == TemporalDefinedDate {
			defined = &v
		}
	}
	require.NotNil(t, defined)
	assert.Equal(t, "Effective Date", defined.DefinedTerm)
}

func TestTemporalRelativeTime(t *testing.T) {
	got := temporalsFor(t, "The deposit is refunded upon termination of the Lease Agreement.")
	require.NotEmpty(t, got)
	var rel *TemporalExpression
	for i := range got {
		v := got[i].Value.Value
		if v.Kind == TemporalRelative {
			rel = &v
		}
	}
	require.NotNil(t, rel)
	assert.Equal(t, RelationUpon, rel.Relative.Relation)
	assert.Contains(t, rel.Relative.Trigger, "termination")
	assert.Contains(t, rel.Relative.Trigger, "Lease Agreement")
}

func TestTemporalPlainProseHasNoMatches(t *testing.T) {
	got := temporalsFor(t, "The parties agree to cooperate in good faith.")
	assert.Empty(t, got)
}
