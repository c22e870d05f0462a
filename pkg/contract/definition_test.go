package contract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coolbeans/covenant/pkg/lnlp"
)

func definitionsFor(t *testing.T, text string) []lnlp.Attr[lnlp.Scored[DefinedTerm]] {
	t.Helper()
	d := lnlp.FromText(text)
	lnlp.Run[lnlp.Scored[DefinedTerm]](d, NewDefinitionResolver())
	var out []lnlp.Attr[lnlp.Scored[DefinedTerm]]
	d.EachLine(func(i int, l *lnlp.Line) {
		out = append(out, lnlp.Attrs[lnlp.Scored[DefinedTerm]](l)...)
	})
	return out
}

func TestQuotedMeansDefinition(t *testing.T) {
	defs := definitionsFor(t, `"Premises" means the building located at 100 Main Street.`)
	require.Len(t, defs, 1)
	assert.Equal(t, "Premises", defs[0].Value.Value.Name)
	assert.Equal(t, DefQuotedMeans, defs[0].Value.Value.Type)
	assert.InDelta(t, 0.95, defs[0].Value.Confidence, 1e-9)
}

func TestQuotedIncludesDefinition(t *testing.T) {
	defs := definitionsFor(t, `"Confidential Information" includes trade secrets and customer lists.`)
	require.Len(t, defs, 1)
	assert.Equal(t, "Confidential Information", defs[0].Value.Value.Name)
}

func TestParentheticalDefinition(t *testing.T) {
	defs := definitionsFor(t, `This Lease is between Acme Corp (the Landlord) and John Doe ("Tenant").`)
	require.Len(t, defs, 1)
	assert.Equal(t, "Tenant", defs[0].Value.Value.Name)
	assert.Equal(t, DefParenthetical, defs[0].Value.Value.Type)
	assert.InDelta(t, 0.90, defs[0].Value.Confidence, 1e-9)
}

func TestHereinafterDefinition(t *testing.T) {
	defs := definitionsFor(t, `Acme Corporation (hereinafter, "Supplier") agrees to deliver.`)
	require.Len(t, defs, 1)
	assert.Equal(t, "Supplier", defs[0].Value.Value.Name)
	assert.Equal(t, DefHereinafter, defs[0].Value.Value.Type)
}

func TestHereinafterReferredToAs(t *testing.T) {
	defs := definitionsFor(t, `Acme Corporation (hereinafter referred to as "Supplier") agrees to deliver.`)
	require.Len(t, defs, 1)
	assert.Equal(t, "Supplier", defs[0].Value.Value.Name)
}

func TestQuotedMeansSuppressesParentheticalConflict(t *testing.T) {
	// The same span cannot introduce the same term both ways.
	defs := definitionsFor(t, `("Deposit") "Deposit" means two months of rent.`)
	var quoted int
	for _, d := range defs {
		if d.Value.Value.Type == DefQuotedMeans {
			quoted++
		}
	}
	assert.Equal(t, 1, quoted)
}

func TestDefinedTermTableScanningOrder(t *testing.T) {
	text := `"Landlord" means Acme Corp.
"Tenant" means John Doe.
The Tenant shall pay the Landlord monthly.`
	d := lnlp.FromText(text)
	lnlp.Run[lnlp.Scored[DefinedTerm]](d, NewDefinitionResolver())
	table := CollectDefinedTerms(d)

	require.Len(t, table.All(), 2)
	entry, ok := table.Lookup("landlord")
	require.True(t, ok)
	assert.Equal(t, "Landlord", entry.Term.Name)
	assert.True(t, table.DefinedBefore("Tenant", lnlp.DocPosition{Line: 2, Token: 0}))
	assert.False(t, table.DefinedBefore("Tenant", lnlp.DocPosition{Line: 0, Token: 0}))
}

func TestTermReferencesResolveToPriorDefinitions(t *testing.T) {
	text := `"Landlord" means Acme Corp.
The Landlord shall maintain the building.`
	d := lnlp.FromText(text)
	lnlp.Run[lnlp.Scored[DefinedTerm]](d, NewDefinitionResolver())
	table := CollectDefinedTerms(d)
	lnlp.Run[lnlp.Scored[TermReference]](d, NewTermReferenceResolver(table))

	refs := lnlp.Attrs[lnlp.Scored[TermReference]](d.Line(1))
	require.Len(t, refs, 1)
	assert.Equal(t, "Landlord", refs[0].Value.Value.Name)
	assert.Greater(t, refs[0].Value.Confidence, 0.7)

	// The defining line carries no self-reference.
	assert.Empty(t, lnlp.Attrs[lnlp.Scored[TermReference]](d.Line(0)))
}

func TestTermReferenceExactSurfaceBoost(t *testing.T) {
	text := `"Landlord" means Acme Corp.
The Landlord shall maintain.
The LANDLORD shall paint.`
	d := lnlp.FromText(text)
	lnlp.Run[lnlp.Scored[DefinedTerm]](d, NewDefinitionResolver())
	table := CollectDefinedTerms(d)
	lnlp.Run[lnlp.Scored[TermReference]](d, NewTermReferenceResolver(table))

	exact := lnlp.Attrs[lnlp.Scored[TermReference]](d.Line(1))
	folded := lnlp.Attrs[lnlp.Scored[TermReference]](d.Line(2))
	require.Len(t, exact, 1)
	require.Len(t, folded, 1)
	assert.Greater(t, exact[0].Value.Confidence, folded[0].Value.Confidence)
}
