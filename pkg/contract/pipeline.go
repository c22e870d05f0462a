package contract

import "github.com/coolbeans/covenant/pkg/lnlp"

// Pipeline runs the standard resolver chain over raw text:
// tokenize → POS → keywords → prohibitions → terms of art → definitions →
// term references → pronouns → section headers → section references →
// temporal → polarity → modal classification → obligations.
//
// Clause segmentation, link resolution, structure building, and reference
// linking are applied by their own packages over the returned document.
type Pipeline struct{}

// NewPipeline constructs the standard pipeline.
func NewPipeline() *Pipeline { return &Pipeline{} }

// Analyze tokenizes text and applies the full chain. It never fails:
// empty input yields an empty document.
func (p *Pipeline) Analyze(text string) *lnlp.Document {
	d := lnlp.FromText(text)
	return p.Apply(d)
}

// Apply runs the chain over an existing document.
func (p *Pipeline) Apply(d *lnlp.Document) *lnlp.Document {
	lnlp.Run[POSTag](d, NewPartOfSpeechResolver())
	lnlp.Run[ContractKeyword](d, NewKeywordResolver())
	lnlp.Run[ContractKeyword](d, NewProhibitionResolver())
	lnlp.Run[TermOfArt](d, NewTermsOfArtResolver())
	lnlp.Run[lnlp.Scored[DefinedTerm]](d, NewDefinitionResolver())

	table := CollectDefinedTerms(d)
	lnlp.Run[lnlp.Scored[TermReference]](d, NewTermReferenceResolver(table))
	lnlp.Run[lnlp.Scored[PronounReference]](d, NewPronounResolver(d))
	lnlp.Run[lnlp.Scored[SectionHeader]](d, NewSectionHeaderResolver())
	lnlp.Run[lnlp.Scored[SectionReference]](d, NewSectionReferenceResolver())
	lnlp.Run[lnlp.Scored[TemporalExpression]](d, NewTemporalResolver())
	lnlp.Run[PolarityContext](d, NewPolarityResolver())
	lnlp.Run[ModalNegationClassification](d, NewModalNegationResolver())
	lnlp.Run[lnlp.Scored[ObligationPhrase]](d, NewObligationResolver())
	return d
}
