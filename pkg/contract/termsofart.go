package contract

import (
	"strings"

	"github.com/coolbeans/covenant/pkg/lnlp"
)

// TermOfArtCategory classifies a legal term of art.
type TermOfArtCategory int

const (
	CategoryLegalDoctrine TermOfArtCategory = iota
	CategoryObligationPhrase
	CategoryPaymentTerm
	CategoryContractMechanism
	CategoryAllocationTerm
	CategoryInterpretivePhrase
)

// String returns a human-readable category description.
func (c TermOfArtCategory) String() string {
	switch c {
	case CategoryLegalDoctrine:
		return "Legal doctrine"
	case CategoryObligationPhrase:
		return "Obligation phrase"
	case CategoryPaymentTerm:
		return "Payment term"
	case CategoryContractMechanism:
		return "Contract mechanism"
	case CategoryAllocationTerm:
		return "Allocation term"
	case CategoryInterpretivePhrase:
		return "Interpretive phrase"
	}
	return "Unknown"
}

// TermOfArt marks a fixed legal phrase so later passes treat it as one
// unit rather than parsing its words individually. It never creates an
// obligation by itself.
type TermOfArt struct {
	Canonical string
	Category  TermOfArtCategory
}

type dictEntry struct {
	words    []string
	category TermOfArtCategory
}

// TermsOfArtResolver matches a fixed dictionary by first-word lookup: each
// occurrence of a first word attempts a full case-insensitive match of the
// remaining word sequence.
type TermsOfArtResolver struct {
	dictionary map[string][]dictEntry
}

// NewTermsOfArtResolver builds a resolver preloaded with the standard
// dictionary.
func NewTermsOfArtResolver() *TermsOfArtResolver {
	r := &TermsOfArtResolver{dictionary: make(map[string][]dictEntry)}
	r.loadDefaults()
	return r
}

// Add registers a term under its first word. Terms are stored lowercased;
// matching is case-insensitive.
func (r *TermsOfArtResolver) Add(term string, category TermOfArtCategory) {
	words := strings.Fields(strings.ToLower(term))
	if len(words) == 0 {
		return
	}
	r.dictionary[words[0]] = append(r.dictionary[words[0]], dictEntry{words: words, category: category})
}

func (r *TermsOfArtResolver) loadDefaults() {
	add := r.Add

	add("force majeure", CategoryLegalDoctrine)
	add("res judicata", CategoryLegalDoctrine)
	add("stare decisis", CategoryLegalDoctrine)
	add("prima facie", CategoryLegalDoctrine)
	add("ex parte", CategoryLegalDoctrine)
	add("bona fide", CategoryLegalDoctrine)
	add("ab initio", CategoryLegalDoctrine)
	add("de facto", CategoryLegalDoctrine)
	add("de jure", CategoryLegalDoctrine)
	add("ipso facto", CategoryLegalDoctrine)
	add("sui generis", CategoryLegalDoctrine)
	add("ultra vires", CategoryLegalDoctrine)

	add("indemnify and hold harmless", CategoryObligationPhrase)
	add("represent and warrant", CategoryObligationPhrase)
	add("covenant not to compete", CategoryObligationPhrase)
	add("acknowledge and agree", CategoryObligationPhrase)
	add("release and discharge", CategoryObligationPhrase)
	add("waive and release", CategoryObligationPhrase)

	add("net 10", CategoryPaymentTerm)
	add("net 15", CategoryPaymentTerm)
	add("net 30", CategoryPaymentTerm)
	add("net 45", CategoryPaymentTerm)
	add("net 60", CategoryPaymentTerm)
	add("net 90", CategoryPaymentTerm)
	add("cash on delivery", CategoryPaymentTerm)
	add("due on receipt", CategoryPaymentTerm)

	add("material adverse change", CategoryContractMechanism)
	add("material adverse effect", CategoryContractMechanism)
	add("change of control", CategoryContractMechanism)
	add("change in control", CategoryContractMechanism)
	add("right of first refusal", CategoryContractMechanism)
	add("right of first offer", CategoryContractMechanism)
	add("liquidated damages", CategoryContractMechanism)
	add("limitation of liability", CategoryContractMechanism)

	add("pro rata", CategoryAllocationTerm)
	add("pari passu", CategoryAllocationTerm)
	add("mutatis mutandis", CategoryAllocationTerm)
	add("inter alia", CategoryAllocationTerm)
	add("pro tanto", CategoryAllocationTerm)
	add("pro forma", CategoryAllocationTerm)

	add("time is of the essence", CategoryInterpretivePhrase)
	add("without prejudice", CategoryInterpretivePhrase)
	add("for the avoidance of doubt", CategoryInterpretivePhrase)
	add("notwithstanding the foregoing", CategoryInterpretivePhrase)
	add("notwithstanding anything to the contrary", CategoryInterpretivePhrase)
	add("subject to the foregoing", CategoryInterpretivePhrase)
	add("as the case may be", CategoryInterpretivePhrase)
}

// ResolveLine implements lnlp.LineResolver.
func (r *TermsOfArtResolver) ResolveLine(sel lnlp.Selection) []lnlp.Assignment[TermOfArt] {
	var out []lnlp.Assignment[TermOfArt]

	for _, i := range sel.FindBy(lnlp.AnyOf(lnlp.Word(), lnlp.NatN())) {
		first := strings.ToLower(sel.TokenText(i))
		entries, ok := r.dictionary[first]
		if !ok {
			continue
		}
		// Longest entry wins when several share a first word.
		var best *dictEntry
		var bestEnd int
		for idx := range entries {
			end, matched := r.matchEntry(sel, i, entries[idx].words)
			if matched && (best == nil || len(entries[idx].words) > len(best.words)) {
				best = &entries[idx]
				bestEnd = end
			}
		}
		if best != nil {
			out = append(out, lnlp.Assign(lnlp.Span(i, bestEnd), TermOfArt{
				Canonical: strings.Join(best.words, " "),
				Category:  best.category,
			}))
		}
	}
	return out
}

// matchEntry attempts to match the full word sequence starting at token i,
// skipping whitespace between words. Returns the end token index.
func (r *TermsOfArtResolver) matchEntry(sel lnlp.Selection, i int, words []string) (int, bool) {
	pos := i
	for wi, w := range words {
		if wi > 0 {
			next, ok := sel.NextWord(pos)
			if !ok {
				return 0, false
			}
			pos = next
		}
		if !strings.EqualFold(sel.TokenText(pos), w) {
			return 0, false
		}
	}
	return pos, true
}
