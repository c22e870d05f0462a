package contract

import (
	"strings"
	"unicode"

	"github.com/coolbeans/covenant/pkg/lnlp"
)

// PartOfSpeech is the coarse POS hint used by noun-phrase detection. The
// tagger is a heuristic hook, not a full statistical tagger: obligor
// extraction only needs noun / proper-noun discrimination.
type PartOfSpeech int

const (
	PosNoun PartOfSpeech = iota
	PosProperNoun
	PosVerb
	PosModal
	PosDeterminer
	PosPronoun
	PosConjunction
	PosPreposition
	PosOther
)

// String returns the POS tag.
func (p PartOfSpeech) String() string {
	switch p {
	case PosNoun:
		return "noun"
	case PosProperNoun:
		return "proper_noun"
	case PosVerb:
		return "verb"
	case PosModal:
		return "modal"
	case PosDeterminer:
		return "determiner"
	case PosPronoun:
		return "pronoun"
	case PosConjunction:
		return "conjunction"
	case PosPreposition:
		return "preposition"
	}
	return "other"
}

// IsNounLike reports whether the tag can participate in a noun phrase.
func (p PartOfSpeech) IsNounLike() bool { return p == PosNoun || p == PosProperNoun }

// POSTag is the attribute attached to each word token.
type POSTag struct {
	Tag PartOfSpeech
}

var (
	posDeterminers  = wordSet("the", "a", "an", "this", "that", "these", "those", "each", "every", "any", "all", "such", "no")
	posPronouns     = wordSet("it", "its", "they", "them", "their", "theirs", "he", "she", "his", "her", "hers", "him", "who", "whom", "whose", "which", "itself", "themselves")
	posConjunctions = wordSet("and", "or", "but", "nor", "however", "whereas", "if", "unless", "provided", "because", "although", "while", "when")
	posPrepositions = wordSet("of", "in", "on", "to", "for", "by", "with", "from", "under", "upon", "at", "within", "between", "during", "before", "after", "into", "through")
	posModals       = wordSet("shall", "may", "must", "will", "can", "cannot", "should", "would", "could")

	posNounSuffixes = []string{"tion", "sion", "ment", "ness", "ance", "ence", "ity", "ship", "age"}
	posVerbSuffixes = []string{"ize", "ise", "ate", "ify"}
)

func wordSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

// PartOfSpeechResolver assigns heuristic POS tags to word tokens.
type PartOfSpeechResolver struct{}

// NewPartOfSpeechResolver constructs the POS tagger hook.
func NewPartOfSpeechResolver() *PartOfSpeechResolver { return &PartOfSpeechResolver{} }

// ResolveLine implements lnlp.LineResolver.
func (r *PartOfSpeechResolver) ResolveLine(sel lnlp.Selection) []lnlp.Assignment[POSTag] {
	var out []lnlp.Assignment[POSTag]
	for _, i := range sel.FindBy(lnlp.Word()) {
		text := sel.TokenText(i)
		out = append(out, lnlp.Assign(lnlp.Single(i), POSTag{Tag: classifyWord(text)}))
	}
	return out
}

func classifyWord(text string) PartOfSpeech {
	lower := strings.ToLower(text)
	switch {
	case posModals[lower]:
		return PosModal
	case posDeterminers[lower]:
		return PosDeterminer
	case posPronouns[lower]:
		return PosPronoun
	case posConjunctions[lower]:
		return PosConjunction
	case posPrepositions[lower]:
		return PosPreposition
	}
	if isCapitalized(text) {
		return PosProperNoun
	}
	for _, suf := range posNounSuffixes {
		if len(lower) > len(suf)+2 && strings.HasSuffix(lower, suf) {
			return PosNoun
		}
	}
	for _, suf := range posVerbSuffixes {
		if len(lower) > len(suf)+2 && strings.HasSuffix(lower, suf) {
			return PosVerb
		}
	}
	return PosOther
}

// isCapitalized reports an upper-case first rune over a word of length >1,
// or an all-caps word.
func isCapitalized(text string) bool {
	runes := []rune(text)
	if len(runes) == 0 {
		return false
	}
	return unicode.IsUpper(runes[0])
}
