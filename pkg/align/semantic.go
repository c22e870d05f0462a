package align

import (
	"math"
	"strings"
	"unicode"

	"github.com/coolbeans/covenant/pkg/lnlp"
	"github.com/coolbeans/covenant/pkg/structure"
)

// SectionSemantics summarizes a section's content for similarity scoring.
type SectionSemantics struct {
	WordFrequencies map[string]int
	DefinedTerms    map[string]bool
	ReferencedTerms map[string]bool
}

// ExtractSemantics walks a section's line range and collects word
// frequencies, quoted defined terms, and capitalized referenced terms.
func ExtractSemantics(doc *lnlp.Document, node *structure.SectionNode) SectionSemantics {
	sem := SectionSemantics{
		WordFrequencies: make(map[string]int),
		DefinedTerms:    make(map[string]bool),
		ReferencedTerms: make(map[string]bool),
	}

	for li := node.StartLine; li < node.EndLine && li < doc.LineCount(); li++ {
		l := doc.Line(li)
		if l == nil {
			continue
		}

		for _, tok := range l.Tokens() {
			if tok.Class != lnlp.ClassWord {
				continue
			}
			word := tok.Text
			if len(word) > 2 && allAlphabetic(word) {
				sem.WordFrequencies[strings.ToLower(word)]++
			}
			if isTitleCased(word) {
				sem.ReferencedTerms[word] = true
			}
		}

		// Quoted terms: the odd pieces of a split on the quote character.
		pieces := strings.Split(l.Text(), `"`)
		for i := 1; i < len(pieces); i += 2 {
			term := strings.TrimSpace(pieces[i])
			if len(term) >= 1 && len(term) <= 50 {
				sem.DefinedTerms[term] = true
			}
		}
	}
	return sem
}

func allAlphabetic(word string) bool {
	for _, r := range word {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return word != ""
}

// isTitleCased matches a capitalized letter followed by lowercase.
func isTitleCased(word string) bool {
	runes := []rune(word)
	if len(runes) < 2 || !unicode.IsUpper(runes[0]) {
		return false
	}
	for _, r := range runes[1:] {
		if !unicode.IsLower(r) {
			return false
		}
	}
	return true
}

// Jaccard computes set overlap; two empty sets count as identical.
func Jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	intersection := 0
	for k := range a {
		if b[k] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 1.0
	}
	return float64(intersection) / float64(union)
}

// Cosine computes frequency-vector similarity; both empty is 1.0, one
// empty is 0.0.
func Cosine(a, b map[string]int) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	var dot, normA, normB float64
	for k, va := range a {
		normA += float64(va) * float64(va)
		if vb, ok := b[k]; ok {
			dot += float64(va) * float64(vb)
		}
	}
	for _, vb := range b {
		normB += float64(vb) * float64(vb)
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// SemanticSimilarity combines term, reference, and text similarity.
func SemanticSimilarity(a, b SectionSemantics) float64 {
	termSim := Jaccard(a.DefinedTerms, b.DefinedTerms)
	refSim := Jaccard(a.ReferencedTerms, b.ReferencedTerms)
	textSim := Cosine(a.WordFrequencies, b.WordFrequencies)
	return 0.4*termSim + 0.3*refSim + 0.3*textSim
}

// StringSimilarity is 1 − levenshtein/maxLen, case-insensitive.
func StringSimilarity(a, b string) float64 {
	a = strings.ToLower(a)
	b = strings.ToLower(b)
	if a == b {
		return 1.0
	}
	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(levenshtein(a, b))/float64(maxLen)
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = minInt(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}

func minInt(vals ...int) int {
	m := vals[0]
	for _, v := range vals[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
