package align

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/coolbeans/covenant/pkg/lnlp"
	"github.com/coolbeans/covenant/pkg/structure"
)

// AlignmentType classifies how sections correspond across versions.
type AlignmentType int

const (
	AlignExactMatch AlignmentType = iota
	AlignRenumbered
	AlignMoved
	AlignModified
	AlignSplit
	AlignMerged
	AlignDeleted
	AlignInserted
)

// String returns the alignment-type tag.
func (t AlignmentType) String() string {
	switch t {
	case AlignExactMatch:
		return "exact_match"
	case AlignRenumbered:
		return "renumbered"
	case AlignMoved:
		return "moved"
	case AlignModified:
		return "modified"
	case AlignSplit:
		return "split"
	case AlignMerged:
		return "merged"
	case AlignDeleted:
		return "deleted"
	case AlignInserted:
		return "inserted"
	}
	return "unknown"
}

// AlignmentTypeFromString parses the tag form.
func AlignmentTypeFromString(s string) (AlignmentType, bool) {
	for t := AlignExactMatch; t <= AlignInserted; t++ {
		if t.String() == s {
			return t, true
		}
	}
	return 0, false
}

// Signal records one scored similarity component.
type Signal struct {
	Name   string  `json:"name"`
	Score  float64 `json:"score"`
	Weight float64 `json:"weight"`
}

// AlignmentCandidate is one proposed correspondence. IDs are
// document-local and stable for a single compute pass; external hints
// target them.
type AlignmentCandidate struct {
	ID                int            `json:"id"`
	Original          []string       `json:"original"`
	Revised           []string       `json:"revised"`
	Type              AlignmentType  `json:"proposed_type"`
	Confidence        float64        `json:"confidence"`
	Signals           []Signal       `json:"signals"`
	UncertaintyReason string         `json:"uncertainty_reason,omitempty"`
	OriginalExcerpts  []string       `json:"original_excerpts,omitempty"`
	RevisedExcerpts   []string       `json:"revised_excerpts,omitempty"`
}

// Stats tallies alignments per type.
type Stats struct {
	Exact      int `json:"exact"`
	Renumbered int `json:"renumbered"`
	Moved      int `json:"moved"`
	Modified   int `json:"modified"`
	Split      int `json:"split"`
	Merged     int `json:"merged"`
	Deleted    int `json:"deleted"`
	Inserted   int `json:"inserted"`
}

// Total sums all tallies.
func (s Stats) Total() int {
	return s.Exact + s.Renumbered + s.Moved + s.Modified + s.Split + s.Merged + s.Deleted + s.Inserted
}

// AlignmentResult is the final assembly: zero-confidence candidates are
// dropped, stats tallied, low-confidence alignments warned about.
type AlignmentResult struct {
	Alignments []AlignmentCandidate `json:"alignments"`
	Stats      Stats                `json:"stats"`
	Warnings   []string             `json:"warnings,omitempty"`
}

// section is one side's section prepared for scoring.
type section struct {
	node    *structure.SectionNode
	id      string
	title   string
	depth   int
	index   int
	total   int
	sem     SectionSemantics
	excerpt string
}

func (s *section) positionFraction() float64 {
	if s.total <= 1 {
		return 0
	}
	return float64(s.index) / float64(s.total-1)
}

// Aligner computes pairwise section alignment between two versions.
type Aligner struct {
	cfg Config
	log *zap.SugaredLogger
}

// NewAligner constructs an aligner; a nil logger disables diagnostics.
func NewAligner(cfg Config, log *zap.SugaredLogger) *Aligner {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Aligner{cfg: cfg, log: log}
}

// Align runs Compute and Finalize without hints.
func (a *Aligner) Align(origDoc *lnlp.Document, origStruct *structure.DocumentStructure, revDoc *lnlp.Document, revStruct *structure.DocumentStructure) AlignmentResult {
	return a.Finalize(a.Compute(origDoc, origStruct, revDoc, revStruct))
}

// Compute runs the five alignment passes and returns the candidate set.
func (a *Aligner) Compute(origDoc *lnlp.Document, origStruct *structure.DocumentStructure, revDoc *lnlp.Document, revStruct *structure.DocumentStructure) []AlignmentCandidate {
	originals := prepareSections(origDoc, origStruct)
	revised := prepareSections(revDoc, revStruct)
	a.log.Debugw("alignment input", "originals", len(originals), "revised", len(revised))

	var candidates []AlignmentCandidate
	nextID := 0
	emit := func(c AlignmentCandidate) {
		c.ID = nextID
		nextID++
		candidates = append(candidates, c)
	}

	matchedOrig := make([]bool, len(originals))
	matchedRev := make([]bool, len(revised))

	// Pass 1: exact canonical ID.
	for oi := range originals {
		for ri := range revised {
			if matchedRev[ri] || originals[oi].id != revised[ri].id {
				continue
			}
			sem := SemanticSimilarity(originals[oi].sem, revised[ri].sem)
			overall, signals := a.similarity(&originals[oi], &revised[ri])
			t := AlignModified
			if sem >= 0.9 {
				t = AlignExactMatch
			}
			c := AlignmentCandidate{
				Original:         []string{originals[oi].id},
				Revised:          []string{revised[ri].id},
				Type:             t,
				Confidence:       overall,
				Signals:          signals,
				OriginalExcerpts: []string{originals[oi].excerpt},
				RevisedExcerpts:  []string{revised[ri].excerpt},
			}
			if overall < a.cfg.Thresholds.Review {
				c.UncertaintyReason = fmt.Sprintf("confidence %.2f below review threshold", overall)
			}
			emit(c)
			matchedOrig[oi] = true
			matchedRev[ri] = true
			break
		}
	}

	// Pass 2: exact title and equal depth.
	for oi := range originals {
		if matchedOrig[oi] || originals[oi].title == "" {
			continue
		}
		for ri := range revised {
			if matchedRev[ri] || revised[ri].title == "" {
				continue
			}
			if !strings.EqualFold(originals[oi].title, revised[ri].title) || originals[oi].depth != revised[ri].depth {
				continue
			}
			overall, signals := a.similarity(&originals[oi], &revised[ri])
			if overall < a.cfg.Thresholds.Match {
				continue
			}
			c := AlignmentCandidate{
				Original:         []string{originals[oi].id},
				Revised:          []string{revised[ri].id},
				Type:             AlignRenumbered,
				Confidence:       overall,
				Signals:          signals,
				OriginalExcerpts: []string{originals[oi].excerpt},
				RevisedExcerpts:  []string{revised[ri].excerpt},
			}
			if overall < a.cfg.Thresholds.Review {
				c.UncertaintyReason = fmt.Sprintf("confidence %.2f below review threshold", overall)
			}
			emit(c)
			matchedOrig[oi] = true
			matchedRev[ri] = true
			break
		}
	}

	// Pass 3: Hungarian assignment over the rest.
	var oIdx, rIdx []int
	for oi := range originals {
		if !matchedOrig[oi] {
			oIdx = append(oIdx, oi)
		}
	}
	for ri := range revised {
		if !matchedRev[ri] {
			rIdx = append(rIdx, ri)
		}
	}
	if len(oIdx) > 0 && len(rIdx) > 0 {
		n := len(oIdx)
		if len(rIdx) > n {
			n = len(rIdx)
		}
		cost := make([][]float64, n)
		sims := make([][]float64, n)
		for i := range cost {
			cost[i] = make([]float64, n)
			sims[i] = make([]float64, n)
			for j := range cost[i] {
				if i < len(oIdx) && j < len(rIdx) {
					sim, _ := a.similarity(&originals[oIdx[i]], &revised[rIdx[j]])
					sims[i][j] = sim
					cost[i][j] = -1000 * sim
				}
			}
		}
		assignment := hungarian(cost)
		for i, j := range assignment {
			if i >= len(oIdx) || j >= len(rIdx) {
				continue
			}
			sim := sims[i][j]
			if sim < a.cfg.Thresholds.Match {
				continue
			}
			o, r := &originals[oIdx[i]], &revised[rIdx[j]]
			_, signals := a.similarity(o, r)
			semantic := SemanticSimilarity(o.sem, r.sem)

			var t AlignmentType
			switch {
			case o.id == r.id && semantic >= 0.9:
				t = AlignExactMatch
			case o.id == r.id:
				t = AlignModified
			case o.depth != r.depth:
				t = AlignMoved
			default:
				t = AlignRenumbered
			}
			c := AlignmentCandidate{
				Original:         []string{o.id},
				Revised:          []string{r.id},
				Type:             t,
				Confidence:       sim,
				Signals:          signals,
				OriginalExcerpts: []string{o.excerpt},
				RevisedExcerpts:  []string{r.excerpt},
			}
			if sim < a.cfg.Thresholds.Review {
				c.UncertaintyReason = fmt.Sprintf("confidence %.2f below review threshold", sim)
			}
			emit(c)
			matchedOrig[oIdx[i]] = true
			matchedRev[rIdx[j]] = true
		}
	}

	// Pass 4: splits (one original to many revised) and merges.
	for oi := range originals {
		if matchedOrig[oi] {
			continue
		}
		var parts []int
		total := 0.0
		for ri := range revised {
			if matchedRev[ri] {
				continue
			}
			sem := SemanticSimilarity(originals[oi].sem, revised[ri].sem)
			if sem >= a.cfg.Thresholds.SplitMergeCandidate {
				parts = append(parts, ri)
				total += sem
			}
		}
		if len(parts) >= 2 && total >= a.cfg.Thresholds.SplitMergeAccept {
			c := AlignmentCandidate{
				Original:         []string{originals[oi].id},
				Type:             AlignSplit,
				Confidence:       minFloat(1.0, total/float64(len(parts))),
				Signals:          []Signal{{Name: "semantic_sum", Score: total, Weight: a.cfg.Weights.Semantic}},
				OriginalExcerpts: []string{originals[oi].excerpt},
			}
			for _, ri := range parts {
				c.Revised = append(c.Revised, revised[ri].id)
				c.RevisedExcerpts = append(c.RevisedExcerpts, revised[ri].excerpt)
				matchedRev[ri] = true
			}
			emit(c)
			matchedOrig[oi] = true
		}
	}
	for ri := range revised {
		if matchedRev[ri] {
			continue
		}
		var parts []int
		total := 0.0
		for oi := range originals {
			if matchedOrig[oi] {
				continue
			}
			sem := SemanticSimilarity(originals[oi].sem, revised[ri].sem)
			if sem >= a.cfg.Thresholds.SplitMergeCandidate {
				parts = append(parts, oi)
				total += sem
			}
		}
		if len(parts) >= 2 && total >= a.cfg.Thresholds.SplitMergeAccept {
			c := AlignmentCandidate{
				Revised:         []string{revised[ri].id},
				Type:            AlignMerged,
				Confidence:      minFloat(1.0, total/float64(len(parts))),
				Signals:         []Signal{{Name: "semantic_sum", Score: total, Weight: a.cfg.Weights.Semantic}},
				RevisedExcerpts: []string{revised[ri].excerpt},
			}
			for _, oi := range parts {
				c.Original = append(c.Original, originals[oi].id)
				c.OriginalExcerpts = append(c.OriginalExcerpts, originals[oi].excerpt)
				matchedOrig[oi] = true
			}
			emit(c)
			matchedRev[ri] = true
		}
	}

	// Pass 5: leftovers are deletions and insertions.
	for oi := range originals {
		if matchedOrig[oi] {
			continue
		}
		emit(AlignmentCandidate{
			Original:         []string{originals[oi].id},
			Type:             AlignDeleted,
			Confidence:       a.cfg.Thresholds.UnmatchedDefault,
			OriginalExcerpts: []string{originals[oi].excerpt},
		})
	}
	for ri := range revised {
		if matchedRev[ri] {
			continue
		}
		emit(AlignmentCandidate{
			Revised:         []string{revised[ri].id},
			Type:            AlignInserted,
			Confidence:      a.cfg.Thresholds.UnmatchedDefault,
			RevisedExcerpts: []string{revised[ri].excerpt},
		})
	}

	a.log.Debugw("alignment candidates", "count", len(candidates))
	return candidates
}

// similarity scores a section pair over the five weighted signals.
func (a *Aligner) similarity(o, r *section) (float64, []Signal) {
	idSim := StringSimilarity(o.id, r.id)
	titleSim := StringSimilarity(o.title, r.title)
	semantic := SemanticSimilarity(o.sem, r.sem)
	posDiff := o.positionFraction() - r.positionFraction()
	if posDiff < 0 {
		posDiff = -posDiff
	}
	position := 1.0 - posDiff
	text := Cosine(o.sem.WordFrequencies, r.sem.WordFrequencies)

	w := a.cfg.Weights
	signals := []Signal{
		{Name: "id", Score: idSim, Weight: w.ID},
		{Name: "title", Score: titleSim, Weight: w.Title},
		{Name: "semantic", Score: semantic, Weight: w.Semantic},
		{Name: "position", Score: position, Weight: w.Position},
		{Name: "text", Score: text, Weight: w.Text},
	}
	overall := 0.0
	for _, s := range signals {
		overall += s.Score * s.Weight
	}
	return lnlp.Clamp01(overall), signals
}

// Finalize drops zero-confidence candidates, tallies stats, and warns on
// every alignment below the review threshold.
func (a *Aligner) Finalize(candidates []AlignmentCandidate) AlignmentResult {
	var result AlignmentResult
	for _, c := range candidates {
		if c.Confidence <= 0 {
			continue
		}
		result.Alignments = append(result.Alignments, c)
		switch c.Type {
		case AlignExactMatch:
			result.Stats.Exact++
		case AlignRenumbered:
			result.Stats.Renumbered++
		case AlignMoved:
			result.Stats.Moved++
		case AlignModified:
			result.Stats.Modified++
		case AlignSplit:
			result.Stats.Split++
		case AlignMerged:
			result.Stats.Merged++
		case AlignDeleted:
			result.Stats.Deleted++
		case AlignInserted:
			result.Stats.Inserted++
		}
		if c.Confidence < a.cfg.Thresholds.Review {
			result.Warnings = append(result.Warnings, fmt.Sprintf(
				"%s alignment of %v -> %v at confidence %.2f needs review",
				c.Type, c.Original, c.Revised, c.Confidence))
		}
	}
	return result
}

// prepareSections flattens a structure into scored sections in document
// order.
func prepareSections(doc *lnlp.Document, s *structure.DocumentStructure) []section {
	nodes := s.Nodes()
	sorted := append([]*structure.SectionNode(nil), nodes...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].StartLine < sorted[j].StartLine })

	out := make([]section, 0, len(sorted))
	for i, n := range sorted {
		out = append(out, section{
			node:    n,
			id:      n.Canonical(),
			title:   n.Header.Title,
			depth:   n.Depth,
			index:   i,
			total:   len(sorted),
			sem:     ExtractSemantics(doc, n),
			excerpt: sectionExcerpt(doc, n),
		})
	}
	return out
}

func sectionExcerpt(doc *lnlp.Document, n *structure.SectionNode) string {
	l := doc.Line(n.StartLine)
	if l == nil {
		return ""
	}
	text := l.Text()
	runes := []rune(text)
	if len(runes) > 80 {
		return string(runes[:80]) + "..."
	}
	return text
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
