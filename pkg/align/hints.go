package align

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/samber/oops"
)

// HintType is the tagged union of hint actions.
type HintType struct {
	Kind string `json:"kind"`

	// MatchType accompanies force_match and override_type.
	MatchType string `json:"match_type,omitempty"`

	// Delta accompanies adjust_confidence.
	Delta float64 `json:"delta,omitempty"`

	// Topics accompany semantic_context.
	Topics []string `json:"topics,omitempty"`
}

// Hint kinds.
const (
	HintForceMatch       = "force_match"
	HintForceNoMatch     = "force_no_match"
	HintAdjustConfidence = "adjust_confidence"
	HintOverrideType     = "override_type"
	HintSemanticContext  = "semantic_context"
)

// Hint is one externally supplied alignment instruction, targeting a
// candidate by ID or by the exact set of section IDs it covers.
type Hint struct {
	CandidateID *int     `json:"candidate_id,omitempty"`
	OriginalIDs []string `json:"original_ids,omitempty"`
	RevisedIDs  []string `json:"revised_ids,omitempty"`
	HintType    HintType `json:"hint_type"`
	Confidence  float64  `json:"confidence"`
	Source      string   `json:"source"`
	Explanation string   `json:"explanation,omitempty"`
}

// HintPayload is the external JSON contract: the candidate set from a
// compute pass plus a parallel array of hints against it.
type HintPayload struct {
	Candidates []AlignmentCandidate `json:"candidates"`
	Hints      []Hint               `json:"hints"`
}

// LoadHints reads a hint payload from a JSON file.
func LoadHints(path string) (HintPayload, error) {
	var payload HintPayload
	f, err := os.Open(path)
	if err != nil {
		return payload, oops.Code("HINTS_OPEN").With("path", path).Wrap(err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return payload, oops.Code("HINTS_READ").With("path", path).Wrap(err)
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return payload, oops.Code("HINTS_PARSE").With("path", path).Wrap(err)
	}
	return payload, nil
}

// ApplyHints mutates the candidate set per the hint semantics and returns
// it. Application is idempotent for force_match: re-applying the same
// hint yields the same confidence.
func ApplyHints(candidates []AlignmentCandidate, hints []Hint, weights Weights) []AlignmentCandidate {
	for _, h := range hints {
		for i := range candidates {
			if !hintTargets(h, &candidates[i]) {
				continue
			}
			applyHint(&candidates[i], h, weights)
		}
	}
	return candidates
}

func hintTargets(h Hint, c *AlignmentCandidate) bool {
	if h.CandidateID != nil {
		return *h.CandidateID == c.ID
	}
	return sameIDSet(h.OriginalIDs, c.Original) && sameIDSet(h.RevisedIDs, c.Revised)
}

func sameIDSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

func applyHint(c *AlignmentCandidate, h Hint, weights Weights) {
	switch h.HintType.Kind {
	case HintForceMatch:
		if t, ok := AlignmentTypeFromString(h.HintType.MatchType); ok {
			c.Type = t
		}
		c.Confidence = h.Confidence
		c.UncertaintyReason = ""
		c.Signals = append(c.Signals, Signal{
			Name:   "hint:" + h.Source,
			Score:  h.Confidence,
			Weight: 1.0,
		})
	case HintForceNoMatch:
		c.Confidence = 0
		c.UncertaintyReason = fmt.Sprintf("rejected by %s", h.Source)
	case HintAdjustConfidence:
		v := c.Confidence + h.HintType.Delta
		if v < 0 {
			v = 0
		}
		if v > 1 {
			v = 1
		}
		c.Confidence = v
	case HintOverrideType:
		if t, ok := AlignmentTypeFromString(h.HintType.MatchType); ok {
			c.Type = t
		}
	case HintSemanticContext:
		c.Signals = append(c.Signals, Signal{
			Name:   "semantic_context:" + strings.Join(h.HintType.Topics, ","),
			Score:  h.Confidence,
			Weight: weights.Semantic,
		})
	}
}
