// Package analytics aggregates extracted obligations by party and
// beneficiary and maintains a verification queue of advisory findings a
// reviewer should confirm.
package analytics

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/coolbeans/covenant/pkg/contract"
	"github.com/coolbeans/covenant/pkg/lnlp"
)

// BeneficiaryGroup counts obligations flowing to one beneficiary.
type BeneficiaryGroup struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// PartyAggregate summarizes one obligor's normative load.
type PartyAggregate struct {
	Party             string             `json:"party"`
	IsDefinedTerm     bool               `json:"is_defined_term"`
	Duties            int                `json:"duties"`
	Permissions       int                `json:"permissions"`
	Prohibitions      int                `json:"prohibitions"`
	AverageConfidence float64            `json:"average_confidence"`
	Beneficiaries     []BeneficiaryGroup `json:"beneficiaries,omitempty"`
}

// Total returns the obligation count for the party.
func (p PartyAggregate) Total() int { return p.Duties + p.Permissions + p.Prohibitions }

// VerificationItem is one advisory finding queued for human review.
type VerificationItem struct {
	SourceLine int     `json:"source_line"`
	Reason     string  `json:"reason"`
	Confidence float64 `json:"confidence"`
	Excerpt    string  `json:"excerpt,omitempty"`
}

// Report is the accountability payload: party aggregates plus the
// verification queue, JSON-exportable for downstream review tools.
type Report struct {
	Parties []PartyAggregate   `json:"parties"`
	Queue   []VerificationItem `json:"verification_queue,omitempty"`
}

// ToJSON renders the report.
func (r Report) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// lowConfidenceThreshold queues obligations below it.
const lowConfidenceThreshold = 0.70

// BuildReport walks a pipeline-analyzed document and aggregates its
// obligations. Nothing is discarded: weak findings land in the queue
// instead of the aggregates being filtered.
func BuildReport(doc *lnlp.Document) Report {
	type bucket struct {
		agg           PartyAggregate
		confidenceSum float64
		count         int
		beneficiaries map[string]int
	}
	buckets := make(map[string]*bucket)
	var order []string
	var queue []VerificationItem

	doc.EachLine(func(li int, l *lnlp.Line) {
		sourceLine := doc.SourceLineNumber(li)

		for _, ob := range lnlp.Attrs[lnlp.Scored[contract.ObligationPhrase]](l) {
			phrase := ob.Value.Value
			key := strings.ToLower(strings.TrimSpace(phrase.Obligor.Text))
			b, ok := buckets[key]
			if !ok {
				b = &bucket{
					agg: PartyAggregate{
						Party:         phrase.Obligor.Text,
						IsDefinedTerm: phrase.Obligor.IsDefinedTerm,
					},
					beneficiaries: make(map[string]int),
				}
				buckets[key] = b
				order = append(order, key)
			}

			switch phrase.Type {
			case contract.ObligationDuty:
				b.agg.Duties++
			case contract.ObligationPermission:
				b.agg.Permissions++
			case contract.ObligationProhibition:
				b.agg.Prohibitions++
			}
			b.confidenceSum += ob.Value.Confidence
			b.count++
			for _, name := range beneficiariesOf(l, phrase) {
				b.beneficiaries[name]++
			}

			if ob.Value.Confidence < lowConfidenceThreshold {
				queue = append(queue, VerificationItem{
					SourceLine: sourceLine,
					Reason:     "low-confidence obligation: " + strings.Join(ob.Value.Rationale, ", "),
					Confidence: ob.Value.Confidence,
					Excerpt:    phrase.Action,
				})
			} else if hasRationale(ob.Value.Rationale, "multiple_obligor_candidates") {
				queue = append(queue, VerificationItem{
					SourceLine: sourceLine,
					Reason:     "competing obligor candidates",
					Confidence: ob.Value.Confidence,
					Excerpt:    phrase.Action,
				})
			}
		}

		for _, pr := range lnlp.Attrs[lnlp.Scored[contract.PronounReference]](l) {
			if !pr.Value.Value.Resolved() {
				queue = append(queue, VerificationItem{
					SourceLine: sourceLine,
					Reason:     "unresolved pronoun " + pr.Value.Value.Pronoun,
					Confidence: pr.Value.Confidence,
				})
			}
		}

		for _, mc := range lnlp.Attrs[contract.ModalNegationClassification](l) {
			if !mc.Value.NeedsReview {
				continue
			}
			reason := "modal classification needs review"
			if mc.Value.DiscretionPattern != nil {
				reason = "discretion release: " + mc.Value.DiscretionPattern.String()
			} else if mc.Value.Polarity == contract.PolarityAmbiguous {
				reason = "ambiguous polarity"
			}
			queue = append(queue, VerificationItem{
				SourceLine: sourceLine,
				Reason:     reason,
				Confidence: mc.Value.Confidence,
			})
		}
	})

	report := Report{Queue: queue}
	for _, key := range order {
		b := buckets[key]
		if b.count > 0 {
			b.agg.AverageConfidence = b.confidenceSum / float64(b.count)
		}
		for name, count := range b.beneficiaries {
			b.agg.Beneficiaries = append(b.agg.Beneficiaries, BeneficiaryGroup{Name: name, Count: count})
		}
		sort.Slice(b.agg.Beneficiaries, func(i, j int) bool {
			if b.agg.Beneficiaries[i].Count != b.agg.Beneficiaries[j].Count {
				return b.agg.Beneficiaries[i].Count > b.agg.Beneficiaries[j].Count
			}
			return b.agg.Beneficiaries[i].Name < b.agg.Beneficiaries[j].Name
		})
		report.Parties = append(report.Parties, b.agg)
	}

	sort.SliceStable(report.Parties, func(i, j int) bool {
		return report.Parties[i].Total() > report.Parties[j].Total()
	})
	return report
}

func hasRationale(tags []string, want string) bool {
	for _, t := range tags {
		if t == want {
			return true
		}
	}
	return false
}

// beneficiariesOf collects capitalized party names inside the action span
// that differ from the obligor.
func beneficiariesOf(l *lnlp.Line, phrase contract.ObligationPhrase) []string {
	var out []string
	seen := map[string]bool{strings.ToLower(phrase.Obligor.Text): true}

	var run []string
	flush := func() {
		if len(run) == 0 {
			return
		}
		name := strings.Join(run, " ")
		run = nil
		key := strings.ToLower(name)
		if !seen[key] {
			seen[key] = true
			out = append(out, name)
		}
	}

	for i := phrase.ActionSpan.Start; i <= phrase.ActionSpan.End; i++ {
		tok, ok := l.Token(i)
		if !ok {
			break
		}
		if tok.IsWhitespace() {
			continue
		}
		if tok.IsWord() && tok.Text[0] >= 'A' && tok.Text[0] <= 'Z' {
			run = append(run, tok.Text)
			continue
		}
		flush()
	}
	flush()
	return out
}
