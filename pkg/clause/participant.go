package clause

import (
	"sort"
	"strings"

	"github.com/coolbeans/covenant/pkg/contract"
	"github.com/coolbeans/covenant/pkg/lnlp"
)

// ParticipantRole is the part a party plays in a clause.
type ParticipantRole int

const (
	RoleObligor ParticipantRole = iota
	RoleBeneficiary
)

// String returns the role tag.
func (r ParticipantRole) String() string {
	if r == RoleObligor {
		return "obligor"
	}
	return "beneficiary"
}

// Participant is one party occurrence inside a clause.
type Participant struct {
	Role   ParticipantRole `json:"role"`
	Text   string          `json:"text"`
	Clause lnlp.DocSpan    `json:"clause"`
}

// Participants derives party roles per clause from the obligation phrases
// anchored inside it: the obligor keeps its role; capitalized parties
// named in the action are beneficiaries.
func Participants(doc *lnlp.Document, spans []ClauseSpan) []Participant {
	var out []Participant

	for _, cs := range spans {
		l := doc.Line(cs.Span.Start.Line)
		if l == nil || !cs.Span.SingleLine() {
			continue
		}
		clauseRange := lnlp.Span(cs.Span.Start.Token, cs.Span.End.Token)

		for _, ob := range lnlp.AttrsIn[lnlp.Scored[contract.ObligationPhrase]](l, clauseRange) {
			phrase := ob.Value.Value
			out = append(out, Participant{
				Role:   RoleObligor,
				Text:   phrase.Obligor.Text,
				Clause: cs.Span,
			})
			for _, name := range actionParties(l, phrase) {
				out = append(out, Participant{
					Role:   RoleBeneficiary,
					Text:   name,
					Clause: cs.Span,
				})
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Clause.Start != out[j].Clause.Start {
			return out[i].Clause.Start.Before(out[j].Clause.Start)
		}
		return out[i].Role < out[j].Role
	})
	return out
}

// actionParties collects capitalized word runs inside the action span that
// differ from the obligor.
func actionParties(l *lnlp.Line, phrase contract.ObligationPhrase) []string {
	var out []string
	seen := map[string]bool{strings.ToLower(phrase.Obligor.Text): true}

	var run []string
	flush := func() {
		if len(run) == 0 {
			return
		}
		name := strings.Join(run, " ")
		run = nil
		if !seen[strings.ToLower(name)] {
			seen[strings.ToLower(name)] = true
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
		if tok.IsWord() && isUpperInitial(tok.Text) {
			run = append(run, tok.Text)
			continue
		}
		flush()
	}
	flush()
	return out
}

func isUpperInitial(text string) bool {
	runes := []rune(text)
	return len(runes) > 0 && runes[0] >= 'A' && runes[0] <= 'Z'
}
