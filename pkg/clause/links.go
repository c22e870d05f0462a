package clause

import (
	"sort"

	"github.com/coolbeans/covenant/pkg/contract"
	"github.com/coolbeans/covenant/pkg/lnlp"
)

// Role is the relation a link expresses from its anchor to its target.
type Role int

const (
	RoleParent Role = iota
	RoleChild
	RoleConjunct
	RoleException
	RoleListItem
	RoleListContainer
	RoleCrossReference
	RoleRelative
	RoleSelf
)

// String returns the role tag.
func (r Role) String() string {
	switch r {
	case RoleParent:
		return "parent"
	case RoleChild:
		return "child"
	case RoleConjunct:
		return "conjunct"
	case RoleException:
		return "exception"
	case RoleListItem:
		return "list_item"
	case RoleListContainer:
		return "list_container"
	case RoleCrossReference:
		return "cross_reference"
	case RoleRelative:
		return "relative"
	case RoleSelf:
		return "self"
	}
	return "unknown"
}

// LinkConfidence is the discrete confidence of a clause link.
type LinkConfidence int

const (
	ConfidenceLow LinkConfidence = iota
	ConfidenceMedium
	ConfidenceHigh
)

// String returns the confidence tag.
func (c LinkConfidence) String() string {
	switch c {
	case ConfidenceLow:
		return "low"
	case ConfidenceMedium:
		return "medium"
	case ConfidenceHigh:
		return "high"
	}
	return "unknown"
}

// CoordinationType is the coordinator joining two conjuncts.
type CoordinationType int

const (
	CoordAnd CoordinationType = iota
	CoordOr
	CoordBut
	CoordNor
)

// String returns the coordinator word.
func (c CoordinationType) String() string {
	switch c {
	case CoordAnd:
		return "and"
	case CoordOr:
		return "or"
	case CoordBut:
		return "but"
	case CoordNor:
		return "nor"
	}
	return "unknown"
}

// PrecedenceRank orders coordinator families: AND binds tighter than OR,
// OR tighter than BUT/NOR.
func (c CoordinationType) PrecedenceRank() int {
	switch c {
	case CoordAnd:
		return 2
	case CoordOr:
		return 1
	}
	return 0
}

// ClauseSpan is a clause lifted to document coordinates.
type ClauseSpan struct {
	Span     lnlp.DocSpan `json:"span"`
	Category Category     `json:"category"`
}

// ClauseLink is one tagged edge of the document's clause graph, keyed by
// its anchor span. The graph is a flat vector of edges; navigation happens
// in the query API.
type ClauseLink struct {
	Anchor          lnlp.DocSpan             `json:"anchor"`
	Role            Role                     `json:"role"`
	Target          lnlp.DocSpan             `json:"target"`
	Confidence      LinkConfidence           `json:"confidence"`
	Coordination    *CoordinationType        `json:"coordination,omitempty"`
	PrecedenceGroup *int                     `json:"precedence_group,omitempty"`
	ObligationType  *contract.ObligationType `json:"obligation_type,omitempty"`
}

// maxSentenceLines is the line-distance cap for cross-line sentences.
const maxSentenceLines = 10

// ExtractClauseSpans lifts all Clause attributes to document spans in
// document order.
func ExtractClauseSpans(doc *lnlp.Document) []ClauseSpan {
	var out []ClauseSpan
	doc.EachLine(func(i int, l *lnlp.Line) {
		for _, a := range lnlp.Attrs[Clause](l) {
			out = append(out, ClauseSpan{
				Span:     lnlp.LineSpan(i, a.Span),
				Category: a.Value.Category,
			})
		}
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].Span.Start.Before(out[j].Span.Start) })
	return out
}

// LinkResolver runs the fixed gate sequence over a document's clause
// spans.
type LinkResolver struct{}

// NewLinkResolver constructs the link resolver.
func NewLinkResolver() *LinkResolver { return &LinkResolver{} }

// Resolve produces the clause link graph for a document that has been
// through the pipeline and the segmenter.
func (r *LinkResolver) Resolve(doc *lnlp.Document) []ClauseLink {
	spans := ExtractClauseSpans(doc)
	var links []ClauseLink

	links = append(links, gateParentChild(doc, spans)...)
	conjuncts := gateCoordination(doc, spans)
	links = append(links, conjuncts...)
	links = append(links, gateExceptions(doc, spans, conjuncts)...)
	links = append(links, gateLists(doc, spans)...)
	links = append(links, gateCrossReferences(doc, spans)...)

	links = enrichObligations(doc, spans, links)
	return links
}

// sameSentence reports whether two spans share a sentence: same line with
// no boundary token between, or within the line-distance cap with no
// boundary tokens on the intervening range.
func sameSentence(doc *lnlp.Document, a, b lnlp.DocSpan) bool {
	if b.Start.Before(a.Start) {
		a, b = b, a
	}
	if a.End.Line == b.Start.Line {
		return !boundaryOnLineBetween(doc, a.End.Line, a.End.Token+1, b.Start.Token-1)
	}
	if b.Start.Line-a.End.Line > maxSentenceLines {
		return false
	}
	if boundaryOnLineBetween(doc, a.End.Line, a.End.Token+1, doc.Line(a.End.Line).Len()-1) {
		return false
	}
	for li := a.End.Line + 1; li < b.Start.Line; li++ {
		if boundaryOnLineBetween(doc, li, 0, doc.Line(li).Len()-1) {
			return false
		}
	}
	return !boundaryOnLineBetween(doc, b.Start.Line, 0, b.Start.Token-1)
}

func boundaryOnLineBetween(doc *lnlp.Document, line, start, end int) bool {
	l := doc.Line(line)
	if l == nil {
		return false
	}
	for i := start; i <= end; i++ {
		tok, ok := l.Token(i)
		if !ok {
			continue
		}
		if tok.IsPunc() {
			switch tok.Text {
			case ".", "!", "?", ";":
				return true
			}
		}
	}
	return false
}

func semicolonBetween(doc *lnlp.Document, a, b lnlp.DocSpan) bool {
	if b.Start.Before(a.Start) {
		a, b = b, a
	}
	for li := a.End.Line; li <= b.Start.Line; li++ {
		l := doc.Line(li)
		if l == nil {
			continue
		}
		start, end := 0, l.Len()-1
		if li == a.End.Line {
			start = a.End.Token + 1
		}
		if li == b.Start.Line {
			end = b.Start.Token - 1
		}
		for i := start; i <= end; i++ {
			if tok, ok := l.Token(i); ok && tok.IsPunc() && tok.Text == ";" {
				return true
			}
		}
	}
	return false
}

// keywordsBetween returns the contract keywords on the inter-span range.
func keywordsBetween(doc *lnlp.Document, a, b lnlp.DocSpan) []contract.KeywordKind {
	if b.Start.Before(a.Start) {
		a, b = b, a
	}
	var out []contract.KeywordKind
	for li := a.End.Line; li <= b.Start.Line; li++ {
		l := doc.Line(li)
		if l == nil {
			continue
		}
		start, end := 0, l.Len()-1
		if li == a.End.Line {
			start = a.End.Token + 1
		}
		if li == b.Start.Line {
			end = b.Start.Token - 1
		}
		if end < start {
			continue
		}
		for _, kw := range lnlp.AttrsIn[contract.ContractKeyword](l, lnlp.Span(start, end)) {
			out = append(out, kw.Value.Kind)
		}
	}
	return out
}

func hasCoordinationBetween(kinds []contract.KeywordKind) (CoordinationType, bool) {
	for _, k := range kinds {
		if ct, ok := coordinationTypeOf(k); ok {
			return ct, true
		}
	}
	return 0, false
}

func hasExceptionBetween(kinds []contract.KeywordKind) bool {
	for _, k := range kinds {
		if k.IsExceptionKeyword() {
			return true
		}
	}
	return false
}

func coordinationTypeOf(k contract.KeywordKind) (CoordinationType, bool) {
	switch k {
	case contract.KwAnd:
		return CoordAnd, true
	case contract.KwOr:
		return CoordOr, true
	case contract.KwBut:
		return CoordBut, true
	case contract.KwNor:
		return CoordNor, true
	}
	return 0, false
}

func linkConfidenceFor(a, b lnlp.DocSpan) LinkConfidence {
	if a.Start.Line == b.Start.Line {
		return ConfidenceHigh
	}
	return ConfidenceMedium
}

// gateParentChild links each Condition to the next TrailingEffect in the
// same sentence, skipping list-item clauses between them.
func gateParentChild(doc *lnlp.Document, spans []ClauseSpan) []ClauseLink {
	var links []ClauseLink
	listItems := listItemIndexes(doc, spans)

	for i, cond := range spans {
		if cond.Category != CategoryCondition {
			continue
		}
		for j := i + 1; j < len(spans); j++ {
			if !sameSentence(doc, cond.Span, spans[j].Span) {
				break
			}
			if listItems[j] {
				continue
			}
			if spans[j].Category != CategoryTrailingEffect {
				continue
			}
			conf := linkConfidenceFor(cond.Span, spans[j].Span)
			links = append(links,
				ClauseLink{Anchor: cond.Span, Role: RoleParent, Target: spans[j].Span, Confidence: conf},
				ClauseLink{Anchor: spans[j].Span, Role: RoleChild, Target: cond.Span, Confidence: conf},
			)
			break
		}
	}
	return links
}

// gateCoordination emits conjunct chains (A→B, B→C) for coordinated
// adjacent clause pairs and assigns precedence groups over each chain.
func gateCoordination(doc *lnlp.Document, spans []ClauseSpan) []ClauseLink {
	var links []ClauseLink

	// A sequence coordinates implicitly only when some adjacent pair
	// carries an explicit coordinator.
	hasAny := false
	for i := 0; i+1 < len(spans); i++ {
		if !sameSentence(doc, spans[i].Span, spans[i+1].Span) {
			continue
		}
		kinds := keywordsBetween(doc, spans[i].Span, spans[i+1].Span)
		if _, ok := hasCoordinationBetween(kinds); ok && !hasExceptionBetween(kinds) {
			hasAny = true
			break
		}
	}

	groupID := 0
	var prevFamily = -1
	chainOpen := false

	for i := 0; i+1 < len(spans); i++ {
		current, next := spans[i], spans[i+1]
		if !sameSentence(doc, current.Span, next.Span) {
			chainOpen = false
			continue
		}
		kinds := keywordsBetween(doc, current.Span, next.Span)
		coordType, hasCoord := hasCoordinationBetween(kinds)
		if hasExceptionBetween(kinds) {
			chainOpen = false
			continue
		}
		if !hasCoord && !(hasAny && current.Category == next.Category) {
			chainOpen = false
			continue
		}
		if !hasCoord {
			// Comma-implicit coordination takes its type from the next
			// explicit coordinator in the sentence.
			coordType = upcomingCoordinator(doc, spans, i+1)
		}

		family := coordType.PrecedenceRank()
		if !chainOpen || family != prevFamily {
			groupID++
		}
		chainOpen = true
		prevFamily = family

		ct := coordType
		gid := groupID
		links = append(links, ClauseLink{
			Anchor:          current.Span,
			Role:            RoleConjunct,
			Target:          next.Span,
			Confidence:      linkConfidenceFor(current.Span, next.Span),
			Coordination:    &ct,
			PrecedenceGroup: &gid,
		})
	}
	return links
}

// upcomingCoordinator scans forward through later adjacent gaps of the
// same sentence for an explicit coordinator; defaults to AND.
func upcomingCoordinator(doc *lnlp.Document, spans []ClauseSpan, from int) CoordinationType {
	for i := from; i+1 < len(spans); i++ {
		if !sameSentence(doc, spans[i].Span, spans[i+1].Span) {
			break
		}
		kinds := keywordsBetween(doc, spans[i].Span, spans[i+1].Span)
		if ct, ok := hasCoordinationBetween(kinds); ok {
			return ct
		}
	}
	return CoordAnd
}

// gateExceptions creates exception links for pairs separated by an
// exception keyword, propagates them across the coordinated group (unless
// a semicolon blocks), and closes chains transitively.
func gateExceptions(doc *lnlp.Document, spans []ClauseSpan, conjuncts []ClauseLink) []ClauseLink {
	var links []ClauseLink

	emit := func(anchor, target lnlp.DocSpan) {
		links = append(links, ClauseLink{
			Anchor:     anchor,
			Role:       RoleException,
			Target:     target,
			Confidence: linkConfidenceFor(anchor, target),
		})
	}

	propagate := func(exception, current lnlp.DocSpan) {
		for _, conj := range conjunctGroup(conjuncts, current) {
			if conj == current {
				continue
			}
			if semicolonBetween(doc, exception, conj) {
				continue
			}
			emit(exception, conj)
		}
	}

	for i := 0; i+1 < len(spans); i++ {
		current, next := spans[i], spans[i+1]
		if !sameSentence(doc, current.Span, next.Span) {
			continue
		}
		if !hasExceptionBetween(keywordsBetween(doc, current.Span, next.Span)) {
			continue
		}
		emit(next.Span, current.Span)
		propagate(next.Span, current.Span)
	}

	// Prefix exception: a keyword before the first clause of a sentence
	// scopes the first clause under the second.
	if len(spans) >= 2 {
		first, second := spans[0], spans[1]
		if sameSentence(doc, first.Span, second.Span) && prefixExceptionKeyword(doc, first.Span) {
			emit(second.Span, first.Span)
			propagate(second.Span, first.Span)
		}
	}

	// Transitive closure over chained exceptions: C→B, B→A adds C→A.
	all := append([]ClauseLink(nil), links...)
	for {
		added := false
		for _, l1 := range all {
			for _, l2 := range all {
				if l1.Role != RoleException || l2.Role != RoleException {
					continue
				}
				if l1.Target != l2.Anchor {
					continue
				}
				candidate := ClauseLink{
					Anchor:     l1.Anchor,
					Role:       RoleException,
					Target:     l2.Target,
					Confidence: linkConfidenceFor(l1.Anchor, l2.Target),
				}
				if l1.Anchor == l2.Target || containsLink(all, candidate.Anchor, RoleException, candidate.Target) {
					continue
				}
				all = append(all, candidate)
				added = true
			}
		}
		if !added {
			break
		}
	}
	return all
}

func containsLink(links []ClauseLink, anchor lnlp.DocSpan, role Role, target lnlp.DocSpan) bool {
	for _, l := range links {
		if l.Role == role && l.Anchor == anchor && l.Target == target {
			return true
		}
	}
	return false
}

// prefixExceptionKeyword reports an exception keyword before the clause
// on its start line.
func prefixExceptionKeyword(doc *lnlp.Document, span lnlp.DocSpan) bool {
	l := doc.Line(span.Start.Line)
	if l == nil || span.Start.Token == 0 {
		return false
	}
	for _, kw := range lnlp.AttrsIn[contract.ContractKeyword](l, lnlp.Span(0, span.Start.Token-1)) {
		if kw.Value.Kind.IsExceptionKeyword() {
			return true
		}
	}
	return false
}

// conjunctGroup is the transitive conjunct set containing span (excluding
// nothing; the caller filters).
func conjunctGroup(conjuncts []ClauseLink, span lnlp.DocSpan) []lnlp.DocSpan {
	visited := map[lnlp.DocSpan]bool{span: true}
	queue := []lnlp.DocSpan{span}
	var out []lnlp.DocSpan

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		out = append(out, cur)
		for _, l := range conjuncts {
			if l.Role != RoleConjunct {
				continue
			}
			var neighbor lnlp.DocSpan
			switch {
			case l.Anchor == cur:
				neighbor = l.Target
			case l.Target == cur:
				neighbor = l.Anchor
			default:
				continue
			}
			if !visited[neighbor] {
				visited[neighbor] = true
				queue = append(queue, neighbor)
			}
		}
	}
	return out
}

// gateLists groups consecutive marker-led clauses of the same discriminant
// under the clause immediately before the first item.
func gateLists(doc *lnlp.Document, spans []ClauseSpan) []ClauseLink {
	var links []ClauseLink
	markers := markerForClause(doc, spans)

	i := 0
	for i < len(spans) {
		m, ok := markers[i]
		if !ok {
			i++
			continue
		}
		j := i
		for j+1 < len(spans) {
			next, okNext := markers[j+1]
			if !okNext || next.Kind != m.Kind {
				break
			}
			j++
		}

		if i > 0 {
			container := spans[i-1].Span
			for k := i; k <= j; k++ {
				links = append(links, ClauseLink{
					Anchor:     spans[k].Span,
					Role:       RoleListItem,
					Target:     container,
					Confidence: linkConfidenceFor(spans[k].Span, container),
				})
			}
			links = append(links, ClauseLink{
				Anchor:     container,
				Role:       RoleListContainer,
				Target:     spans[i].Span,
				Confidence: linkConfidenceFor(container, spans[i].Span),
			})
		}
		i = j + 1
	}
	return links
}

// markerForClause maps clause index to the marker that starts it or
// immediately precedes it within three tokens.
func markerForClause(doc *lnlp.Document, spans []ClauseSpan) map[int]ListMarker {
	out := make(map[int]ListMarker)
	for i, cs := range spans {
		l := doc.Line(cs.Span.Start.Line)
		if l == nil {
			continue
		}
		for _, m := range lnlp.Attrs[ListMarker](l) {
			startsClause := m.Span.Start == cs.Span.Start.Token
			precedes := m.Span.End < cs.Span.Start.Token && cs.Span.Start.Token-m.Span.End <= 3
			if startsClause || precedes {
				out[i] = m.Value
				break
			}
		}
	}
	return out
}

// listItemIndexes marks clauses that belong to a marker-led list.
func listItemIndexes(doc *lnlp.Document, spans []ClauseSpan) map[int]bool {
	out := make(map[int]bool)
	for i := range markerForClause(doc, spans) {
		out[i] = true
	}
	return out
}

// gateCrossReferences links each clause to the section references inside
// its token range.
func gateCrossReferences(doc *lnlp.Document, spans []ClauseSpan) []ClauseLink {
	var links []ClauseLink
	for _, cs := range spans {
		for li := cs.Span.Start.Line; li <= cs.Span.End.Line; li++ {
			l := doc.Line(li)
			if l == nil {
				continue
			}
			start, end := 0, l.Len()-1
			if li == cs.Span.Start.Line {
				start = cs.Span.Start.Token
			}
			if li == cs.Span.End.Line {
				end = cs.Span.End.Token
			}
			if end < start {
				continue
			}
			for _, ref := range lnlp.AttrsIn[lnlp.Scored[contract.SectionReference]](l, lnlp.Span(start, end)) {
				conf := ConfidenceMedium
				if li == cs.Span.Start.Line {
					conf = ConfidenceHigh
				}
				links = append(links, ClauseLink{
					Anchor:     cs.Span,
					Role:       RoleCrossReference,
					Target:     lnlp.LineSpan(li, ref.Span),
					Confidence: conf,
				})
			}
		}
	}
	return links
}

// enrichObligations copies the first obligation type found inside each
// link's anchor onto the link, and emits self links for obligation-bearing
// clauses that have no links at all.
func enrichObligations(doc *lnlp.Document, spans []ClauseSpan, links []ClauseLink) []ClauseLink {
	obligationIn := func(span lnlp.DocSpan) *contract.ObligationType {
		for li := span.Start.Line; li <= span.End.Line; li++ {
			l := doc.Line(li)
			if l == nil {
				continue
			}
			start, end := 0, l.Len()-1
			if li == span.Start.Line {
				start = span.Start.Token
			}
			if li == span.End.Line {
				end = span.End.Token
			}
			if end < start {
				continue
			}
			obs := lnlp.AttrsIn[lnlp.Scored[contract.ObligationPhrase]](l, lnlp.Span(start, end))
			if len(obs) > 0 {
				t := obs[0].Value.Value.Type
				return &t
			}
		}
		return nil
	}

	linked := make(map[lnlp.DocSpan]bool)
	for i := range links {
		linked[links[i].Anchor] = true
		if t := obligationIn(links[i].Anchor); t != nil {
			links[i].ObligationType = t
		}
	}

	for _, cs := range spans {
		if linked[cs.Span] {
			continue
		}
		if t := obligationIn(cs.Span); t != nil {
			links = append(links, ClauseLink{
				Anchor:         cs.Span,
				Role:           RoleSelf,
				Target:         cs.Span,
				Confidence:     ConfidenceHigh,
				ObligationType: t,
			})
		}
	}
	return links
}
