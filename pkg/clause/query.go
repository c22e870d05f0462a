package clause

import (
	"sort"

	"github.com/coolbeans/covenant/pkg/contract"
	"github.com/coolbeans/covenant/pkg/lnlp"
)

// Query is a read-only view over a clause link slice. Lookups are O(N)
// per call over the slice; the view never mutates it.
type Query struct {
	links []ClauseLink
}

// NewQuery wraps a link slice.
func NewQuery(links []ClauseLink) *Query { return &Query{links: links} }

// Links returns the underlying slice.
func (q *Query) Links() []ClauseLink { return q.links }

// ParentClause returns the condition clause governing span, if any.
func (q *Query) ParentClause(span lnlp.DocSpan) (lnlp.DocSpan, bool) {
	for _, l := range q.links {
		if l.Role == RoleChild && l.Anchor == span {
			return l.Target, true
		}
	}
	return lnlp.DocSpan{}, false
}

// ContainingClause is an alias for ParentClause.
func (q *Query) ContainingClause(span lnlp.DocSpan) (lnlp.DocSpan, bool) {
	return q.ParentClause(span)
}

// ChildClauses returns the clauses governed by span.
func (q *Query) ChildClauses(span lnlp.DocSpan) []lnlp.DocSpan {
	var out []lnlp.DocSpan
	for _, l := range q.links {
		if l.Role == RoleParent && l.Anchor == span {
			out = append(out, l.Target)
		}
	}
	return out
}

// Conjuncts returns every clause coordinated with span, transitively in
// both directions, excluding span itself.
func (q *Query) Conjuncts(span lnlp.DocSpan) []lnlp.DocSpan {
	var out []lnlp.DocSpan
	for _, s := range conjunctGroup(q.links, span) {
		if s != span {
			out = append(out, s)
		}
	}
	sortSpans(out)
	return out
}

// Exceptions returns the exception clauses that carve out span,
// transitively over inbound Exception links.
func (q *Query) Exceptions(span lnlp.DocSpan) []lnlp.DocSpan {
	visited := map[lnlp.DocSpan]bool{span: true}
	queue := []lnlp.DocSpan{span}
	var out []lnlp.DocSpan

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, l := range q.links {
			if l.Role != RoleException || l.Target != cur {
				continue
			}
			if visited[l.Anchor] {
				continue
			}
			visited[l.Anchor] = true
			out = append(out, l.Anchor)
			queue = append(queue, l.Anchor)
		}
	}
	sortSpans(out)
	return out
}

// ListContainer returns the container clause of a list item.
func (q *Query) ListContainer(span lnlp.DocSpan) (lnlp.DocSpan, bool) {
	for _, l := range q.links {
		if l.Role == RoleListItem && l.Anchor == span {
			return l.Target, true
		}
	}
	return lnlp.DocSpan{}, false
}

// ListItems returns the items of a list container in document order.
func (q *Query) ListItems(span lnlp.DocSpan) []lnlp.DocSpan {
	var out []lnlp.DocSpan
	for _, l := range q.links {
		if l.Role == RoleListItem && l.Target == span {
			out = append(out, l.Anchor)
		}
	}
	sortSpans(out)
	return out
}

// IsListItem reports whether span is a list item.
func (q *Query) IsListItem(span lnlp.DocSpan) bool {
	_, ok := q.ListContainer(span)
	return ok
}

// IsListContainer reports whether span contains list items.
func (q *Query) IsListContainer(span lnlp.DocSpan) bool {
	for _, l := range q.links {
		if l.Role == RoleListContainer && l.Anchor == span {
			return true
		}
	}
	return false
}

// ReferencedSections returns the reference spans inside clause span.
func (q *Query) ReferencedSections(span lnlp.DocSpan) []lnlp.DocSpan {
	var out []lnlp.DocSpan
	for _, l := range q.links {
		if l.Role == RoleCrossReference && l.Anchor == span {
			out = append(out, l.Target)
		}
	}
	sortSpans(out)
	return out
}

// ReferencingClauses returns the clauses containing a reference span.
func (q *Query) ReferencingClauses(refSpan lnlp.DocSpan) []lnlp.DocSpan {
	var out []lnlp.DocSpan
	for _, l := range q.links {
		if l.Role == RoleCrossReference && l.Target == refSpan {
			out = append(out, l.Anchor)
		}
	}
	sortSpans(out)
	return out
}

// HasCrossReferences reports whether span links to any section reference.
func (q *Query) HasCrossReferences(span lnlp.DocSpan) bool {
	return len(q.ReferencedSections(span)) > 0
}

// Obligation returns the obligation type recorded on span's links.
func (q *Query) Obligation(span lnlp.DocSpan) (contract.ObligationType, bool) {
	for _, l := range q.links {
		if l.Anchor == span && l.ObligationType != nil {
			return *l.ObligationType, true
		}
	}
	return 0, false
}

// ClausesByObligationType returns the anchor spans carrying the given
// obligation type, deduplicated and sorted by (line, token).
func (q *Query) ClausesByObligationType(t contract.ObligationType) []lnlp.DocSpan {
	seen := make(map[lnlp.DocSpan]bool)
	var out []lnlp.DocSpan
	for _, l := range q.links {
		if l.ObligationType == nil || *l.ObligationType != t {
			continue
		}
		if seen[l.Anchor] {
			continue
		}
		seen[l.Anchor] = true
		out = append(out, l.Anchor)
	}
	sortSpans(out)
	return out
}

// TopLevelOperator returns the loosest-binding coordinator family present
// among Conjunct links: the one with minimum precedence rank.
func (q *Query) TopLevelOperator() (CoordinationType, bool) {
	found := false
	var best CoordinationType
	for _, l := range q.links {
		if l.Role != RoleConjunct || l.Coordination == nil {
			continue
		}
		if !found || l.Coordination.PrecedenceRank() < best.PrecedenceRank() {
			best = *l.Coordination
			found = true
		}
	}
	return best, found
}

// PrecedenceGroupMembers returns the anchors and targets of every
// Conjunct link sharing span's precedence group.
func (q *Query) PrecedenceGroupMembers(span lnlp.DocSpan) []lnlp.DocSpan {
	group := -1
	for _, l := range q.links {
		if l.Role == RoleConjunct && l.PrecedenceGroup != nil && (l.Anchor == span || l.Target == span) {
			group = *l.PrecedenceGroup
			break
		}
	}
	if group < 0 {
		return nil
	}
	seen := make(map[lnlp.DocSpan]bool)
	var out []lnlp.DocSpan
	for _, l := range q.links {
		if l.Role != RoleConjunct || l.PrecedenceGroup == nil || *l.PrecedenceGroup != group {
			continue
		}
		for _, s := range []lnlp.DocSpan{l.Anchor, l.Target} {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	sortSpans(out)
	return out
}

// PrecedenceGroups returns the distinct group IDs in ascending order.
func (q *Query) PrecedenceGroups() []int {
	seen := make(map[int]bool)
	var out []int
	for _, l := range q.links {
		if l.Role == RoleConjunct && l.PrecedenceGroup != nil && !seen[*l.PrecedenceGroup] {
			seen[*l.PrecedenceGroup] = true
			out = append(out, *l.PrecedenceGroup)
		}
	}
	sort.Ints(out)
	return out
}

// HighConfidenceLinks returns the links at High confidence.
func (q *Query) HighConfidenceLinks() []ClauseLink {
	return q.LinksWithConfidence(ConfidenceHigh)
}

// LinksWithConfidence returns the links at or above min confidence.
func (q *Query) LinksWithConfidence(min LinkConfidence) []ClauseLink {
	var out []ClauseLink
	for _, l := range q.links {
		if l.Confidence >= min {
			out = append(out, l)
		}
	}
	return out
}

func sortSpans(spans []lnlp.DocSpan) {
	sort.SliceStable(spans, func(i, j int) bool { return spans[i].Start.Before(spans[j].Start) })
}
