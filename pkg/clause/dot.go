package clause

import (
	"fmt"
	"strings"

	"github.com/coolbeans/covenant/pkg/lnlp"
)

// ToDOT renders the clause link graph as Graphviz DOT. Clause nodes are
// labeled with a text excerpt; edge styling follows the link role.
func ToDOT(doc *lnlp.Document, links []ClauseLink) string {
	var sb strings.Builder

	sb.WriteString("digraph ClauseLinks {\n")
	sb.WriteString("  rankdir=LR;\n")
	sb.WriteString("  fontname=\"Helvetica\";\n")
	sb.WriteString("  node [fontname=\"Helvetica\" fontsize=10 shape=box];\n")
	sb.WriteString("  edge [fontname=\"Helvetica\" fontsize=8];\n\n")

	nodes := make(map[lnlp.DocSpan]string)
	nodeID := func(span lnlp.DocSpan) string {
		if id, ok := nodes[span]; ok {
			return id
		}
		id := fmt.Sprintf("c_%d_%d_%d_%d", span.Start.Line, span.Start.Token, span.End.Line, span.End.Token)
		nodes[span] = id
		label := excerpt(doc.TextIn(span), 40)
		sb.WriteString(fmt.Sprintf("  %q [label=%q];\n", id, label))
		return id
	}

	for _, l := range links {
		from := nodeID(l.Anchor)
		to := nodeID(l.Target)
		color, style := edgeStyle(l.Role)
		label := l.Role.String()
		if l.Role == RoleConjunct && l.Coordination != nil {
			label = l.Coordination.String()
		}
		sb.WriteString(fmt.Sprintf("  %q -> %q [label=%q color=%s style=%s];\n",
			from, to, label, color, style))
	}

	sb.WriteString("}\n")
	return sb.String()
}

func edgeStyle(r Role) (color, style string) {
	switch r {
	case RoleParent, RoleChild:
		return "blue", "solid"
	case RoleConjunct:
		return "green", "solid"
	case RoleException:
		return "red", "dashed"
	case RoleListItem, RoleListContainer:
		return "orange", "solid"
	case RoleCrossReference:
		return "purple", "dotted"
	}
	return "black", "solid"
}

func excerpt(text string, max int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}
