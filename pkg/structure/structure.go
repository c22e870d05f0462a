// Package structure lifts per-line section header detections into a
// hierarchical document outline and resolves section references against
// it.
package structure

import (
	"fmt"
	"sort"

	"github.com/coolbeans/covenant/pkg/contract"
	"github.com/coolbeans/covenant/pkg/lnlp"
)

// SectionNode is one node of the document outline. EndLine is exclusive:
// the start line of the next header, or the document end.
type SectionNode struct {
	Header     contract.SectionHeader `json:"header"`
	Confidence float64                `json:"confidence"`
	Depth      int                    `json:"depth"`
	StartLine  int                    `json:"start_line"`
	EndLine    int                    `json:"end_line"`
	Children   []*SectionNode         `json:"children,omitempty"`
}

// Canonical returns the node identifier's canonical string.
func (n *SectionNode) Canonical() string { return n.Header.Identifier.Canonical() }

// ContainsLine reports whether the node's line range covers line.
func (n *SectionNode) ContainsLine(line int) bool {
	return n.StartLine <= line && line < n.EndLine
}

// DocumentStructure is the built outline plus flat document-order access.
type DocumentStructure struct {
	Roots []*SectionNode `json:"roots"`
	nodes []*SectionNode

	byCanonical map[string][]*SectionNode
	bySub       map[string][]*SectionNode
}

// Nodes returns every section node in document order.
func (s *DocumentStructure) Nodes() []*SectionNode { return s.nodes }

// ByCanonical returns the nodes with the given canonical identifier.
func (s *DocumentStructure) ByCanonical(canonical string) []*SectionNode {
	return s.byCanonical[canonical]
}

// BySubIdentifier returns the nodes whose bare sub-identifier matches.
func (s *DocumentStructure) BySubIdentifier(canonical string) []*SectionNode {
	return s.bySub[canonical]
}

// InnermostContaining returns the deepest node whose line range includes
// line.
func (s *DocumentStructure) InnermostContaining(line int) *SectionNode {
	var best *SectionNode
	for _, n := range s.nodes {
		if !n.ContainsLine(line) {
			continue
		}
		if best == nil || n.Depth > best.Depth || (n.Depth == best.Depth && n.StartLine > best.StartLine) {
			best = n
		}
	}
	return best
}

// Builder gathers line-start section headers and assembles the outline.
// Depth-order violations produce warnings, never errors.
type Builder struct{}

// NewBuilder constructs the structure builder.
func NewBuilder() *Builder { return &Builder{} }

// headerStartLimit: only headers at or near the start of a line (token
// index <= 1) participate in structure building.
const headerStartLimit = 1

// Build walks the document's headers with a depth stack and returns the
// outline envelope.
func (b *Builder) Build(doc *lnlp.Document) lnlp.Result[*DocumentStructure] {
	var result lnlp.Result[*DocumentStructure]

	type lineHeader struct {
		line       int
		confidence float64
		header     contract.SectionHeader
	}
	var headers []lineHeader

	doc.EachLine(func(i int, l *lnlp.Line) {
		for _, a := range lnlp.Attrs[lnlp.Scored[contract.SectionHeader]](l) {
			if a.Span.Start > headerStartLimit {
				continue
			}
			headers = append(headers, lineHeader{line: i, confidence: a.Value.Confidence, header: a.Value.Value})
			break
		}
	})
	sort.SliceStable(headers, func(i, j int) bool { return headers[i].line < headers[j].line })

	s := &DocumentStructure{
		byCanonical: make(map[string][]*SectionNode),
		bySub:       make(map[string][]*SectionNode),
	}

	var stack []*SectionNode
	for _, h := range headers {
		node := &SectionNode{
			Header:     h.header,
			Confidence: h.confidence,
			Depth:      h.header.Identifier.Depth(),
			StartLine:  h.line,
			EndLine:    doc.LineCount(),
		}
		s.nodes = append(s.nodes, node)

		if len(stack) > 0 && node.Depth > stack[len(stack)-1].Depth+1 {
			result.Warnings = append(result.Warnings, lnlp.Issue{
				Kind:       lnlp.ErrInconsistentNumbering,
				Message:    fmt.Sprintf("section %q skips from depth %d to %d", node.Canonical(), stack[len(stack)-1].Depth, node.Depth),
				SourceLine: doc.SourceLineNumber(h.line),
			})
		}

		for len(stack) > 0 && stack[len(stack)-1].Depth >= node.Depth {
			popped := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			attach(s, stack, popped)
		}
		stack = append(stack, node)
	}
	for len(stack) > 0 {
		popped := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		attach(s, stack, popped)
	}

	// End line of each node is the start line of the next header.
	for i := 0; i+1 < len(s.nodes); i++ {
		s.nodes[i].EndLine = s.nodes[i+1].StartLine
	}
	// Parents extend to the end of their last descendant.
	var extend func(n *SectionNode) int
	extend = func(n *SectionNode) int {
		end := n.EndLine
		for _, c := range n.Children {
			if ce := extend(c); ce > end {
				end = ce
			}
		}
		n.EndLine = end
		return end
	}
	for _, r := range s.Roots {
		extend(r)
	}

	for _, n := range s.nodes {
		s.byCanonical[n.Canonical()] = append(s.byCanonical[n.Canonical()], n)
		if sub := n.Header.Identifier.SubCanonical(); sub != "" {
			s.bySub[sub] = append(s.bySub[sub], n)
		}
	}

	result.Value = s
	return result
}

// attach links a popped node under the node now on top of the stack, or
// records it as a root.
func attach(s *DocumentStructure, stack []*SectionNode, popped *SectionNode) {
	if len(stack) == 0 {
		if !containsNode(s.Roots, popped) {
			s.Roots = append(s.Roots, popped)
		}
		return
	}
	parent := stack[len(stack)-1]
	if !containsNode(parent.Children, popped) {
		parent.Children = append(parent.Children, popped)
	}
}

func containsNode(list []*SectionNode, n *SectionNode) bool {
	for _, x := range list {
		if x == n {
			return true
		}
	}
	return false
}

// BuildResolver adapts Build to the document resolver interface, storing
// the structure in the document attribute store.
type BuildResolver struct {
	builder *Builder
}

// NewBuildResolver constructs the document resolver form.
func NewBuildResolver() *BuildResolver { return &BuildResolver{builder: NewBuilder()} }

// ResolveDocument implements lnlp.DocumentResolver.
func (r *BuildResolver) ResolveDocument(d *lnlp.Document) []lnlp.Result[*DocumentStructure] {
	return []lnlp.Result[*DocumentStructure]{r.builder.Build(d)}
}
