package graph

import (
	"errors"
	"sort"
	"strings"
)

// ErrInvalidGraph is returned when a run request arrives with no nodes at all.
// It is the only structural failure the normalizer reports; everything else
// the canvas can produce (dangling edges, duplicate labels, missing
// attributes) is repaired or tolerated instead.
var ErrInvalidGraph = errors.New("graph has no nodes")

// Kind identifies what role a node plays in a workflow. The canvas palette
// maps one template per kind; anything it does not recognize arrives as
// KindCustom.
type Kind string

const (
	KindDataSource       Kind = "dataSource"
	KindPreprocessing    Kind = "preprocessing"
	KindAnalysis         Kind = "analysis"
	KindAgent            Kind = "agent"
	KindComparator       Kind = "comparator"
	KindReferenceDataset Kind = "referenceDataset"
	KindOutput           Kind = "output"
	KindCustom           Kind = "custom"
)

// ParseKind maps the loosely-typed kind strings produced by canvas payloads
// onto the closed Kind set. Unknown strings become KindCustom rather than an
// error, because third-party templates ship node types the engine has never
// seen.
func ParseKind(s string) Kind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "datasource", "data_source", "data", "source", "input", "file":
		return KindDataSource
	case "preprocessing", "preprocess", "transform":
		return KindPreprocessing
	case "analysis", "analyzer", "analyze":
		return KindAnalysis
	case "agent", "aiagent", "ai_agent", "persona":
		return KindAgent
	case "comparator", "comparison", "compare":
		return KindComparator
	case "referencedataset", "reference_dataset", "reference", "dataset":
		return KindReferenceDataset
	case "output", "sink", "report":
		return KindOutput
	default:
		return KindCustom
	}
}

// Position is the node's 2D canvas coordinate. When edges are sparse the
// scheduler uses it as a dependency proxy, so it is part of the data model
// rather than a presentation detail.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is one unit of work in a user-authored workflow graph.
//
// ID is unique within a run and immutable; Label is a display name and is
// NOT guaranteed unique, which is why reconciliation treats it as a
// secondary identity key only. Attributes is the open key/value bag the
// canvas attaches to each node (prompt text, file content, URLs, model
// hints); use the typed accessors rather than reading keys directly.
type Node struct {
	ID         string         `json:"id"`
	Kind       Kind           `json:"kind"`
	Label      string         `json:"label"`
	Position   Position       `json:"position"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

func (n Node) attrString(keys ...string) string {
	for _, key := range keys {
		if v, ok := n.Attributes[key]; ok {
			if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
				return s
			}
		}
	}
	return ""
}

// Prompt returns the instruction text attached to the node, if any.
func (n Node) Prompt() string {
	return n.attrString("prompt", "instructions", "systemPrompt")
}

// Content returns inline file or text content attached to the node.
func (n Node) Content() string {
	return n.attrString("content", "fileContent", "text")
}

// SourceURL returns the URL the node points at, if any.
func (n Node) SourceURL() string {
	return n.attrString("url", "sourceUrl", "link")
}

// ModelHint returns the backend model override requested on the node.
func (n Node) ModelHint() string {
	return n.attrString("model", "modelHint")
}

// Edge is a directed connection between two nodes, by id.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Graph is the canonical, validated form of a run request's node/edge
// payload. Nodes preserve request order; byID gives O(1) lookup.
type Graph struct {
	Nodes []Node
	Edges []Edge

	byID map[string]int
}

// Normalize validates and flattens a raw node/edge payload.
//
// An empty node list is rejected with ErrInvalidGraph before any other work
// happens. Edges whose source or target id is not present among the nodes
// are dropped silently: upstream canvas state can transiently contain stale
// edges, so a dangling edge is a repair, not an error.
func Normalize(nodes []Node, edges []Edge) (*Graph, error) {
	if len(nodes) == 0 {
		return nil, ErrInvalidGraph
	}

	g := &Graph{
		Nodes: make([]Node, len(nodes)),
		byID:  make(map[string]int, len(nodes)),
	}
	copy(g.Nodes, nodes)
	for i, n := range g.Nodes {
		g.byID[n.ID] = i
	}

	g.Edges = make([]Edge, 0, len(edges))
	for _, e := range edges {
		if _, ok := g.byID[e.Source]; !ok {
			continue
		}
		if _, ok := g.byID[e.Target]; !ok {
			continue
		}
		g.Edges = append(g.Edges, e)
	}

	return g, nil
}

// Node returns the node with the given id.
func (g *Graph) Node(id string) (Node, bool) {
	i, ok := g.byID[id]
	if !ok {
		return Node{}, false
	}
	return g.Nodes[i], true
}

// NodesOfKind returns all nodes of the given kind, in request order.
func (g *Graph) NodesOfKind(kind Kind) []Node {
	var out []Node
	for _, n := range g.Nodes {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

// AgentIDs returns the ids of all Agent-kind nodes in a stable order:
// request order, which is the same order the prompt manifest uses. The
// reconciliation engine relies on this ordering for its positional
// last-resort fallback.
func (g *Graph) AgentIDs() []string {
	var ids []string
	for _, n := range g.Nodes {
		if n.Kind == KindAgent {
			ids = append(ids, n.ID)
		}
	}
	return ids
}

// SortedByPosition returns a copy of the given nodes ordered by the primary
// layout axis (X, ascending), breaking ties by Y and then by id so the
// result is fully deterministic.
func SortedByPosition(nodes []Node) []Node {
	out := make([]Node, len(nodes))
	copy(out, nodes)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Position.X != out[j].Position.X {
			return out[i].Position.X < out[j].Position.X
		}
		if out[i].Position.Y != out[j].Position.Y {
			return out[i].Position.Y < out[j].Position.Y
		}
		return out[i].ID < out[j].ID
	})
	return out
}
