package schedule

import (
	"sort"

	"github.com/pthurston/nodeflow/core/graph"
)

// clusterGap is the positional-fallback clustering threshold, in canvas
// layout units. Nodes whose X coordinates sit within one column pitch of
// each other are treated as the same layer. 220 matches the default column
// spacing the canvas uses when it auto-lays-out templates.
const clusterGap = 220.0

// Plan is the ordered execution plan for one run.
//
// Waves holds non-terminal node ids grouped into layers: every node in a
// wave may execute concurrently, and a wave must fully resolve before the
// next one starts. Barrier holds the terminal Output-kind nodes, eligible
// only after every wave has resolved.
type Plan struct {
	Waves   [][]string
	Barrier []string
}

// WaveCount returns the number of scheduled waves.
func (p *Plan) WaveCount() int { return len(p.Waves) }

// Build partitions the graph's nodes into an execution plan.
//
// Ordering is derived from edges when they are trustworthy: Kahn's
// algorithm levels the non-terminal subgraph so that upstream nodes land in
// earlier waves. The canvas does not guarantee a fully-wired graph (some
// templates ship without edges at all), so when the edge-derived subgraph
// has a cycle or leaves a non-terminal node unconnected, Build falls back
// to clustering nodes by canvas position. The fallback is a documented
// heuristic, not a correctness guarantee; both paths are deterministic for
// the same input.
func Build(g *graph.Graph) *Plan {
	plan := &Plan{}

	var nonTerminal []graph.Node
	for _, n := range g.Nodes {
		if n.Kind == graph.KindOutput {
			plan.Barrier = append(plan.Barrier, n.ID)
		} else {
			nonTerminal = append(nonTerminal, n)
		}
	}

	if len(nonTerminal) == 0 {
		return plan
	}
	if len(nonTerminal) == 1 {
		plan.Waves = [][]string{{nonTerminal[0].ID}}
		return plan
	}

	if levels, ok := topologicalLevels(nonTerminal, g.Edges); ok {
		plan.Waves = levels
		return plan
	}

	plan.Waves = positionalWaves(nonTerminal)
	return plan
}

// topologicalLevels attempts to level the non-terminal subgraph with Kahn's
// algorithm. It reports ok=false when the subgraph cannot be trusted as a
// dependency source: no edges at all, a node that participates in no edge,
// or a cycle.
func topologicalLevels(nodes []graph.Node, edges []graph.Edge) ([][]string, bool) {
	inSubgraph := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		inSubgraph[n.ID] = true
	}

	indegree := make(map[string]int, len(nodes))
	successors := make(map[string][]string)
	connected := make(map[string]bool, len(nodes))

	edgeCount := 0
	for _, e := range edges {
		if !inSubgraph[e.Source] || !inSubgraph[e.Target] {
			continue
		}
		successors[e.Source] = append(successors[e.Source], e.Target)
		indegree[e.Target]++
		connected[e.Source] = true
		connected[e.Target] = true
		edgeCount++
	}

	if edgeCount == 0 {
		return nil, false
	}
	for _, n := range nodes {
		if !connected[n.ID] {
			return nil, false
		}
	}

	// Seed with the roots, in request order for determinism.
	var frontier []string
	for _, n := range nodes {
		if indegree[n.ID] == 0 {
			frontier = append(frontier, n.ID)
		}
	}

	var levels [][]string
	scheduled := 0
	for len(frontier) > 0 {
		sort.Strings(frontier)
		levels = append(levels, frontier)
		scheduled += len(frontier)

		var next []string
		for _, id := range frontier {
			for _, succ := range successors[id] {
				indegree[succ]--
				if indegree[succ] == 0 {
					next = append(next, succ)
				}
			}
		}
		frontier = next
	}

	if scheduled != len(nodes) {
		// Leftover nodes mean a cycle.
		return nil, false
	}
	return levels, true
}

// positionalWaves groups nodes into waves by canvas position: sort on the
// primary layout axis and start a new wave whenever the gap between
// consecutive X coordinates exceeds clusterGap.
func positionalWaves(nodes []graph.Node) [][]string {
	sorted := graph.SortedByPosition(nodes)

	var waves [][]string
	current := []string{sorted[0].ID}
	prevX := sorted[0].Position.X

	for _, n := range sorted[1:] {
		if n.Position.X-prevX > clusterGap {
			waves = append(waves, current)
			current = nil
		}
		current = append(current, n.ID)
		prevX = n.Position.X
	}
	return append(waves, current)
}
