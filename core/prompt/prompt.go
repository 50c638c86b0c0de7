package prompt

import (
	"fmt"
	"strings"

	"github.com/pthurston/nodeflow/core/archetype"
	"github.com/pthurston/nodeflow/core/graph"
	"github.com/pthurston/nodeflow/core/schedule"
	"github.com/pthurston/nodeflow/internal/utils"
	"github.com/pthurston/nodeflow/providers/ai"
	"github.com/pthurston/nodeflow/providers/fetch"
)

// ExcerptCap is the hard cap, in bytes, on the total source-content excerpt
// embedded in a payload. Everything beyond it is cut, not summarized.
const ExcerptCap = 12 * 1024

// ManifestEntry is one row of the node-identity manifest: the id the AI
// backend must echo back, paired with the human label it will actually see
// in context. The manifest is what makes reconciliation possible.
type ManifestEntry struct {
	NodeID string
	Label  string
}

// Payload is the single instruction payload for one run.
type Payload struct {
	SystemPrompt string
	UserPrompt   string

	// VideoURI/VideoMimeType reference video content for multimodal
	// backends. Empty when the run has no recognized video source.
	VideoURI      string
	VideoMimeType string

	// Model is the backend model override requested on a node, if any.
	Model string

	GenerationConfig ai.GenerationConfig

	// Manifest lists every node the backend is asked to produce a result
	// for; AgentOrder is the ordered agent id list reconciliation uses for
	// its positional fallback.
	Manifest   []ManifestEntry
	AgentOrder []string
}

// Synthesize builds the mode-specific instruction payload for a classified
// graph. excerpts maps node id to the prepared source excerpt for that node
// (inline content or fetched URL content); wave preparation produces it.
func Synthesize(g *graph.Graph, plan *schedule.Plan, decision archetype.Decision, displayName string, excerpts map[string]string) (*Payload, error) {
	if g == nil || len(g.Nodes) == 0 {
		return nil, graph.ErrInvalidGraph
	}

	payload := &Payload{
		SystemPrompt:     preamble(decision, displayName),
		GenerationConfig: generationConfig(decision, len(g.AgentIDs())),
		AgentOrder:       g.AgentIDs(),
	}

	for _, n := range g.Nodes {
		if payload.Model == "" {
			payload.Model = n.ModelHint()
		}
		if expectsResult(n.Kind) {
			payload.Manifest = append(payload.Manifest, ManifestEntry{NodeID: n.ID, Label: n.Label})
		}
	}

	// Media-impact runs hand recognized video URLs to the backend directly
	// instead of embedding fetched text.
	if decision.Mode == archetype.ModeMediaImpact {
		for _, n := range g.NodesOfKind(graph.KindDataSource) {
			if mime := fetch.VideoMimeType(n.SourceURL()); mime != "" {
				payload.VideoURI = n.SourceURL()
				payload.VideoMimeType = mime
				break
			}
		}
	}

	var b strings.Builder
	writeGraphSection(&b, g, plan)
	writeExcerptSection(&b, g, excerpts)
	writeManifestSection(&b, payload.Manifest)
	payload.UserPrompt = b.String()

	return payload, nil
}

// expectsResult reports whether nodes of this kind get an entry in the
// manifest. Pure inputs feed context but produce no result of their own.
func expectsResult(kind graph.Kind) bool {
	switch kind {
	case graph.KindDataSource, graph.KindReferenceDataset:
		return false
	default:
		return true
	}
}

// preamble returns the role/task preamble for the chosen archetype.
func preamble(decision archetype.Decision, displayName string) string {
	var b strings.Builder

	switch decision.Mode {
	case archetype.ModeSimulation:
		if decision.SimulationKind == archetype.SimulationTest {
			b.WriteString("You are running an exam-style simulation. Each agent node below is a distinct participant taking the test described by the source material. Work through the material once per participant, staying strictly in character, and grade or evaluate each participant's performance independently.")
		} else {
			b.WriteString("You are running a multi-persona simulation. Each agent node below is a distinct persona. For every persona, react to the shared source material strictly in character; personas must not share conclusions or blend voices.")
		}
	case archetype.ModeMediaImpact:
		b.WriteString("You are a media impact analyst. Assess the attached content's likely reach, audience reaction, risks and opportunities. Every agent or analysis node below examines the same content from its own angle; keep the angles distinct.")
	case archetype.ModeAssistant:
		b.WriteString("You are a capable general-purpose assistant executing a user-composed pipeline. Follow each node's instructions in order and produce focused results per node.")
	case archetype.ModeStructured:
		switch decision.ReportShape {
		case archetype.ReportComparison:
			b.WriteString("You are preparing a deviation and comparison report. Compare the subject data against every reference and comparison node below, quantifying deviations where the material allows.")
		case archetype.ReportEvidentiary:
			b.WriteString("You are preparing a domain evidentiary report. Ground every claim in the reference datasets provided below and cite which dataset supports each finding.")
		default:
			b.WriteString("You are preparing a general research report over the data and analysis nodes below. Be rigorous about what the material does and does not support.")
		}
	}

	if displayName != "" {
		fmt.Fprintf(&b, " The user titled this workflow %q.", displayName)
	}
	return b.String()
}

// generationConfig selects sampling parameters per archetype: tight and
// deterministic for report shapes, looser and budget-scaled for
// simulations where each extra agent needs output room.
func generationConfig(decision archetype.Decision, agentCount int) ai.GenerationConfig {
	switch decision.Mode {
	case archetype.ModeSimulation:
		budget := 2048 + 1024*agentCount
		if budget > 16384 {
			budget = 16384
		}
		return ai.GenerationConfig{Temperature: 0.9, TopP: 0.95, MaxOutputTokens: budget}
	case archetype.ModeMediaImpact:
		return ai.GenerationConfig{Temperature: 0.4, TopP: 0.9, MaxOutputTokens: 6144}
	case archetype.ModeAssistant:
		return ai.GenerationConfig{Temperature: 0.7, TopP: 0.95, MaxOutputTokens: 4096}
	default:
		return ai.GenerationConfig{Temperature: 0.3, TopP: 0.9, MaxOutputTokens: 4096}
	}
}

// writeGraphSection describes each node and the execution order the
// scheduler derived, wave by wave.
func writeGraphSection(b *strings.Builder, g *graph.Graph, plan *schedule.Plan) {
	b.WriteString("## Workflow nodes\n\n")

	describe := func(id string) {
		n, ok := g.Node(id)
		if !ok {
			return
		}
		fmt.Fprintf(b, "- %s (%s)", displayLabel(n), n.Kind)
		if p := n.Prompt(); p != "" {
			fmt.Fprintf(b, ": %s", utils.CapString(p, 2048))
		}
		b.WriteString("\n")
	}

	for i, wave := range plan.Waves {
		fmt.Fprintf(b, "Stage %d:\n", i+1)
		for _, id := range wave {
			describe(id)
		}
	}
	if len(plan.Barrier) > 0 {
		b.WriteString("Final outputs (after all stages):\n")
		for _, id := range plan.Barrier {
			describe(id)
		}
	}
	b.WriteString("\n")
}

// writeExcerptSection embeds prepared source excerpts under the hard
// ExcerptCap. The cap applies to the section as a whole; a run with many
// sources shares the budget in node order.
func writeExcerptSection(b *strings.Builder, g *graph.Graph, excerpts map[string]string) {
	remaining := ExcerptCap
	wroteHeader := false

	for _, n := range g.Nodes {
		excerpt := excerpts[n.ID]
		if excerpt == "" || remaining <= 0 {
			continue
		}
		if !wroteHeader {
			b.WriteString("## Source material\n\n")
			wroteHeader = true
		}
		excerpt = utils.CapString(excerpt, remaining)
		remaining -= len(excerpt)
		fmt.Fprintf(b, "### %s\n%s\n\n", displayLabel(n), excerpt)
	}
}

// writeManifestSection emits the node-identity manifest and the structured
// output contract. The echo instruction is load-bearing: reconciliation
// maps results back to nodes by these exact ids.
func writeManifestSection(b *strings.Builder, manifest []ManifestEntry) {
	b.WriteString("## Required output\n\n")
	b.WriteString("Respond with a single JSON object, no prose outside it:\n")
	b.WriteString("{\"summary\": \"<markdown analysis report>\", \"nodeResults\": [{\"nodeId\": \"<id>\", \"nodeLabel\": \"<label>\", \"result\": \"<per-node result>\"}]}\n\n")
	b.WriteString("Produce one nodeResults entry for each of these nodes, echoing the nodeId EXACTLY as written:\n")
	for _, entry := range manifest {
		fmt.Fprintf(b, "- nodeId: %q, label: %q\n", entry.NodeID, entry.Label)
	}
}

func displayLabel(n graph.Node) string {
	if n.Label != "" {
		return n.Label
	}
	return n.ID
}
