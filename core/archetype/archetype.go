package archetype

import (
	"strings"

	"github.com/pthurston/nodeflow/core/graph"
)

// Mode is the classified "shape" of a workflow. Exactly one mode is chosen
// per run and it selects the prompt-synthesis strategy.
type Mode string

const (
	// ModeSimulation runs a multi-persona simulation: several agent nodes
	// acting as distinct personas over shared source material.
	ModeSimulation Mode = "simulation"

	// ModeMediaImpact analyzes the impact of a piece of content or media
	// (usually URL-sourced) across many agents or analysis steps.
	ModeMediaImpact Mode = "mediaImpact"

	// ModeAssistant treats the graph as a generic instruction-following
	// pipeline with no domain-specific reference material.
	ModeAssistant Mode = "assistant"

	// ModeStructured is the default: a report-style prompt built from
	// whatever reference/comparison/data/analysis nodes are present.
	ModeStructured Mode = "structured"
)

// SimulationKind distinguishes exam-style simulations from generic
// multi-agent ones.
type SimulationKind string

const (
	SimulationTest   SimulationKind = "test"
	SimulationAgents SimulationKind = "agents"
)

// ReportShape selects which structured report the default mode produces.
type ReportShape string

const (
	// ReportComparison is a deviation/comparison report, chosen when
	// comparator nodes are present.
	ReportComparison ReportShape = "comparison"

	// ReportEvidentiary is a domain-specific evidentiary report, chosen
	// when reference-dataset nodes are present.
	ReportEvidentiary ReportShape = "evidentiary"

	// ReportResearch is the general research report.
	ReportResearch ReportShape = "research"
)

// Decision is the classification outcome. SimulationKind is only
// meaningful when Mode is ModeSimulation; ReportShape only when Mode is
// ModeStructured.
type Decision struct {
	Mode           Mode
	SimulationKind SimulationKind
	ReportShape    ReportShape
}

// personaWords are role words that mark an agent label as persona-like.
var personaWords = []string{
	"persona", "student", "teacher", "doctor", "patient", "customer",
	"candidate", "examiner", "reviewer", "critic", "expert", "analyst",
	"buyer", "seller", "user", "moderator", "judge", "panelist",
}

// testWords mark a run display name as an exam/test simulation.
var testWords = []string{"test", "exam", "quiz", "simulation", "simulate", "mock"}

const (
	mediaAgentThreshold    = 5
	mediaAnalysisThreshold = 2
	personaAgentThreshold  = 2
)

// Classify chooses exactly one synthesis strategy for the graph, in
// priority order: simulation, media impact, general assistant, then the
// structured default. Classification is a pure function of the graph and
// display name; the same input always yields the same decision.
func Classify(g *graph.Graph, displayName string) Decision {
	var (
		agents         int
		personaAgents  int
		analysisNodes  int
		dataSources    int
		contentSources int
		comparators    int
		references     int
	)

	for _, n := range g.Nodes {
		switch n.Kind {
		case graph.KindAgent:
			agents++
			if containsAny(n.Label, personaWords) {
				personaAgents++
			}
		case graph.KindAnalysis:
			analysisNodes++
		case graph.KindDataSource:
			dataSources++
			if n.SourceURL() != "" || n.Content() != "" {
				contentSources++
			}
		case graph.KindComparator:
			comparators++
		case graph.KindReferenceDataset:
			references++
		}
	}

	nameIsTest := containsAny(displayName, testWords)

	// 1. Simulation: enough persona-labelled agents over a data source, or
	// an explicitly test-named run.
	if (personaAgents >= personaAgentThreshold && dataSources > 0) || nameIsTest {
		kind := SimulationAgents
		if nameIsTest {
			kind = SimulationTest
		}
		return Decision{Mode: ModeSimulation, SimulationKind: kind}
	}

	// 2. Media impact: content input fanned out to many agents or several
	// analysis steps.
	if contentSources >= 1 && (agents >= mediaAgentThreshold || analysisNodes >= mediaAnalysisThreshold) {
		return Decision{Mode: ModeMediaImpact}
	}

	// 3. General assistant: agents but nothing domain-specific to anchor a
	// structured report on.
	if comparators == 0 && references == 0 && agents >= 1 {
		return Decision{Mode: ModeAssistant}
	}

	// 4. Structured default, branched by which specialized kinds exist.
	shape := ReportResearch
	switch {
	case comparators > 0:
		shape = ReportComparison
	case references > 0:
		shape = ReportEvidentiary
	}
	return Decision{Mode: ModeStructured, ReportShape: shape}
}

func containsAny(s string, words []string) bool {
	lower := strings.ToLower(s)
	for _, w := range words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
