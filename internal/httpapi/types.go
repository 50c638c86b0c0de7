package httpapi

import (
	"encoding/json"

	"github.com/pthurston/nodeflow/core/graph"
)

// runRequest is the canvas-facing run payload: nodes and edges as the
// editor serializes them, plus optional workflow identity.
type runRequest struct {
	WorkflowID string        `json:"workflowId,omitempty"`
	Name       string        `json:"name,omitempty"`
	Nodes      []nodePayload `json:"nodes"`
	Edges      []edgePayload `json:"edges"`
}

// nodePayload mirrors one canvas node. Data is the open attribute bag;
// the display label travels inside it under "label".
type nodePayload struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Position graph.Position `json:"position"`
	Data     map[string]any `json:"data,omitempty"`
}

type edgePayload struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// toGraph converts the wire payload into engine node/edge slices.
func (r runRequest) toGraph() ([]graph.Node, []graph.Edge) {
	nodes := make([]graph.Node, 0, len(r.Nodes))
	for _, n := range r.Nodes {
		label := ""
		if v, ok := n.Data["label"].(string); ok {
			label = v
		}
		nodes = append(nodes, graph.Node{
			ID:         n.ID,
			Kind:       graph.ParseKind(n.Type),
			Label:      label,
			Position:   n.Position,
			Attributes: n.Data,
		})
	}

	edges := make([]graph.Edge, 0, len(r.Edges))
	for _, e := range r.Edges {
		edges = append(edges, graph.Edge{Source: e.Source, Target: e.Target})
	}
	return nodes, edges
}

type runResponse struct {
	Success        bool                       `json:"success"`
	WorkflowID     string                     `json:"workflowId"`
	ExecutionID    string                     `json:"executionId"`
	Result         string                     `json:"result"`
	PerNodeResults map[string]json.RawMessage `json:"perNodeResults,omitempty"`
	Metadata       runMetadata                `json:"metadata"`
}

type runMetadata struct {
	Archetype      string `json:"archetype"`
	ReportShape    string `json:"reportShape,omitempty"`
	Model          string `json:"model,omitempty"`
	Degraded       bool   `json:"degraded,omitempty"`
	Unmatched      int    `json:"unmatchedResults,omitempty"`
	NodeCount      int    `json:"nodeCount"`
	EdgeCount      int    `json:"edgeCount"`
	WaveCount      int    `json:"waveCount"`
	QuotaRemaining int    `json:"quotaRemaining"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Error   string `json:"error"`
}

type healthResponse struct {
	Status     string `json:"status"`
	Configured bool   `json:"configured"`
}

type historyResponse struct {
	Runs []historyRun `json:"runs"`
}

type historyRun struct {
	ExecutionID string `json:"executionId"`
	WorkflowID  string `json:"workflowId"`
	Archetype   string `json:"archetype"`
	Status      string `json:"status"`
	Model       string `json:"model,omitempty"`
	NodeCount   int    `json:"nodeCount"`
	StartedAt   string `json:"startedAt"`
	FinishedAt  string `json:"finishedAt"`
}
