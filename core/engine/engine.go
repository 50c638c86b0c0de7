package engine

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/pthurston/nodeflow/core/archetype"
	"github.com/pthurston/nodeflow/core/graph"
	"github.com/pthurston/nodeflow/core/prompt"
	"github.com/pthurston/nodeflow/core/reconcile"
	"github.com/pthurston/nodeflow/core/schedule"
	"github.com/pthurston/nodeflow/providers/ai"
	"github.com/pthurston/nodeflow/providers/observability"
	"github.com/pthurston/nodeflow/providers/quota"
	"github.com/pthurston/nodeflow/providers/recorder"
)

// DefaultMaxConcurrency bounds per-wave source preparation workers.
const DefaultMaxConcurrency = 4

// Config tunes engine behavior. Zero values select defaults.
type Config struct {
	// MaxConcurrency bounds concurrent node preparation within a wave.
	MaxConcurrency int

	// DefaultModel is used when no node carries a model hint.
	DefaultModel string
}

// AdmissionGate is the quota collaborator: a pre-run check and a
// post-success debit. *quota.Gate satisfies it.
type AdmissionGate interface {
	Check(ctx context.Context, userID string) (quota.Decision, error)
	Debit(ctx context.Context, userID string, nodeCount int) error
}

// SourceFetcher retrieves the text behind URL-bearing nodes.
// *fetch.Fetcher satisfies it.
type SourceFetcher interface {
	Markdown(ctx context.Context, rawURL string) (string, error)
}

// Engine executes workflow runs end to end: normalize, schedule,
// classify, prepare, synthesize, invoke, reconcile, record. All
// collaborators are injected; the engine holds no global state.
type Engine struct {
	provider ai.Provider
	gate     AdmissionGate
	store    recorder.Store
	fetcher  SourceFetcher
	obs      observability.Observer
	cfg      Config
}

// New wires an Engine. gate, store and fetcher may be nil, disabling
// quota enforcement, run recording and URL fetching respectively; obs
// may be nil for silent operation.
func New(provider ai.Provider, gate AdmissionGate, store recorder.Store, fetcher SourceFetcher, obs observability.Observer, cfg Config) *Engine {
	if obs == nil {
		obs = observability.Noop{}
	}
	return &Engine{
		provider: provider,
		gate:     gate,
		store:    store,
		fetcher:  fetcher,
		obs:      obs,
		cfg:      cfg,
	}
}

// Request is one workflow run request.
type Request struct {
	// WorkflowID identifies the workflow; a fresh id is minted when empty.
	WorkflowID string

	// DisplayName is the user-facing workflow title. It feeds archetype
	// classification.
	DisplayName string

	// UserID is the authenticated caller, empty for anonymous runs.
	UserID string

	Nodes []graph.Node
	Edges []graph.Edge
}

// Result is the outcome of a successful run. Degraded results carry the
// raw narrative as Summary with an empty NodeResults map.
type Result struct {
	ExecutionID string
	WorkflowID  string

	Archetype   string
	ReportShape string

	Summary     string
	NodeResults map[string]json.RawMessage
	Degraded    bool
	Unmatched   int

	Model          string
	Usage          *ai.Usage
	QuotaRemaining int

	NodeCount int
	EdgeCount int
	WaveCount int
}

// Run executes one workflow request.
//
// Admission happens before any backend call; the quota debit happens
// only after the backend call succeeds, so cancelled and failed runs are
// never charged. Recording and debit failures are logged and swallowed:
// a run that produced a result is reported as a success regardless of
// bookkeeping trouble.
func (e *Engine) Run(ctx context.Context, req Request) (*Result, error) {
	executionID := ulid.Make().String()
	workflowID := req.WorkflowID
	if workflowID == "" {
		workflowID = uuid.NewString()
	}
	startedAt := time.Now()

	ctx, span := e.obs.StartSpan(ctx, "engine.run",
		observability.String(observability.AttrRunExecutionID, executionID),
		observability.String(observability.AttrRunWorkflowID, workflowID))
	defer span.End()

	g, err := graph.Normalize(req.Nodes, req.Edges)
	if err != nil {
		span.RecordError(err)
		return nil, newError(KindInvalidGraph, "normalize graph", err)
	}

	remaining := quota.UnmeteredRemaining
	if e.gate != nil {
		decision, err := e.gate.Check(ctx, req.UserID)
		if err != nil {
			span.RecordError(err)
			return nil, newError(KindUpstreamFailure, "quota check", err)
		}
		if !decision.Allowed {
			e.obs.Info(ctx, "run blocked by quota",
				observability.String(observability.AttrQuotaTier, string(decision.Tier)),
				observability.Int(observability.AttrQuotaRemaining, decision.Remaining))
			return nil, newError(KindQuotaExceeded, "monthly run quota exhausted", nil)
		}
		remaining = decision.Remaining
	}

	plan := schedule.Build(g)
	decision := archetype.Classify(g, req.DisplayName)

	span.SetAttributes(
		observability.String(observability.AttrRunArchetype, string(decision.Mode)),
		observability.Int(observability.AttrRunNodeCount, len(g.Nodes)),
		observability.Int(observability.AttrRunEdgeCount, len(g.Edges)),
		observability.Int(observability.AttrRunWaveCount, len(plan.Waves)))

	excerpts, err := e.prepareExcerpts(ctx, g, plan)
	if err != nil {
		span.RecordError(err)
		return nil, newError(KindUpstreamFailure, "prepare sources", err)
	}

	payload, err := prompt.Synthesize(g, plan, decision, req.DisplayName, excerpts)
	if err != nil {
		span.RecordError(err)
		return nil, newError(KindInvalidGraph, "synthesize prompt", err)
	}

	response, err := e.invoke(ctx, payload)
	if err != nil {
		span.RecordError(err)
		return nil, classifyInvokeError(err)
	}

	outcome := reconcile.Reconcile(response.Content, payload.Manifest, payload.AgentOrder)
	if outcome.Unmatched > 0 {
		e.obs.Warn(ctx, "result entries matched no node",
			observability.Int(observability.AttrRunUnmatched, outcome.Unmatched))
	}
	span.SetAttributes(observability.Int(observability.AttrRunUnmatched, outcome.Unmatched))

	result := &Result{
		ExecutionID:    executionID,
		WorkflowID:     workflowID,
		Archetype:      string(decision.Mode),
		ReportShape:    string(decision.ReportShape),
		Summary:        outcome.Summary,
		NodeResults:    outcome.NodeResults,
		Degraded:       outcome.Degraded,
		Unmatched:      outcome.Unmatched,
		Model:          response.Model,
		Usage:          response.Usage,
		QuotaRemaining: remaining,
		NodeCount:      len(g.Nodes),
		EdgeCount:      len(g.Edges),
		WaveCount:      len(plan.Waves),
	}

	// Bookkeeping runs on a detached context so a caller timeout firing
	// after the backend responded cannot lose the record or the debit.
	bookCtx := context.WithoutCancel(ctx)
	e.record(bookCtx, req, g, result, startedAt)
	if e.gate != nil {
		if err := e.gate.Debit(bookCtx, req.UserID, len(g.Nodes)); err != nil {
			e.obs.ErrorLog(ctx, "quota debit failed", observability.Error(err))
		}
	}

	return result, nil
}

// record persists the run and its node results, best effort.
func (e *Engine) record(ctx context.Context, req Request, g *graph.Graph, result *Result, startedAt time.Time) {
	if e.store == nil {
		return
	}

	status := recorder.StatusCompleted
	if result.Degraded {
		status = recorder.StatusDegraded
	}
	run := recorder.Run{
		ExecutionID: result.ExecutionID,
		WorkflowID:  result.WorkflowID,
		UserID:      req.UserID,
		Archetype:   result.Archetype,
		Status:      status,
		Summary:     result.Summary,
		NodeCount:   result.NodeCount,
		EdgeCount:   result.EdgeCount,
		WaveCount:   result.WaveCount,
		Unmatched:   result.Unmatched,
		Model:       result.Model,
		StartedAt:   startedAt,
		FinishedAt:  time.Now(),
	}
	if err := e.store.UpsertRun(ctx, run); err != nil {
		e.obs.ErrorLog(ctx, "run record failed", observability.Error(err))
		return
	}

	results := make([]recorder.NodeResult, 0, len(result.NodeResults))
	for nodeID, raw := range result.NodeResults {
		label := ""
		if n, ok := g.Node(nodeID); ok {
			label = n.Label
		}
		results = append(results, recorder.NodeResult{
			ExecutionID: result.ExecutionID,
			NodeID:      nodeID,
			Label:       label,
			Result:      raw,
		})
	}
	if err := e.store.InsertNodeResults(ctx, results); err != nil {
		e.obs.ErrorLog(ctx, "node result record failed", observability.Error(err))
	}
}

// classifyInvokeError maps provider errors onto the engine taxonomy.
func classifyInvokeError(err error) error {
	switch {
	case ai.IsAuthError(err):
		return newError(KindAuthConfig, "backend credentials rejected", err)
	case ai.IsThrottled(err):
		return newError(KindUpstreamThrottled, "backend rate limited", err)
	default:
		return newError(KindUpstreamFailure, "backend request failed", err)
	}
}
