package observability

// Semantic conventions for observability attributes. These constants define
// standard attribute names so the same key is used for the same fact across
// all engine components.

// --- Run attributes ---

const (
	// AttrRunExecutionID is the execution id minted for the run.
	AttrRunExecutionID = "run.execution_id"

	// AttrRunWorkflowID is the workflow the run belongs to.
	AttrRunWorkflowID = "run.workflow_id"

	// AttrRunArchetype is the classified workflow mode.
	AttrRunArchetype = "run.archetype"

	// AttrRunNodeCount is the number of nodes in the normalized graph.
	AttrRunNodeCount = "run.nodes"

	// AttrRunEdgeCount is the number of retained edges.
	AttrRunEdgeCount = "run.edges"

	// AttrRunWaveCount is the number of scheduled execution waves.
	AttrRunWaveCount = "run.waves"

	// AttrRunUnmatched is the count of AI result entries that matched no node.
	AttrRunUnmatched = "run.unmatched_results"
)

// --- LLM attributes ---

const (
	// AttrLLMProvider is the name of the AI backend (e.g. "gemini").
	AttrLLMProvider = "llm.provider"

	// AttrLLMModel is the model identifier.
	AttrLLMModel = "llm.model"

	// AttrLLMEndpoint is the API endpoint URL.
	AttrLLMEndpoint = "llm.endpoint"

	// AttrLLMFinishReason is the reason generation finished.
	AttrLLMFinishReason = "llm.finish_reason"

	// AttrLLMTokensTotal is the total token usage of the call.
	AttrLLMTokensTotal = "llm.tokens.total" // #nosec G101 -- Not a credential, token refers to LLM tokens
)

// --- HTTP attributes ---

const (
	AttrHTTPMethod     = "http.method"
	AttrHTTPURL        = "http.url"
	AttrHTTPStatusCode = "http.status_code"
)

// --- Quota attributes ---

const (
	// AttrQuotaTier is the resolved subscription tier.
	AttrQuotaTier = "quota.tier"

	// AttrQuotaRemaining is the remaining run count after admission.
	AttrQuotaRemaining = "quota.remaining"
)

// --- Span event names ---

const (
	EventInvokeStart    = "engine.invoke.start"
	EventInvokeEnd      = "engine.invoke.end"
	EventInvokeFallback = "engine.invoke.text_fallback"
	EventWaveStart      = "engine.wave.start"
	EventWaveEnd        = "engine.wave.end"
)
