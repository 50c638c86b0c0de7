package reconcile

import (
	"encoding/json"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/pthurston/nodeflow/core/prompt"
)

// Outcome is the reconciled result of one AI response.
//
// Degraded marks a response whose structured payload could not be parsed
// even after repair; the run still succeeds with the raw text as summary.
// Unmatched counts result entries that could not be mapped to any manifest
// node — they are dropped, not errors, but callers should surface the count
// to operators.
type Outcome struct {
	Summary     string
	NodeResults map[string]json.RawMessage
	Degraded    bool
	Unmatched   int
}

// resultArrayKeys are the field names under which backends have been
// observed to return the per-node result array.
var resultArrayKeys = []string{"nodeResults", "perNodeResults", "results", "nodes"}

// idKeys and labelKeys are the identity field spellings backends use on
// individual result entries.
var (
	idKeys    = []string{"nodeId", "node_id", "id"}
	labelKeys = []string{"nodeLabel", "node_label", "label", "name"}
	valueKeys = []string{"result", "output", "analysis", "response", "content"}
)

// Reconcile converts raw model text into a narrative summary plus a
// per-node result map keyed by graph node id.
//
// Recovery steps run in order, each a fallback for the previous: strip a
// wrapping code fence, seek the first object delimiter, repair truncated
// output by balancing braces, then parse — with one jsonrepair-assisted
// retry. Parse failure is non-fatal: the outcome degrades to the raw text
// as summary with an empty result map.
//
// Result entries map to nodes by, in precedence order: exact node-id match
// against the manifest, exact node-label match, and — for agent nodes only —
// the entry's positional index within agentOrder. Entries matching none are
// dropped and counted. Reconciliation is deterministic for the same raw
// text and manifest order.
func Reconcile(raw string, manifest []prompt.ManifestEntry, agentOrder []string) Outcome {
	outcome := Outcome{NodeResults: map[string]json.RawMessage{}}

	text := stripFence(strings.TrimSpace(raw))

	if !strings.HasPrefix(text, "{") {
		if idx := strings.Index(text, "{"); idx >= 0 {
			text = text[idx:]
		}
	}
	text = balanceBraces(text)

	envelope, ok := parseEnvelope(text)
	if !ok {
		outcome.Summary = strings.TrimSpace(raw)
		outcome.Degraded = true
		return outcome
	}

	if summary, ok := envelope["summary"].(string); ok && summary != "" {
		outcome.Summary = summary
	} else {
		outcome.Summary = strings.TrimSpace(raw)
	}

	entries := resultEntries(envelope)
	if len(entries) == 0 {
		return outcome
	}

	manifestIDs := make(map[string]bool, len(manifest))
	labelToID := make(map[string]string, len(manifest))
	for _, m := range manifest {
		manifestIDs[m.NodeID] = true
		// First manifest entry wins for duplicate labels; labels are not
		// guaranteed unique.
		if _, exists := labelToID[m.Label]; !exists && m.Label != "" {
			labelToID[m.Label] = m.NodeID
		}
	}

	for i, entry := range entries {
		nodeID := matchEntry(entry, i, manifestIDs, labelToID, agentOrder, outcome.NodeResults)
		if nodeID == "" {
			outcome.Unmatched++
			continue
		}
		outcome.NodeResults[nodeID] = entryValue(entry)
	}

	return outcome
}

// stripFence removes a markdown code fence wrapping the entire payload.
func stripFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	body := text[3:]
	// Tolerate a language tag on the opening fence.
	if idx := strings.IndexByte(body, '\n'); idx >= 0 {
		firstLine := strings.TrimSpace(body[:idx])
		if len(firstLine) <= 10 && !strings.ContainsAny(firstLine, "{}") {
			body = body[idx+1:]
		}
	}
	body = strings.TrimSuffix(strings.TrimSpace(body), "```")
	return strings.TrimSpace(body)
}

// balanceBraces appends the minimal closing sequence to output truncated by
// the backend's token limit: the trailing result array first when it is
// open, then the object braces. Balanced input passes through untouched.
func balanceBraces(text string) string {
	opens := strings.Count(text, "{")
	closes := strings.Count(text, "}")
	if opens <= closes {
		return text
	}

	hasArrayKey := false
	for _, key := range resultArrayKeys {
		if strings.Contains(text, `"`+key+`"`) {
			hasArrayKey = true
			break
		}
	}
	if hasArrayKey && strings.Count(text, "[") > strings.Count(text, "]") {
		text += "]"
	}
	return text + strings.Repeat("}", opens-closes)
}

// parseEnvelope unmarshals the response envelope, retrying once through
// jsonrepair. Models emit unquoted keys, single quotes and trailing commas
// often enough that the repair pass earns its keep.
func parseEnvelope(text string) (map[string]any, bool) {
	var envelope map[string]any
	if err := json.Unmarshal([]byte(text), &envelope); err == nil {
		return envelope, true
	}

	repaired, err := jsonrepair.JSONRepair(text)
	if err != nil {
		return nil, false
	}
	if err := json.Unmarshal([]byte(repaired), &envelope); err != nil {
		return nil, false
	}
	return envelope, true
}

// resultEntries pulls the per-node result array out of the envelope, under
// whichever key the backend chose.
func resultEntries(envelope map[string]any) []map[string]any {
	for _, key := range resultArrayKeys {
		arr, ok := envelope[key].([]any)
		if !ok {
			continue
		}
		var entries []map[string]any
		for _, item := range arr {
			if entry, ok := item.(map[string]any); ok {
				entries = append(entries, entry)
			}
		}
		return entries
	}
	return nil
}

// matchEntry resolves one result entry to a node id, or "" when nothing
// matches. assigned is consulted so the positional fallback never
// overwrites an identity-based match.
func matchEntry(entry map[string]any, index int, manifestIDs map[string]bool, labelToID map[string]string, agentOrder []string, assigned map[string]json.RawMessage) string {
	if id := firstString(entry, idKeys); id != "" && manifestIDs[id] {
		return id
	}

	if label := firstString(entry, labelKeys); label != "" {
		if id, ok := labelToID[strings.TrimSpace(label)]; ok {
			return id
		}
	}

	// Last resort: some backends drop identity fields under token
	// pressure, but keep agent results in manifest order.
	if index < len(agentOrder) {
		id := agentOrder[index]
		if _, taken := assigned[id]; !taken {
			return id
		}
	}

	return ""
}

// entryValue extracts the payload of a result entry: the first recognized
// value field, or the whole entry when the backend inlined everything.
func entryValue(entry map[string]any) json.RawMessage {
	for _, key := range valueKeys {
		if v, ok := entry[key]; ok {
			if encoded, err := json.Marshal(v); err == nil {
				return encoded
			}
		}
	}
	encoded, err := json.Marshal(entry)
	if err != nil {
		return json.RawMessage(`null`)
	}
	return encoded
}

func firstString(entry map[string]any, keys []string) string {
	for _, key := range keys {
		if s, ok := entry[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
