// Package engine orchestrates a workflow run end to end: graph
// normalization, wave scheduling, archetype classification, source
// preparation, prompt synthesis, one AI backend invocation, result
// reconciliation, and best-effort run recording. Admission against the
// monthly quota happens before the backend is called; the debit happens
// only after it succeeds.
package engine
