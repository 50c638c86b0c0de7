// Package prompt assembles the single mode-specific instruction payload
// sent to the AI backend for a run: archetype preamble, per-node context,
// capped source excerpts, the node-identity manifest, and the generation
// parameters tuned for the chosen archetype.
package prompt
