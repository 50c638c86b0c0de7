// Package reconcile recovers structured results from free-form model
// output and maps each per-node entry back to a graph node id. Because
// language models frequently wrap JSON in prose or code fences, truncate it
// at the token limit, or drop identity fields, the package applies a
// layered recovery strategy — fence stripping, delimiter seeking, brace
// balancing, automatic JSON repair — before degrading to a narrative-only
// result. A run never fails solely because output could not be parsed.
package reconcile
