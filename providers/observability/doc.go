// Package observability provides the engine's logging and span vocabulary:
// an Observer interface carried through context, attribute constructors,
// semantic-convention keys, and a slog-backed implementation.
package observability
