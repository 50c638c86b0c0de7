// Package graph defines the canonical in-memory form of a user-authored
// workflow graph and the normalization step that produces it from raw
// canvas payloads.
//
// The normalizer is deliberately forgiving: the canvas does not guarantee a
// fully-wired or even consistent graph, so everything short of an empty
// node list is repaired rather than rejected.
package graph
