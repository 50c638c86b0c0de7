// Package schedule turns a normalized workflow graph into an ordered
// execution plan: waves of nodes that may run concurrently, followed by a
// barrier set of terminal output nodes.
package schedule
