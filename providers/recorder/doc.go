// Package recorder defines the run-history store: one record per
// workflow execution plus its per-node results. Implementations live in
// sqliterecorder and memrecorder.
package recorder
