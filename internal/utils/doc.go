// Package utils contains small shared helpers: a JSON-over-HTTP POST
// wrapper used by AI backends and string truncation utilities used by
// logging and prompt assembly.
package utils
