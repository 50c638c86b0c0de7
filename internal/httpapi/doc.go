// Package httpapi exposes the engine over HTTP: run submission, run
// history, and a health probe. Engine failure kinds map one-to-one onto
// HTTP statuses so clients never parse error strings.
package httpapi
