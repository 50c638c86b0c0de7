// Package ai defines the provider-agnostic chat types and the Provider
// interface that AI backend implementations satisfy. Concrete backends live
// in subpackages (see gemini).
package ai
