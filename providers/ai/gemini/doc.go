// Package gemini implements the ai.Provider interface for Google's Gemini
// API, including URI-referenced video content via fileData parts.
package gemini
