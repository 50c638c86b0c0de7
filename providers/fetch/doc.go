// Package fetch retrieves URL-addressed source content for prompt
// assembly, converting HTML pages to markdown and recognizing video URLs
// that should be passed to the AI backend as multimodal references rather
// than fetched.
package fetch
