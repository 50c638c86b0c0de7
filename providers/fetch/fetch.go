package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

const (
	// DefaultTimeout is the default per-fetch timeout.
	DefaultTimeout = 20 * time.Second
	// MaxBodySize caps the response body. Fetched content feeds a
	// token-budgeted prompt, so 2MB of HTML is already far more than the
	// synthesizer will keep.
	MaxBodySize = 2 * 1024 * 1024
	// defaultUserAgent identifies the engine to origin servers.
	defaultUserAgent = "nodeflow-engine/1.0"
)

// Fetcher retrieves the content behind URL-bearing data-source nodes and
// converts HTML to markdown so it can be embedded in a prompt excerpt.
type Fetcher struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
}

// New creates a Fetcher with the default client and timeout.
func New() *Fetcher {
	return &Fetcher{
		client: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects (>10)")
				}
				return nil
			},
		},
		timeout:   DefaultTimeout,
		userAgent: defaultUserAgent,
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func (f *Fetcher) WithHTTPClient(client *http.Client) *Fetcher {
	f.client = client
	return f
}

// WithTimeout overrides the per-fetch timeout.
func (f *Fetcher) WithTimeout(timeout time.Duration) *Fetcher {
	f.timeout = timeout
	return f
}

// Markdown fetches rawURL and returns its content as markdown. Partial
// URLs are normalised by prepending "https://". Non-HTML content types are
// returned as-is. The body is capped at MaxBodySize and the call respects
// context cancellation.
func (f *Fetcher) Markdown(ctx context.Context, rawURL string) (string, error) {
	target := strings.TrimSpace(rawURL)
	if target == "" {
		return "", fmt.Errorf("URL cannot be empty")
	}
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		target = "https://" + target
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("request timeout or canceled: %w", err)
		}
		return "", fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize))
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "html") {
		return string(body), nil
	}

	markdown, err := htmltomarkdown.ConvertString(string(body))
	if err != nil {
		return "", fmt.Errorf("failed to convert HTML to markdown: %w", err)
	}
	return markdown, nil
}

// videoHosts are URL hosts whose links the Gemini backend can ingest
// directly as fileData references.
var videoHosts = []string{"youtube.com", "www.youtube.com", "m.youtube.com", "youtu.be"}

// videoExtensions are file extensions treated as directly-referenced video.
var videoExtensions = map[string]string{
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".mov":  "video/quicktime",
}

// IsVideoURL reports whether rawURL points at video content the AI backend
// can consume as a multimodal reference instead of fetched text.
func IsVideoURL(rawURL string) bool {
	return VideoMimeType(rawURL) != ""
}

// VideoMimeType returns the MIME type to declare for a video URL, or ""
// when the URL is not recognized as video.
func VideoMimeType(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return ""
	}

	host := strings.ToLower(u.Host)
	for _, vh := range videoHosts {
		if host == vh {
			return "video/*"
		}
	}

	if mime, ok := videoExtensions[strings.ToLower(path.Ext(u.Path))]; ok {
		return mime
	}
	return ""
}
