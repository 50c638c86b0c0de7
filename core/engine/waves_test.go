package engine

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/pthurston/nodeflow/core/graph"
	"github.com/pthurston/nodeflow/core/schedule"
)

type fakeFetcher struct {
	mu      sync.Mutex
	fetched []string
	pages   map[string]string
	err     error
}

func (f *fakeFetcher) Markdown(_ context.Context, rawURL string) (string, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, rawURL)
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return f.pages[rawURL], nil
}

func normalized(t *testing.T, nodes []graph.Node, edges []graph.Edge) (*graph.Graph, *schedule.Plan) {
	t.Helper()
	g, err := graph.Normalize(nodes, edges)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	return g, schedule.Build(g)
}

func TestPrepareExcerpts_InlineContentWinsOverURL(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{}}
	eng := New(nil, nil, nil, fetcher, nil, Config{})

	g, plan := normalized(t, []graph.Node{
		{ID: "src", Kind: graph.KindDataSource, Attributes: map[string]any{
			"content": "inline wins",
			"url":     "https://example.com/doc",
		}},
		{ID: "a", Kind: graph.KindAgent},
	}, nil)

	excerpts, err := eng.prepareExcerpts(context.Background(), g, plan)
	if err != nil {
		t.Fatalf("prepareExcerpts() error = %v", err)
	}
	if excerpts["src"] != "inline wins" {
		t.Errorf("excerpt = %q", excerpts["src"])
	}
	if len(fetcher.fetched) != 0 {
		t.Errorf("fetched = %v, inline content should skip the fetch", fetcher.fetched)
	}
}

func TestPrepareExcerpts_FetchesURLSources(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://example.com/doc": "# Fetched\ncontent",
	}}
	eng := New(nil, nil, nil, fetcher, nil, Config{})

	g, plan := normalized(t, []graph.Node{
		{ID: "src", Kind: graph.KindDataSource, Attributes: map[string]any{"url": "https://example.com/doc"}},
		{ID: "a", Kind: graph.KindAgent},
	}, nil)

	excerpts, err := eng.prepareExcerpts(context.Background(), g, plan)
	if err != nil {
		t.Fatalf("prepareExcerpts() error = %v", err)
	}
	if excerpts["src"] != "# Fetched\ncontent" {
		t.Errorf("excerpt = %q", excerpts["src"])
	}
}

func TestPrepareExcerpts_VideoURLNotFetched(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{}}
	eng := New(nil, nil, nil, fetcher, nil, Config{})

	g, plan := normalized(t, []graph.Node{
		{ID: "vid", Kind: graph.KindDataSource, Attributes: map[string]any{"url": "https://youtu.be/abc"}},
		{ID: "a", Kind: graph.KindAgent},
	}, nil)

	excerpts, err := eng.prepareExcerpts(context.Background(), g, plan)
	if err != nil {
		t.Fatalf("prepareExcerpts() error = %v", err)
	}
	if len(fetcher.fetched) != 0 {
		t.Errorf("fetched = %v, video URLs travel as references", fetcher.fetched)
	}
	if _, ok := excerpts["vid"]; ok {
		t.Error("video node should have no text excerpt")
	}
}

func TestPrepareExcerpts_FetchFailureDegradesQuietly(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("origin down")}
	eng := New(nil, nil, nil, fetcher, nil, Config{})

	g, plan := normalized(t, []graph.Node{
		{ID: "src", Kind: graph.KindDataSource, Attributes: map[string]any{"url": "https://example.com/doc"}},
		{ID: "a", Kind: graph.KindAgent},
	}, nil)

	excerpts, err := eng.prepareExcerpts(context.Background(), g, plan)
	if err != nil {
		t.Fatalf("prepareExcerpts() error = %v, fetch failures must not fail the run", err)
	}
	if _, ok := excerpts["src"]; ok {
		t.Error("failed fetch should leave the node without an excerpt")
	}
}

func TestPrepareExcerpts_CancelledContext(t *testing.T) {
	eng := New(nil, nil, nil, nil, nil, Config{})

	g, plan := normalized(t, []graph.Node{
		{ID: "a", Kind: graph.KindAgent},
		{ID: "b", Kind: graph.KindAgent},
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := eng.prepareExcerpts(ctx, g, plan); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}
