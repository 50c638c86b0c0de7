package engine

import (
	"context"
	"sync"

	"github.com/pthurston/nodeflow/core/graph"
	"github.com/pthurston/nodeflow/core/schedule"
	"github.com/pthurston/nodeflow/providers/fetch"
	"github.com/pthurston/nodeflow/providers/observability"
)

// prepareExcerpts walks the plan wave by wave and produces the per-node
// source excerpt map the synthesizer embeds: inline node content when
// present, fetched-and-converted URL content otherwise. Video URLs are
// skipped here; they travel as multimodal references, not text.
//
// Nodes within a wave are prepared concurrently up to maxConcurrency,
// and each wave is a hard barrier: no node of wave N+1 starts before
// every node of wave N has finished. Fetch failures degrade the node to
// an empty excerpt with a warning rather than failing the run.
func (e *Engine) prepareExcerpts(ctx context.Context, g *graph.Graph, plan *schedule.Plan) (map[string]string, error) {
	obs := e.obs

	excerpts := make(map[string]string, len(g.Nodes))
	var mu sync.Mutex

	limit := e.cfg.MaxConcurrency
	if limit <= 0 {
		limit = DefaultMaxConcurrency
	}

	for i, wave := range plan.Waves {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		obs.Debug(ctx, observability.EventWaveStart,
			observability.Int("wave", i+1),
			observability.Int("nodes", len(wave)))

		sem := make(chan struct{}, limit)
		var wg sync.WaitGroup
		for _, id := range wave {
			node, ok := g.Node(id)
			if !ok {
				continue
			}
			wg.Add(1)
			sem <- struct{}{}
			go func(node graph.Node) {
				defer wg.Done()
				defer func() { <-sem }()

				excerpt := e.nodeExcerpt(ctx, node)
				if excerpt == "" {
					return
				}
				mu.Lock()
				excerpts[node.ID] = excerpt
				mu.Unlock()
			}(node)
		}
		wg.Wait()

		obs.Debug(ctx, observability.EventWaveEnd, observability.Int("wave", i+1))
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return excerpts, nil
}

// nodeExcerpt resolves one node's source text. Inline content wins over
// a URL; video URLs yield nothing here.
func (e *Engine) nodeExcerpt(ctx context.Context, node graph.Node) string {
	if content := node.Content(); content != "" {
		return content
	}

	rawURL := node.SourceURL()
	if rawURL == "" || e.fetcher == nil {
		return ""
	}
	if fetch.IsVideoURL(rawURL) {
		return ""
	}

	markdown, err := e.fetcher.Markdown(ctx, rawURL)
	if err != nil {
		e.obs.Warn(ctx, "source fetch failed, continuing without excerpt",
			observability.String("node_id", node.ID),
			observability.String(observability.AttrHTTPURL, rawURL),
			observability.Error(err))
		return ""
	}
	return markdown
}
