package pipes

import (
	"context"
	"strings"

	"github.com/spanex/spanex/internal/logging"
	"github.com/spanex/spanex/matcher"
	"github.com/spanex/spanex/pkg/types"
	"github.com/spanex/spanex/resolver"
	"github.com/spanex/spanex/wikigraph"
)

// WikiPageX links documents to knowledge-graph pages: every page title
// becomes a case-insensitive token pattern, and matched spans carry the page
// title as label. Overlapping title hits reduce to the longest one.
type WikiPageX struct {
	graph  wikigraph.Graph
	engine *matcher.Engine
	log    logging.Logger
}

// WikiPageXOption configures a WikiPageX.
type WikiPageXOption func(*WikiPageX)

// WithWikiLogger injects the structured logger.
func WithWikiLogger(log logging.Logger) WikiPageXOption {
	return func(w *WikiPageX) { w.log = log }
}

// NewWikiPageX loads all page titles from the graph and compiles them into
// the pipe's engine. Titles are tokenized on whitespace and matched on the
// "lower" channel.
func NewWikiPageX(ctx context.Context, graph wikigraph.Graph, opts ...WikiPageXOption) (*WikiPageX, error) {
	w := &WikiPageX{graph: graph, log: logging.NewNop()}
	for _, o := range opts {
		o(w)
	}
	w.engine = matcher.New(matcher.WithLogger(w.log))

	titles, err := graph.Titles(ctx)
	if err != nil {
		return nil, err
	}
	var patterns []matcher.Pattern
	for _, title := range titles {
		words := strings.Fields(strings.ToLower(title))
		if len(words) == 0 {
			continue
		}
		cs := make([]matcher.Constraint, len(words))
		for i, word := range words {
			cs[i] = matcher.In(types.ChannelLower, word)
		}
		patterns = append(patterns, matcher.Pattern{ID: "wiki:" + title, Label: title, Constraints: cs})
	}
	if err := w.engine.Register(patterns...); err != nil {
		return nil, err
	}
	w.log.Debug("page titles compiled", logging.Int("titles", len(patterns)))
	return w, nil
}

// Pages returns the page spans found in the document, labeled with the page
// title, longest hit winning among overlaps.
func (w *WikiPageX) Pages(doc types.Doc) ([]types.Span, error) {
	matches, err := w.engine.FindMatches(doc)
	if err != nil {
		return nil, err
	}
	return resolver.Resolve(matches, resolver.Options{Mode: resolver.ModeLongestOnly})
}

// Page resolves a matched span's title against the graph.
func (w *WikiPageX) Page(ctx context.Context, span types.Span) (*wikigraph.Page, error) {
	return w.graph.PageByTitle(ctx, span.Label)
}
