// Package wikigraph defines the boundary to an external knowledge graph of
// encyclopedia pages. The library only looks pages up by title; building and
// maintaining the graph happens elsewhere.
package wikigraph

import (
	"context"
	"sort"
	"strings"

	"github.com/spanex/spanex/pkg/errors"
)

// Page is one knowledge-graph page.
type Page struct {
	Title      string
	Categories []string
}

// Graph is the lookup surface the annotation pipes consume. Titles feeds the
// title matcher; PageByTitle and Categories resolve a hit. Title comparison
// is case-insensitive on every implementation.
type Graph interface {
	Titles(ctx context.Context) ([]string, error)
	PageByTitle(ctx context.Context, title string) (*Page, error)
	Categories(ctx context.Context, title string) ([]string, error)
}

// InMemory is a map-backed Graph for tests and small fixed page sets.
type InMemory struct {
	pages map[string]*Page
}

// NewInMemory builds an InMemory graph from the given pages.
func NewInMemory(pages ...Page) *InMemory {
	g := &InMemory{pages: make(map[string]*Page, len(pages))}
	for i := range pages {
		p := pages[i]
		g.pages[strings.ToLower(p.Title)] = &p
	}
	return g
}

func (g *InMemory) Titles(ctx context.Context) ([]string, error) {
	out := make([]string, 0, len(g.pages))
	for _, p := range g.pages {
		out = append(out, p.Title)
	}
	sort.Strings(out)
	return out, nil
}

func (g *InMemory) PageByTitle(ctx context.Context, title string) (*Page, error) {
	p, ok := g.pages[strings.ToLower(title)]
	if !ok {
		return nil, errors.New(errors.CodePageNotFound, "page not found").WithDetail(title)
	}
	return p, nil
}

func (g *InMemory) Categories(ctx context.Context, title string) ([]string, error) {
	p, err := g.PageByTitle(ctx, title)
	if err != nil {
		return nil, err
	}
	return p.Categories, nil
}
