package wikigraph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spanex/spanex/pkg/errors"
)

func TestInMemoryLookupIsCaseInsensitive(t *testing.T) {
	g := NewInMemory(
		Page{Title: "Deep Learning", Categories: []string{"Machine learning"}},
		Page{Title: "Go (programming language)"},
	)
	ctx := context.Background()

	p, err := g.PageByTitle(ctx, "deep learning")
	require.NoError(t, err)
	assert.Equal(t, "Deep Learning", p.Title)

	cats, err := g.Categories(ctx, "DEEP LEARNING")
	require.NoError(t, err)
	assert.Equal(t, []string{"Machine learning"}, cats)
}

func TestInMemoryTitlesSorted(t *testing.T) {
	g := NewInMemory(Page{Title: "Zebra"}, Page{Title: "Ant"})
	titles, err := g.Titles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Ant", "Zebra"}, titles)
}

func TestInMemoryPageNotFound(t *testing.T) {
	g := NewInMemory()
	_, err := g.PageByTitle(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodePageNotFound))
	assert.True(t, errors.IsNotFound(err))
}
