package pipes

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spanex/spanex/matcher"
	"github.com/spanex/spanex/pkg/types"
)

func posDoc(tags ...string) *types.SimpleDoc {
	tokens := make([]types.Attrs, len(tags))
	for i, tag := range tags {
		tokens[i] = types.Attrs{
			types.ChannelText: "w" + strconv.Itoa(i),
			types.ChannelPOS:  tag,
		}
	}
	return types.NewDoc(tokens...)
}

func TestNounPhraseX(t *testing.T) {
	p, err := NewNounPhraseX()
	require.NoError(t, err)
	assert.Equal(t, "noun_phrases", p.Name())

	// "the big cat sat on the mat"
	doc := posDoc("DET", "ADJ", "NOUN", "VERB", "ADP", "DET", "NOUN")
	phrases, err := p.Phrases(doc)
	require.NoError(t, err)
	assert.Equal(t, []types.Span{
		{Start: 0, End: 3, Label: "noun_phrases"},
		{Start: 4, End: 5, Label: "noun_phrases"},
		{Start: 5, End: 7, Label: "noun_phrases"},
	}, phrases)
}

func TestVerbPhraseX(t *testing.T) {
	p, err := NewVerbPhraseX()
	require.NoError(t, err)

	// "it has been running quickly since"
	doc := posDoc("PRON", "AUX", "AUX", "VERB", "ADV", "SCONJ")
	phrases, err := p.Phrases(doc)
	require.NoError(t, err)
	assert.Equal(t, []types.Span{{Start: 1, End: 5, Label: "verb_phrases"}}, phrases)
}

func TestPhraseXDropsCoveredMatches(t *testing.T) {
	p, err := NewPhraseX("pairs", [][]matcher.Constraint{
		{matcher.In(types.ChannelLower, "a"), matcher.In(types.ChannelLower, "b"), matcher.In(types.ChannelLower, "c")},
		{matcher.In(types.ChannelLower, "b"), matcher.In(types.ChannelLower, "c")},
		{matcher.In(types.ChannelLower, "c"), matcher.In(types.ChannelLower, "d")},
	})
	require.NoError(t, err)

	phrases, err := p.Phrases(types.NewDocFromWords("a b c d"))
	require.NoError(t, err)
	// "b c" ends inside the kept "a b c" and is dropped; "c d" reaches
	// further and stays.
	assert.Equal(t, []types.Span{
		{Start: 0, End: 3, Label: "pairs"},
		{Start: 2, End: 4, Label: "pairs"},
	}, phrases)
}

func TestPhraseXEmptyDoc(t *testing.T) {
	p, err := NewNounPhraseX()
	require.NoError(t, err)
	phrases, err := p.Phrases(types.NewDoc())
	require.NoError(t, err)
	assert.Empty(t, phrases)
}
