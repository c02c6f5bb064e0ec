package matcher

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spanex/spanex/pkg/errors"
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

func spansOf(matches []types.Match) [][2]int {
	out := make([][2]int, len(matches))
	for i, m := range matches {
		out[i] = [2]int{m.Start, m.End}
	}
	return out
}

func TestFindMatchesSimpleSequence(t *testing.T) {
	e := New()
	require.NoError(t, e.Register(Pattern{
		ID:          "big-cat",
		Label:       "ANIMAL",
		Constraints: []Constraint{In(types.ChannelLower, "big"), In(types.ChannelLower, "cat")},
	}))

	doc := types.NewDocFromWords("the Big Cat sat on the big mat")
	matches, err := e.FindMatches(doc)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "big-cat", matches[0].PatternID)
	assert.Equal(t, "ANIMAL", matches[0].Label)
	assert.Equal(t, types.ChannelLower, matches[0].Channel)
	assert.Equal(t, [2]int{1, 3}, [2]int{matches[0].Start, matches[0].End})
}

func TestFindMatchesSingleToken(t *testing.T) {
	e := New()
	require.NoError(t, e.Register(Pattern{
		ID:          "nlp",
		Constraints: []Constraint{In(types.ChannelLower, "nlp")},
	}))

	matches, err := e.FindMatches(types.NewDocFromWords("I love NLP"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, [2]int{2, 3}, [2]int{matches[0].Start, matches[0].End})
}

func TestFindMatchesGreedyRepetition(t *testing.T) {
	e := New()
	require.NoError(t, e.Register(Pattern{
		ID: "adj-noun",
		Constraints: []Constraint{
			In(types.ChannelPOS, "ADJ").WithOp(OpOnePlus),
			In(types.ChannelPOS, "NOUN"),
		},
	}))

	doc := posDoc("DET", "ADJ", "ADJ", "NOUN", "VERB")
	matches, err := e.FindMatches(doc)
	require.NoError(t, err)
	// The run of adjectives is consumed greedily and the suffix occurrence
	// ending on the same token is not reported separately.
	assert.Equal(t, [][2]int{{1, 4}}, spansOf(matches))
}

func TestFindMatchesReportsAllPatternsOnTies(t *testing.T) {
	e := New()
	require.NoError(t, e.Register(
		Pattern{ID: "first", Constraints: []Constraint{In(types.ChannelLower, "deep"), In(types.ChannelLower, "learning")}},
		Pattern{ID: "second", Constraints: []Constraint{In(types.ChannelLower, "deep"), Any()}},
	))

	matches, err := e.FindMatches(types.NewDocFromWords("deep learning models"))
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "first", matches[0].PatternID)
	assert.Equal(t, "second", matches[1].PatternID)
	assert.Equal(t, [][2]int{{0, 2}, {0, 2}}, spansOf(matches))
}

func TestFindMatchesOverlappingPatterns(t *testing.T) {
	e := New()
	require.NoError(t, e.Register(
		Pattern{ID: "cs", Constraints: []Constraint{In(types.ChannelLower, "computer"), In(types.ChannelLower, "system")}},
		Pattern{ID: "se", Constraints: []Constraint{In(types.ChannelLower, "system"), In(types.ChannelLower, "engineer")}},
	))

	matches, err := e.FindMatches(types.NewDocFromWords("looking for a computer system engineer"))
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, [][2]int{{3, 5}, {4, 6}}, spansOf(matches))
	assert.Equal(t, "cs", matches[0].PatternID)
	assert.Equal(t, "se", matches[1].PatternID)
}

func TestFindMatchesMultipleOccurrences(t *testing.T) {
	e := New()
	require.NoError(t, e.Register(Pattern{
		ID:          "ab",
		Constraints: []Constraint{In(types.ChannelLower, "a"), In(types.ChannelLower, "b")},
	}))

	matches, err := e.FindMatches(types.NewDocFromWords("a b c a b a"))
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{0, 2}, {3, 5}}, spansOf(matches))
}

func TestFindMatchesOptionalPrefix(t *testing.T) {
	e := New()
	require.NoError(t, e.Register(Pattern{
		ID: "opt",
		Constraints: []Constraint{
			In(types.ChannelLower, "very").WithOp(OpZeroPlus),
			In(types.ChannelLower, "good"),
		},
	}))

	matches, err := e.FindMatches(types.NewDocFromWords("a very very good day"))
	require.NoError(t, err)
	// Suffix occurrences sharing the end token collapse into the longest one.
	assert.Equal(t, [][2]int{{1, 4}}, spansOf(matches))
}

func TestFindMatchesRange(t *testing.T) {
	e := New()
	require.NoError(t, e.Register(Pattern{
		ID: "digits",
		Constraints: []Constraint{
			In(types.ChannelIsDigit, "true").WithRange(2, 3),
		},
	}))

	matches, err := e.FindMatches(types.NewDocFromWords("12 7 42 x 9"))
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{0, 3}}, spansOf(matches))
}

func TestFindMatchesCrossChannel(t *testing.T) {
	e := New()
	require.NoError(t, e.Register(Pattern{
		ID: "big-noun",
		Constraints: []Constraint{
			In(types.ChannelLower, "big"),
			In(types.ChannelPOS, "NOUN"),
		},
	}))

	doc := types.NewDoc(
		types.Attrs{types.ChannelLower: "big", types.ChannelPOS: "ADJ"},
		types.Attrs{types.ChannelLower: "cat", types.ChannelPOS: "NOUN"},
		types.Attrs{types.ChannelLower: "big", types.ChannelPOS: "ADJ"},
		types.Attrs{types.ChannelLower: "run", types.ChannelPOS: "VERB"},
	)
	matches, err := e.FindMatches(doc)
	require.NoError(t, err)
	// Both channel fragments must agree on the span: "big run" fails the
	// pos side and is not a match.
	assert.Equal(t, [][2]int{{0, 2}}, spansOf(matches))
	assert.Equal(t, types.ChannelLower, matches[0].Channel)
}

func TestFindMatchesNegatedConstraint(t *testing.T) {
	e := New()
	require.NoError(t, e.Register(Pattern{
		ID: "not-the",
		Constraints: []Constraint{
			NotIn(types.ChannelLower, "the"),
			In(types.ChannelLower, "cat"),
		},
	}))

	matches, err := e.FindMatches(types.NewDocFromWords("the cat big cat"))
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{2, 4}}, spansOf(matches))
}

func TestFindMatchesValueRegex(t *testing.T) {
	e := New()
	require.NoError(t, e.Register(Pattern{
		ID: "versions",
		Constraints: []Constraint{
			Rx(types.ChannelLower, `v[0-9]+`),
		},
	}))

	matches, err := e.FindMatches(types.NewDocFromWords("release v12 and v7 but not vx"))
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{1, 2}, {3, 4}}, spansOf(matches))
}

func TestFindMatchesEncodingGap(t *testing.T) {
	e := New()
	require.NoError(t, e.Register(Pattern{
		ID:          "gap",
		Constraints: []Constraint{In(types.ChannelLower, "zebra")},
	}))

	matches, err := e.FindMatches(types.NewDocFromWords("no stripes here"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestFindMatchesEmptySetAndEmptyDoc(t *testing.T) {
	e := New()
	matches, err := e.FindMatches(types.NewDocFromWords("anything at all"))
	require.NoError(t, err)
	assert.Empty(t, matches)

	require.NoError(t, e.Register(Pattern{
		ID:          "p",
		Constraints: []Constraint{In(types.ChannelLower, "anything")},
	}))
	matches, err = e.FindMatches(types.NewDoc())
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestRegisterAllOrNothing(t *testing.T) {
	e := New()
	require.NoError(t, e.Register(Pattern{
		ID:          "good",
		Constraints: []Constraint{In(types.ChannelLower, "alpha")},
	}))

	err := e.Register(
		Pattern{ID: "also-good", Constraints: []Constraint{In(types.ChannelLower, "beta")}},
		Pattern{ID: "bad"},
	)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeCompileError))
	assert.Equal(t, 1, e.Len())

	// The engine keeps matching with the pre-batch set.
	matches, err := e.FindMatches(types.NewDocFromWords("alpha beta"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "good", matches[0].PatternID)
}

func TestReplaceSwapsEntireSet(t *testing.T) {
	e := New()
	require.NoError(t, e.Register(Pattern{
		ID:          "old",
		Constraints: []Constraint{In(types.ChannelLower, "alpha")},
	}))
	require.NoError(t, e.Replace(Pattern{
		ID:          "new",
		Constraints: []Constraint{In(types.ChannelLower, "beta")},
	}))
	assert.Equal(t, 1, e.Len())

	matches, err := e.FindMatches(types.NewDocFromWords("alpha beta"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "new", matches[0].PatternID)
}

func TestRegisterAssignsIDWhenEmpty(t *testing.T) {
	e := New()
	require.NoError(t, e.Register(Pattern{
		Constraints: []Constraint{In(types.ChannelLower, "x")},
	}))

	matches, err := e.FindMatches(types.NewDocFromWords("x"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.NotEmpty(t, matches[0].PatternID)
}

func TestFindMatchesStableOrdering(t *testing.T) {
	e := New()
	require.NoError(t, e.Register(
		Pattern{ID: "p0", Constraints: []Constraint{In(types.ChannelLower, "b")}},
		Pattern{ID: "p1", Constraints: []Constraint{In(types.ChannelLower, "a")}},
		Pattern{ID: "p2", Constraints: []Constraint{In(types.ChannelLower, "a"), In(types.ChannelLower, "b")}},
	))

	matches, err := e.FindMatches(types.NewDocFromWords("a b"))
	require.NoError(t, err)
	require.Len(t, matches, 3)
	// (start, end, registration order).
	assert.Equal(t, "p1", matches[0].PatternID)
	assert.Equal(t, "p2", matches[1].PatternID)
	assert.Equal(t, "p0", matches[2].PatternID)
}

func TestMatchesSatisfyTheirPatterns(t *testing.T) {
	patterns := []Pattern{
		{ID: "a", Constraints: []Constraint{In(types.ChannelPOS, "ADJ").WithOp(OpOnePlus), In(types.ChannelPOS, "NOUN")}},
		{ID: "b", Constraints: []Constraint{In(types.ChannelPOS, "DET").WithOp(OpOptional), In(types.ChannelPOS, "NOUN")}},
		{ID: "c", Constraints: []Constraint{Any(), In(types.ChannelPOS, "VERB")}},
	}
	e := New()
	require.NoError(t, e.Register(patterns...))

	doc := posDoc("DET", "ADJ", "NOUN", "VERB", "NOUN")
	matches, err := e.FindMatches(doc)
	require.NoError(t, err)
	require.NotEmpty(t, matches)

	byID := map[string]Pattern{}
	for _, p := range patterns {
		byID[p.ID] = p
	}
	for _, m := range matches {
		p := byID[m.PatternID]
		assert.True(t, p.Satisfies(doc, m.Span(), nil), "%s over [%d,%d)", m.PatternID, m.Start, m.End)
	}
}

func TestBackendsProduceIdenticalMatches(t *testing.T) {
	patterns := []Pattern{
		{ID: "a", Constraints: []Constraint{In(types.ChannelLower, "big").WithOp(OpOnePlus), In(types.ChannelLower, "cat")}},
		{ID: "b", Constraints: []Constraint{NotIn(types.ChannelLower, "the"), Any()}},
		{ID: "c", Constraints: []Constraint{Rx(types.ChannelLower, "c.t")}},
	}
	doc := types.NewDocFromWords("the big big cat sat")

	run := func(b Backend) []types.Match {
		e := New(WithBackend(b))
		require.NoError(t, e.Register(patterns...))
		matches, err := e.FindMatches(doc)
		require.NoError(t, err)
		return matches
	}

	assert.Equal(t, run(DefaultBackend()), run(NewStdBackend()))
}

func TestConcurrentMatchingDuringReplace(t *testing.T) {
	e := New()
	require.NoError(t, e.Register(Pattern{
		ID:          "p",
		Constraints: []Constraint{In(types.ChannelLower, "x")},
	}))
	doc := types.NewDocFromWords("x y x")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			_ = e.Replace(Pattern{
				ID:          "p",
				Constraints: []Constraint{In(types.ChannelLower, "x")},
			})
		}
	}()
	for i := 0; i < 50; i++ {
		matches, err := e.FindMatches(doc)
		require.NoError(t, err)
		assert.Len(t, matches, 2)
	}
	<-done
}
