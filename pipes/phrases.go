package pipes

import (
	"sort"

	"github.com/spanex/spanex/matcher"
	"github.com/spanex/spanex/pkg/types"
)

// PhraseX extracts a named collection of phrase spans from a pattern set.
// Matches are walked in document order and a match is dropped when a kept
// phrase already reaches past its end, so nested sub-phrases collapse into
// the enclosing one.
type PhraseX struct {
	name   string
	engine *matcher.Engine
}

// NewPhraseX builds a phrase extractor from the given constraint sequences.
func NewPhraseX(name string, patterns [][]matcher.Constraint, opts ...matcher.Option) (*PhraseX, error) {
	e := matcher.New(opts...)
	ps := make([]matcher.Pattern, len(patterns))
	for i, cs := range patterns {
		ps[i] = matcher.Pattern{Label: name, Constraints: cs}
	}
	if err := e.Register(ps...); err != nil {
		return nil, err
	}
	return &PhraseX{name: name, engine: e}, nil
}

// Name returns the collection name carried on every extracted span.
func (p *PhraseX) Name() string { return p.name }

// Phrases returns the extracted spans ordered by start, longest first among
// equal starts.
func (p *PhraseX) Phrases(doc types.Doc) ([]types.Span, error) {
	matches, err := p.engine.FindMatches(doc)
	if err != nil {
		return nil, err
	}
	var out []types.Span
	lastEnd := 0
	for _, m := range matches {
		if lastEnd >= m.End {
			continue
		}
		lastEnd = m.End
		out = append(out, types.Span{Start: m.Start, End: m.End, Label: p.name})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].Len() > out[j].Len()
	})
	return out, nil
}

// NounPhrasePatterns is the built-in noun-phrase pattern set: an optional
// run of modifiers, an optional connective, then the nominal head run.
func NounPhrasePatterns() [][]matcher.Constraint {
	return [][]matcher.Constraint{{
		matcher.In(types.ChannelPOS, "ADJ", "ADV", "DET", "NUM", "PROPN").WithOp(matcher.OpZeroPlus),
		matcher.In(types.ChannelPOS, "ADP", "CONJ", "CCONJ").WithOp(matcher.OpOptional),
		matcher.In(types.ChannelPOS, "ADJ", "ADP", "ADV", "NOUN", "NUM", "PRON", "PROPN").WithOp(matcher.OpOnePlus),
	}}
}

// VerbPhrasePatterns is the built-in verb-phrase pattern set: one run of
// verbal material including auxiliaries, particles, and adverbs.
func VerbPhrasePatterns() [][]matcher.Constraint {
	return [][]matcher.Constraint{{
		matcher.In(types.ChannelPOS, "ADV", "AUX", "PART", "VERB").WithOp(matcher.OpOnePlus),
	}}
}

// NewNounPhraseX builds a PhraseX over the built-in noun-phrase patterns.
func NewNounPhraseX(opts ...matcher.Option) (*PhraseX, error) {
	return NewPhraseX("noun_phrases", NounPhrasePatterns(), opts...)
}

// NewVerbPhraseX builds a PhraseX over the built-in verb-phrase patterns.
func NewVerbPhraseX(opts ...matcher.Option) (*PhraseX, error) {
	return NewPhraseX("verb_phrases", VerbPhrasePatterns(), opts...)
}
