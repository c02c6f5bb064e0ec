package pipes

import (
	"strings"

	"github.com/coregx/coregex"

	"github.com/spanex/spanex/pkg/types"
)

// safeAcronyms lists tokens whose trailing period never ends a sentence:
// figure and patent references, numbering, and two-digit enumerations.
var safeAcronyms = coregex.MustCompile(
	`^(?:tm|TM|Std|Nor|Fig|FIG|Figs|FIGS|pat|Pat|ser|Ser|No|Num|eg|[1-9][0-9])$`,
)

// terminal punctuation that can close a sentence.
var terminals = map[string]bool{".": true, "!": true, "?": true}

// closers are trailing tokens absorbed into the sentence after its terminal.
var closers = map[string]bool{`"`: true, "'": true, ")": true, "]": true, "”": true, "’": true}

// SentX splits a document into sentence spans with punctuation rules: a
// terminal token ends the sentence unless it is the dot of a known
// abbreviation, and closing quotes or brackets right after the terminal stay
// attached to the sentence they close.
type SentX struct {
	abbrevs map[string]bool
}

// NewSentX builds a splitter. Extra abbreviations (compared
// case-insensitively, without the trailing dot) extend the built-in set.
func NewSentX(abbrevs ...string) *SentX {
	s := &SentX{abbrevs: make(map[string]bool, len(abbrevs))}
	for _, a := range abbrevs {
		s.abbrevs[strings.ToLower(strings.TrimSuffix(a, "."))] = true
	}
	return s
}

// Split returns the sentence spans covering the whole document in order.
// An empty document yields no spans.
func (s *SentX) Split(doc types.Doc) []types.Span {
	n := doc.Len()
	var out []types.Span
	start := 0
	for i := 0; i < n; i++ {
		text := doc.Token(i).Attr(types.ChannelText)
		if !terminals[text] {
			continue
		}
		if text == "." && i > 0 && s.isAbbreviation(doc.Token(i-1).Attr(types.ChannelText)) {
			continue
		}
		end := i + 1
		for end < n && closers[doc.Token(end).Attr(types.ChannelText)] {
			end++
		}
		out = append(out, types.Span{Start: start, End: end})
		start = end
		i = end - 1
	}
	if start < n {
		out = append(out, types.Span{Start: start, End: n})
	}
	return out
}

func (s *SentX) isAbbreviation(prev string) bool {
	if safeAcronyms.MatchString(prev) {
		return true
	}
	return s.abbrevs[strings.ToLower(strings.TrimSuffix(prev, "."))]
}
