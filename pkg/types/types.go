// Package types defines the data model shared between the matching engine,
// the overlap resolver, and the annotation pipes: tokens, documents, spans,
// and matches. The token sequence itself is owned by the host pipeline; this
// package only describes the read-only view the library consumes.
package types

import "strings"

// Well-known attribute channel names. A channel is a named axis used to
// encode tokens into a matchable alphabet; pipelines may expose any number
// of custom channels beyond these.
const (
	ChannelText    = "text"
	ChannelLower   = "lower"
	ChannelNorm    = "norm"
	ChannelLemma   = "lemma"
	ChannelPOS     = "pos"
	ChannelTag     = "tag"
	ChannelIsAlpha = "is_alpha"
	ChannelIsDigit = "is_digit"
	ChannelIsPunct = "is_punct"
)

// Token is a read-only view of one token in a document. Implementations are
// owned by the host pipeline; the library never mutates them.
type Token interface {
	// Index returns the token's stable position in the document.
	Index() int

	// Attr returns the token's value on the named channel, or "" when the
	// pipeline does not populate that channel. Boolean attributes are
	// reported as "true" / "false".
	Attr(channel string) string
}

// Doc is a read-only ordered token sequence. An empty document is valid and
// produces zero matches everywhere, never an error.
type Doc interface {
	Len() int
	Token(i int) Token
}

// Span is a contiguous, end-exclusive range of token indices, optionally
// carrying a label.
type Span struct {
	Start int
	End   int
	Label string
}

// Len returns the number of tokens covered by the span.
func (s Span) Len() int { return s.End - s.Start }

// Overlaps reports whether the two spans share at least one token index.
func (s Span) Overlaps(o Span) bool { return s.Start < o.End && o.Start < s.End }

// Contains reports whether o lies fully inside s.
func (s Span) Contains(o Span) bool { return s.Start <= o.Start && o.End <= s.End }

// Triple returns the span as a (start, end, label) presentation triple.
func (s Span) Triple() (int, int, string) { return s.Start, s.End, s.Label }

// Match is one found occurrence of a pattern: which pattern, where, and on
// which channel it was anchored. Matches are ephemeral, produced per run.
type Match struct {
	PatternID string
	Label     string
	Start     int
	End       int
	Channel   string

	// Order is the registration order of the originating pattern. It is the
	// final tie-breaker everywhere determinism is required.
	Order int
}

// Span returns the match as a labeled span.
func (m Match) Span() Span { return Span{Start: m.Start, End: m.End, Label: m.Label} }

// Attrs is a plain attribute map backing SimpleToken.
type Attrs map[string]string

// SimpleToken is a map-backed Token implementation for tests, the CLI, and
// hosts without a richer pipeline. The "lower" channel is derived from
// "text" when absent.
type SimpleToken struct {
	idx   int
	attrs Attrs
}

func (t SimpleToken) Index() int { return t.idx }

func (t SimpleToken) Attr(channel string) string {
	if v, ok := t.attrs[channel]; ok {
		return v
	}
	if channel == ChannelLower {
		return strings.ToLower(t.attrs[ChannelText])
	}
	return ""
}

// SimpleDoc is a slice-backed Doc implementation.
type SimpleDoc struct {
	tokens []SimpleToken
}

func (d *SimpleDoc) Len() int          { return len(d.tokens) }
func (d *SimpleDoc) Token(i int) Token { return d.tokens[i] }

// NewDoc builds a SimpleDoc from per-token attribute maps.
func NewDoc(tokens ...Attrs) *SimpleDoc {
	d := &SimpleDoc{tokens: make([]SimpleToken, len(tokens))}
	for i, attrs := range tokens {
		if attrs == nil {
			attrs = Attrs{}
		}
		d.tokens[i] = SimpleToken{idx: i, attrs: attrs}
	}
	return d
}

// NewDocFromWords builds a SimpleDoc by splitting text on whitespace. Each
// token carries "text", derived "lower", and the basic boolean channels.
// Intended for the CLI and tests; real pipelines supply their own Doc.
func NewDocFromWords(text string) *SimpleDoc {
	words := strings.Fields(text)
	tokens := make([]Attrs, len(words))
	for i, w := range words {
		tokens[i] = Attrs{
			ChannelText:    w,
			ChannelLower:   strings.ToLower(w),
			ChannelIsAlpha: boolAttr(isAlpha(w)),
			ChannelIsDigit: boolAttr(isDigit(w)),
			ChannelIsPunct: boolAttr(isPunct(w)),
		}
	}
	return NewDoc(tokens...)
}

func boolAttr(v bool) string {
	if v {
		return "true"
	}
	return "false"
}

func isAlpha(s string) bool {
	for _, r := range s {
		if !('a' <= r && r <= 'z' || 'A' <= r && r <= 'Z') {
			return false
		}
	}
	return s != ""
}

func isDigit(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func isPunct(s string) bool {
	for _, r := range s {
		if !strings.ContainsRune(".,;:!?()[]{}\"'-", r) {
			return false
		}
	}
	return s != ""
}
