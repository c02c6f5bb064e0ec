package matcher

import (
	"sort"
	"strconv"
	"strings"

	"github.com/spanex/spanex/pkg/types"
)

// tokenSeparator terminates every token symbol in a channel's encoded text,
// so a compiled fragment can never span partial tokens.
const tokenSeparator = ' '

// Encoding is the attribute encoder's per-document output: one symbol string
// per requested channel, plus the offset maps needed to translate character
// spans back to token spans. Encodings are document-scoped and discarded
// after matching; no state survives across documents.
type Encoding struct {
	n        int
	channels map[string]*channelEncoding
}

type channelEncoding struct {
	name string

	// text is the encoded channel: every token's symbol followed by a
	// single separator, e.g. "0 1 0 2 ".
	text string

	// symbols maps canonical attribute values to their symbol. The table is
	// append-only and grows as unseen values appear.
	symbols map[string]string

	// values records first-sight order of the canonical values, so
	// alternations rendered from this table are deterministic.
	values []string

	// starts[i] is the character offset of token i's symbol; starts[n] is
	// len(text). tokenAt is the inverse, defined on start offsets only.
	starts  []int
	tokenAt map[int]int
}

// Encode builds the symbol strings for doc on the requested channels. Two
// tokens receive the same symbol on a channel iff their values compare equal
// under that channel's rule: case-insensitive for "lower", normalized
// true/false for boolean channels, exact otherwise. A single symbol counter
// spans all channels of one encoding pass, so a symbol is never reused
// across channels.
func Encode(doc types.Doc, channels []string) *Encoding {
	enc := &Encoding{n: doc.Len(), channels: make(map[string]*channelEncoding, len(channels))}
	next := 0
	for _, name := range channels {
		if _, ok := enc.channels[name]; ok {
			continue
		}
		ce := &channelEncoding{
			name:    name,
			symbols: make(map[string]string),
			tokenAt: make(map[int]int),
		}
		var b strings.Builder
		for i := 0; i < enc.n; i++ {
			v := canonicalValue(name, doc.Token(i).Attr(name))
			sym, ok := ce.symbols[v]
			if !ok {
				sym = strconv.FormatInt(int64(next), 36)
				next++
				ce.symbols[v] = sym
				ce.values = append(ce.values, v)
			}
			off := b.Len()
			ce.starts = append(ce.starts, off)
			ce.tokenAt[off] = i
			b.WriteString(sym)
			b.WriteByte(tokenSeparator)
		}
		ce.starts = append(ce.starts, b.Len())
		ce.tokenAt[b.Len()] = enc.n
		ce.text = b.String()
		enc.channels[name] = ce
	}
	return enc
}

// TokenCount returns the number of tokens in the encoded document.
func (e *Encoding) TokenCount() int { return e.n }

// Channel returns the encoding for the named channel, nil when the channel
// was not requested.
func (e *Encoding) Channel(name string) *channelEncoding { return e.channels[name] }

// symbol resolves a raw attribute value to its symbol in this document.
// The second return is false when the value never occurs here; a constraint
// referencing it simply cannot match in this document.
func (ce *channelEncoding) symbol(value string) (string, bool) {
	sym, ok := ce.symbols[canonicalValue(ce.name, value)]
	return sym, ok
}

// tokenIndex translates a character offset that falls on a token boundary
// into the corresponding token index.
func (ce *channelEncoding) tokenIndex(off int) (int, bool) {
	i, ok := ce.tokenAt[off]
	return i, ok
}

// nextTokenStart returns the smallest token-start offset strictly greater
// than off, or len(text) when none remains.
func (ce *channelEncoding) nextTokenStart(off int) int {
	i := sort.SearchInts(ce.starts, off+1)
	if i >= len(ce.starts) {
		return len(ce.text)
	}
	return ce.starts[i]
}

// canonicalValue applies the channel's comparison rule before symbol lookup.
func canonicalValue(channel, raw string) string {
	switch {
	case channel == types.ChannelLower:
		return strings.ToLower(raw)
	case strings.HasPrefix(channel, "is_"):
		switch strings.ToLower(raw) {
		case "true", "1", "yes":
			return "true"
		default:
			return "false"
		}
	default:
		return raw
	}
}
