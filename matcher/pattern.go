// Package matcher implements the token-pattern matching core: the attribute
// encoder, the pattern compiler, and the multi-pattern engine. Patterns are
// ordered sequences of per-token constraints with repetition operators;
// matching runs over per-channel symbol strings produced by the encoder and
// is executed by a pluggable regex backend.
package matcher

import (
	"strings"

	"github.com/spanex/spanex/pkg/types"
)

// Op is a constraint's repetition operator.
type Op int

const (
	// OpOne requires the constraint to match exactly one token.
	OpOne Op = iota
	// OpOptional allows zero or one token.
	OpOptional
	// OpZeroPlus allows any number of tokens, including none.
	OpZeroPlus
	// OpOnePlus requires at least one token. Greedy: longer runs win.
	OpOnePlus
	// OpRange requires between Min and Max tokens inclusive.
	OpRange
)

func (o Op) String() string {
	switch o {
	case OpOne:
		return "1"
	case OpOptional:
		return "?"
	case OpZeroPlus:
		return "*"
	case OpOnePlus:
		return "+"
	case OpRange:
		return "{m,n}"
	}
	return "invalid"
}

// Constraint is one token-position requirement: a channel, a predicate over
// that channel's values, and a repetition operator. Exactly one of In,
// Regex, or Any must be set; Not inverts In or Regex. Constraints are plain
// data and immutable once handed to Register.
type Constraint struct {
	// Channel names the attribute axis the predicate tests. May be empty
	// only for Any constraints, which then match on whatever channel the
	// surrounding pattern uses.
	Channel string

	// In accepts a token whose value equals any member of the set.
	In []string

	// Regex accepts a token whose whole value matches the expression. The
	// expression is evaluated against attribute values, not symbols; binding
	// to the document's symbols happens at match time.
	Regex string

	// Not inverts the In/Regex predicate.
	Not bool

	// Any accepts every token.
	Any bool

	// Op is the repetition operator; Min/Max apply only to OpRange.
	Op  Op
	Min int
	Max int
}

// WithOp returns a copy of the constraint with the repetition operator set.
func (c Constraint) WithOp(op Op) Constraint {
	c.Op = op
	return c
}

// WithRange returns a copy of the constraint repeated between min and max
// tokens.
func (c Constraint) WithRange(min, max int) Constraint {
	c.Op = OpRange
	c.Min = min
	c.Max = max
	return c
}

// In builds an equals-one-of constraint on a channel.
func In(channel string, values ...string) Constraint {
	return Constraint{Channel: channel, In: values}
}

// NotIn builds a negated set-membership constraint on a channel.
func NotIn(channel string, values ...string) Constraint {
	return Constraint{Channel: channel, In: values, Not: true}
}

// Rx builds a regex-over-values constraint on a channel.
func Rx(channel, expr string) Constraint {
	return Constraint{Channel: channel, Regex: expr}
}

// Any builds a wildcard constraint matching every token.
func Any() Constraint {
	return Constraint{Any: true}
}

// Pattern is an ordered sequence of constraints plus an identifier and an
// optional label. Patterns are owned by the caller; registering them hands
// immutable compiled fragments to the engine.
type Pattern struct {
	// ID identifies the pattern in matches and compile errors. When empty,
	// Register assigns a fresh UUID.
	ID string

	// Label is carried into every match and used by label-aware resolution.
	Label string

	Constraints []Constraint
}

// evaluate reports whether a single attribute value satisfies the
// constraint's predicate. rx is the precompiled value automaton for Regex
// constraints, nil otherwise.
func (c Constraint) evaluate(value string, rx Automaton) bool {
	if c.Any {
		return true
	}
	var ok bool
	switch {
	case len(c.In) > 0:
		cv := canonicalValue(c.Channel, value)
		for _, want := range c.In {
			if canonicalValue(c.Channel, want) == cv {
				ok = true
				break
			}
		}
	case c.Regex != "":
		ok = rx != nil && matchesWhole(rx, canonicalValue(c.Channel, value))
	}
	if c.Not {
		return !ok
	}
	return ok
}

// matchesWhole reports whether the automaton matches the entire value.
func matchesWhole(rx Automaton, value string) bool {
	end, ok := rx.MatchAt(value, 0)
	return ok && end == len(value)
}

// Satisfies re-evaluates the pattern directly against a token span, without
// the engine. It is the reference semantics used by round-trip tests: every
// span the engine reports must satisfy the originating pattern.
func (p Pattern) Satisfies(doc types.Doc, span types.Span, backend Backend) bool {
	if backend == nil {
		backend = DefaultBackend()
	}
	cp, err := compilePattern(p, 0, backend)
	if err != nil {
		return false
	}
	return cp.accepts(doc, span.Start, span.End)
}

// accepts runs a simple backtracking check that the token range can be
// partitioned so each constraint matches its allotted run of tokens.
func (cp *compiledPattern) accepts(doc types.Doc, start, end int) bool {
	var rec func(ci, pos int) bool
	rec = func(ci, pos int) bool {
		if ci == len(cp.Constraints) {
			return pos == end
		}
		c := cp.Constraints[ci]
		lo, hi := repBounds(c, end-pos)
		for n := hi; n >= lo; n-- {
			ok := true
			for k := 0; k < n; k++ {
				value := tokenValue(doc, pos+k, c.Channel)
				if !c.evaluate(value, cp.valueRx[ci]) {
					ok = false
					break
				}
			}
			if ok && rec(ci+1, pos+n) {
				return true
			}
		}
		return false
	}
	return start < end && rec(0, start)
}

func repBounds(c Constraint, avail int) (int, int) {
	switch c.Op {
	case OpOptional:
		return 0, minInt(1, avail)
	case OpZeroPlus:
		return 0, avail
	case OpOnePlus:
		return 1, avail
	case OpRange:
		return c.Min, minInt(c.Max, avail)
	default:
		return 1, minInt(1, avail)
	}
}

func tokenValue(doc types.Doc, i int, channel string) string {
	if channel == "" {
		return ""
	}
	return doc.Token(i).Attr(channel)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// channelsOf returns the distinct channels a pattern's constraints test, in
// first-use order. Wildcard-only patterns fall back to the "lower" channel.
func channelsOf(p Pattern) []string {
	var out []string
	seen := make(map[string]bool)
	for _, c := range p.Constraints {
		ch := strings.TrimSpace(c.Channel)
		if ch == "" || seen[ch] {
			continue
		}
		seen[ch] = true
		out = append(out, ch)
	}
	if len(out) == 0 {
		out = append(out, types.ChannelLower)
	}
	return out
}
