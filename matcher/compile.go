package matcher

import (
	"fmt"
	"strings"

	"github.com/spanex/spanex/pkg/errors"
)

// impossibleToken is a subexpression that can never match. It stands in for
// a predicate whose accepted values were never observed in the current
// document: the encoding gap is not an error, the fragment just produces
// zero matches there.
const impossibleToken = `[^\s\S]`

// wildcardToken matches exactly one encoded symbol, whatever its value.
const wildcardToken = `[^ ]+`

// compiledPattern is the compiler's output for one pattern: one automaton
// fragment per channel the pattern tests, each carrying the originating
// pattern and its registration order. Immutable after compilation.
type compiledPattern struct {
	Pattern
	order    int
	channels []string
	frags    map[string]*fragment

	// valueRx holds the precompiled whole-value automaton for each
	// Regex constraint, keyed by constraint index.
	valueRx map[int]Automaton
}

// fragment is the compiled matcher unit for one pattern on one channel.
// Constraints on other channels appear as wildcard units so that all of a
// pattern's fragments cover the same token positions and their match spans
// can be intersected by equality.
type fragment struct {
	channel string
	units   []unit
}

type unit struct {
	con      Constraint
	conIdx   int
	wildcard bool
}

// compilePattern validates a pattern and builds its per-channel fragments.
// All structural problems surface here, at registration time, never at
// match time.
func compilePattern(p Pattern, order int, backend Backend) (*compiledPattern, error) {
	if len(p.Constraints) == 0 {
		return nil, errors.CompileError("empty pattern").WithDetail("pattern=" + p.ID)
	}

	cp := &compiledPattern{
		Pattern: p,
		order:   order,
		valueRx: make(map[int]Automaton),
	}

	for i, c := range p.Constraints {
		if err := validateConstraint(c); err != nil {
			return nil, err.WithDetail(fmt.Sprintf("pattern=%s constraint=%d", p.ID, i))
		}
		if c.Regex != "" {
			rx, err := backend.Compile("(?:" + c.Regex + ")")
			if err != nil {
				return nil, errors.CompileError("invalid value regex").
					WithDetail(fmt.Sprintf("pattern=%s constraint=%d", p.ID, i)).
					WithCause(err)
			}
			cp.valueRx[i] = rx
		}
	}

	cp.channels = channelsOf(p)
	cp.frags = make(map[string]*fragment, len(cp.channels))
	for _, ch := range cp.channels {
		f := &fragment{channel: ch, units: make([]unit, len(p.Constraints))}
		for i, c := range p.Constraints {
			if c.Channel == ch || (c.Any && c.Channel == "") {
				f.units[i] = unit{con: c, conIdx: i}
			} else {
				// Other-channel position: hold one token per repetition so
				// the fragments stay aligned.
				f.units[i] = unit{con: c, conIdx: i, wildcard: true}
			}
		}
		cp.frags[ch] = f
	}
	return cp, nil
}

func validateConstraint(c Constraint) *errors.AppError {
	if len(c.In) > 0 && c.Regex != "" {
		return errors.CompileError("constraint mixes value set and regex")
	}
	if !c.Any && len(c.In) == 0 && c.Regex == "" {
		return errors.CompileError("constraint accepts no values")
	}
	if !c.Any && c.Channel == "" {
		return errors.CompileError("constraint has no channel")
	}
	if c.Op == OpRange {
		if c.Min < 0 || c.Max < c.Min {
			return errors.CompileError("invalid repetition range").
				WithDetail(fmt.Sprintf("{%d,%d}", c.Min, c.Max))
		}
	}
	return nil
}

// render binds a fragment to one document's symbol table and produces the
// backend expression. feasible is false when a required unit's accepted
// values were all unseen in this document, i.e. the fragment cannot match
// here at all.
func (f *fragment) render(ce *channelEncoding, cp *compiledPattern) (expr string, feasible bool) {
	var b strings.Builder
	feasible = true
	for _, u := range f.units {
		base := u.renderAlternation(ce, cp)
		if base == impossibleToken && minReps(u.con) > 0 {
			feasible = false
		}
		b.WriteString(wrapQuantifier(base, u.con))
	}
	return b.String(), feasible
}

// renderAlternation resolves the unit's predicate to an alternation over the
// document's symbols.
func (u unit) renderAlternation(ce *channelEncoding, cp *compiledPattern) string {
	if u.wildcard || u.con.Any {
		return wildcardToken
	}
	c := u.con

	var syms []string
	switch {
	case len(c.In) > 0 && !c.Not:
		for _, v := range c.In {
			if sym, ok := ce.symbol(v); ok {
				syms = appendUnique(syms, sym)
			}
		}
	case c.Regex != "" && !c.Not:
		rx := cp.valueRx[u.conIdx]
		for _, v := range ce.values {
			if matchesWhole(rx, v) {
				syms = append(syms, ce.symbols[v])
			}
		}
	case c.Not:
		// Complement over the observed vocabulary: every token's value is
		// in the table, so this is exact for the current document.
		inner := c
		inner.Not = false
		for _, v := range ce.values {
			if !inner.evaluate(v, cp.valueRx[u.conIdx]) {
				syms = append(syms, ce.symbols[v])
			}
		}
	}

	if len(syms) == 0 {
		return impossibleToken
	}
	if len(syms) == 1 {
		return syms[0]
	}
	return "(?:" + strings.Join(syms, "|") + ")"
}

// wrapQuantifier turns a one-token alternation into the constraint's full
// subexpression, separator included. Quantifiers are greedy.
func wrapQuantifier(base string, c Constraint) string {
	tok := "(?:" + base + ") "
	switch c.Op {
	case OpOptional:
		return "(?:" + tok + ")?"
	case OpZeroPlus:
		return "(?:" + tok + ")*"
	case OpOnePlus:
		return "(?:" + tok + ")+"
	case OpRange:
		return fmt.Sprintf("(?:%s){%d,%d}", tok, c.Min, c.Max)
	default:
		return tok
	}
}

func minReps(c Constraint) int {
	switch c.Op {
	case OpOptional, OpZeroPlus:
		return 0
	case OpRange:
		return c.Min
	default:
		return 1
	}
}

func appendUnique(syms []string, sym string) []string {
	for _, s := range syms {
		if s == sym {
			return syms
		}
	}
	return append(syms, sym)
}
