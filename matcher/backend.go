package matcher

import (
	"regexp"

	"github.com/coregx/coregex"

	"github.com/spanex/spanex/pkg/errors"
)

// Automaton is a compiled search primitive over one channel's symbol text.
// Implementations are immutable and safe for concurrent use.
type Automaton interface {
	// FindFrom returns the byte span of the leftmost occurrence starting at
	// or after pos. ok is false when no occurrence remains.
	FindFrom(text string, pos int) (start, end int, ok bool)

	// MatchAt returns the end offset of the greedy match anchored exactly at
	// pos. ok is false when nothing matches at pos.
	MatchAt(text string, pos int) (end int, ok bool)
}

// Backend compiles regex fragments into Automatons. The engine and compiler
// only speak to this interface, so the concrete regex implementation is
// swappable without touching either.
type Backend interface {
	Name() string
	Compile(expr string) (Automaton, error)
}

// DefaultBackend returns the coregex-based backend.
func DefaultBackend() Backend { return coregexBackend{} }

type coregexBackend struct{}

func (coregexBackend) Name() string { return "coregex" }

func (coregexBackend) Compile(expr string) (Automaton, error) {
	scan, err := coregex.Compile(expr)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeBackendError, "coregex compile failed")
	}
	anchored, err := coregex.Compile("^(?:" + expr + ")")
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeBackendError, "coregex anchored compile failed")
	}
	return &coregexAutomaton{scan: scan, anchored: anchored}, nil
}

type coregexAutomaton struct {
	scan     *coregex.Regex
	anchored *coregex.Regex
}

func (a *coregexAutomaton) FindFrom(text string, pos int) (int, int, bool) {
	if pos > len(text) {
		return 0, 0, false
	}
	loc := a.scan.FindStringIndex(text[pos:])
	if loc == nil {
		return 0, 0, false
	}
	return pos + loc[0], pos + loc[1], true
}

func (a *coregexAutomaton) MatchAt(text string, pos int) (int, bool) {
	if pos > len(text) {
		return 0, false
	}
	loc := a.anchored.FindStringIndex(text[pos:])
	if loc == nil {
		return 0, false
	}
	return pos + loc[1], true
}

// NewStdBackend returns a backend on the standard library regexp package.
// Kept as the reference implementation to validate backend swappability.
func NewStdBackend() Backend { return stdBackend{} }

type stdBackend struct{}

func (stdBackend) Name() string { return "stdlib" }

func (stdBackend) Compile(expr string) (Automaton, error) {
	scan, err := regexp.Compile(expr)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeBackendError, "regexp compile failed")
	}
	anchored, err := regexp.Compile("^(?:" + expr + ")")
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeBackendError, "regexp anchored compile failed")
	}
	return &stdAutomaton{scan: scan, anchored: anchored}, nil
}

type stdAutomaton struct {
	scan     *regexp.Regexp
	anchored *regexp.Regexp
}

func (a *stdAutomaton) FindFrom(text string, pos int) (int, int, bool) {
	if pos > len(text) {
		return 0, 0, false
	}
	loc := a.scan.FindStringIndex(text[pos:])
	if loc == nil {
		return 0, 0, false
	}
	return pos + loc[0], pos + loc[1], true
}

func (a *stdAutomaton) MatchAt(text string, pos int) (int, bool) {
	if pos > len(text) {
		return 0, false
	}
	loc := a.anchored.FindStringIndex(text[pos:])
	if loc == nil {
		return 0, false
	}
	return pos + loc[1], true
}
