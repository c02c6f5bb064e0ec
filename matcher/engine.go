package matcher

import (
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/spanex/spanex/internal/logging"
	"github.com/spanex/spanex/internal/metrics"
	"github.com/spanex/spanex/pkg/errors"
	"github.com/spanex/spanex/pkg/types"
)

// Engine is the multi-pattern matching engine. Many compiled fragments are
// registered once and applied to any number of documents; each document is
// encoded, scanned once per channel, and every non-empty occurrence of every
// registered pattern is reported.
//
// The compiled fragment set is immutable and swapped atomically, so a single
// Engine is safe to share between parallel workers matching independent
// documents. Register and Replace serialize against each other; matching is
// never blocked by recompilation.
type Engine struct {
	backend Backend
	log     logging.Logger
	met     *metrics.Engine

	mu  sync.Mutex
	set atomic.Pointer[fragmentSet]
}

// fragmentSet is one immutable generation of compiled patterns.
type fragmentSet struct {
	patterns []*compiledPattern
	channels []string
}

// Option configures an Engine.
type Option func(*Engine)

// WithBackend selects the regex backend. Defaults to coregex.
func WithBackend(b Backend) Option {
	return func(e *Engine) { e.backend = b }
}

// WithLogger injects the structured logger.
func WithLogger(log logging.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithMetrics attaches prometheus instrumentation.
func WithMetrics(m *metrics.Engine) Option {
	return func(e *Engine) { e.met = m }
}

// New constructs an empty Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		backend: DefaultBackend(),
		log:     logging.NewNop(),
	}
	for _, o := range opts {
		o(e)
	}
	e.set.Store(&fragmentSet{})
	return e
}

// Len returns the number of registered patterns.
func (e *Engine) Len() int {
	return len(e.set.Load().patterns)
}

// Register compiles the given patterns and appends them to the active set.
// Registration is all-or-nothing: if any pattern fails to compile, no
// pattern from the batch becomes active and the engine keeps matching with
// its previous set. Patterns with an empty ID receive a fresh UUID.
func (e *Engine) Register(patterns ...Pattern) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.install(e.set.Load().patterns, patterns)
}

// Replace compiles the given patterns and swaps them in as the entire
// active set, atomically. Matching in flight keeps using the generation it
// started with.
func (e *Engine) Replace(patterns ...Pattern) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.install(nil, patterns)
}

func (e *Engine) install(keep []*compiledPattern, patterns []Pattern) error {
	compiled := make([]*compiledPattern, 0, len(keep)+len(patterns))
	compiled = append(compiled, keep...)

	for _, p := range patterns {
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		cp, err := compilePattern(p, len(compiled), e.backend)
		if err != nil {
			e.met.IncCompileErrors()
			e.log.Warn("pattern rejected",
				logging.String("pattern", p.ID),
				logging.Err(err),
			)
			return err
		}
		compiled = append(compiled, cp)
	}

	next := &fragmentSet{patterns: compiled, channels: channelUnion(compiled)}
	e.set.Store(next)
	e.met.AddPatternsCompiled(len(patterns))
	e.log.Debug("pattern set installed",
		logging.Int("patterns", len(compiled)),
		logging.Int("channels", len(next.channels)),
	)
	return nil
}

func channelUnion(patterns []*compiledPattern) []string {
	seen := make(map[string]bool)
	var out []string
	for _, cp := range patterns {
		for _, ch := range cp.channels {
			if !seen[ch] {
				seen[ch] = true
				out = append(out, ch)
			}
		}
	}
	sort.Strings(out)
	return out
}

// FindMatches reports every non-empty occurrence of every registered pattern
// in the document. Identical spans from different patterns are all reported;
// overlap disambiguation belongs to the resolver, never to the engine.
// Matches come back in stable order: start, then end, then registration
// order.
func (e *Engine) FindMatches(doc types.Doc) ([]types.Match, error) {
	set := e.set.Load()
	if len(set.patterns) == 0 || doc == nil || doc.Len() == 0 {
		return nil, nil
	}
	started := time.Now()

	enc := Encode(doc, set.channels)

	// spansByPattern[order][channel] collects the raw per-channel spans.
	spansByPattern := make(map[int]map[string][]types.Span, len(set.patterns))

	for _, ch := range set.channels {
		ce := enc.Channel(ch)
		if ce == nil || ce.text == "" {
			continue
		}
		if err := e.scanChannel(ce, set, spansByPattern); err != nil {
			return nil, err
		}
	}

	var out []types.Match
	for _, cp := range set.patterns {
		byChannel := spansByPattern[cp.order]
		if byChannel == nil {
			continue
		}
		spans := byChannel[cp.channels[0]]
		// A pattern mixing channels only matches where all of its channel
		// fragments agree on the exact span.
		for _, ch := range cp.channels[1:] {
			spans = intersectSpans(spans, byChannel[ch])
		}
		for _, s := range filterSubmatches(spans) {
			out = append(out, types.Match{
				PatternID: cp.ID,
				Label:     cp.Label,
				Start:     s.Start,
				End:       s.End,
				Channel:   cp.channels[0],
				Order:     cp.order,
			})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		if out[i].End != out[j].End {
			return out[i].End < out[j].End
		}
		return out[i].Order < out[j].Order
	})

	e.met.ObserveMatchRun(time.Since(started), len(out))
	return out, nil
}

// scanChannel renders every fragment for one channel against the document's
// symbol table, then walks the channel text once: a merged alternation of
// all fragments proposes candidate token starts, and the per-pattern
// anchored automatons enumerate every pattern matching at each candidate.
// This keeps the scan near-linear in document length while still reporting
// all patterns, including ties on identical spans.
func (e *Engine) scanChannel(ce *channelEncoding, set *fragmentSet, spansByPattern map[int]map[string][]types.Span) error {
	type bound struct {
		cp  *compiledPattern
		aut Automaton
	}
	var bounds []bound
	var exprs []string

	for _, cp := range set.patterns {
		frag := cp.frags[ce.name]
		if frag == nil {
			continue
		}
		expr, feasible := frag.render(ce, cp)
		if !feasible {
			// Encoding gap: some required value never occurs in this
			// document, so this fragment has zero matches here.
			continue
		}
		aut, err := e.backend.Compile(expr)
		if err != nil {
			return errors.Wrap(err, errors.CodeBackendError, "fragment compile failed").
				WithDetail("pattern=" + cp.ID + " channel=" + ce.name)
		}
		bounds = append(bounds, bound{cp: cp, aut: aut})
		exprs = append(exprs, expr)
	}
	if len(bounds) == 0 {
		return nil
	}

	merged, err := e.backend.Compile(strings.Join(exprs, "|"))
	if err != nil {
		return errors.Wrap(err, errors.CodeBackendError, "merged alternation compile failed").
			WithDetail("channel=" + ce.name)
	}

	pos := 0
	for pos < len(ce.text) {
		start, _, ok := merged.FindFrom(ce.text, pos)
		if !ok {
			break
		}
		ts, onBoundary := ce.tokenIndex(start)
		if !onBoundary {
			// A symbol matched mid-token; only token starts anchor matches.
			pos = ce.nextTokenStart(start)
			continue
		}
		for _, b := range bounds {
			end, ok := b.aut.MatchAt(ce.text, start)
			if !ok || end <= start {
				continue
			}
			te, ok := ce.tokenIndex(end)
			if !ok {
				continue
			}
			byChannel := spansByPattern[b.cp.order]
			if byChannel == nil {
				byChannel = make(map[string][]types.Span, len(b.cp.channels))
				spansByPattern[b.cp.order] = byChannel
			}
			byChannel[ce.name] = append(byChannel[ce.name], types.Span{Start: ts, End: te})
		}
		pos = ce.nextTokenStart(start)
	}
	return nil
}

// intersectSpans keeps the spans present in both lists, compared by exact
// start and end.
func intersectSpans(a, b []types.Span) []types.Span {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	in := make(map[types.Span]bool, len(b))
	for _, s := range b {
		in[types.Span{Start: s.Start, End: s.End}] = true
	}
	var out []types.Span
	for _, s := range a {
		if in[types.Span{Start: s.Start, End: s.End}] {
			out = append(out, s)
		}
	}
	return out
}

// filterSubmatches drops spans that share an end with an earlier-starting
// span of the same pattern. With greedy quantifiers the earlier span is the
// full repetition run; the later ones are its suffixes.
func filterSubmatches(spans []types.Span) []types.Span {
	if len(spans) < 2 {
		return spans
	}
	sort.Slice(spans, func(i, j int) bool {
		if spans[i].Start != spans[j].Start {
			return spans[i].Start < spans[j].Start
		}
		return spans[i].End > spans[j].End
	})
	var out []types.Span
	for i := 0; i < len(spans); {
		cur := spans[i]
		out = append(out, cur)
		j := i + 1
		for j < len(spans) && spans[j].Start > cur.Start && spans[j].End == cur.End {
			j++
		}
		i = j
	}
	return out
}
