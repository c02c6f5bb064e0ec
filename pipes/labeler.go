// Package pipes provides the annotation façades built on the matching engine
// and the overlap resolver: rule labeling, phrase extraction, sentence
// splitting, and knowledge-graph page linking. Each pipe owns its engine and
// is safe to share across goroutines once its rules are registered.
package pipes

import (
	"github.com/spanex/spanex/internal/logging"
	"github.com/spanex/spanex/matcher"
	"github.com/spanex/spanex/pkg/types"
	"github.com/spanex/spanex/resolver"
)

// Labeler annotates documents with labeled spans from registered rules.
// Each rule binds a label to one or more patterns; overlapping results are
// reduced by the configured resolution options, after abbreviation fusion
// when an abbreviation source is set.
type Labeler struct {
	engine *matcher.Engine
	log    logging.Logger
	res    resolver.Options
}

// LabelerOption configures a Labeler.
type LabelerOption func(*Labeler)

// WithResolution sets the resolution options applied after matching.
func WithResolution(opts resolver.Options) LabelerOption {
	return func(l *Labeler) { l.res = opts }
}

// WithLabelerLogger injects the structured logger.
func WithLabelerLogger(log logging.Logger) LabelerOption {
	return func(l *Labeler) { l.log = log }
}

// WithLabelerEngine supplies a preconfigured engine, e.g. one with a
// non-default backend or metrics attached.
func WithLabelerEngine(e *matcher.Engine) LabelerOption {
	return func(l *Labeler) { l.engine = e }
}

// NewLabeler constructs a Labeler with no rules. The default resolution
// keeps every labeled span.
func NewLabeler(opts ...LabelerOption) *Labeler {
	l := &Labeler{
		log: logging.NewNop(),
		res: resolver.Options{Mode: resolver.ModeKeepAll},
	}
	for _, o := range opts {
		o(l)
	}
	if l.engine == nil {
		l.engine = matcher.New(matcher.WithLogger(l.log))
	}
	return l
}

// Add registers a labeling rule: every given constraint sequence becomes a
// pattern carrying the label. All patterns of the call register atomically.
func (l *Labeler) Add(label string, patterns ...[]matcher.Constraint) error {
	ps := make([]matcher.Pattern, len(patterns))
	for i, cs := range patterns {
		ps[i] = matcher.Pattern{Label: label, Constraints: cs}
	}
	return l.engine.Register(ps...)
}

// Label matches every rule against the document and returns the resolved
// labeled spans in (start, end) order.
func (l *Labeler) Label(doc types.Doc) ([]types.Span, error) {
	matches, err := l.engine.FindMatches(doc)
	if err != nil {
		return nil, err
	}
	spans, err := resolver.Resolve(matches, l.res)
	if err != nil {
		return nil, err
	}
	l.log.Debug("document labeled",
		logging.Int("matches", len(matches)),
		logging.Int("spans", len(spans)),
	)
	return spans, nil
}
