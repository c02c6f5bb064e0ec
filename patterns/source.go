// Package patterns loads pattern sets from YAML files and keeps a matching
// engine in sync with the file on disk. The file schema mirrors the in-code
// pattern model: a list of patterns, each an ordered list of token specs.
package patterns

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/spanex/spanex/internal/logging"
	"github.com/spanex/spanex/internal/metrics"
	"github.com/spanex/spanex/matcher"
	"github.com/spanex/spanex/pkg/errors"
)

// TokenSpec is one token constraint in a pattern file.
type TokenSpec struct {
	Channel string   `mapstructure:"channel"`
	In      []string `mapstructure:"in"`
	Regex   string   `mapstructure:"regex"`
	Not     bool     `mapstructure:"not"`
	Any     bool     `mapstructure:"any"`

	// Op is "", "?", "*", "+", or "range"; Min/Max apply to "range".
	Op  string `mapstructure:"op"`
	Min int    `mapstructure:"min"`
	Max int    `mapstructure:"max"`
}

// PatternSpec is one pattern in a pattern file.
type PatternSpec struct {
	ID     string      `mapstructure:"id"`
	Label  string      `mapstructure:"label"`
	Tokens []TokenSpec `mapstructure:"tokens"`
}

type fileSpec struct {
	Patterns []PatternSpec `mapstructure:"patterns"`
}

// Load reads and converts a pattern file. Structural pattern errors (bad
// repetition ops) are reported here; predicate-level compile errors surface
// when the patterns are registered.
func Load(path string) ([]matcher.Pattern, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrap(err, errors.CodePatternFileRead, "failed to read pattern file").WithDetail(path)
	}
	var spec fileSpec
	if err := v.Unmarshal(&spec); err != nil {
		return nil, errors.Wrap(err, errors.CodePatternFileInvalid, "failed to decode pattern file").WithDetail(path)
	}

	out := make([]matcher.Pattern, 0, len(spec.Patterns))
	for i, ps := range spec.Patterns {
		p, err := toPattern(ps)
		if err != nil {
			return nil, err.WithDetail(fmt.Sprintf("%s: pattern %d (%s)", path, i, ps.ID))
		}
		out = append(out, p)
	}
	return out, nil
}

func toPattern(spec PatternSpec) (matcher.Pattern, *errors.AppError) {
	p := matcher.Pattern{ID: spec.ID, Label: spec.Label}
	for _, ts := range spec.Tokens {
		c := matcher.Constraint{
			Channel: ts.Channel,
			In:      ts.In,
			Regex:   ts.Regex,
			Not:     ts.Not,
			Any:     ts.Any,
		}
		switch ts.Op {
		case "":
			if ts.Min != 0 || ts.Max != 0 {
				c = c.WithRange(ts.Min, ts.Max)
			}
		case "?":
			c = c.WithOp(matcher.OpOptional)
		case "*":
			c = c.WithOp(matcher.OpZeroPlus)
		case "+":
			c = c.WithOp(matcher.OpOnePlus)
		case "range":
			c = c.WithRange(ts.Min, ts.Max)
		default:
			return p, errors.New(errors.CodePatternFileInvalid, "unknown repetition op").WithDetail(ts.Op)
		}
		p.Constraints = append(p.Constraints, c)
	}
	return p, nil
}

// Source ties a pattern file to an engine: Reload swaps the engine's whole
// pattern set to the file's current content, and Watch keeps doing so on
// every file change.
type Source struct {
	path   string
	engine *matcher.Engine
	log    logging.Logger
	met    *metrics.Engine
}

// SourceOption configures a Source.
type SourceOption func(*Source)

// WithSourceLogger injects the structured logger.
func WithSourceLogger(log logging.Logger) SourceOption {
	return func(s *Source) { s.log = log }
}

// WithSourceMetrics attaches prometheus instrumentation.
func WithSourceMetrics(m *metrics.Engine) SourceOption {
	return func(s *Source) { s.met = m }
}

// NewSource builds a Source feeding the given engine from the file at path.
func NewSource(path string, engine *matcher.Engine, opts ...SourceOption) *Source {
	s := &Source{path: path, engine: engine, log: logging.NewNop()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Reload loads the file and replaces the engine's pattern set atomically.
// On any error the engine keeps its previous set.
func (s *Source) Reload() error {
	ps, err := Load(s.path)
	if err != nil {
		return err
	}
	if err := s.engine.Replace(ps...); err != nil {
		return err
	}
	s.met.IncSourceReloads()
	s.log.Info("pattern set reloaded",
		logging.String("path", s.path),
		logging.Int("patterns", len(ps)),
	)
	return nil
}

// Watch performs an initial Reload, then re-applies the file on every write
// until the context is canceled. The parent directory is watched rather than
// the file itself so that editors replacing the file by rename keep the
// watch alive. A change that fails to load or register is logged and skipped;
// the engine keeps matching with the last good set.
func (s *Source) Watch(ctx context.Context) error {
	if err := s.Reload(); err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "failed to create file watcher")
	}
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return errors.Wrap(err, errors.CodeInternal, "failed to watch pattern directory").WithDetail(s.path)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != filepath.Base(s.path) {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if err := s.Reload(); err != nil {
					s.log.Warn("pattern reload failed, keeping previous set",
						logging.String("path", s.path),
						logging.Err(err),
					)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.log.Warn("pattern watcher error", logging.Err(err))
			}
		}
	}()
	return nil
}
