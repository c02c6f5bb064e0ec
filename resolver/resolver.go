// Package resolver turns possibly-overlapping raw matches into a consistent
// set of labeled spans. It is the single place where overlap disambiguation
// happens; the matching engine reports everything and suppresses nothing.
package resolver

import (
	"sort"

	"github.com/spanex/spanex/pkg/errors"
	"github.com/spanex/spanex/pkg/types"
)

// Mode selects the reduction policy applied to a document's span group.
type Mode int

const (
	// ModeKeepAll retains every raw match.
	ModeKeepAll Mode = iota

	// ModeLongestOnly fuses tail-head overlapping spans into their union,
	// then greedily keeps the longest non-conflicting spans.
	ModeLongestOnly

	// ModeLabelPriority keeps spans by label priority rank; requires a
	// priority table in Options.
	ModeLabelPriority
)

func (m Mode) String() string {
	switch m {
	case ModeKeepAll:
		return "keep-all"
	case ModeLongestOnly:
		return "longest-only"
	case ModeLabelPriority:
		return "label-priority"
	}
	return "invalid"
}

// ParseMode maps a configuration string to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "keep-all", "":
		return ModeKeepAll, nil
	case "longest-only", "longest":
		return ModeLongestOnly, nil
	case "label-priority", "priority":
		return ModeLabelPriority, nil
	}
	return 0, errors.InvalidParam("unknown resolution mode").WithDetail(s)
}

// Abbreviation links a short-form span to its resolved long-form span.
// Detection itself belongs to the external collaborator; the resolver only
// consumes the mapping for its fusion step.
type Abbreviation struct {
	Short types.Span
	Long  types.Span
}

// AbbreviationSource supplies a document's short-form to long-form mapping.
type AbbreviationSource interface {
	Abbreviations() []Abbreviation
}

// StaticAbbreviations is a table-backed AbbreviationSource.
type StaticAbbreviations []Abbreviation

func (s StaticAbbreviations) Abbreviations() []Abbreviation { return s }

// Options configures one resolution run.
type Options struct {
	Mode Mode

	// Priority ranks labels for ModeLabelPriority; lower rank wins. Labels
	// absent from the table sort last. Required when the mode is
	// ModeLabelPriority; its absence is a configuration error reported
	// before any resolution work starts.
	Priority map[string]int

	// Abbreviations, when set, enables short/long-form fusion.
	Abbreviations AbbreviationSource
}

// candidate is one span in the working group, with the registration order of
// its originating pattern as the deterministic tie-breaker.
type candidate struct {
	span  types.Span
	order int
}

// Resolve applies the configured reduction policy to the raw matches and
// returns the retained spans ordered by (start, end). Running Resolve again
// on spans derived from its own output returns the same set.
func Resolve(matches []types.Match, opts Options) ([]types.Span, error) {
	if opts.Mode == ModeLabelPriority && len(opts.Priority) == 0 {
		return nil, errors.ConfigurationError("label-priority resolution requires a priority table")
	}

	cands := make([]candidate, 0, len(matches))
	for _, m := range matches {
		cands = append(cands, candidate{span: m.Span(), order: m.Order})
	}

	if opts.Abbreviations != nil {
		cands = fuseAbbreviations(cands, opts.Abbreviations.Abbreviations())
	}
	cands = dedupe(cands)

	var kept []candidate
	switch opts.Mode {
	case ModeKeepAll:
		kept = cands
	case ModeLongestOnly:
		kept = acceptGreedy(mergeTailHead(cands), byLength)
	case ModeLabelPriority:
		kept = acceptGreedy(cands, byPriority(opts.Priority))
	default:
		return nil, errors.InvalidParam("unknown resolution mode")
	}

	sort.Slice(kept, func(i, j int) bool {
		if kept[i].span.Start != kept[j].span.Start {
			return kept[i].span.Start < kept[j].span.Start
		}
		if kept[i].span.End != kept[j].span.End {
			return kept[i].span.End < kept[j].span.End
		}
		return kept[i].order < kept[j].order
	})
	out := make([]types.Span, len(kept))
	for i, c := range kept {
		out[i] = c.span
	}
	return out, nil
}

// fuseAbbreviations widens any candidate overlapping one side of an
// abbreviation link to the union of the two spans, and propagates the
// candidate's label to the other side as a new candidate.
func fuseAbbreviations(cands []candidate, abbrs []Abbreviation) []candidate {
	var propagated []candidate
	for _, ab := range abbrs {
		if ab.Long.Len() <= 0 || ab.Short.Len() <= 0 {
			continue
		}
		for i := range cands {
			c := &cands[i]
			switch {
			case c.span.Overlaps(ab.Long):
				c.span = union(c.span, ab.Long)
				propagated = append(propagated, candidate{
					span:  types.Span{Start: ab.Short.Start, End: ab.Short.End, Label: c.span.Label},
					order: c.order,
				})
			case c.span.Overlaps(ab.Short):
				c.span = union(c.span, ab.Short)
				propagated = append(propagated, candidate{
					span:  types.Span{Start: ab.Long.Start, End: ab.Long.End, Label: c.span.Label},
					order: c.order,
				})
			}
		}
	}
	return append(cands, propagated...)
}

func union(a, b types.Span) types.Span {
	s := a
	if b.Start < s.Start {
		s.Start = b.Start
	}
	if b.End > s.End {
		s.End = b.End
	}
	return s
}

// mergeTailHead repeatedly fuses pairs that overlap tail-to-head with
// neither containing the other, until no such pair remains. The merged span
// keeps the label of the first-registered contributor.
func mergeTailHead(cands []candidate) []candidate {
	for {
		merged := false
		for i := 0; i < len(cands) && !merged; i++ {
			for j := 0; j < len(cands); j++ {
				if i == j {
					continue
				}
				a, b := cands[i], cands[j]
				if a.span.Start < b.span.Start && b.span.Start < a.span.End && a.span.End < b.span.End {
					label := a.span.Label
					order := a.order
					if b.order < order {
						label = b.span.Label
						order = b.order
					}
					fused := candidate{
						span:  types.Span{Start: a.span.Start, End: b.span.End, Label: label},
						order: order,
					}
					rest := make([]candidate, 0, len(cands)-1)
					for k, c := range cands {
						if k != i && k != j {
							rest = append(rest, c)
						}
					}
					cands = append(rest, fused)
					merged = true
					break
				}
			}
		}
		if !merged {
			return cands
		}
	}
}

type lessFunc func(a, b candidate) bool

// byLength orders candidates for longest-only resolution: length
// descending, start ascending, then first-registered.
func byLength(a, b candidate) bool {
	if a.span.Len() != b.span.Len() {
		return a.span.Len() > b.span.Len()
	}
	if a.span.Start != b.span.Start {
		return a.span.Start < b.span.Start
	}
	return a.order < b.order
}

// byPriority orders candidates by label rank, then like byLength.
func byPriority(table map[string]int) lessFunc {
	rank := func(label string) int {
		if r, ok := table[label]; ok {
			return r
		}
		return int(^uint(0) >> 1)
	}
	return func(a, b candidate) bool {
		ra, rb := rank(a.span.Label), rank(b.span.Label)
		if ra != rb {
			return ra < rb
		}
		return byLength(a, b)
	}
}

// acceptGreedy sorts candidates by the policy order and accepts each span
// only if it overlaps no already-accepted span. The result is independent
// of input ordering.
func acceptGreedy(cands []candidate, less lessFunc) []candidate {
	sort.Slice(cands, func(i, j int) bool { return less(cands[i], cands[j]) })
	var kept []candidate
	for _, c := range cands {
		conflict := false
		for _, k := range kept {
			if c.span.Overlaps(k.span) {
				conflict = true
				break
			}
		}
		if !conflict {
			kept = append(kept, c)
		}
	}
	return kept
}

// dedupe collapses identical (start, end, label) candidates, keeping the
// lowest registration order.
func dedupe(cands []candidate) []candidate {
	type key struct {
		start, end int
		label      string
	}
	best := make(map[key]int, len(cands))
	var order []key
	for _, c := range cands {
		k := key{c.span.Start, c.span.End, c.span.Label}
		if prev, ok := best[k]; !ok {
			best[k] = c.order
			order = append(order, k)
		} else if c.order < prev {
			best[k] = c.order
		}
	}
	out := make([]candidate, 0, len(order))
	for _, k := range order {
		out = append(out, candidate{
			span:  types.Span{Start: k.start, End: k.end, Label: k.label},
			order: best[k],
		})
	}
	return out
}
