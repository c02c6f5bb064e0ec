package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spanex/spanex/matcher"
	"github.com/spanex/spanex/patterns"
	"github.com/spanex/spanex/pkg/errors"
	"github.com/spanex/spanex/pkg/types"
	"github.com/spanex/spanex/resolver"
)

func newMatchCommand(st *rootState) *cobra.Command {
	var (
		patternFile string
		mode        string
		file        string
	)

	cmd := &cobra.Command{
		Use:   "match [text...]",
		Short: "Match a pattern set against text and print the resolved spans",
		RunE: func(cmd *cobra.Command, args []string) error {
			if patternFile == "" {
				patternFile = st.cfg.Patterns.Path
			}
			if patternFile == "" {
				return errors.InvalidParam("no pattern file: pass --patterns or set patterns.path")
			}
			ps, err := patterns.Load(patternFile)
			if err != nil {
				return err
			}
			engine := matcher.New(matcher.WithLogger(st.log))
			if err := engine.Register(ps...); err != nil {
				return err
			}

			text, err := readText(file, args)
			if err != nil {
				return err
			}
			doc := types.NewDocFromWords(text)

			matches, err := engine.FindMatches(doc)
			if err != nil {
				return err
			}
			opts, err := st.cfg.Resolver.Options()
			if err != nil {
				return err
			}
			if mode != "" {
				if opts.Mode, err = resolver.ParseMode(mode); err != nil {
					return err
				}
			}
			spans, err := resolver.Resolve(matches, opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, s := range spans {
				start, end, label := s.Triple()
				fmt.Fprintf(out, "%d\t%d\t%s\t%s\n", start, end, label, spanText(doc, s))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&patternFile, "patterns", "", "pattern-set YAML file")
	cmd.Flags().StringVar(&mode, "mode", "", "resolution mode (keep-all, longest-only, label-priority)")
	cmd.Flags().StringVar(&file, "file", "", "read the document text from a file")
	return cmd
}
