package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/spanex/spanex/matcher"
	"github.com/spanex/spanex/patterns"
	"github.com/spanex/spanex/pkg/errors"
	"github.com/spanex/spanex/pkg/types"
)

func newProfileCommand(st *rootState) *cobra.Command {
	var (
		patternFile string
		file        string
		runs        int
	)

	cmd := &cobra.Command{
		Use:   "profile [text...]",
		Short: "Measure matching throughput of a pattern set over a document",
		RunE: func(cmd *cobra.Command, args []string) error {
			if patternFile == "" {
				patternFile = st.cfg.Patterns.Path
			}
			if patternFile == "" {
				return errors.InvalidParam("no pattern file: pass --patterns or set patterns.path")
			}
			if runs < 1 {
				return errors.InvalidParam("--runs must be at least 1")
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

			var found int
			started := time.Now()
			for i := 0; i < runs; i++ {
				matches, err := engine.FindMatches(doc)
				if err != nil {
					return err
				}
				found = len(matches)
			}
			took := time.Since(started)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "patterns:   %d\n", engine.Len())
			fmt.Fprintf(out, "tokens:     %d\n", doc.Len())
			fmt.Fprintf(out, "matches:    %d\n", found)
			fmt.Fprintf(out, "runs:       %d\n", runs)
			fmt.Fprintf(out, "total:      %s\n", took)
			fmt.Fprintf(out, "per run:    %s\n", took/time.Duration(runs))
			return nil
		},
	}
	cmd.Flags().StringVar(&patternFile, "patterns", "", "pattern-set YAML file")
	cmd.Flags().StringVar(&file, "file", "", "read the document text from a file")
	cmd.Flags().IntVar(&runs, "runs", 100, "number of match runs to time")
	return cmd
}
