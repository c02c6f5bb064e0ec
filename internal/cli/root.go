// Package cli implements the spanex command line: pattern matching over ad
// hoc text and pattern-set profiling.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spanex/spanex/internal/config"
	"github.com/spanex/spanex/internal/logging"
	"github.com/spanex/spanex/pkg/types"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
)

// rootState carries the initialized dependencies through the command tree.
type rootState struct {
	cfgPath  string
	logLevel string

	cfg *config.Config
	log logging.Logger
}

// NewRootCommand creates the root command with global flags and subcommands.
func NewRootCommand() *cobra.Command {
	st := &rootState{}

	cmd := &cobra.Command{
		Use:           "spanex",
		Short:         "Token-pattern matching and span annotation",
		Version:       fmt.Sprintf("%s (%s)", Version, GitCommit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return st.init()
		},
	}
	cmd.PersistentFlags().StringVar(&st.cfgPath, "config", "", "config file (default: environment only)")
	cmd.PersistentFlags().StringVar(&st.logLevel, "log-level", "", "override the configured log level")

	cmd.AddCommand(newMatchCommand(st))
	cmd.AddCommand(newProfileCommand(st))
	return cmd
}

func (st *rootState) init() error {
	var err error
	if st.cfgPath != "" {
		st.cfg, err = config.Load(st.cfgPath)
	} else {
		st.cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		return err
	}
	if st.logLevel != "" {
		st.cfg.Log.Level = st.logLevel
	}
	st.log, err = logging.New(st.cfg.Log)
	return err
}

// readText assembles the input document text from --file or the positional
// arguments.
func readText(file string, args []string) (string, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	return "", fmt.Errorf("no input: pass text arguments or --file")
}

// spanText renders the covered tokens of a span for display.
func spanText(doc types.Doc, s types.Span) string {
	words := make([]string, 0, s.Len())
	for i := s.Start; i < s.End && i < doc.Len(); i++ {
		words = append(words, doc.Token(i).Attr(types.ChannelText))
	}
	return strings.Join(words, " ")
}

// Execute runs the root command.
func Execute() error {
	return NewRootCommand().Execute()
}
