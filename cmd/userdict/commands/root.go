// Package commands implements the userdict command line.
package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	dbPath     string
	locale     string
	logLevel   string
}

// NewRootCmd creates the root command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	g := &globalFlags{}
	cmd := &cobra.Command{
		Use:   "userdict",
		Short: "Context-aware user dictionary",
		Long: `userdict learns the words you actually type, remembers the words around
each use, and merges them with speller completions.

A word seen once is a candidate; seeing it again makes it a learned word.
Words added by hand are learned straight away.

Examples:
  userdict add gopher
  userdict suggest hel
  userdict learn notes.txt --locale en
  userdict serve < requests.msgpack`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&g.configPath, "config", "", "Config file (default $USERDICT_CONFIG or the user config dir)")
	cmd.PersistentFlags().StringVar(&g.dbPath, "db", "", "SQLite database path (overrides config)")
	cmd.PersistentFlags().StringVarP(&g.locale, "locale", "l", "", "Locale of the words (overrides config)")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	cmd.AddCommand(
		NewServeCmd(g),
		NewAddCmd(g),
		NewRemoveCmd(g),
		NewListCmd(g),
		NewContextsCmd(g),
		NewSuggestCmd(g),
		NewLearnCmd(g),
		NewDumpCmd(g),
		NewResetCmd(g),
		NewConfigCmd(g),
		NewVersionCmd(),
	)
	return cmd
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return NewRootCmd().ExecuteContext(ctx)
}
