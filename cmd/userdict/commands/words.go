package commands

import (
	"fmt"
	"strings"

	"github.com/japaniel/userdict/pkg/db"
	"github.com/japaniel/userdict/pkg/dictionary"
	"github.com/spf13/cobra"
)

// NewAddCmd creates the add command.
func NewAddCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "add WORD...",
		Short: "Add words to the dictionary",
		Long: `Mark words as manually added. They are suggested straight away,
whatever state they had before.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, w := range args {
				if db.Normalize(w) == "" {
					return dictionary.ErrEmptyWord
				}
			}
			rt, err := g.open()
			if err != nil {
				return err
			}
			defer rt.Close()

			for _, w := range args {
				if err := rt.svc.AddWordManually(cmd.Context(), w, rt.locale); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "added %s\n", w)
			}
			return nil
		},
	}
}

// NewRemoveCmd creates the remove command.
func NewRemoveCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "remove WORD...",
		Short: "Forget words and their contexts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := g.open()
			if err != nil {
				return err
			}
			defer rt.Close()

			for _, w := range args {
				if err := rt.svc.RemoveWord(cmd.Context(), w, rt.locale); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", w)
			}
			return nil
		},
	}
}

// NewListCmd creates the list command.
func NewListCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List learned words",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := g.open()
			if err != nil {
				return err
			}
			defer rt.Close()

			words, err := rt.svc.LearnedWords(cmd.Context(), rt.locale)
			if err != nil {
				return err
			}
			if len(words) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No learned words for %s\n", rt.locale)
				return nil
			}
			for _, w := range words {
				fmt.Fprintln(cmd.OutOrStdout(), w)
			}
			return nil
		},
	}
}

// NewContextsCmd creates the contexts command.
func NewContextsCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "contexts WORD",
		Short: "Show the recorded contexts of a word",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := g.open()
			if err != nil {
				return err
			}
			defer rt.Close()

			windows, err := rt.svc.Contexts(cmd.Context(), args[0], rt.locale)
			if err != nil {
				return err
			}
			if len(windows) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No contexts for %s\n", args[0])
				return nil
			}
			for _, w := range windows {
				fmt.Fprintln(cmd.OutOrStdout(), formatWindow(w))
			}
			return nil
		},
	}
}

// formatWindow renders a window as its tokens with the word in brackets.
func formatWindow(w dictionary.ContextWindow) string {
	var parts []string
	for _, tok := range []string{w.SecondBefore, w.FirstBefore} {
		if tok != "" {
			parts = append(parts, tok)
		}
	}
	parts = append(parts, "["+w.Word+"]")
	for _, tok := range []string{w.FirstAfter, w.SecondAfter} {
		if tok != "" {
			parts = append(parts, tok)
		}
	}
	return strings.Join(parts, " ")
}
