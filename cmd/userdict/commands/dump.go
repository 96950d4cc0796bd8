package commands

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/japaniel/userdict/pkg/db"
	"github.com/spf13/cobra"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	stateStyles = map[db.State]lipgloss.Style{
		db.StateCandidate:     cellStyle.Foreground(lipgloss.Color("8")),
		db.StateUserWord:      cellStyle.Foreground(lipgloss.Color("10")),
		db.StateManuallyAdded: cellStyle.Foreground(lipgloss.Color("14")),
		db.StateBlacklisted:   cellStyle.Foreground(lipgloss.Color("9")),
	}
)

// NewDumpCmd creates the dump command.
func NewDumpCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "Print every stored row (debugging)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := g.open()
			if err != nil {
				return err
			}
			defer rt.Close()

			words, contexts, err := rt.svc.Dump(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("words (%d)", len(words))))
			fmt.Fprintln(out, wordsTable(words))
			fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("contexts (%d)", len(contexts))))
			fmt.Fprintln(out, contextsTable(contexts))
			return nil
		},
	}
}

func wordsTable(words []db.Word) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "TEXT", "LOCALE", "STATE")
	for _, w := range words {
		t.Row(strconv.FormatInt(w.ID, 10), w.Text, string(w.Locale), string(w.State))
	}
	t.StyleFunc(func(row, col int) lipgloss.Style {
		if row == table.HeaderRow {
			return headerStyle
		}
		if col == 3 && row >= 0 && row < len(words) {
			if st, ok := stateStyles[words[row].State]; ok {
				return st
			}
		}
		return cellStyle
	})
	return t.Render()
}

func contextsTable(contexts []db.Context) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "WORD ID", "2ND BEFORE", "1ST BEFORE", "WORD", "1ST AFTER", "2ND AFTER")
	for _, c := range contexts {
		t.Row(strconv.FormatInt(c.ID, 10), strconv.FormatInt(c.WordID, 10),
			c.SecondBefore, c.FirstBefore, c.Word, c.FirstAfter, c.SecondAfter)
	}
	t.StyleFunc(func(row, col int) lipgloss.Style {
		if row == table.HeaderRow {
			return headerStyle
		}
		return cellStyle
	})
	return t.Render()
}

// NewResetCmd creates the reset command.
func NewResetCmd(g *globalFlags) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every word and context",
		Long:  `Drop and recreate the word and context tables. This cannot be undone.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to reset without --yes")
			}
			rt, err := g.open()
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := rt.svc.Reset(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "dictionary reset")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the reset")
	return cmd
}
