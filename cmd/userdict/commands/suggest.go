package commands

import (
	"fmt"

	"github.com/japaniel/userdict/pkg/dictionary"
	"github.com/japaniel/userdict/pkg/suggest"
	"github.com/spf13/cobra"
)

// NewSuggestCmd creates the suggest command.
func NewSuggestCmd(g *globalFlags) *cobra.Command {
	var before, after []string
	cmd := &cobra.Command{
		Use:   "suggest WORD",
		Short: "Print merged suggestions for a word",
		Long: `Print the suggestions a client would see for WORD: the word itself,
learned words, then the top speller entries.

Examples:
  userdict suggest hel
  userdict suggest wor --before hello`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(before) > 2 || len(after) > 2 {
				return fmt.Errorf("at most two --before and two --after words")
			}
			rt, err := g.open()
			if err != nil {
				return err
			}
			defer rt.Close()

			reg := rt.spellers()
			reg.Wait()

			window := dictionary.ContextWindow{Word: args[0]}
			if len(before) > 0 {
				window.FirstBefore = before[0]
			}
			if len(before) > 1 {
				window.SecondBefore = before[1]
			}
			if len(after) > 0 {
				window.FirstAfter = after[0]
			}
			if len(after) > 1 {
				window.SecondAfter = after[1]
			}

			m := suggest.NewMerger(rt.svc, reg,
				suggest.WithSpellerLimit(rt.cfg.Suggest.SpellerLimit),
				suggest.WithLogger(rt.log.WithPrefix("suggest")))
			defer m.Close()

			results := make(chan []string, 1)
			m.Request(args[0], window, rt.locale, func(words []string) { results <- words })

			select {
			case words := <-results:
				for _, w := range words {
					fmt.Fprintln(cmd.OutOrStdout(), w)
				}
				return nil
			case <-cmd.Context().Done():
				return cmd.Context().Err()
			}
		},
	}
	cmd.Flags().StringSliceVar(&before, "before", nil, "Preceding words, nearest first")
	cmd.Flags().StringSliceVar(&after, "after", nil, "Following words, nearest first")
	return cmd
}
