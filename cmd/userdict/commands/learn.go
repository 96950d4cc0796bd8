package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/japaniel/userdict/pkg/ingest"
	"github.com/japaniel/userdict/pkg/text"
	"github.com/spf13/cobra"
)

// NewLearnCmd creates the learn command.
func NewLearnCmd(g *globalFlags) *cobra.Command {
	var workers int
	cmd := &cobra.Command{
		Use:   "learn FILE...",
		Short: "Learn vocabulary from text or HTML files",
		Long: `Record every word of the given files with its neighbours, as if it had
been typed. Plain text is read as is; .html and .htm files are reduced to
their main article first.

Examples:
  userdict learn notes.txt
  userdict learn --locale ja article.html`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := g.open()
			if err != nil {
				return err
			}
			defer rt.Close()

			analyzer, err := text.NewAnalyzer()
			if err != nil {
				return fmt.Errorf("create analyzer: %w", err)
			}
			l := ingest.NewLearner(rt.svc, analyzer)
			l.Workers = rt.cfg.Learn.Workers
			if workers > 0 {
				l.Workers = workers
			}
			l.ReportEvery = rt.cfg.Learn.BatchProgress
			l.Logger = rt.log.WithPrefix("learn")
			l.OnProgress = func(current, total int) {
				rt.log.Info("learning", "sentences", current, "total", total)
			}

			total := 0
			for _, path := range args {
				doc, err := readDocument(path)
				if err != nil {
					return err
				}
				n, err := l.Learn(cmd.Context(), rt.locale, doc)
				total += n
				if err != nil {
					return fmt.Errorf("learn %s: %w", path, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d usages\n", path, n)
			}
			if len(args) > 1 {
				fmt.Fprintf(cmd.OutOrStdout(), "total: %d usages\n", total)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Tokenizer workers (default from config)")
	return cmd
}

// readDocument returns the text of path, extracting the article of HTML files.
func readDocument(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		f, err := os.Open(path)
		if err != nil {
			return "", err
		}
		defer f.Close()
		article, err := text.ExtractArticle(f, nil)
		if err != nil {
			return "", fmt.Errorf("%s: %w", path, err)
		}
		return article.Text, nil
	default:
		b, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}
