package commands

import (
	"github.com/japaniel/userdict/pkg/server"
	"github.com/spf13/cobra"
)

// NewServeCmd creates the msgpack IPC server command.
func NewServeCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve msgpack requests on stdin/stdout",
		Long: `Read msgpack requests from stdin and write responses to stdout until
stdin is closed. Logs go to stderr.

Spellers load in the background; suggestions include them once loaded.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := g.open()
			if err != nil {
				return err
			}
			defer rt.Close()

			srv := server.New(rt.svc, rt.spellers(), server.Options{
				Locale:       rt.locale,
				SpellerLimit: rt.cfg.Suggest.SpellerLimit,
				Logger:       rt.log.WithPrefix("server"),
			})
			return srv.Serve(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}
