package main

import (
	"os"

	"github.com/aretw0/tendril"
	"github.com/aretw0/tendril/internal/cli"
	"github.com/aretw0/tendril/pkg/composer"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/observability"
	"github.com/aretw0/tendril/pkg/render"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session <subject>",
	Short: "Open an interactive reply session",
	Long: `Starts a line-oriented session on a thread.

Commands: open <id>, draft <id> <text>, send <id>, like <id>, quit.
Use "root" as the id to compose a top-level comment.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sc := cli.NewSignalContext(cmd.Context())
		defer sc.Cancel()

		drafts := composer.New(
			composer.WithAuthor(cfg.Author, cfg.Avatar),
			composer.WithSubject(args[0]),
			composer.WithHooks(observability.LoggingHooks(logger)),
		)
		engine, closeFn, err := openEngine(domain.LifecycleHooks{})
		if err != nil {
			return err
		}
		defer closeFn()

		headless, _ := cmd.Flags().GetBool("headless")
		r := tendril.NewRunner(cli.NewInterruptibleReader(os.Stdin, sc.Done()), cmd.OutOrStdout())
		r.Headless = headless
		r.Composer = drafts
		r.TextOptions = []render.TextOption{render.WithProfile(colorProfile(cmd.OutOrStdout()))}

		return cli.HandleExecutionError(r.Run(sc, engine, args[0]))
	},
}

func init() {
	sessionCmd.Flags().Bool("headless", false, "Disable banner and prompt (for scripted input)")
	rootCmd.AddCommand(sessionCmd)
}
