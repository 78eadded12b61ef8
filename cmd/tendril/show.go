package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/render"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var showCmd = &cobra.Command{
	Use:   "show <subject>",
	Short: "Print a thread",
	Long:  `Prints the thread of a subject in display order. Use --mermaid for a flowchart or --json for the raw entries.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asMermaid, _ := cmd.Flags().GetBool("mermaid")
		asJSON, _ := cmd.Flags().GetBool("json")

		engine, closeFn, err := openEngine(domain.LifecycleHooks{})
		if err != nil {
			return err
		}
		defer closeFn()

		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		switch {
		case asMermaid:
			chart, err := engine.Mermaid(ctx, args[0], nil)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(out, chart)
			return err
		case asJSON:
			entries, err := engine.Entries(ctx, args[0], nil)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(entries)
		}

		t, err := engine.Thread(ctx, args[0])
		if err != nil {
			return err
		}
		if len(t.Roots) == 0 {
			fmt.Fprintf(out, "No comments on %s yet.\n", args[0])
			return nil
		}
		seq := render.Walk(t.Roots, nil, indentOpts()...)
		return render.Text(out, seq, render.WithProfile(colorProfile(out)))
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List subjects that have comments",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, closeFn, err := openEngine(domain.LifecycleHooks{})
		if err != nil {
			return err
		}
		defer closeFn()

		subjects, err := engine.Subjects(cmd.Context())
		if err != nil {
			return err
		}
		for _, s := range subjects {
			fmt.Fprintln(cmd.OutOrStdout(), s)
		}
		return nil
	},
}

func init() {
	showCmd.Flags().Bool("mermaid", false, "Print a Mermaid flowchart")
	showCmd.Flags().Bool("json", false, "Print the render entries as JSON")
	rootCmd.AddCommand(showCmd, listCmd)
}

func indentOpts() []render.Option {
	if cfg.IndentCap > 0 {
		return []render.Option{render.WithIndentCap(cfg.IndentCap)}
	}
	return nil
}

// colorProfile enables styling only when w is an interactive terminal.
func colorProfile(w io.Writer) termenv.Profile {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return termenv.Ascii
	}
	return termenv.EnvColorProfile()
}
