package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/tendril/internal/sanitize"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/thread"
	"github.com/spf13/cobra"
)

var replyCmd = &cobra.Command{
	Use:   "reply <subject> <parent> <body...>",
	Short: "Add a reply to a thread",
	Long:  `Adds a reply under <parent>. Use "root" as the parent for a top-level comment.`,
	Args:  cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		subject, parent := args[0], args[1]
		if strings.EqualFold(parent, "root") {
			parent = domain.RootID
		}

		body, err := sanitize.Input(strings.Join(args[2:], " "), cfg.MaxInputSize)
		if err != nil {
			return err
		}

		var opts []thread.ReplyOption
		if cfg.Avatar != "" {
			opts = append(opts, thread.WithAvatar(cfg.Avatar))
		}

		engine, closeFn, err := openEngine(domain.LifecycleHooks{})
		if err != nil {
			return err
		}
		defer closeFn()

		node, err := engine.Reply(cmd.Context(), subject, parent, cfg.Author, body, opts...)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), node.ID)
		return nil
	},
}

var likeCmd = &cobra.Command{
	Use:   "like <subject> <node>",
	Short: "Like a comment",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, closeFn, err := openEngine(domain.LifecycleHooks{})
		if err != nil {
			return err
		}
		defer closeFn()

		if err := engine.Like(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "liked %s\n", args[1])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(replyCmd, likeCmd)
}
