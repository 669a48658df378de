package main

import (
	"github.com/spf13/cobra"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

func newRootCommand() *cobra.Command {
	var configFlag string
	ctx := newCommandContext(&configFlag)

	root := &cobra.Command{
		Use:   "tubenote",
		Short: "Publish YouTube transcripts as Notion pages",
		Long: "tubenote fetches YouTube transcripts, optionally rewrites them with an LLM,\n" +
			"and publishes each one as a Notion page.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	root.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Path to config.toml")

	root.AddCommand(
		newRunCommand(ctx),
		newWatchCommand(ctx),
		newStatusCommand(ctx),
		newConfigCommand(ctx),
		newTestNotifyCommand(ctx),
	)
	return root
}
