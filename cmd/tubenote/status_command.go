package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"tubenote/internal/config"
	"tubenote/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check credentials, services, and directories",
		// Status reports on incomplete configurations instead of refusing them.
		Annotations: map[string]string{skipConfigLoadAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := parseConfigForStatus(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			fmt.Fprintf(out, "Config: %s", path)
			if !exists {
				fmt.Fprint(out, " (not found, using defaults)")
			}
			fmt.Fprintln(out)
			if err := cfg.Validate(); err != nil {
				fmt.Fprintln(out, renderStatusLine("Configuration", statusError, err.Error(), colorize))
			} else {
				fmt.Fprintln(out, renderStatusLine("Configuration", statusOK, "valid", colorize))
			}

			for _, result := range preflight.RunAll(cmd.Context(), cfg) {
				kind := statusOK
				if !result.Passed {
					kind = statusError
				}
				fmt.Fprintln(out, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}

			checkpoint := "disabled"
			if cfg.Checkpoint.Enabled {
				checkpoint = cfg.Checkpoint.Path
			}
			fmt.Fprintln(out, renderStatusLine("Checkpoint", statusInfo, checkpoint, colorize))
			channels := make([]string, 0, len(cfg.Watch.Channels))
			for _, ch := range cfg.Watch.Channels {
				if ch.Name != "" {
					channels = append(channels, ch.Name)
				} else {
					channels = append(channels, ch.ID)
				}
			}
			watched := "none"
			if len(channels) > 0 {
				watched = strings.Join(channels, ", ")
			}
			fmt.Fprintln(out, renderStatusLine("Watched channels", statusInfo, watched, colorize))
			return nil
		},
	}
}

func parseConfigForStatus(ctx *commandContext) (*config.Config, string, bool, error) {
	cfg, path, exists, err := config.Parse(ctx.configPath())
	if err != nil {
		return nil, "", false, fmt.Errorf("load config: %w", err)
	}
	return cfg, path, exists, nil
}
