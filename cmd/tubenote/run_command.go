package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"tubenote/internal/config"
	"tubenote/internal/watch"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var model string
	var prompt string
	var fromCheckpoint bool

	cmd := &cobra.Command{
		Use:   "run [reference...]",
		Short: "Fetch, transform, and publish transcripts for videos and playlists",
		Long: "Each reference is a YouTube video or playlist URL, or a bare video ID.\n" +
			"References may also be given as one comma-separated argument.",
		Annotations: map[string]string{skipConfigLoadAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.loadConfig(func(cfg *config.Config) {
				if m := strings.TrimSpace(model); m != "" {
					cfg.Transform.Model = m
				}
				if p := strings.TrimSpace(prompt); p != "" {
					cfg.Transform.Prompt = p
				}
			})
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			inputs := splitReferences(args)
			if fromCheckpoint && !cfg.Checkpoint.Enabled {
				return errors.New("--from-checkpoint requires [checkpoint] enabled = true")
			}

			sess, err := openSession(cmd.Context(), cfg, false)
			if err != nil {
				return err
			}
			defer sess.Close()

			if fromCheckpoint {
				pending, err := watch.PendingInputs(cmd.Context(), sess.store, 0)
				if err != nil {
					return fmt.Errorf("read pending videos: %w", err)
				}
				inputs = append(inputs, pending...)
			}
			if len(inputs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to process")
				return nil
			}

			runner, err := newRunner(cmd.Context(), cfg, logger, sess.store)
			if err != nil {
				return err
			}
			run := runner.Run(cmd.Context(), inputs)
			fmt.Fprintln(cmd.OutOrStdout(), renderRunSummary(run, shouldColorize(cmd.OutOrStdout())))
			return nil
		},
	}

	cmd.Flags().StringVar(&model, "model", "", "Transform model (overrides transform.model and AI_MODEL)")
	cmd.Flags().StringVar(&prompt, "prompt", "", "Transform prompt (overrides transform.prompt and AI_PROMPT)")
	cmd.Flags().BoolVar(&fromCheckpoint, "from-checkpoint", false, "Also process videos discovered by watch that are not yet published")
	return cmd
}

// splitReferences flattens positional and comma-separated references.
func splitReferences(args []string) []string {
	var out []string
	for _, arg := range args {
		for part := range strings.SplitSeq(arg, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
