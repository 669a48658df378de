package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"tubenote/internal/notifications"
	"tubenote/internal/services/youtube"
	"tubenote/internal/watch"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var runAfter bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Discover new uploads on configured channels",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if len(cfg.Watch.Channels) == 0 {
				return errors.New("no channels configured; add [[watch.channels]] entries to the config")
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			sess, err := openSession(cmd.Context(), cfg, true)
			if err != nil {
				return err
			}
			defer sess.Close()

			lister, err := youtube.NewLister(cmd.Context(), cfg.YouTube, nil)
			if err != nil {
				return err
			}
			watcher := watch.New(cfg.Watch, lister, sess.store, logger, watch.WithNotifier(notifications.NewService(cfg)))
			results, err := watcher.Scan(cmd.Context(), cfg.Watch.Channels)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderChannelResults(results))
			if !runAfter {
				return nil
			}

			inputs, err := watch.PendingInputs(cmd.Context(), sess.store, 0)
			if err != nil {
				return fmt.Errorf("read pending videos: %w", err)
			}
			if len(inputs) == 0 {
				fmt.Fprintln(out, "No pending videos")
				return nil
			}
			runner, err := newRunner(cmd.Context(), cfg, logger, sess.store)
			if err != nil {
				return err
			}
			run := runner.Run(cmd.Context(), inputs)
			fmt.Fprintln(out, renderRunSummary(run, shouldColorize(out)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&runAfter, "run", false, "Process pending videos after the scan")
	return cmd
}

func renderChannelResults(results []watch.ChannelResult) string {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		name := r.Channel.Name
		if name == "" {
			name = r.Channel.ID
		}
		detail := "ok"
		if r.Err != nil {
			detail = r.Err.Error()
		}
		since := "-"
		if !r.Since.IsZero() {
			since = r.Since.Local().Format("2006-01-02 15:04")
		}
		rows = append(rows, []string{name, since, strconv.Itoa(r.Listed), strconv.Itoa(r.Added), detail})
	}
	return renderTable([]column{
		{title: "Channel"},
		{title: "Since"},
		{title: "Listed", numeric: true},
		{title: "New", numeric: true},
		{title: "Detail"},
	}, rows)
}
