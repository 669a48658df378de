package pipeline

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"tubenote/internal/blocks"
	"tubenote/internal/checkpoint"
	"tubenote/internal/logging"
	"tubenote/internal/notifications"
	"tubenote/internal/services"
	"tubenote/internal/services/notion"
	"tubenote/internal/transcript"
	"tubenote/internal/transform"
	"tubenote/internal/video"
)

// Expander turns a playlist into its videos.
type Expander interface {
	Expand(ctx context.Context, ref video.Reference) (iter.Seq[video.Reference], error)
}

// truncationReporter is implemented by expanders whose listings can be cut
// off before the end of the playlist.
type truncationReporter interface {
	Truncated(playlistID string) bool
}

// Fetcher returns the transcript and metadata of a video.
type Fetcher interface {
	Fetch(ctx context.Context, ref video.Reference) (transcript.Result, error)
}

// Transformer rewrites transcript text. It never fails.
type Transformer interface {
	TransformWithReport(ctx context.Context, text string) (string, transform.Report)
}

// Publisher creates one document.
type Publisher interface {
	Publish(ctx context.Context, doc notion.Document) (string, error)
}

// Recorder remembers published videos across runs.
type Recorder interface {
	IsPublished(ctx context.Context, videoID string) (bool, error)
	MarkPublished(ctx context.Context, v checkpoint.Video, documentID string) error
}

// Options wires the runner's collaborators.
type Options struct {
	Expander    Expander
	Fetcher     Fetcher
	Transformer Transformer
	Publisher   Publisher
	// Recorder is optional; without it every video is processed.
	Recorder Recorder
	Notifier notifications.Service
	Logger   *slog.Logger

	Workers     int
	ItemTimeout time.Duration
	BlockSize   int

	Now   func() time.Time
	NewID func() string
}

// Runner executes fetch, transform, paginate, and publish for a batch of
// inputs.
type Runner struct {
	opts   Options
	logger *slog.Logger
}

// NewRunner builds a runner. Missing optional collaborators get defaults.
func NewRunner(opts Options) *Runner {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.BlockSize < 1 {
		opts.BlockSize = blocks.MaxLength
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.Notifier == nil {
		opts.Notifier = notifications.NewService(nil)
	}
	return &Runner{opts: opts, logger: logging.NewComponentLogger(opts.Logger, "pipeline")}
}

type workItem struct {
	outcome Outcome
	ref     video.Reference
	// resolved is true when the outcome was decided while building the work
	// list (unrecognized input, playlist failure, duplicate).
	resolved bool
}

// Run processes inputs and returns the run record. Per-item failures never
// abort the run; cancellation of ctx marks the remaining items failed.
func (r *Runner) Run(ctx context.Context, inputs []string) *Run {
	run := &Run{ID: r.opts.NewID(), StartedAt: r.opts.Now()}
	ctx = services.WithRunID(ctx, run.ID)
	logger := logging.WithContext(ctx, r.logger)

	items := r.buildWorkList(ctx, logger, inputs)
	pending := 0
	for _, item := range items {
		if !item.resolved {
			pending++
		}
	}
	logger.Info("run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.Int("inputs", len(inputs)),
		logging.Int("videos", pending),
		logging.Int("workers", r.opts.Workers),
	)
	if err := r.opts.Notifier.NotifyRunStarted(ctx, run.ID, pending); err != nil {
		logger.Debug("run start notification failed", logging.Error(err))
	}

	if r.opts.Workers == 1 {
		for i := range items {
			if !items[i].resolved {
				items[i].outcome = r.processItem(ctx, items[i])
			}
		}
	} else {
		var group errgroup.Group
		group.SetLimit(r.opts.Workers)
		for i := range items {
			if items[i].resolved {
				continue
			}
			group.Go(func() error {
				items[i].outcome = r.processItem(ctx, items[i])
				return nil
			})
		}
		_ = group.Wait()
	}

	run.Outcomes = make([]Outcome, len(items))
	for i, item := range items {
		run.Outcomes[i] = item.outcome
	}
	run.tally()
	run.FinishedAt = r.opts.Now()

	logger.Info("run completed",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.Int("succeeded", run.Summary.Succeeded),
		logging.Int("skipped", run.Summary.Skipped),
		logging.Int("failed", run.Summary.Failed),
		logging.Duration("duration", run.Duration()),
	)
	if err := r.opts.Notifier.NotifyRunCompleted(ctx, notifications.RunSummary{
		RunID:     run.ID,
		Succeeded: run.Summary.Succeeded,
		Skipped:   run.Summary.Skipped,
		Failed:    run.Summary.Failed,
		Duration:  run.Duration(),
	}); err != nil {
		logger.Debug("run completion notification failed", logging.Error(err))
	}
	return run
}

// buildWorkList normalizes every input and expands playlists eagerly so the
// work list is complete before any video is processed.
func (r *Runner) buildWorkList(ctx context.Context, logger *slog.Logger, inputs []string) []workItem {
	var items []workItem
	seen := make(map[string]int)

	add := func(raw string, ref video.Reference) {
		index := len(items) + 1
		item := workItem{ref: ref, outcome: Outcome{
			Index:   index,
			Input:   raw,
			VideoID: ref.ID,
			URL:     ref.URL,
		}}
		if first, dup := seen[ref.ID]; dup {
			item.resolved = true
			item.outcome.Status = StatusSkipped
			item.outcome.Reason = fmt.Sprintf("duplicate of item %d", first)
			logger.Info("duplicate video skipped",
				logging.String(logging.FieldEventType, "item_skipped"),
				logging.String(logging.FieldVideoID, ref.ID),
				logging.Int("first_index", first),
			)
		} else {
			seen[ref.ID] = index
		}
		items = append(items, item)
	}

	for _, raw := range inputs {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		ref, err := video.Parse(raw)
		if err != nil {
			logger.Warn("input not recognized",
				logging.String(logging.FieldEventType, "item_skipped"),
				logging.String("input", raw),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "use a video or playlist url, or a bare video id"),
				logging.String(logging.FieldImpact, "input skipped"),
			)
			items = append(items, workItem{resolved: true, outcome: Outcome{
				Index:  len(items) + 1,
				Input:  raw,
				Status: StatusSkipped,
				Stage:  "parse",
				Reason: err.Error(),
				Err:    err,
			}})
			continue
		}
		if !ref.IsPlaylist() {
			add(raw, ref)
			continue
		}
		seq, err := r.expand(ctx, ref)
		if err != nil {
			logging.ErrorWithContext(logger, "playlist expansion failed", "playlist_failure",
				logging.String("playlist_id", ref.ID),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the playlist is public and the youtube api key"),
			)
			items = append(items, workItem{resolved: true, outcome: Outcome{
				Index:  len(items) + 1,
				Input:  raw,
				URL:    ref.URL,
				Status: StatusFailed,
				Stage:  "expand",
				Reason: err.Error(),
				Err:    err,
			}})
			continue
		}
		note := ""
		if t, ok := r.opts.Expander.(truncationReporter); ok && t.Truncated(ref.ID) {
			note = "playlist listing truncated"
		}
		count := 0
		for member := range seq {
			add(raw, member)
			items[len(items)-1].outcome.Note = note
			count++
		}
		logger.Info("playlist expanded",
			logging.String("playlist_id", ref.ID),
			logging.Int("videos", count),
		)
	}
	return items
}

func (r *Runner) expand(ctx context.Context, ref video.Reference) (iter.Seq[video.Reference], error) {
	if r.opts.Expander == nil {
		return nil, services.Wrap(services.ErrPlaylistUnavailable, "pipeline", "expand", "no playlist lister configured", nil)
	}
	return r.opts.Expander.Expand(ctx, ref)
}

func (r *Runner) processItem(parent context.Context, item workItem) Outcome {
	outcome := item.outcome
	started := r.opts.Now()
	defer func() { outcome.Duration = r.opts.Now().Sub(started) }()

	ctx := services.WithItemIndex(services.WithVideoID(parent, item.ref.ID), outcome.Index)
	if r.opts.ItemTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.ItemTimeout)
		defer cancel()
	}
	logger := logging.WithContext(ctx, r.logger)

	if err := ctx.Err(); err != nil {
		return r.fail(ctx, logger, outcome, "start", err)
	}

	if r.opts.Recorder != nil {
		published, err := r.opts.Recorder.IsPublished(ctx, item.ref.ID)
		if err != nil {
			logger.Warn("checkpoint lookup failed; processing anyway",
				logging.String(logging.FieldEventType, "checkpoint_error"),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the checkpoint database path"),
				logging.String(logging.FieldImpact, "video may be published twice"),
			)
		} else if published {
			outcome.Status = StatusSkipped
			outcome.Reason = "already published"
			logger.Info("video already published",
				logging.String(logging.FieldEventType, "item_skipped"),
			)
			return outcome
		}
	}

	var fetched transcript.Result
	if err := r.stage(ctx, logger, "fetch", func(stageCtx context.Context) error {
		var err error
		fetched, err = r.opts.Fetcher.Fetch(stageCtx, item.ref)
		return err
	}); err != nil {
		return r.fail(ctx, logger, outcome, "fetch", err)
	}
	outcome.Title = fetched.DocumentTitle()

	var text string
	_ = r.stage(ctx, logger, "transform", func(stageCtx context.Context) error {
		var report transform.Report
		text, report = r.opts.Transformer.TransformWithReport(stageCtx, fetched.Text)
		outcome.Passthrough = report.Passthrough()
		return nil
	})

	var pages []blocks.Block
	_ = r.stage(ctx, logger, "paginate", func(context.Context) error {
		pages = blocks.Paginate(text, r.opts.BlockSize)
		return nil
	})

	if err := r.stage(ctx, logger, "publish", func(stageCtx context.Context) error {
		var err error
		outcome.DocumentID, err = r.opts.Publisher.Publish(stageCtx, notion.Document{
			Title:    outcome.Title,
			Blocks:   pages,
			VideoURL: item.ref.URL,
		})
		return err
	}); err != nil {
		return r.fail(ctx, logger, outcome, "publish", err)
	}

	if r.opts.Recorder != nil {
		err := r.opts.Recorder.MarkPublished(context.WithoutCancel(ctx), checkpoint.Video{
			ID:    item.ref.ID,
			URL:   item.ref.URL,
			Title: outcome.Title,
		}, outcome.DocumentID)
		if err != nil {
			logging.WarnWithContext(logger, "checkpoint not updated", "checkpoint_error",
				logging.Error(err),
				logging.String(logging.FieldImpact, "video may be published again by a later run"),
			)
		}
	}

	outcome.Status = StatusSucceeded
	logger.Info("video published",
		logging.String(logging.FieldEventType, "item_complete"),
		logging.String("document_id", outcome.DocumentID),
		logging.String("title", outcome.Title),
		logging.Int("blocks", len(pages)),
		logging.Bool("passthrough", outcome.Passthrough),
	)
	return outcome
}

// stage runs fn with stage-scoped logging.
func (r *Runner) stage(ctx context.Context, logger *slog.Logger, name string, fn func(context.Context) error) error {
	stageCtx := services.WithStage(ctx, name)
	stageLogger := logging.WithContext(stageCtx, r.logger)
	started := r.opts.Now()
	stageLogger.Debug("stage started", logging.String(logging.FieldEventType, "stage_start"))
	if err := fn(stageCtx); err != nil {
		stageLogger.Debug("stage failed",
			logging.String(logging.FieldEventType, "stage_failure"),
			logging.Error(err),
		)
		return err
	}
	stageLogger.Debug("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("elapsed", r.opts.Now().Sub(started)),
	)
	return nil
}

// fail classifies a stage error into a skipped or failed outcome.
func (r *Runner) fail(ctx context.Context, logger *slog.Logger, outcome Outcome, stage string, err error) Outcome {
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, services.ErrTimeout) {
		err = services.Wrap(services.ErrTimeout, "pipeline", stage, "item deadline exceeded", err)
	}
	outcome.Stage = stage
	outcome.Err = err
	outcome.Reason = err.Error()

	if services.ItemDisposition(err) == services.DispositionSkipped {
		outcome.Status = StatusSkipped
		logger.Info("video skipped",
			logging.String(logging.FieldEventType, "item_skipped"),
			logging.String("stage", stage),
			logging.String("reason", outcome.Reason),
		)
		return outcome
	}

	outcome.Status = StatusFailed
	logging.ErrorWithContext(logger, "video failed", "item_failure",
		logging.String("failed_stage", stage),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, hintFor(err)),
	)
	if notifyErr := r.opts.Notifier.NotifyItemFailed(context.WithoutCancel(ctx), outcome.VideoID, outcome.Title, err); notifyErr != nil {
		logger.Debug("failure notification failed", logging.Error(notifyErr))
	}
	return outcome
}

func hintFor(err error) string {
	switch {
	case errors.Is(err, services.ErrTimeout):
		return "raise pipeline.item_timeout_seconds or retry later"
	case errors.Is(err, services.ErrPublish):
		return "check the notion token and that the parent page is shared with the integration"
	case errors.Is(err, services.ErrTransient):
		return "temporary provider failure; rerun the batch"
	case errors.Is(err, services.ErrConfiguration):
		return "run tubenote config validate"
	default:
		return "see error for details"
	}
}
