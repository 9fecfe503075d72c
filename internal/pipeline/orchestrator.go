// Package pipeline turns groups of classified clips into one output file per
// group: normalize, fade, add title cards, order and concatenate.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/maauso/appreciation-reel/internal/classify"
	"github.com/maauso/appreciation-reel/internal/media"
	"github.com/maauso/appreciation-reel/internal/metrics"
	"github.com/maauso/appreciation-reel/internal/report"
	"github.com/maauso/appreciation-reel/internal/storage"
)

// ErrNoClips is returned for a group with no clip left to concatenate.
var ErrNoClips = errors.New("pipeline: no clips survived")

// Settings configures an Orchestrator.
type Settings struct {
	OutputDir string
	// OutputExt is the output container extension, default mp4.
	OutputExt string

	Normalize   bool
	Transitions bool
	TitleCards  bool
	// SortGroups processes groups in lexicographic key order instead of
	// scan order.
	SortGroups bool

	Workers  int
	Profile  media.Profile
	Fallback media.Profile
	Fade     float64
	Cards    CardSpec
}

// Orchestrator drives each group through the pipeline stages and aggregates
// the run report.
type Orchestrator struct {
	settings    Settings
	store       storage.Storage
	normalizer  *Normalizer
	transitions *TransitionApplier
	cards       *TitleCardGenerator
	concat      *Concatenator
	metrics     *metrics.Metrics
	progress    func(group string, total int) func(done, total int)
	logger      *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics records run counters on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithProgress installs a factory for per-group normalization progress
// callbacks.
func WithProgress(start func(group string, total int) func(done, total int)) Option {
	return func(o *Orchestrator) {
		o.progress = start
	}
}

// NewOrchestrator creates an Orchestrator that runs every operation through gw
// and keeps intermediate files in store.
func NewOrchestrator(gw media.Gateway, store storage.Storage, settings Settings, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		settings: settings,
		store:    store,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}

	o.normalizer = NewNormalizer(gw, settings.Profile, settings.Fallback, settings.Workers, o.metrics, o.logger)
	o.transitions = NewTransitionApplier(gw, settings.Fade, settings.Profile, o.metrics, o.logger)
	o.cards = NewTitleCardGenerator(gw, settings.Cards, settings.Profile, o.metrics, o.logger)
	o.concat = NewConcatenator(gw, settings.Profile, o.metrics, o.logger)
	return o
}

// Run processes every group one at a time and records the result in run.
// A failed group is logged and recorded; it never stops the others. Run
// returns an error only when the output directory cannot be created.
func (o *Orchestrator) Run(ctx context.Context, groups *classify.Groups, run *report.Run) error {
	if err := os.MkdirAll(o.settings.OutputDir, 0o750); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	keys := groups.Keys()
	if o.settings.SortGroups {
		keys = groups.SortedKeys()
	}

	for _, key := range keys {
		clips := groups.Clips(key)
		entry, err := o.processGroup(ctx, key, clips)
		if err != nil {
			o.logger.Error("group failed",
				slog.String("group", key),
				slog.Int("videos", len(clips)),
				slog.String("error", err.Error()),
			)
			run.Fail(key)
			continue
		}
		run.Add(entry)
	}
	return nil
}

// ProcessGroup runs a single group and returns its report entry.
func (o *Orchestrator) ProcessGroup(ctx context.Context, key string, clips []classify.Clip) (report.Entry, error) {
	if err := os.MkdirAll(o.settings.OutputDir, 0o750); err != nil {
		return report.Entry{}, fmt.Errorf("create output directory: %w", err)
	}
	return o.processGroup(ctx, key, clips)
}

func (o *Orchestrator) processGroup(ctx context.Context, key string, clips []classify.Clip) (report.Entry, error) {
	state := newGroupState(key, o.logger)
	entry, err := o.runStages(ctx, state, clips)
	if err != nil {
		state.fail(err)
		o.metrics.GroupFinished(metrics.OutcomeFailed, state.elapsed())
		return report.Entry{}, err
	}
	o.metrics.GroupFinished(metrics.OutcomeSucceeded, state.elapsed())
	return entry, nil
}

func (o *Orchestrator) runStages(ctx context.Context, state *groupState, clips []classify.Clip) (report.Entry, error) {
	key := state.key
	o.logger.Info("processing group",
		slog.String("group", key),
		slog.Int("videos", len(clips)),
	)

	dir, err := o.store.GroupDir(key)
	if err != nil {
		return report.Entry{}, fmt.Errorf("scratch directory: %w", err)
	}

	if err := state.advance(StageNormalizing); err != nil {
		return report.Entry{}, err
	}
	current := clips
	if o.settings.Normalize {
		var progress ProgressFunc
		if o.progress != nil {
			progress = o.progress(key, len(clips))
		}
		var dropped []classify.Clip
		current, dropped = o.normalizer.Normalize(ctx, clips, dir, progress)
		if len(dropped) > 0 {
			names := make([]string, len(dropped))
			for i, c := range dropped {
				names[i] = c.Submitter
			}
			o.logger.Warn("submitters dropped from group",
				slog.String("group", key),
				slog.Int("dropped", len(dropped)),
				slog.Any("submitters", names),
			)
		}
	}
	if err := ctx.Err(); err != nil {
		return report.Entry{}, err
	}
	if len(current) == 0 {
		return report.Entry{}, ErrNoClips
	}

	if err := state.advance(StageTransitionApplying); err != nil {
		return report.Entry{}, err
	}
	if o.settings.Transitions {
		current = o.transitions.Apply(ctx, current, dir)
	}

	if err := state.advance(StageTitleCardGenerating); err != nil {
		return report.Entry{}, err
	}
	var cards *TitleCards
	if o.settings.TitleCards {
		cards = o.cards.Generate(ctx, key, current, dir)
	}

	if err := state.advance(StageAssembling); err != nil {
		return report.Entry{}, err
	}
	segments := Assemble(current, cards)
	if err := ctx.Err(); err != nil {
		return report.Entry{}, err
	}

	if err := state.advance(StageConcatenating); err != nil {
		return report.Entry{}, err
	}
	output := filepath.Join(o.settings.OutputDir, OutputName(key, o.settings.OutputExt))
	strategy, err := o.concat.Concat(ctx, segments, output)
	if err != nil {
		return report.Entry{}, err
	}

	entry := report.Entry{
		GroupKey:   key,
		VideoCount: len(clips),
		OutputPath: output,
	}
	entry.URL = o.upload(ctx, key, output)

	if err := state.advance(StageSucceeded); err != nil {
		return report.Entry{}, err
	}
	o.logger.Info("group complete",
		slog.String("group", key),
		slog.Int("segments", len(segments)),
		slog.String("strategy", strategy),
		slog.String("output", output),
		slog.Duration("elapsed", state.elapsed()),
	)
	return entry, nil
}

// upload publishes output and returns its URL, or "" when uploads are not
// configured or failed. A failed upload keeps the local output.
func (o *Orchestrator) upload(ctx context.Context, key, output string) string {
	url, err := o.store.Upload(ctx, output, filepath.Base(output))
	if errors.Is(err, storage.ErrS3NotConfigured) {
		return ""
	}
	if err != nil {
		o.logger.Error("upload failed, keeping local output",
			slog.String("group", key),
			slog.String("output", output),
			slog.String("error", err.Error()),
		)
		return ""
	}
	o.logger.Info("output uploaded",
		slog.String("group", key),
		slog.String("url", url),
	)
	return url
}
