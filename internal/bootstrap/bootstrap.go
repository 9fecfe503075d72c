// Package bootstrap wires configuration into the splicer's runtime
// dependencies.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/maauso/appreciation-reel/internal/config"
	"github.com/maauso/appreciation-reel/internal/media"
	"github.com/maauso/appreciation-reel/internal/metrics"
	"github.com/maauso/appreciation-reel/internal/pipeline"
	"github.com/maauso/appreciation-reel/internal/progress"
	"github.com/maauso/appreciation-reel/internal/report"
	"github.com/maauso/appreciation-reel/internal/storage"
)

// Dependencies holds everything one run needs.
type Dependencies struct {
	Local        *storage.LocalStorage
	Store        storage.Storage
	Gateway      *media.FFmpegGateway
	Repository   report.Repository
	Metrics      *metrics.Metrics
	Orchestrator *pipeline.Orchestrator

	closers []io.Closer
}

// NewDependencies creates and initializes all dependencies for the run
// identified by runID. Progress bars are drawn on progressOut when it is a
// terminal.
func NewDependencies(ctx context.Context, cfg *config.Config, runID string, progressOut io.Writer, logger *slog.Logger) (*Dependencies, error) {
	local, err := storage.NewLocalStorage(cfg.TempDir, runID)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}

	store, err := initStorage(ctx, cfg, local, logger)
	if err != nil {
		return nil, err
	}

	deps := &Dependencies{
		Local:   local,
		Store:   store,
		Metrics: metrics.New(),
	}

	repo, err := initRepository(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	deps.Repository = repo
	if c, ok := repo.(io.Closer); ok {
		deps.closers = append(deps.closers, c)
	}

	deps.Gateway = media.NewFFmpegGateway(cfg.FFmpegPath,
		media.WithFFprobePath(cfg.FFprobePath),
		media.WithListDir(local.RunDir()),
		media.WithOperationTimeout(time.Duration(cfg.OperationTimeout)),
		media.WithLogger(logger),
	)

	reporter := progress.NewReporter(progressOut)
	deps.Orchestrator = pipeline.NewOrchestrator(deps.Gateway, store, Settings(cfg),
		pipeline.WithLogger(logger),
		pipeline.WithMetrics(deps.Metrics),
		pipeline.WithProgress(reporter.Start),
	)

	return deps, nil
}

// Close releases the run history store.
func (d *Dependencies) Close() error {
	var errs []error
	for _, c := range d.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// Settings maps the configuration onto pipeline settings.
func Settings(cfg *config.Config) pipeline.Settings {
	primary := Profile(cfg)

	fallback := primary
	fallback.CRF = cfg.Fallback.CRF
	fallback.Preset = cfg.Fallback.Preset
	fallback.LoudnessLUFS = 0

	cards := pipeline.CardSpec{
		Duration: cfg.Card.DurationSec,
		Style: media.CardStyle{
			FontSize:   cfg.Card.FontSize,
			FontColor:  cfg.Card.FontColor,
			Background: cfg.Card.Background,
			FontFile:   cfg.Card.FontFile,
		},
	}
	if cfg.TitleCards {
		cards.IntroTemplate = cfg.Card.IntroTemplate
		cards.SubmitterTemplate = cfg.Card.SubmitterTemplate
	}

	return pipeline.Settings{
		OutputDir:   cfg.OutputDir,
		OutputExt:   cfg.OutputExt,
		Normalize:   cfg.Normalize,
		Transitions: cfg.Transitions,
		TitleCards:  cfg.TitleCards,
		SortGroups:  cfg.SortGroups,
		Workers:     cfg.Workers,
		Profile:     primary,
		Fallback:    fallback,
		Fade:        cfg.FadeSec,
		Cards:       cards,
	}
}

// Profile maps the configured encode target.
func Profile(cfg *config.Config) media.Profile {
	return media.Profile{
		Width:        cfg.Profile.Width,
		Height:       cfg.Profile.Height,
		FPS:          cfg.Profile.FPS,
		LoudnessLUFS: cfg.Profile.LoudnessLUFS,
		CRF:          cfg.Profile.CRF,
		Preset:       cfg.Profile.Preset,
		AudioBitrate: cfg.Profile.AudioBitrate,
		SampleRate:   cfg.Profile.SampleRate,
	}
}

// initStorage wraps local with S3 uploads when S3 is configured.
func initStorage(ctx context.Context, cfg *config.Config, local *storage.LocalStorage, logger *slog.Logger) (storage.Storage, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			Prefix:          cfg.S3Prefix,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Store, err := storage.NewS3Storage(ctx, local, s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 uploads enabled",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Store, nil
	}

	logger.Debug("local storage configured",
		slog.String("temp_dir", local.TempDir()),
		slog.String("run_dir", local.RunDir()),
	)
	return local, nil
}

// initRepository opens the SQLite history when configured and falls back
// to an in-memory store otherwise.
func initRepository(ctx context.Context, cfg *config.Config, logger *slog.Logger) (report.Repository, error) {
	if cfg.HistoryDB == "" {
		return report.NewMemoryRepository(0), nil
	}

	repo, err := report.OpenSQLite(ctx, cfg.HistoryDB)
	if err != nil {
		return nil, fmt.Errorf("open run history: %w", err)
	}
	logger.Debug("run history enabled", slog.String("path", repo.Path()))
	return repo, nil
}
