package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/maauso/appreciation-reel/internal/bootstrap"
	"github.com/maauso/appreciation-reel/internal/classify"
	"github.com/maauso/appreciation-reel/internal/config"
	"github.com/maauso/appreciation-reel/internal/report"
)

// runSplice performs one full run: scan, process every group, persist and
// print the report. Group failures are reported, not returned.
func runSplice(ctx context.Context, cfg *config.Config, stdout, progressOut io.Writer, logger *slog.Logger) error {
	logger.Info("starting splicer",
		slog.String("input_dir", cfg.InputDir),
		slog.String("output_dir", cfg.OutputDir),
		slog.String("temp_dir", cfg.TempDir),
		slog.Int("workers", cfg.Workers),
		slog.Bool("normalize", cfg.Normalize),
		slog.Bool("transitions", cfg.Transitions),
		slog.Bool("title_cards", cfg.TitleCards),
		slog.Bool("s3_enabled", cfg.S3Enabled()),
	)

	scan, err := classify.Scan(cfg.InputDir)
	if err != nil {
		return err
	}

	run := report.NewRun(cfg.InputDir)
	deps, err := bootstrap.NewDependencies(ctx, cfg, run.ID, progressOut, logger)
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}
	defer func() {
		if cerr := deps.Close(); cerr != nil {
			logger.Warn("close run history failed", slog.String("error", cerr.Error()))
		}
	}()

	if err := deps.Local.Lock(); err != nil {
		return err
	}
	defer func() {
		if uerr := deps.Local.Unlock(); uerr != nil {
			logger.Warn("release run lock failed", slog.String("error", uerr.Error()))
		}
	}()

	for _, name := range scan.Unclassified {
		logger.Warn("skipping unclassifiable file",
			slog.String("file", name),
			slog.String("expected", "<first>_<last>_<submitter>.<ext>"),
		)
	}
	run.Unclassified = scan.Unclassified
	deps.Metrics.AddUnclassified(len(scan.Unclassified))

	logger.Info("input scanned",
		slog.String("run_id", run.ID),
		slog.Int("groups", scan.Groups.Len()),
		slog.Int("unclassified", len(scan.Unclassified)),
	)

	runErr := deps.Orchestrator.Run(ctx, scan.Groups, run)
	run.Finish()

	// Persist whatever was produced even when the run was interrupted.
	saveCtx := context.WithoutCancel(ctx)
	summary := run
	if serr := deps.Repository.Save(saveCtx, run); serr != nil {
		logger.Warn("save run history failed", slog.String("error", serr.Error()))
	} else if stored, ferr := deps.Repository.FindByID(saveCtx, run.ID); ferr == nil {
		summary = stored
	}
	if merr := deps.Metrics.WriteTextfile(cfg.MetricsFile); merr != nil {
		logger.Warn("write metrics failed", slog.String("error", merr.Error()))
	}

	if !cfg.KeepTemp {
		if cerr := deps.Local.Cleanup(saveCtx); cerr != nil {
			logger.Warn("cleanup failed", slog.String("error", cerr.Error()))
		}
	} else {
		logger.Info("keeping intermediate files", slog.String("dir", deps.Local.RunDir()))
	}

	if runErr != nil {
		return runErr
	}

	_, _ = io.WriteString(stdout, report.Summary(summary))

	logger.Info("run finished",
		slog.String("run_id", run.ID),
		slog.Int("produced", len(run.Entries)),
		slog.Int("failed", len(run.Failed)),
		slog.Duration("elapsed", run.Duration()),
	)

	return ctx.Err()
}
