package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/maauso/appreciation-reel/internal/classify"
	"github.com/maauso/appreciation-reel/internal/media"
	"github.com/maauso/appreciation-reel/internal/metrics"
)

// DefaultWorkers is the normalization concurrency used when none is configured.
const DefaultWorkers = 4

// ProgressFunc receives the number of finished clips and the total after each
// clip completes. Calls are serialized and done strictly increases.
type ProgressFunc func(done, total int)

// Normalizer brings clips to a common encode profile in parallel. A clip that
// fails the primary profile is retried once with the fallback profile; a clip
// that fails both is dropped.
type Normalizer struct {
	gw       media.Gateway
	primary  media.Profile
	fallback media.Profile
	workers  int
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewNormalizer creates a Normalizer. workers <= 0 selects DefaultWorkers.
func NewNormalizer(gw media.Gateway, primary, fallback media.Profile, workers int, m *metrics.Metrics, logger *slog.Logger) *Normalizer {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{
		gw:       gw,
		primary:  primary,
		fallback: fallback,
		workers:  workers,
		metrics:  m,
		logger:   logger,
	}
}

// Normalize runs one normalization per clip into dir, at most n.workers at a
// time, and returns the clips that survived, in their original order, with
// Path pointing at the normalized file. Dropped clips are returned separately.
func (n *Normalizer) Normalize(ctx context.Context, clips []classify.Clip, dir string, progress ProgressFunc) (kept, dropped []classify.Clip) {
	total := len(clips)
	results := make([]*classify.Clip, total)

	var (
		mu   sync.Mutex
		done int
	)
	tick := func() {
		mu.Lock()
		defer mu.Unlock()
		done++
		if progress != nil {
			progress(done, total)
		}
	}

	var g errgroup.Group
	g.SetLimit(n.workers)
	for i, clip := range clips {
		i, clip := i, clip
		g.Go(func() error {
			defer tick()
			results[i] = n.normalizeOne(ctx, i, clip, dir)
			return nil
		})
	}
	_ = g.Wait()

	kept = make([]classify.Clip, 0, total)
	for i, r := range results {
		if r == nil {
			dropped = append(dropped, clips[i])
			continue
		}
		kept = append(kept, *r)
	}
	return kept, dropped
}

func (n *Normalizer) normalizeOne(ctx context.Context, index int, clip classify.Clip, dir string) *classify.Clip {
	output := filepath.Join(dir, normalizedName(index, clip.Name))

	attempt := func(p media.Profile) func(context.Context) (string, error) {
		return func(ctx context.Context) (string, error) {
			res, err := n.gw.Execute(ctx, media.Operation{
				Kind:    media.OpNormalize,
				Inputs:  []string{clip.Path},
				Output:  output,
				Profile: p,
			})
			return res.Output, err
		}
	}

	path, tier, err := TryTiers(ctx, []Tier[string]{
		{Name: metrics.OutcomePrimary, Run: attempt(n.primary)},
		{Name: metrics.OutcomeFallback, Run: attempt(n.fallback)},
	})
	if err != nil {
		n.metrics.ClipNormalized(metrics.OutcomeDropped)
		n.logger.Warn("dropping clip, normalization failed",
			slog.String("group", clip.GroupKey),
			slog.String("submitter", clip.Submitter),
			slog.String("file", clip.Name),
			slog.String("error", err.Error()),
		)
		return nil
	}

	n.metrics.ClipNormalized(tier)
	if tier != metrics.OutcomePrimary {
		n.logger.Info("clip normalized with fallback profile",
			slog.String("group", clip.GroupKey),
			slog.String("file", clip.Name),
		)
	}

	if path == "" {
		path = output
	}
	out := clip
	out.Path = path
	return &out
}

// normalizedName is norm_<index>_<base>.mp4; the index keeps outputs of
// concurrent tasks apart even when base names collide.
func normalizedName(index int, name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	return fmt.Sprintf("norm_%03d_%s.mp4", index, base)
}
