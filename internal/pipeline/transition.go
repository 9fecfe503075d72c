package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/maauso/appreciation-reel/internal/classify"
	"github.com/maauso/appreciation-reel/internal/media"
	"github.com/maauso/appreciation-reel/internal/metrics"
)

// DefaultFade is the fade length in seconds.
const DefaultFade = 0.5

// TransitionApplier fades each clip in and out. It runs sequentially and
// never changes the number or order of clips: when a clip cannot be measured
// or faded, the clip is passed through unchanged.
type TransitionApplier struct {
	gw      media.Gateway
	fade    float64
	profile media.Profile
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewTransitionApplier creates a TransitionApplier. fade <= 0 selects DefaultFade.
func NewTransitionApplier(gw media.Gateway, fade float64, profile media.Profile, m *metrics.Metrics, logger *slog.Logger) *TransitionApplier {
	if fade <= 0 {
		fade = DefaultFade
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TransitionApplier{gw: gw, fade: fade, profile: profile, metrics: m, logger: logger}
}

// Apply returns clips with Path replaced by the faded file where fading
// succeeded.
func (a *TransitionApplier) Apply(ctx context.Context, clips []classify.Clip, dir string) []classify.Clip {
	out := make([]classify.Clip, len(clips))
	for i, clip := range clips {
		out[i] = clip

		faded, err := a.applyOne(ctx, i, clip, dir)
		if err != nil {
			a.metrics.Transition(metrics.OutcomeSkipped)
			a.logger.Warn("transition skipped, using clip unchanged",
				slog.String("group", clip.GroupKey),
				slog.String("file", clip.Name),
				slog.String("error", err.Error()),
			)
			continue
		}
		a.metrics.Transition(metrics.OutcomeApplied)
		out[i].Path = faded
	}
	return out
}

func (a *TransitionApplier) applyOne(ctx context.Context, index int, clip classify.Clip, dir string) (string, error) {
	probe, err := a.gw.Execute(ctx, media.Operation{
		Kind:   media.OpProbeDuration,
		Inputs: []string{clip.Path},
	})
	if err != nil {
		return "", fmt.Errorf("probe duration: %w", err)
	}

	base := strings.TrimSuffix(clip.Name, filepath.Ext(clip.Name))
	output := filepath.Join(dir, fmt.Sprintf("fade_%03d_%s.mp4", index, base))

	res, err := a.gw.Execute(ctx, media.Operation{
		Kind:         media.OpFade,
		Inputs:       []string{clip.Path},
		Output:       output,
		FadeOutStart: FadeOutStart(probe.Duration, a.fade),
		FadeDuration: a.fade,
		Profile:      a.profile,
	})
	if err != nil {
		return "", fmt.Errorf("fade: %w", err)
	}
	if res.Output == "" {
		return output, nil
	}
	return res.Output, nil
}

// FadeOutStart is the time the fade-out begins, clamped to zero for clips
// shorter than the fade.
func FadeOutStart(duration, fade float64) float64 {
	return max(0, duration-fade)
}
