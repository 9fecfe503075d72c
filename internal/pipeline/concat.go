package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/maauso/appreciation-reel/internal/media"
	"github.com/maauso/appreciation-reel/internal/metrics"
)

// ErrNoSegments is returned when there is nothing to concatenate.
var ErrNoSegments = errors.New("pipeline: no segments to concatenate")

// DefaultOutputExt is the container extension of produced outputs.
const DefaultOutputExt = "mp4"

// Concatenator joins a sequence into one file, trying stream copy first and
// falling back to a full re-encode.
type Concatenator struct {
	gw      media.Gateway
	profile media.Profile
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewConcatenator creates a Concatenator. profile supplies the re-encode
// quality settings.
func NewConcatenator(gw media.Gateway, profile media.Profile, m *metrics.Metrics, logger *slog.Logger) *Concatenator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Concatenator{gw: gw, profile: profile, metrics: m, logger: logger}
}

// Concat writes segments to output. It returns the name of the strategy
// that succeeded. With no segments it returns ErrNoSegments without touching
// the gateway.
func (c *Concatenator) Concat(ctx context.Context, segments []Segment, output string) (string, error) {
	if len(segments) == 0 {
		return "", ErrNoSegments
	}
	inputs := Paths(segments)

	attempt := func(strategy media.ConcatStrategy) Tier[string] {
		return Tier[string]{
			Name: string(strategy),
			Run: func(ctx context.Context) (string, error) {
				res, err := c.gw.Execute(ctx, media.Operation{
					Kind:     media.OpConcat,
					Inputs:   inputs,
					Output:   output,
					Strategy: strategy,
					Profile:  c.profile,
				})
				if err != nil {
					c.logger.Warn("concat strategy failed",
						slog.String("strategy", string(strategy)),
						slog.String("output", output),
						slog.String("error", summarizeError(err)),
					)
				}
				return res.Output, err
			},
		}
	}

	_, tier, err := TryTiers(ctx, []Tier[string]{
		attempt(media.StrategyCopy),
		attempt(media.StrategyReencode),
	})
	if err != nil {
		return "", fmt.Errorf("concatenate %d segments: %w", len(segments), err)
	}
	c.metrics.ConcatTier(tier)
	return tier, nil
}

// OutputName is <groupKey>_appreciation.<ext>.
func OutputName(groupKey, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		ext = DefaultOutputExt
	}
	return groupKey + "_appreciation." + ext
}

// summarizeError keeps ffmpeg failures to their last stderr lines.
func summarizeError(err error) string {
	var ffErr *media.FFmpegError
	if errors.As(err, &ffErr) {
		return fmt.Sprintf("%v: %s", ffErr.Err, ffErr.LastLines(3))
	}
	return err.Error()
}
