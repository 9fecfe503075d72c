package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
)

var durationRe = regexp.MustCompile(`Duration:\s*(\d+):(\d+):(\d+)\.(\d+)`)

// GetMediaDuration returns the duration in seconds of a media file.
// It asks ffprobe first and falls back to parsing the banner ffmpeg prints
// for the input when ffprobe is unavailable or fails.
func (g *FFmpegGateway) GetMediaDuration(ctx context.Context, path string) (float64, error) {
	d, probeErr := g.probeDuration(ctx, path)
	if probeErr == nil {
		return d, nil
	}
	if ctx.Err() != nil {
		return 0, probeErr
	}

	d, bannerErr := g.bannerDuration(ctx, path)
	if bannerErr == nil {
		return d, nil
	}
	return 0, errors.Join(probeErr, bannerErr)
}

func (g *FFmpegGateway) probeDuration(ctx context.Context, path string) (float64, error) {
	// #nosec G204 - ffprobePath is set by the application, not user input
	cmd := exec.CommandContext(ctx, g.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if ctx.Err() != nil {
			return 0, fmt.Errorf("ffprobe cancelled: %w", ctx.Err())
		}
		return 0, fmt.Errorf("%w: %w, stderr: %s", ErrFFprobeExecution, err, stderr.String())
	}

	var duration float64
	_, err = fmt.Sscanf(strings.TrimSpace(stdout.String()), "%f", &duration)
	if err != nil {
		return 0, fmt.Errorf("parse duration: %w", err)
	}

	return duration, nil
}

// bannerDuration reads "Duration: HH:MM:SS.ms" from ffmpeg's stderr.
func (g *FFmpegGateway) bannerDuration(ctx context.Context, path string) (float64, error) {
	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, g.ffmpegPath,
		"-hide_banner",
		"-i", path,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	// ffmpeg exits non-zero without an output file; only stderr matters
	_ = cmd.Run()

	return parseBannerDuration(stderr.String())
}

func parseBannerDuration(output string) (float64, error) {
	matches := durationRe.FindStringSubmatch(output)
	if len(matches) < 5 {
		return 0, fmt.Errorf("could not parse duration from ffmpeg output: %q", lastLine(output))
	}

	hours, _ := strconv.ParseFloat(matches[1], 64)
	minutes, _ := strconv.ParseFloat(matches[2], 64)
	seconds, _ := strconv.ParseFloat(matches[3], 64)
	frac, _ := strconv.ParseFloat("0."+matches[4], 64)

	return hours*3600 + minutes*60 + seconds + frac, nil
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
