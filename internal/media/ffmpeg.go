package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Static errors for media operations.
var (
	// ErrInvalidDimensions is returned when the profile dimensions are not positive.
	ErrInvalidDimensions = errors.New("invalid dimensions: width and height must be positive")
	// ErrNoVideoPaths is returned when no video paths are provided for joining.
	ErrNoVideoPaths = errors.New("no video paths provided")
	// ErrInvalidDuration is returned when duration is not positive.
	ErrInvalidDuration = errors.New("invalid duration: must be positive")
	// ErrFFprobeExecution is returned when ffprobe command fails.
	ErrFFprobeExecution = errors.New("ffprobe execution failed")
	// ErrMissingInput is returned when an operation needs an input it did not get.
	ErrMissingInput = errors.New("operation requires an input path")
	// ErrMissingOutput is returned when an operation needs an output path it did not get.
	ErrMissingOutput = errors.New("operation requires an output path")
	// ErrUnknownOperation is returned for an unsupported OpKind.
	ErrUnknownOperation = errors.New("unknown operation")
	// ErrUnknownStrategy is returned for an unsupported ConcatStrategy.
	ErrUnknownStrategy = errors.New("unknown concat strategy")
)

// FFmpegGateway implements Gateway using the ffmpeg and ffprobe CLIs.
type FFmpegGateway struct {
	// ffmpegPath is the path to the ffmpeg binary. Defaults to "ffmpeg".
	ffmpegPath string
	// ffprobePath is the path to the ffprobe binary. Defaults to "ffprobe".
	ffprobePath string
	// listDir is where concat list files are written. Empty means os.TempDir.
	listDir string
	// timeout bounds a single operation. Zero means no limit.
	timeout time.Duration
	logger  *slog.Logger
}

// GatewayOption configures an FFmpegGateway.
type GatewayOption func(*FFmpegGateway)

// WithFFprobePath sets the ffprobe binary.
func WithFFprobePath(path string) GatewayOption {
	return func(g *FFmpegGateway) {
		if path != "" {
			g.ffprobePath = path
		}
	}
}

// WithListDir sets the directory used for concat list files.
func WithListDir(dir string) GatewayOption {
	return func(g *FFmpegGateway) {
		g.listDir = dir
	}
}

// WithOperationTimeout bounds each operation. Zero disables the limit.
func WithOperationTimeout(d time.Duration) GatewayOption {
	return func(g *FFmpegGateway) {
		g.timeout = d
	}
}

// WithLogger sets the logger used for command tracing.
func WithLogger(logger *slog.Logger) GatewayOption {
	return func(g *FFmpegGateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewFFmpegGateway creates a new FFmpegGateway.
// If ffmpegPath is empty, it defaults to "ffmpeg" (found via PATH).
func NewFFmpegGateway(ffmpegPath string, opts ...GatewayOption) *FFmpegGateway {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	g := &FFmpegGateway{
		ffmpegPath:  ffmpegPath,
		ffprobePath: "ffprobe",
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Execute runs a single operation.
func (g *FFmpegGateway) Execute(ctx context.Context, op Operation) (Result, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	switch op.Kind {
	case OpNormalize:
		return g.normalize(ctx, op)
	case OpProbeDuration:
		if len(op.Inputs) == 0 {
			return Result{}, fmt.Errorf("%s: %w", op.Kind, ErrMissingInput)
		}
		d, err := g.GetMediaDuration(ctx, op.Inputs[0])
		if err != nil {
			return Result{}, err
		}
		return Result{Duration: d}, nil
	case OpFade:
		return g.fade(ctx, op)
	case OpTitleCard:
		return g.titleCard(ctx, op)
	case OpConcat:
		return g.concat(ctx, op)
	default:
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownOperation, op.Kind)
	}
}

func (g *FFmpegGateway) normalize(ctx context.Context, op Operation) (Result, error) {
	if err := requireIO(op); err != nil {
		return Result{}, err
	}
	if err := validateProfile(op.Profile); err != nil {
		return Result{}, err
	}
	if err := g.runFFmpeg(ctx, normalizeArgs(op.Inputs[0], op.Output, op.Profile)); err != nil {
		return Result{}, err
	}
	return Result{Output: op.Output}, nil
}

func (g *FFmpegGateway) fade(ctx context.Context, op Operation) (Result, error) {
	if err := requireIO(op); err != nil {
		return Result{}, err
	}
	if op.FadeDuration <= 0 {
		return Result{}, fmt.Errorf("%w: fade %.2f", ErrInvalidDuration, op.FadeDuration)
	}
	args := fadeArgs(op.Inputs[0], op.Output, op.FadeOutStart, op.FadeDuration, op.Profile)
	if err := g.runFFmpeg(ctx, args); err != nil {
		return Result{}, err
	}
	return Result{Output: op.Output}, nil
}

func (g *FFmpegGateway) titleCard(ctx context.Context, op Operation) (Result, error) {
	if op.Output == "" {
		return Result{}, fmt.Errorf("%s: %w", op.Kind, ErrMissingOutput)
	}
	if op.Duration <= 0 {
		return Result{}, fmt.Errorf("%w: got %.2f", ErrInvalidDuration, op.Duration)
	}
	if err := validateProfile(op.Profile); err != nil {
		return Result{}, err
	}
	if err := g.runFFmpeg(ctx, titleCardArgs(op.Text, op.Duration, op.Style, op.Output, op.Profile)); err != nil {
		return Result{}, err
	}
	return Result{Output: op.Output}, nil
}

// concat joins op.Inputs into op.Output with the requested strategy.
// A single input under StrategyCopy is copied as-is when it already has the
// output's container extension, and remuxed otherwise.
func (g *FFmpegGateway) concat(ctx context.Context, op Operation) (Result, error) {
	if len(op.Inputs) == 0 {
		return Result{}, ErrNoVideoPaths
	}
	if op.Output == "" {
		return Result{}, fmt.Errorf("%s: %w", op.Kind, ErrMissingOutput)
	}
	if op.Strategy != StrategyCopy && op.Strategy != StrategyReencode {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownStrategy, op.Strategy)
	}

	if op.Strategy == StrategyReencode {
		if err := validateProfile(op.Profile); err != nil {
			return Result{}, err
		}
	}

	if len(op.Inputs) == 1 && op.Strategy == StrategyCopy && sameContainer(op.Inputs[0], op.Output) {
		if err := copyFile(op.Inputs[0], op.Output); err != nil {
			return Result{}, err
		}
		return Result{Output: op.Output}, nil
	}

	listFile, err := g.createConcatList(op.Inputs)
	if err != nil {
		return Result{}, fmt.Errorf("create concat list: %w", err)
	}
	defer func() { _ = os.Remove(listFile) }()

	args := concatCopyArgs(listFile, op.Output)
	if op.Strategy == StrategyReencode {
		args = concatReencodeArgs(listFile, op.Output, op.Profile)
	}
	if err := g.runFFmpeg(ctx, args); err != nil {
		_ = os.Remove(op.Output)
		return Result{}, err
	}
	return Result{Output: op.Output}, nil
}

func sameContainer(a, b string) bool {
	return strings.EqualFold(filepath.Ext(a), filepath.Ext(b))
}

// createConcatList creates a temporary file containing the list of video files
// in the format required by ffmpeg's concat demuxer.
func (g *FFmpegGateway) createConcatList(videoPaths []string) (string, error) {
	f, err := os.CreateTemp(g.listDir, "ffmpeg-concat-*.txt")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = f.Close() }()

	for _, path := range videoPaths {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("get absolute path for %s: %w", path, err)
		}
		// Escape single quotes in path
		escapedPath := strings.ReplaceAll(absPath, "'", "'\\''")
		if _, err := fmt.Fprintf(f, "file '%s'\n", escapedPath); err != nil {
			return "", fmt.Errorf("write to concat list: %w", err)
		}
	}

	return f.Name(), nil
}

// copyFile copies a file from src to dst.
func copyFile(src, dst string) error {
	input, err := os.ReadFile(src) // #nosec G304 - src is provided by trusted internal code
	if err != nil {
		return fmt.Errorf("read source file: %w", err)
	}
	if err := os.WriteFile(dst, input, 0o644); err != nil {
		return fmt.Errorf("write destination file: %w", err)
	}
	return nil
}

// runFFmpeg executes ffmpeg with the given arguments and returns an error
// containing stderr output if the command fails.
func (g *FFmpegGateway) runFFmpeg(ctx context.Context, args []string) error {
	g.logger.Debug("running ffmpeg",
		slog.String("cmd", g.ffmpegPath+" "+strings.Join(args, " ")),
	)

	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, g.ffmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg cancelled: %w", ctx.Err())
		}
		return &FFmpegError{
			Args:   args,
			Stderr: stderr.String(),
			Err:    err,
		}
	}

	return nil
}

// FFmpegError represents an error from running ffmpeg, including the stderr output.
type FFmpegError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *FFmpegError) Error() string {
	return fmt.Sprintf("ffmpeg error: %v\nargs: %v\nstderr: %s", e.Err, e.Args, e.Stderr)
}

func (e *FFmpegError) Unwrap() error {
	return e.Err
}

// LastLines returns at most n trailing lines of stderr.
func (e *FFmpegError) LastLines(n int) string {
	lines := strings.Split(strings.TrimSpace(e.Stderr), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

func requireIO(op Operation) error {
	if len(op.Inputs) == 0 || op.Inputs[0] == "" {
		return fmt.Errorf("%s: %w", op.Kind, ErrMissingInput)
	}
	if op.Output == "" {
		return fmt.Errorf("%s: %w", op.Kind, ErrMissingOutput)
	}
	return nil
}

func validateProfile(p Profile) error {
	if p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf("%w: width=%d, height=%d", ErrInvalidDimensions, p.Width, p.Height)
	}
	return nil
}

// Verify interface implementation at compile time.
var _ Gateway = (*FFmpegGateway)(nil)
