// Package config provides configuration loading from a .env file,
// environment variables and an optional TOML file.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrInputDirRequired is returned when no input directory is configured.
	ErrInputDirRequired = errors.New("config: INPUT_DIR (or --input) is required")
	// ErrInvalidConfig is returned when a setting is out of range.
	ErrInvalidConfig = errors.New("config: invalid configuration")
)

// Duration is a time.Duration that reads from strings like "90s" in both
// the environment and TOML.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Profile is the encode target clips are normalized to.
type Profile struct {
	Width        int     `env:"WIDTH, default=1920" toml:"width" validate:"gt=0"`
	Height       int     `env:"HEIGHT, default=1080" toml:"height" validate:"gt=0"`
	FPS          int     `env:"FPS, default=30" toml:"fps" validate:"gt=0,lte=120"`
	LoudnessLUFS float64 `env:"LOUDNESS_LUFS, default=-16" toml:"loudness_lufs" validate:"gte=-70,lte=0"`
	CRF          int     `env:"CRF, default=23" toml:"crf" validate:"gte=0,lte=51"`
	Preset       string  `env:"PRESET, default=medium" toml:"preset" validate:"required"`
	AudioBitrate string  `env:"AUDIO_BITRATE, default=128k" toml:"audio_bitrate" validate:"required"`
	SampleRate   int     `env:"SAMPLE_RATE, default=48000" toml:"sample_rate" validate:"gt=0"`
}

// Fallback holds the settings of the reduced normalization retry. Everything
// else is taken from Profile and loudness normalization is skipped.
type Fallback struct {
	CRF    int    `env:"CRF, default=28" toml:"crf" validate:"gte=0,lte=51"`
	Preset string `env:"PRESET, default=veryfast" toml:"preset" validate:"required"`
}

// Card holds title card settings.
type Card struct {
	DurationSec       float64 `env:"DURATION_SEC, default=3" toml:"duration_sec" validate:"gt=0"`
	FontSize          int     `env:"FONT_SIZE, default=72" toml:"font_size" validate:"gt=0"`
	FontColor         string  `env:"FONT_COLOR, default=white" toml:"font_color" validate:"required"`
	Background        string  `env:"BACKGROUND, default=black" toml:"background" validate:"required"`
	FontFile          string  `env:"FONT_FILE" toml:"font_file"`
	IntroTemplate     string  `env:"INTRO_TEMPLATE, default=For {recipient}" toml:"intro_template"`
	SubmitterTemplate string  `env:"SUBMITTER_TEMPLATE, default=From {submitter}" toml:"submitter_template"`
}

// Config holds all configuration for the application.
type Config struct {
	// Paths
	InputDir  string `env:"INPUT_DIR" toml:"input_dir"`
	OutputDir string `env:"OUTPUT_DIR, default=./output" toml:"output_dir" validate:"required"`
	TempDir   string `env:"TEMP_DIR, default=./temp" toml:"temp_dir" validate:"required"`
	KeepTemp  bool   `env:"KEEP_TEMP, default=false" toml:"keep_temp"`

	// Pipeline switches
	Normalize   bool    `env:"NORMALIZE, default=true" toml:"normalize"`
	Transitions bool    `env:"TRANSITIONS, default=true" toml:"transitions"`
	TitleCards  bool    `env:"TITLE_CARDS, default=true" toml:"title_cards"`
	SortGroups  bool    `env:"SORT_GROUPS, default=true" toml:"sort_groups"`
	Workers     int     `env:"WORKERS, default=4" toml:"workers" validate:"gte=1,lte=32"`
	OutputExt   string  `env:"OUTPUT_EXT, default=mp4" toml:"output_ext" validate:"oneof=mp4 mov mkv"`
	FadeSec     float64 `env:"FADE_SEC, default=0.5" toml:"fade_sec" validate:"gt=0"`

	// External tools
	FFmpegPath       string   `env:"FFMPEG_PATH, default=ffmpeg" toml:"ffmpeg_path" validate:"required"`
	FFprobePath      string   `env:"FFPROBE_PATH, default=ffprobe" toml:"ffprobe_path" validate:"required"`
	OperationTimeout Duration `env:"OPERATION_TIMEOUT, default=0s" toml:"operation_timeout" validate:"gte=0"`

	Profile  Profile  `env:", prefix=PROFILE_" toml:"profile"`
	Fallback Fallback `env:", prefix=FALLBACK_" toml:"fallback"`
	Card     Card     `env:", prefix=CARD_" toml:"card"`

	// Optional S3 settings
	S3Bucket           string `env:"S3_BUCKET" toml:"s3_bucket"`
	S3Region           string `env:"S3_REGION" toml:"s3_region" validate:"required_with=S3Bucket"`
	S3Endpoint         string `env:"S3_ENDPOINT" toml:"s3_endpoint"`
	S3Prefix           string `env:"S3_PREFIX" toml:"s3_prefix"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" toml:"-"`     // Masked
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" toml:"-"` // Masked

	// Run history and metrics
	HistoryDB   string `env:"HISTORY_DB" toml:"history_db"`
	MetricsFile string `env:"METRICS_FILE" toml:"metrics_file"`

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" toml:"log_format" validate:"oneof=text json"`
	LogLevel  string `env:"LOG_LEVEL, default=info" toml:"log_level"`
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// Load builds the configuration from, in increasing precedence: defaults,
// a .env file in the working directory, the environment, and configFile
// when it is not empty. Flags are applied by the caller, which then calls
// Validate.
func Load(ctx context.Context, configFile string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := envconfig.Process(ctx, cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if configFile != "" {
		if err := cfg.mergeFile(configFile); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// loadDotEnv sets variables from path without overriding ones already set.
// A missing file is not an error.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("config: load %s: %w", path, err)
}

// mergeFile overlays the keys present in a TOML file onto c.
func (c *Config) mergeFile(path string) error {
	file, err := os.Open(path) // #nosec G304 - path comes from the command line
	if err != nil {
		return fmt.Errorf("config: open %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	decoder := toml.NewDecoder(file).DisallowUnknownFields()
	if err := decoder.Decode(c); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return fmt.Errorf("config: %s: %s", path, strict.String())
		}
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

// Validate checks that all required configuration is present and in range.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.InputDir) == "" {
		return ErrInputDirRequired
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q (%s)", fe.Namespace(), fe.Tag(), fe.Param()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{InputDir: %s, OutputDir: %s, TempDir: %s, Workers: %d, Normalize: %t, Transitions: %t, TitleCards: %t, OutputExt: %s, Profile: %dx%d@%d, S3Bucket: %s, S3Region: %s, HistoryDB: %s, LogFormat: %s, LogLevel: %s}",
		c.InputDir,
		c.OutputDir,
		c.TempDir,
		c.Workers,
		c.Normalize,
		c.Transitions,
		c.TitleCards,
		c.OutputExt,
		c.Profile.Width,
		c.Profile.Height,
		c.Profile.FPS,
		c.S3Bucket,
		c.S3Region,
		c.HistoryDB,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
