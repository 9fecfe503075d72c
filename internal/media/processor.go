// Package media is the gateway to the external transcoding engine.
// The pipeline describes every transcoding step as an Operation and hands it
// to a Gateway; this package provides the ffmpeg-backed implementation.
package media

import "context"

// OpKind names a transcoding operation.
type OpKind string

const (
	// OpNormalize re-encodes a clip to the target Profile.
	OpNormalize OpKind = "normalize"
	// OpProbeDuration measures a clip's duration in seconds.
	OpProbeDuration OpKind = "probe_duration"
	// OpFade applies fade-in and fade-out to video and audio.
	OpFade OpKind = "fade"
	// OpTitleCard synthesizes a caption segment with silent audio.
	OpTitleCard OpKind = "title_card"
	// OpConcat joins the inputs, in order, into one file.
	OpConcat OpKind = "concat"
)

// ConcatStrategy selects how OpConcat joins its inputs.
type ConcatStrategy string

const (
	// StrategyCopy joins with stream copy (no re-encoding).
	StrategyCopy ConcatStrategy = "copy"
	// StrategyReencode re-encodes every input to H.264/AAC.
	StrategyReencode ConcatStrategy = "reencode"
)

// Profile is the canonical encode target clips are brought to.
type Profile struct {
	Width  int
	Height int
	FPS    int
	// LoudnessLUFS is the integrated loudness target. Zero disables loudnorm.
	LoudnessLUFS float64
	CRF          int
	Preset       string
	AudioBitrate string
	SampleRate   int
}

// CardStyle controls how title cards look.
type CardStyle struct {
	FontSize   int
	FontColor  string
	Background string
	// FontFile is optional; ffmpeg's default font is used when empty.
	FontFile string
}

// Operation is a declarative description of one transcoding step.
// Only the fields relevant to Kind are read.
type Operation struct {
	Kind   OpKind
	Inputs []string
	Output string

	// Profile applies to OpNormalize, OpFade, OpTitleCard and re-encoding OpConcat.
	Profile Profile

	// FadeOutStart and FadeDuration apply to OpFade, in seconds.
	FadeOutStart float64
	FadeDuration float64

	// Text, Duration and Style apply to OpTitleCard.
	Text     string
	Duration float64
	Style    CardStyle

	// Strategy applies to OpConcat.
	Strategy ConcatStrategy
}

// Result is what a successful Operation produced.
type Result struct {
	// Output is the path of the produced file (empty for OpProbeDuration).
	Output string
	// Duration is set by OpProbeDuration.
	Duration float64
}

// Gateway executes transcoding operations. Execute blocks until the external
// process exits and reports failure through the returned error.
type Gateway interface {
	Execute(ctx context.Context, op Operation) (Result, error)
}
