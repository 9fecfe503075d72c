package media

import (
	"fmt"
	"strconv"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// scaleFilter scales to fit within the profile frame while keeping the aspect
// ratio, pads the rest with black and forces the frame rate.
func scaleFilter(p Profile) string {
	return fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2:black,setsar=1,fps=%d",
		p.Width, p.Height, p.Width, p.Height, p.FPS,
	)
}

// encodeArgs are the codec settings shared by every re-encoding operation so
// that produced segments stay stream-copy compatible.
func encodeArgs(p Profile) ffmpeg.KwArgs {
	return ffmpeg.KwArgs{
		"c:v":      "libx264",
		"preset":   p.Preset,
		"crf":      strconv.Itoa(p.CRF),
		"pix_fmt":  "yuv420p",
		"r":        strconv.Itoa(p.FPS),
		"c:a":      "aac",
		"b:a":      p.AudioBitrate,
		"ar":       strconv.Itoa(p.SampleRate),
		"ac":       "2",
		"movflags": "+faststart",
	}
}

func normalizeArgs(src, dst string, p Profile) []string {
	kw := encodeArgs(p)
	kw["vf"] = scaleFilter(p)
	if p.LoudnessLUFS != 0 {
		kw["af"] = fmt.Sprintf("loudnorm=I=%s:TP=-1.5:LRA=11", formatSeconds(p.LoudnessLUFS))
	}
	return ffmpeg.Input(src).Output(dst, kw).OverWriteOutput().GetArgs()
}

func fadeArgs(src, dst string, fadeOutStart, fadeDuration float64, p Profile) []string {
	d := formatSeconds(fadeDuration)
	st := formatSeconds(fadeOutStart)

	kw := encodeArgs(p)
	kw["vf"] = fmt.Sprintf("fade=t=in:st=0:d=%s,fade=t=out:st=%s:d=%s", d, st, d)
	kw["af"] = fmt.Sprintf("afade=t=in:st=0:d=%s,afade=t=out:st=%s:d=%s", d, st, d)
	return ffmpeg.Input(src).Output(dst, kw).OverWriteOutput().GetArgs()
}

func titleCardArgs(text string, duration float64, style CardStyle, dst string, p Profile) []string {
	color := fmt.Sprintf("color=c=%s:s=%dx%d:r=%d:d=%s",
		style.Background, p.Width, p.Height, p.FPS, formatSeconds(duration))
	silence := fmt.Sprintf("anullsrc=r=%d:cl=stereo", p.SampleRate)

	video := ffmpeg.Input(color, ffmpeg.KwArgs{"f": "lavfi"})
	audio := ffmpeg.Input(silence, ffmpeg.KwArgs{"f": "lavfi"})

	kw := encodeArgs(p)
	kw["vf"] = drawtextFilter(text, style)
	kw["t"] = formatSeconds(duration)
	return ffmpeg.Output([]*ffmpeg.Stream{video, audio}, dst, kw).OverWriteOutput().GetArgs()
}

// drawtextFilter renders text centered on the frame. Text expansion is off so
// captions are drawn literally, and every value is escaped for both the
// filtergraph and the option parser.
func drawtextFilter(text string, style CardStyle) string {
	var b strings.Builder
	fmt.Fprintf(&b, "drawtext=expansion=none:text=%s:fontcolor=%s:fontsize=%d:x=(w-text_w)/2:y=(h-text_h)/2",
		escapeDrawtext(text), style.FontColor, style.FontSize)
	if style.FontFile != "" {
		fmt.Fprintf(&b, ":fontfile=%s", escapeDrawtext(style.FontFile))
	}
	return b.String()
}

var (
	optionValueEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`, `:`, `\:`)
	filtergraphEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`, `[`, `\[`, `]`, `\]`, `,`, `\,`, `;`, `\;`)
)

// escapeDrawtext escapes s as a filter option value inside a -vf
// filtergraph. The option parser unescapes it after the graph parser did.
func escapeDrawtext(s string) string {
	return filtergraphEscaper.Replace(optionValueEscaper.Replace(s))
}

func concatCopyArgs(listFile, output string) []string {
	return ffmpeg.Input(listFile, ffmpeg.KwArgs{"f": "concat", "safe": "0"}).
		Output(output, ffmpeg.KwArgs{"c": "copy"}).
		OverWriteOutput().
		GetArgs()
}

// concatReencodeArgs re-encodes every segment to the profile. Segments may
// differ in size, frame rate or audio layout, so the scale, pad and fps
// filters are applied here too.
func concatReencodeArgs(listFile, output string, p Profile) []string {
	kw := encodeArgs(p)
	kw["vf"] = scaleFilter(p)
	return ffmpeg.Input(listFile, ffmpeg.KwArgs{"f": "concat", "safe": "0"}).
		Output(output, kw).
		OverWriteOutput().
		GetArgs()
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
