package pipeline

import "github.com/maauso/appreciation-reel/internal/classify"

// SegmentKind classifies an element of the final sequence.
type SegmentKind string

const (
	SegmentIntro         SegmentKind = "intro"
	SegmentSubmitterCard SegmentKind = "submitter_card"
	SegmentClip          SegmentKind = "clip"
)

// Segment is one file in the concatenation order.
type Segment struct {
	Kind      SegmentKind
	Path      string
	Submitter string
}

// Assemble orders the final sequence: the intro card if present, then for
// each clip its submitter card if present followed by the clip. With nil
// cards the result is the clips alone.
func Assemble(clips []classify.Clip, cards *TitleCards) []Segment {
	segments := make([]Segment, 0, 1+2*len(clips))

	if cards != nil && cards.Intro != "" {
		segments = append(segments, Segment{Kind: SegmentIntro, Path: cards.Intro})
	}
	for i, clip := range clips {
		if cards != nil && i < len(cards.Submitters) && cards.Submitters[i] != "" {
			segments = append(segments, Segment{
				Kind:      SegmentSubmitterCard,
				Path:      cards.Submitters[i],
				Submitter: clip.Submitter,
			})
		}
		segments = append(segments, Segment{
			Kind:      SegmentClip,
			Path:      clip.Path,
			Submitter: clip.Submitter,
		})
	}
	return segments
}

// Paths returns the file paths of segments in order.
func Paths(segments []Segment) []string {
	paths := make([]string, len(segments))
	for i, s := range segments {
		paths[i] = s.Path
	}
	return paths
}
